package enrollment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func steps(delays ...int) []domain.Step {
	out := make([]domain.Step, len(delays))
	for i, d := range delays {
		out[i] = domain.Step{ID: string(rune('a' + i)), Order: i + 1, Type: domain.StepTask, DelayDays: d}
	}
	return out
}

func activeAt(due time.Time) domain.Enrollment {
	return domain.Enrollment{
		ID: "e-1", ContactID: "c-1", SequenceID: "s-1",
		Status: domain.EnrollmentActive, EnrolledAt: t0, NextDueAt: &due, Version: 1,
	}
}

func TestClassify(t *testing.T) {
	e := activeAt(t0)
	_, ok := Classify(e, nil).(Active)
	assert.True(t, ok)

	e.Status = domain.EnrollmentPaused
	_, ok = Classify(e, nil).(Paused)
	assert.True(t, ok)

	for _, s := range []domain.EnrollmentStatus{domain.EnrollmentCompleted, domain.EnrollmentReplied, domain.EnrollmentBounced, domain.EnrollmentUnsubscribed} {
		e.Status = s
		_, ok = Classify(e, nil).(Terminal)
		assert.True(t, ok, s)
	}
}

func TestAdvanceHoldsInvariant(t *testing.T) {
	st := steps(0, 2, 5, 1)
	e := activeAt(t0)
	at := t0
	for i := 0; i < len(st); i++ {
		a, ok := Classify(e, st).(Active)
		require.True(t, ok, "step %d", i)
		out, err := a.Advance(at, "")
		require.NoError(t, err)
		require.NoError(t, out.Next.CheckInvariant(len(st)))
		assert.Equal(t, i, out.Activity.StepIndex)
		assert.Equal(t, domain.ActivityTaskCompleted, out.Activity.Type)
		assert.Equal(t, e.Version+1, out.Next.Version)
		e = out.Next
		at = at.Add(time.Hour)
	}
	assert.Equal(t, domain.EnrollmentCompleted, e.Status)
	assert.Nil(t, e.NextDueAt)
	require.NotNil(t, e.CompletedAt)
	assert.Equal(t, len(st), e.CurrentStep)
}

func TestAdvanceSchedulesFromResolution(t *testing.T) {
	st := steps(0, 3)
	a := Classify(activeAt(t0), st).(Active)
	at := t0.Add(26 * time.Hour)
	out, err := a.Advance(at, "")
	require.NoError(t, err)
	require.NotNil(t, out.Next.NextDueAt)
	assert.Equal(t, at.AddDate(0, 0, 3), *out.Next.NextDueAt)
}

func TestLiveExitsHoldInvariant(t *testing.T) {
	st := steps(0, 1)
	due := t0
	exits := map[domain.EnrollmentStatus]func(liveState) Outcome{
		domain.EnrollmentReplied:      func(l liveState) Outcome { return l.MarkReplied(t0) },
		domain.EnrollmentBounced:      func(l liveState) Outcome { return l.Bounce(t0) },
		domain.EnrollmentUnsubscribed: func(l liveState) Outcome { return l.Unsubscribe(t0) },
		domain.EnrollmentCompleted:    func(l liveState) Outcome { return l.Unenroll(t0) },
	}
	paused := Classify(Classify(activeAt(due), st).(Active).Pause(t0).Next, st)
	for want, exit := range exits {
		for _, start := range []State{Classify(activeAt(due), st), paused} {
			l, err := asLive(start, "exit")
			require.NoError(t, err)
			out := exit(l)
			assert.Equal(t, want, out.Next.Status)
			assert.Nil(t, out.Next.NextDueAt)
			assert.Nil(t, out.Next.FrozenDueAt)
			require.NoError(t, out.Next.CheckInvariant(len(st)))
		}
	}
}

func TestTerminalHasNoLiveTransitions(t *testing.T) {
	e := activeAt(t0)
	e.Status = domain.EnrollmentReplied
	e.NextDueAt = nil
	_, err := asLive(Classify(e, nil), "bounce")
	assert.Error(t, err)
}

func TestPauseResume(t *testing.T) {
	st := steps(0, 3)
	due := t0.AddDate(0, 0, 3)
	pausedAt := t0.Add(24 * time.Hour)

	pause := func() Paused {
		out := Classify(activeAt(due), st).(Active).Pause(pausedAt)
		require.NoError(t, out.Next.CheckInvariant(len(st)))
		require.NotNil(t, out.Next.FrozenDueAt)
		assert.Equal(t, due, *out.Next.FrozenDueAt)
		return Classify(out.Next, st).(Paused)
	}

	t.Run("no elapsed time restores the due date", func(t *testing.T) {
		out := Classify(activeAt(due), st).(Active).Pause(pausedAt)
		back := Classify(out.Next, st).(Paused).Resume(pausedAt)
		require.NotNil(t, back.Next.NextDueAt)
		assert.Equal(t, due, *back.Next.NextDueAt)
		assert.Nil(t, back.Next.PausedAt)
		assert.Nil(t, back.Next.FrozenDueAt)
		require.NoError(t, back.Next.CheckInvariant(len(st)))
	})

	t.Run("due still ahead is unchanged", func(t *testing.T) {
		back := pause().Resume(pausedAt.Add(time.Hour))
		assert.Equal(t, due, *back.Next.NextDueAt)
	})

	t.Run("due inside the pause window is shifted by the remaining delay", func(t *testing.T) {
		resumeAt := due.AddDate(0, 0, 4)
		back := pause().Resume(resumeAt)
		assert.Equal(t, resumeAt.Add(due.Sub(pausedAt)), *back.Next.NextDueAt)
	})

	t.Run("already overdue when paused stays overdue", func(t *testing.T) {
		overdue := t0
		out := Classify(activeAt(overdue), st).(Active).Pause(pausedAt)
		back := Classify(out.Next, st).(Paused).Resume(pausedAt.AddDate(0, 0, 10))
		assert.Equal(t, overdue, *back.Next.NextDueAt)
	})
}
