package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/repository/memory"
	"github.com/ignite/outreach-engine/internal/service/dashboard"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestStats(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	for id, st := range map[string]domain.ContactStatus{
		"c-1": domain.ContactNew,
		"c-2": domain.ContactEngaged,
		"c-3": domain.ContactMeetingBooked,
		"c-4": domain.ContactContacted,
	} {
		require.NoError(t, store.Contacts().Create(ctx, &domain.Contact{ID: id, Email: id + "@x.example", Status: st}))
	}
	steps := []domain.Step{{ID: "st-1", Order: 1, Type: domain.StepCall}}
	require.NoError(t, store.Sequences().Create(ctx, &domain.Sequence{ID: "s-1", Name: "A", Status: domain.SequenceActive, Steps: steps}))
	require.NoError(t, store.Sequences().Create(ctx, &domain.Sequence{ID: "s-2", Name: "B", Status: domain.SequenceActive, Steps: steps}))
	require.NoError(t, store.Sequences().Create(ctx, &domain.Sequence{ID: "s-3", Name: "C", Status: domain.SequenceDraft}))

	enroll := func(id, contactID, seqID string, status domain.EnrollmentStatus) {
		require.NoError(t, store.Enrollments().Create(ctx, &domain.Enrollment{
			ID: id, ContactID: contactID, SequenceID: seqID, Status: status, EnrolledAt: now, Version: 1,
		}, domain.Activity{ID: "act-" + id, EnrollmentID: id, ContactID: contactID, Type: domain.ActivityEnrolled, OccurredAt: now}))
	}
	enroll("e-1", "c-1", "s-1", domain.EnrollmentActive)
	enroll("e-2", "c-1", "s-2", domain.EnrollmentActive)
	enroll("e-3", "c-2", "s-1", domain.EnrollmentPaused)

	recent, old := now.AddDate(0, 0, -3), now.AddDate(0, 0, -45)
	var acts []domain.Activity
	add := func(typ domain.ActivityType, at time.Time) {
		acts = append(acts, domain.Activity{ID: "a-" + string(rune('a'+len(acts))), ContactID: "c-1", Type: typ, OccurredAt: at})
	}
	for i := 0; i < 3; i++ {
		add(domain.ActivityEmailSent, recent)
	}
	add(domain.ActivityEmailReplied, recent)
	add(domain.ActivityCallAnswered, recent)
	add(domain.ActivityCallMade, recent)
	add(domain.ActivityEmailSent, old)
	add(domain.ActivityEmailBounced, old)
	require.NoError(t, store.Enrollments().Apply(ctx, enrollment.Change{Activities: acts}))

	stats, err := dashboard.NewService(store.Dashboard()).Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalContacts)
	assert.Equal(t, 1, stats.ContactsInSequence, "distinct contacts, active only")
	assert.Equal(t, 1, stats.ContactsNew)
	assert.Equal(t, 1, stats.ContactsEngaged)
	assert.Equal(t, 1, stats.ContactsMeetingBooked)
	assert.Equal(t, 3, stats.EmailsSent, "outside the window is not counted")
	assert.Equal(t, 1, stats.EmailsReplied)
	assert.Equal(t, 0, stats.EmailsBounced)
	assert.Equal(t, 2, stats.Calls)
	assert.Equal(t, 33.3, stats.ReplyRate)
	assert.Equal(t, 0.0, stats.BounceRate)
	assert.Equal(t, 2, stats.ActiveSequences)
	assert.Equal(t, 3, stats.TotalSequences)
	assert.Equal(t, now.AddDate(0, 0, -dashboard.WindowDays), stats.Since)
}

func TestStatsEmpty(t *testing.T) {
	stats, err := dashboard.NewService(memory.New().Dashboard()).Stats(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, stats.ReplyRate)
	assert.Zero(t, stats.TotalContacts)
}
