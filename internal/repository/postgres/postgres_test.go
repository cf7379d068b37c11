package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/service/contact"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
	"github.com/ignite/outreach-engine/internal/service/sequence"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var enrollmentCols = []string{
	"id", "contact_id", "sequence_id", "current_step", "status", "enrolled_at",
	"next_due_at", "paused_at", "frozen_due_at", "completed_at", "version", "updated_at",
}

func TestEnrollmentGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepo(db)

	due := t0.AddDate(0, 0, 3)
	mock.ExpectQuery("SELECT .+ FROM enrollments WHERE id = \\$1").WithArgs("e-1").
		WillReturnRows(sqlmock.NewRows(enrollmentCols).
			AddRow("e-1", "c-1", "s-1", 1, "active", t0, due, nil, nil, nil, 2, t0))

	e, err := repo.Get(context.Background(), "e-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentActive, e.Status)
	assert.Equal(t, 1, e.CurrentStep)
	require.NotNil(t, e.NextDueAt)
	assert.Equal(t, due, *e.NextDueAt)
	assert.Nil(t, e.PausedAt)
	assert.Equal(t, int64(2), e.Version)

	mock.ExpectQuery("SELECT .+ FROM enrollments WHERE id = \\$1").WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, enrollment.ErrNotFound)
}

func TestEnrollmentCreateChecksSequence(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepo(db)
	due := t0
	e := &domain.Enrollment{ID: "e-1", ContactID: "c-1", SequenceID: "s-1", Status: domain.EnrollmentActive, EnrolledAt: t0, NextDueAt: &due, Version: 1, UpdatedAt: t0}
	act := domain.Activity{ID: "a-1", EnrollmentID: "e-1", ContactID: "c-1", SequenceID: "s-1", Type: domain.ActivityEnrolled, OccurredAt: t0}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM sequences WHERE id = \\$1 FOR SHARE").WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("paused"))
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Create(context.Background(), e, act), enrollment.ErrSequenceNotActive)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM sequences").WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "enrollments_contact_sequence_key"})
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Create(context.Background(), e, act), enrollment.ErrAlreadyEnrolled)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM sequences").WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activities").
		WithArgs("a-1", "e-1", "c-1", "s-1", 0, "enrolled", "", "", t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.Create(context.Background(), e, act))
}

func TestApplyRollsBackOnStaleVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepo(db)
	change := enrollment.Change{
		Transitions: []enrollment.Transition{{
			Enrollment:      domain.Enrollment{ID: "e-1", CurrentStep: 1, Status: domain.EnrollmentActive, UpdatedAt: t0},
			ExpectedVersion: 3,
			Activity:        domain.Activity{ID: "a-1", EnrollmentID: "e-1", ContactID: "c-1", Type: domain.ActivityEmailSent, OccurredAt: t0},
		}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE enrollments SET .+ WHERE id = \\$1 AND version = \\$2").
		WithArgs("e-1", int64(3), 1, "active", nil, nil, nil, nil, t0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("e-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.Apply(context.Background(), change)
	assert.ErrorIs(t, err, enrollment.ErrStaleVersion)
	assert.ErrorIs(t, err, apperr.ErrConcurrentModification)
}

func TestApplyWritesTouchInSameTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepo(db)
	at := t0
	change := enrollment.Change{
		Transitions: []enrollment.Transition{{
			Enrollment:      domain.Enrollment{ID: "e-1", CurrentStep: 2, Status: domain.EnrollmentCompleted, CompletedAt: &at, UpdatedAt: t0},
			ExpectedVersion: 1,
			Activity:        domain.Activity{ID: "a-1", EnrollmentID: "e-1", ContactID: "c-1", SequenceID: "s-1", StepIndex: 1, Type: domain.ActivityEmailSent, MessageID: "m-1", OccurredAt: t0},
		}},
		Touch: &domain.ContactTouch{ContactID: "c-1", IncEmailsSent: true, LastContactedAt: &at, PromoteNew: domain.ContactContacted, At: t0},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE enrollments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activities").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE contacts SET").
		WithArgs("c-1", true, at, nil, "", "contacted", false, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Apply(context.Background(), change))
}

func TestContactCreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContactRepo(db)

	mock.ExpectExec("INSERT INTO contacts").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "contacts_email_key"})
	err := repo.Create(context.Background(), &domain.Contact{ID: "c-1", Email: "a@x.example", CreatedAt: t0, UpdatedAt: t0})
	assert.ErrorIs(t, err, contact.ErrEmailTaken)
}

func TestContactUpdateAppendsActivity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContactRepo(db)

	cols := []string{
		"id", "email", "first_name", "last_name", "phone", "company", "job_title", "industry", "status",
		"segment", "certified", "certification_in_progress", "multi_site_region",
		"regulatory_exposure", "headcount_over_threshold", "visible_budget",
		"icp_score", "icp_tier", "icp_rules_version",
		"emails_sent", "emails_opened", "emails_clicked", "last_contacted_at", "last_replied_at",
		"is_unsubscribed", "created_at", "updated_at",
	}
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM contacts WHERE id = \\$1 FOR UPDATE").WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"c-1", "a@x.example", "Ana", "", "", "Pyrowave", "", "", "new",
			"chemical_recycling", false, false, false, false, false, false,
			2.0, "non_target", "default-1",
			0, 0, 0, nil, nil,
			false, t0, t0))
	mock.ExpectExec("UPDATE contacts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activities").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, err := repo.Update(context.Background(), "c-1", func(c *domain.Contact) (*domain.Activity, error) {
		c.Signals.Certified = true
		c.ICPScore = 5
		c.ICPTier = domain.Tier2
		return &domain.Activity{ID: "a-1", ContactID: c.ID, Type: domain.ActivityScoreChanged, OccurredAt: t0}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Tier2, c.ICPTier)
	assert.Equal(t, domain.SegmentChemicalRecycling, c.Signals.Segment)
}

func TestSequenceSetStatusConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSequenceRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM sequences WHERE id = \\$1 FOR UPDATE").WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("paused"))
	mock.ExpectRollback()

	_, err := repo.SetStatus(context.Background(), "s-1", domain.SequenceActive, domain.SequenceArchived, t0, nil)
	assert.ErrorIs(t, err, sequence.ErrStatusConflict)
}

func TestSequenceArchiveClosesLiveEnrollmentsUnderRowLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSequenceRepo(db)
	due := t0.AddDate(0, 0, 3)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM sequences WHERE id = \\$1 FOR UPDATE").WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
	mock.ExpectExec("UPDATE sequences SET status").WithArgs("s-1", "archived", t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM enrollments WHERE sequence_id = \\$1 AND status IN .+ FOR UPDATE").WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows(enrollmentCols).
			AddRow("e-late", "c-late", "s-1", 0, "active", t0, due, nil, nil, nil, 1, t0))
	mock.ExpectExec("UPDATE enrollments SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activities").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen []string
	change, err := repo.SetStatus(context.Background(), "s-1", domain.SequenceActive, domain.SequenceArchived, t0,
		func(live []domain.Enrollment) enrollment.Change {
			var c enrollment.Change
			for _, e := range live {
				seen = append(seen, e.ID)
				e.Status = domain.EnrollmentCompleted
				e.NextDueAt = nil
				e.CompletedAt = &t0
				c.Transitions = append(c.Transitions, enrollment.Transition{
					Enrollment:      e,
					ExpectedVersion: 1,
					Activity: domain.Activity{ID: "a-1", EnrollmentID: e.ID, ContactID: e.ContactID,
						SequenceID: e.SequenceID, Type: domain.ActivitySequenceArchived, OccurredAt: t0},
				})
			}
			return c
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"e-late"}, seen)
	require.Len(t, change.Transitions, 1)
	assert.Equal(t, domain.EnrollmentCompleted, change.Transitions[0].Enrollment.Status)
}

func TestSequenceAddStepRequiresDraft(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSequenceRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM sequences WHERE id = \\$1 FOR UPDATE").WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
	mock.ExpectRollback()

	err := repo.AddStep(context.Background(), &domain.Step{ID: "st-1", SequenceID: "s-1", Order: 2, Type: domain.StepTask})
	assert.ErrorIs(t, err, sequence.ErrNotDraft)
}

func TestSequenceGetLoadsOrderedSteps(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSequenceRepo(db)

	mock.ExpectQuery("SELECT .+ FROM sequences").WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "target_industry", "target_persona", "status", "created_at", "updated_at"}).
			AddRow("s-1", "Recyclers", "", "", "", "active", t0, t0))
	mock.ExpectQuery("FROM sequence_steps").WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sequence_id", "step_order", "step_type", "delay_days", "template_id", "subject_override", "description"}).
			AddRow("st-1", "s-1", 1, "email", 0, "tpl-1", "", "").
			AddRow("st-2", "s-1", 2, "call", 3, "", "", "Discovery"))

	s, err := repo.Get(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, domain.StepCall, s.Steps[1].Type)
	assert.Equal(t, 3, s.Steps[1].DelayDays)
}

func TestListDueScansJoinedRows(t *testing.T) {
	db, mock := newMockDB(t)
	src := NewActionSource(db)
	due := t0.Add(time.Hour)

	cols := []string{
		"id", "contact_id", "sequence_id", "current_step", "status", "enrolled_at",
		"next_due_at", "paused_at", "frozen_due_at", "completed_at", "version", "updated_at",
		"cid", "email", "first_name", "last_name", "company", "job_title", "industry",
		"icp_score", "icp_tier", "is_unsubscribed",
		"sid", "name", "sstatus",
		"step_id", "step_order", "step_type", "delay_days", "template_id", "subject_override", "description",
		"tid", "tname", "subject", "body_html", "body_text",
	}
	mock.ExpectQuery("WITH ranked AS .+ e.next_due_at < \\$1").WithArgs(t0.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("e-1", "c-1", "s-1", 0, "active", t0, due, nil, nil, nil, 1, t0,
				"c-1", "a@x.example", "Ana", "Li", "Pyrowave", "", "",
				8.0, "tier_1", false,
				"s-1", "Recyclers", "active",
				"st-1", 1, "email", 0, "tpl-1", "", "",
				"tpl-1", "Intro", "Hi {{ firstName }}", "<p>x</p>", "x").
			AddRow("e-2", "c-2", "s-1", 1, "active", t0, due, nil, nil, nil, 2, t0,
				"c-2", "b@x.example", "Ben", "", "", "", "",
				1.0, "non_target", false,
				"s-1", "Recyclers", "active",
				"st-2", 2, "call", 3, "", "", "Discovery",
				nil, nil, nil, nil, nil))

	out, err := src.ListDue(context.Background(), t0.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].Template)
	assert.Equal(t, "Hi {{ firstName }}", out[0].Template.Subject)
	assert.Equal(t, domain.Tier1, out[0].Contact.ICPTier)
	assert.Nil(t, out[1].Template)
	assert.Equal(t, "Discovery", out[1].Step.Description)
	assert.Equal(t, "s-1", out[1].Step.SequenceID)
}

func TestContactActivitiesNewestFirstWithLimit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContactRepo(db)

	cols := []string{"id", "enrollment_id", "contact_id", "sequence_id", "step_index", "activity_type", "note", "message_id", "occurred_at"}
	mock.ExpectQuery("SELECT .+ FROM activities WHERE contact_id = \\$1 ORDER BY occurred_at DESC, id DESC LIMIT \\$2").
		WithArgs("c-1", 2).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a-2", "e-1", "c-1", "s-1", 0, "email_sent", "", "msg-1", t0.Add(time.Hour)).
			AddRow("a-1", "e-1", "c-1", "s-1", 0, "enrolled", "", "", t0))

	acts, err := repo.Activities(context.Background(), "c-1", 2)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, domain.ActivityEmailSent, acts[0].Type)
	assert.Equal(t, "msg-1", acts[0].MessageID)
	assert.Equal(t, domain.ActivityEnrolled, acts[1].Type)
}

func TestDashboardCountsScansOneRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDashboardRepo(db)

	since := t0.AddDate(0, 0, -30)
	mock.ExpectQuery("SELECT .+ FROM activities WHERE occurred_at >= \\$1").WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{
			"total", "in_sequence", "new", "engaged", "meeting_booked",
			"sent", "replied", "bounced", "calls", "active_sequences", "total_sequences",
		}).AddRow(10, 4, 3, 2, 1, 20, 5, 1, 7, 2, 3))

	c, err := repo.Counts(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 10, c.TotalContacts)
	assert.Equal(t, 4, c.ContactsInSequence)
	assert.Equal(t, 1, c.ContactsMeetingBooked)
	assert.Equal(t, 20, c.EmailsSent)
	assert.Equal(t, 5, c.EmailsReplied)
	assert.Equal(t, 7, c.Calls)
	assert.Equal(t, 3, c.TotalSequences)

	mock.ExpectQuery("SELECT .+ FROM activities").WillReturnError(sql.ErrConnDone)
	_, err = repo.Counts(context.Background(), since)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}
