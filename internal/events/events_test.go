package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	require.True(t, srv.ReadyForConnections(5*time.Second), "embedded NATS not ready")
	return srv.ClientURL()
}

func TestActivityTopic(t *testing.T) {
	assert.Equal(t, "outreach.activity.email_sent", ActivityTopic("", domain.ActivityEmailSent))
	assert.Equal(t, "crm.activity.email_replied", ActivityTopic("crm.", domain.ActivityEmailReplied))
	assert.Equal(t, "crm.activity.>", AllActivities("crm"))
}

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = NoopPublisher{}
	assert.NoError(t, pub.Publish(context.Background(), "x", ActivityEvent{}))
	assert.NoError(t, pub.Close())
}

func TestNATSRoundTrip(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewNATSSubscriber(url)
	require.NoError(t, err)
	defer sub.Close()
	ch, cancel, err := sub.Subscribe(AllActivities("outreach"))
	require.NoError(t, err)
	defer cancel()

	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	defer pub.Close()

	ev := ActivityEvent{
		Activity: domain.Activity{
			ID:           "a-1",
			EnrollmentID: "e-1",
			Type:         domain.ActivityCallAnswered,
			StepIndex:    1,
		},
		EnrollmentStatus: domain.EnrollmentActive,
		CurrentStep:      2,
	}
	require.NoError(t, pub.Publish(context.Background(), ActivityTopic("outreach", ev.Activity.Type), ev))
	require.NoError(t, pub.Flush())

	select {
	case data := <-ch:
		var got ActivityEvent
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "e-1", got.Activity.EnrollmentID)
		assert.Equal(t, domain.ActivityCallAnswered, got.Activity.Type)
		assert.Equal(t, 2, got.CurrentStep)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for activity event")
	}
}

func TestNATSPublisherHonoursCancelledContext(t *testing.T) {
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.Publish(ctx, "outreach.activity.enrolled", ActivityEvent{}), context.Canceled)
}
