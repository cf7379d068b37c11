// Package events fans activity records out to an event bus after the
// enrollment write that produced them has committed.
package events

import (
	"context"
	"strings"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "outreach"

// ActivityEvent is the payload published for every appended activity.
type ActivityEvent struct {
	Activity         domain.Activity         `json:"activity"`
	EnrollmentStatus domain.EnrollmentStatus `json:"enrollment_status,omitempty"`
	CurrentStep      int                     `json:"current_step"`
	NextDueAt        *time.Time              `json:"next_due_at,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives raw payloads from the bus.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// ActivityTopic is "<prefix>.activity.<type>".
func ActivityTopic(prefix string, t domain.ActivityType) string {
	return topicPrefix(prefix) + ".activity." + string(t)
}

// AllActivities is the wildcard subject matching every activity topic.
func AllActivities(prefix string) string {
	return topicPrefix(prefix) + ".activity.>"
}

func topicPrefix(prefix string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix
}
