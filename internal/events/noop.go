package events

import "context"

// NoopPublisher drops every event. Used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, topic string, event any) error { return nil }

func (NoopPublisher) Close() error { return nil }
