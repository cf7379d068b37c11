// Package delivery hands composed sequence emails to an email provider.
// The engine never calls it; the HTTP layer sends first and then records
// the returned message id on the enrollment.
package delivery

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// ErrUnsubscribed is returned for messages addressed to unsubscribed contacts.
var ErrUnsubscribed = errors.New("delivery: contact is unsubscribed")

// Sender identifies the From and Reply-To of outgoing mail.
type Sender struct {
	FromEmail string
	FromName  string
	ReplyTo   string
}

// Mailer sends one composed email and returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, msg domain.ComposedEmail) (string, error)
}

// DryRun logs messages instead of sending them.
type DryRun struct{}

func (DryRun) Send(ctx context.Context, msg domain.ComposedEmail) (string, error) {
	if msg.Unsubscribed {
		return "", ErrUnsubscribed
	}
	id := "dryrun-" + uuid.NewString()
	log.Printf("[delivery] dry run to=%s subject=%q id=%s", logger.RedactEmail(msg.ToEmail), msg.Subject, id)
	return id, nil
}
