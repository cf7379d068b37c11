package delivery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// SESAPI is the part of the SES v2 client the mailer needs.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends through AWS SES v2.
type SESMailer struct {
	client           SESAPI
	sender           Sender
	configurationSet string
}

// NewSESMailer wraps an existing client.
func NewSESMailer(client SESAPI, sender Sender, configurationSet string) *SESMailer {
	return &SESMailer{client: client, sender: sender, configurationSet: configurationSet}
}

// NewSESMailerFromKeys builds a client from static credentials, or from the
// default AWS chain when the keys are empty.
func NewSESMailerFromKeys(ctx context.Context, region, accessKey, secretKey string, sender Sender, configurationSet string) (*SESMailer, error) {
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewSESMailer(sesv2.NewFromConfig(cfg), sender, configurationSet), nil
}

func (m *SESMailer) Send(ctx context.Context, msg domain.ComposedEmail) (string, error) {
	if msg.Unsubscribed {
		return "", ErrUnsubscribed
	}
	if msg.ToEmail == "" {
		return "", fmt.Errorf("delivery: enrollment %s has no recipient", msg.EnrollmentID)
	}

	from := m.sender.FromEmail
	if m.sender.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.sender.FromName, m.sender.FromEmail)
	}
	to := msg.ToEmail
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.ToEmail)
	}

	body := &types.Body{}
	if msg.BodyHTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.BodyHTML), Charset: aws.String("UTF-8")}
	}
	if msg.BodyText != "" {
		body.Text = &types.Content{Data: aws.String(msg.BodyText), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("sequence_id"), Value: aws.String(msg.SequenceID)},
			{Name: aws.String("enrollment_id"), Value: aws.String(msg.EnrollmentID)},
		},
	}
	if m.sender.ReplyTo != "" {
		input.ReplyToAddresses = []string{m.sender.ReplyTo}
	}
	if m.configurationSet != "" {
		input.ConfigurationSetName = aws.String(m.configurationSet)
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		logger.Warn("ses send failed", "to_email", msg.ToEmail, "enrollment_id", msg.EnrollmentID, "err", err)
		return "", fmt.Errorf("ses send: %w", err)
	}
	id := aws.ToString(out.MessageId)
	logger.Info("ses sent", "to_email", msg.ToEmail, "enrollment_id", msg.EnrollmentID, "message_id", id)
	return id, nil
}
