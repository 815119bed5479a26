// internal/common/aws/ses.go
package aws

import (
	"context"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the subset of the SES client used for mail delivery.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type Mailer struct {
	client SESService
	from   string
}

func NewMailer(cfg awssdk.Config, from string) *Mailer {
	return NewMailerWithClient(ses.NewFromConfig(cfg), from)
}

func NewMailerWithClient(client SESService, from string) *Mailer {
	return &Mailer{client: client, from: from}
}

// Send delivers a plain-text email and returns the SES message id.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) (string, error) {
	if m.from == "" {
		return "", errors.New("sender address is not configured")
	}
	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(body)},
			},
		},
		Source: awssdk.String(m.from),
	})
	if err != nil {
		return "", fmt.Errorf("ses send to %s: %w", to, err)
	}
	return awssdk.ToString(out.MessageId), nil
}
