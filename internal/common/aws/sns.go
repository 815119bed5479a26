// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSService is the subset of the SNS client used for SMS delivery.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SMSSender struct {
	client SNSService
}

func NewSMSSender(cfg awssdk.Config) *SMSSender {
	return NewSMSSenderWithClient(sns.NewFromConfig(cfg))
}

func NewSMSSenderWithClient(client SNSService) *SMSSender {
	return &SMSSender{client: client}
}

// Send publishes a transactional SMS and returns the SNS message id.
func (s *SMSSender) Send(ctx context.Context, phone, message string) (string, error) {
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: awssdk.String(phone),
		Message:     awssdk.String(message),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String("Transactional"),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("sns publish to %s: %w", phone, err)
	}
	return awssdk.ToString(out.MessageId), nil
}
