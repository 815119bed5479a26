package aws

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSES struct{ mock.Mock }

func (m *MockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*ses.SendEmailOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSNS struct{ mock.Mock }

func (m *MockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sns.PublishOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestMailer_Send(t *testing.T) {
	client := new(MockSES)
	client.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return in.Destination.ToAddresses[0] == "transplant@kem.example.in" &&
			awssdk.ToString(in.Source) == "alerts@organmatch.example" &&
			awssdk.ToString(in.Message.Subject.Data) == "Kidney match"
	})).Return(&ses.SendEmailOutput{MessageId: awssdk.String("ses-1")}, nil)

	id, err := NewMailerWithClient(client, "alerts@organmatch.example").
		Send(context.Background(), "transplant@kem.example.in", "Kidney match", "body")

	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	client.AssertExpectations(t)
}

func TestMailer_Errors(t *testing.T) {
	client := new(MockSES)
	_, err := NewMailerWithClient(client, "").Send(context.Background(), "a@b.example", "s", "b")
	assert.Error(t, err)
	client.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)

	client.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))
	_, err = NewMailerWithClient(client, "alerts@organmatch.example").Send(context.Background(), "a@b.example", "s", "b")
	assert.ErrorContains(t, err, "throttled")
}

func TestSMSSender_Send(t *testing.T) {
	client := new(MockSNS)
	client.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return awssdk.ToString(in.PhoneNumber) == "+912224107000" &&
			awssdk.ToString(in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue) == "Transactional"
	})).Return(&sns.PublishOutput{MessageId: awssdk.String("sns-1")}, nil)

	id, err := NewSMSSenderWithClient(client).Send(context.Background(), "+912224107000", "urgent")
	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)
}
