package service

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	edomain "github.com/corvusHold/courier/internal/email/domain"
)

// Ensure SES implements domain.Sender
var _ edomain.Sender = (*SES)(nil)

// SESClient is the subset of the AWS SES API used for delivery.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SES struct {
	client SESClient
}

// NewSES loads the default AWS config chain with a bounded standard retryer.
func NewSES(ctx context.Context, maxBackoffDelay time.Duration, maxAttempts int) (*SES, error) {
	withBackoff := retry.AddWithMaxBackoffDelay(retry.NewStandard(), maxBackoffDelay)
	retryer := awsconfig.WithRetryer(func() aws.Retryer {
		return retry.AddWithMaxAttempts(withBackoff, maxAttempts)
	})
	cfg, err := awsconfig.LoadDefaultConfig(ctx, retryer)
	if err != nil {
		return nil, fmt.Errorf("load AWS SDK config: %w", err)
	}
	return &SES{client: ses.NewFromConfig(cfg)}, nil
}

// NewSESWithClient wraps an existing client.
func NewSESWithClient(client SESClient) *SES { return &SES{client: client} }

func (s *SES) Send(ctx context.Context, msg edomain.Message) error {
	source := (&mail.Address{Name: msg.SenderName, Address: msg.SenderEmail}).String()
	input := &ses.SendEmailInput{
		Source:      aws.String(source),
		Destination: &types.Destination{ToAddresses: msg.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
			},
		},
	}
	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}
	return nil
}
