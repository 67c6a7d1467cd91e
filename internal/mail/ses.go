package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"github.com/Monir-Ruet/authentication/internal/config"
)

// SESMailer delivers through AWS SES.
type SESMailer struct {
	client *sesv2.Client
	from   string
	logger *zap.Logger
}

// NewSESMailer builds the SES client. Static credentials are used when
// configured; otherwise the default chain (IAM role and friends) applies.
func NewSESMailer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*SESMailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Mail.Region),
	}
	if cfg.Mail.AccessKeyID != "" && cfg.Mail.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Mail.AccessKeyID, cfg.Mail.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SESMailer{
		client: sesv2.NewFromConfig(awsCfg),
		from:   cfg.Mail.From,
		logger: logger,
	}, nil
}

func (m *SESMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		m.logger.Error("send email failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
