package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/dmitrijs2005/blogkeeper/internal/server/config"
)

type sendEmailAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newSESClientFromConfig = func(cfg aws.Config, optFns ...func(*sesv2.Options)) sendEmailAPI {
		return sesv2.NewFromConfig(cfg, optFns...)
	}
)

// SESSender sends through Amazon SES v2. When sandboxTo is set every message
// goes there instead of to the real recipient.
type SESSender struct {
	client    sendEmailAPI
	from      string
	sandboxTo string
}

func NewSESSender(ctx context.Context, cfg *config.Config) (*SESSender, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.SESRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.SESAccessKeyID,
			cfg.SESSecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newSESClientFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.SESEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SESEndpoint)
		}
	})

	return &SESSender{client: client, from: cfg.MailFrom, sandboxTo: cfg.MailSandboxTo}, nil
}

func (s *SESSender) SendOTP(ctx context.Context, to, code string) error {
	if s.sandboxTo != "" {
		to = s.sandboxTo
	}
	html, text := otpBody(code)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(otpSubject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html)},
					Text: &types.Content{Data: aws.String(text)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
