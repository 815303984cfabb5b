package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESProvider sends mail through the AWS SES v2 API.
type SESProvider struct {
	client      sesAPI
	fromAddress string
	fromName    string
}

func NewSESProvider(ctx context.Context, cfg Config) (*SESProvider, error) {
	if cfg.SES == nil || strings.TrimSpace(cfg.SES.Region) == "" {
		return nil, fmt.Errorf("provider ses: region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SES.Region),
	}
	if cfg.SES.AccessKeyID != "" && cfg.SES.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SES.AccessKeyID, cfg.SES.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("provider ses: failed to load aws config: %w", err)
	}

	return NewSESProviderWithClient(cfg, sesv2.NewFromConfig(awsCfg))
}

func NewSESProviderWithClient(cfg Config, client sesAPI) (*SESProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("provider ses: client is required")
	}

	return &SESProvider{
		client:      client,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}, nil
}

func (p *SESProvider) Name() string { return KindSES.String() }

func (p *SESProvider) Send(ctx context.Context, msg Message) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider ses is not initialized")
	}

	source := p.fromAddress
	if p.fromName != "" {
		source = fmt.Sprintf("%s <%s>", p.fromName, p.fromAddress)
	}

	body := &sestypes.Body{
		Html: &sestypes.Content{Data: aws.String(msg.HTML)},
	}
	if msg.Text != "" {
		body.Text = &sestypes.Content{Data: aws.String(msg.Text)}
	}

	out, err := p.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(source),
		Destination: &sestypes.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject)},
				Body:    body,
			},
		},
	})
	if err != nil {
		return nil, p.wrapSendError(err)
	}

	return &Response{
		MessageID: aws.ToString(out.MessageId),
	}, nil
}

func (p *SESProvider) wrapSendError(err error) error {
	code := CodeNetworkError
	transient := !errors.Is(err, context.Canceled)
	message := "ses send failed"

	if isTimeoutTransport(err) {
		code = CodeProviderTimeout
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.ErrorMessage()
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException", "SendingPausedException":
			code = CodeProviderRateLimited
			transient = true
		case "MessageRejected", "BadRequestException":
			code = CodeInvalidRecipient
			transient = false
		case "AccountSuspendedException", "AccessDeniedException", "NotAuthorizedException":
			code = CodeAuthFailure
			transient = false
		default:
			code = fmt.Sprintf("SES_%s", apiErr.ErrorCode())
			transient = apiErr.ErrorFault() == smithy.FaultServer
		}
	}

	return &ProviderError{
		Provider:  p.Name(),
		Code:      code,
		Message:   message,
		Transient: transient,
		Cause:     err,
	}
}
