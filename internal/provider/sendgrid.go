package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	sendGridDefaultBaseURL = "https://api.sendgrid.com/v3"
	sendGridDefaultTimeout = 30 * time.Second
)

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridRequest struct {
	Personalizations []struct {
		To []sendGridAddress `json:"to"`
	} `json:"personalizations"`
	From       sendGridAddress   `json:"from"`
	Subject    string            `json:"subject"`
	Content    []sendGridContent `json:"content"`
	CustomArgs map[string]string `json:"custom_args,omitempty"`
}

type sendGridErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SendGridProvider sends mail through the SendGrid v3 API.
type SendGridProvider struct {
	client      *resty.Client
	baseURL     string
	apiKey      string
	fromAddress string
	fromName    string
}

func NewSendGridProvider(cfg Config) (*SendGridProvider, error) {
	if cfg.SendGrid == nil {
		return nil, fmt.Errorf("provider sendgrid: config section is required")
	}

	timeout := cfg.SendGrid.Timeout
	if timeout <= 0 {
		timeout = sendGridDefaultTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewSendGridProviderWithClient(cfg, client)
}

func NewSendGridProviderWithClient(cfg Config, client *resty.Client) (*SendGridProvider, error) {
	if cfg.SendGrid == nil || strings.TrimSpace(cfg.SendGrid.APIKey) == "" {
		return nil, fmt.Errorf("provider sendgrid: api key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("provider sendgrid: resty client is required")
	}

	baseURL := strings.TrimSpace(cfg.SendGrid.BaseURL)
	if baseURL == "" {
		baseURL = sendGridDefaultBaseURL
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(sendGridDefaultTimeout)
	}
	client.SetRetryCount(0)

	return &SendGridProvider{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      cfg.SendGrid.APIKey,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}, nil
}

func (p *SendGridProvider) Name() string { return KindSendGrid.String() }

func (p *SendGridProvider) Send(ctx context.Context, msg Message) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider sendgrid is not initialized")
	}

	reqBody := sendGridRequest{
		From:    sendGridAddress{Email: p.fromAddress, Name: p.fromName},
		Subject: msg.Subject,
		Content: []sendGridContent{
			{Type: "text/html", Value: msg.HTML},
			{Type: "text/plain", Value: msg.Text},
		},
		CustomArgs: msg.Metadata,
	}
	reqBody.Personalizations = append(reqBody.Personalizations, struct {
		To []sendGridAddress `json:"to"`
	}{To: []sendGridAddress{{Email: msg.To}}})

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+p.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(p.baseURL + "/mail/send")
	if err != nil {
		return nil, p.wrapTransportError(err)
	}
	if response == nil {
		return nil, &ProviderError{
			Provider:  p.Name(),
			Code:      CodeProviderError,
			Message:   "provider returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode == http.StatusOK || statusCode == http.StatusAccepted {
		return &Response{
			MessageID:  strings.TrimSpace(response.Header().Get("X-Message-Id")),
			StatusCode: statusCode,
			Body:       responseBody,
		}, nil
	}

	return nil, &ProviderError{
		Provider:   p.Name(),
		Code:       sendGridErrorCode(statusCode),
		StatusCode: statusCode,
		Message:    sendGridErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func (p *SendGridProvider) wrapTransportError(err error) error {
	code := CodeNetworkError
	if isTimeoutTransport(err) {
		code = CodeProviderTimeout
	}

	return &ProviderError{
		Provider:  p.Name(),
		Code:      code,
		Message:   "provider request failed",
		Transient: !errors.Is(err, context.Canceled),
		Cause:     err,
	}
}

func sendGridErrorCode(statusCode int) string {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return CodeProviderRateLimited
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return CodeAuthFailure
	default:
		return fmt.Sprintf("SENDGRID_%d", statusCode)
	}
}

func sendGridErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("sendgrid returned status %d", statusCode)
	if body == "" {
		return base
	}

	var parsed sendGridErrorResponse
	if err := json.Unmarshal([]byte(body), &parsed); err == nil && len(parsed.Errors) > 0 {
		if msg := strings.TrimSpace(parsed.Errors[0].Message); msg != "" {
			return fmt.Sprintf("%s: %s", base, msg)
		}
	}

	return fmt.Sprintf("%s: %s", base, body)
}
