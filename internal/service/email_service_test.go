package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/glamyouup/mailflow/internal/provider"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name  string
	err   error
	resp  *provider.Response
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Send(_ context.Context, _ provider.Message) (*provider.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &provider.Response{MessageID: f.name + "-msg", StatusCode: 202}, nil
}

func providerFailure(name, code string, transient bool) error {
	return &provider.ProviderError{
		Provider:  name,
		Code:      code,
		Message:   "send failed",
		Transient: transient,
	}
}

func testMessage() provider.Message {
	return provider.Message{
		To:      "merchant@example.com",
		Subject: "Welcome",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	}
}

func TestEmailServiceSendViaPrimary(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "sendgrid", resp: &provider.Response{MessageID: "sg-1", StatusCode: 202}}
	fallback := &fakeProvider{name: "ses"}

	svc, err := NewEmailService(map[string]provider.Provider{
		"sendgrid": primary,
		"ses":      fallback,
	}, "sendgrid", "ses", zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}

	result, err := svc.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.Provider != "sendgrid" {
		t.Fatalf("result.Provider = %q, want sendgrid", result.Provider)
	}
	if result.ProviderMessageID != "sg-1" {
		t.Fatalf("result.ProviderMessageID = %q, want sg-1", result.ProviderMessageID)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback calls = %d, want 0", fallback.calls)
	}
	if svc.ActiveProvider() != "sendgrid" {
		t.Fatalf("ActiveProvider() = %q, want sendgrid", svc.ActiveProvider())
	}
}

func TestEmailServiceStickyFailover(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{
		name: "sendgrid",
		err:  providerFailure("sendgrid", provider.CodeProviderTimeout, true),
	}
	fallback := &fakeProvider{name: "ses", resp: &provider.Response{MessageID: "ses-123", StatusCode: 200}}

	svc, err := NewEmailService(map[string]provider.Provider{
		"sendgrid": primary,
		"ses":      fallback,
	}, "sendgrid", "ses", zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}

	result, err := svc.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.Provider != "ses" {
		t.Fatalf("result.Provider = %q, want ses", result.Provider)
	}
	if svc.ActiveProvider() != "ses" {
		t.Fatalf("ActiveProvider() = %q, want ses after failover", svc.ActiveProvider())
	}

	// The switch is sticky: the next send starts from ses and never touches
	// the failed primary again.
	if _, err := svc.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}
	if primary.calls != 1 {
		t.Fatalf("primary calls = %d, want 1", primary.calls)
	}
	if fallback.calls != 2 {
		t.Fatalf("fallback calls = %d, want 2", fallback.calls)
	}
}

func TestEmailServiceBothProvidersFail(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{
		name: "sendgrid",
		err:  providerFailure("sendgrid", provider.CodeProviderTimeout, true),
	}
	fallback := &fakeProvider{
		name: "ses",
		err:  providerFailure("ses", provider.CodeAuthFailure, false),
	}

	svc, err := NewEmailService(map[string]provider.Provider{
		"sendgrid": primary,
		"ses":      fallback,
	}, "sendgrid", "ses", zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}

	_, err = svc.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("Send() should fail when both providers fail")
	}
	if !strings.Contains(err.Error(), "ses") || !strings.Contains(err.Error(), "sendgrid") {
		t.Fatalf("error should name both providers, got %q", err.Error())
	}

	// The wrapped error is the last provider's failure.
	var perr *provider.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error should wrap ProviderError, got %v", err)
	}
	if perr.Provider != "ses" || perr.Code != provider.CodeAuthFailure {
		t.Fatalf("wrapped error = %+v, want ses auth failure", perr)
	}
}

func TestEmailServiceNoFailBackToPrimary(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "sendgrid", resp: &provider.Response{MessageID: "sg-1", StatusCode: 202}}
	fallback := &fakeProvider{
		name: "ses",
		err:  providerFailure("ses", provider.CodeProviderError, true),
	}

	svc, err := NewEmailService(map[string]provider.Provider{
		"sendgrid": primary,
		"ses":      fallback,
	}, "sendgrid", "ses", zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}

	// A previous failover made the fallback active. When the fallback then
	// fails there is nowhere left to go: the send fails with a single
	// attempt and the healthy primary is never tried.
	svc.switchActive("sendgrid", "ses")

	_, err = svc.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("Send() should fail when the active fallback fails")
	}
	if !strings.Contains(err.Error(), "delivery failed via ses") {
		t.Fatalf("error = %q, want it to name the fallback", err.Error())
	}
	if primary.calls != 0 {
		t.Fatalf("primary calls = %d, want 0 (no fail-back)", primary.calls)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", fallback.calls)
	}
	if svc.ActiveProvider() != "ses" {
		t.Fatalf("ActiveProvider() = %q, want ses (unchanged)", svc.ActiveProvider())
	}
}

func TestEmailServiceNoFallbackConfigured(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{
		name: "smtp",
		err:  providerFailure("smtp", provider.CodeNetworkError, true),
	}

	svc, err := NewEmailService(map[string]provider.Provider{
		"smtp": primary,
	}, "smtp", "", zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}

	if _, err := svc.Send(context.Background(), testMessage()); err == nil {
		t.Fatal("Send() should fail without a fallback")
	}
	if svc.ActiveProvider() != "smtp" {
		t.Fatalf("ActiveProvider() = %q, want smtp (no switch)", svc.ActiveProvider())
	}
}

func TestEmailServiceFallbackSameAsPrimary(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{
		name: "sendgrid",
		err:  providerFailure("sendgrid", provider.CodeProviderError, true),
	}

	svc, err := NewEmailService(map[string]provider.Provider{
		"sendgrid": primary,
	}, "sendgrid", "sendgrid", zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}

	if _, err := svc.Send(context.Background(), testMessage()); err == nil {
		t.Fatal("Send() should fail")
	}
	if primary.calls != 1 {
		t.Fatalf("provider calls = %d, want 1 (no retry against the same provider)", primary.calls)
	}
}

func TestNewEmailServiceValidation(t *testing.T) {
	t.Parallel()

	providers := map[string]provider.Provider{"ses": &fakeProvider{name: "ses"}}

	if _, err := NewEmailService(nil, "ses", "", zap.NewNop(), nil); err == nil {
		t.Fatal("expected error for empty provider registry")
	}
	if _, err := NewEmailService(providers, "", "", zap.NewNop(), nil); err == nil {
		t.Fatal("expected error for missing primary")
	}
	if _, err := NewEmailService(providers, "sendgrid", "", zap.NewNop(), nil); err == nil {
		t.Fatal("expected error for unregistered primary")
	}
	if _, err := NewEmailService(providers, "ses", "smtp", zap.NewNop(), nil); err == nil {
		t.Fatal("expected error for unregistered fallback")
	}
}
