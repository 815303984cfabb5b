package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

func sendGridTestConfig(baseURL string) Config {
	return Config{
		Kind:        KindSendGrid,
		FromAddress: "noreply@glamyouup.com",
		FromName:    "GlamYouUp",
		SendGrid: &SendGridConfig{
			APIKey:  "sg-test-key",
			BaseURL: baseURL,
		},
	}
}

func TestSendGridProviderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody sendGridRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/mail/send" {
			t.Errorf("path = %s, want /mail/send", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sg-test-key" {
			t.Errorf("authorization = %q", got)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("X-Message-Id", "sg-msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	p, err := NewSendGridProvider(sendGridTestConfig(server.URL))
	if err != nil {
		t.Fatalf("NewSendGridProvider() error = %v", err)
	}

	resp, err := p.Send(context.Background(), Message{
		To:      "merchant@example.com",
		Subject: "Welcome!",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.MessageID != "sg-msg-1" {
		t.Fatalf("MessageID = %q, want sg-msg-1", resp.MessageID)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	if len(gotBody.Personalizations) != 1 || len(gotBody.Personalizations[0].To) != 1 {
		t.Fatalf("personalizations = %+v", gotBody.Personalizations)
	}
	if gotBody.Personalizations[0].To[0].Email != "merchant@example.com" {
		t.Fatalf("to = %q", gotBody.Personalizations[0].To[0].Email)
	}
	if gotBody.From.Email != "noreply@glamyouup.com" {
		t.Fatalf("from = %q", gotBody.From.Email)
	}
}

func TestSendGridProviderSendErrorClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantCode      string
		wantTransient bool
	}{
		{name: "too many requests", statusCode: http.StatusTooManyRequests, wantCode: CodeProviderRateLimited, wantTransient: true},
		{name: "unauthorized", statusCode: http.StatusUnauthorized, wantCode: CodeAuthFailure, wantTransient: false},
		{name: "bad request", statusCode: http.StatusBadRequest, wantCode: "SENDGRID_400", wantTransient: false},
		{name: "internal server error", statusCode: http.StatusInternalServerError, wantCode: "SENDGRID_500", wantTransient: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte(`{"errors":[{"message":"rejected by sendgrid"}]}`))
			}))
			defer server.Close()

			p, err := NewSendGridProvider(sendGridTestConfig(server.URL))
			if err != nil {
				t.Fatalf("NewSendGridProvider() error = %v", err)
			}

			_, err = p.Send(context.Background(), Message{
				To:      "merchant@example.com",
				Subject: "Welcome!",
				HTML:    "<p>hi</p>",
			})
			if err == nil {
				t.Fatal("expected error")
			}

			var providerErr *ProviderError
			if !errors.As(err, &providerErr) {
				t.Fatalf("expected ProviderError, got %T", err)
			}
			if providerErr.Code != tc.wantCode {
				t.Fatalf("Code = %q, want %q", providerErr.Code, tc.wantCode)
			}
			if got := IsTransient(err); got != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", got, tc.wantTransient)
			}
			if ErrorCode(err) != tc.wantCode {
				t.Fatalf("ErrorCode() = %q, want %q", ErrorCode(err), tc.wantCode)
			}
		})
	}
}

func TestSendGridProviderSendTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := resty.New()
	client.SetTimeout(30 * time.Millisecond)

	p, err := NewSendGridProviderWithClient(sendGridTestConfig(server.URL), client)
	if err != nil {
		t.Fatalf("NewSendGridProviderWithClient() error = %v", err)
	}

	_, err = p.Send(context.Background(), Message{
		To:      "merchant@example.com",
		Subject: "Welcome!",
		HTML:    "<p>hi</p>",
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}

	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false, want true (err=%v)", err)
	}
	if !IsTimeout(err) {
		t.Fatalf("IsTimeout() = false, want true (err=%v)", err)
	}
}
