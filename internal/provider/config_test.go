package provider

import (
	"context"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid smtp",
			cfg: Config{
				Kind:        KindSMTP,
				FromAddress: "noreply@glamyouup.com",
				SMTP:        &SMTPConfig{Host: "localhost", Port: 1025},
			},
		},
		{
			name: "valid sendgrid",
			cfg: Config{
				Kind:        KindSendGrid,
				FromAddress: "noreply@glamyouup.com",
				SendGrid:    &SendGridConfig{APIKey: "key"},
			},
		},
		{
			name: "valid ses",
			cfg: Config{
				Kind:        KindSES,
				FromAddress: "noreply@glamyouup.com",
				SES:         &SESConfig{Region: "eu-west-1"},
			},
		},
		{
			name:    "unknown kind",
			cfg:     Config{Kind: "mailgun", FromAddress: "noreply@glamyouup.com"},
			wantErr: true,
		},
		{
			name:    "missing from address",
			cfg:     Config{Kind: KindSMTP, SMTP: &SMTPConfig{Host: "localhost"}},
			wantErr: true,
		},
		{
			name:    "smtp without section",
			cfg:     Config{Kind: KindSMTP, FromAddress: "noreply@glamyouup.com"},
			wantErr: true,
		},
		{
			name:    "sendgrid without api key",
			cfg:     Config{Kind: KindSendGrid, FromAddress: "noreply@glamyouup.com", SendGrid: &SendGridConfig{}},
			wantErr: true,
		},
		{
			name:    "ses without region",
			cfg:     Config{Kind: KindSES, FromAddress: "noreply@glamyouup.com", SES: &SESConfig{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestBuildUnknownKindFailsAtStartup(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), Config{
		Kind:        "carrier-pigeon",
		FromAddress: "noreply@glamyouup.com",
	})
	if err == nil {
		t.Fatal("expected error for unknown provider kind")
	}
}

func TestBuildRegistry(t *testing.T) {
	t.Parallel()

	registry, err := BuildRegistry(context.Background(), []Config{
		{
			Kind:        KindSMTP,
			FromAddress: "noreply@glamyouup.com",
			SMTP:        &SMTPConfig{Host: "localhost", Port: 1025},
		},
		{
			Kind:        KindSendGrid,
			FromAddress: "noreply@glamyouup.com",
			SendGrid:    &SendGridConfig{APIKey: "key"},
		},
	})
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}

	if _, ok := registry["smtp"]; !ok {
		t.Fatal("registry missing smtp provider")
	}
	if _, ok := registry["sendgrid"]; !ok {
		t.Fatal("registry missing sendgrid provider")
	}
}

func TestParseKindFromString(t *testing.T) {
	t.Parallel()

	kind, err := ParseKindFromString(" SES ")
	if err != nil {
		t.Fatalf("ParseKindFromString() error = %v", err)
	}
	if kind != KindSES {
		t.Fatalf("kind = %s, want ses", kind)
	}

	if _, err := ParseKindFromString("postmark"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
