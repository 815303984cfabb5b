package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind selects a provider implementation.
type Kind string

const (
	KindSMTP     Kind = "smtp"
	KindSendGrid Kind = "sendgrid"
	KindSES      Kind = "ses"
)

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	switch k {
	case KindSMTP, KindSendGrid, KindSES:
		return true
	}
	return false
}

func ParseKindFromString(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown email provider %q", s)
	}
	return k, nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

type SendGridConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Config is a tagged union: Kind selects which section must be present.
type Config struct {
	Kind        Kind
	FromAddress string
	FromName    string

	SMTP     *SMTPConfig
	SendGrid *SendGridConfig
	SES      *SESConfig
}

func (c Config) Validate() error {
	if !c.Kind.IsValid() {
		return fmt.Errorf("unknown email provider %q", c.Kind)
	}
	if strings.TrimSpace(c.FromAddress) == "" {
		return fmt.Errorf("provider %s: from address is required", c.Kind)
	}

	switch c.Kind {
	case KindSMTP:
		if c.SMTP == nil || strings.TrimSpace(c.SMTP.Host) == "" {
			return fmt.Errorf("provider smtp: host is required")
		}
	case KindSendGrid:
		if c.SendGrid == nil || strings.TrimSpace(c.SendGrid.APIKey) == "" {
			return fmt.Errorf("provider sendgrid: api key is required")
		}
	case KindSES:
		if c.SES == nil || strings.TrimSpace(c.SES.Region) == "" {
			return fmt.Errorf("provider ses: region is required")
		}
	}

	return nil
}

// Build constructs the provider selected by cfg.Kind.
func Build(ctx context.Context, cfg Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindSMTP:
		return NewSMTPProvider(cfg)
	case KindSendGrid:
		return NewSendGridProvider(cfg)
	case KindSES:
		return NewSESProvider(ctx, cfg)
	}

	return nil, fmt.Errorf("unknown email provider %q", cfg.Kind)
}

// BuildRegistry constructs all configured providers keyed by name.
func BuildRegistry(ctx context.Context, configs []Config) (map[string]Provider, error) {
	registry := make(map[string]Provider, len(configs))
	for _, cfg := range configs {
		p, err := Build(ctx, cfg)
		if err != nil {
			return nil, err
		}
		registry[p.Name()] = p
	}
	return registry, nil
}
