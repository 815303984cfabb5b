package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/glamyouup/mailflow/internal/provider"
	"github.com/glamyouup/mailflow/internal/ratelimit"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	PrimaryProvider  string `env:"PRIMARY_PROVIDER,default=smtp"`
	FallbackProvider string `env:"FALLBACK_PROVIDER"`

	EmailFromAddress string `env:"EMAIL_FROM_ADDRESS,required=true"`
	EmailFromName    string `env:"EMAIL_FROM_NAME,default=GlamYouUp"`

	SendGridAPIKey  string `env:"SENDGRID_API_KEY"`
	SendGridBaseURL string `env:"SENDGRID_BASE_URL,default=https://api.sendgrid.com/v3"`

	SESRegion          string `env:"SES_REGION,default=us-east-1"`
	SESAccessKeyID     string `env:"SES_ACCESS_KEY_ID"`
	SESSecretAccessKey string `env:"SES_SECRET_ACCESS_KEY"`

	SMTPHost     string `env:"SMTP_HOST,default=localhost"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS,default=true"`

	RateLimit  string `env:"RATE_LIMIT,default=10/min"`
	BurstLimit int    `env:"BURST_LIMIT,default=20"`
	DailyLimit int    `env:"DAILY_LIMIT,default=1000"`

	RetryMaxAttempts     int `env:"RETRY_MAX_ATTEMPTS,default=3"`
	RetryScanIntervalSec int `env:"RETRY_SCAN_INTERVAL_SEC,default=30"`

	WorkerConcurrency int `env:"WORKER_CONCURRENCY,default=8"`
	ConsumerPrefetch  int `env:"CONSUMER_PREFETCH,default=8"`

	TemplateCacheTTLSec int `env:"TEMPLATE_CACHE_TTL_SEC,default=3600"`

	OpsPort  int    `env:"OPS_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if _, _, err := ratelimit.ParseRate(c.RateLimit); err != nil {
		return fmt.Errorf("invalid RATE_LIMIT: %w", err)
	}

	primary, err := provider.ParseKindFromString(c.PrimaryProvider)
	if err != nil {
		return fmt.Errorf("invalid PRIMARY_PROVIDER: %w", err)
	}

	var fallback provider.Kind
	if strings.TrimSpace(c.FallbackProvider) != "" {
		fallback, err = provider.ParseKindFromString(c.FallbackProvider)
		if err != nil {
			return fmt.Errorf("invalid FALLBACK_PROVIDER: %w", err)
		}
	}

	for _, kind := range []provider.Kind{primary, fallback} {
		switch kind {
		case provider.KindSendGrid:
			if strings.TrimSpace(c.SendGridAPIKey) == "" {
				return fmt.Errorf("SENDGRID_API_KEY is required when sendgrid is configured")
			}
		case provider.KindSES:
			if strings.TrimSpace(c.SESAccessKeyID) == "" || strings.TrimSpace(c.SESSecretAccessKey) == "" {
				return fmt.Errorf("SES_ACCESS_KEY_ID and SES_SECRET_ACCESS_KEY are required when ses is configured")
			}
		}
	}

	return nil
}

// Limits returns the rate limiter caps.
func (c *Config) Limits() ratelimit.Limits {
	return ratelimit.Limits{
		BurstLimit: c.BurstLimit,
		Rate:       c.RateLimit,
		DailyLimit: c.DailyLimit,
	}
}

// ProviderConfigs builds the provider configurations for every provider kind
// named by PRIMARY_PROVIDER or FALLBACK_PROVIDER.
func (c *Config) ProviderConfigs() ([]provider.Config, error) {
	kinds := map[provider.Kind]struct{}{}

	primary, err := provider.ParseKindFromString(c.PrimaryProvider)
	if err != nil {
		return nil, err
	}
	kinds[primary] = struct{}{}

	if strings.TrimSpace(c.FallbackProvider) != "" {
		fallback, err := provider.ParseKindFromString(c.FallbackProvider)
		if err != nil {
			return nil, err
		}
		kinds[fallback] = struct{}{}
	}

	configs := make([]provider.Config, 0, len(kinds))
	for kind := range kinds {
		cfg := provider.Config{
			Kind:        kind,
			FromAddress: c.EmailFromAddress,
			FromName:    c.EmailFromName,
		}

		switch kind {
		case provider.KindSMTP:
			cfg.SMTP = &provider.SMTPConfig{
				Host:     c.SMTPHost,
				Port:     c.SMTPPort,
				Username: c.SMTPUsername,
				Password: c.SMTPPassword,
				UseTLS:   c.SMTPUseTLS,
			}
		case provider.KindSendGrid:
			cfg.SendGrid = &provider.SendGridConfig{
				APIKey:  c.SendGridAPIKey,
				BaseURL: c.SendGridBaseURL,
			}
		case provider.KindSES:
			cfg.SES = &provider.SESConfig{
				Region:          c.SESRegion,
				AccessKeyID:     c.SESAccessKeyID,
				SecretAccessKey: c.SESSecretAccessKey,
			}
		}

		configs = append(configs, cfg)
	}

	return configs, nil
}
