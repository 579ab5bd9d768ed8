package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type config struct {
	Port int `env:"PORT, default=3000"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
	LogLevel     string `env:"LOG_LEVEL, default=info"`

	// The account being relayed and where it lives
	SiteURL string `env:"SITE_URL, default=https://truthsocial.com"`
	Handle  string `env:"ACCOUNT_HANDLE, default=realDonaldTrump"`

	// browser or api
	FetchMode            string        `env:"FETCH_MODE, default=browser"`
	UserAgent            string        `env:"USER_AGENT"`
	ChromePath           string        `env:"CHROME_PATH"`
	SettleTimeout        time.Duration `env:"SETTLE_TIMEOUT, default=5s"`
	DismissInterstitials bool          `env:"DISMISS_INTERSTITIALS, default=true"`
	OAuthClientID        string        `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret    string        `env:"OAUTH_CLIENT_SECRET"`

	WebhookURL            string        `env:"WEBHOOK_URL"`
	WebhookTimeout        time.Duration `env:"WEBHOOK_TIMEOUT, default=10s"`
	WebhookRequireSuccess bool          `env:"WEBHOOK_REQUIRE_SUCCESS, default=true"`
	WebhookRetries        uint64        `env:"WEBHOOK_RETRIES, default=0"`
	WebhookFormat         string        `env:"WEBHOOK_FORMAT, default=plain"`
	CensorProfanity       bool          `env:"CENSOR_PROFANITY, default=false"`

	RunTimeout   time.Duration `env:"RUN_TIMEOUT, default=90s"`
	QueueSize    int           `env:"QUEUE_SIZE, default=1"`
	PollInterval time.Duration `env:"POLL_INTERVAL, default=0"`

	// Run history goes to sqlite when set, memory otherwise
	Database    string `env:"DATABASE"`
	HistorySize int    `env:"HISTORY_SIZE, default=100"`

	// Runs are dispatched through temporal when set
	TemporalHostPort  string `env:"TEMPORAL_HOST_PORT"`
	TemporalNamespace string `env:"TEMPORAL_NAMESPACE, default=default"`
}

const (
	fetchModeBrowser = "browser"
	fetchModeAPI     = "api"
)

func loadConfig(ctx context.Context, lookuper envconfig.Lookuper) (config, error) {
	var cfg config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return config{}, fmt.Errorf("error parsing config: %s", err)
	}

	return cfg, nil
}

// Checks what envconfig can't express with tags alone. The fetch mode is
// checked separately, once commands have applied their overrides.
func (c config) validate() error {
	if c.QueueSize < 0 {
		return fmt.Errorf("QUEUE_SIZE must not be negative")
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("HISTORY_SIZE must be at least 1")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must not be negative")
	}

	return nil
}

func (c config) validateFetch() error {
	switch c.FetchMode {
	case fetchModeBrowser:
	case fetchModeAPI:
		if c.OAuthClientID == "" || c.OAuthClientSecret == "" {
			return fmt.Errorf("OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required in api mode")
		}
	default:
		return fmt.Errorf("unknown FETCH_MODE %q", c.FetchMode)
	}

	return nil
}

// The webhook is only needed by commands that deliver.
func (c config) validateDelivery() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("WEBHOOK_URL is required")
	}

	return nil
}
