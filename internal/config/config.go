// Package config loads the service configuration from flags, environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Darkosxl/immobiliare-agent/internal/locale"
)

// Keys. They double as environment variable names.
const (
	KeyConfigFile      = "CONFIG_FILE"
	KeyCalendarID      = "CALENDAR_ID"
	KeyCredentials     = "GOOGLE_APPLICATION_CREDENTIALS"
	KeyLocale          = "AGENT_LOCALE"
	KeyLocaleFile      = "AGENT_LOCALE_FILE"
	KeyCalendarTimeout = "CALENDAR_TIMEOUT"
	KeyMaxRetries      = "CALENDAR_MAX_RETRIES"
	KeySelfCleaning    = "CALENDAR_SELF_CLEANING"
	KeyDryRun          = "CALENDAR_DRY_RUN"
	KeyAttendees       = "CALENDAR_ATTENDEES"
	KeyTransport       = "MCP_TRANSPORT"
	KeyHTTPAddr        = "MCP_HTTP_ADDR"
	KeyMCPSecret       = "MCP_SECRET"
	KeyWebhookAddr     = "WEBHOOK_ADDR"
	KeyWebhookSecret   = "WEBHOOK_SECRET"
	KeyRateLimit       = "WEBHOOK_RATE_LIMIT"
	KeyRateBurst       = "WEBHOOK_RATE_BURST"
	KeyCORSOrigins     = "CORS_ORIGINS"
	KeyMaxPlayoutWait  = "CALL_MAX_PLAYOUT_WAIT"
	KeyCallIdleTimeout = "CALL_IDLE_TIMEOUT"
	KeyMetricsEnabled  = "METRICS_ENABLED"
	KeyMetricsAddr     = "METRICS_ADDR"
	KeyDebug           = "DEBUG"
)

// MCP transports.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
	TransportNone           = "none"
)

// DryRunCalendarID names the in-memory calendar when none is configured.
const DryRunCalendarID = "dry-run"

// Config holds all configuration values.
type Config struct {
	CalendarID      string        `mapstructure:"CALENDAR_ID"`
	Credentials     string        `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	Locale          string        `mapstructure:"AGENT_LOCALE"`
	LocaleFile      string        `mapstructure:"AGENT_LOCALE_FILE"`
	CalendarTimeout time.Duration `mapstructure:"CALENDAR_TIMEOUT"`
	MaxRetries      int           `mapstructure:"CALENDAR_MAX_RETRIES"`
	SelfCleaning    bool          `mapstructure:"CALENDAR_SELF_CLEANING"`
	DryRun          bool          `mapstructure:"CALENDAR_DRY_RUN"`
	RawAttendees    string        `mapstructure:"CALENDAR_ATTENDEES"`

	Transport string `mapstructure:"MCP_TRANSPORT"`
	HTTPAddr  string `mapstructure:"MCP_HTTP_ADDR"`
	MCPSecret string `mapstructure:"MCP_SECRET"`

	// WebhookAddr empty disables the webhook listener.
	WebhookAddr    string  `mapstructure:"WEBHOOK_ADDR"`
	WebhookSecret  string  `mapstructure:"WEBHOOK_SECRET"`
	RateLimit      float64 `mapstructure:"WEBHOOK_RATE_LIMIT"`
	RateBurst      int     `mapstructure:"WEBHOOK_RATE_BURST"`
	RawCORSOrigins string  `mapstructure:"CORS_ORIGINS"`

	MaxPlayoutWait  time.Duration `mapstructure:"CALL_MAX_PLAYOUT_WAIT"`
	CallIdleTimeout time.Duration `mapstructure:"CALL_IDLE_TIMEOUT"`

	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
	MetricsAddr    string `mapstructure:"METRICS_ADDR"`

	Debug bool `mapstructure:"DEBUG"`
}

// ConfigError reports an unusable configuration value. It is fatal at startup.
type ConfigError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// SetDefaults registers a default for every key so that environment variables
// are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyConfigFile, "")
	v.SetDefault(KeyCalendarID, "")
	v.SetDefault(KeyCredentials, "")
	v.SetDefault(KeyLocale, locale.DefaultName)
	v.SetDefault(KeyLocaleFile, "")
	v.SetDefault(KeyCalendarTimeout, 10*time.Second)
	v.SetDefault(KeyMaxRetries, 3)
	v.SetDefault(KeySelfCleaning, false)
	v.SetDefault(KeyDryRun, false)
	v.SetDefault(KeyAttendees, "")
	v.SetDefault(KeyTransport, TransportStdio)
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyMCPSecret, "")
	v.SetDefault(KeyWebhookAddr, "")
	v.SetDefault(KeyWebhookSecret, "")
	v.SetDefault(KeyRateLimit, 10.0)
	v.SetDefault(KeyRateBurst, 20)
	v.SetDefault(KeyCORSOrigins, "")
	v.SetDefault(KeyMaxPlayoutWait, 30*time.Second)
	v.SetDefault(KeyCallIdleTimeout, 2*time.Hour)
	v.SetDefault(KeyMetricsEnabled, true)
	v.SetDefault(KeyMetricsAddr, ":9090")
	v.SetDefault(KeyDebug, false)
}

// Load reads the configuration held by v. Flags should be bound to v before
// calling Load.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, &ConfigError{Key: KeyConfigFile, Reason: "cannot read " + file, Err: err}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Key: "*", Reason: "cannot decode", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints and fills derived defaults.
func (c *Config) Validate() error {
	c.CalendarID = strings.TrimSpace(c.CalendarID)
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))

	switch c.Transport {
	case TransportStdio, TransportSSE, TransportStreamableHTTP, TransportNone:
	default:
		return &ConfigError{Key: KeyTransport, Reason: fmt.Sprintf("unsupported transport %q", c.Transport)}
	}
	if c.Transport == TransportNone && c.WebhookAddr == "" {
		return &ConfigError{Key: KeyWebhookAddr, Reason: "required when the MCP transport is disabled"}
	}
	if c.CalendarTimeout <= 0 {
		return &ConfigError{Key: KeyCalendarTimeout, Reason: "must be positive"}
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Key: KeyMaxRetries, Reason: "must not be negative"}
	}
	if c.MaxPlayoutWait <= 0 {
		return &ConfigError{Key: KeyMaxPlayoutWait, Reason: "must be positive"}
	}
	if c.CallIdleTimeout <= 0 {
		return &ConfigError{Key: KeyCallIdleTimeout, Reason: "must be positive"}
	}
	if c.RateLimit < 0 {
		return &ConfigError{Key: KeyRateLimit, Reason: "must not be negative"}
	}

	if c.DryRun {
		if c.CalendarID == "" {
			c.CalendarID = DryRunCalendarID
		}
	} else {
		if c.CalendarID == "" {
			return &ConfigError{Key: KeyCalendarID, Reason: "is required"}
		}
		if strings.TrimSpace(c.Credentials) == "" {
			return &ConfigError{Key: KeyCredentials, Reason: "is required unless " + KeyDryRun + " is set"}
		}
	}

	if _, err := c.Policy(); err != nil {
		return err
	}
	return nil
}

// Policy resolves the locale policy: the file when configured, the named
// preset otherwise.
func (c *Config) Policy() (locale.Policy, error) {
	if c.LocaleFile != "" {
		p, err := locale.LoadFile(c.LocaleFile)
		if err != nil {
			return locale.Policy{}, &ConfigError{Key: KeyLocaleFile, Reason: "cannot load policy", Err: err}
		}
		return p, nil
	}
	p, err := locale.Lookup(c.Locale)
	if err != nil {
		return locale.Policy{}, &ConfigError{Key: KeyLocale, Reason: "unknown locale", Err: err}
	}
	return p, nil
}

// Attendees returns the configured attendee e-mails.
func (c *Config) Attendees() []string {
	return parseCommaSeparatedList(c.RawAttendees)
}

// CORSOrigins returns the origins allowed to call the webhook from a browser.
func (c *Config) CORSOrigins() []string {
	return parseCommaSeparatedList(c.RawCORSOrigins)
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
