package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Darkosxl/immobiliare-agent/internal/config"
	"github.com/Darkosxl/immobiliare-agent/internal/logging"
)

// flagBinding ties a flag to a config key.
type flagBinding struct {
	flag string
	key  string
}

// addCalendarFlags registers the flags every calendar-facing command shares.
func addCalendarFlags(flags *pflag.FlagSet) []flagBinding {
	flags.String("config", "", "Config file (yaml, json or toml). Can also use CONFIG_FILE env var.")
	flags.String("calendar-id", "", "Calendar to book into. Can also use CALENDAR_ID env var.")
	flags.String("credentials", "", "Service account JSON, or a path to it. Can also use GOOGLE_APPLICATION_CREDENTIALS env var.")
	flags.String("locale", "it", "Locale preset: it, tr or en. Can also use AGENT_LOCALE env var.")
	flags.String("locale-file", "", "YAML file overriding the locale preset. Can also use AGENT_LOCALE_FILE env var.")
	flags.Duration("calendar-timeout", 10*time.Second, "Timeout of one booking operation. Can also use CALENDAR_TIMEOUT env var.")
	flags.Int("max-retries", 3, "Retries for idempotent calendar calls. Can also use CALENDAR_MAX_RETRIES env var.")
	flags.Bool("self-cleaning", false, "Delete every booking right after creating it (testing against a real calendar). Can also use CALENDAR_SELF_CLEANING env var.")
	flags.Bool("dry-run", false, "Keep bookings in memory instead of a real calendar. Can also use CALENDAR_DRY_RUN env var.")
	flags.String("attendees", "", "Comma-separated e-mails invited to every booking. Can also use CALENDAR_ATTENDEES env var.")
	flags.Bool("debug", false, "Enable debug logging")

	return []flagBinding{
		{"config", config.KeyConfigFile},
		{"calendar-id", config.KeyCalendarID},
		{"credentials", config.KeyCredentials},
		{"locale", config.KeyLocale},
		{"locale-file", config.KeyLocaleFile},
		{"calendar-timeout", config.KeyCalendarTimeout},
		{"max-retries", config.KeyMaxRetries},
		{"self-cleaning", config.KeySelfCleaning},
		{"dry-run", config.KeyDryRun},
		{"attendees", config.KeyAttendees},
		{"debug", config.KeyDebug},
	}
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings []flagBinding) error {
	for _, b := range bindings {
		f := flags.Lookup(b.flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", b.flag)
		}
		if err := v.BindPFlag(b.key, f); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", b.flag, err)
		}
	}
	return nil
}

// loadConfig binds flags and loads the configuration, then installs the
// process logger. Logs go to stderr; stdout may carry the MCP stdio stream.
func loadConfig(flags *pflag.FlagSet, bindings []flagBinding) (*config.Config, error) {
	v := viper.New()
	if err := bindFlags(v, flags, bindings); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Debug))
	return cfg, nil
}
