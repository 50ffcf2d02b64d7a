package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("tigoplanes version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Backend   BackendConfig   `mapstructure:"backend"`
	DeepLink  DeepLinkConfig  `mapstructure:"deeplink"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Dedupe    DedupeConfig    `mapstructure:"dedupe"`
	Session   SessionConfig   `mapstructure:"session"`
	AppLinks  AppLinksConfig  `mapstructure:"applinks"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	Host         string   `mapstructure:"host"`
	Timeout      string   `mapstructure:"timeout"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	// LinkRate is the sustained number of link deliveries per second accepted
	// per remote address.
	LinkRate  float64 `mapstructure:"link_rate"`
	LinkBurst int     `mapstructure:"link_burst"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// BackendConfig points at the hosted backend (auth, rows, storage).
type BackendConfig struct {
	URL          string `mapstructure:"url"`
	AnonKey      string `mapstructure:"anon_key"`
	Timeout      string `mapstructure:"timeout"`
	ProfileTable string `mapstructure:"profile_table"`
	PlanTable    string `mapstructure:"plan_table"`
	HiringTable  string `mapstructure:"hiring_table"`
	ImageBucket  string `mapstructure:"image_bucket"`
}

// DeepLinkConfig describes which incoming URLs are authentication links.
type DeepLinkConfig struct {
	Scheme          string   `mapstructure:"scheme"`
	CallbackMarkers []string `mapstructure:"callback_markers"`
	VerifyEndpoints []string `mapstructure:"verify_endpoints"`
	// RedirectURL is embedded in signup and password-reset emails.
	RedirectURL string `mapstructure:"redirect_url"`
}

type ReconcileConfig struct {
	SuccessDelay string `mapstructure:"success_delay"`
	FailureDelay string `mapstructure:"failure_delay"`
	CallTimeout  string `mapstructure:"call_timeout"`
}

type DedupeConfig struct {
	Driver   string `mapstructure:"driver"` // memory | redis
	TTL      string `mapstructure:"ttl"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type SessionConfig struct {
	// File is where the active session is persisted. Empty keeps it in memory.
	File string `mapstructure:"file"`
}

type AppLinksConfig struct {
	AppleAppID          string   `mapstructure:"apple_app_id"`
	AndroidPackage      string   `mapstructure:"android_package"`
	AndroidFingerprints []string `mapstructure:"android_fingerprints"`
	Paths               []string `mapstructure:"paths"`
}

// InitFlags registers the flags shared by every command on fs (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file")
	fs.String("backend.url", "", "Backend base URL")
	fs.String("backend.anon-key", "", "Backend anonymous API key")
	fs.String("session.file", "", "Where to persist the active session")
	fs.String("logging.level", "", "Log level (debug|info|warn|error)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.link_rate", 2.0)
	v.SetDefault("server.link_burst", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("backend.profile_table", "usuarios")
	v.SetDefault("backend.plan_table", "planes_moviles")
	v.SetDefault("backend.hiring_table", "contrataciones")
	v.SetDefault("backend.image_bucket", "planes-imagenes")

	v.SetDefault("deeplink.scheme", "tigoplanes")
	v.SetDefault("deeplink.callback_markers", []string{"auth-callback", "auth/callback"})
	v.SetDefault("deeplink.verify_endpoints", []string{"/auth/v1/verify"})
	v.SetDefault("deeplink.redirect_url", "tigoplanes://auth-callback")

	v.SetDefault("reconcile.success_delay", "500ms")
	v.SetDefault("reconcile.failure_delay", "1500ms")
	v.SetDefault("reconcile.call_timeout", "15s")

	v.SetDefault("dedupe.driver", "memory")
	v.SetDefault("dedupe.ttl", "10m")
	v.SetDefault("dedupe.prefix", "tigoplanes:link")

	v.SetDefault("applinks.paths", []string{"/auth/callback", "/auth/callback/*"})
}

// Load reads configuration from .env, config files, environment and the
// flags in fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TIGOPLANES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/tigoplanes")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	//Loading additionals config files
	if _, err := os.Stat("/config/config.yaml"); err == nil {
		v.SetConfigFile("/config/config.yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge /config/config.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Flags use dashes, config keys use underscores.
	if key := v.GetString("backend.anon-key"); key != "" {
		cfg.Backend.AnonKey = key
	}
	for flagKey, dst := range map[string]*string{
		"backend.url":   &cfg.Backend.URL,
		"session.file":  &cfg.Session.File,
		"logging.level": &cfg.Logging.Level,
	} {
		if val := v.GetString(flagKey); val != "" {
			*dst = val
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings nothing can run without.
func (c *Config) Validate() error {
	if c.Backend.URL == "" || c.Backend.AnonKey == "" {
		return fmt.Errorf("backend.url and backend.anon_key are required, please adjust the config or set TIGOPLANES_BACKEND_URL and TIGOPLANES_BACKEND_ANON_KEY")
	}
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")

	for name, raw := range map[string]string{
		"server.timeout":          c.Server.Timeout,
		"backend.timeout":         c.Backend.Timeout,
		"reconcile.success_delay": c.Reconcile.SuccessDelay,
		"reconcile.failure_delay": c.Reconcile.FailureDelay,
		"reconcile.call_timeout":  c.Reconcile.CallTimeout,
		"dedupe.ttl":              c.Dedupe.TTL,
	} {
		if _, err := ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	switch c.Dedupe.Driver {
	case "", "memory":
	case "redis":
		if c.Dedupe.Addr == "" {
			return fmt.Errorf("dedupe.addr is required when dedupe.driver is redis")
		}
	default:
		return fmt.Errorf("unsupported dedupe driver: %s", c.Dedupe.Driver)
	}
	return nil
}

// ParseDuration parses a config duration; the empty string means zero.
func ParseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", raw)
	}
	return d, nil
}

// MustDuration is ParseDuration for values already checked by Validate.
func MustDuration(raw string) time.Duration {
	d, _ := ParseDuration(raw)
	return d
}
