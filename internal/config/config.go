// Package config resolves CLI settings from a YAML file, DDGS_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment variables: audit.dsn is DDGS_AUDIT_DSN.
const EnvPrefix = "DDGS"

// Audit backends.
const (
	AuditSQLite   = "sqlite"
	AuditPostgres = "postgres"
	AuditJSON     = "json"
	AuditCSV      = "csv"
)

var (
	ErrAuditBackend = errors.New("unknown audit backend")
	ErrAuditDSN     = errors.New("audit backend needs a dsn")
)

// Audit selects where request records are written. An empty Backend
// disables auditing.
type Audit struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

// Config holds every setting the CLI understands. Zero values defer to the
// client's own defaults.
type Config struct {
	Proxy       string        `mapstructure:"proxy"`
	ProxyFile   string        `mapstructure:"proxy_file"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Profile     string        `mapstructure:"profile"`
	Insecure    bool          `mapstructure:"insecure"`
	RPS         float64       `mapstructure:"rps"`
	Jitter      float64       `mapstructure:"jitter"`
	Workers     int           `mapstructure:"workers"`
	LogLevel    string        `mapstructure:"log_level"`
	MetricsPort int           `mapstructure:"metrics_port"`
	Audit       Audit         `mapstructure:"audit"`
}

// binding ties a flag to its configuration key.
type binding struct {
	flag, key string
}

var bindings = []binding{
	{"proxy", "proxy"},
	{"proxy-file", "proxy_file"},
	{"timeout", "timeout"},
	{"profile", "profile"},
	{"insecure", "insecure"},
	{"rps", "rps"},
	{"jitter", "jitter"},
	{"workers", "workers"},
	{"log-level", "log_level"},
	{"metrics-port", "metrics_port"},
	{"audit-backend", "audit.backend"},
	{"audit-dsn", "audit.dsn"},
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("proxy", "", `proxy URL (http, https, socks5); "tb" for Tor Browser`)
	fs.String("proxy-file", "", "file of proxies to rotate, one per line")
	fs.Duration("timeout", 10*time.Second, "per-request timeout")
	fs.String("profile", "", "browser fingerprint profile (random when empty)")
	fs.Bool("insecure", false, "skip TLS certificate verification")
	fs.Float64("rps", 0, "requests per second limit (0 = unlimited)")
	fs.Float64("jitter", 0, "random jitter fraction applied to pacing delays")
	fs.Int("workers", 0, "concurrent page fetches (0 = automatic)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Int("metrics-port", 0, "serve Prometheus metrics on this port (0 = off)")
	fs.String("audit-backend", "", "record requests to: sqlite, postgres, json, csv")
	fs.String("audit-dsn", "", "audit store path or connection string")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("proxy", "")
	v.SetDefault("proxy_file", "")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("profile", "")
	v.SetDefault("insecure", false)
	v.SetDefault("rps", 0.0)
	v.SetDefault("jitter", 0.0)
	v.SetDefault("workers", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_port", 0)
	v.SetDefault("audit.backend", "")
	v.SetDefault("audit.dsn", "")
}

// Load resolves the configuration. file may be empty; fs may be nil. Only
// flags the user actually set override the file and the environment.
func Load(file string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("context: %w", err)
		}
	}

	if fs != nil {
		for _, b := range bindings {
			f := fs.Lookup(b.flag)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(b.key, f); err != nil {
				return Config{}, fmt.Errorf("context: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("context: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can act on.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Audit.Backend {
	case "":
	case AuditSQLite, AuditPostgres, AuditJSON, AuditCSV:
		if c.Audit.DSN == "" {
			return fmt.Errorf("%s: %w", c.Audit.Backend, ErrAuditDSN)
		}
	default:
		return fmt.Errorf("%q: %w", c.Audit.Backend, ErrAuditBackend)
	}
	if c.Workers < 0 || c.RPS < 0 || c.Jitter < 0 || c.MetricsPort < 0 {
		return errors.New("workers, rps, jitter and metrics_port must not be negative")
	}
	return nil
}

// Level parses LogLevel. Empty means info.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
