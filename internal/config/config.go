// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package config loads accountd configuration from defaults, an optional
// YAML file, a .env file, ACCOUNTD_ environment variables and flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/xdg"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "ACCOUNTD_"

// Config is the complete service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Cookie   CookieConfig   `koanf:"cookie"`
	App      AppConfig      `koanf:"app"`
	Mail     MailConfig     `koanf:"mail"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig selects and locates the user store.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	URL    string `koanf:"url"`
	// Name is the MongoDB database name.
	Name string `koanf:"name"`
}

// AuthConfig holds session and password settings.
type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	// SessionTTL defaults to account.DefaultSessionTTL (24h).
	SessionTTL time.Duration `koanf:"session_ttl"`
	ResetTTL   time.Duration `koanf:"reset_ttl"`
	Argon2     Argon2Config  `koanf:"argon2"`
}

// Argon2Config is the password hashing work factor.
type Argon2Config struct {
	Time    uint32 `koanf:"time"`
	Memory  uint32 `koanf:"memory"`
	Threads uint8  `koanf:"threads"`
}

// Params converts the work factor for the hasher.
func (c Argon2Config) Params() account.Argon2Params {
	return account.Argon2Params{Time: c.Time, Memory: c.Memory, Threads: c.Threads}
}

// CookieConfig shapes the session cookie.
type CookieConfig struct {
	Name     string `koanf:"name"`
	Secure   bool   `koanf:"secure"`
	SameSite string `koanf:"same_site"`
	Domain   string `koanf:"domain"`
}

// AppConfig describes the frontend that links point to.
type AppConfig struct {
	FrontendURL string `koanf:"frontend_url"`
	Team        string `koanf:"team"`
}

// MailConfig selects the mail transport.
type MailConfig struct {
	Driver   string         `koanf:"driver"`
	DevDir   string         `koanf:"dev_dir"`
	Sender   string         `koanf:"sender"`
	Support  string         `koanf:"support"`
	Postmark PostmarkConfig `koanf:"postmark"`
}

// PostmarkConfig holds Postmark API tokens.
type PostmarkConfig struct {
	ServerToken  string `koanf:"server_token"`
	AccountToken string `koanf:"account_token"`
}

// Drivers and formats accepted by Validate.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	MailPostmark   = "postmark"
	MailDev        = "dev"
)

func defaults() map[string]any {
	return map[string]any{
		"http.addr":                   ":5000",
		"http.read_timeout":           10 * time.Second,
		"http.write_timeout":          10 * time.Second,
		"http.shutdown_timeout":       5 * time.Second,
		"metrics.addr":                "127.0.0.1:9100",
		"log.format":                  "json",
		"log.level":                   "info",
		"database.driver":             DriverPostgres,
		"database.url":                "",
		"database.name":               "accountd",
		"auth.jwt_secret":             "",
		"auth.session_ttl":            account.DefaultSessionTTL,
		"auth.reset_ttl":              account.DefaultResetTTL,
		"auth.argon2.time":            account.DefaultArgon2Params.Time,
		"auth.argon2.memory":          account.DefaultArgon2Params.Memory,
		"auth.argon2.threads":         account.DefaultArgon2Params.Threads,
		"cookie.name":                 "token",
		"cookie.secure":               true,
		"cookie.same_site":            "none",
		"cookie.domain":               "",
		"app.frontend_url":            "http://localhost:3000",
		"app.team":                    "Accountd Team",
		"mail.driver":                 MailDev,
		"mail.dev_dir":                xdg.MailDir(),
		"mail.sender":                 "",
		"mail.support":                "",
		"mail.postmark.server_token":  "",
		"mail.postmark.account_token": "",
	}
}

// flagKeys maps the flags RegisterFlags defines to config keys.
var flagKeys = map[string]string{
	"http-addr":       "http.addr",
	"metrics-addr":    "metrics.addr",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"database-driver": "database.driver",
	"database-url":    "database.url",
	"frontend-url":    "app.frontend_url",
	"mail-driver":     "mail.driver",
}

// RegisterFlags defines the command-line overrides on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := defaults()
	fs.String("http-addr", d["http.addr"].(string), "API listen address")
	fs.String("metrics-addr", d["metrics.addr"].(string), "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d["log.format"].(string), "log format (json or text)")
	fs.String("log-level", d["log.level"].(string), "log level (debug, info, warn, error)")
	fs.String("database-driver", d["database.driver"].(string), "user store (postgres or mongo)")
	fs.String("database-url", "", "database connection URL")
	fs.String("frontend-url", d["app.frontend_url"].(string), "base URL of the frontend used in reset links")
	fs.String("mail-driver", d["mail.driver"].(string), "mail transport (postmark or dev)")
}

// Options locate the optional configuration sources.
type Options struct {
	// File is a YAML config file. Empty skips it.
	File string
	// DotEnv is a .env file. Missing files are ignored.
	DotEnv string
	// Flags holds flags registered with RegisterFlags. Only changed flags apply.
	Flags *pflag.FlagSet
}

// Load builds a Config from every source in opts. It does not validate.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}
	envKeys := envKeyIndex(k.Keys())

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", opts.File).Wrap(err)
		}
	}

	if opts.DotEnv != "" {
		vars, err := godotenv.Read(opts.DotEnv)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, oops.Code("CONFIG_DOTENV_INVALID").With("path", opts.DotEnv).Wrap(err)
		default:
			for name, val := range vars {
				if !strings.HasPrefix(name, EnvPrefix) {
					continue
				}
				key, ok := envKeys[strings.TrimPrefix(name, EnvPrefix)]
				if !ok {
					continue
				}
				if err := k.Set(key, val); err != nil {
					return nil, oops.Code("CONFIG_DOTENV_INVALID").With("key", key).Wrap(err)
				}
			}
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(name, val string) (string, any) {
			key, ok := envKeys[strings.TrimPrefix(name, EnvPrefix)]
			if !ok {
				return "", nil
			}
			return key, val
		},
	}), nil)
	if err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return &cfg, nil
}

// envKeyIndex maps AUTH_JWT_SECRET style names to config keys.
func envKeyIndex(keys []string) map[string]string {
	index := make(map[string]string, len(keys))
	for _, key := range keys {
		index[strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}
	return index
}

// Validate checks required settings and enumerations.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return oops.Code("CONFIG_INVALID").With("key", "auth.jwt_secret").Errorf("jwt secret is required")
	}
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "http.addr").Errorf("http address is required")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").With("key", "log.format").
			Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch c.Database.Driver {
	case DriverPostgres:
	case DriverMongo:
		if c.Database.Name == "" {
			return oops.Code("CONFIG_INVALID").With("key", "database.name").Errorf("mongo database name is required")
		}
	default:
		return oops.Code("CONFIG_INVALID").With("key", "database.driver").
			Errorf("database driver must be %q or %q, got %q", DriverPostgres, DriverMongo, c.Database.Driver)
	}
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database.url").Errorf("database url is required")
	}
	switch c.Mail.Driver {
	case MailDev:
	case MailPostmark:
		if c.Mail.Postmark.ServerToken == "" || c.Mail.Sender == "" {
			return oops.Code("CONFIG_INVALID").With("key", "mail.postmark").
				Errorf("postmark requires a server token and a sender address")
		}
	default:
		return oops.Code("CONFIG_INVALID").With("key", "mail.driver").
			Errorf("mail driver must be %q or %q, got %q", MailPostmark, MailDev, c.Mail.Driver)
	}
	if c.Auth.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "auth.session_ttl").Errorf("session ttl must be positive")
	}
	switch strings.ToLower(c.Cookie.SameSite) {
	case "", "lax", "strict", "none":
	default:
		return oops.Code("CONFIG_INVALID").With("key", "cookie.same_site").
			Errorf("same_site must be lax, strict or none, got %q", c.Cookie.SameSite)
	}
	return nil
}
