// Package config loads the service configuration from YAML with
// environment overrides. The configuration is loaded once in main and
// passed explicitly to every component; nothing reads ambient process
// state after startup.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// PublicBaseURI is the externally reachable base of this
		// service and of the SPA the flow redirects back to. Required
		// when the GitHub provider is enabled.
		PublicBaseURI string `yaml:"public_base_uri"`
	} `yaml:"server"`

	Log struct {
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	Token struct {
		// Secret signs every state and post-auth token. Required; at
		// least 32 bytes. Also settable via SOCIALGATE_TOKEN_SECRET.
		Secret   string `yaml:"secret"`
		StateTTL string `yaml:"state_ttl"` // default 15m
		AuthTTL  string `yaml:"auth_ttl"`  // default 15m
	} `yaml:"token"`

	Providers struct {
		GitHub struct {
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			Scopes       []string `yaml:"scopes"` // default: user:email, read:user
		} `yaml:"github"`
	} `yaml:"providers"`

	Storage struct {
		Driver string `yaml:"driver"` // memory | postgres
		DSN    string `yaml:"dsn"`
		// Migrate applies the embedded schema on boot.
		Migrate bool `yaml:"migrate"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		Domain     string `yaml:"domain"`
		SameSite   string `yaml:"samesite"`
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"` // default 24h
	} `yaml:"session"`

	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Limit   int    `yaml:"limit"`
		Window  string `yaml:"window"`
	} `yaml:"rate"`

	SMTP struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		From string `yaml:"from"`
		User string `yaml:"user"`
		Pass string `yaml:"pass"`
	} `yaml:"smtp"`
}

// Load reads the YAML file (an empty path means defaults only), applies
// environment overrides and sane defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// env overrides
	overrideString(&c.App.Env, "APP_ENV")
	overrideString(&c.Server.Addr, "SOCIALGATE_ADDR")
	overrideString(&c.Server.PublicBaseURI, "SOCIALGATE_PUBLIC_BASE_URI")
	overrideString(&c.Log.Level, "LOG_LEVEL")
	overrideString(&c.Token.Secret, "SOCIALGATE_TOKEN_SECRET")
	overrideString(&c.Providers.GitHub.ClientID, "SOCIALGATE_GITHUB_CLIENT_ID")
	overrideString(&c.Providers.GitHub.ClientSecret, "SOCIALGATE_GITHUB_CLIENT_SECRET")
	overrideString(&c.Storage.DSN, "SOCIALGATE_DSN")
	overrideString(&c.Cache.Redis.Addr, "SOCIALGATE_REDIS_ADDR")

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Env == "" {
		c.Log.Env = c.App.Env
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "sid"
	}
	if c.Rate.Limit <= 0 {
		c.Rate.Limit = 30
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}

	c.Server.PublicBaseURI = strings.TrimRight(c.Server.PublicBaseURI, "/")

	return &c, nil
}

// Validate checks the invariants that should stop startup.
func (c *Config) Validate() error {
	if c.GitHubEnabled() {
		if c.Server.PublicBaseURI == "" {
			return fmt.Errorf("server.public_base_uri is required when the github provider is enabled")
		}
		if c.Token.Secret == "" {
			return fmt.Errorf("token.secret is required (or SOCIALGATE_TOKEN_SECRET)")
		}
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for the postgres driver")
	}
	if c.Cache.Kind == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for the redis cache")
	}
	return nil
}

// GitHubEnabled reports whether provider credentials are present. Their
// joint absence disables the flow entirely; the decision is taken once
// at wiring time.
func (c *Config) GitHubEnabled() bool {
	return c.Providers.GitHub.ClientID != "" && c.Providers.GitHub.ClientSecret != ""
}

// StateTTL returns the CSRF state token lifetime.
func (c *Config) StateTTL() time.Duration {
	return parseDuration(c.Token.StateTTL, 15*time.Minute)
}

// AuthTTL returns the post-auth token lifetime.
func (c *Config) AuthTTL() time.Duration {
	return parseDuration(c.Token.AuthTTL, 15*time.Minute)
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return parseDuration(c.Session.TTL, 24*time.Hour)
}

// CacheDefaultTTL returns the default TTL for the memory cache.
func (c *Config) CacheDefaultTTL() time.Duration {
	return parseDuration(c.Cache.Memory.DefaultTTL, 2*time.Minute)
}

// RateWindow returns the rate-limit window.
func (c *Config) RateWindow() time.Duration {
	return parseDuration(c.Rate.Window, time.Minute)
}

// CookieSameSite maps the configured samesite string onto the stdlib
// constant. Unrecognized values fall back to Lax.
func (c *Config) CookieSameSite() http.SameSite {
	switch strings.ToLower(strings.TrimSpace(c.Session.SameSite)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func overrideString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func parseDuration(s string, def time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	// bare number: seconds
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
