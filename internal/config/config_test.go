package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("addr default: got %q", c.Server.Addr)
	}
	if c.Cache.Kind != "memory" || c.Storage.Driver != "memory" {
		t.Fatalf("backend defaults: cache=%q storage=%q", c.Cache.Kind, c.Storage.Driver)
	}
	if c.StateTTL() != 15*time.Minute || c.AuthTTL() != 15*time.Minute {
		t.Fatalf("ttl defaults: state=%v auth=%v", c.StateTTL(), c.AuthTTL())
	}
	if c.SessionTTL() != 24*time.Hour {
		t.Fatalf("session ttl default: %v", c.SessionTTL())
	}
	if c.GitHubEnabled() {
		t.Fatal("provider must be disabled without credentials")
	}
}

func TestLoad_File(t *testing.T) {
	p := writeConfig(t, `
server:
  addr: ":9090"
  public_base_uri: "https://app.example.com/"
token:
  secret: "0123456789abcdef0123456789abcdef"
  state_ttl: "5m"
providers:
  github:
    client_id: "cid"
    client_secret: "sec"
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if c.Server.Addr != ":9090" {
		t.Fatalf("addr: got %q", c.Server.Addr)
	}
	if c.Server.PublicBaseURI != "https://app.example.com" {
		t.Fatalf("base uri should be trimmed: got %q", c.Server.PublicBaseURI)
	}
	if c.StateTTL() != 5*time.Minute {
		t.Fatalf("state ttl: got %v", c.StateTTL())
	}
	if !c.GitHubEnabled() {
		t.Fatal("provider should be enabled")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate err: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SOCIALGATE_GITHUB_CLIENT_ID", "env-cid")
	t.Setenv("SOCIALGATE_GITHUB_CLIENT_SECRET", "env-sec")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if c.Providers.GitHub.ClientID != "env-cid" {
		t.Fatalf("env override: got %q", c.Providers.GitHub.ClientID)
	}
	if !c.GitHubEnabled() {
		t.Fatal("provider should be enabled from env")
	}
}

func TestValidate_RequiresBaseURIAndSecret(t *testing.T) {
	c, _ := Load("")
	c.Providers.GitHub.ClientID = "cid"
	c.Providers.GitHub.ClientSecret = "sec"
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error without public_base_uri")
	}

	c.Server.PublicBaseURI = "https://app.example.com"
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error without token secret")
	}

	c.Token.Secret = "0123456789abcdef0123456789abcdef"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate err: %v", err)
	}
}

func TestCookieSameSite(t *testing.T) {
	c, _ := Load("")
	if c.CookieSameSite() != http.SameSiteLaxMode {
		t.Fatal("default samesite should be Lax")
	}
	c.Session.SameSite = "Strict"
	if c.CookieSameSite() != http.SameSiteStrictMode {
		t.Fatal("strict not mapped")
	}
	c.Session.SameSite = "none"
	if c.CookieSameSite() != http.SameSiteNoneMode {
		t.Fatal("none not mapped")
	}
}

func TestParseDuration(t *testing.T) {
	if d := parseDuration("90s", time.Minute); d != 90*time.Second {
		t.Fatalf("90s: got %v", d)
	}
	if d := parseDuration("45", time.Minute); d != 45*time.Second {
		t.Fatalf("bare seconds: got %v", d)
	}
	if d := parseDuration("garbage", time.Minute); d != time.Minute {
		t.Fatalf("fallback: got %v", d)
	}
}
