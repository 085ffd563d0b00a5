package session

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dropDatabas3/socialgate/internal/cache/memory"
	"github.com/dropDatabas3/socialgate/internal/http/dto"
	"github.com/dropDatabas3/socialgate/internal/security/token"
)

func TestCreateStoresHashedKey(t *testing.T) {
	c := memory.New(time.Minute)
	svc := New(Deps{Cache: c})

	sess, err := svc.Create(context.Background(), "user-1", "a@example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected non-empty session id")
	}

	// The raw session ID must not be a cache key.
	if _, ok := c.Get("sid:" + sess.ID); ok {
		t.Fatal("session stored under raw id")
	}

	raw, ok := c.Get("sid:" + token.SHA256Base64URL(sess.ID))
	if !ok {
		t.Fatal("session payload not found under hashed key")
	}

	var payload dto.SessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.UserID != "user-1" {
		t.Fatalf("user id = %q, want user-1", payload.UserID)
	}
	if payload.Email != "a@example.com" {
		t.Fatalf("email = %q", payload.Email)
	}
}

func TestCreateCookieDefaults(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := New(Deps{
		Cache: memory.New(time.Minute),
		Now:   func() time.Time { return now },
	})

	sess, err := svc.Create(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ck := sess.Cookie()
	if ck.Name != "sid" {
		t.Fatalf("cookie name = %q, want sid", ck.Name)
	}
	if !ck.HttpOnly {
		t.Fatal("cookie must be HttpOnly")
	}
	if ck.SameSite != http.SameSiteLaxMode {
		t.Fatalf("samesite = %v, want Lax", ck.SameSite)
	}
	if want := now.Add(24 * time.Hour); !ck.Expires.Equal(want) {
		t.Fatalf("expires = %v, want %v", ck.Expires, want)
	}
	if ck.Value != sess.ID {
		t.Fatal("cookie value must carry the session id")
	}
}

func TestCreateHonorsCookieConfig(t *testing.T) {
	svc := New(Deps{
		Cache: memory.New(time.Minute),
		Cookie: CookieConfig{
			Name:     "session",
			Domain:   "example.com",
			SameSite: http.SameSiteStrictMode,
			Secure:   true,
			TTL:      time.Hour,
		},
	})

	sess, err := svc.Create(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ck := sess.Cookie()
	if ck.Name != "session" || ck.Domain != "example.com" || !ck.Secure || ck.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie config not honored: %+v", ck)
	}
}
