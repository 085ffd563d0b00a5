// Package session issues opaque session identifiers backed by the
// cache layer. The session ID itself never hits the backend; only its
// hash is used as the storage key.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dropDatabas3/socialgate/internal/cache"
	"github.com/dropDatabas3/socialgate/internal/http/dto"
	"github.com/dropDatabas3/socialgate/internal/security/token"
)

var ErrSessionStore = errors.New("session store failure")

const keyPrefix = "sid:"

// Session is a freshly created session plus the cookie that carries it.
type Session struct {
	ID      string
	Expires time.Time

	cookie *http.Cookie
}

// Cookie returns the Set-Cookie value for this session.
func (s *Session) Cookie() *http.Cookie { return s.cookie }

// Creator creates sessions for authenticated users.
type Creator interface {
	Create(ctx context.Context, userID, email string) (*Session, error)
}

// CookieConfig controls the attributes of the session cookie.
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite http.SameSite
	Secure   bool
	TTL      time.Duration
}

type Deps struct {
	Cache  cache.Cache
	Cookie CookieConfig
	Now    func() time.Time
}

type service struct {
	cache  cache.Cache
	cookie CookieConfig
	now    func() time.Time
}

func New(deps Deps) Creator {
	s := &service{cache: deps.Cache, cookie: deps.Cookie, now: deps.Now}
	if s.cookie.Name == "" {
		s.cookie.Name = "sid"
	}
	if s.cookie.SameSite == 0 {
		s.cookie.SameSite = http.SameSiteLaxMode
	}
	if s.cookie.TTL <= 0 {
		s.cookie.TTL = 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) Create(ctx context.Context, userID, email string) (*Session, error) {
	id, err := token.GenerateOpaqueToken(32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionStore, err)
	}

	expires := s.now().Add(s.cookie.TTL)
	payload, err := json.Marshal(dto.SessionPayload{
		UserID:  userID,
		Email:   email,
		Expires: expires,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionStore, err)
	}

	s.cache.Set(keyPrefix+token.SHA256Base64URL(id), payload, s.cookie.TTL)

	return &Session{
		ID:      id,
		Expires: expires,
		cookie: &http.Cookie{
			Name:     s.cookie.Name,
			Value:    id,
			Path:     "/",
			Domain:   s.cookie.Domain,
			Expires:  expires,
			HttpOnly: true,
			Secure:   s.cookie.Secure,
			SameSite: s.cookie.SameSite,
		},
	}, nil
}
