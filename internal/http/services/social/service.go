// Package social orchestrates the provider login flow: it hands out the
// authorization redirect, and on callback turns a provider code into a
// local account, a signed auth token and a session.
package social

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialgate/internal/email"
	"github.com/dropDatabas3/socialgate/internal/http/services/session"
	"github.com/dropDatabas3/socialgate/internal/metrics"
	"github.com/dropDatabas3/socialgate/internal/oauth/github"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/security/token"
	"github.com/dropDatabas3/socialgate/internal/store"
)

// Token purposes and their lifetimes. The state token protects the
// callback against CSRF; the auth token is what the frontend trades in
// after the redirect.
const (
	PurposeState = "oauth-login"
	PurposeAuth  = "auth"

	defaultStateTTL = 15 * time.Minute
	defaultAuthTTL  = 15 * time.Minute

	providerName = "github"
)

var (
	ErrNotConfigured        = errors.New("social login not configured")
	ErrInvalidState         = errors.New("invalid state token")
	ErrUnableToAuthenticate = errors.New("unable to authenticate with provider")
	ErrAccountResolution    = errors.New("account resolution failed")
)

// Provider is the identity-provider surface the flow needs. Satisfied
// by *github.Client.
type Provider interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, state, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*github.Profile, error)
}

type StartResult struct {
	// RedirectURI is the provider authorization URL the client should
	// navigate to.
	RedirectURI string
}

type CallbackRequest struct {
	State string
	Code  string
}

type CallbackResult struct {
	// RedirectURI points back at the frontend with the auth token in
	// the fragment.
	RedirectURI string
	Session     *session.Session
}

type Service interface {
	Start(ctx context.Context) (*StartResult, error)
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

type Deps struct {
	Tokens   *token.Service
	Provider Provider
	Accounts store.Store
	Sessions session.Creator
	Mailer   email.Mailer

	PublicBaseURI string
	StateTTL      time.Duration
	AuthTTL       time.Duration
}

type service struct {
	tokens   *token.Service
	provider Provider
	accounts store.Store
	sessions session.Creator
	mailer   email.Mailer

	publicBaseURI string
	stateTTL      time.Duration
	authTTL       time.Duration
}

func New(deps Deps) Service {
	s := &service{
		tokens:        deps.Tokens,
		provider:      deps.Provider,
		accounts:      deps.Accounts,
		sessions:      deps.Sessions,
		mailer:        deps.Mailer,
		publicBaseURI: deps.PublicBaseURI,
		stateTTL:      deps.StateTTL,
		authTTL:       deps.AuthTTL,
	}
	if s.stateTTL <= 0 {
		s.stateTTL = defaultStateTTL
	}
	if s.authTTL <= 0 {
		s.authTTL = defaultAuthTTL
	}
	if s.mailer == nil {
		s.mailer = email.Noop{}
	}
	return s
}

// SuccessRedirect builds the frontend URL that carries the auth token.
// The token travels in the fragment so it never reaches server logs.
func SuccessRedirect(base, authToken string) string {
	return fmt.Sprintf("%s#/auth/verify-token?token=%s", base, url.QueryEscape(authToken))
}

// FailureRedirect is where every failed callback lands, regardless of
// which step failed.
func FailureRedirect(base string) string {
	return base + "#/auth/login?error=unable-to-auth"
}

func (s *service) Start(ctx context.Context) (*StartResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.start"))

	state, err := s.tokens.Issue(PurposeState, nil, s.stateTTL)
	if err != nil {
		log.Error("failed to issue state token", logger.Err(err))
		metrics.ObserveFlow("start", "error")
		return nil, fmt.Errorf("issue state token: %w", err)
	}

	metrics.ObserveFlow("start", "ok")
	return &StartResult{RedirectURI: s.provider.AuthURL(state)}, nil
}

func (s *service) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.callback"))

	if _, err := s.tokens.Verify(req.State, PurposeState); err != nil {
		log.Warn("state token rejected", logger.Err(err))
		metrics.ObserveFlow("callback", "invalid_state")
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if req.Code == "" {
		log.Warn("callback without authorization code")
		metrics.ObserveFlow("callback", "no_profile")
		return nil, fmt.Errorf("%w: missing authorization code", ErrUnableToAuthenticate)
	}

	accessToken, err := s.provider.ExchangeCode(ctx, req.State, req.Code)
	metrics.ObserveProviderCall("exchange", err)
	if err != nil {
		log.Warn("code exchange failed", logger.Err(err))
		metrics.ObserveFlow("callback", "no_profile")
		return nil, fmt.Errorf("%w: %v", ErrUnableToAuthenticate, err)
	}

	profile, err := s.provider.FetchProfile(ctx, accessToken)
	metrics.ObserveProviderCall("profile", err)
	if err != nil {
		log.Warn("profile fetch failed", logger.Err(err))
		metrics.ObserveFlow("callback", "no_profile")
		return nil, fmt.Errorf("%w: %v", ErrUnableToAuthenticate, err)
	}

	account, err := s.accounts.LoginOrRegister(ctx, profile.Email, profile.Name, providerName)
	if err != nil {
		log.Error("account resolution failed", logger.Err(err), logger.Email(profile.Email))
		metrics.ObserveFlow("callback", "resolve_failed")
		return nil, fmt.Errorf("%w: %v", ErrAccountResolution, err)
	}

	authToken, err := s.tokens.Issue(PurposeAuth, map[string]any{"profile-id": account.ID}, s.authTTL)
	if err != nil {
		log.Error("failed to issue auth token", logger.Err(err), logger.UserID(account.ID))
		metrics.ObserveFlow("callback", "error")
		return nil, fmt.Errorf("issue auth token: %w", err)
	}

	sess, err := s.sessions.Create(ctx, account.ID, profile.Email)
	if err != nil {
		log.Error("session creation failed", logger.Err(err), logger.UserID(account.ID))
		metrics.ObserveFlow("callback", "session_failed")
		return nil, fmt.Errorf("create session: %w", err)
	}

	if account.Created {
		go s.sendWelcome(log, profile.Email, profile.Name)
	}

	log.Info("social login completed", logger.UserID(account.ID), logger.Provider(providerName))
	metrics.ObserveFlow("callback", "ok")

	return &CallbackResult{
		RedirectURI: SuccessRedirect(s.publicBaseURI, authToken),
		Session:     sess,
	}, nil
}

// sendWelcome runs off the request path: a mail outage must never fail
// a login.
func (s *service) sendWelcome(log *zap.Logger, to, name string) {
	subject := "Welcome!"
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your account is ready. You signed in with GitHub.</p>", name)
	text := fmt.Sprintf("Hi %s,\n\nYour account is ready. You signed in with GitHub.\n", name)
	if err := s.mailer.Send(to, subject, html, text); err != nil {
		log.Warn("welcome email failed", logger.Err(err), logger.Email(to))
	}
}
