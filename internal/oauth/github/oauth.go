// Package github implements the GitHub OAuth 2.0 client used by the
// social login flow. GitHub uses plain OAuth 2.0 without ID tokens, so a
// separate API call fetches the user profile after the code exchange.
//
// Failure policy: both network calls run under a bounded timeout with no
// retries; any transport failure, non-200 status or malformed body comes
// back as an error the orchestrator maps to the user-facing failure
// redirect. Expired codes and user cancellation at GitHub are expected,
// they must never crash a callback.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAuthEndpoint  = "https://github.com/login/oauth/authorize"
	defaultTokenEndpoint = "https://github.com/login/oauth/access_token"
	defaultUserEndpoint  = "https://api.github.com/user"
	defaultEmailEndpoint = "https://api.github.com/user/emails"

	// Per-call timeout. A slow provider must not hold a callback open.
	requestTimeout = 6 * time.Second
)

// Profile is the normalized user profile returned by FetchProfile.
// Either field may be empty; GitHub users can hide both.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Client is the GitHub OAuth 2.0 client.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Endpoint overrides, used by tests. Zero values mean the real
	// GitHub endpoints.
	AuthEndpoint  string
	TokenEndpoint string
	UserEndpoint  string
	EmailEndpoint string

	http *http.Client
}

// New creates a GitHub OAuth client.
func New(clientID, clientSecret, redirectURL string, scopes []string) *Client {
	if len(scopes) == 0 {
		scopes = []string{"user:email", "read:user"}
	}
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		http:         &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) endpoint(override, def string) string {
	if override != "" {
		return override
	}
	return def
}

// AuthURL builds the GitHub authorization URL embedding the CSRF state
// token. Pure string construction, cannot fail.
func (c *Client) AuthURL(state string) string {
	u, _ := url.Parse(c.endpoint(c.AuthEndpoint, defaultAuthEndpoint))
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", strings.Join(c.Scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// ExchangeCode exchanges an authorization code for an access token.
// One POST, no retries.
func (c *Client) ExchangeCode(ctx context.Context, state, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("code", code)
	form.Set("state", state)
	form.Set("redirect_uri", c.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint(c.TokenEndpoint, defaultTokenEndpoint), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github token endpoint: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.Error != "" {
		return "", fmt.Errorf("github oauth error: %s - %s", tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("no access_token in response")
	}
	return tr.AccessToken, nil
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// FetchProfile fetches the user profile using the access token. When the
// profile hides the email, the /user/emails endpoint is consulted as a
// best-effort fallback; its failure does not fail the profile fetch.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint(c.UserEndpoint, defaultUserEndpoint), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user endpoint: status %d", resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode user profile: %w", err)
	}

	if p.Email == "" {
		if email := c.fetchPrimaryEmail(ctx, accessToken); email != "" {
			p.Email = email
		}
	}
	return &p, nil
}

// fetchPrimaryEmail returns the user's primary verified email, or any
// verified one, or any at all. Empty string on any failure.
func (c *Client) fetchPrimaryEmail(ctx context.Context, accessToken string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint(c.EmailEndpoint, defaultEmailEndpoint), nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Authorization", "token "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var emails []emailInfo
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return ""
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}
