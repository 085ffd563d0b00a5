package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cachemem "github.com/dropDatabas3/socialgate/internal/cache/memory"
	"github.com/dropDatabas3/socialgate/internal/http/controllers"
	"github.com/dropDatabas3/socialgate/internal/http/services/session"
	"github.com/dropDatabas3/socialgate/internal/http/services/social"
	"github.com/dropDatabas3/socialgate/internal/oauth/github"
	"github.com/dropDatabas3/socialgate/internal/rate"
	"github.com/dropDatabas3/socialgate/internal/security/token"
	storemem "github.com/dropDatabas3/socialgate/internal/store/memory"
)

const frontend = "https://app.example.com"

// fakeGitHub serves the token and user endpoints the provider client
// talks to.
func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "token gho_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"dev@example.com","name":"Dev Eloper"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newHandler(t *testing.T, limiter rate.Limiter, rateMax int64) http.Handler {
	t.Helper()

	gh := fakeGitHub(t)
	provider := github.New("cid", "csecret", "http://localhost:8080/oauth/github/callback", nil)
	provider.AuthEndpoint = gh.URL + "/login/oauth/authorize"
	provider.TokenEndpoint = gh.URL + "/login/oauth/access_token"
	provider.UserEndpoint = gh.URL + "/user"
	provider.EmailEndpoint = gh.URL + "/user/emails"

	tokens, err := token.NewService([]byte("0123456789abcdef0123456789abcdef"), "socialgate-test")
	require.NoError(t, err)

	flow := social.New(social.Deps{
		Tokens:        tokens,
		Provider:      provider,
		Accounts:      storemem.New(),
		Sessions:      session.New(session.Deps{Cache: cachemem.New(time.Minute)}),
		PublicBaseURI: frontend,
	})

	return New(Deps{
		Social:  controllers.NewSocialController(flow, frontend),
		Health:  &controllers.HealthController{},
		Limiter: limiter,
		RateMax: rateMax,
	})
}

func TestFullLoginRoundTrip(t *testing.T) {
	h := newHandler(t, nil, 0)

	// Initiate.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/github", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	authURL, err := url.Parse(body["redirect-uri"])
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)
	require.Equal(t, "cid", authURL.Query().Get("client_id"))

	// Callback with the state GitHub would echo back.
	cb := "/oauth/github/callback?state=" + url.QueryEscape(state) + "&code=good-code"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, cb, nil))

	require.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, frontend+"#/auth/verify-token?token="), "location = %s", loc)

	res := rec.Result()
	res.Body.Close()
	require.NotEmpty(t, res.Cookies(), "expected a session cookie")
	require.Equal(t, "sid", res.Cookies()[0].Name)
}

func TestCallbackWithBadCodeRedirectsToLogin(t *testing.T) {
	h := newHandler(t, nil, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/github", nil))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	authURL, err := url.Parse(body["redirect-uri"])
	require.NoError(t, err)
	state := authURL.Query().Get("state")

	cb := "/oauth/github/callback?state=" + url.QueryEscape(state) + "&code=wrong"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, cb, nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, frontend+"#/auth/login?error=unable-to-auth", rec.Header().Get("Location"))
}

func TestInitiateAcceptsPost(t *testing.T) {
	h := newHandler(t, nil, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/oauth/github", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzAndUnknownRoute(t *testing.T) {
	h := newHandler(t, nil, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOAuthRoutesAreRateLimited(t *testing.T) {
	h := newHandler(t, rate.NewMemoryLimiter(1, time.Minute), 1)

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/oauth/github", nil)
		r.RemoteAddr = "10.1.2.3:5555"
		return r
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Health stays reachable regardless of the limiter.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNotConfiguredSurface(t *testing.T) {
	h := New(Deps{
		Social: controllers.NewSocialController(social.NewNotConfigured(), frontend),
		Health: &controllers.HealthController{},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/github", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/github/callback?state=s&code=c", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
