package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cachemem "github.com/dropDatabas3/socialgate/internal/cache/memory"

	"github.com/dropDatabas3/socialgate/internal/http/services/session"
	"github.com/dropDatabas3/socialgate/internal/http/services/social"
)

type stubFlow struct {
	startRes *social.StartResult
	startErr error

	callbackReq social.CallbackRequest
	callbackRes *social.CallbackResult
	callbackErr error
}

func (s *stubFlow) Start(context.Context) (*social.StartResult, error) {
	return s.startRes, s.startErr
}

func (s *stubFlow) Callback(_ context.Context, req social.CallbackRequest) (*social.CallbackResult, error) {
	s.callbackReq = req
	return s.callbackRes, s.callbackErr
}

const base = "https://app.example.com"

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	svc := session.New(session.Deps{Cache: cachemem.New(time.Minute)})
	sess, err := svc.Create(context.Background(), "user-1", "dev@example.com")
	require.NoError(t, err)
	return sess
}

func TestStartReturnsRedirectURI(t *testing.T) {
	ctrl := NewSocialController(&stubFlow{
		startRes: &social.StartResult{RedirectURI: "https://github.com/login/oauth/authorize?state=xyz"},
	}, base)

	rec := httptest.NewRecorder()
	ctrl.Start(rec, httptest.NewRequest(http.MethodGet, "/oauth/github", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "https://github.com/login/oauth/authorize?state=xyz", body["redirect-uri"])
}

func TestStartNotConfigured(t *testing.T) {
	ctrl := NewSocialController(&stubFlow{startErr: social.ErrNotConfigured}, base)

	rec := httptest.NewRecorder()
	ctrl.Start(rec, httptest.NewRequest(http.MethodGet, "/oauth/github", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallbackSuccessRedirects(t *testing.T) {
	sess := newTestSession(t)
	flow := &stubFlow{callbackRes: &social.CallbackResult{
		RedirectURI: base + "#/auth/verify-token?token=abc",
		Session:     sess,
	}}
	ctrl := NewSocialController(flow, base)

	rec := httptest.NewRecorder()
	ctrl.Callback(rec, httptest.NewRequest(http.MethodGet, "/oauth/github/callback?state=st&code=co", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, base+"#/auth/verify-token?token=abc", rec.Header().Get("Location"))
	require.Equal(t, "st", flow.callbackReq.State)
	require.Equal(t, "co", flow.callbackReq.Code)

	res := rec.Result()
	defer res.Body.Close()
	require.Len(t, res.Cookies(), 1)
	require.Equal(t, sess.Cookie().Value, res.Cookies()[0].Value)
}

func TestCallbackFailureRedirects(t *testing.T) {
	for _, err := range []error{
		social.ErrInvalidState,
		social.ErrUnableToAuthenticate,
		social.ErrAccountResolution,
		errors.New("anything else"),
	} {
		ctrl := NewSocialController(&stubFlow{callbackErr: err}, base)

		rec := httptest.NewRecorder()
		ctrl.Callback(rec, httptest.NewRequest(http.MethodGet, "/oauth/github/callback?state=bad", nil))

		require.Equal(t, http.StatusFound, rec.Code, "error %v", err)
		require.Equal(t, base+"#/auth/login?error=unable-to-auth", rec.Header().Get("Location"))

		res := rec.Result()
		res.Body.Close()
		require.Empty(t, res.Cookies(), "failure must not set a session cookie")
	}
}

func TestCallbackNotConfigured(t *testing.T) {
	ctrl := NewSocialController(&stubFlow{callbackErr: social.ErrNotConfigured}, base)

	rec := httptest.NewRecorder()
	ctrl.Callback(rec, httptest.NewRequest(http.MethodGet, "/oauth/github/callback", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadyz(t *testing.T) {
	ctrl := &HealthController{}
	rec := httptest.NewRecorder()
	ctrl.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	ctrl = &HealthController{Ready: func() error { return errors.New("db down") }}
	rec = httptest.NewRecorder()
	ctrl.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
