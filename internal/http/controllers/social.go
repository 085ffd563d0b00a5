// Package controllers translates HTTP requests into service calls and
// service results back into responses.
package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/dropDatabas3/socialgate/internal/http/errors"
	"github.com/dropDatabas3/socialgate/internal/http/dto"
	"github.com/dropDatabas3/socialgate/internal/http/services/social"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

type SocialController struct {
	Flow          social.Service
	PublicBaseURI string
}

func NewSocialController(flow social.Service, publicBaseURI string) *SocialController {
	return &SocialController{Flow: flow, PublicBaseURI: publicBaseURI}
}

// Start returns the provider authorization URL for the client to follow.
func (c *SocialController) Start(w http.ResponseWriter, r *http.Request) {
	res, err := c.Flow.Start(r.Context())
	if err != nil {
		if errors.Is(err, social.ErrNotConfigured) {
			apperrors.WriteError(w, apperrors.ErrNotConfigured)
			return
		}
		logger.From(r.Context()).Error("login initiation failed", logger.Err(err))
		apperrors.WriteError(w, apperrors.ErrInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.SocialStartResponse{RedirectURI: res.RedirectURI})
}

// Callback completes the provider round trip. It always answers with a
// redirect: the frontend's token-verification route on success, its
// login route with an error marker on any failure.
func (c *SocialController) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	res, err := c.Flow.Callback(r.Context(), social.CallbackRequest{
		State: q.Get("state"),
		Code:  q.Get("code"),
	})
	if err != nil {
		if errors.Is(err, social.ErrNotConfigured) {
			apperrors.WriteError(w, apperrors.ErrNotConfigured)
			return
		}
		// The reason is already logged by the service; the client only
		// ever learns that authentication did not work out.
		http.Redirect(w, r, social.FailureRedirect(c.PublicBaseURI), http.StatusFound)
		return
	}

	if res.Session != nil {
		http.SetCookie(w, res.Session.Cookie())
	}
	http.Redirect(w, r, res.RedirectURI, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
