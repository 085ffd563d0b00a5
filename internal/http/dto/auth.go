// Package dto holds the wire types exchanged with clients.
package dto

import "time"

// SocialStartResponse is returned by the login initiation endpoint. The
// client follows redirect-uri to the identity provider.
type SocialStartResponse struct {
	RedirectURI string `json:"redirect-uri"`
}

// SessionPayload is what gets persisted under the session key.
type SessionPayload struct {
	UserID  string    `json:"user_id"`
	Email   string    `json:"email,omitempty"`
	Expires time.Time `json:"expires"`
}
