package controllers

import "net/http"

type HealthController struct {
	// Ready reports whether downstream dependencies are reachable.
	// Nil means always ready.
	Ready func() error
}

func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	if c.Ready != nil {
		if err := c.Ready(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
