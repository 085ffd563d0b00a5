package social

import (
	"context"

	"github.com/dropDatabas3/socialgate/internal/metrics"
)

// notConfigured stands in for the real service when no provider
// credentials were supplied. The choice is made once at wiring time so
// request handling never re-checks configuration.
type notConfigured struct{}

// NewNotConfigured returns a Service whose every operation reports
// ErrNotConfigured.
func NewNotConfigured() Service { return notConfigured{} }

func (notConfigured) Start(context.Context) (*StartResult, error) {
	metrics.ObserveFlow("start", "not_configured")
	return nil, ErrNotConfigured
}

func (notConfigured) Callback(context.Context, CallbackRequest) (*CallbackResult, error) {
	metrics.ObserveFlow("callback", "not_configured")
	return nil, ErrNotConfigured
}
