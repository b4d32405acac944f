// Package transport contains the HTTP surface: the chat webhook, health
// and readiness probes, and the metrics endpoint.
package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fieldops/workdesk/internal/dialog"
	"github.com/fieldops/workdesk/internal/notify"
	"github.com/fieldops/workdesk/internal/observability"
)

// Dependencies holds all injected dependencies for the HTTP layer.
type Dependencies struct {
	Controller *dialog.Controller
	Notifier   notify.Notifier
	Fetcher    notify.DocumentFetcher
	Logger     *zap.Logger
	Readiness  observability.ReadinessChecks

	// BotToken is the path segment the chat platform calls; WebhookSecret,
	// when non-empty, must also arrive in the secret header.
	BotToken      string
	WebhookSecret string

	MetricsEnabled bool
	MetricsPath    string
}

// NewRouter creates a chi.Router with the probe endpoints and the
// webhook route. The webhook carries the secret-token check; probes and
// metrics are open.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(Recovery(deps.Logger))

	r.Get("/healthz", observability.HandleHealth())
	r.Get("/readyz", observability.HandleReady(deps.Readiness))
	if deps.MetricsEnabled {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, observability.Handler())
	}

	wh := newWebhookHandler(deps)
	r.Group(func(r chi.Router) {
		r.Use(RequestLogging(deps.Logger))
		r.Use(SecretToken(deps.WebhookSecret))
		r.Post("/webhook/{token}", wh.handle)
	})

	return r
}
