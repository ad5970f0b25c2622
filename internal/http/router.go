package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boa-platform/registration-ledger/internal/observability"
	"github.com/boa-platform/registration-ledger/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Gateway-facing surface, authenticated by the shared webhook secret.
	r.Group(func(r chi.Router) {
		r.Use(SignatureMiddleware(h.cfg.WebhookSecret))
		r.Post("/v1/payments/webhook", h.PaymentWebhook)
		r.Put("/v1/registrations/{id}/payment-status", h.UpdatePaymentStatus)
	})

	// User-facing surface.
	r.Group(func(r chi.Router) {
		r.Use(JWTMiddleware(h.cfg.JWTSecret))
		r.Use(RateLimitMiddleware(rl))

		r.Get("/v1/registrations", h.ListRegistrations)
		r.Post("/v1/payments", h.CreatePayment)
		r.Post("/v1/payments/check", h.CheckPayment)

		r.Group(func(r chi.Router) {
			r.Use(IdempotencyKeyRequired)
			r.Post("/v1/registrations", h.CreateRegistration)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/v1/payments/verify-manual", h.VerifyManual)
		})
	})

	return r
}
