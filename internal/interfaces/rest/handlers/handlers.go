// Package handlers exposes the adapter's HTTP surface: checkout
// session creation, the provider webhook, the shopper return page and
// the setup callback.
package handlers

import (
	"log/slog"

	"github.com/foopay/storefront-adapter/internal/application/services"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	lifecycle  *services.LifecycleService
	onboarding *services.OnboardingService
	logger     *slog.Logger
}

func NewHandlers(
	lifecycle *services.LifecycleService,
	onboarding *services.OnboardingService,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		lifecycle:  lifecycle,
		onboarding: onboarding,
		logger:     logger,
	}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Post("/checkout/{orderID}/session", h.CreateSession)
	r.Post("/webhook", h.Webhook)
	r.Get("/return/{orderID}", h.Return)
	r.Get("/setup", h.Setup)
}
