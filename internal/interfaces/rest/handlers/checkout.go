package handlers

import (
	"net/http"

	"github.com/foopay/storefront-adapter/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

type createSessionResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

// CreateSession handles POST /checkout/{orderID}/session. The
// storefront calls this when the shopper submits checkout; the
// response carries the hosted payment page URL to redirect to.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	redirectURL, err := h.lifecycle.CreateSession(r.Context(), orderID)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, createSessionResponse{
		RedirectURL: redirectURL,
	})
}
