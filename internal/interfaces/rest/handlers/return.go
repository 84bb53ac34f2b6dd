package handlers

import (
	"net/http"

	"github.com/foopay/storefront-adapter/internal/application"
	"github.com/foopay/storefront-adapter/internal/interfaces/rest"
	"github.com/go-chi/chi/v5"
)

type returnResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// Return handles GET /return/{orderID}, the shopper coming back from
// the hosted payment page. It polls the provider as a fallback for a
// webhook that has not arrived yet. The thank-you page must render
// regardless, so a failed reconciliation is logged and swallowed.
func (h *Handlers) Return(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	if err := h.lifecycle.Reconcile(r.Context(), orderID); err != nil {
		if svcErr, ok := application.IsServiceError(err); ok && svcErr.Code == application.ErrCodeOrderNotFound {
			rest.WriteError(w, err)
			return
		}
		h.logger.Error("return-page reconciliation failed", "order_id", orderID, "error", err)
	}

	status, err := h.lifecycle.OrderStatus(r.Context(), orderID)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, returnResponse{
		OrderID: orderID,
		Status:  string(status),
	})
}
