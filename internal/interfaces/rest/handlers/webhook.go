package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/foopay/storefront-adapter/internal/application"
	"github.com/foopay/storefront-adapter/internal/interfaces/rest"
)

type webhookPayload struct {
	Payment struct {
		ReferenceID string `json:"referenceId"`
	} `json:"payment"`
}

// Webhook handles POST /webhook. The provider only needs its delivery
// acknowledged: once the token and body shape check out, the response
// is 200 "OK" no matter how reconciliation went.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if err := h.lifecycle.AuthorizeWebhook(r.Context(), token); err != nil {
		h.logger.Warn("webhook rejected", "error", err)
		rest.WriteError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		rest.WriteError(w, application.NewValidationError("request body is required"))
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		rest.WriteError(w, application.NewValidationError("request body is not valid JSON"))
		return
	}

	if payload.Payment.ReferenceID == "" {
		rest.WriteError(w, application.NewValidationError("payment.referenceId is required"))
		return
	}

	if err := h.lifecycle.Reconcile(r.Context(), payload.Payment.ReferenceID); err != nil {
		// Receipt is still acknowledged; the next webhook or return
		// visit retries the reconciliation.
		h.logger.Error("webhook reconciliation failed",
			"order_id", payload.Payment.ReferenceID,
			"error", err,
		)
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return token
}
