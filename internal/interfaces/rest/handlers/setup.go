package handlers

import (
	"net/http"

	"github.com/foopay/storefront-adapter/internal/interfaces/rest"
)

type setupResponse struct {
	Message string `json:"message"`
}

// Setup handles GET /setup, the return leg of the FooPay panel
// handshake. The panel redirects the merchant admin here with a
// one-time authorizationCode and the appId it was granted for.
func (h *Handlers) Setup(w http.ResponseWriter, r *http.Request) {
	appID := r.URL.Query().Get("appId")
	authorizationCode := r.URL.Query().Get("authorizationCode")

	if err := h.onboarding.CompleteSetup(r.Context(), appID, authorizationCode); err != nil {
		rest.WriteError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, setupResponse{
		Message: "Setup completed successfully",
	})
}
