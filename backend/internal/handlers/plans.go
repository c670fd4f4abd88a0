package handlers

import (
	"net/http"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
)

// ListPlans returns the camp plan catalog.
func ListPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plans": models.Plans()})
}

// ClientConfig returns the values the browser needs to load the payment
// provider's embedded UI.
func ClientConfig(publishableKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"publishableKey": publishableKey,
			"currency":       models.Currency,
		})
	}
}
