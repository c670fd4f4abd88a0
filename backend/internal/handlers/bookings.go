package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/PortNumber53/sports-camp/backend/internal/booking"
	"github.com/PortNumber53/sports-camp/backend/internal/models"
)

type createBookingPayload struct {
	PlanID int `json:"planId"`
	booking.Fields
}

// CreateBooking validates a submitted booking form against the selected plan.
// Nothing is stored; the returned record feeds the payment step.
func CreateBooking(w http.ResponseWriter, r *http.Request) {
	var payload createBookingPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	plan, err := models.PlanByID(payload.PlanID)
	if err != nil {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}

	record, err := booking.Submit(payload.Fields, &plan)
	if err != nil {
		var verrs booking.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verrs})
			return
		}
		log.Printf("CreateBooking: unexpected error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}

	log.Printf("CreateBooking: booking %s for plan %q", record.Reference, plan.Name)
	writeJSON(w, http.StatusOK, map[string]any{"booking": record})
}
