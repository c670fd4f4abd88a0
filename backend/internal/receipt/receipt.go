// Package receipt renders PDF receipts for paid camp bookings.
package receipt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
)

// ErrNotPaid is returned for intents that have not succeeded.
var ErrNotPaid = errors.New("receipt: payment has not succeeded")

const campName = "AFC SportsCamp"

// Render writes a one-page A4 receipt for a succeeded payment intent.
func Render(w io.Writer, rec models.PaymentIntentRecord) error {
	if rec.Status != models.IntentSucceeded {
		return ErrNotPaid
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking receipt "+rec.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(190, 10, campName)
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	line := func(label, value string) {
		pdf.Cell(190, 10, fmt.Sprintf("%s: %s", label, value))
		pdf.Ln(10)
	}

	line("Payment ID", rec.ID)
	line("Date", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	if rec.BookingReference != nil {
		line("Booking reference", *rec.BookingReference)
	}
	if rec.PlanName != nil {
		line("Plan", *rec.PlanName)
	}
	if rec.ChildName != nil {
		line("Participant", *rec.ChildName)
	}
	line("Amount", FormatAmount(rec.Amount, rec.Currency))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("receipt: render %s: %w", rec.ID, err)
	}
	return nil
}

// FormatAmount renders minor units as "AED 400.00".
func FormatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", strings.ToUpper(currency), minor/models.MinorUnitsPerMajor, minor%models.MinorUnitsPerMajor)
}
