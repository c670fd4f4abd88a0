// Package shell orchestrates which booking step is visible: nothing, the
// booking form, or the payment processor.
package shell

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/PortNumber53/sports-camp/backend/internal/booking"
	"github.com/PortNumber53/sports-camp/backend/internal/checkout"
	"github.com/PortNumber53/sports-camp/backend/internal/models"
)

// ErrInvalidTransition is returned when an event does not apply to the
// current view.
var ErrInvalidTransition = errors.New("shell: invalid transition")

// View is the step currently shown.
type View int

const (
	ViewNone View = iota
	ViewBookingForm
	ViewPaymentProcessor
)

func (v View) String() string {
	switch v {
	case ViewNone:
		return "none"
	case ViewBookingForm:
		return "booking-form"
	case ViewPaymentProcessor:
		return "payment-processor"
	default:
		return "unknown"
	}
}

// Confirmation is the notice shown after a successful payment.
type Confirmation struct {
	PaymentID string
	Amount    int
	Currency  string
	ChildName string
	PlanName  string
}

func (c Confirmation) String() string {
	return fmt.Sprintf("Payment ID: %s, Amount: %s %d", c.PaymentID, c.Currency, c.Amount)
}

// Shell holds the visible view and the in-flight booking.
type Shell struct {
	mu           sync.Mutex
	view         View
	plan         *models.Plan
	booking      *models.Booking
	draft        *booking.Fields
	processor    *checkout.Processor
	confirmation *Confirmation
	lastError    error
}

// New returns a shell showing nothing.
func New() *Shell {
	return &Shell{view: ViewNone}
}

// View returns the visible step.
func (s *Shell) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SelectedPlan returns a copy of the selected plan, if any.
func (s *Shell) SelectedPlan() (models.Plan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return models.Plan{}, false
	}
	return *s.plan, true
}

// Booking returns the booking handed to the payment step, if any.
func (s *Shell) Booking() (models.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.booking == nil {
		return models.Booking{}, false
	}
	return *s.booking, true
}

// Draft returns the form input behind the current booking so the form can be
// refilled after a failed payment.
func (s *Shell) Draft() (booking.Fields, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return booking.Fields{}, false
	}
	return *s.draft, true
}

// Confirmation returns the notice from the last successful payment.
func (s *Shell) Confirmation() (Confirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmation == nil {
		return Confirmation{}, false
	}
	return *s.confirmation, true
}

// DismissConfirmation clears the success notice.
func (s *Shell) DismissConfirmation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmation = nil
}

// LastError returns the payment failure shown above the booking form.
func (s *Shell) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// SelectPlan opens the booking form for a catalog plan.
func (s *Shell) SelectPlan(id int) error {
	plan, err := models.PlanByID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewNone {
		return ErrInvalidTransition
	}
	s.plan = &plan
	s.lastError = nil
	s.view = ViewBookingForm
	return nil
}

// CloseForm hides the booking form and drops the selection.
func (s *Shell) CloseForm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewBookingForm {
		return ErrInvalidTransition
	}
	s.reset()
	return nil
}

// SubmitBooking validates the form. On success the booking is kept and the
// payment step is shown; otherwise the form stays and the errors are returned.
func (s *Shell) SubmitBooking(fields booking.Fields) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewBookingForm {
		return models.Booking{}, ErrInvalidTransition
	}

	record, err := booking.Submit(fields, s.plan)
	if err != nil {
		return models.Booking{}, err
	}

	log.Printf("[shell] booking %s submitted for plan %q", record.Reference, record.Plan.Name)
	s.booking = &record
	s.draft = &fields
	s.lastError = nil
	s.view = ViewPaymentProcessor
	return record, nil
}

// BeginPayment creates the processor for the current booking with the shell
// as its listener. The caller drives it with Start, ElementReady and Submit.
func (s *Shell) BeginPayment(relay checkout.IntentRequester, provider checkout.Provider, opts ...checkout.Option) (*checkout.Processor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewPaymentProcessor || s.booking == nil {
		return nil, ErrInvalidTransition
	}
	if s.processor != nil {
		s.processor.Close()
	}
	s.processor = checkout.New(*s.booking, relay, provider, s, opts...)
	return s.processor, nil
}

// PaymentSucceeded returns to the landing view and records the confirmation.
func (s *Shell) PaymentSucceeded(result models.PaymentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewPaymentProcessor {
		return ErrInvalidTransition
	}

	c := &Confirmation{
		PaymentID: result.PaymentID,
		Amount:    result.Amount,
		Currency:  result.Currency,
	}
	if s.booking != nil {
		c.ChildName = s.booking.ChildName
		c.PlanName = s.booking.Plan.Name
	}
	log.Printf("[shell] payment successful: %s", c)

	s.reset()
	s.confirmation = c
	return nil
}

// PaymentCancelled goes back to the booking form, keeping the plan and
// discarding the booking.
func (s *Shell) PaymentCancelled() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewPaymentProcessor {
		return ErrInvalidTransition
	}
	s.backToForm()
	s.booking = nil
	s.draft = nil
	return nil
}

// PaymentFailed goes back to the booking form. The plan, the booking and its
// form input stay, along with the error shown above the form.
func (s *Shell) PaymentFailed(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewPaymentProcessor {
		return ErrInvalidTransition
	}
	log.Printf("[shell] payment failed: %v", err)
	s.backToForm()
	s.lastError = err
	return nil
}

// OnSuccess implements checkout.Listener.
func (s *Shell) OnSuccess(result models.PaymentResult) {
	if err := s.PaymentSucceeded(result); err != nil {
		log.Printf("[shell] ignoring payment success: %v", err)
	}
}

// OnCancel implements checkout.Listener.
func (s *Shell) OnCancel() {
	if err := s.PaymentCancelled(); err != nil {
		log.Printf("[shell] ignoring payment cancel: %v", err)
	}
}

// OnError implements checkout.Listener.
func (s *Shell) OnError(err error) {
	if ferr := s.PaymentFailed(err); ferr != nil {
		log.Printf("[shell] ignoring payment error: %v", ferr)
	}
}

func (s *Shell) backToForm() {
	if s.processor != nil {
		s.processor.Close()
		s.processor = nil
	}
	s.view = ViewBookingForm
}

func (s *Shell) reset() {
	if s.processor != nil {
		s.processor.Close()
		s.processor = nil
	}
	s.plan = nil
	s.booking = nil
	s.draft = nil
	s.lastError = nil
	s.view = ViewNone
}
