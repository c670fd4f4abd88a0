package models

import "time"

// PaymentIntentRequest is the relay request body. Amount is in minor units.
type PaymentIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PaymentIntentResponse is the relay success body.
type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// ErrorResponse is the relay error body. Type and Code are only set for
// provider failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
	Code  string `json:"code,omitempty"`
}

// PaymentResult is reported to the page once a payment has gone through.
// Amount is in major units, taken from the plan price.
type PaymentResult struct {
	PaymentID string `json:"paymentId"`
	Amount    int    `json:"amount"`
	Currency  string `json:"currency"`
}

// PaymentIntentStatus mirrors the provider's intent lifecycle values.
type PaymentIntentStatus string

const (
	IntentRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  PaymentIntentStatus = "requires_confirmation"
	IntentRequiresAction        PaymentIntentStatus = "requires_action"
	IntentProcessing            PaymentIntentStatus = "processing"
	IntentSucceeded             PaymentIntentStatus = "succeeded"
	IntentCanceled              PaymentIntentStatus = "canceled"
	IntentPaymentFailed         PaymentIntentStatus = "payment_failed"
)

// PaymentIntentRecord is a row of the payment ledger.
type PaymentIntentRecord struct {
	ID               string              `json:"id"`
	Amount           int64               `json:"amount"`
	Currency         string              `json:"currency"`
	Status           PaymentIntentStatus `json:"status"`
	PlanName         *string             `json:"plan_name,omitempty"`
	ChildName        *string             `json:"child_name,omitempty"`
	Email            *string             `json:"email,omitempty"`
	BookingReference *string             `json:"booking_reference,omitempty"`
	LastError        *string             `json:"last_error,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// RequestLog is one tracked API request.
type RequestLog struct {
	Method            string
	Path              string
	StatusCode        int
	ResponseTimeMs    int
	RequestSizeBytes  int
	ResponseSizeBytes int
	RequestID         string
}
