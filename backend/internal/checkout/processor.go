// Package checkout drives a single payment attempt for a booking: it asks
// the relay for a client secret, waits for the embedded payment UI, confirms
// the payment with the provider and reports the outcome to a Listener.
package checkout

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
)

// DefaultTimeout bounds each network step of an attempt.
const DefaultTimeout = 30 * time.Second

// DefaultReturnURL is where the provider sends the browser after a redirect
// based payment method.
const DefaultReturnURL = "http://localhost:5173/payment-success"

// State is the processor's position in the payment attempt.
type State int

const (
	StateInitializing State = iota
	StateReady
	StateSubmitting
	StateError
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateError:
		return "error"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IntentRequester obtains a client secret for an amount/currency/metadata
// triple. RelayClient is the HTTP implementation.
type IntentRequester interface {
	CreatePaymentIntent(ctx context.Context, req models.PaymentIntentRequest) (models.PaymentIntentResponse, error)
}

// Intent is the provider's view of a payment intent after confirmation.
type Intent struct {
	ID           string
	Status       models.PaymentIntentStatus
	ClientSecret string
}

// Provider is the payment provider's client-side contract.
type Provider interface {
	// ConfirmPayment confirms the intent, redirecting only if the payment
	// method requires it.
	ConfirmPayment(ctx context.Context, clientSecret, returnURL string) (*Intent, error)
	// HandleCardAction completes an additional authentication step.
	HandleCardAction(ctx context.Context, clientSecret string) error
}

// Listener receives the outcome of an attempt. Callbacks run on the goroutine
// that drove the transition and never while the processor's lock is held.
type Listener interface {
	OnSuccess(result models.PaymentResult)
	OnCancel()
	OnError(err error)
}

type noopListener struct{}

func (noopListener) OnSuccess(models.PaymentResult) {}
func (noopListener) OnCancel()                      {}
func (noopListener) OnError(error)                  {}

// Option customises a Processor.
type Option func(*Processor)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithReturnURL overrides DefaultReturnURL.
func WithReturnURL(u string) Option {
	return func(p *Processor) {
		if u != "" {
			p.returnURL = u
		}
	}
}

// Processor is the state machine for one payment attempt.
type Processor struct {
	booking  models.Booking
	relay    IntentRequester
	provider Provider
	listener Listener

	timeout   time.Duration
	returnURL string

	mu           sync.Mutex
	state        State
	started      bool
	elementReady bool
	closed       bool
	clientSecret string
	intentID     string
	err          error
}

// New creates a processor in the Initializing state. listener may be nil.
func New(booking models.Booking, relay IntentRequester, provider Provider, listener Listener, opts ...Option) *Processor {
	if listener == nil {
		listener = noopListener{}
	}
	p := &Processor{
		booking:   booking,
		relay:     relay,
		provider:  provider,
		listener:  listener,
		timeout:   DefaultTimeout,
		returnURL: DefaultReturnURL,
		state:     StateInitializing,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the error shown to the user, if any.
func (p *Processor) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// ClientSecret returns the secret the embedded UI is bound to.
func (p *Processor) ClientSecret() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientSecret
}

// PaymentIntentID returns the intent id reported by the relay.
func (p *Processor) PaymentIntentID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intentID
}

// IntentRequest is the relay request for the booking's plan.
func (p *Processor) IntentRequest() models.PaymentIntentRequest {
	return models.PaymentIntentRequest{
		Amount:   p.booking.Plan.AmountMinor(),
		Currency: models.Currency,
		Metadata: p.booking.PaymentMetadata(),
	}
}

// Start requests a client secret from the relay. On failure the processor
// moves to Failed and the listener is told; there is no automatic retry.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.started {
		p.mu.Unlock()
		return ErrInvalidState
	}
	p.started = true
	p.mu.Unlock()

	req := p.IntentRequest()
	log.Printf("[checkout] requesting payment intent: amount=%d currency=%s plan=%q", req.Amount, req.Currency, p.booking.Plan.Name)

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	resp, err := p.relay.CreatePaymentIntent(callCtx, req)
	cancel()
	if err == nil && resp.ClientSecret == "" {
		err = errors.New("checkout: relay returned no client secret")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		log.Printf("[checkout] dropping payment intent response after close")
		return ErrClosed
	}
	if err != nil {
		p.state = StateFailed
		p.err = err
		p.mu.Unlock()
		log.Printf("[checkout] payment intent request failed: %v", err)
		p.listener.OnError(err)
		return err
	}
	p.state = StateReady
	p.clientSecret = resp.ClientSecret
	p.intentID = resp.PaymentIntentID
	p.mu.Unlock()
	return nil
}

// ElementReady records that the embedded payment UI finished loading.
func (p *Processor) ElementReady() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elementReady = true
}

// Submit confirms the payment. It returns ErrNotReady, without contacting the
// provider, until a client secret is held and the UI is ready.
func (p *Processor) Submit(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	switch {
	case p.state == StateInitializing, p.state == StateReady && (!p.elementReady || p.clientSecret == ""):
		p.mu.Unlock()
		return ErrNotReady
	case p.state != StateReady:
		p.mu.Unlock()
		return ErrInvalidState
	}
	p.state = StateSubmitting
	p.err = nil
	secret := p.clientSecret
	p.mu.Unlock()

	intent, err := p.confirm(ctx, secret)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		log.Printf("[checkout] dropping confirmation result after close")
		return ErrClosed
	}
	if err != nil {
		p.state = StateError
		p.err = err
		p.mu.Unlock()
		log.Printf("[checkout] payment error: %v", err)
		p.listener.OnError(err)
		return err
	}
	p.state = StateSucceeded
	p.mu.Unlock()

	result := models.PaymentResult{
		PaymentID: intent.ID,
		Amount:    p.booking.Plan.Price,
		Currency:  models.Currency,
	}
	log.Printf("[checkout] payment %s succeeded", intent.ID)
	p.listener.OnSuccess(result)
	return nil
}

func (p *Processor) confirm(ctx context.Context, secret string) (*Intent, error) {
	confirmCtx, cancel := context.WithTimeout(ctx, p.timeout)
	intent, err := p.provider.ConfirmPayment(confirmCtx, secret, p.returnURL)
	cancel()
	if err != nil {
		return nil, &ProviderError{Op: "confirm payment", Err: err}
	}
	if intent == nil {
		return nil, ErrNoIntent
	}

	switch intent.Status {
	case models.IntentSucceeded:
		return intent, nil
	case models.IntentRequiresAction:
		actionSecret := intent.ClientSecret
		if actionSecret == "" {
			actionSecret = secret
		}
		actionCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if err := p.provider.HandleCardAction(actionCtx, actionSecret); err != nil {
			return nil, &ProviderError{Op: "handle card action", Err: err}
		}
		return intent, nil
	default:
		return nil, &UnexpectedStateError{Status: string(intent.Status)}
	}
}

// Retry clears the error and returns to Ready.
func (p *Processor) Retry() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.state != StateError {
		return ErrInvalidState
	}
	p.state = StateReady
	p.err = nil
	return nil
}

// Cancel tears the attempt down and notifies the listener. A confirmation in
// flight cannot be cancelled.
func (p *Processor) Cancel() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	switch p.state {
	case StateSubmitting:
		p.mu.Unlock()
		return ErrNotCancellable
	case StateReady, StateError:
	default:
		p.mu.Unlock()
		return ErrInvalidState
	}
	p.state = StateCancelled
	p.closed = true
	p.mu.Unlock()

	p.listener.OnCancel()
	return nil
}

// Close detaches the processor. Responses that arrive afterwards change no
// state and fire no callbacks; the outbound requests are not aborted.
func (p *Processor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}
