package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
	"github.com/PortNumber53/sports-camp/backend/internal/stripe"
)

// StripeProvider confirms intents through the Stripe REST API. It serves
// server-driven flows and test-mode payment methods such as "pm_card_visa";
// browsers use the provider's own client library instead.
type StripeProvider struct {
	client        *stripe.Client
	paymentMethod string
}

// NewStripeProvider returns a provider that confirms with paymentMethod.
func NewStripeProvider(client *stripe.Client, paymentMethod string) *StripeProvider {
	return &StripeProvider{client: client, paymentMethod: paymentMethod}
}

// ConfirmPayment confirms the intent behind clientSecret.
func (s *StripeProvider) ConfirmPayment(ctx context.Context, clientSecret, returnURL string) (*Intent, error) {
	id, err := stripe.IntentIDFromClientSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	pi, err := s.client.ConfirmPaymentIntent(ctx, id, stripe.ConfirmParams{
		PaymentMethod: s.paymentMethod,
		ReturnURL:     returnURL,
	})
	if err != nil {
		return nil, err
	}
	return toIntent(pi), nil
}

// HandleCardAction checks that the additional authentication step finished.
// The challenge itself happens in the customer's browser.
func (s *StripeProvider) HandleCardAction(ctx context.Context, clientSecret string) error {
	id, err := stripe.IntentIDFromClientSecret(clientSecret)
	if err != nil {
		return err
	}

	pi, err := s.client.RetrievePaymentIntent(ctx, id)
	if err != nil {
		return err
	}

	switch models.PaymentIntentStatus(pi.Status) {
	case models.IntentSucceeded, models.IntentProcessing:
		return nil
	}
	if pi.LastError != nil && pi.LastError.Message != "" {
		return errors.New(pi.LastError.Message)
	}
	return fmt.Errorf("card action not completed (status %s)", pi.Status)
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	if pi == nil {
		return nil
	}
	return &Intent{
		ID:           pi.ID,
		Status:       models.PaymentIntentStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
	}
}
