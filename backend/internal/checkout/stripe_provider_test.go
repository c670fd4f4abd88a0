package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
	"github.com/PortNumber53/sports-camp/backend/internal/stripe"
)

func TestStripeProviderConfirm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/payment_intents/pi_9/confirm", r.URL.Path)
		assert.Equal(t, "pm_card_visa", r.PostForm.Get("payment_method"))
		assert.Equal(t, DefaultReturnURL, r.PostForm.Get("return_url"))
		_, _ = w.Write([]byte(`{"id":"pi_9","status":"succeeded","client_secret":"pi_9_secret_q"}`))
	}))
	defer srv.Close()

	provider := NewStripeProvider(stripe.NewClient("sk_test", stripe.WithBaseURL(srv.URL), stripe.WithHTTPClient(srv.Client())), "pm_card_visa")

	intent, err := provider.ConfirmPayment(context.Background(), "pi_9_secret_q", DefaultReturnURL)
	require.NoError(t, err)
	assert.Equal(t, &Intent{ID: "pi_9", Status: models.IntentSucceeded, ClientSecret: "pi_9_secret_q"}, intent)
}

func TestStripeProviderRejectsMalformedSecret(t *testing.T) {
	provider := NewStripeProvider(stripe.NewClient("sk_test"), "pm_card_visa")

	_, err := provider.ConfirmPayment(context.Background(), "garbage", DefaultReturnURL)
	assert.Error(t, err)
	assert.Error(t, provider.HandleCardAction(context.Background(), "garbage"))
}

func TestStripeProviderHandleCardAction(t *testing.T) {
	status := "succeeded"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payment_intents/pi_9", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"pi_9","status":"` + status + `","last_payment_error":{"message":"Authentication failed."}}`))
	}))
	defer srv.Close()

	provider := NewStripeProvider(stripe.NewClient("sk_test", stripe.WithBaseURL(srv.URL), stripe.WithHTTPClient(srv.Client())), "")

	require.NoError(t, provider.HandleCardAction(context.Background(), "pi_9_secret_q"))

	status = "requires_payment_method"
	err := provider.HandleCardAction(context.Background(), "pi_9_secret_q")
	require.Error(t, err)
	assert.Equal(t, "Authentication failed.", err.Error())
}
