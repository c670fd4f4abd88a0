package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestCreatePaymentIntentSendsForm(t *testing.T) {
	var gotForm map[string][]string
	var gotKey, gotIdem string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotKey, _, _ = r.BasicAuth()
		gotIdem = r.Header.Get("Idempotency-Key")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","amount":40000,"currency":"aed","status":"requires_payment_method","client_secret":"pi_123_secret_abc"}`))
	}))
	defer srv.Close()

	c := NewClient("sk_test_1", WithBaseURL(srv.URL+"/v1"), WithHTTPClient(srv.Client()))
	pi, err := c.CreatePaymentIntent(context.Background(), PaymentIntentParams{
		Amount:         40000,
		Currency:       "aed",
		Metadata:       map[string]string{"childName": "Omar", "planName": "3-Day Explorer"},
		IdempotencyKey: "idem-1",
	})
	if err != nil {
		t.Fatalf("CreatePaymentIntent returned error: %v", err)
	}

	if pi.ID != "pi_123" || pi.ClientSecret != "pi_123_secret_abc" {
		t.Fatalf("unexpected intent: %+v", pi)
	}
	if gotKey != "sk_test_1" {
		t.Fatalf("expected basic auth with secret key, got %q", gotKey)
	}
	if gotIdem != "idem-1" {
		t.Fatalf("expected idempotency key forwarded, got %q", gotIdem)
	}

	checks := map[string]string{
		"amount":                                     "40000",
		"currency":                                   "aed",
		"payment_method_types[]":                     "card",
		"automatic_payment_methods[enabled]":         "true",
		"automatic_payment_methods[allow_redirects]": "always",
		"metadata[childName]":                        "Omar",
		"metadata[planName]":                         "3-Day Explorer",
	}
	for k, want := range checks {
		if got := gotForm[k]; len(got) != 1 || got[0] != want {
			t.Fatalf("form %s: expected %q, got %v", k, want, got)
		}
	}
}

func TestCreatePaymentIntentProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	c := NewClient("sk_test_1", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := c.CreatePaymentIntent(context.Background(), PaymentIntentParams{Amount: 100, Currency: "aed"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired || apiErr.Type != "card_error" || apiErr.Code != "card_declined" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if apiErr.Message != "Your card was declined." {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestUnparseableErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	c := NewClient("sk_test_1", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := c.RetrievePaymentIntent(context.Background(), "pi_1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.HTTPStatus() != http.StatusBadGateway || apiErr.Message != "unknown error" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestCircuitOpensAfterServerFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
	}))
	defer srv.Close()

	c := NewClient("sk_test_1", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	for i := 0; i < 5; i++ {
		if _, err := c.RetrievePaymentIntent(context.Background(), "pi_1"); err == nil {
			t.Fatal("expected error")
		}
	}

	_, err := c.RetrievePaymentIntent(context.Background(), "pi_1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable once the circuit is open, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Fatalf("expected 5 upstream calls, got %d", got)
	}
}

func TestCardErrorsDoNotOpenCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","message":"declined"}}`))
	}))
	defer srv.Close()

	c := NewClient("sk_test_1", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	for i := 0; i < 10; i++ {
		_, err := c.RetrievePaymentIntent(context.Background(), "pi_1")
		if errors.Is(err, ErrUnavailable) {
			t.Fatalf("circuit opened on card errors after %d calls", i)
		}
	}
}

func TestConfirmPaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment_intents/pi_9/confirm" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		r.ParseForm()
		if r.PostForm.Get("payment_method") != "pm_card_visa" || r.PostForm.Get("return_url") != "https://camp.example/payment-success" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		w.Write([]byte(`{"id":"pi_9","status":"succeeded","amount":15000,"currency":"aed"}`))
	}))
	defer srv.Close()

	c := NewClient("sk_test_1", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	pi, err := c.ConfirmPaymentIntent(context.Background(), "pi_9", ConfirmParams{
		PaymentMethod: "pm_card_visa",
		ReturnURL:     "https://camp.example/payment-success",
	})
	if err != nil {
		t.Fatalf("ConfirmPaymentIntent returned error: %v", err)
	}
	if pi.Status != "succeeded" {
		t.Fatalf("unexpected status %q", pi.Status)
	}
}

func TestIntentIDFromClientSecret(t *testing.T) {
	id, err := IntentIDFromClientSecret("pi_3Abc_secret_xyz")
	if err != nil || id != "pi_3Abc" {
		t.Fatalf("unexpected result %q, %v", id, err)
	}
	if _, err := IntentIDFromClientSecret("garbage"); err == nil {
		t.Fatal("expected error for malformed secret")
	}
}
