package stripe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the public Stripe REST endpoint.
const DefaultBaseURL = "https://api.stripe.com/v1"

// APIVersion pins the Stripe API version the relay was written against.
const APIVersion = "2023-10-16"

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("stripe: provider temporarily unavailable")

// Client wraps Stripe API calls using the REST API directly (no SDK dependency)
type Client struct {
	secretKey  string
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (stripe-mock, tests).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new Stripe API client
func NewClient(secretKey string, opts ...Option) *Client {
	c := &Client{
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Card declines and bad parameters are answers, not outages.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[stripe] circuit %s: %s -> %s", name, from, to)
		},
	})

	return c
}

// PaymentIntentParams describes a payment intent to create.
type PaymentIntentParams struct {
	Amount   int64
	Currency string
	Metadata map[string]string
	// IdempotencyKey is forwarded as the Idempotency-Key header when set.
	IdempotencyKey string
}

// ConfirmParams confirms an intent server-side.
type ConfirmParams struct {
	PaymentMethod string
	ReturnURL     string
}

// PaymentIntent is the subset of the Stripe payment intent object the camp uses.
type PaymentIntent struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ClientSecret string            `json:"client_secret"`
	Metadata     map[string]string `json:"metadata"`
	LastError    *PaymentError     `json:"last_payment_error,omitempty"`
}

// PaymentError is the last error attached to a payment intent.
type PaymentError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// CreatePaymentIntent creates a card payment intent with automatic payment
// methods enabled, redirects included.
func (c *Client) CreatePaymentIntent(ctx context.Context, p PaymentIntentParams) (*PaymentIntent, error) {
	data := url.Values{}
	data.Set("amount", fmt.Sprintf("%d", p.Amount))
	data.Set("currency", p.Currency)
	data.Add("payment_method_types[]", "card")
	data.Set("automatic_payment_methods[enabled]", "true")
	data.Set("automatic_payment_methods[allow_redirects]", "always")
	setMetadata(data, p.Metadata)

	var pi PaymentIntent
	if err := c.post(ctx, "/payment_intents", data, p.IdempotencyKey, &pi); err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("create payment intent: missing intent ID in response")
	}

	log.Printf("[stripe] Created payment intent %s (%d %s, status=%s)", pi.ID, pi.Amount, pi.Currency, pi.Status)
	return &pi, nil
}

// RetrievePaymentIntent fetches the current state of an intent.
func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var pi PaymentIntent
	if err := c.get(ctx, "/payment_intents/"+url.PathEscape(id), &pi); err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	return &pi, nil
}

// ConfirmPaymentIntent confirms an intent with the given payment method.
func (c *Client) ConfirmPaymentIntent(ctx context.Context, id string, p ConfirmParams) (*PaymentIntent, error) {
	data := url.Values{}
	if p.PaymentMethod != "" {
		data.Set("payment_method", p.PaymentMethod)
	}
	if p.ReturnURL != "" {
		data.Set("return_url", p.ReturnURL)
	}

	var pi PaymentIntent
	if err := c.post(ctx, "/payment_intents/"+url.PathEscape(id)+"/confirm", data, "", &pi); err != nil {
		return nil, fmt.Errorf("confirm payment intent: %w", err)
	}
	return &pi, nil
}

// IntentIDFromClientSecret extracts "pi_123" from "pi_123_secret_abc".
func IntentIDFromClientSecret(secret string) (string, error) {
	idx := strings.Index(secret, "_secret_")
	if idx <= 0 {
		return "", fmt.Errorf("malformed client secret")
	}
	return secret[:idx], nil
}

func setMetadata(data url.Values, md map[string]string) {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data.Set("metadata["+k+"]", md[k])
	}
}

// HTTP helpers

func (c *Client) post(ctx context.Context, path string, data url.Values, idempotencyKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	return c.doRequest(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.doRequest(req, out)
}

func (c *Client) doRequest(req *http.Request, out any) error {
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Stripe-Version", APIVersion)

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrUnavailable
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse stripe response: %w", err)
	}
	return nil
}

func (c *Client) roundTrip(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("read stripe response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, buf.Bytes())
	}

	return buf.Bytes(), nil
}
