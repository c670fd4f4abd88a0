package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
)

const createIntentPath = "/api/create-payment-intent"

// RelayClient calls the payment intent relay over HTTP.
type RelayClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRelayClient creates a client for the relay served at baseURL
// (e.g. "http://localhost:3000"). httpClient may be nil.
func NewRelayClient(baseURL string, httpClient *http.Client) *RelayClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &RelayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// CreatePaymentIntent posts the request to the relay. A non-2xx answer is
// returned as *RelayError. The booking reference, when present, is sent as
// the Idempotency-Key so a repeated attempt reuses the same intent.
func (c *RelayClient) CreatePaymentIntent(ctx context.Context, in models.PaymentIntentRequest) (models.PaymentIntentResponse, error) {
	var out models.PaymentIntentResponse

	payload, err := json.Marshal(in)
	if err != nil {
		return out, fmt.Errorf("encode payment intent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createIntentPath, bytes.NewReader(payload))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	if ref := in.Metadata["bookingReference"]; ref != "" {
		req.Header.Set("Idempotency-Key", ref)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return out, fmt.Errorf("read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, parseRelayError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("parse relay response: %w", err)
	}
	return out, nil
}

func parseRelayError(status int, body []byte) *RelayError {
	relayErr := &RelayError{StatusCode: status}
	var payload models.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		relayErr.Message = payload.Error
		relayErr.Type = payload.Type
		relayErr.Code = payload.Code
	}
	return relayErr
}
