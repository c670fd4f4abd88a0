package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is how old a signed webhook timestamp may be.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("stripe: missing webhook signature")
	ErrInvalidSignature = errors.New("stripe: webhook signature mismatch")
	ErrExpiredSignature = errors.New("stripe: webhook timestamp outside tolerance")
)

// Event is a parsed webhook event. Data.Object stays raw so handlers decode
// only the object types they care about.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ConstructWebhookEvent verifies the Stripe-Signature header against secret
// and parses the payload. An empty secret skips verification.
func ConstructWebhookEvent(payload []byte, sigHeader, secret string, now time.Time) (*Event, error) {
	if secret != "" {
		if err := VerifySignature(payload, sigHeader, secret, now, DefaultTolerance); err != nil {
			return nil, err
		}
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("parse webhook event: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("parse webhook event: missing type")
	}
	return &event, nil
}

// VerifySignature checks a "t=<unix>,v1=<hex>" header. Any matching v1 entry
// is accepted so rolled secrets keep working.
func VerifySignature(payload []byte, sigHeader, secret string, now time.Time, tolerance time.Duration) error {
	if sigHeader == "" {
		return ErrMissingSignature
	}

	var (
		timestamp  int64
		signatures []string
	)
	for _, part := range strings.Split(sigHeader, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return ErrMissingSignature
	}

	signedAt := time.Unix(timestamp, 0)
	if tolerance > 0 && now.Sub(signedAt) > tolerance {
		return ErrExpiredSignature
	}

	expected := ComputeSignature(signedAt, payload, secret)
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// ComputeSignature returns the raw v1 HMAC for payload signed at t.
func ComputeSignature(t time.Time, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(t.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignatureHeader builds a Stripe-Signature value; used by tests and local tooling.
func SignatureHeader(t time.Time, payload []byte, secret string) string {
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), hex.EncodeToString(ComputeSignature(t, payload, secret)))
}
