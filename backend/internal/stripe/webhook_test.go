package stripe

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "whsec_test"

var testPayload = []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","status":"succeeded"}}}`)

func TestConstructWebhookEventValidSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	header := SignatureHeader(now, testPayload, testSecret)

	event, err := ConstructWebhookEvent(testPayload, header, testSecret, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("ConstructWebhookEvent returned error: %v", err)
	}
	if event.ID != "evt_1" || event.Type != "payment_intent.succeeded" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if len(event.Data.Object) == 0 {
		t.Fatal("expected raw data object")
	}
}

func TestConstructWebhookEventRejectsTampering(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	header := SignatureHeader(now, testPayload, testSecret)
	tampered := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_2"}}}`)

	if _, err := ConstructWebhookEvent(tampered, header, testSecret, now); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureErrors(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	if err := VerifySignature(testPayload, "", testSecret, now, DefaultTolerance); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
	if err := VerifySignature(testPayload, "t=1700000000", testSecret, now, DefaultTolerance); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature without v1, got %v", err)
	}

	old := SignatureHeader(now.Add(-10*time.Minute), testPayload, testSecret)
	if err := VerifySignature(testPayload, old, testSecret, now, DefaultTolerance); !errors.Is(err, ErrExpiredSignature) {
		t.Fatalf("expected ErrExpiredSignature, got %v", err)
	}

	wrong := SignatureHeader(now, testPayload, "whsec_other")
	if err := VerifySignature(testPayload, wrong, testSecret, now, DefaultTolerance); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureAcceptsAnyV1(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	good := SignatureHeader(now, testPayload, testSecret)
	header := "t=1700000000,v1=deadbeef," + good[len("t=1700000000,"):]

	if err := VerifySignature(testPayload, header, testSecret, now, DefaultTolerance); err != nil {
		t.Fatalf("expected second v1 to match, got %v", err)
	}
}

func TestConstructWebhookEventWithoutSecret(t *testing.T) {
	event, err := ConstructWebhookEvent(testPayload, "", "", time.Now())
	if err != nil {
		t.Fatalf("ConstructWebhookEvent returned error: %v", err)
	}
	if event.Type != "payment_intent.succeeded" {
		t.Fatalf("unexpected type %q", event.Type)
	}

	if _, err := ConstructWebhookEvent([]byte(`{"id":"evt"}`), "", "", time.Now()); err == nil {
		t.Fatal("expected error for event without type")
	}
}
