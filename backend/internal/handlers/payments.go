package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
	"github.com/PortNumber53/sports-camp/backend/internal/receipt"
	"github.com/PortNumber53/sports-camp/backend/internal/store"
	stripeClient "github.com/PortNumber53/sports-camp/backend/internal/stripe"
)

const (
	msgAmountCurrencyRequired = "Amount and currency are required"
	msgAmountPlanMismatch     = "Amount does not match the selected plan"
	msgProviderUnavailable    = "Payment provider temporarily unavailable"
	msgIntentCreateFailed     = "Failed to create payment intent"
)

// IntentCreator creates payment intents at the payment provider.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, p stripeClient.PaymentIntentParams) (*stripeClient.PaymentIntent, error)
}

// PaymentLedger records relayed intents and their webhook-reported outcome.
type PaymentLedger interface {
	RecordPaymentIntent(ctx context.Context, rec models.PaymentIntentRecord) error
	UpdatePaymentIntentStatus(ctx context.Context, id string, status models.PaymentIntentStatus, lastError *string) error
	GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntentRecord, error)
}

// PaymentHandler holds dependencies for the payment relay and webhook.
type PaymentHandler struct {
	Intents       IntentCreator
	Ledger        PaymentLedger
	WebhookSecret string
	now           func() time.Time
}

// NewPaymentHandler creates a new PaymentHandler. ledger may be nil when no
// database is configured.
func NewPaymentHandler(intents IntentCreator, ledger PaymentLedger, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		Intents:       intents,
		Ledger:        ledger,
		WebhookSecret: webhookSecret,
		now:           time.Now,
	}
}

// RegisterRoutes registers the relay and webhook routes. relayMiddleware wraps
// only the intent creation route.
func (h *PaymentHandler) RegisterRoutes(router chi.Router, relayMiddleware ...func(http.Handler) http.Handler) {
	router.With(relayMiddleware...).Post("/api/create-payment-intent", h.CreatePaymentIntent())
	router.Post("/api/webhooks/stripe", h.HandleWebhook())
	if h.Ledger != nil {
		router.Get("/api/payment-intents/{id}", h.GetPaymentIntent())
		router.Get("/api/payment-intents/{id}/receipt", h.GetReceipt())
	}
}

// CreatePaymentIntent relays an amount/currency/metadata triple to the
// provider and returns the client secret the browser confirms with.
func (h *PaymentHandler) CreatePaymentIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.PaymentIntentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}

		req.Currency = strings.ToLower(strings.TrimSpace(req.Currency))
		if req.Amount == 0 || req.Currency == "" {
			writeError(w, http.StatusBadRequest, msgAmountCurrencyRequired)
			return
		}

		// Known plans are priced server-side; unknown plan names keep the
		// caller-supplied amount.
		if plan, err := models.PlanByName(req.Metadata["planName"]); err == nil && plan.AmountMinor() != req.Amount {
			log.Printf("[relay] amount %d does not match plan %q (%d)", req.Amount, plan.Name, plan.AmountMinor())
			writeError(w, http.StatusBadRequest, msgAmountPlanMismatch)
			return
		}

		log.Printf("[relay] creating payment intent: amount=%d currency=%s plan=%q", req.Amount, req.Currency, req.Metadata["planName"])

		pi, err := h.Intents.CreatePaymentIntent(r.Context(), stripeClient.PaymentIntentParams{
			Amount:         req.Amount,
			Currency:       req.Currency,
			Metadata:       req.Metadata,
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
		})
		if err != nil {
			log.Printf("[relay] error creating payment intent: %v", err)
			writeProviderError(w, err)
			return
		}

		log.Printf("[relay] payment intent created: id=%s amount=%d status=%s", pi.ID, pi.Amount, pi.Status)
		h.record(r.Context(), req, pi)

		writeJSON(w, http.StatusOK, models.PaymentIntentResponse{
			ClientSecret:    pi.ClientSecret,
			PaymentIntentID: pi.ID,
		})
	}
}

func (h *PaymentHandler) record(ctx context.Context, req models.PaymentIntentRequest, pi *stripeClient.PaymentIntent) {
	if h.Ledger == nil {
		return
	}

	rec := models.PaymentIntentRecord{
		ID:               pi.ID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Status:           models.PaymentIntentStatus(pi.Status),
		PlanName:         metadataPtr(req.Metadata, "planName"),
		ChildName:        metadataPtr(req.Metadata, "childName"),
		Email:            metadataPtr(req.Metadata, "email"),
		BookingReference: metadataPtr(req.Metadata, "bookingReference"),
	}
	if rec.Status == "" {
		rec.Status = models.IntentRequiresPaymentMethod
	}
	if err := h.Ledger.RecordPaymentIntent(ctx, rec); err != nil {
		log.Printf("[relay] failed to record payment intent %s: %v", pi.ID, err)
	}
}

func writeProviderError(w http.ResponseWriter, err error) {
	var apiErr *stripeClient.APIError
	switch {
	case errors.As(err, &apiErr):
		writeJSON(w, apiErr.HTTPStatus(), models.ErrorResponse{
			Error: apiErr.Message,
			Type:  apiErr.Type,
			Code:  apiErr.Code,
		})
	case errors.Is(err, stripeClient.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, msgProviderUnavailable)
	default:
		writeError(w, http.StatusInternalServerError, msgIntentCreateFailed)
	}
}

func metadataPtr(md map[string]string, key string) *string {
	v, ok := md[key]
	if !ok || v == "" {
		return nil
	}
	return &v
}

// GetPaymentIntent returns the ledger row for an intent, used by the
// payment-success page after a redirect.
func (h *PaymentHandler) GetPaymentIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := h.Ledger.GetPaymentIntent(r.Context(), id)
		if errors.Is(err, store.ErrPaymentIntentNotFound) {
			writeError(w, http.StatusNotFound, "payment intent not found")
			return
		}
		if err != nil {
			log.Printf("GetPaymentIntent: failed: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to load payment intent")
			return
		}

		writeJSON(w, http.StatusOK, rec)
	}
}

// GetReceipt renders a PDF receipt for a succeeded payment.
func (h *PaymentHandler) GetReceipt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := h.Ledger.GetPaymentIntent(r.Context(), id)
		if errors.Is(err, store.ErrPaymentIntentNotFound) {
			writeError(w, http.StatusNotFound, "payment intent not found")
			return
		}
		if err != nil {
			log.Printf("GetReceipt: failed: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to load payment intent")
			return
		}
		if rec.Status != models.IntentSucceeded {
			writeError(w, http.StatusConflict, "payment has not succeeded")
			return
		}

		var buf bytes.Buffer
		if err := receipt.Render(&buf, *rec); err != nil {
			log.Printf("GetReceipt: render %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to render receipt")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt_%s.pdf"`, rec.ID))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

type intentEventObject struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// HandleWebhook processes Stripe webhook events
func (h *PaymentHandler) HandleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		event, err := stripeClient.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"), h.WebhookSecret, h.now())
		if err != nil {
			log.Printf("[webhook] rejected event: %v", err)
			writeError(w, http.StatusBadRequest, "invalid webhook payload")
			return
		}

		log.Printf("[webhook] Received event %s (type: %s)", event.ID, event.Type)

		switch event.Type {
		case "payment_intent.succeeded":
			h.updateIntent(r.Context(), event, models.IntentSucceeded)
		case "payment_intent.payment_failed":
			h.updateIntent(r.Context(), event, models.IntentPaymentFailed)
		case "payment_intent.canceled":
			h.updateIntent(r.Context(), event, models.IntentCanceled)
		case "payment_intent.processing":
			h.updateIntent(r.Context(), event, models.IntentProcessing)
		default:
			log.Printf("[webhook] Unhandled event type: %s", event.Type)
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (h *PaymentHandler) updateIntent(ctx context.Context, event *stripeClient.Event, status models.PaymentIntentStatus) {
	var obj intentEventObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil || obj.ID == "" {
		log.Printf("[webhook] %s: missing payment intent object", event.Type)
		return
	}

	var lastError *string
	if status == models.IntentPaymentFailed && obj.LastPaymentError != nil && obj.LastPaymentError.Message != "" {
		lastError = &obj.LastPaymentError.Message
	}

	log.Printf("[webhook] payment intent %s -> %s", obj.ID, status)

	if h.Ledger == nil {
		return
	}
	if err := h.Ledger.UpdatePaymentIntentStatus(ctx, obj.ID, status, lastError); err != nil {
		log.Printf("[webhook] failed to update payment intent %s: %v", obj.ID, err)
	}
}
