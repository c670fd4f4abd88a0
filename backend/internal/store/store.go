package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
)

const defaultPageSize = 200

// ErrPaymentIntentNotFound is returned when no ledger row exists for an intent id.
var ErrPaymentIntentNotFound = errors.New("payment intent not found")

// Store provides database-backed accessors for the payment ledger and request log.
type Store struct {
	db *sql.DB
}

// New creates a Store using the provided sql.DB connection.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &Store{db: db}, nil
}

// RecordPaymentIntent inserts a newly created intent. Replays of the same id
// (idempotent relay calls) leave the existing row untouched.
func (s *Store) RecordPaymentIntent(ctx context.Context, rec models.PaymentIntentRecord) error {
	if s == nil || s.db == nil {
		return errors.New("store: db cannot be nil")
	}

	query := `
INSERT INTO payment_intents (id, amount, currency, status, plan_name, child_name, email, booking_reference)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING
`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Amount,
		rec.Currency,
		string(rec.Status),
		nullString(rec.PlanName),
		nullString(rec.ChildName),
		nullString(rec.Email),
		nullString(rec.BookingReference),
	)
	if err != nil {
		return fmt.Errorf("store: record payment intent: %w", err)
	}
	return nil
}

// UpdatePaymentIntentStatus moves a recorded intent to a new status. lastError
// is stored for failed payments and cleared otherwise.
func (s *Store) UpdatePaymentIntentStatus(ctx context.Context, id string, status models.PaymentIntentStatus, lastError *string) error {
	if s == nil || s.db == nil {
		return errors.New("store: db cannot be nil")
	}

	query := `
UPDATE payment_intents
SET status = $2, last_error = $3, updated_at = NOW()
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, query, id, string(status), nullString(lastError))
	if err != nil {
		return fmt.Errorf("store: update payment intent %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update payment intent %s: %w", id, err)
	}
	if affected == 0 {
		return ErrPaymentIntentNotFound
	}

	log.Printf("[store] payment intent %s -> %s", id, status)
	return nil
}

// GetPaymentIntent returns the ledger row for an intent id.
func (s *Store) GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntentRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: db cannot be nil")
	}

	query := `
SELECT id, amount, currency, status, plan_name, child_name, email, booking_reference, last_error, created_at, updated_at
FROM payment_intents
WHERE id = $1
`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("store: get payment intent %s: %w", id, err)
	}
	defer rows.Close()

	recs, err := scanPaymentIntents(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrPaymentIntentNotFound
	}
	return &recs[0], nil
}

// ListPaymentIntents returns up to `limit` intents, newest first.
func (s *Store) ListPaymentIntents(ctx context.Context, limit int) ([]models.PaymentIntentRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: db cannot be nil")
	}

	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}

	query := `
SELECT id, amount, currency, status, plan_name, child_name, email, booking_reference, last_error, created_at, updated_at
FROM payment_intents
ORDER BY created_at DESC
LIMIT $1
`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list payment intents: %w", err)
	}
	defer rows.Close()

	return scanPaymentIntents(rows)
}

// ListPendingPaymentIntents returns intents without a final outcome that
// were created after `since` and last touched before `before`, oldest first.
func (s *Store) ListPendingPaymentIntents(ctx context.Context, since, before time.Time, limit int) ([]models.PaymentIntentRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: db cannot be nil")
	}

	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}

	query := `
SELECT id, amount, currency, status, plan_name, child_name, email, booking_reference, last_error, created_at, updated_at
FROM payment_intents
WHERE status IN ('requires_payment_method', 'requires_confirmation', 'requires_action', 'processing')
  AND created_at > $1
  AND updated_at < $2
ORDER BY updated_at ASC
LIMIT $3
`
	rows, err := s.db.QueryContext(ctx, query, since, before, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list pending payment intents: %w", err)
	}
	defer rows.Close()

	return scanPaymentIntents(rows)
}

// CreateRequest stores one tracked API request.
func (s *Store) CreateRequest(ctx context.Context, req models.RequestLog) error {
	if s == nil || s.db == nil {
		return errors.New("store: db cannot be nil")
	}

	query := `
INSERT INTO api_requests (method, endpoint, status_code, response_time_ms, request_size_bytes, response_size_bytes, request_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	var requestID sql.NullString
	if req.RequestID != "" {
		requestID = sql.NullString{String: req.RequestID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		req.Method,
		req.Path,
		req.StatusCode,
		req.ResponseTimeMs,
		req.RequestSizeBytes,
		req.ResponseSizeBytes,
		requestID,
	)
	if err != nil {
		return fmt.Errorf("store: create request: %w", err)
	}
	return nil
}

func scanPaymentIntents(rows *sql.Rows) ([]models.PaymentIntentRecord, error) {
	var recs []models.PaymentIntentRecord
	for rows.Next() {
		var (
			rec              models.PaymentIntentRecord
			status           string
			planName         sql.NullString
			childName        sql.NullString
			email            sql.NullString
			bookingReference sql.NullString
			lastError        sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.Amount, &rec.Currency, &status,
			&planName, &childName, &email, &bookingReference, &lastError,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan payment intent: %w", err)
		}
		rec.Status = models.PaymentIntentStatus(status)
		rec.PlanName = nullStringPtr(planName)
		rec.ChildName = nullStringPtr(childName)
		rec.Email = nullStringPtr(email)
		rec.BookingReference = nullStringPtr(bookingReference)
		rec.LastError = nullStringPtr(lastError)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate payment intents: %w", err)
	}
	return recs, nil
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}

func nullString(value *string) sql.NullString {
	if value == nil || *value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
