package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/port"
	"github.com/samber/lo"
)

var ErrEventNotFound = errors.New("webhook event not found")

// webhookEventRepository is an audit log of processed provider events.
// Replayed deliveries hit the primary-key conflict and are reported as
// not inserted rather than as errors.
type webhookEventRepository struct {
	pool *pgxpool.Pool
}

func NewWebhookEvent(pool *pgxpool.Pool) (port.WebhookEventRepository, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}

	return &webhookEventRepository{pool: pool}, nil
}

const insertEventQuery = `
	INSERT INTO webhook_events (id, type, session_id, payment_id)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO NOTHING`

func (r *webhookEventRepository) InsertEvent(ctx context.Context, event domain.WebhookEvent) (bool, error) {
	if event.ID == "" {
		return false, errors.New("event ID is empty")
	}

	cmdTag, err := r.pool.Exec(ctx, insertEventQuery,
		event.ID,
		event.Type,
		emptyStrToNil(event.SessionID),
		emptyStrToNil(event.PaymentID),
	)
	if err != nil {
		return false, fmt.Errorf("pool.Exec: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

const getEventQuery = `
	SELECT id, type, session_id, payment_id, received_at
	FROM webhook_events
	WHERE id = $1`

func (r *webhookEventRepository) GetEvent(ctx context.Context, eventID string) (domain.WebhookEvent, error) {
	var e domain.WebhookEvent

	if eventID == "" {
		return e, errors.New("eventID is empty")
	}

	var sessionID, paymentID *string

	err := r.pool.QueryRow(ctx, getEventQuery, eventID).
		Scan(&e.ID, &e.Type, &sessionID, &paymentID, &e.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return e, ErrEventNotFound
		}
		return e, fmt.Errorf("pool.QueryRow: %w", err)
	}

	e.SessionID = lo.FromPtr(sessionID)
	e.PaymentID = lo.FromPtr(paymentID)

	return e, nil
}
