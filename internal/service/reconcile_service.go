package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/port"
	"github.com/nikolayk812/payhook/internal/repository"
	"go.uber.org/zap"
)

type ReconcileOutcome string

const (
	// OutcomeTransitioned: the order moved pending -> paid.
	OutcomeTransitioned ReconcileOutcome = "transitioned"
	// OutcomeDuplicate: a replayed event hit an already-paid order, no-op.
	OutcomeDuplicate ReconcileOutcome = "duplicate"
	// OutcomeIgnored: event kind does not drive reconciliation.
	OutcomeIgnored ReconcileOutcome = "ignored"
	// OutcomeUnmatched: no order for the session, acknowledged anyway.
	OutcomeUnmatched ReconcileOutcome = "unmatched"
)

type ReconcileResult struct {
	Outcome ReconcileOutcome
	OrderID uuid.UUID
	EventID string
}

// ReconcileService applies payment-provider webhook events to stored orders.
// Everything downstream of signature verification is absorbed: the provider
// retries on non-2xx only, and an application-level "not found" or a failed
// side effect must never trigger a redelivery of a reconciled payment.
type ReconcileService struct {
	orders   port.OrderRepository
	events   port.WebhookEventRepository
	provider port.PaymentProvider
	notifier port.Notifier
	logger   *zap.Logger
}

func NewReconcile(orders port.OrderRepository, events port.WebhookEventRepository,
	provider port.PaymentProvider, notifier port.Notifier, logger *zap.Logger) (*ReconcileService, error) {
	if orders == nil {
		return nil, errors.New("orders repository is nil")
	}
	if events == nil {
		return nil, errors.New("events repository is nil")
	}
	if provider == nil {
		return nil, errors.New("payment provider is nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReconcileService{
		orders:   orders,
		events:   events,
		provider: provider,
		notifier: notifier,
		logger:   logger,
	}, nil
}

func (s *ReconcileService) Reconcile(ctx context.Context, payload []byte, signatureHeader string) (ReconcileResult, error) {
	var res ReconcileResult

	event, err := s.provider.VerifyWebhookSignature(payload, signatureHeader)
	if err != nil {
		return res, fmt.Errorf("provider.VerifyWebhookSignature: %w", err)
	}
	res.EventID = event.ID

	if !event.IsCheckoutCompleted() {
		res.Outcome = OutcomeIgnored
		return res, nil
	}

	if event.SessionID == "" {
		// Signed but malformed payload. Ack it, a retry would carry the
		// same body and fail the same way.
		s.logger.Warn("completed event carries no session id",
			zap.String("event_id", event.ID))
		res.Outcome = OutcomeUnmatched
		return res, nil
	}

	// Past this point the delivery must run to completion even if the
	// connection to the provider closes: a half-applied transition would
	// leave the order stuck pending with no retry trigger.
	ctx = context.WithoutCancel(ctx)

	order, err := s.orders.GetOrderBySessionID(ctx, event.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Possibly another environment's session; ack so the provider
			// does not retry forever.
			s.logger.Warn("webhook session matches no order",
				zap.String("event_id", event.ID),
				zap.String("session_id", event.SessionID))
			res.Outcome = OutcomeUnmatched
			return res, nil
		}
		return res, fmt.Errorf("orders.GetOrderBySessionID: %w", err)
	}
	res.OrderID = order.ID

	transitioned, err := s.orders.UpdateStatusIfPending(ctx, order.ID, domain.OrderStatusPaid, event.PaymentID)
	if err != nil {
		return res, fmt.Errorf("orders.UpdateStatusIfPending: %w", err)
	}

	if !transitioned {
		s.logger.Info("duplicate webhook delivery, order already reconciled",
			zap.String("event_id", event.ID),
			zap.String("order_id", order.ID.String()))
		res.Outcome = OutcomeDuplicate
		return res, nil
	}

	s.logger.Info("order reconciled",
		zap.String("event_id", event.ID),
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", event.PaymentID))

	// The transition is durable, everything below is best effort.
	s.recordEvent(ctx, event)
	s.notify(ctx, order, event)

	res.Outcome = OutcomeTransitioned
	return res, nil
}

func (s *ReconcileService) recordEvent(ctx context.Context, event domain.WebhookEvent) {
	if _, err := s.events.InsertEvent(ctx, event); err != nil {
		s.logger.Warn("failed to record webhook event",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

// notify sends the confirmation email from the immutable order snapshot.
// Failures are logged with enough context for a manual resend and swallowed.
func (s *ReconcileService) notify(ctx context.Context, order domain.Order, event domain.WebhookEvent) {
	if err := s.notifier.SendOrderConfirmation(ctx, order); err != nil {
		s.logger.Error("order confirmation email failed",
			zap.String("order_id", order.ID.String()),
			zap.String("recipient", order.CustomerEmail),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
