package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/payhook/internal/domain"
)

type OrderRepository interface {
	// InsertOrder persists the order and all its items in one transaction.
	InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	GetOrderBySessionID(ctx context.Context, sessionID string) (domain.Order, error)

	// UpdateStatusIfPending is a single conditional write, true iff the
	// order actually transitioned. A false result with no error means the
	// order was no longer pending.
	UpdateStatusIfPending(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, paymentID string) (bool, error)

	SearchOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
}

type WebhookEventRepository interface {
	// InsertEvent records a processed provider event, false if the event
	// id was already recorded.
	InsertEvent(ctx context.Context, event domain.WebhookEvent) (bool, error)

	GetEvent(ctx context.Context, eventID string) (domain.WebhookEvent, error)
}
