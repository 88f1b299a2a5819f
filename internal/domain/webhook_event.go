package domain

import "time"

// Event kind that drives the pending -> paid transition. All other kinds
// are acknowledged without action.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// WebhookEvent is a payment-provider notification after signature
// verification. SessionID and PaymentID are only populated for
// checkout-completed events.
type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
	PaymentID string

	ReceivedAt time.Time
}

func (e WebhookEvent) IsCheckoutCompleted() bool {
	return e.Type == EventTypeCheckoutCompleted
}
