package port

import (
	"context"

	"github.com/nikolayk812/payhook/internal/domain"
)

type PaymentProvider interface {
	// CreateCheckoutSession opens a provider-hosted checkout flow. Callers
	// bound ctx with a timeout and never retry: a retried call could mint
	// a duplicate session.
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error)

	// VerifyWebhookSignature authenticates raw webhook bytes against the
	// signature header and parses the event. The only gate against forged
	// payment confirmations.
	VerifyWebhookSignature(payload []byte, signatureHeader string) (domain.WebhookEvent, error)
}

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order domain.Order) error
}
