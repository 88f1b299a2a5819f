// Package stripe adapts the Stripe API to the payment-provider port:
// hosted checkout sessions out, verified webhook events in.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/port"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

type provider struct {
	api           *client.API
	webhookSecret string
}

func New(apiKey, webhookSecret string) (port.PaymentProvider, error) {
	if apiKey == "" {
		return nil, errors.New("api key is empty")
	}
	if webhookSecret == "" {
		return nil, errors.New("webhook secret is empty")
	}

	api := &client.API{}
	api.Init(apiKey, nil)

	return &provider{
		api:           api,
		webhookSecret: webhookSecret,
	}, nil
}

func (p *provider) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	var s domain.CheckoutSession

	if len(req.LineItems) == 0 {
		return s, errors.New("no line items")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems:  make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems)),
	}
	params.Context = ctx

	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	for _, item := range req.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{item.ImageURL})
		}

		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(item.Currency),
				UnitAmount:  stripe.Int64(item.UnitAmountMinor),
				ProductData: productData,
			},
		})
	}

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return s, fmt.Errorf("api.CheckoutSessions.New: %w", err)
	}

	return domain.CheckoutSession{
		ID:          session.ID,
		RedirectURL: session.URL,
	}, nil
}

func (p *provider) VerifyWebhookSignature(payload []byte, signatureHeader string) (domain.WebhookEvent, error) {
	var e domain.WebhookEvent

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return e, fmt.Errorf("%w: %s", domain.ErrInvalidSignature, err)
	}

	e = domain.WebhookEvent{
		ID:         event.ID,
		Type:       string(event.Type),
		ReceivedAt: time.Now().UTC(),
	}

	if !e.IsCheckoutCompleted() {
		return e, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("json.Unmarshal checkout session: %w", err)
	}

	e.SessionID = session.ID
	if session.PaymentIntent != nil {
		e.PaymentID = session.PaymentIntent.ID
	}

	return e, nil
}
