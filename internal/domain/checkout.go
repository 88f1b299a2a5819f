package domain

import (
	"net/url"

	"github.com/google/uuid"
)

// CartItemInput is one entry of the client-side cart snapshot handed to
// checkout. Prices are trusted as-is, the storefront owns the cart.
type CartItemInput struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice Money
	Quantity  int32
	ImageURL  *url.URL
}

type Customer struct {
	Email   string
	OwnerID *string // nil for guest checkout
}

// CheckoutSessionRequest is what the payment provider needs to host a
// checkout flow. Line-item amounts are in minor currency units.
type CheckoutSessionRequest struct {
	LineItems     []SessionLineItem
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
}

type SessionLineItem struct {
	Name            string
	UnitAmountMinor int64
	Currency        string
	Quantity        int64
	ImageURL        string
}

// CheckoutSession is the provider-hosted session the client is redirected to.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}
