package domain

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID            uuid.UUID
	OwnerID       *string // nil for guest checkout
	CustomerEmail string
	Shipping      *Address
	Status        OrderStatus

	// Total is fixed from the cart snapshot at creation and is never
	// recomputed from the items afterwards.
	Total Money

	// SessionID is the payment-provider checkout session, the sole
	// correlation key for webhook reconciliation. Unique across orders.
	SessionID string

	// PaymentID is the realized charge, nil until reconciled.
	PaymentID *string

	Items []OrderItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is an immutable snapshot of a product at order-creation time.
// ProductID is a soft reference: the catalog row may change or disappear
// without affecting historical orders.
type OrderItem struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice Money
	Quantity  int32
	ImageURL  *url.URL

	CreatedAt time.Time
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}
