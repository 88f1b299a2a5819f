package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/port"
	"go.uber.org/zap"
)

// CheckoutService converts a client-side cart snapshot into a provider
// checkout session plus a durable pending order.
type CheckoutService struct {
	orders   port.OrderRepository
	provider port.PaymentProvider
	logger   *zap.Logger

	successURL      string
	cancelURL       string
	providerTimeout time.Duration
}

func NewCheckout(orders port.OrderRepository, provider port.PaymentProvider, logger *zap.Logger,
	successURL, cancelURL string, providerTimeout time.Duration) (*CheckoutService, error) {
	if orders == nil {
		return nil, errors.New("orders repository is nil")
	}
	if provider == nil {
		return nil, errors.New("payment provider is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if providerTimeout <= 0 {
		providerTimeout = 10 * time.Second
	}

	return &CheckoutService{
		orders:          orders,
		provider:        provider,
		logger:          logger,
		successURL:      successURL,
		cancelURL:       cancelURL,
		providerTimeout: providerTimeout,
	}, nil
}

type CheckoutResult struct {
	OrderID     uuid.UUID
	RedirectURL string
}

// CreateCheckout opens a provider-hosted session for the cart, then persists
// the order and its line items atomically in pending state. The provider call
// happens first because the write needs the session id; it is never retried,
// a retry could mint a duplicate session.
func (s *CheckoutService) CreateCheckout(ctx context.Context, items []domain.CartItemInput,
	total domain.Money, customer domain.Customer, shipping *domain.Address) (CheckoutResult, error) {
	var res CheckoutResult

	if err := validateCheckout(items, total, customer); err != nil {
		return res, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, err)
	}

	items, err := mergeCartLines(items)
	if err != nil {
		return res, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, err)
	}

	sessionReq := domain.CheckoutSessionRequest{
		LineItems:     make([]domain.SessionLineItem, 0, len(items)),
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
		CustomerEmail: customer.Email,
	}
	for _, item := range items {
		sessionReq.LineItems = append(sessionReq.LineItems, domain.SessionLineItem{
			Name:            item.Name,
			UnitAmountMinor: item.UnitPrice.MinorUnits(),
			Currency:        item.UnitPrice.Currency.String(),
			Quantity:        int64(item.Quantity),
			ImageURL:        urlToString(item.ImageURL),
		})
	}

	providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	session, err := s.provider.CreateCheckoutSession(providerCtx, sessionReq)
	if err != nil {
		return res, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, err)
	}

	order := domain.Order{
		OwnerID:       customer.OwnerID,
		CustomerEmail: customer.Email,
		Shipping:      shipping,
		Status:        domain.OrderStatusPending,
		Total:         total,
		SessionID:     session.ID,
		Items:         make([]domain.OrderItem, 0, len(items)),
	}
	for _, item := range items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}

	orderID, err := s.orders.InsertOrder(ctx, order)
	if err != nil {
		// The provider session now exists with no order behind it. It will
		// expire unused, but flag it loudly for a manual sweep.
		s.logger.Error("order persistence failed after session creation, provider session is orphaned",
			zap.String("session_id", session.ID),
			zap.String("customer_email", customer.Email),
			zap.Error(err))
		return res, fmt.Errorf("orders.InsertOrder: %w", err)
	}

	s.logger.Info("checkout session created",
		zap.String("order_id", orderID.String()),
		zap.String("session_id", session.ID),
		zap.Int("items", len(items)),
		zap.String("total", total.Amount.String()))

	return CheckoutResult{OrderID: orderID, RedirectURL: session.RedirectURL}, nil
}

func validateCheckout(items []domain.CartItemInput, total domain.Money, customer domain.Customer) error {
	if len(items) == 0 {
		return errors.New("empty cart")
	}

	if customer.Email == "" {
		return errors.New("customer email is empty")
	}

	if total.IsNegative() {
		return errors.New("total is negative")
	}

	for i, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item[%d] quantity is not positive", i)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("item[%d] unit price is negative", i)
		}
		if item.Name == "" {
			return fmt.Errorf("item[%d] name is empty", i)
		}
		if item.UnitPrice.Currency != total.Currency {
			return fmt.Errorf("item[%d] currency %s does not match total currency %s",
				i, item.UnitPrice.Currency, total.Currency)
		}
	}

	return nil
}

// mergeCartLines collapses repeated lines for the same product into one,
// summing quantities. Line items are keyed by (order, product) in storage,
// so duplicates must be resolved before the provider session exists, not
// discovered on insert. Duplicates that disagree on price or name are a
// client bug and are rejected.
func mergeCartLines(items []domain.CartItemInput) ([]domain.CartItemInput, error) {
	merged := make([]domain.CartItemInput, 0, len(items))
	position := make(map[uuid.UUID]int, len(items))

	for i, item := range items {
		at, seen := position[item.ProductID]
		if !seen {
			position[item.ProductID] = len(merged)
			merged = append(merged, item)
			continue
		}

		if !merged[at].UnitPrice.Amount.Equal(item.UnitPrice.Amount) || merged[at].Name != item.Name {
			return nil, fmt.Errorf("item[%d] duplicates product %s with a different price or name", i, item.ProductID)
		}

		merged[at].Quantity += item.Quantity
	}

	return merged, nil
}

func urlToString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}

func (s *CheckoutService) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders.GetOrder: %w", err)
	}

	return order, nil
}

func (s *CheckoutService) ListOrders(ctx context.Context, ownerID string, statuses []domain.OrderStatus) ([]domain.Order, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is empty", domain.ErrInvalidRequest)
	}

	orders, err := s.orders.SearchOrders(ctx, domain.OrderFilter{
		OwnerIDs: []string{ownerID},
		Statuses: statuses,
	})
	if err != nil {
		return nil, fmt.Errorf("orders.SearchOrders: %w", err)
	}

	return orders, nil
}
