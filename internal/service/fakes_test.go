package service_test

import (
	"context"
	"fmt"
	"net/url"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/repository"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// fakeOrderRepo keeps orders in a map keyed by order id.
type fakeOrderRepo struct {
	orders map[uuid.UUID]domain.Order

	insertErr error
	getErr    error
	updateErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[uuid.UUID]domain.Order{}}
}

func (r *fakeOrderRepo) InsertOrder(_ context.Context, order domain.Order) (uuid.UUID, error) {
	if r.insertErr != nil {
		return uuid.Nil, r.insertErr
	}

	order.ID = uuid.New()
	order.Status = domain.OrderStatusPending
	r.orders[order.ID] = order

	return order.ID, nil
}

func (r *fakeOrderRepo) GetOrder(_ context.Context, orderID uuid.UUID) (domain.Order, error) {
	if r.getErr != nil {
		return domain.Order{}, r.getErr
	}

	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, repository.ErrNotFound
	}
	return order, nil
}

func (r *fakeOrderRepo) GetOrderBySessionID(_ context.Context, sessionID string) (domain.Order, error) {
	if r.getErr != nil {
		return domain.Order{}, r.getErr
	}

	for _, order := range r.orders {
		if order.SessionID == sessionID {
			return order, nil
		}
	}
	return domain.Order{}, repository.ErrNotFound
}

func (r *fakeOrderRepo) UpdateStatusIfPending(_ context.Context, orderID uuid.UUID, status domain.OrderStatus, paymentID string) (bool, error) {
	if r.updateErr != nil {
		return false, r.updateErr
	}

	order, ok := r.orders[orderID]
	if !ok || order.Status != domain.OrderStatusPending {
		return false, nil
	}

	order.Status = status
	order.PaymentID = &paymentID
	r.orders[orderID] = order
	return true, nil
}

func (r *fakeOrderRepo) SearchOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	var result []domain.Order
	for _, order := range r.orders {
		if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, order.Status) {
			continue
		}
		for _, ownerID := range filter.OwnerIDs {
			if order.OwnerID != nil && *order.OwnerID == ownerID {
				result = append(result, order)
			}
		}
	}
	return result, nil
}

type fakeEventRepo struct {
	events    map[string]domain.WebhookEvent
	insertErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[string]domain.WebhookEvent{}}
}

func (r *fakeEventRepo) InsertEvent(_ context.Context, event domain.WebhookEvent) (bool, error) {
	if r.insertErr != nil {
		return false, r.insertErr
	}

	if _, ok := r.events[event.ID]; ok {
		return false, nil
	}
	r.events[event.ID] = event
	return true, nil
}

func (r *fakeEventRepo) GetEvent(_ context.Context, eventID string) (domain.WebhookEvent, error) {
	event, ok := r.events[eventID]
	if !ok {
		return domain.WebhookEvent{}, repository.ErrEventNotFound
	}
	return event, nil
}

// fakeProvider mints predictable sessions and treats any signature other
// than its own as tampered.
type fakeProvider struct {
	session    domain.CheckoutSession
	createErr  error
	signature  string
	event      domain.WebhookEvent
	createdReq *domain.CheckoutSessionRequest
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	if p.createErr != nil {
		return domain.CheckoutSession{}, p.createErr
	}

	p.createdReq = &req
	return p.session, nil
}

func (p *fakeProvider) VerifyWebhookSignature(_ []byte, signatureHeader string) (domain.WebhookEvent, error) {
	if signatureHeader != p.signature {
		return domain.WebhookEvent{}, domain.ErrInvalidSignature
	}
	return p.event, nil
}

type fakeNotifier struct {
	sendErr error
	sent    []domain.Order
}

func (n *fakeNotifier) SendOrderConfirmation(_ context.Context, order domain.Order) error {
	if n.sendErr != nil {
		return n.sendErr
	}

	n.sent = append(n.sent, order)
	return nil
}

func randomCartItem() domain.CartItemInput {
	imageURL, _ := url.Parse(gofakeit.URL())

	return domain.CartItemInput{
		ProductID: uuid.MustParse(gofakeit.UUID()),
		Name:      gofakeit.ProductName(),
		UnitPrice: domain.Money{
			Amount:   decimal.NewFromFloat(gofakeit.Price(1, 100)),
			Currency: currency.USD,
		},
		Quantity: int32(gofakeit.Number(1, 5)),
		ImageURL: imageURL,
	}
}

func cartTotal(items []domain.CartItemInput) domain.Money {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Amount.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	return domain.Money{Amount: total, Currency: currency.USD}
}
