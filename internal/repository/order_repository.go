package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/port"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	ErrNotFound = errors.New("order not found")
)

// dbConn is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type orderRepository struct {
	db dbConn
}

func NewOrder(pool *pgxpool.Pool) (port.OrderRepository, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}

	return &orderRepository{db: pool}, nil
}

func NewOrderWithTx(tx pgx.Tx) (port.OrderRepository, error) {
	if tx == nil {
		return nil, errors.New("tx is nil")
	}

	return &orderRepository{db: tx}, nil
}

const insertOrderQuery = `
	INSERT INTO orders (owner_id, customer_email, shipping, status, total_amount, total_currency, session_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id`

const insertOrderItemQuery = `
	INSERT INTO order_items (order_id, product_id, name, unit_price_amount, unit_price_currency, quantity, image_url)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

const selectOrderColumns = `
	id, owner_id, customer_email, shipping, status, total_amount, total_currency,
	session_id, payment_id, created_at, updated_at`

const selectOrderItemColumns = `
	order_id, product_id, name, unit_price_amount, unit_price_currency, quantity, image_url, created_at`

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error) {
	if len(order.Items) == 0 {
		return uuid.Nil, errors.New("no items in order")
	}

	if order.SessionID == "" {
		return uuid.Nil, errors.New("session ID is empty")
	}

	shipping, err := marshalShipping(order.Shipping)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshalShipping: %w", err)
	}

	orderID, err := withTx(ctx, r.db, func(tx pgx.Tx) (uuid.UUID, error) {
		var orderID uuid.UUID

		err := tx.QueryRow(ctx, insertOrderQuery,
			order.OwnerID,
			order.CustomerEmail,
			shipping,
			string(domain.OrderStatusPending),
			order.Total.Amount,
			order.Total.Currency.String(),
			order.SessionID,
		).Scan(&orderID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("tx.QueryRow insert order: %w", err)
		}

		// TODO: batch items via tx.SendBatch
		for _, item := range order.Items {
			_, err := tx.Exec(ctx, insertOrderItemQuery,
				orderID,
				item.ProductID,
				item.Name,
				item.UnitPrice.Amount,
				item.UnitPrice.Currency.String(),
				item.Quantity,
				lo.ToPtr(urlToString(item.ImageURL)),
			)
			if err != nil {
				return uuid.Nil, fmt.Errorf("tx.Exec insert item: %w", err)
			}
		}

		return orderID, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("withTx: %w", err)
	}

	return orderID, nil
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	if orderID == uuid.Nil {
		return domain.Order{}, errors.New("orderID is empty")
	}

	return r.getOrderWhere(ctx, "id = $1", orderID)
}

func (r *orderRepository) GetOrderBySessionID(ctx context.Context, sessionID string) (domain.Order, error) {
	if sessionID == "" {
		return domain.Order{}, errors.New("sessionID is empty")
	}

	return r.getOrderWhere(ctx, "session_id = $1", sessionID)
}

func (r *orderRepository) getOrderWhere(ctx context.Context, condition string, arg any) (domain.Order, error) {
	var o domain.Order

	order, err := withTx(ctx, r.db, func(tx pgx.Tx) (domain.Order, error) {
		query := fmt.Sprintf("SELECT %s FROM orders WHERE %s", selectOrderColumns, condition)

		rows, err := tx.Query(ctx, query, arg)
		if err != nil {
			return o, fmt.Errorf("tx.Query order: %w", err)
		}

		row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[orderRow])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return o, ErrNotFound
			}
			return o, fmt.Errorf("pgx.CollectExactlyOneRow: %w", err)
		}

		itemRows, err := tx.Query(ctx,
			fmt.Sprintf("SELECT %s FROM order_items WHERE order_id = $1 ORDER BY created_at, product_id", selectOrderItemColumns),
			row.ID)
		if err != nil {
			return o, fmt.Errorf("tx.Query items: %w", err)
		}

		dbItems, err := pgx.CollectRows(itemRows, pgx.RowToStructByName[orderItemRow])
		if err != nil {
			return o, fmt.Errorf("pgx.CollectRows: %w", err)
		}

		domainOrder, err := mapOrderRowToDomain(row, dbItems)
		if err != nil {
			return o, fmt.Errorf("mapOrderRowToDomain: %w", err)
		}

		return domainOrder, nil
	})
	if err != nil {
		return o, fmt.Errorf("withTx: %w", err)
	}

	return order, nil
}

const updateStatusIfPendingQuery = `
	UPDATE orders
	SET status = $2, payment_id = $3, updated_at = now()
	WHERE id = $1 AND status = 'pending'`

func (r *orderRepository) UpdateStatusIfPending(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, paymentID string) (bool, error) {
	if orderID == uuid.Nil {
		return false, errors.New("orderID is empty")
	}

	if status == "" {
		return false, errors.New("status is empty")
	}

	if !domain.OrderStatusPending.CanTransitionTo(status) {
		return false, fmt.Errorf("illegal transition pending -> %s", status)
	}

	cmdTag, err := r.db.Exec(ctx, updateStatusIfPendingQuery, orderID, string(status), emptyStrToNil(paymentID))
	if err != nil {
		return false, fmt.Errorf("db.Exec: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

const searchOrdersQuery = `
	SELECT ` + selectOrderColumns + `
	FROM orders
	WHERE ($1::uuid[] IS NULL OR id = ANY($1))
	  AND ($2::text[] IS NULL OR owner_id = ANY($2))
	  AND ($3::text[] IS NULL OR session_id = ANY($3))
	  AND ($4::text[] IS NULL OR status = ANY($4))
	  AND ($5::timestamptz IS NULL OR created_at >= $5)
	  AND ($6::timestamptz IS NULL OR created_at <= $6)
	ORDER BY created_at DESC`

func (r *orderRepository) SearchOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	var statuses []string
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}

	var createdAfter, createdBefore *time.Time
	if filter.CreatedAt != nil {
		createdAfter = filter.CreatedAt.After
		createdBefore = filter.CreatedAt.Before
	}

	rows, err := r.db.Query(ctx, searchOrdersQuery,
		nilSliceIfEmpty(filter.IDs),
		nilSliceIfEmpty(filter.OwnerIDs),
		nilSliceIfEmpty(filter.SessionIDs),
		nilSliceIfEmpty(statuses),
		createdAfter,
		createdBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("db.Query orders: %w", err)
	}

	orderRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[orderRow])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	if len(orderRows) == 0 {
		return nil, nil
	}

	orderIDs := make([]uuid.UUID, 0, len(orderRows))
	for _, row := range orderRows {
		orderIDs = append(orderIDs, row.ID)
	}

	itemRows, err := r.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM order_items WHERE order_id = ANY($1) ORDER BY created_at, product_id", selectOrderItemColumns),
		orderIDs)
	if err != nil {
		return nil, fmt.Errorf("db.Query items: %w", err)
	}

	dbItems, err := pgx.CollectRows(itemRows, pgx.RowToStructByName[orderItemRow])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows items: %w", err)
	}

	// Group items by order
	itemsByOrder := make(map[uuid.UUID][]orderItemRow)
	for _, item := range dbItems {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	orders := make([]domain.Order, 0, len(orderRows))
	for _, row := range orderRows {
		order, err := mapOrderRowToDomain(row, itemsByOrder[row.ID])
		if err != nil {
			return nil, fmt.Errorf("mapOrderRowToDomain: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, nil
}

type orderRow struct {
	ID            uuid.UUID       `db:"id"`
	OwnerID       *string         `db:"owner_id"`
	CustomerEmail string          `db:"customer_email"`
	Shipping      []byte          `db:"shipping"`
	Status        string          `db:"status"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	TotalCurrency string          `db:"total_currency"`
	SessionID     string          `db:"session_id"`
	PaymentID     *string         `db:"payment_id"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

type orderItemRow struct {
	OrderID           uuid.UUID       `db:"order_id"`
	ProductID         uuid.UUID       `db:"product_id"`
	Name              string          `db:"name"`
	UnitPriceAmount   decimal.Decimal `db:"unit_price_amount"`
	UnitPriceCurrency string          `db:"unit_price_currency"`
	Quantity          int32           `db:"quantity"`
	ImageUrl          *string         `db:"image_url"`
	CreatedAt         time.Time       `db:"created_at"`
}

func mapOrderRowToDomain(row orderRow, itemRows []orderItemRow) (domain.Order, error) {
	var o domain.Order

	items, err := mapOrderItemRowsToDomain(itemRows)
	if err != nil {
		return o, fmt.Errorf("mapOrderItemRowsToDomain: %w", err)
	}

	status, err := domain.ToOrderStatus(row.Status)
	if err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", row.Status, err)
	}

	parsedCurrency, err := currency.ParseISO(row.TotalCurrency)
	if err != nil {
		return o, fmt.Errorf("currency[%s] is not valid: %w", row.TotalCurrency, err)
	}

	shipping, err := unmarshalShipping(row.Shipping)
	if err != nil {
		return o, fmt.Errorf("unmarshalShipping: %w", err)
	}

	return domain.Order{
		ID:            row.ID,
		OwnerID:       row.OwnerID,
		CustomerEmail: row.CustomerEmail,
		Shipping:      shipping,
		Status:        status,
		Total:         domain.Money{Amount: row.TotalAmount, Currency: parsedCurrency},
		SessionID:     row.SessionID,
		PaymentID:     row.PaymentID,
		Items:         items,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func mapOrderItemRowToDomain(row orderItemRow) (domain.OrderItem, error) {
	parsedCurrency, err := currency.ParseISO(row.UnitPriceCurrency)
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("currency[%s] is not valid: %w", row.UnitPriceCurrency, err)
	}

	var parsedURL *url.URL
	if lo.FromPtr(row.ImageUrl) != "" {
		parsedURL, err = url.Parse(*row.ImageUrl)
		if err != nil {
			return domain.OrderItem{}, fmt.Errorf("url.Parse[%s]: %w", *row.ImageUrl, err)
		}
	}

	return domain.OrderItem{
		ProductID: row.ProductID,
		Name:      row.Name,
		UnitPrice: domain.Money{Amount: row.UnitPriceAmount, Currency: parsedCurrency},
		Quantity:  row.Quantity,
		ImageURL:  parsedURL,
		CreatedAt: row.CreatedAt,
	}, nil
}

func mapOrderItemRowsToDomain(rows []orderItemRow) ([]domain.OrderItem, error) {
	var items []domain.OrderItem

	for _, row := range rows {
		item, err := mapOrderItemRowToDomain(row)
		if err != nil {
			return nil, fmt.Errorf("mapOrderItemRowToDomain: %w", err)
		}

		items = append(items, item)
	}

	return items, nil
}

func marshalShipping(a *domain.Address) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func unmarshalShipping(b []byte) (*domain.Address, error) {
	if len(b) == 0 {
		return nil, nil
	}

	var a domain.Address
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	return &a, nil
}

func urlToString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}

func emptyStrToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nilSliceIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}
