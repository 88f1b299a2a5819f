package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/repository"
	"github.com/nikolayk812/payhook/internal/service"
	"go.uber.org/zap"
)

type checkoutService interface {
	CreateCheckout(ctx context.Context, items []domain.CartItemInput, total domain.Money,
		customer domain.Customer, shipping *domain.Address) (service.CheckoutResult, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	ListOrders(ctx context.Context, ownerID string, statuses []domain.OrderStatus) ([]domain.Order, error)
}

type OrderHandler struct {
	checkout checkoutService
	logger   *zap.Logger
}

func NewOrder(checkout checkoutService, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OrderHandler{
		checkout: checkout,
		logger:   logger,
	}
}

type checkoutRequest struct {
	Items         []checkoutItem   `json:"items" binding:"required,min=1,dive"`
	TotalAmount   string           `json:"total_amount" binding:"required"`
	Currency      string           `json:"currency" binding:"required,len=3"`
	CustomerEmail string           `json:"customer_email" binding:"required,email"`
	OwnerID       *string          `json:"owner_id"`
	Shipping      *shippingAddress `json:"shipping"`
}

type checkoutItem struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Name      string `json:"name" binding:"required"`
	UnitPrice string `json:"unit_price" binding:"required"`
	Quantity  int32  `json:"quantity" binding:"required,gt=0"`
	ImageURL  string `json:"image_url"`
}

type shippingAddress struct {
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required,len=2"`
}

type checkoutResponse struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

func (h *OrderHandler) CreateCheckout(c *gin.Context) {
	var req checkoutRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request format",
			"details": err.Error(),
		})
		return
	}

	items, total, err := mapCheckoutRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer := domain.Customer{Email: req.CustomerEmail, OwnerID: req.OwnerID}

	result, err := h.checkout.CreateCheckout(c.Request.Context(), items, total, customer, mapShipping(req.Shipping))
	if err != nil {
		requestID := c.GetString("request_id")

		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrProviderUnavailable):
			h.logger.Error("checkout provider call failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{
				"error":      "payment provider unavailable, try again",
				"request_id": requestID,
			})
		default:
			h.logger.Error("checkout failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":      "failed to create checkout",
				"request_id": requestID,
			})
		}
		return
	}

	c.JSON(http.StatusCreated, checkoutResponse{
		OrderID:     result.OrderID.String(),
		RedirectURL: result.RedirectURL,
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.checkout.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.logger.Error("get order failed", zap.String("order_id", orderID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}

	c.JSON(http.StatusOK, mapOrderResponse(order))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	ownerID := c.Query("owner_id")

	var statuses []domain.OrderStatus
	for _, raw := range c.QueryArray("status") {
		status, err := domain.ToOrderStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("unknown status %q, valid values: %v", raw, domain.OrderStatuses()),
			})
			return
		}
		statuses = append(statuses, status)
	}

	orders, err := h.checkout.ListOrders(c.Request.Context(), ownerID, statuses)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("list orders failed", zap.String("owner_id", ownerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}

	response := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, mapOrderResponse(order))
	}

	c.JSON(http.StatusOK, gin.H{"orders": response})
}

func mapCheckoutRequest(req checkoutRequest) ([]domain.CartItemInput, domain.Money, error) {
	var zero domain.Money

	total, err := domain.ParseMoney(req.TotalAmount, req.Currency)
	if err != nil {
		return nil, zero, err
	}

	items := make([]domain.CartItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		unitPrice, err := domain.ParseMoney(item.UnitPrice, req.Currency)
		if err != nil {
			return nil, zero, err
		}

		var imageURL *url.URL
		if item.ImageURL != "" {
			imageURL, err = url.Parse(item.ImageURL)
			if err != nil {
				return nil, zero, err
			}
		}

		items = append(items, domain.CartItemInput{
			ProductID: uuid.MustParse(item.ProductID), // validated by binding
			Name:      item.Name,
			UnitPrice: unitPrice,
			Quantity:  item.Quantity,
			ImageURL:  imageURL,
		})
	}

	return items, total, nil
}

func mapShipping(s *shippingAddress) *domain.Address {
	if s == nil {
		return nil
	}

	return &domain.Address{
		Line1:      s.Line1,
		Line2:      s.Line2,
		City:       s.City,
		PostalCode: s.PostalCode,
		Country:    s.Country,
	}
}

type orderResponse struct {
	OrderID       string              `json:"order_id"`
	Status        string              `json:"status"`
	TotalAmount   string              `json:"total_amount"`
	Currency      string              `json:"currency"`
	CustomerEmail string              `json:"customer_email"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int32  `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty"`
}

func mapOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		var imageURL string
		if item.ImageURL != nil {
			imageURL = item.ImageURL.String()
		}

		items = append(items, orderItemResponse{
			ProductID: item.ProductID.String(),
			Name:      item.Name,
			UnitPrice: item.UnitPrice.Amount.StringFixed(2),
			Quantity:  item.Quantity,
			ImageURL:  imageURL,
		})
	}

	return orderResponse{
		OrderID:       order.ID.String(),
		Status:        string(order.Status),
		TotalAmount:   order.Total.Amount.StringFixed(2),
		Currency:      order.Total.Currency.String(),
		CustomerEmail: order.CustomerEmail,
		Items:         items,
		CreatedAt:     order.CreatedAt,
	}
}
