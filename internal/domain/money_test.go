package domain_test

import (
	"testing"

	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency currency.Unit
		want     int64
	}{
		{name: "two-decimal currency", amount: "12.99", currency: currency.USD, want: 1299},
		{name: "whole amount", amount: "10", currency: currency.EUR, want: 1000},
		{name: "half-up rounding on the cent", amount: "10.005", currency: currency.USD, want: 1001},
		{name: "sub-cent fraction rounds down", amount: "10.004", currency: currency.USD, want: 1000},
		{name: "zero-decimal currency not shifted", amount: "500", currency: currency.JPY, want: 500},
		{name: "zero-decimal currency rounds", amount: "500.5", currency: currency.JPY, want: 501},
		{name: "zero", amount: "0", currency: currency.USD, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := domain.Money{Amount: decimal.RequireFromString(tt.amount), Currency: tt.currency}
			assert.Equal(t, tt.want, m.MinorUnits())
		})
	}
}

func TestParseMoney(t *testing.T) {
	m, err := domain.ParseMoney("35.97", "USD")
	require.NoError(t, err)
	assert.Equal(t, "35.97", m.Amount.String())
	assert.Equal(t, "USD", m.Currency.String())

	_, err = domain.ParseMoney("not-a-number", "USD")
	require.Error(t, err)

	_, err = domain.ParseMoney("35.97", "ZZZ")
	require.Error(t, err)
}

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from domain.OrderStatus
		to   domain.OrderStatus
		want bool
	}{
		{domain.OrderStatusPending, domain.OrderStatusPaid, true},
		{domain.OrderStatusPending, domain.OrderStatusCancelled, true},
		{domain.OrderStatusPending, domain.OrderStatusDelivered, false},
		{domain.OrderStatusPaid, domain.OrderStatusPending, false},
		{domain.OrderStatusPaid, domain.OrderStatusPaid, false},
		{domain.OrderStatusPaid, domain.OrderStatusProcessing, true},
		{domain.OrderStatusShipped, domain.OrderStatusDelivered, true},
		{domain.OrderStatusDelivered, domain.OrderStatusShipped, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	_, err := domain.ToOrderStatus("paid")
	require.NoError(t, err)

	_, err = domain.ToOrderStatus("unknown")
	require.EqualError(t, err, "invalid order status")
}
