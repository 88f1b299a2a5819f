package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// Currencies whose smallest unit is the major unit itself, i.e. amounts
// are not shifted when expressed in minor units.
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {},
	"KMF": {}, "KRW": {}, "MGA": {}, "PYG": {}, "RWF": {},
	"UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// MinorUnits expresses the amount in the smallest unit of its currency,
// rounding half-up on that unit. 12.99 USD -> 1299, 500 JPY -> 500.
func (m Money) MinorUnits() int64 {
	amount := m.Amount
	if _, ok := zeroDecimalCurrencies[m.Currency.String()]; !ok {
		amount = amount.Shift(2)
	}

	return amount.Round(0).IntPart()
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

func ParseMoney(amount, currencyCode string) (Money, error) {
	var m Money

	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return m, fmt.Errorf("decimal.NewFromString[%s]: %w", amount, err)
	}

	parsedCurrency, err := currency.ParseISO(currencyCode)
	if err != nil {
		return m, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}

	return Money{Amount: parsedAmount, Currency: parsedCurrency}, nil
}
