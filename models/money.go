package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a value type; arithmetic returns new values and never mutates.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func NewMoney(amount float64, currency string) Money {
	return Money{
		Amount:   decimal.NewFromFloat(amount),
		Currency: currency,
	}
}

func ZeroMoney(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

func (m Money) Add(other Money) Money {
	return Money{
		Amount:   m.Amount.Add(other.Amount),
		Currency: m.Currency,
	}
}

func (m Money) MulInt(n int) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(int64(n))),
		Currency: m.Currency,
	}
}

func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}
