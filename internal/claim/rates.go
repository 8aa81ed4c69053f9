package claim

import (
	"github.com/shopspring/decimal"

	"railclaim/pkg/domain"
)

// RateProvider converts money between currencies. ok is false when either
// currency is unknown to the provider.
type RateProvider interface {
	Convert(m domain.Money, to domain.Currency) (converted domain.Money, ok bool)
}

// StaticRates holds units of each currency per one EUR.
type StaticRates map[domain.Currency]decimal.Decimal

// DefaultRates is the built-in approximate table.
func DefaultRates() StaticRates {
	return StaticRates{
		"EUR": decimal.NewFromInt(1),
		"DKK": decimal.RequireFromString("7.45"),
		"SEK": decimal.RequireFromString("11.0"),
		"BGN": decimal.RequireFromString("1.96"),
		"CZK": decimal.RequireFromString("25"),
		"HUF": decimal.RequireFromString("385"),
		"PLN": decimal.RequireFromString("4.35"),
		"RON": decimal.RequireFromString("4.95"),
		"CHF": decimal.RequireFromString("0.95"),
		"GBP": decimal.RequireFromString("0.85"),
	}
}

// Merge returns a copy of r with extra rates layered on top.
func (r StaticRates) Merge(extra map[string]float64) StaticRates {
	out := make(StaticRates, len(r)+len(extra))
	for k, v := range r {
		out[k] = v
	}
	for code, rate := range extra {
		c, err := domain.ParseCurrency(code)
		if err != nil || rate <= 0 {
			continue
		}
		out[c] = decimal.NewFromFloat(rate)
	}
	return out
}

func (r StaticRates) Convert(m domain.Money, to domain.Currency) (domain.Money, bool) {
	if m.Currency == to {
		return m, true
	}
	from, okFrom := r[m.Currency]
	target, okTo := r[to]
	if !okFrom || !okTo || from.IsZero() {
		return m, false
	}
	amount := m.Amount.Div(from).Mul(target)
	return domain.NewMoney(amount, to).Round(), true
}
