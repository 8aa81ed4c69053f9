package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	dErrors "railclaim/pkg/domain-errors"
)

// Currency is an ISO-4217 alphabetic code.
// Invariant: three upper-case ASCII letters.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
)

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	c := strings.ToUpper(strings.TrimSpace(s))
	if len(c) != 3 {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid currency code %q", s)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid currency code %q", s)
		}
	}
	return Currency(c), nil
}

func (c Currency) String() string {
	return string(c)
}

// Money is a decimal amount in a currency. Arithmetic never goes through
// float64 so equal inputs always produce equal cents.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// NewMoney builds a Money value from a decimal amount.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// MoneyFromFloat rejects NaN and infinities, which are the only float inputs
// that cannot be represented as a decimal.
func MoneyFromFloat(amount float64, currency Currency) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, dErrors.New(dErrors.CodeValidation, "amount must be a finite number")
	}
	return Money{Amount: decimal.NewFromFloat(amount), Currency: currency}, nil
}

// ZeroMoney returns 0.00 in currency.
func ZeroMoney(currency Currency) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Add returns m+o. The caller converts o into m's currency first.
func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}
}

// Sub returns m-o in m's currency.
func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}
}

// Percent returns m*pct/100 without rounding.
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(pct).Div(decimal.NewFromInt(100)), Currency: m.Currency}
}

// Half returns m/2 without rounding.
func (m Money) Half() Money {
	return Money{Amount: m.Amount.Div(decimal.NewFromInt(2)), Currency: m.Currency}
}

// Round rounds half away from zero to cents.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(2), Currency: m.Currency}
}

// FloorCents truncates towards negative infinity at cents.
func (m Money) FloorCents() Money {
	return Money{Amount: m.Amount.RoundFloor(2), Currency: m.Currency}
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// LessThan compares amounts only.
func (m Money) LessThan(o Money) bool {
	return m.Amount.LessThan(o.Amount)
}

// Equal compares amount and currency.
func (m Money) Equal(o Money) bool {
	return m.Currency == o.Currency && m.Amount.Equal(o.Amount)
}

// String renders "60.00 EUR".
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + string(m.Currency)
}

type moneyJSON struct {
	Amount   json.RawMessage `json:"amount"`
	Currency string          `json:"currency"`
}

// MarshalJSON renders the amount as a fixed two-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{
		Amount:   m.Amount.StringFixed(2),
		Currency: string(m.Currency),
	})
}

// UnmarshalJSON accepts {"amount": 12.5|"12.50", "currency": "EUR"} or a
// price string such as "99.99 EUR".
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParsePrice(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}

	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return dErrors.New(dErrors.CodeValidation, "money must be an object or a price string")
	}
	amount, err := parseAmount(raw.Amount)
	if err != nil {
		return err
	}
	cur := CurrencyEUR
	if raw.Currency != "" {
		if cur, err = ParseCurrency(raw.Currency); err != nil {
			return err
		}
	}
	*m = Money{Amount: amount, Currency: cur}
	return nil
}

// ParsePrice reads "99.99 EUR", "EUR 99.99" or a bare "99.99" (EUR).
// A comma decimal separator is accepted.
func ParsePrice(s string) (Money, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	var amountPart, currencyPart string
	switch len(fields) {
	case 1:
		amountPart = fields[0]
	case 2:
		amountPart, currencyPart = fields[0], fields[1]
		if _, err := decimal.NewFromString(normalizeDecimal(amountPart)); err != nil {
			amountPart, currencyPart = fields[1], fields[0]
		}
	default:
		return Money{}, dErrors.Newf(dErrors.CodeValidation, "unparseable price %q", s)
	}

	amount, err := decimal.NewFromString(normalizeDecimal(amountPart))
	if err != nil {
		return Money{}, dErrors.Newf(dErrors.CodeValidation, "unparseable price %q", s)
	}
	cur := CurrencyEUR
	if currencyPart != "" {
		if cur, err = ParseCurrency(currencyPart); err != nil {
			return Money{}, err
		}
	}
	return Money{Amount: amount, Currency: cur}, nil
}

func normalizeDecimal(s string) string {
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		m, err := MoneyFromFloat(f, CurrencyEUR)
		return m.Amount, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		d, err := decimal.NewFromString(normalizeDecimal(strings.TrimSpace(s)))
		if err != nil {
			return decimal.Zero, dErrors.Newf(dErrors.CodeValidation, "invalid amount %q", s)
		}
		return d, nil
	}
	return decimal.Zero, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid amount %s", string(raw)))
}
