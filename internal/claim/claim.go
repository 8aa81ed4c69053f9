// Package claim aggregates refund, compensation and expenses into the
// claim breakdown and applies the service fee.
package claim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"railclaim/internal/compensation"
	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
)

// Category is an expense category.
type Category string

const (
	CategoryMeals        Category = "meals"
	CategoryHotel        Category = "hotel"
	CategoryAltTransport Category = "alt_transport"
	CategoryOther        Category = "other"
)

// Categories lists expense categories in report order.
var Categories = []Category{CategoryMeals, CategoryHotel, CategoryAltTransport, CategoryOther}

// assistance categories fall under Art. 20(2).
var assistance = map[Category]bool{
	CategoryMeals:        true,
	CategoryHotel:        true,
	CategoryAltTransport: true,
}

// ParseCategory accepts canonical names and a few spellings.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "meals", "meal", "food":
		return CategoryMeals, nil
	case "hotel", "accommodation":
		return CategoryHotel, nil
	case "alt_transport", "alttransport", "alternative_transport", "taxi":
		return CategoryAltTransport, nil
	case "other":
		return CategoryOther, nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown expense category %q", s)
	}
}

// DefaultFeePercent is the service fee used when none is configured.
var DefaultFeePercent = decimal.NewFromInt(25)

// Input is everything the aggregator reads.
type Input struct {
	Currency       domain.Currency
	Refund         domain.Money
	Compensation   compensation.Result
	Expenses       map[Category]domain.Money
	FeePercent     decimal.Decimal
	Art20_2Applies bool
}

// Breakdown is the claim result. GrossClaim equals Refund plus the
// compensation amount plus every expense; NetToClient is GrossClaim less
// the fee.
type Breakdown struct {
	Currency          domain.Currency           `json:"currency"`
	Refund            domain.Money              `json:"refund"`
	Compensation      domain.Money              `json:"compensation"`
	Expenses          map[Category]domain.Money `json:"expenses"`
	GrossClaim        domain.Money              `json:"grossClaim"`
	ServiceFeePercent decimal.Decimal           `json:"serviceFeePercent"`
	ServiceFeeAmount  domain.Money              `json:"serviceFeeAmount"`
	NetToClient       domain.Money              `json:"netToClient"`
	Notes             []string                  `json:"notes"`
}

// Aggregate converts every component into the claim currency and totals
// them. A component with no rate passes through unconverted with a note.
func Aggregate(in Input, rates RateProvider) Breakdown {
	b := Breakdown{
		Currency:          in.Currency,
		Expenses:          make(map[Category]domain.Money, len(in.Expenses)),
		ServiceFeePercent: in.FeePercent,
		Notes:             []string{},
	}
	b.Refund = b.convert("refund", in.Refund, rates)
	b.Compensation = b.convert("compensation", in.Compensation.Amount, rates)

	gross := b.Refund.Add(b.Compensation)
	for _, cat := range sortedCategories(in.Expenses) {
		m := in.Expenses[cat]
		if assistance[cat] && !in.Art20_2Applies {
			if m.IsPositive() {
				b.Notes = append(b.Notes, fmt.Sprintf("%s excluded: Art. 20(2) exempt", cat))
			}
			continue
		}
		converted := b.convert(string(cat), m, rates)
		b.Expenses[cat] = converted
		gross = gross.Add(converted)
	}

	b.GrossClaim = gross
	b.ServiceFeeAmount = gross.Percent(in.FeePercent).FloorCents()
	b.NetToClient = gross.Sub(b.ServiceFeeAmount)
	return b
}

// convert returns m in the claim currency, rounded to cents.
func (b *Breakdown) convert(label string, m domain.Money, rates RateProvider) domain.Money {
	if m.Currency == "" || m.Currency == b.Currency || rates == nil {
		return domain.NewMoney(m.Amount, b.Currency).Round()
	}
	converted, ok := rates.Convert(m, b.Currency)
	if !ok {
		b.Notes = append(b.Notes, fmt.Sprintf("%s: no rate for %s to %s, amount passed through unconverted", label, m.Currency, b.Currency))
		return domain.NewMoney(m.Amount, b.Currency).Round()
	}
	return converted.Round()
}

func sortedCategories(m map[Category]domain.Money) []Category {
	out := make([]Category, 0, len(m))
	for _, c := range Categories {
		if _, ok := m[c]; ok {
			out = append(out, c)
		}
	}
	var extra []Category
	for c := range m {
		if !assistance[c] && c != CategoryOther {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
