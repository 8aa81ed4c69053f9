package claim

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railclaim/internal/compensation"
	"railclaim/pkg/domain"
)

func money(s string, c domain.Currency) domain.Money {
	return domain.NewMoney(decimal.RequireFromString(s), c)
}

func comp(amount string) compensation.Result {
	return compensation.Result{Amount: money(amount, domain.CurrencyEUR), Source: compensation.SourceEU}
}

func TestAggregate(t *testing.T) {
	t.Run("totals and fee", func(t *testing.T) {
		b := Aggregate(Input{
			Currency:     domain.CurrencyEUR,
			Refund:       money("10.00", domain.CurrencyEUR),
			Compensation: comp("60.00"),
			Expenses: map[Category]domain.Money{
				CategoryMeals: money("12.35", domain.CurrencyEUR),
				CategoryOther: money("3.00", domain.CurrencyEUR),
			},
			FeePercent:     DefaultFeePercent,
			Art20_2Applies: true,
		}, DefaultRates())

		assert.Equal(t, "85.35", b.GrossClaim.Amount.StringFixed(2))
		assert.Equal(t, "21.33", b.ServiceFeeAmount.Amount.StringFixed(2), "fee is floored to cents")
		assert.Equal(t, "64.02", b.NetToClient.Amount.StringFixed(2))
		assert.Empty(t, b.Notes)
	})

	t.Run("expenses are converted into the claim currency", func(t *testing.T) {
		b := Aggregate(Input{
			Currency:       domain.CurrencyEUR,
			Expenses:       map[Category]domain.Money{CategoryHotel: money("745.00", "DKK")},
			FeePercent:     DefaultFeePercent,
			Art20_2Applies: true,
		}, DefaultRates())
		assert.True(t, b.Expenses[CategoryHotel].Equal(money("100.00", domain.CurrencyEUR)), b.Expenses[CategoryHotel].String())
	})

	t.Run("unknown currency passes through with a note", func(t *testing.T) {
		b := Aggregate(Input{
			Currency:       domain.CurrencyEUR,
			Expenses:       map[Category]domain.Money{CategoryMeals: money("50.00", "NOK")},
			FeePercent:     DefaultFeePercent,
			Art20_2Applies: true,
		}, DefaultRates())
		assert.Equal(t, "50.00", b.Expenses[CategoryMeals].Amount.StringFixed(2))
		require.Len(t, b.Notes, 1)
		assert.Contains(t, b.Notes[0], "no rate for NOK to EUR")
	})

	t.Run("assistance expenses are excluded when Art. 20(2) is exempt", func(t *testing.T) {
		b := Aggregate(Input{
			Currency: domain.CurrencyEUR,
			Expenses: map[Category]domain.Money{
				CategoryMeals:        money("20.00", domain.CurrencyEUR),
				CategoryAltTransport: money("35.00", domain.CurrencyEUR),
				CategoryOther:        money("5.00", domain.CurrencyEUR),
			},
			FeePercent: DefaultFeePercent,
		}, DefaultRates())
		assert.Len(t, b.Expenses, 1)
		assert.Equal(t, "5.00", b.GrossClaim.Amount.StringFixed(2))
		assert.Len(t, b.Notes, 2)
	})
}

func TestGrossIsSumOfComponents(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	cents := func() decimal.Decimal { return decimal.New(rng.Int64N(1_000_000), -2) }

	for i := 0; i < 500; i++ {
		expenses := map[Category]domain.Money{}
		for _, c := range Categories {
			if rng.IntN(2) == 0 {
				expenses[c] = domain.NewMoney(cents(), domain.CurrencyEUR)
			}
		}
		fee := decimal.NewFromInt(rng.Int64N(101))
		in := Input{
			Currency:       domain.CurrencyEUR,
			Refund:         domain.NewMoney(cents(), domain.CurrencyEUR),
			Compensation:   compensation.Result{Amount: domain.NewMoney(cents(), domain.CurrencyEUR)},
			Expenses:       expenses,
			FeePercent:     fee,
			Art20_2Applies: true,
		}
		b := Aggregate(in, DefaultRates())

		want := in.Refund.Amount.Add(in.Compensation.Amount.Amount)
		for _, m := range expenses {
			want = want.Add(m.Amount)
		}
		require.True(t, b.GrossClaim.Amount.Equal(want), "iteration %d", i)
		require.True(t, b.NetToClient.Amount.Equal(b.GrossClaim.Amount.Sub(b.ServiceFeeAmount.Amount)))
		require.False(t, b.ServiceFeeAmount.Amount.GreaterThan(b.GrossClaim.Amount.Mul(fee).Div(decimal.NewFromInt(100))))
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Taxi ")
	require.NoError(t, err)
	assert.Equal(t, CategoryAltTransport, c)

	_, err = ParseCategory("souvenirs")
	require.Error(t, err)
}

func TestStaticRatesMerge(t *testing.T) {
	r := DefaultRates().Merge(map[string]float64{"nok": 11.5, "bad": 2, "SEK": -1})
	_, ok := r["NOK"]
	assert.True(t, ok)
	assert.True(t, r["SEK"].Equal(decimal.RequireFromString("11.0")))

	_, ok = DefaultRates()["NOK"]
	assert.False(t, ok, "merge does not modify the receiver")
}
