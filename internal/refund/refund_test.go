package refund

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
)

func eur(s string) domain.Money {
	return domain.NewMoney(decimal.RequireFromString(s), domain.CurrencyEUR)
}

func boolPtr(b bool) *bool { return &b }

func TestEvaluateEligibility(t *testing.T) {
	tests := []struct {
		name      string
		in        Input
		eligible  *bool
		fallbacks []string
	}{
		{
			name:      "below threshold",
			in:        Input{DelayMinutes: 59, DelayKnown: true},
			eligible:  boolPtr(false),
			fallbacks: []string{FallbackExplainThresh},
		},
		{
			name:      "at threshold",
			in:        Input{DelayMinutes: 60, DelayKnown: true},
			eligible:  boolPtr(true),
			fallbacks: []string{FallbackOfferRefund, FallbackOfferRerouting, FallbackShowTerms},
		},
		{
			name:      "already refunded",
			in:        Input{DelayMinutes: 180, DelayKnown: true, RefundAlready: true},
			eligible:  boolPtr(false),
			fallbacks: []string{FallbackOfferRefund, FallbackOfferRerouting, FallbackShowTerms},
		},
		{
			name:      "unknown times",
			in:        Input{},
			eligible:  nil,
			fallbacks: []string{FallbackAskTimes},
		},
		{
			name:      "cancelled without times",
			in:        Input{Cancelled: true},
			eligible:  boolPtr(true),
			fallbacks: []string{FallbackOfferRefund, FallbackOfferRerouting, FallbackShowTerms},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.in)
			assert.Equal(t, tt.eligible, res.Eligible)
			assert.Equal(t, tt.fallbacks, res.Fallbacks)
			assert.NotEmpty(t, res.Reasons)
		})
	}
}

func TestEvaluateAmount(t *testing.T) {
	t.Run("refund choice pays the fare", func(t *testing.T) {
		res := Evaluate(Input{DelayMinutes: 75, DelayKnown: true, Choice: ChoiceRefund, TicketPrice: eur("49.90")})
		assert.Equal(t, "49.90 EUR", res.Amount.String())
		assert.True(t, res.CoversFullFare)
	})

	t.Run("refund choice below threshold pays nothing", func(t *testing.T) {
		res := Evaluate(Input{DelayMinutes: 30, DelayKnown: true, Choice: ChoiceRefund, TicketPrice: eur("49.90")})
		assert.True(t, res.Amount.IsZero())
		assert.False(t, res.CoversFullFare)
	})

	t.Run("rerouting pays nothing", func(t *testing.T) {
		res := Evaluate(Input{DelayMinutes: 75, DelayKnown: true, Choice: ChoiceRerouteSoon, TicketPrice: eur("49.90")})
		assert.True(t, res.Amount.IsZero())
	})

	t.Run("explicit amount wins", func(t *testing.T) {
		amt := eur("20.00")
		res := Evaluate(Input{DelayMinutes: 75, DelayKnown: true, Choice: ChoiceRefund, Amount: &amt, TicketPrice: eur("49.90")})
		assert.Equal(t, "20.00 EUR", res.Amount.String())
		assert.False(t, res.CoversFullFare)
	})

	t.Run("explicit amount within a cent covers the fare", func(t *testing.T) {
		amt := eur("49.89")
		res := Evaluate(Input{Amount: &amt, TicketPrice: eur("49.90")})
		assert.True(t, res.CoversFullFare)
	})

	t.Run("other currency never covers the fare", func(t *testing.T) {
		amt := domain.NewMoney(decimal.RequireFromString("400"), "DKK")
		res := Evaluate(Input{Amount: &amt, TicketPrice: eur("49.90")})
		assert.False(t, res.CoversFullFare)
	})
}

func TestEvaluateClampsNegativeDelay(t *testing.T) {
	res := Evaluate(Input{DelayMinutes: -5, DelayKnown: true})
	require.NotNil(t, res.DelayMinutes)
	assert.Zero(t, *res.DelayMinutes)
}

func TestParseChoice(t *testing.T) {
	for in, want := range map[string]Choice{
		"":         ChoiceNone,
		"A":        ChoiceRefund,
		"refund":   ChoiceRefund,
		"b":        ChoiceRerouteSoon,
		"c":        ChoiceRerouteLater,
		"continue": ChoiceContinue,
	} {
		got, err := ParseChoice(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseChoice("voucher")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
