// Package compensation computes Art. 19 delay compensation: EU tiers,
// national or operator override schedules, denials and the minimum payout.
package compensation

import (
	"strings"

	"github.com/shopspring/decimal"

	"railclaim/internal/catalog"
	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
)

type Source string

const (
	SourceEU               Source = "eu"
	SourceNationalOverride Source = "national_override"
	SourceDenied           Source = "denied"
)

// RefundPolicy decides what an earlier refund does to compensation.
type RefundPolicy string

const (
	// RefundZeroCompensation denies compensation once a refund was paid.
	RefundZeroCompensation RefundPolicy = "zero_compensation"
	// RefundAdjustBasis deducts the refunded amount from the basis.
	RefundAdjustBasis RefundPolicy = "adjust_basis"
)

// ParseRefundPolicy accepts the policy names; empty selects the default.
func ParseRefundPolicy(s string) (RefundPolicy, error) {
	switch p := RefundPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RefundZeroCompensation, nil
	case RefundZeroCompensation, RefundAdjustBasis:
		return p, nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown refund policy %q", s)
	}
}

// Notes attached to results.
const (
	NoteSelfInflicted    = "delay caused by the passenger"
	NoteKnownDelay       = "delay was known before purchase"
	NoteExtraordinary    = "extraordinary circumstances"
	NoteRefundAlready    = "fare already refunded"
	NoteArt19Exempt      = "Art. 19 exempt in this context"
	NoteBelowMinPayout   = "below minimum payout"
	NoteBasisAdjusted    = "basis reduced by the refunded amount"
	NoteReturnTicketHalf = "return ticket without leg price: half the fare"
	NoteOverrideScope    = "override ignored: scope does not match"
)

// EUTiers is the default Art. 19 schedule.
var EUTiers = []catalog.Tier{
	{MinDelayMinutes: 60, Percent: 25, Payout: catalog.PayoutCashOrVoucher},
	{MinDelayMinutes: 120, Percent: 50, Payout: catalog.PayoutCashOrVoucher},
}

// Overrides finds a national or operator schedule. *catalog.Snapshot
// satisfies it.
type Overrides interface {
	FindOverride(key catalog.Key) (catalog.Override, bool)
}

// Input is everything the calculator reads.
type Input struct {
	DelayMinutes             int
	SelfInflicted            bool
	KnownDelayBeforePurchase bool
	Extraordinary            bool
	RefundAlready            bool
	RefundedAmount           decimal.Decimal
	RefundPolicy             RefundPolicy

	Key          catalog.Key
	ScopeClass   catalog.ScopeClass
	Art19Applies bool

	BasisPrice   domain.Money
	LegPrice     decimal.Decimal
	ReturnTicket bool
	MinPayout    decimal.Decimal
}

// Result is the compensation outcome.
type Result struct {
	DelayMinutes int            `json:"delayMinutes"`
	Percent      int            `json:"percent"`
	Basis        domain.Money   `json:"basis"`
	Amount       domain.Money   `json:"amount"`
	Source       Source         `json:"source"`
	Payout       catalog.Payout `json:"payout,omitempty"`
	Override     string         `json:"override,omitempty"`
	Notes        []string       `json:"notes"`
}

// Calculate is a pure function of its inputs.
func Calculate(in Input, overrides Overrides) Result {
	delay := max(in.DelayMinutes, 0)
	currency := in.BasisPrice.Currency
	res := Result{
		DelayMinutes: delay,
		Basis:        domain.ZeroMoney(currency),
		Amount:       domain.ZeroMoney(currency),
		Notes:        []string{},
	}

	if note, denied := denial(in); denied {
		res.Source = SourceDenied
		res.Notes = append(res.Notes, note)
		return res
	}

	tiers, override, ok := resolveSchedule(in, overrides, &res)
	if !ok {
		res.Source = SourceDenied
		res.Notes = append(res.Notes, NoteArt19Exempt)
		return res
	}
	res.Source = SourceEU
	if override != nil {
		res.Source = SourceNationalOverride
		res.Override = override.Source
		if override.Notes != "" {
			res.Notes = append(res.Notes, override.Notes)
		}
	}
	tier, reached := TierFor(tiers, delay)
	if reached {
		res.Percent = tier.Percent
		res.Payout = tier.Payout
	}

	res.Basis = basis(in, &res)
	res.Amount = res.Basis.Percent(decimal.NewFromInt(int64(res.Percent))).Round()

	if res.Amount.IsPositive() && res.Amount.Amount.LessThan(in.MinPayout) {
		res.Amount = domain.ZeroMoney(currency)
		res.Source = SourceDenied
		res.Notes = append(res.Notes, NoteBelowMinPayout)
	}
	return res
}

// denial applies the short-circuits in priority order.
func denial(in Input) (string, bool) {
	switch {
	case in.SelfInflicted:
		return NoteSelfInflicted, true
	case in.KnownDelayBeforePurchase:
		return NoteKnownDelay, true
	case in.Extraordinary:
		return NoteExtraordinary, true
	case in.RefundAlready && in.RefundPolicy != RefundAdjustBasis:
		return NoteRefundAlready, true
	}
	return "", false
}

// resolveSchedule returns the override schedule when one matches, else the
// EU tiers. ok is false when Art. 19 is exempt and nothing replaces it.
func resolveSchedule(in Input, overrides Overrides, res *Result) ([]catalog.Tier, *catalog.Override, bool) {
	if overrides != nil {
		if o, found := overrides.FindOverride(in.Key); found {
			if o.ScopeClass == "" || o.ScopeClass == in.ScopeClass {
				return o.Tiers, &o, true
			}
			res.Notes = append(res.Notes, NoteOverrideScope)
		}
	}
	if !in.Art19Applies {
		return nil, nil, false
	}
	return EUTiers, nil, true
}

// TierFor picks the highest percent whose minimum delay is reached. Equal
// percents prefer the higher threshold.
func TierFor(tiers []catalog.Tier, delay int) (catalog.Tier, bool) {
	var best catalog.Tier
	found := false
	for _, t := range tiers {
		if t.MinDelayMinutes > delay {
			continue
		}
		if !found || t.Percent > best.Percent || (t.Percent == best.Percent && t.MinDelayMinutes > best.MinDelayMinutes) {
			best, found = t, true
		}
	}
	return best, found
}

func basis(in Input, res *Result) domain.Money {
	var b domain.Money
	switch {
	case in.LegPrice.IsPositive():
		b = domain.NewMoney(in.LegPrice, in.BasisPrice.Currency)
	case in.ReturnTicket:
		b = in.BasisPrice.Half()
		res.Notes = append(res.Notes, NoteReturnTicketHalf)
	default:
		b = in.BasisPrice
	}
	if in.RefundAlready && in.RefundPolicy == RefundAdjustBasis {
		b = b.Sub(domain.NewMoney(in.RefundedAmount, b.Currency))
		if b.IsNegative() {
			b = domain.ZeroMoney(b.Currency)
		}
		res.Notes = append(res.Notes, NoteBasisAdjusted)
	}
	return b
}
