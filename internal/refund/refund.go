// Package refund decides Art. 18 refund eligibility and the refund amount
// that enters the claim.
package refund

import (
	"strings"

	"github.com/shopspring/decimal"

	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
)

// ThresholdMinutes is the arrival delay that opens the Art. 18 options.
const ThresholdMinutes = 60

// Choice is the Art. 18(1) option the passenger picked.
type Choice string

const (
	ChoiceNone         Choice = ""
	ChoiceRefund       Choice = "refund"
	ChoiceRerouteSoon  Choice = "reroute_soonest"
	ChoiceRerouteLater Choice = "reroute_later"
	ChoiceContinue     Choice = "continue"
)

// ParseChoice accepts the option names and the letters a, b and c.
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ChoiceNone, nil
	case "refund", "a":
		return ChoiceRefund, nil
	case "reroute_soonest", "reroute", "b":
		return ChoiceRerouteSoon, nil
	case "reroute_later", "c":
		return ChoiceRerouteLater, nil
	case "continue":
		return ChoiceContinue, nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown refund choice %q", s)
	}
}

// Recommended follow-ups for the caller's UI.
const (
	FallbackAskTimes       = "ask_actual_and_scheduled_times"
	FallbackOfferRefund    = "offer_refund_option"
	FallbackOfferRerouting = "offer_rerouting_option"
	FallbackShowTerms      = "show_terms_art18"
	FallbackExplainThresh  = "explain_threshold_60m"
)

type Input struct {
	DelayMinutes  int
	DelayKnown    bool
	Cancelled     bool
	RefundAlready bool
	Choice        Choice
	// Amount is an explicitly supplied refund and wins over the fare.
	Amount      *domain.Money
	TicketPrice domain.Money
}

// Result is the refund outcome. Eligible is nil when the delay is unknown.
type Result struct {
	DelayMinutes   *int         `json:"delayMinutes"`
	Eligible       *bool        `json:"eligible"`
	Choice         Choice       `json:"choice,omitempty"`
	Amount         domain.Money `json:"amount"`
	CoversFullFare bool         `json:"coversFullFare"`
	Reasons        []string     `json:"reasons"`
	Fallbacks      []string     `json:"fallbacks"`
}

var fullFareTolerance = decimal.RequireFromString("0.01")

// Evaluate is pure. Extraordinary circumstances play no part here.
func Evaluate(in Input) Result {
	res := Result{
		Choice:    in.Choice,
		Amount:    domain.ZeroMoney(in.TicketPrice.Currency),
		Reasons:   []string{},
		Fallbacks: []string{},
	}

	var eligible bool
	switch {
	case in.Cancelled:
		eligible = true
		res.Reasons = append(res.Reasons, "Trip cancelled: refund option (Art. 18).")
		res.Fallbacks = append(res.Fallbacks, FallbackOfferRefund, FallbackOfferRerouting, FallbackShowTerms)
	case !in.DelayKnown:
		res.Reasons = append(res.Reasons, "Missing arrival times: delay cannot be computed.")
		res.Fallbacks = append(res.Fallbacks, FallbackAskTimes)
	default:
		eligible = in.DelayMinutes >= ThresholdMinutes
		if eligible {
			res.Reasons = append(res.Reasons, "Delay >= 60 min: refund option (Art. 18).")
			res.Fallbacks = append(res.Fallbacks, FallbackOfferRefund, FallbackOfferRerouting, FallbackShowTerms)
		} else {
			res.Reasons = append(res.Reasons, "Delay < 60 min: no automatic refund.")
			res.Fallbacks = append(res.Fallbacks, FallbackExplainThresh)
		}
	}
	if in.DelayKnown {
		d := max(in.DelayMinutes, 0)
		res.DelayMinutes = &d
	}
	if in.RefundAlready {
		eligible = false
		res.Reasons = append(res.Reasons, "Already refunded.")
	}
	if in.DelayKnown || in.Cancelled || in.RefundAlready {
		res.Eligible = &eligible
	}

	switch {
	case in.Amount != nil:
		res.Amount = in.Amount.Round()
		res.Reasons = append(res.Reasons, "Refund amount supplied.")
	case in.Choice == ChoiceRefund && eligible:
		res.Amount = in.TicketPrice.Round()
		res.Reasons = append(res.Reasons, "Refund of the whole fare (Art. 18(1)(a)).")
	}

	res.CoversFullFare = coversFare(res.Amount, in.TicketPrice)
	return res
}

func coversFare(amount, fare domain.Money) bool {
	if !fare.IsPositive() || !amount.IsPositive() || amount.Currency != fare.Currency {
		return false
	}
	return amount.Amount.GreaterThanOrEqual(fare.Amount.Sub(fullFareTolerance))
}
