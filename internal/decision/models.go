package decision

import (
	"time"

	"github.com/shopspring/decimal"

	"railclaim/internal/claim"
	"railclaim/internal/compensation"
	"railclaim/internal/evidence"
	"railclaim/internal/exemption"
	"railclaim/internal/infoduty"
	"railclaim/internal/journey"
	"railclaim/internal/refund"
	"railclaim/internal/throughticket"
	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
)

// Compute holds the per-request switches for compensation.
type Compute struct {
	// EUOnly selects DelayMinEU, the delay measured at the last EU station,
	// when it is supplied.
	EUOnly                   bool
	DelayMinEU               *int
	DelayMinutes             *int
	RefundAlready            bool
	RefundedAmount           *domain.Money
	Extraordinary            bool
	SelfInflicted            bool
	KnownDelayBeforePurchase bool
	MinPayout                *decimal.Decimal
	LegPrice                 *decimal.Decimal
	ReturnTicket             bool
	Cancelled                bool
}

// RefundRequest is the passenger's Art. 18 choice.
type RefundRequest struct {
	Choice refund.Choice
	Amount *domain.Money
}

// Request is one evaluation. Hooks are keyed by raw name; the pipeline
// canonicalizes them. Currency is the claim currency and defaults to the
// ticket currency.
type Request struct {
	Journey  journey.Journey
	Hooks    map[string]evidence.Hook
	Compute  Compute
	Refund   RefundRequest
	Expenses map[claim.Category]domain.Money
	Currency domain.Currency
}

// Validate rejects shapes the engine cannot evaluate. Business outcomes are
// never errors.
func (r Request) Validate() error {
	if err := r.Journey.Validate(); err != nil {
		return err
	}
	c := r.Compute
	if c.DelayMinutes != nil && *c.DelayMinutes < 0 {
		return dErrors.New(dErrors.CodeValidation, "compute.delayMinutes must not be negative")
	}
	if c.DelayMinEU != nil && *c.DelayMinEU < 0 {
		return dErrors.New(dErrors.CodeValidation, "compute.delayMinEU must not be negative")
	}
	if c.MinPayout != nil && c.MinPayout.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "compute.minPayout must not be negative")
	}
	if c.LegPrice != nil && c.LegPrice.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "compute.legPrice must not be negative")
	}
	if c.RefundedAmount != nil && c.RefundedAmount.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "compute.refundedAmount must not be negative")
	}
	if r.Refund.Amount != nil && r.Refund.Amount.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "refund.amount must not be negative")
	}
	for cat, m := range r.Expenses {
		if m.IsNegative() {
			return dErrors.Newf(dErrors.CodeValidation, "expense %s must not be negative", cat)
		}
	}
	return nil
}

// Policy is the operator-level configuration every evaluation shares.
type Policy struct {
	FeePercent   decimal.Decimal
	MinPayout    decimal.Decimal
	RefundPolicy compensation.RefundPolicy
}

// DefaultPolicy is the 25% fee, no minimum payout, zero compensation after
// a refund.
func DefaultPolicy() Policy {
	return Policy{
		FeePercent:   claim.DefaultFeePercent,
		MinPayout:    decimal.Zero,
		RefundPolicy: compensation.RefundZeroCompensation,
	}
}

// NewPolicy builds a policy from configuration values.
func NewPolicy(feePercent, minPayout float64, refundPolicy string) (Policy, error) {
	rp, err := compensation.ParseRefundPolicy(refundPolicy)
	if err != nil {
		return Policy{}, err
	}
	if feePercent < 0 || feePercent > 100 {
		return Policy{}, dErrors.New(dErrors.CodeValidation, "fee percent must be between 0 and 100")
	}
	if minPayout < 0 {
		return Policy{}, dErrors.New(dErrors.CodeValidation, "minimum payout must not be negative")
	}
	return Policy{
		FeePercent:   decimal.NewFromFloat(feePercent),
		MinPayout:    decimal.NewFromFloat(minPayout),
		RefundPolicy: rp,
	}, nil
}

// Outcome is the pure pipeline result.
type Outcome struct {
	DelayMinutes      *int                 `json:"delayMinutes"`
	Profile           exemption.Profile    `json:"profile"`
	ThroughTicket     throughticket.Result `json:"throughTicket"`
	InformationDuties infoduty.Result      `json:"informationDuties"`
	Compensation      compensation.Result  `json:"compensation"`
	Refund            refund.Result        `json:"refund"`
	Claim             claim.Breakdown      `json:"claim"`
}

// Record is a stored evaluation.
type Record struct {
	ID             domain.EvaluationID `json:"id"`
	Fingerprint    string              `json:"fingerprint"`
	CatalogVersion string              `json:"catalogVersion"`
	EvaluatedAt    time.Time           `json:"evaluatedAt"`
	Outcome
}

// BatchItem is one entry of a batch result, in request order.
type BatchItem struct {
	Record   *Record
	Replayed bool
	Err      error
}
