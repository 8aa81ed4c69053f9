package handler

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"railclaim/internal/claim"
	"railclaim/internal/decision"
	"railclaim/internal/evidence"
	"railclaim/internal/journey"
	"railclaim/internal/refund"
	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
)

// EvaluateRequest is the HTTP request body for POST /v1/evaluations.
type EvaluateRequest struct {
	Journey  JourneyRequest             `json:"journey"`
	Hooks    map[string]json.RawMessage `json:"hooks"`
	Compute  ComputeRequest             `json:"compute"`
	Refund   RefundRequest              `json:"refund"`
	Expenses map[string]json.RawMessage `json:"expenses"`
	Currency string                     `json:"currency"`

	// Parsed value (populated by Validate)
	parsed decision.Request
}

type JourneyRequest struct {
	Segments                []SegmentRequest `json:"segments"`
	TicketPrice             *domain.Money    `json:"ticketPrice"`
	IsLongDomestic          bool             `json:"isLongDomestic"`
	IsInternationalInsideEU bool             `json:"isInternationalInsideEU"`
	IsInternationalBeyondEU bool             `json:"isInternationalBeyondEU"`
	DistanceKm              *float64         `json:"distanceKm"`
	Flags                   map[string]bool  `json:"flags"`
}

type SegmentRequest struct {
	Operator           string        `json:"operator"`
	Product            string        `json:"product"`
	Country            string        `json:"country"`
	From               string        `json:"from"`
	To                 string        `json:"to"`
	ScheduledDeparture *time.Time    `json:"scheduledDeparture"`
	ScheduledArrival   *time.Time    `json:"scheduledArrival"`
	ActualArrival      *time.Time    `json:"actualArrival"`
	BookingRef         string        `json:"bookingRef"`
	DistanceKm         *float64      `json:"distanceKm"`
	Price              *domain.Money `json:"price"`
}

// ComputeRequest carries the compensation switches. EUOnly defaults to true
// when absent.
type ComputeRequest struct {
	EUOnly                   *bool            `json:"euOnly"`
	DelayMinEU               *int             `json:"delayMinEU"`
	DelayMinutes             *int             `json:"delayMinutes"`
	RefundAlready            bool             `json:"refundAlready"`
	RefundedAmount           *domain.Money    `json:"refundedAmount"`
	Extraordinary            bool             `json:"extraordinary"`
	SelfInflicted            bool             `json:"selfInflicted"`
	KnownDelayBeforePurchase bool             `json:"knownDelayBeforePurchase"`
	MinPayout                *decimal.Decimal `json:"minPayout"`
	LegPrice                 *decimal.Decimal `json:"legPrice"`
	ReturnTicket             bool             `json:"returnTicket"`
	Cancelled                bool             `json:"cancelled"`
}

type RefundRequest struct {
	Choice string        `json:"choice"`
	Amount *domain.Money `json:"amount"`
}

const (
	maxSegments = 32
	maxHooks    = 128
	maxExpenses = 16
)

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.Journey.Segments) > maxSegments {
		return dErrors.Newf(dErrors.CodeValidation, "journey must have at most %d segments", maxSegments)
	}
	if len(r.Hooks) > maxHooks {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d hooks are accepted", maxHooks)
	}
	if len(r.Expenses) > maxExpenses {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d expenses are accepted", maxExpenses)
	}

	if r.Journey.TicketPrice == nil {
		return dErrors.New(dErrors.CodeValidation, "journey.ticketPrice is required")
	}
	j := journey.Journey{
		TicketPrice:             *r.Journey.TicketPrice,
		IsLongDomestic:          r.Journey.IsLongDomestic,
		IsInternationalInsideEU: r.Journey.IsInternationalInsideEU,
		IsInternationalBeyondEU: r.Journey.IsInternationalBeyondEU,
		DistanceKm:              r.Journey.DistanceKm,
		Flags:                   r.Journey.Flags,
	}
	for i, s := range r.Journey.Segments {
		seg, err := s.toDomain(i)
		if err != nil {
			return err
		}
		j.Segments = append(j.Segments, seg)
	}

	currency := j.TicketPrice.Currency
	if c := strings.TrimSpace(r.Currency); c != "" {
		parsed, err := domain.ParseCurrency(c)
		if err != nil {
			return err
		}
		currency = parsed
	}

	hooks, err := parseHooks(r.Hooks)
	if err != nil {
		return err
	}
	expenses, err := parseExpenses(r.Expenses, currency)
	if err != nil {
		return err
	}
	choice, err := refund.ParseChoice(r.Refund.Choice)
	if err != nil {
		return err
	}

	euOnly := true
	if r.Compute.EUOnly != nil {
		euOnly = *r.Compute.EUOnly
	}
	c := r.Compute
	r.parsed = decision.Request{
		Journey: j,
		Hooks:   hooks,
		Compute: decision.Compute{
			EUOnly:                   euOnly,
			DelayMinEU:               c.DelayMinEU,
			DelayMinutes:             c.DelayMinutes,
			RefundAlready:            c.RefundAlready,
			RefundedAmount:           c.RefundedAmount,
			Extraordinary:            c.Extraordinary,
			SelfInflicted:            c.SelfInflicted,
			KnownDelayBeforePurchase: c.KnownDelayBeforePurchase,
			MinPayout:                c.MinPayout,
			LegPrice:                 c.LegPrice,
			ReturnTicket:             c.ReturnTicket,
			Cancelled:                c.Cancelled,
		},
		Refund:   decision.RefundRequest{Choice: choice, Amount: r.Refund.Amount},
		Expenses: expenses,
		Currency: currency,
	}
	return r.parsed.Validate()
}

// ToDomain returns the request parsed by Validate.
func (r *EvaluateRequest) ToDomain() decision.Request {
	return r.parsed
}

func (s SegmentRequest) toDomain(i int) (journey.Segment, error) {
	seg := journey.Segment{
		Operator:           strings.TrimSpace(s.Operator),
		Product:            strings.TrimSpace(s.Product),
		FromStation:        strings.TrimSpace(s.From),
		ToStation:          strings.TrimSpace(s.To),
		ScheduledDeparture: s.ScheduledDeparture,
		ScheduledArrival:   s.ScheduledArrival,
		ActualArrival:      s.ActualArrival,
		BookingRef:         strings.TrimSpace(s.BookingRef),
		DistanceKm:         s.DistanceKm,
		Price:              s.Price,
	}
	if strings.TrimSpace(s.Country) != "" {
		country, err := domain.ParseCountryCode(s.Country)
		if err != nil {
			return journey.Segment{}, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("segments[%d].country is invalid", i))
		}
		seg.Country = country
	}
	return seg, nil
}

func parseHooks(raw map[string]json.RawMessage) (map[string]evidence.Hook, error) {
	hooks := make(map[string]evidence.Hook, len(raw))
	for name, data := range raw {
		var h evidence.Hook
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("hooks.%s is invalid", name))
		}
		hooks[name] = h
	}
	return hooks, nil
}

// parseExpenses accepts a bare amount in the claim currency or a money value.
// Known category spellings are mapped onto their category; anything else is
// kept under its own lowercased name. Keys landing on the same category are
// summed and must share a currency.
func parseExpenses(raw map[string]json.RawMessage, currency domain.Currency) (map[claim.Category]domain.Money, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)

	expenses := make(map[claim.Category]domain.Money, len(raw))
	for _, name := range names {
		cat, err := claim.ParseCategory(name)
		if err != nil {
			cat = claim.Category(strings.ToLower(strings.TrimSpace(name)))
		}
		m, err := parseExpenseAmount(raw[name], currency)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("expenses.%s is invalid", name))
		}
		if m.IsNegative() {
			return nil, dErrors.Newf(dErrors.CodeValidation, "expenses.%s must not be negative", name)
		}
		existing, ok := expenses[cat]
		if !ok {
			expenses[cat] = m
			continue
		}
		if existing.Currency != m.Currency {
			return nil, dErrors.Newf(dErrors.CodeValidation,
				"expenses.%s repeats category %s in %s, expected %s", name, cat, m.Currency, existing.Currency)
		}
		expenses[cat] = existing.Add(m)
	}
	return expenses, nil
}

func parseExpenseAmount(data json.RawMessage, currency domain.Currency) (domain.Money, error) {
	var amount decimal.Decimal
	if err := json.Unmarshal(data, &amount); err == nil {
		return domain.NewMoney(amount, currency), nil
	}
	var m domain.Money
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Money{}, err
	}
	return m, nil
}

// BatchRequest is the HTTP request body for POST /v1/evaluations/batch.
// Items are validated one by one so a bad item does not reject the batch.
type BatchRequest struct {
	Requests []EvaluateRequest `json:"requests"`
}

func (r *BatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Requests) == 0 {
		return dErrors.New(dErrors.CodeValidation, "requests must not be empty")
	}
	return nil
}
