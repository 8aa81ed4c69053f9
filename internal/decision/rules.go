package decision

import (
	"slices"

	"railclaim/internal/catalog"
	"railclaim/internal/claim"
	"railclaim/internal/compensation"
	"railclaim/internal/evidence"
	"railclaim/internal/exemption"
	"railclaim/internal/infoduty"
	"railclaim/internal/journey"
	"railclaim/internal/refund"
	"railclaim/internal/throughticket"
	"railclaim/pkg/domain"
)

// HookPreinformedDisruption set to yes means the passenger was told about
// the disruption before buying, which denies compensation.
const HookPreinformedDisruption evidence.Name = "preinformed_disruption"

// NoteDelayUnknown is added to compensation when no delay could be resolved.
const NoteDelayUnknown = "arrival delay unknown: ask for scheduled and actual arrival times"

// Catalog is the read-only reference data one evaluation needs.
// *catalog.Snapshot satisfies it.
type Catalog interface {
	exemption.Catalog
	compensation.Overrides
	Country(code domain.CountryCode) (catalog.Country, bool)
}

// Run evaluates one request against one catalog snapshot.
// This is pure domain logic - no I/O, no side effects.
// Stage order: exemption profile, through ticket, information duties,
// refund, compensation, claim.
func Run(req Request, cat Catalog, rates claim.RateProvider, policy Policy) Outcome {
	j := req.Journey
	hooks, intake := evidence.Collect(req.Hooks)

	profile := exemption.Build(j, cat)

	tt := throughticket.Classify(j, hooks, profile.Applies(catalog.Art12))

	duties := infoduty.Evaluate(infoduty.Input{
		Hooks:     tt.Hooks,
		Conflicts: append(intake, tt.Conflicts...),
		Profile:   profile,
		Hints:     hintsFor(j, cat),
	})

	delay, delayKnown := resolveDelay(j, req.Compute)

	ref := refund.Evaluate(refund.Input{
		DelayMinutes:  delay,
		DelayKnown:    delayKnown,
		Cancelled:     req.Compute.Cancelled,
		RefundAlready: req.Compute.RefundAlready,
		Choice:        req.Refund.Choice,
		Amount:        req.Refund.Amount,
		TicketPrice:   j.TicketPrice,
	})

	comp := compensation.Calculate(compensationInput(req, profile, tt, duties.Hooks, delay, ref, policy), cat)
	if !delayKnown {
		comp.Notes = append(comp.Notes, NoteDelayUnknown)
	}

	currency := req.Currency
	if currency == "" {
		currency = j.TicketPrice.Currency
	}
	breakdown := claim.Aggregate(claim.Input{
		Currency:       currency,
		Refund:         ref.Amount,
		Compensation:   comp,
		Expenses:       req.Expenses,
		FeePercent:     policy.FeePercent,
		Art20_2Applies: profile.Applies(catalog.Art20_2),
	}, rates)

	out := Outcome{
		Profile:           profile,
		ThroughTicket:     tt,
		InformationDuties: duties,
		Compensation:      comp,
		Refund:            ref,
		Claim:             breakdown,
	}
	if delayKnown {
		out.DelayMinutes = &delay
	}
	return out
}

// resolveDelay picks the delay in priority order: the EU-only delay when
// requested and supplied, an explicit delay, then the final segment's
// arrival times.
func resolveDelay(j journey.Journey, c Compute) (int, bool) {
	switch {
	case c.EUOnly && c.DelayMinEU != nil:
		return max(*c.DelayMinEU, 0), true
	case c.DelayMinutes != nil:
		return max(*c.DelayMinutes, 0), true
	default:
		return j.DelayMinutes()
	}
}

func compensationInput(
	req Request,
	profile exemption.Profile,
	tt throughticket.Result,
	hooks evidence.Set,
	delay int,
	ref refund.Result,
	policy Policy,
) compensation.Input {
	c := req.Compute
	j := req.Journey
	last := j.Segments[len(j.Segments)-1]

	in := compensation.Input{
		DelayMinutes:             delay,
		SelfInflicted:            c.SelfInflicted,
		KnownDelayBeforePurchase: c.KnownDelayBeforePurchase || hooks.Value(HookPreinformedDisruption) == evidence.Yes,
		Extraordinary:            c.Extraordinary,
		RefundAlready:            c.RefundAlready || ref.CoversFullFare,
		RefundedAmount:           ref.Amount.Amount,
		RefundPolicy:             policy.RefundPolicy,
		Key:                      catalog.Key{Country: last.Country, Operator: last.Operator, Product: last.Product},
		ScopeClass:               profile.ScopeClass,
		Art19Applies:             profile.Applies(catalog.Art19),
		BasisPrice:               j.TicketPrice,
		ReturnTicket:             c.ReturnTicket,
		MinPayout:                policy.MinPayout,
	}
	if c.RefundedAmount != nil {
		in.RefundedAmount = c.RefundedAmount.Amount
	}
	if c.MinPayout != nil {
		in.MinPayout = *c.MinPayout
	}
	switch {
	case c.LegPrice != nil:
		in.LegPrice = *c.LegPrice
	case tt.CompensationRoute == throughticket.RoutePerLeg && len(j.Segments) > 1:
		// Separate contracts: only the delayed leg's fare is the basis.
		in.LegPrice = j.LegPrice(len(j.Segments) - 1)
	}
	return in
}

// hintsFor derives the information-duty hints from the first segment's
// country and catalog entry.
func hintsFor(j journey.Journey, cat Catalog) infoduty.Hints {
	var h infoduty.Hints
	first := j.Segments[0]
	if c, ok := cat.Country(first.Country); ok {
		h.OperatorCountryEU = c.EU
	} else {
		h.OperatorCountryEU = first.Country.IsEUMember()
	}
	for _, code := range j.Countries() {
		if !isEU(code, cat) && !slices.Contains(h.NonEUCountries, string(code)) {
			h.NonEUCountries = append(h.NonEUCountries, string(code))
		}
	}
	if e, ok := cat.Lookup(catalog.Key{Country: first.Country, Operator: first.Operator, Product: first.Product}); ok {
		h.FareFlex = e.FareFlex
	}
	return h
}

func isEU(code domain.CountryCode, cat Catalog) bool {
	if c, ok := cat.Country(code); ok {
		return c.EU
	}
	return code.IsEUMember()
}
