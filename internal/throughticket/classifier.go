package throughticket

import (
	"fmt"

	"railclaim/internal/evidence"
	"railclaim/internal/journey"
)

type state int

const (
	stateDeriveSharedPNR state = iota
	stateDeriveMultiOperator
	stateExemptCheck
	stateNotice
	stateDisclosure
	stateThrough
	stateNotThrough
	stateExempt
	stateUndecided
	stateDone
)

// machine carries the classification through its states. Every state is a
// method returning the next state; terminal states return stateDone.
type machine struct {
	journey      journey.Journey
	hooks        evidence.Set
	art12Applies bool
	result       Result
}

func (m *machine) transitions() map[state]func() state {
	return map[state]func() state{
		stateDeriveSharedPNR:     m.deriveSharedPNR,
		stateDeriveMultiOperator: m.deriveMultiOperator,
		stateExemptCheck:         m.exemptCheck,
		stateNotice:              m.notice,
		stateDisclosure:          m.disclosure,
		stateThrough:             m.through,
		stateNotThrough:          m.notThrough,
		stateExempt:              m.exempt,
		stateUndecided:           m.undecided,
	}
}

// Classify runs the Art. 12 decision tree. Shared-PNR and multi-operator
// hooks are derived first; art12Applies is false when the exemption profile
// disables Art. 12, which short-circuits to separate contracts. Classify is pure: the
// same inputs give the same reasons and questions in the same order.
func Classify(j journey.Journey, hooks evidence.Set, art12Applies bool) Result {
	m := &machine{
		journey:      j,
		hooks:        hooks,
		art12Applies: art12Applies,
		result: Result{
			TicketType:        TicketUndetermined,
			CompensationRoute: RouteUndetermined,
			Reasons:           []string{},
			PendingQuestions:  []Question{},
		},
	}
	table := m.transitions()
	for st := stateDeriveSharedPNR; st != stateDone; {
		step, ok := table[st]
		if !ok {
			panic(fmt.Sprintf("throughticket: no transition for state %d", st))
		}
		st = step()
	}
	m.result.Hooks = m.hooks
	return m.result
}

func (m *machine) reason(format string, args ...any) {
	m.result.Reasons = append(m.result.Reasons, fmt.Sprintf(format, args...))
}

func (m *machine) exemptCheck() state {
	if !m.art12Applies {
		return stateExempt
	}
	return stateNotice
}

func (m *machine) derive(name evidence.Name, v evidence.Value, basis string) {
	next, conflict := m.hooks.With(name, evidence.Auto(v))
	m.hooks = next
	if conflict != nil {
		m.result.Conflicts = append(m.result.Conflicts, *conflict)
		m.reason("%s: answer %s kept over derived %s (%s)", name, conflict.Kept.Value, conflict.Rejected.Value, basis)
		return
	}
	m.reason("%s = %s (%s)", name, m.hooks.Value(name), basis)
}

func (m *machine) deriveSharedPNR() state {
	refs := m.journey.DistinctBookingRefs()
	v := evidence.Unknown
	switch {
	case len(refs) == 1:
		v = evidence.Yes
	case len(refs) > 1:
		v = evidence.No
	}
	m.derive(HookSharedPNRScope, v, fmt.Sprintf("%d distinct booking references", len(refs)))
	return stateDeriveMultiOperator
}

func (m *machine) deriveMultiOperator() state {
	ops := m.journey.DistinctOperators()
	v := evidence.Unknown
	switch {
	case len(ops) > 1:
		v = evidence.Yes
	case len(ops) == 1:
		v = evidence.No
	}
	m.derive(HookMultiOperatorTrip, v, fmt.Sprintf("%d distinct operators", len(ops)))
	return stateExemptCheck
}

func (m *machine) notice() state {
	switch m.hooks.Value(HookSeparateContractNotice) {
	case evidence.No:
		m.reason("no notice of separate contracts")
		return stateThrough
	case evidence.Yes:
		m.reason("separate contracts were stated on the tickets")
		return stateDisclosure
	default:
		m.reason("separate contract notice not yet answered")
		return stateUndecided
	}
}

func (m *machine) disclosure() state {
	switch m.hooks.Value(HookThroughTicketDisclosure) {
	case evidence.No:
		m.reason("no disclosure before purchase, treated as a through ticket")
		return stateThrough
	case evidence.Yes:
		m.reason("separate contracts disclosed before purchase")
		return stateNotThrough
	default:
		m.reason("pre-purchase disclosure not yet answered")
		return stateUndecided
	}
}

func (m *machine) through() state {
	m.result.Decided = true
	m.result.TicketType = TicketThrough
	m.result.CompensationRoute = RoutePerContract
	m.result.Responsibility = m.responsibleParty()
	return stateDone
}

// responsibleParty prefers the seller-type answers, then the transaction
// answers, and presumes the operator sold the ticket otherwise.
func (m *machine) responsibleParty() Responsibility {
	switch {
	case m.hooks.Value(HookSellerTypeAgency) == evidence.Yes && m.hooks.Value(HookSellerTypeOperator) != evidence.Yes:
		m.reason("sold by a retailer or agency (Art. 12(4))")
		return ResponsibleRetailer
	case m.hooks.Value(HookSellerTypeOperator) == evidence.Yes:
		m.reason("sold by the operator (Art. 12(3))")
		return ResponsibleOperator
	case m.hooks.Value(HookSingleTxnRetailer) == evidence.Yes && m.hooks.Value(HookSingleTxnOperator) != evidence.Yes:
		m.reason("bought in a single transaction with a retailer (Art. 12(4))")
		return ResponsibleRetailer
	case m.hooks.Value(HookSingleTxnOperator) == evidence.Yes:
		m.reason("bought in a single transaction with the operator (Art. 12(3))")
		return ResponsibleOperator
	default:
		m.reason("seller unknown, operator presumed liable (Art. 12(3))")
		return ResponsibleOperator
	}
}

func (m *machine) notThrough() state {
	m.result.Decided = true
	m.result.TicketType = TicketNotThrough
	m.result.CompensationRoute = RoutePerLeg
	m.result.Responsibility = ResponsibleNone
	return stateDone
}

func (m *machine) exempt() state {
	m.reason("Art. 12 is exempt for this journey, claims are handled per leg")
	return stateNotThrough
}

func (m *machine) undecided() state {
	for _, name := range []evidence.Name{HookSeparateContractNotice, HookThroughTicketDisclosure} {
		if !m.hooks.Value(name).Known() {
			m.result.PendingQuestions = append(m.result.PendingQuestions, Question{Hook: name, Prompt: prompts[name]})
		}
	}
	return stateDone
}
