// Package throughticket classifies a journey under Art. 12 as a through
// ticket or a set of separate contracts.
package throughticket

import "railclaim/internal/evidence"

type TicketType string

const (
	TicketThrough      TicketType = "through"
	TicketNotThrough   TicketType = "not_through"
	TicketUndetermined TicketType = "undetermined"
)

type Route string

const (
	RoutePerLeg       Route = "per_leg"
	RoutePerContract  Route = "per_contract"
	RouteUndetermined Route = "undetermined"
)

// Responsibility names the party liable when the journey is a through ticket.
type Responsibility string

const (
	ResponsibleOperator Responsibility = "art12_3_operator"
	ResponsibleRetailer Responsibility = "art12_4_retailer"
	ResponsibleNone     Responsibility = "none"
)

// Hook names read by the classifier.
const (
	HookSingleTxnOperator       evidence.Name = "single_txn_operator"
	HookSingleTxnRetailer       evidence.Name = "single_txn_retailer"
	HookSharedPNRScope          evidence.Name = "shared_pnr_scope"
	HookMultiOperatorTrip       evidence.Name = "multi_operator_trip"
	HookSellerTypeOperator      evidence.Name = "seller_type_operator"
	HookSellerTypeAgency        evidence.Name = "seller_type_agency"
	HookThroughTicketDisclosure evidence.Name = "through_ticket_disclosure"
	HookSeparateContractNotice  evidence.Name = "separate_contract_notice"
)

// Question asks the passenger for a missing hook.
type Question struct {
	Hook   evidence.Name `json:"hook"`
	Prompt string        `json:"prompt"`
}

var prompts = map[evidence.Name]string{
	HookSeparateContractNotice:  "Did the tickets state that they are separate contracts of carriage?",
	HookThroughTicketDisclosure: "Were you clearly told before purchase whether the tickets formed one through ticket?",
}

// Result is the classification outcome.
type Result struct {
	Decided           bool                `json:"decided"`
	TicketType        TicketType          `json:"ticketType"`
	CompensationRoute Route               `json:"compensationRoute"`
	Responsibility    Responsibility      `json:"responsibility,omitempty"`
	Reasons           []string            `json:"reasons"`
	PendingQuestions  []Question          `json:"pendingQuestions"`
	Conflicts         []evidence.Conflict `json:"-"`

	// Hooks is the evidence after auto-derivation.
	Hooks evidence.Set `json:"-"`
}
