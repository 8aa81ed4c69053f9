package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events a claim handler must be able to
	// reproduce later: what was decided, on which catalog version.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	// Subject is the evaluation ID, or the catalog version for catalog events.
	Subject        string `json:"subject"`
	Fingerprint    string `json:"fingerprint,omitempty"`
	CatalogVersion string `json:"catalog_version,omitempty"`
	// Decision is the compensation source (eu, national_override, denied).
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	NetAmount string `json:"net_amount,omitempty"`
	Currency  string `json:"currency,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	// Evaluation events
	EventClaimEvaluated     AuditEvent = "claim_evaluated"
	EventEvaluationReplayed AuditEvent = "evaluation_replayed"

	// Catalog events
	EventCatalogReloaded     AuditEvent = "catalog_reloaded"
	EventCatalogReloadFailed AuditEvent = "catalog_reload_failed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventClaimEvaluated:  CategoryCompliance,
	EventCatalogReloaded: CategoryCompliance,

	EventEvaluationReplayed:  CategoryOperations,
	EventCatalogReloadFailed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store is where audit events end up: memory, Postgres or Kafka.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that can read events back.
type Lister interface {
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
