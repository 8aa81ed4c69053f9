package ports

import (
	"context"

	"railclaim/pkg/platform/audit"
)

// AuditPort receives one event per evaluation, new or replayed.
// *publisher.Publisher satisfies it.
type AuditPort interface {
	Emit(ctx context.Context, event audit.Event) error
}
