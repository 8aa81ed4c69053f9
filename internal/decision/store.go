package decision

import (
	"context"

	"railclaim/pkg/domain"
)

// Store persists evaluation records so a repeated request replays the stored
// outcome. Lookups return sentinel.ErrNotFound when nothing matches.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	FindByID(ctx context.Context, id domain.EvaluationID) (*Record, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (*Record, error)
}
