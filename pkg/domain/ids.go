package domain

import (
	"github.com/google/uuid"

	dErrors "railclaim/pkg/domain-errors"
)

// EvaluationID identifies a persisted evaluation record.
type EvaluationID uuid.UUID

// NewEvaluationID returns a random v4 ID.
func NewEvaluationID() EvaluationID {
	return EvaluationID(uuid.New())
}

// ParseEvaluationID parses a non-nil UUID.
func ParseEvaluationID(s string) (EvaluationID, error) {
	if s == "" {
		return EvaluationID{}, dErrors.New(dErrors.CodeInvalidInput, "evaluation id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return EvaluationID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid evaluation id")
	}
	if u == uuid.Nil {
		return EvaluationID{}, dErrors.New(dErrors.CodeInvalidInput, "evaluation id cannot be nil")
	}
	return EvaluationID(u), nil
}

func (id EvaluationID) String() string {
	return uuid.UUID(id).String()
}

func (id EvaluationID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id EvaluationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *EvaluationID) UnmarshalText(b []byte) error {
	parsed, err := ParseEvaluationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
