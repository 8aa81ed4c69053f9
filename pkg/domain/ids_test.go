package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "railclaim/pkg/domain-errors"
)

// TestParseEvaluationID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseEvaluationID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEvaluationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEvaluationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseEvaluationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseEvaluationID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, EvaluationID(valid), id)
	})
}

func TestParseCountryCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    CountryCode
		wantErr bool
	}{
		{name: "upper case", input: "DK", want: "DK"},
		{name: "lower case is normalized", input: " se ", want: "SE"},
		{name: "three letters rejected", input: "DNK", wantErr: true},
		{name: "digits rejected", input: "D1", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCountryCode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("EU membership", func(t *testing.T) {
		assert.True(t, CountryCode("DK").IsEUMember())
		assert.False(t, CountryCode("CH").IsEUMember())
		assert.False(t, CountryCode("RU").IsEUMember())
		assert.Len(t, EUMembers(), 27)
	})
}
