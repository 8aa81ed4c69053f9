package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims whitespace", []string{"  Art.9(3)  ", "Art.12  "}, []string{"Art.9(3)", "Art.12"}},
		{"drops repeats keeping order", []string{"Art.12", "Art.9(3)", "Art.12"}, []string{"Art.12", "Art.9(3)"}},
		{"drops blanks", []string{"", "   ", "Art.19"}, []string{"Art.19"}},
		{"repeats after trimming", []string{" Art.19", "Art.19 "}, []string{"Art.19"}},
		{"case is kept", []string{"art.19", "Art.19"}, []string{"art.19", "Art.19"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
