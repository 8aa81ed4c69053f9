//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseEvaluationID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseEvaluationID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseEvaluationID(input)
		if err == nil {
			roundTrip, err2 := ParseEvaluationID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParsePrice ensures price parsing never panics and never yields a
// currency that fails its own validation.
func FuzzParsePrice(f *testing.F) {
	f.Add("99.99 EUR")
	f.Add("EUR 12,50")
	f.Add("12")
	f.Add("abc def ghi")

	f.Fuzz(func(t *testing.T, input string) {
		m, err := ParsePrice(input)
		if err != nil {
			return
		}
		if _, err := ParseCurrency(string(m.Currency)); err != nil {
			t.Errorf("parsed currency %q is invalid: %v", m.Currency, err)
		}
	})
}
