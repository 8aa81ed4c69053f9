package domain

import (
	"strings"

	dErrors "railclaim/pkg/domain-errors"
)

// CountryCode is an ISO-3166 alpha-2 code, upper case.
type CountryCode string

// ParseCountryCode normalizes and validates a two-letter country code.
func ParseCountryCode(s string) (CountryCode, error) {
	c := strings.ToUpper(strings.TrimSpace(s))
	if len(c) != 2 || c[0] < 'A' || c[0] > 'Z' || c[1] < 'A' || c[1] > 'Z' {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid country code %q", s)
	}
	return CountryCode(c), nil
}

func (c CountryCode) String() string {
	return string(c)
}

// euMembers is the set of EU member states.
var euMembers = map[CountryCode]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true, "DK": true,
	"EE": true, "FI": true, "FR": true, "DE": true, "GR": true, "HU": true, "IE": true,
	"IT": true, "LV": true, "LT": true, "LU": true, "MT": true, "NL": true, "PL": true,
	"PT": true, "RO": true, "SK": true, "SI": true, "ES": true, "SE": true,
}

// IsEUMember reports EU membership.
func (c CountryCode) IsEUMember() bool {
	return euMembers[c]
}

// EUMembers lists member state codes in a stable order.
func EUMembers() []string {
	return []string{
		"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE", "GR", "HU", "IE",
		"IT", "LV", "LT", "LU", "MT", "NL", "PL", "PT", "RO", "SK", "SI", "ES", "SE",
	}
}
