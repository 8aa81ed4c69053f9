package catalog

import (
	"strings"

	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
)

// ScopeClass classifies a journey for the purpose of article applicability.
type ScopeClass string

const (
	ScopeRegional              ScopeClass = "regional"
	ScopeLongDomestic          ScopeClass = "long_domestic"
	ScopeInternationalInsideEU ScopeClass = "intl_inside_eu"
	ScopeInternationalBeyondEU ScopeClass = "intl_beyond_eu"
)

var validScopes = map[ScopeClass]bool{
	ScopeRegional:              true,
	ScopeLongDomestic:          true,
	ScopeInternationalInsideEU: true,
	ScopeInternationalBeyondEU: true,
}

// ParseScopeClass accepts the canonical names; empty is allowed by callers
// that treat it as a wildcard.
func ParseScopeClass(s string) (ScopeClass, error) {
	sc := ScopeClass(strings.ToLower(strings.TrimSpace(s)))
	if !validScopes[sc] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown scope class %q", s)
	}
	return sc, nil
}

// Payout is how an override tier is paid out.
type Payout string

const (
	PayoutVoucher       Payout = "voucher"
	PayoutCashOrVoucher Payout = "cash_or_voucher"
	PayoutCash          Payout = "cash"
	PayoutOther         Payout = "other"
)

var validPayouts = map[Payout]bool{
	PayoutVoucher:       true,
	PayoutCashOrVoucher: true,
	PayoutCash:          true,
	PayoutOther:         true,
}

// Key identifies a catalog row. Operator and Product may be empty, meaning
// the row covers every operator (or product) in the country.
type Key struct {
	Country  domain.CountryCode `json:"country"`
	Operator string             `json:"operator,omitempty"`
	Product  string             `json:"product,omitempty"`
}

func (k Key) normalized() Key {
	return Key{
		Country:  domain.CountryCode(strings.ToUpper(strings.TrimSpace(string(k.Country)))),
		Operator: strings.ToLower(strings.TrimSpace(k.Operator)),
		Product:  strings.ToLower(strings.TrimSpace(k.Product)),
	}
}

func (k Key) String() string {
	k = k.normalized()
	op, prod := k.Operator, k.Product
	if op == "" {
		op = "*"
	}
	if prod == "" {
		prod = "*"
	}
	return string(k.Country) + "/" + op + "/" + prod
}

// Entry is reference metadata for a (country, operator, product) row.
type Entry struct {
	Key             Key         `json:"key"`
	ScopeClass      ScopeClass  `json:"scopeClass,omitempty"`
	BlockedRegional bool        `json:"blockedRegional"`
	Notes           string      `json:"notes,omitempty"`
	Exemptions      []ArticleID `json:"exemptions,omitempty"`
	FareFlex        string      `json:"fareFlex,omitempty"`
}

// MatrixRow is a per-country, per-scope exemption row.
type MatrixRow struct {
	Scope      ScopeClass  `json:"scope"`
	Blocked    bool        `json:"blocked"`
	Reason     string      `json:"reason,omitempty"`
	Exemptions []ArticleID `json:"exemptions,omitempty"`
	Notes      []string    `json:"notes,omitempty"`
}

// Country is a country record with its exemption matrix.
type Country struct {
	Code   domain.CountryCode `json:"code"`
	Name   string             `json:"name"`
	EU     bool               `json:"eu"`
	Matrix []MatrixRow        `json:"matrix,omitempty"`
}

// Tier maps a minimum delay onto a compensation percentage.
type Tier struct {
	MinDelayMinutes int    `json:"minDelayMinutes"`
	Percent         int    `json:"percent"`
	Payout          Payout `json:"payout,omitempty"`
}

// Override is a national or operator tier schedule that replaces the EU
// default tiers for matching journeys.
type Override struct {
	Key        Key        `json:"key"`
	ScopeClass ScopeClass `json:"scopeClass,omitempty"`
	Tiers      []Tier     `json:"tiers"`
	Notes      string     `json:"notes,omitempty"`
	Source     string     `json:"source,omitempty"`
}
