package catalog

import (
	"strings"
	"time"

	"railclaim/pkg/domain"
)

// Snapshot is an immutable, indexed view of one catalog document.
// Readers share it without locking; reloads build a new Snapshot.
type Snapshot struct {
	version   string
	loadedAt  time.Time
	entries   map[Key]Entry
	countries map[domain.CountryCode]Country
	overrides []Override
	gates     []Gate
	issues    []Issue
}

// Version is the document's declared version, used in fingerprints.
func (s *Snapshot) Version() string { return s.version }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Issues lists records skipped while building the snapshot.
func (s *Snapshot) Issues() []Issue { return append([]Issue(nil), s.issues...) }

// Lookup resolves the most specific entry: (c,o,p), then (c,o,*), then (c,*,*).
func (s *Snapshot) Lookup(key Key) (Entry, bool) {
	k := key.normalized()
	for _, candidate := range []Key{
		k,
		{Country: k.Country, Operator: k.Operator},
		{Country: k.Country},
	} {
		if e, ok := s.entries[candidate]; ok {
			return e, true
		}
	}
	return Entry{}, false
}

// Country returns the country record.
func (s *Snapshot) Country(code domain.CountryCode) (Country, bool) {
	c, ok := s.countries[code]
	return c, ok
}

// MatrixRows returns the country's matrix rows for scope.
func (s *Snapshot) MatrixRows(code domain.CountryCode, scope ScopeClass) []MatrixRow {
	c, ok := s.countries[code]
	if !ok {
		return nil
	}
	var rows []MatrixRow
	for _, r := range c.Matrix {
		if r.Scope == scope {
			rows = append(rows, r)
		}
	}
	return rows
}

// Gates returns gates that may apply to journeys touching country.
func (s *Snapshot) Gates(code domain.CountryCode, scope ScopeClass) []Gate {
	var out []Gate
	for _, g := range s.gates {
		if g.Country == code && (g.Scope == "" || g.Scope == scope) {
			out = append(out, g)
		}
	}
	return out
}

// FindOverride picks the best override for key. Operator and product
// matches score 2 each, a country match scores 1. A
// non-empty override field that does not match disqualifies the row, and
// a score of zero never matches. Ties keep document order.
func (s *Snapshot) FindOverride(key Key) (Override, bool) {
	k := key.normalized()
	if k.Country == "" && k.Operator == "" && k.Product == "" {
		return Override{}, false
	}

	var best Override
	bestScore := 0
	for _, o := range s.overrides {
		score, ok := scoreOverride(o.Key, k)
		if ok && score > bestScore {
			best, bestScore = o, score
		}
	}
	return best, bestScore > 0
}

func scoreOverride(row, query Key) (int, bool) {
	score := 0
	if row.Operator != "" {
		if !strings.EqualFold(row.Operator, query.Operator) {
			return 0, false
		}
		score += 2
	}
	if row.Product != "" {
		if !strings.EqualFold(row.Product, query.Product) {
			return 0, false
		}
		score += 2
	}
	if row.Country != "" {
		if row.Country != query.Country {
			return 0, false
		}
		score++
	}
	return score, true
}

// Entries returns all entries; order is unspecified.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// Overrides returns all overrides in document order.
func (s *Snapshot) Overrides() []Override {
	return append([]Override(nil), s.overrides...)
}
