package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"railclaim/pkg/domain"
	strutil "railclaim/pkg/platform/strings"
)

// Document is the on-disk catalog format.
type Document struct {
	Version   string        `json:"version"`
	Countries []rawCountry  `json:"countries"`
	Entries   []rawEntry    `json:"entries"`
	Overrides []rawOverride `json:"overrides"`
	Gates     []rawGate     `json:"gates"`
}

type rawCountry struct {
	Code   string         `json:"code"`
	Name   string         `json:"name"`
	EU     bool           `json:"eu"`
	Matrix []rawMatrixRow `json:"matrix"`
}

type rawMatrixRow struct {
	Scope      string   `json:"scope"`
	Blocked    bool     `json:"blocked"`
	Reason     string   `json:"reason"`
	Exemptions []string `json:"exemptions"`
	Notes      []string `json:"notes"`
}

type rawEntry struct {
	Country         string   `json:"country"`
	Operator        string   `json:"operator"`
	Product         string   `json:"product"`
	ScopeClass      string   `json:"scopeClass"`
	BlockedRegional bool     `json:"blockedRegional"`
	Notes           string   `json:"notes"`
	Exemptions      []string `json:"exemptions"`
	FareFlex        string   `json:"fareFlex"`
}

type rawTier struct {
	MinDelayMinutes *int   `json:"minDelayMinutes"`
	Percent         *int   `json:"percent"`
	Payout          string `json:"payout"`
}

type rawOverride struct {
	Country    string    `json:"country"`
	Operator   string    `json:"operator"`
	Product    string    `json:"product"`
	ScopeClass string    `json:"scopeClass"`
	Tiers      []rawTier `json:"tiers"`
	Notes      string    `json:"notes"`
	Source     string    `json:"source"`
}

type rawGate struct {
	ID      string   `json:"id"`
	Country string   `json:"country"`
	Scope   string   `json:"scope"`
	When    string   `json:"when"`
	Enable  []string `json:"enable"`
	Disable []string `json:"disable"`
	Note    string   `json:"note"`
	Banner  string   `json:"banner"`
}

// Issue describes a record skipped while building a snapshot.
type Issue struct {
	Section string `json:"section"`
	Index   int    `json:"index"`
	Reason  string `json:"reason"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s[%d]: %s", i.Section, i.Index, i.Reason)
}

// DecodeDocument reads a catalog document. Only a document that is not
// valid JSON fails; malformed records are handled by Build.
func DecodeDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog document: %w", err)
	}
	return &doc, nil
}

// Parse decodes and builds a snapshot in one step.
func Parse(r io.Reader) (*Snapshot, error) {
	doc, err := DecodeDocument(r)
	if err != nil {
		return nil, err
	}
	return Build(doc, time.Now())
}

// Build validates and indexes a document. Malformed records are skipped and
// reported as issues; the rest of the catalog stays usable.
func Build(doc *Document, now time.Time) (*Snapshot, error) {
	env, err := newGateEnv()
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		version:   doc.Version,
		loadedAt:  now,
		entries:   make(map[Key]Entry, len(doc.Entries)),
		countries: make(map[domain.CountryCode]Country, len(doc.Countries)),
	}
	skip := func(section string, i int, reason string) {
		s.issues = append(s.issues, Issue{Section: section, Index: i, Reason: reason})
	}

	names := make(map[string]domain.CountryCode, len(doc.Countries))
	for i, rc := range doc.Countries {
		c, reason := buildCountry(rc)
		if reason != "" {
			skip("countries", i, reason)
			continue
		}
		s.countries[c.Code] = c
		if c.Name != "" {
			names[strings.ToLower(c.Name)] = c.Code
		}
	}
	resolveCountry := func(raw string) (domain.CountryCode, error) {
		if code, ok := names[strings.ToLower(strings.TrimSpace(raw))]; ok {
			return code, nil
		}
		return domain.ParseCountryCode(raw)
	}

	for i, re := range doc.Entries {
		country, err := resolveCountry(re.Country)
		if err != nil {
			skip("entries", i, err.Error())
			continue
		}
		e := Entry{
			Key:             Key{Country: country, Operator: re.Operator, Product: re.Product},
			BlockedRegional: re.BlockedRegional,
			Notes:           re.Notes,
			FareFlex:        re.FareFlex,
		}
		if re.ScopeClass != "" {
			if e.ScopeClass, err = ParseScopeClass(re.ScopeClass); err != nil {
				skip("entries", i, err.Error())
				continue
			}
		}
		if e.Exemptions, err = parseArticles(re.Exemptions); err != nil {
			skip("entries", i, err.Error())
			continue
		}
		k := e.Key.normalized()
		if _, dup := s.entries[k]; dup {
			skip("entries", i, "duplicate key "+k.String())
			continue
		}
		s.entries[k] = e
	}

	for i, ro := range doc.Overrides {
		o, reason := buildOverride(ro, resolveCountry)
		if reason != "" {
			skip("overrides", i, reason)
			continue
		}
		s.overrides = append(s.overrides, o)
	}

	for i, rg := range doc.Gates {
		g, reason := buildGate(rg, resolveCountry)
		if reason == "" {
			if err := g.compile(env); err != nil {
				reason = err.Error()
			}
		}
		if reason != "" {
			skip("gates", i, reason)
			continue
		}
		s.gates = append(s.gates, g)
	}

	return s, nil
}

func buildCountry(rc rawCountry) (Country, string) {
	code, err := domain.ParseCountryCode(rc.Code)
	if err != nil {
		return Country{}, err.Error()
	}
	c := Country{Code: code, Name: rc.Name, EU: rc.EU}
	for _, rr := range rc.Matrix {
		scope, err := ParseScopeClass(rr.Scope)
		if err != nil {
			return Country{}, err.Error()
		}
		ex, err := parseArticles(rr.Exemptions)
		if err != nil {
			return Country{}, err.Error()
		}
		c.Matrix = append(c.Matrix, MatrixRow{
			Scope:      scope,
			Blocked:    rr.Blocked,
			Reason:     rr.Reason,
			Exemptions: ex,
			Notes:      strutil.DedupeAndTrim(rr.Notes),
		})
	}
	return c, ""
}

func buildOverride(ro rawOverride, resolveCountry func(string) (domain.CountryCode, error)) (Override, string) {
	o := Override{
		Key:    Key{Operator: ro.Operator, Product: ro.Product},
		Notes:  ro.Notes,
		Source: ro.Source,
	}
	if ro.Country != "" {
		country, err := resolveCountry(ro.Country)
		if err != nil {
			return Override{}, err.Error()
		}
		o.Key.Country = country
	}
	if ro.ScopeClass != "" {
		scope, err := ParseScopeClass(ro.ScopeClass)
		if err != nil {
			return Override{}, err.Error()
		}
		o.ScopeClass = scope
	}
	if len(ro.Tiers) == 0 {
		return Override{}, "override has no tiers"
	}
	for j, rt := range ro.Tiers {
		if rt.MinDelayMinutes == nil || rt.Percent == nil {
			return Override{}, fmt.Sprintf("tier %d: minDelayMinutes and percent are required", j)
		}
		if *rt.MinDelayMinutes < 0 {
			return Override{}, fmt.Sprintf("tier %d: negative minDelayMinutes", j)
		}
		if *rt.Percent < 0 || *rt.Percent > 100 {
			return Override{}, fmt.Sprintf("tier %d: percent outside 0..100", j)
		}
		payout := Payout(strings.ToLower(strings.TrimSpace(rt.Payout)))
		if payout != "" && !validPayouts[payout] {
			return Override{}, fmt.Sprintf("tier %d: unknown payout %q", j, rt.Payout)
		}
		o.Tiers = append(o.Tiers, Tier{MinDelayMinutes: *rt.MinDelayMinutes, Percent: *rt.Percent, Payout: payout})
	}
	o.Key = o.Key.normalized()
	return o, ""
}

func buildGate(rg rawGate, resolveCountry func(string) (domain.CountryCode, error)) (Gate, string) {
	if rg.ID == "" {
		return Gate{}, "gate id is required"
	}
	country, err := resolveCountry(rg.Country)
	if err != nil {
		return Gate{}, err.Error()
	}
	g := Gate{ID: rg.ID, Country: country, When: rg.When, Note: rg.Note, Banner: rg.Banner}
	if rg.Scope != "" {
		if g.Scope, err = ParseScopeClass(rg.Scope); err != nil {
			return Gate{}, err.Error()
		}
	}
	if g.Enable, err = parseArticles(rg.Enable); err != nil {
		return Gate{}, err.Error()
	}
	if g.Disable, err = parseArticles(rg.Disable); err != nil {
		return Gate{}, err.Error()
	}
	return g, ""
}

func parseArticles(raw []string) ([]ArticleID, error) {
	raw = strutil.DedupeAndTrim(raw)
	out := make([]ArticleID, 0, len(raw))
	for _, r := range raw {
		a, err := ParseArticle(r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
