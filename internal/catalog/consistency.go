package catalog

import (
	"fmt"
	"sort"
)

// Finding is one inconsistency between overrides and catalog rows.
type Finding struct {
	Override string `json:"override"`
	Problem  string `json:"problem"`
}

// Report is the result of Check.
type Report struct {
	Version  string    `json:"version"`
	Findings []Finding `json:"findings"`
	Skipped  []Issue   `json:"skipped"`
}

// OK reports whether the catalog is consistent and loaded without skips.
func (r Report) OK() bool {
	return len(r.Findings) == 0 && len(r.Skipped) == 0
}

// Check cross-validates overrides against catalog rows. It is an offline
// authoring aid and is never run during evaluation.
func Check(s *Snapshot) Report {
	r := Report{Version: s.Version(), Skipped: s.Issues()}

	operators := map[Key]bool{}
	countries := map[string]bool{}
	for k := range s.entries {
		countries[string(k.Country)] = true
		operators[Key{Country: k.Country, Operator: k.Operator}] = true
	}

	for _, o := range s.overrides {
		k := o.Key
		label := k.String()
		add := func(problem string) {
			r.Findings = append(r.Findings, Finding{Override: label, Problem: problem})
		}
		if k.Country == "" {
			continue
		}
		if !countries[string(k.Country)] {
			add(fmt.Sprintf("no catalog rows for country %s", k.Country))
			continue
		}
		if k.Operator != "" && !operators[Key{Country: k.Country, Operator: k.Operator}] {
			add(fmt.Sprintf("operator %q not in catalog for %s", k.Operator, k.Country))
			continue
		}
		if k.Product != "" {
			if _, ok := s.entries[k]; !ok {
				add(fmt.Sprintf("product %q not in catalog for %s/%s", k.Product, k.Country, k.Operator))
			}
		}
		if o.ScopeClass == ScopeRegional && regionalBlocked(s, k) {
			add("regional override in a country that blocks regional scope")
		}
	}

	sort.SliceStable(r.Findings, func(i, j int) bool {
		return r.Findings[i].Override < r.Findings[j].Override
	})
	return r
}

func regionalBlocked(s *Snapshot, k Key) bool {
	for _, row := range s.MatrixRows(k.Country, ScopeRegional) {
		if row.Blocked {
			return true
		}
	}
	if e, ok := s.Lookup(k); ok && e.BlockedRegional {
		return true
	}
	return false
}
