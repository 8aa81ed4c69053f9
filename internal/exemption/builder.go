package exemption

import (
	"fmt"
	"strings"

	"railclaim/internal/catalog"
	"railclaim/internal/journey"
	"railclaim/pkg/domain"
)

// Catalog is the read-only view the builder needs. *catalog.Snapshot
// satisfies it.
type Catalog interface {
	Lookup(key catalog.Key) (catalog.Entry, bool)
	MatrixRows(code domain.CountryCode, scope catalog.ScopeClass) []catalog.MatrixRow
	Gates(code domain.CountryCode, scope catalog.ScopeClass) []catalog.Gate
}

const blockedBanner = "Regional service under a national regime: EU compensation (Art. 19) does not apply, national rules are used instead."

var articleBanners = map[catalog.ArticleID]string{
	catalog.Art10:   "Real-time data (Art. 10) may be unavailable. Fall back to timetable data and upload documentation.",
	catalog.Art12:   "Through ticketing (Art. 12) is exempt. Claims are split per ticket or contract.",
	catalog.Art18_3: "The 100-minute rerouting rule (Art. 18(3)) may be exempt.",
	catalog.Art19:   "EU compensation (Art. 19) is exempt. Apply the national or operator scheme where relevant.",
	catalog.Art20_2: "Assistance (Art. 20(2)) may be exempt. Keep and upload expense receipts.",
	catalog.Art9:    "Information duties (Art. 9) may be exempt. Show basic information and fallback links.",
	catalog.Art17:   "Rerouting and continuation rights (Art. 17) may be exempt.",
	catalog.Art30_2: "Complaint handling deadlines (Art. 30(2)) may be exempt.",
}

// ClassifyScope picks the scope from the journey's explicit flags.
func ClassifyScope(j journey.Journey) catalog.ScopeClass {
	switch {
	case j.IsInternationalBeyondEU:
		return catalog.ScopeInternationalBeyondEU
	case j.IsInternationalInsideEU:
		return catalog.ScopeInternationalInsideEU
	case j.IsLongDomestic:
		return catalog.ScopeLongDomestic
	default:
		return catalog.ScopeRegional
	}
}

// Build derives the exemption profile. It never fails: catalog misses and
// gate evaluation errors are reported as banners and warnings.
func Build(j journey.Journey, cat Catalog) Profile {
	scope := ClassifyScope(j)
	p := NewProfile(scope)
	countries := distinctCountries(j)

	// Matrix rows for the scope.
	for _, c := range countries {
		for _, row := range cat.MatrixRows(c, scope) {
			for _, a := range row.Exemptions {
				p.set(a, false)
			}
			for _, n := range row.Notes {
				p.note(n)
			}
			if row.Blocked && scope == catalog.ScopeRegional {
				block(&p, c, row.Reason)
			}
		}
	}

	// Catalog entries per segment.
	for i, seg := range j.Segments {
		if seg.Country == "" {
			p.banner(fmt.Sprintf("Catalog miss for segment %d: country unknown, using EU defaults.", i+1))
			continue
		}
		key := catalog.Key{Country: seg.Country, Operator: seg.Operator, Product: seg.Product}
		entry, ok := cat.Lookup(key)
		if !ok {
			p.banner(fmt.Sprintf("Catalog miss for %s: using EU defaults.", key))
			continue
		}
		for _, a := range entry.Exemptions {
			p.set(a, false)
		}
		if entry.BlockedRegional && scope == catalog.ScopeRegional {
			block(&p, seg.Country, entry.Notes)
		}
	}

	applyGates(&p, j, countries, cat)
	consolidateArt9(&p)

	for _, a := range catalog.Articles {
		if !p.Articles[a] {
			p.banner(articleBanners[a])
		}
	}
	return p
}

func block(p *Profile, c domain.CountryCode, reason string) {
	p.Blocked = true
	p.set(catalog.Art19, false)
	p.note(reason)
	p.note(fmt.Sprintf("%s regional: EU flow disabled (blocked).", c))
	p.banner(blockedBanner)
}

func applyGates(p *Profile, j journey.Journey, countries []domain.CountryCode, cat Catalog) {
	in := catalog.GateInput{
		Scope:     p.ScopeClass,
		Countries: make([]string, 0, len(countries)),
		Flags:     j.Flags,
	}
	for _, c := range j.Countries() {
		in.Countries = append(in.Countries, string(c))
	}
	in.DistanceKm, in.DistanceKnown = j.TotalDistanceKm()

	seen := map[string]bool{}
	for _, c := range countries {
		for _, g := range cat.Gates(c, p.ScopeClass) {
			if seen[g.ID] {
				continue
			}
			seen[g.ID] = true
			matched, err := g.Matches(in)
			if err != nil {
				p.Warnings = append(p.Warnings, err.Error())
				continue
			}
			if !matched {
				continue
			}
			for _, a := range g.Enable {
				// A blocked regional journey stays under the national regime.
				if a == catalog.Art19 && p.Blocked {
					p.Warnings = append(p.Warnings, fmt.Sprintf("gate %s: Art. 19 not enabled, journey is blocked", g.ID))
					continue
				}
				p.set(a, true)
			}
			for _, a := range g.Disable {
				p.set(a, false)
			}
			p.note(g.Note)
			p.banner(g.Banner)
		}
	}
}

// consolidateArt9 derives the Art. 9 flag from its parts and notes a
// partial exemption.
func consolidateArt9(p *Profile) {
	var off []string
	for _, sub := range catalog.SubArticles {
		if !p.SubArticles[sub] {
			off = append(off, strings.TrimPrefix(sub.Label(), "Art. "))
		}
	}
	p.Articles[catalog.Art9] = len(off) < len(catalog.SubArticles)
	if len(off) > 0 && p.Articles[catalog.Art9] {
		p.note("Partial Art. 9 exemption: " + strings.Join(off, ", ") + " exempt.")
	}
}

func distinctCountries(j journey.Journey) []domain.CountryCode {
	var out []domain.CountryCode
	seen := map[domain.CountryCode]bool{}
	for _, c := range j.Countries() {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
