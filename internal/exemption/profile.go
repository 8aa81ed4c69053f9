// Package exemption builds the per-journey exemption profile: which
// regulation articles apply given the journey scope, the countries it runs
// through and the catalog rows for its operators and products.
package exemption

import (
	"slices"

	"railclaim/internal/catalog"
)

// Profile is the applicability of each article for one journey.
// A false entry means the article is exempt.
type Profile struct {
	ScopeClass  catalog.ScopeClass         `json:"scopeClass"`
	Articles    map[catalog.ArticleID]bool `json:"articles"`
	SubArticles map[catalog.ArticleID]bool `json:"subArticles"`
	Blocked     bool                       `json:"blocked"`
	Banners     []string                   `json:"banners"`
	Notes       []string                   `json:"notes"`
	Warnings    []string                   `json:"warnings,omitempty"`
}

// NewProfile starts with every article applicable.
func NewProfile(scope catalog.ScopeClass) Profile {
	p := Profile{
		ScopeClass:  scope,
		Articles:    make(map[catalog.ArticleID]bool, len(catalog.Articles)),
		SubArticles: make(map[catalog.ArticleID]bool, len(catalog.SubArticles)),
		Banners:     []string{},
		Notes:       []string{},
	}
	for _, a := range catalog.Articles {
		p.Articles[a] = true
	}
	for _, a := range catalog.SubArticles {
		p.SubArticles[a] = true
	}
	return p
}

// Applies reports whether article a is in force. Unknown ids apply.
func (p Profile) Applies(a catalog.ArticleID) bool {
	if a.IsSubArticle() {
		on, ok := p.SubArticles[a]
		return !ok || on
	}
	on, ok := p.Articles[a]
	return !ok || on
}

// Exempt is the negation of Applies.
func (p Profile) Exempt(a catalog.ArticleID) bool {
	return !p.Applies(a)
}

func (p *Profile) set(a catalog.ArticleID, on bool) {
	switch {
	case a == catalog.Art9:
		for _, sub := range catalog.SubArticles {
			p.SubArticles[sub] = on
		}
		p.Articles[catalog.Art9] = on
	case a.IsSubArticle():
		p.SubArticles[a] = on
	default:
		p.Articles[a] = on
	}
}

func (p *Profile) note(s string) {
	if s != "" && !slices.Contains(p.Notes, s) {
		p.Notes = append(p.Notes, s)
	}
}

func (p *Profile) banner(s string) {
	if s != "" && !slices.Contains(p.Banners, s) {
		p.Banners = append(p.Banners, s)
	}
}
