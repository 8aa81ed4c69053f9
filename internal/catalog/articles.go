package catalog

import (
	"regexp"
	"strings"

	dErrors "railclaim/pkg/domain-errors"
)

// ArticleID names a regulation article (or Art. 9 sub-part) whose
// applicability the exemption profile tracks.
type ArticleID string

const (
	Art9    ArticleID = "art9"
	Art10   ArticleID = "art10"
	Art12   ArticleID = "art12"
	Art17   ArticleID = "art17"
	Art18_3 ArticleID = "art18_3"
	Art19   ArticleID = "art19"
	Art20_2 ArticleID = "art20_2"
	Art30_2 ArticleID = "art30_2"

	Art9_1 ArticleID = "art9_1"
	Art9_2 ArticleID = "art9_2"
	Art9_3 ArticleID = "art9_3"
)

// Articles lists top-level articles in the fixed order used for banners.
var Articles = []ArticleID{Art10, Art12, Art18_3, Art19, Art20_2, Art9, Art17, Art30_2}

// SubArticles lists the Art. 9 parts.
var SubArticles = []ArticleID{Art9_1, Art9_2, Art9_3}

var knownArticles = map[ArticleID]bool{
	Art9: true, Art10: true, Art12: true, Art17: true, Art18_3: true,
	Art19: true, Art20_2: true, Art30_2: true,
	Art9_1: true, Art9_2: true, Art9_3: true,
}

// IsSubArticle reports whether a is an Art. 9 part.
func (a ArticleID) IsSubArticle() bool {
	return a == Art9_1 || a == Art9_2 || a == Art9_3
}

// Label renders the legal citation, e.g. "Art. 18(3)".
func (a ArticleID) Label() string {
	s := strings.TrimPrefix(string(a), "art")
	if i := strings.IndexByte(s, '_'); i >= 0 {
		return "Art. " + s[:i] + "(" + s[i+1:] + ")"
	}
	return "Art. " + s
}

var citation = regexp.MustCompile(`^art\.?\s*(\d+)(?:\s*\((\d+)\))?$`)

// ParseArticle accepts citations ("Art.18(3)", "Art. 12") and canonical ids
// ("art18_3").
func ParseArticle(s string) (ArticleID, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if knownArticles[ArticleID(raw)] {
		return ArticleID(raw), nil
	}
	m := citation.FindStringSubmatch(raw)
	if m == nil {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown article %q", s)
	}
	id := ArticleID("art" + m[1])
	if m[2] != "" {
		id = ArticleID("art" + m[1] + "_" + m[2])
	}
	if !knownArticles[id] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown article %q", s)
	}
	return id, nil
}
