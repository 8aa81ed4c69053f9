// Package infoduty evaluates the Art. 9 information duties: information
// before purchase, information on rights, and information during disruption.
package infoduty

import (
	"fmt"
	"slices"
	"strings"

	"railclaim/internal/catalog"
	"railclaim/internal/evidence"
	"railclaim/internal/exemption"
	"railclaim/internal/throughticket"
)

// Parent hooks summarize each part and are derived from the part's
// sub-hooks when not answered.
const (
	HookInfoBeforePurchase   evidence.Name = "info_before_purchase"
	HookInfoOnRights         evidence.Name = "info_on_rights"
	HookInfoDuringDisruption evidence.Name = "info_during_disruption"
)

type duty struct {
	article catalog.ArticleID
	parent  evidence.Name
	subs    []evidence.Name
}

var duties = []duty{
	{
		article: catalog.Art9_1,
		parent:  HookInfoBeforePurchase,
		subs:    []evidence.Name{"language_accessible", "accessibility_format", "multi_channel_information", "accessible_formats_offered"},
	},
	{
		article: catalog.Art9_2,
		parent:  HookInfoOnRights,
		subs:    []evidence.Name{"rights_notice_displayed", "rights_contact_provided"},
	},
	{
		article: catalog.Art9_3,
		parent:  HookInfoDuringDisruption,
		subs:    []evidence.Name{"station_board_updates", "onboard_announcements", "disruption_updates_frequency", "assistance_contact_visible"},
	},
}

func (d duty) hooks() []evidence.Name {
	return append([]evidence.Name{d.parent}, d.subs...)
}

var fallbacks = map[evidence.Name]string{
	HookInfoBeforePurchase:         "show_pre_purchase_summary",
	"language_accessible":          "offer_language_toggle",
	"accessibility_format":         "offer_plain_text_and_pdf",
	"multi_channel_information":    "offer_multi_channel",
	"accessible_formats_offered":   "offer_plain_text_and_pdf",
	HookInfoOnRights:               "show_basic_rights_link",
	"rights_notice_displayed":      "show_basic_rights_link",
	"rights_contact_provided":      "prompt_contact_point",
	HookInfoDuringDisruption:       "ask_upload_notifications",
	"station_board_updates":        "ask_upload_notifications",
	"onboard_announcements":        "ask_upload_notifications",
	"disruption_updates_frequency": "encourage_frequency_standard",
	"assistance_contact_visible":   "prompt_assistance_contact",
}

type Status string

const (
	StatusOK         Status = "ok"
	StatusFailed     Status = "failed"
	StatusIncomplete Status = "incomplete"
	StatusExempt     Status = "exempt"
)

// Part is the outcome for one Art. 9 paragraph.
type Part struct {
	Article catalog.ArticleID `json:"article"`
	Status  Status            `json:"status"`
	Failed  []evidence.Name   `json:"failed,omitempty"`
	Unknown []evidence.Name   `json:"unknown,omitempty"`
}

// Ok is true when every hook is yes, or when the part is exempt.
func (p Part) Ok() bool {
	return p.Status == StatusOK || p.Status == StatusExempt
}

// Mismatch is a non-fatal contradiction between hooks, kept for human review.
type Mismatch struct {
	Kind   string            `json:"kind"`
	Hooks  []evidence.Name   `json:"hooks"`
	Part   catalog.ArticleID `json:"part"`
	Detail string            `json:"detail"`
}

// Hints are catalog-derived facts shown next to the result.
type Hints struct {
	OperatorCountryEU bool     `json:"operatorCountryEU"`
	NonEUCountries    []string `json:"nonEUCountries,omitempty"`
	FareFlex          string   `json:"fareFlex,omitempty"`
}

// Input carries everything the evaluator reads.
type Input struct {
	Hooks     evidence.Set
	Conflicts []evidence.Conflict
	Profile   exemption.Profile
	Hints     Hints
}

// Result is the information-duty outcome.
type Result struct {
	BeforePurchaseOk   bool            `json:"beforePurchaseOk"`
	RightsInfoOk       bool            `json:"rightsInfoOk"`
	DuringDisruptionOk bool            `json:"duringDisruptionOk"`
	Parts              []Part          `json:"parts"`
	AskHooks           []evidence.Name `json:"askHooks"`
	Mismatches         []Mismatch      `json:"mismatches"`
	Fallbacks          []string        `json:"fallbacks"`
	Banners            []string        `json:"banners"`
	Reasons            []string        `json:"reasons"`
	Hints              Hints           `json:"hints"`

	// Hooks is the evidence after parent derivation.
	Hooks evidence.Set `json:"-"`
}

// Evaluate checks each non-exempt part. Unknown hooks become questions;
// a no answer is a final failure. It never returns an error.
func Evaluate(in Input) Result {
	res := Result{
		Parts:      make([]Part, 0, len(duties)),
		AskHooks:   []evidence.Name{},
		Mismatches: []Mismatch{},
		Fallbacks:  []string{},
		Banners:    []string{},
		Reasons:    []string{},
		Hints:      in.Hints,
	}
	hooks := in.Hooks

	if in.Profile.Exempt(catalog.Art9) {
		res.Reasons = append(res.Reasons, "Art. 9 is exempt for this journey")
		res.Fallbacks = append(res.Fallbacks, fallbacks[HookInfoOnRights])
		res.Banners = append(res.Banners, "Art. 9 exempt (profile).")
	}

	for _, d := range duties {
		if in.Profile.Exempt(d.article) {
			res.Parts = append(res.Parts, Part{Article: d.article, Status: StatusExempt})
			continue
		}
		hooks = deriveParent(hooks, d)
		part := evaluatePart(hooks, d)
		res.Parts = append(res.Parts, part)
		res.AskHooks = append(res.AskHooks, part.Unknown...)
		for _, name := range part.Failed {
			res.Reasons = append(res.Reasons, fmt.Sprintf("%s answered no", name))
		}
		for _, name := range d.hooks() {
			if hooks.Value(name) != evidence.Yes && !slices.Contains(res.Fallbacks, fallbacks[name]) {
				res.Fallbacks = append(res.Fallbacks, fallbacks[name])
			}
		}
	}

	res.Mismatches = detectMismatches(hooks, in.Conflicts, in.Profile)

	for _, p := range res.Parts {
		label := p.Article.Label()
		switch p.Status {
		case StatusExempt:
			res.Banners = append(res.Banners, label+" exempt.")
			continue
		case StatusFailed:
			res.Banners = append(res.Banners, label+" not met.")
		case StatusIncomplete:
			res.Banners = append(res.Banners, label+" incomplete (unknown answers).")
		}
		var names []string
		for _, m := range res.Mismatches {
			if m.Part == p.Article {
				for _, h := range m.Hooks {
					if !slices.Contains(names, string(h)) {
						names = append(names, string(h))
					}
				}
			}
		}
		if len(names) > 0 {
			res.Banners = append(res.Banners, label+" mismatch: "+strings.Join(names, ", "))
		}
	}

	res.BeforePurchaseOk = res.Parts[0].Ok()
	res.RightsInfoOk = res.Parts[1].Ok()
	res.DuringDisruptionOk = res.Parts[2].Ok()
	res.Reasons = append(res.Reasons, hintReasons(in.Hints)...)
	res.Hooks = hooks
	return res
}

// deriveParent fills an unanswered parent hook: no when any sub-hook is no,
// yes when every sub-hook is known and none is no.
func deriveParent(hooks evidence.Set, d duty) evidence.Set {
	if hooks.Value(d.parent).Known() {
		return hooks
	}
	allKnown := true
	for _, sub := range d.subs {
		switch hooks.Value(sub) {
		case evidence.No:
			next, _ := hooks.With(d.parent, evidence.Auto(evidence.No))
			return next
		case evidence.Unknown:
			allKnown = false
		}
	}
	if !allKnown {
		return hooks
	}
	next, _ := hooks.With(d.parent, evidence.Auto(evidence.Yes))
	return next
}

func evaluatePart(hooks evidence.Set, d duty) Part {
	p := Part{Article: d.article, Status: StatusOK}
	for _, name := range d.hooks() {
		switch hooks.Value(name) {
		case evidence.No:
			p.Failed = append(p.Failed, name)
		case evidence.Unknown:
			p.Unknown = append(p.Unknown, name)
		}
	}
	switch {
	case len(p.Failed) > 0:
		p.Status = StatusFailed
	case len(p.Unknown) > 0:
		p.Status = StatusIncomplete
	}
	return p
}

func detectMismatches(hooks evidence.Set, conflicts []evidence.Conflict, profile exemption.Profile) []Mismatch {
	out := []Mismatch{}
	add := func(part catalog.ArticleID, kind, detail string, names ...evidence.Name) {
		if profile.Exempt(part) {
			return
		}
		out = append(out, Mismatch{Kind: kind, Hooks: names, Part: part, Detail: detail})
	}
	is := func(name evidence.Name, v evidence.Value) bool { return hooks.Value(name) == v }

	if is(throughticket.HookThroughTicketDisclosure, evidence.Yes) &&
		is(throughticket.HookSeparateContractNotice, evidence.Yes) &&
		is(throughticket.HookSellerTypeOperator, evidence.No) &&
		is(throughticket.HookSellerTypeAgency, evidence.No) {
		add(catalog.Art9_1, "contract_structure",
			"separate contracts disclosed and noticed, but neither an operator nor an agency sold the ticket",
			throughticket.HookThroughTicketDisclosure, throughticket.HookSeparateContractNotice,
			throughticket.HookSellerTypeOperator, throughticket.HookSellerTypeAgency)
	}
	if is(throughticket.HookSellerTypeOperator, evidence.Yes) && is(throughticket.HookSellerTypeAgency, evidence.Yes) {
		add(catalog.Art9_1, "seller_type", "sold by both the operator and an agency",
			throughticket.HookSellerTypeOperator, throughticket.HookSellerTypeAgency)
	}
	if is(throughticket.HookSingleTxnOperator, evidence.Yes) && is(throughticket.HookSingleTxnRetailer, evidence.Yes) {
		add(catalog.Art9_1, "single_transaction", "single transaction with both the operator and a retailer",
			throughticket.HookSingleTxnOperator, throughticket.HookSingleTxnRetailer)
	}
	for _, d := range duties {
		if hooks.Get(d.parent).Source != evidence.SourceUserInput || !is(d.parent, evidence.Yes) {
			continue
		}
		for _, sub := range d.subs {
			if is(sub, evidence.No) {
				add(d.article, "parent_sub", fmt.Sprintf("%s is yes but %s is no", d.parent, sub), d.parent, sub)
			}
		}
	}
	for _, c := range conflicts {
		if c.Kept.Source == c.Rejected.Source {
			add(partFor(c.Hook), "duplicate_answer",
				fmt.Sprintf("%s answered both %s and %s, kept %s", c.Hook, c.Kept.Value, c.Rejected.Value, c.Kept.Value), c.Hook)
			continue
		}
		add(partFor(c.Hook), "auto_vs_user",
			fmt.Sprintf("%s answered %s, derived %s", c.Hook, c.Kept.Value, c.Rejected.Value), c.Hook)
	}
	return out
}

func partFor(name evidence.Name) catalog.ArticleID {
	for _, d := range duties {
		if slices.Contains(d.hooks(), name) {
			return d.article
		}
	}
	return catalog.Art9_1
}

func hintReasons(h Hints) []string {
	var out []string
	if !h.OperatorCountryEU && len(h.NonEUCountries) > 0 {
		out = append(out, "journey runs outside the EU ("+strings.Join(h.NonEUCountries, ", ")+"), duties cover EU legs only")
	}
	switch h.FareFlex {
	case "":
	case "non_flex":
		out = append(out, "non-flexible fare: pre-purchase fare terms carry extra weight")
	default:
		out = append(out, "fare flexibility: "+h.FareFlex)
	}
	return out
}
