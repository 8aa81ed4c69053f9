package infoduty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railclaim/internal/catalog"
	"railclaim/internal/evidence"
	"railclaim/internal/exemption"
)

func allYes(names ...evidence.Name) map[string]evidence.Hook {
	out := map[string]evidence.Hook{}
	for _, d := range duties {
		for _, n := range d.subs {
			out[string(n)] = evidence.User(evidence.Yes)
		}
	}
	for _, n := range names {
		out[string(n)] = evidence.User(evidence.No)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	profile := exemption.NewProfile(catalog.ScopeLongDomestic)

	t.Run("all sub-hooks yes derives parents and passes", func(t *testing.T) {
		res := Evaluate(Input{Hooks: evidence.NewSet(allYes()), Profile: profile})
		assert.True(t, res.BeforePurchaseOk)
		assert.True(t, res.RightsInfoOk)
		assert.True(t, res.DuringDisruptionOk)
		assert.Empty(t, res.AskHooks)
		assert.Empty(t, res.Fallbacks)
		assert.Equal(t, evidence.Auto(evidence.Yes), res.Hooks.Get(HookInfoOnRights))
	})

	t.Run("a no answer is a final failure, not a question", func(t *testing.T) {
		res := Evaluate(Input{Hooks: evidence.NewSet(allYes("rights_contact_provided")), Profile: profile})
		assert.True(t, res.BeforePurchaseOk)
		assert.False(t, res.RightsInfoOk)
		assert.Empty(t, res.AskHooks)
		assert.Equal(t, StatusFailed, res.Parts[1].Status)
		assert.Equal(t, []evidence.Name{HookInfoOnRights, "rights_contact_provided"}, res.Parts[1].Failed)
		assert.Contains(t, res.Fallbacks, "prompt_contact_point")
		assert.Contains(t, res.Banners, "Art. 9(2) not met.")
	})

	t.Run("unknown answers are asked", func(t *testing.T) {
		res := Evaluate(Input{Hooks: evidence.NewSet(nil), Profile: profile})
		assert.False(t, res.BeforePurchaseOk)
		assert.Len(t, res.AskHooks, 13)
		assert.Equal(t, HookInfoBeforePurchase, res.AskHooks[0])
		assert.Contains(t, res.Banners, "Art. 9(3) incomplete (unknown answers).")
	})

	t.Run("exempt parts are skipped", func(t *testing.T) {
		p := exemption.NewProfile(catalog.ScopeRegional)
		p.SubArticles[catalog.Art9_3] = false
		res := Evaluate(Input{Hooks: evidence.NewSet(nil), Profile: p})
		assert.True(t, res.DuringDisruptionOk)
		assert.Equal(t, StatusExempt, res.Parts[2].Status)
		assert.NotContains(t, res.AskHooks, HookInfoDuringDisruption)
		assert.Contains(t, res.Banners, "Art. 9(3) exempt.")
	})
}

func TestMismatches(t *testing.T) {
	profile := exemption.NewProfile(catalog.ScopeLongDomestic)

	t.Run("contradicting contract and seller answers", func(t *testing.T) {
		raw := allYes()
		raw["through_ticket_disclosure"] = evidence.User(evidence.Yes)
		raw["separate_contract_notice"] = evidence.User(evidence.Yes)
		raw["seller_type_operator"] = evidence.User(evidence.No)
		raw["seller_type_agency"] = evidence.User(evidence.No)
		raw["single_txn_operator"] = evidence.User(evidence.Yes)
		raw["single_txn_retailer"] = evidence.User(evidence.Yes)

		res := Evaluate(Input{Hooks: evidence.NewSet(raw), Profile: profile})
		require.Len(t, res.Mismatches, 2)
		assert.Equal(t, "contract_structure", res.Mismatches[0].Kind)
		assert.Equal(t, "single_transaction", res.Mismatches[1].Kind)
		assert.True(t, res.BeforePurchaseOk, "mismatches are not failures")
	})

	t.Run("parent yes with a sub-hook no", func(t *testing.T) {
		raw := allYes("onboard_announcements")
		raw[string(HookInfoDuringDisruption)] = evidence.User(evidence.Yes)
		res := Evaluate(Input{Hooks: evidence.NewSet(raw), Profile: profile})
		require.Len(t, res.Mismatches, 1)
		assert.Equal(t, "parent_sub", res.Mismatches[0].Kind)
		assert.Equal(t, catalog.Art9_3, res.Mismatches[0].Part)
		assert.Contains(t, res.Banners, "Art. 9(3) mismatch: info_during_disruption, onboard_announcements")
	})

	t.Run("auto versus user conflicts", func(t *testing.T) {
		conflicts := []evidence.Conflict{{
			Hook:     "shared_pnr_scope",
			Kept:     evidence.User(evidence.Yes),
			Rejected: evidence.Auto(evidence.No),
		}}
		res := Evaluate(Input{Hooks: evidence.NewSet(allYes()), Conflicts: conflicts, Profile: profile})
		require.Len(t, res.Mismatches, 1)
		assert.Equal(t, "auto_vs_user", res.Mismatches[0].Kind)
	})

	t.Run("duplicate answers for one hook", func(t *testing.T) {
		conflicts := []evidence.Conflict{{
			Hook:     "separate_contract_notice",
			Kept:     evidence.User(evidence.No),
			Rejected: evidence.User(evidence.Yes),
		}}
		res := Evaluate(Input{Hooks: evidence.NewSet(allYes()), Conflicts: conflicts, Profile: profile})
		require.Len(t, res.Mismatches, 1)
		assert.Equal(t, "duplicate_answer", res.Mismatches[0].Kind)
		assert.Equal(t, []evidence.Name{"separate_contract_notice"}, res.Mismatches[0].Hooks)
	})

	t.Run("mismatches in exempt parts are dropped", func(t *testing.T) {
		p := exemption.NewProfile(catalog.ScopeRegional)
		p.SubArticles[catalog.Art9_1] = false
		raw := allYes()
		raw["seller_type_operator"] = evidence.User(evidence.Yes)
		raw["seller_type_agency"] = evidence.User(evidence.Yes)
		res := Evaluate(Input{Hooks: evidence.NewSet(raw), Profile: p})
		assert.Empty(t, res.Mismatches)
	})
}

func TestHints(t *testing.T) {
	res := Evaluate(Input{
		Hooks:   evidence.NewSet(allYes()),
		Profile: exemption.NewProfile(catalog.ScopeInternationalBeyondEU),
		Hints:   Hints{OperatorCountryEU: false, NonEUCountries: []string{"CH"}, FareFlex: "non_flex"},
	})
	assert.Len(t, res.Reasons, 2)
	assert.Contains(t, res.Reasons[0], "CH")
}
