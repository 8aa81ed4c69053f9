package evidence

import (
	"sort"
	"strings"
)

// Name identifies a hook. Canonical names are snake_case.
type Name string

// Conflict records two known hooks with different values for the same name.
// The winner is what evaluation continues with.
type Conflict struct {
	Hook     Name
	Kept     Hook
	Rejected Hook
}

// Set is an immutable-by-convention collection of hooks for one evaluation.
// With returns a new Set; the receiver is never modified.
type Set struct {
	hooks map[Name]Hook
}

// NewSet builds a set from raw hooks, normalizing names. An answer of
// unknown carries no evidence and is demoted to the default source so that
// derived values can still fill it.
func NewSet(raw map[string]Hook) Set {
	s, _ := Collect(raw)
	return s
}

// Collect is NewSet that also reports raw keys which normalize to the same
// name with different known values. Keys are merged in a fixed order: the
// canonical spelling first, then the aliases sorted, so on equal source the
// canonical spelling wins.
func Collect(raw map[string]Hook) (Set, []Conflict) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := Canonical(keys[i]), Canonical(keys[j])
		if ci != cj {
			return ci < cj
		}
		exactI, exactJ := keys[i] == string(ci), keys[j] == string(cj)
		if exactI != exactJ {
			return exactI
		}
		return keys[i] < keys[j]
	})

	s := Set{hooks: make(map[Name]Hook, len(raw))}
	var conflicts []Conflict
	for _, k := range keys {
		h := raw[k]
		if !h.Value.Known() {
			h.Source = SourceDefault
		}
		name := Canonical(k)
		existing, ok := s.hooks[name]
		if !ok {
			s.hooks[name] = h
			continue
		}
		winner := Merge(existing, h)
		if existing.Value.Known() && h.Value.Known() && existing.Value != h.Value {
			rejected := h
			if winner == h {
				rejected = existing
			}
			conflicts = append(conflicts, Conflict{Hook: name, Kept: winner, Rejected: rejected})
		}
		s.hooks[name] = winner
	}
	return s, conflicts
}

// Get returns the hook for name, or a default Unknown hook.
func (s Set) Get(name Name) Hook {
	if h, ok := s.hooks[name]; ok {
		return h
	}
	return Default(Unknown)
}

// Value is shorthand for Get(name).Value.
func (s Set) Value(name Name) Value {
	return s.Get(name).Value
}

// Has reports whether name was supplied or derived.
func (s Set) Has(name Name) bool {
	_, ok := s.hooks[name]
	return ok
}

// With merges h into a copy of the set. A conflict is returned when both
// hooks are known and disagree.
func (s Set) With(name Name, h Hook) (Set, *Conflict) {
	out := Set{hooks: make(map[Name]Hook, len(s.hooks)+1)}
	for k, v := range s.hooks {
		out.hooks[k] = v
	}
	existing, ok := s.hooks[name]
	if !ok {
		out.hooks[name] = h
		return out, nil
	}
	winner := Merge(existing, h)
	out.hooks[name] = winner

	if existing.Value.Known() && h.Value.Known() && existing.Value != h.Value {
		rejected := h
		if winner == h {
			rejected = existing
		}
		return out, &Conflict{Hook: name, Kept: winner, Rejected: rejected}
	}
	return out, nil
}

// Names returns hook names in sorted order.
func (s Set) Names() []Name {
	names := make([]Name, 0, len(s.hooks))
	for k := range s.hooks {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Snapshot copies the hooks into a plain map for responses.
func (s Set) Snapshot() map[Name]Hook {
	out := make(map[Name]Hook, len(s.hooks))
	for k, v := range s.hooks {
		out[k] = v
	}
	return out
}

// aliases maps camelCase request names onto canonical hook names.
var aliases = map[string]Name{
	"singletransactionoperator": "single_txn_operator",
	"singletransactionretailer": "single_txn_retailer",
	"singletxnoperator":         "single_txn_operator",
	"singletxnretailer":         "single_txn_retailer",
	"sharedpnrscope":            "shared_pnr_scope",
	"multioperatortrip":         "multi_operator_trip",
	"sellertypeoperator":        "seller_type_operator",
	"sellertypeagency":          "seller_type_agency",
	"throughticketdisclosure":   "through_ticket_disclosure",
	"separatecontractnotice":    "separate_contract_notice",
	"preinformeddisruption":     "preinformed_disruption",
}

// Canonical lowers and snake-cases a hook name.
func Canonical(raw string) Name {
	trimmed := strings.TrimSpace(raw)
	squashed := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(trimmed))
	if n, ok := aliases[squashed]; ok {
		return n
	}

	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		case r == '-' || r == ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return Name(b.String())
}
