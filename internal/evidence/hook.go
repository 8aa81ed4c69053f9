// Package evidence models tri-state evidence hooks with provenance.
//
// A Hook is immutable once created. Later stages never mutate a hook in place;
// they produce a new hook and merge it, and the merge keeps whichever hook has
// the higher-precedence source (UserInput > AutoDerived > Default).
package evidence

import (
	"encoding/json"
	"strings"

	dErrors "railclaim/pkg/domain-errors"
)

// Value is the tri-state answer carried by a hook.
type Value int

const (
	Unknown Value = iota
	Yes
	No
)

func (v Value) String() string {
	switch v {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// Known reports whether the value is Yes or No.
func (v Value) Known() bool {
	return v == Yes || v == No
}

func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Value) UnmarshalText(b []byte) error {
	parsed, err := ParseValue(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValue accepts the answer spellings used by the intake forms
// (English and Danish), plus boolean strings.
func ParseValue(s string) (Value, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "ja":
		return Yes, nil
	case "no", "n", "false", "0", "nej":
		return No, nil
	case "", "unknown", "dont know", "don't know", "ved ikke":
		return Unknown, nil
	default:
		return Unknown, dErrors.Newf(dErrors.CodeValidation, "unrecognized hook value %q", s)
	}
}

// FromBool maps a boolean onto Yes/No.
func FromBool(b bool) Value {
	if b {
		return Yes
	}
	return No
}

// Source is the provenance of a hook. Higher values take precedence.
type Source int

const (
	SourceDefault Source = iota
	SourceAutoDerived
	SourceUserInput
)

func (s Source) String() string {
	switch s {
	case SourceUserInput:
		return "user_input"
	case SourceAutoDerived:
		return "auto_derived"
	default:
		return "default"
	}
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "user_input", "user", "userinput":
		*s = SourceUserInput
	case "auto_derived", "auto", "autoderived":
		*s = SourceAutoDerived
	case "default", "":
		*s = SourceDefault
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unrecognized hook source %q", string(b))
	}
	return nil
}

// Hook is a named piece of evidence.
type Hook struct {
	Value  Value  `json:"value"`
	Source Source `json:"source"`
}

func User(v Value) Hook    { return Hook{Value: v, Source: SourceUserInput} }
func Auto(v Value) Hook    { return Hook{Value: v, Source: SourceAutoDerived} }
func Default(v Value) Hook { return Hook{Value: v, Source: SourceDefault} }

// Merge returns the hook that wins under the precedence order.
// Higher source wins; on equal source a known value beats Unknown;
// otherwise the existing hook is kept. Merge is total and deterministic.
func Merge(existing, incoming Hook) Hook {
	switch {
	case incoming.Source > existing.Source:
		return incoming
	case incoming.Source < existing.Source:
		return existing
	case !existing.Value.Known() && incoming.Value.Known():
		return incoming
	default:
		return existing
	}
}

// UnmarshalJSON accepts a full hook object, a boolean, a string answer or
// null. Primitives are user input.
func (h *Hook) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*h = User(Unknown)
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		var raw struct {
			Value  Value   `json:"value"`
			Source *Source `json:"source"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "invalid hook object")
		}
		src := SourceUserInput
		if raw.Source != nil {
			src = *raw.Source
		}
		*h = Hook{Value: raw.Value, Source: src}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*h = User(FromBool(b))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return dErrors.New(dErrors.CodeValidation, "hook must be an object, boolean or string")
	}
	v, err := ParseValue(s)
	if err != nil {
		return err
	}
	*h = User(v)
	return nil
}
