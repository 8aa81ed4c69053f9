package catalog

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"railclaim/pkg/domain"
)

// gateCostLimit bounds CEL evaluation cost per gate.
const gateCostLimit = 100000

// Gate is a country-specific conditional rule that toggles articles after
// the matrix has been applied, when its CEL condition holds for the journey.
type Gate struct {
	ID      string             `json:"id"`
	Country domain.CountryCode `json:"country"`
	Scope   ScopeClass         `json:"scope"`
	When    string             `json:"when"`
	Enable  []ArticleID        `json:"enable,omitempty"`
	Disable []ArticleID        `json:"disable,omitempty"`
	Note    string             `json:"note,omitempty"`
	Banner  string             `json:"banner,omitempty"`

	program cel.Program
}

// GateInput is the journey view exposed to gate expressions.
type GateInput struct {
	Scope         ScopeClass
	Countries     []string
	DistanceKm    float64
	DistanceKnown bool
	Flags         map[string]bool
}

func (in GateInput) activation() map[string]any {
	first, last := "", ""
	if n := len(in.Countries); n > 0 {
		first, last = in.Countries[0], in.Countries[n-1]
	}
	flags := in.Flags
	if flags == nil {
		flags = map[string]bool{}
	}
	countries := in.Countries
	if countries == nil {
		countries = []string{}
	}
	return map[string]any{
		"scope":         string(in.Scope),
		"countries":     countries,
		"firstCountry":  first,
		"lastCountry":   last,
		"distanceKm":    in.DistanceKm,
		"distanceKnown": in.DistanceKnown,
		"flags":         flags,
		"eu":            domain.EUMembers(),
	}
}

// newGateEnv declares the variables gate expressions may reference.
func newGateEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("scope", cel.StringType),
		cel.Variable("countries", cel.ListType(cel.StringType)),
		cel.Variable("firstCountry", cel.StringType),
		cel.Variable("lastCountry", cel.StringType),
		cel.Variable("distanceKm", cel.DoubleType),
		cel.Variable("distanceKnown", cel.BoolType),
		cel.Variable("flags", cel.MapType(cel.StringType, cel.BoolType)),
		cel.Variable("eu", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create gate environment: %w", err)
	}
	return env, nil
}

// compile type-checks the gate expression and attaches the program.
func (g *Gate) compile(env *cel.Env) error {
	if g.When == "" {
		return fmt.Errorf("gate %s: empty condition", g.ID)
	}
	ast, issues := env.Compile(g.When)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("gate %s: compile: %w", g.ID, issues.Err())
	}
	prg, err := env.Program(ast, cel.CostLimit(gateCostLimit))
	if err != nil {
		return fmt.Errorf("gate %s: program: %w", g.ID, err)
	}
	g.program = prg
	return nil
}

// Matches evaluates the gate condition. Non-boolean results count as false.
func (g Gate) Matches(in GateInput) (bool, error) {
	if g.program == nil {
		return false, fmt.Errorf("gate %s is not compiled", g.ID)
	}
	out, _, err := g.program.Eval(in.activation())
	if err != nil {
		return false, fmt.Errorf("gate %s: eval: %w", g.ID, err)
	}
	matched, ok := out.Value().(bool)
	return ok && matched, nil
}
