package alerts

import (
	"strings"

	"github.com/google/cel-go/cel"

	"lotline/internal/core/apperror"
)

// Filter is a tenant-supplied CEL expression evaluated against each
// candidate after a sweep. Candidates for which the expression is
// false are dropped before the result is returned.
//
// Available variables: type, priority, reference_id, message (strings)
// and details (map). Example:
//
//	priority in ["critical", "high"] || details.days_to_expiry < 2
type Filter struct {
	expr string
	prg  cel.Program
}

// NewFilter compiles a CEL filter expression. The expression must
// evaluate to a boolean.
func NewFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, apperror.NewValidation("filter expression is empty")
	}

	env, err := cel.NewEnv(
		cel.Variable("type", cel.StringType),
		cel.Variable("priority", cel.StringType),
		cel.Variable("reference_id", cel.StringType),
		cel.Variable("message", cel.StringType),
		cel.Variable("details", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("invalid filter expression").
			WithDetail("expression", expr).
			WithCause(iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewValidation("filter expression must evaluate to a boolean").
			WithDetail("expression", expr)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	return &Filter{expr: expr, prg: prg}, nil
}

// Match evaluates the filter against one candidate.
func (f *Filter) Match(c *Candidate) (bool, error) {
	details := c.Details
	if details == nil {
		details = map[string]any{}
	}

	out, _, err := f.prg.Eval(map[string]any{
		"type":         string(c.Type),
		"priority":     string(c.Priority),
		"reference_id": c.ReferenceID.String(),
		"message":      c.Message,
		"details":      details,
	})
	if err != nil {
		return false, apperror.NewValidation("filter evaluation failed").
			WithDetail("expression", f.expr).
			WithCause(err)
	}

	keep, ok := out.Value().(bool)
	if !ok {
		return false, apperror.NewValidation("filter expression did not return a boolean").
			WithDetail("expression", f.expr)
	}
	return keep, nil
}

// Apply returns the candidates matching the filter. A nil filter keeps
// everything.
func (f *Filter) Apply(candidates []Candidate) ([]Candidate, error) {
	if f == nil {
		return candidates, nil
	}
	out := make([]Candidate, 0, len(candidates))
	for i := range candidates {
		keep, err := f.Match(&candidates[i])
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}
