package condition

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// CUEPredicate evaluates condition expressions as CUE. Identifiers in the
// expression resolve against the target scope, so rules read naturally:
//
//	test == false && region == "eu"
type CUEPredicate struct{}

func NewCUEPredicate() *CUEPredicate {
	return &CUEPredicate{}
}

// EvalBool compiles the expression with the scope bound and requires the
// result to be a concrete boolean. A fresh context per call keeps evaluations
// independent and safe for concurrent use.
func (p *CUEPredicate) EvalBool(expr string, scope map[string]any) (bool, error) {
	ctx := cuecontext.New()

	scopeVal := ctx.Encode(scope)
	if err := scopeVal.Err(); err != nil {
		return false, fmt.Errorf("encode scope: %w", err)
	}

	v := ctx.CompileString(expr, cue.Scope(scopeVal))
	if err := v.Err(); err != nil {
		return false, fmt.Errorf("compile condition: %w", err)
	}

	result, err := v.Bool()
	if err != nil {
		return false, fmt.Errorf("evaluate condition: %w", err)
	}

	return result, nil
}
