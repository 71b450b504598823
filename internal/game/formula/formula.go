// Package formula parses and evaluates the small arithmetic expressions used
// throughout combat configuration: damage, dissipate/absorb, accuracy.
//
// A Formula is parsed once at load time into an immutable tree and evaluated
// many times against a Context. Evaluation is a pure function of the Context
// and the supplied dice.Source; rand() and dice() are the only primitives that
// consume randomness.
package formula

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/melee/internal/game/dice"
)

// Formula is an immutable parsed expression plus its source text.
type Formula struct {
	source string
	root   node
	vars   []string
}

// Parse parses src into a Formula.
//
// Precondition: src is non-empty.
// Postcondition: Returns a Formula or a *ParseError.
func Parse(src string) (*Formula, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, &ParseError{Source: src, Pos: 0, Msg: "empty expression"}
	}
	p := &parser{src: src, toks: toks}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{})
	root.collect(names)
	vars := make([]string, 0, len(names))
	for n := range names {
		vars = append(vars, n)
	}
	sort.Strings(vars)
	return &Formula{source: src, root: root, vars: vars}, nil
}

// MustParse parses src and panics on error. Useful for package-level defaults.
func MustParse(src string) *Formula {
	f, err := Parse(src)
	if err != nil {
		panic("formula: MustParse failed: " + err.Error())
	}
	return f
}

// Source returns the original expression text.
func (f *Formula) Source() string { return f.source }

// String implements fmt.Stringer.
func (f *Formula) String() string { return f.source }

// Variables returns the sorted set of names referenced by the formula. Trait
// references appear as "name:id".
func (f *Formula) Variables() []string {
	out := make([]string, len(f.vars))
	copy(out, f.vars)
	return out
}

// Evaluate computes the formula strictly.
//
// Postcondition: Returns a finite value, or an *UnboundVariableError or
// *DomainError. Never panics.
func (f *Formula) Evaluate(ctx Context, src dice.Source) (float64, error) {
	e := &evaluator{ctx: ctx, src: src}
	return f.root.eval(e)
}

// EvaluateLenient computes the formula, substituting 0 for every failing
// sub-expression.
//
// Postcondition: The returned value is always finite; faults lists every
// substituted failure in evaluation order.
func (f *Formula) EvaluateLenient(ctx Context, src dice.Source) (value float64, faults []error) {
	e := &evaluator{ctx: ctx, src: src, lenient: true}
	v, _ := f.root.eval(e)
	return v, e.faults
}

// ValidateBindings reports an error if the formula references a plain
// variable outside allowed. Trait references ("name:id") are checked by
// their name prefix only.
func (f *Formula) ValidateBindings(allowed map[string]struct{}) error {
	var errs []error
	for _, v := range f.vars {
		name := v
		for i := 0; i < len(v); i++ {
			if v[i] == ':' {
				name = v[:i]
				break
			}
		}
		if _, ok := allowed[name]; !ok {
			errs = append(errs, &UnboundVariableError{Name: v})
		}
	}
	return errors.Join(errs...)
}

// Safe evaluates f leniently and logs each substituted fault at warn level.
// A nil formula evaluates to fallback.
//
// Postcondition: never returns NaN or Inf.
func Safe(f *Formula, ctx Context, src dice.Source, fallback float64, logger *zap.Logger) float64 {
	if f == nil {
		return fallback
	}
	v, faults := f.EvaluateLenient(ctx, src)
	for _, err := range faults {
		logger.Warn("formula fault substituted with 0",
			zap.String("formula", f.source),
			zap.Error(err),
		)
	}
	return v
}
