package formula

import "strconv"

// Context resolves variable references during evaluation.
type Context interface {
	// Value returns the value bound to name.
	Value(name string) (float64, bool)
	// Trait returns the value of the trait addressed as "name:id".
	Trait(name string, id int64) (float64, bool)
}

// Vars is a flat Context. Trait references are looked up under the key
// "name:id".
type Vars map[string]float64

// Value implements Context.
func (v Vars) Value(name string) (float64, bool) {
	x, ok := v[name]
	return x, ok
}

// Trait implements Context.
func (v Vars) Trait(name string, id int64) (float64, bool) {
	x, ok := v[TraitKey(name, id)]
	return x, ok
}

// TraitKey returns the Vars key used for a "name:id" reference.
func TraitKey(name string, id int64) string {
	return name + ":" + strconv.FormatInt(id, 10)
}

// TraitFunc adapts a lookup function into a Context that only serves
// trait references.
type TraitFunc func(name string, id int64) (float64, bool)

// Value implements Context; TraitFunc binds no plain variables.
func (f TraitFunc) Value(string) (float64, bool) { return 0, false }

// Trait implements Context.
func (f TraitFunc) Trait(name string, id int64) (float64, bool) { return f(name, id) }

// chain consults each Context in order and returns the first hit.
type chain []Context

// Chain returns a Context that resolves names against ctxs in order.
func Chain(ctxs ...Context) Context {
	out := make(chain, 0, len(ctxs))
	for _, c := range ctxs {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (c chain) Value(name string) (float64, bool) {
	for _, ctx := range c {
		if v, ok := ctx.Value(name); ok {
			return v, true
		}
	}
	return 0, false
}

func (c chain) Trait(name string, id int64) (float64, bool) {
	for _, ctx := range c {
		if v, ok := ctx.Trait(name, id); ok {
			return v, true
		}
	}
	return 0, false
}
