package formula

import (
	"math"
	"strconv"

	"github.com/cory-johannsen/melee/internal/game/dice"
)

// evaluator carries per-call state. In lenient mode a failing operation
// yields 0 and is recorded in faults instead of aborting the evaluation.
type evaluator struct {
	ctx     Context
	src     dice.Source
	lenient bool
	faults  []error
}

func (e *evaluator) fail(err error) (float64, error) {
	if e.lenient {
		e.faults = append(e.faults, err)
		return 0, nil
	}
	return 0, err
}

// finite guards every operation result: NaN and Inf are domain errors.
func (e *evaluator) finite(op string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return e.fail(&DomainError{Op: op, Msg: "result is not a finite number"})
	}
	return v, nil
}

type node interface {
	eval(e *evaluator) (float64, error)
	collect(names map[string]struct{})
}

type numberNode float64

func (n numberNode) eval(*evaluator) (float64, error) { return float64(n), nil }
func (n numberNode) collect(map[string]struct{})      {}

type varNode struct{ name string }

func (n *varNode) eval(e *evaluator) (float64, error) {
	if e.ctx != nil {
		if v, ok := e.ctx.Value(n.name); ok {
			return v, nil
		}
	}
	return e.fail(&UnboundVariableError{Name: n.name})
}

func (n *varNode) collect(names map[string]struct{}) { names[n.name] = struct{}{} }

type traitNode struct {
	name string
	id   int64
}

func (n *traitNode) eval(e *evaluator) (float64, error) {
	if e.ctx != nil {
		if v, ok := e.ctx.Trait(n.name, n.id); ok {
			return v, nil
		}
	}
	return e.fail(&UnboundVariableError{Name: n.name + ":" + strconv.FormatInt(n.id, 10)})
}

func (n *traitNode) collect(names map[string]struct{}) {
	names[TraitKey(n.name, n.id)] = struct{}{}
}

type negNode struct{ operand node }

func (n *negNode) eval(e *evaluator) (float64, error) {
	v, err := n.operand.eval(e)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (n *negNode) collect(names map[string]struct{}) { n.operand.collect(names) }

type binaryNode struct {
	op          string
	left, right node
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (n *binaryNode) eval(e *evaluator) (float64, error) {
	l, err := n.left.eval(e)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(e)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return e.finite("+", l+r)
	case "-":
		return e.finite("-", l-r)
	case "*":
		return e.finite("*", l*r)
	case "/":
		if r == 0 {
			return e.fail(&DomainError{Op: "/", Msg: "division by zero"})
		}
		return e.finite("/", l/r)
	case "%":
		if r == 0 {
			return e.fail(&DomainError{Op: "%", Msg: "modulo by zero"})
		}
		return e.finite("%", math.Mod(l, r))
	case "<":
		return boolf(l < r), nil
	case "<=":
		return boolf(l <= r), nil
	case ">":
		return boolf(l > r), nil
	case ">=":
		return boolf(l >= r), nil
	case "==":
		return boolf(l == r), nil
	case "!=":
		return boolf(l != r), nil
	}
	return e.fail(&DomainError{Op: n.op, Msg: "unknown operator"})
}

func (n *binaryNode) collect(names map[string]struct{}) {
	n.left.collect(names)
	n.right.collect(names)
}

type callNode struct {
	name string
	args []node
}

func (n *callNode) collect(names map[string]struct{}) {
	for _, a := range n.args {
		a.collect(names)
	}
}

func (n *callNode) eval(e *evaluator) (float64, error) {
	// if() evaluates only the selected branch.
	if n.name == "if" {
		c, err := n.args[0].eval(e)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return n.args[1].eval(e)
		}
		return n.args[2].eval(e)
	}

	vals := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(e)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	v, err := n.apply(e, vals)
	if err != nil {
		return 0, err
	}
	return e.finite(n.name, v)
}

func (n *callNode) apply(e *evaluator, vals []float64) (float64, error) {
	switch n.name {
	case "min":
		m := vals[0]
		for _, v := range vals[1:] {
			m = math.Min(m, v)
		}
		return m, nil
	case "max":
		m := vals[0]
		for _, v := range vals[1:] {
			m = math.Max(m, v)
		}
		return m, nil
	case "sqrt":
		if vals[0] < 0 {
			return e.fail(&DomainError{Op: "sqrt", Msg: "negative operand " + strconv.FormatFloat(vals[0], 'g', -1, 64)})
		}
		return math.Sqrt(vals[0]), nil
	case "pow":
		return math.Pow(vals[0], vals[1]), nil
	case "abs":
		return math.Abs(vals[0]), nil
	case "floor":
		return math.Floor(vals[0]), nil
	case "ceil":
		return math.Ceil(vals[0]), nil
	case "round":
		return math.Round(vals[0]), nil
	case "clamp":
		if vals[1] > vals[2] {
			return e.fail(&DomainError{Op: "clamp", Msg: "lower bound exceeds upper bound"})
		}
		return math.Min(math.Max(vals[0], vals[1]), vals[2]), nil
	case "rand":
		if e.src == nil {
			return e.fail(&DomainError{Op: "rand", Msg: "no random source supplied"})
		}
		if vals[0] > vals[1] {
			return e.fail(&DomainError{Op: "rand", Msg: "lower bound exceeds upper bound"})
		}
		return dice.Uniform(e.src, vals[0], vals[1]), nil
	case "dice":
		if e.src == nil {
			return e.fail(&DomainError{Op: "dice", Msg: "no random source supplied"})
		}
		count, sides := int(vals[0]), int(vals[1])
		if count < 0 || sides < 1 || count > 1000 {
			return e.fail(&DomainError{Op: "dice", Msg: "count must be in [0,1000] and sides >= 1"})
		}
		total := 0
		for i := 0; i < count; i++ {
			total += e.src.Intn(sides) + 1
		}
		return float64(total), nil
	}
	return e.fail(&DomainError{Op: n.name, Msg: "unknown function"})
}
