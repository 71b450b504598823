package formula

import (
	"fmt"
	"strconv"
)

// funcSpec describes a builtin function: its arity bounds.
type funcSpec struct {
	minArgs int
	maxArgs int // -1 = variadic
}

var builtins = map[string]funcSpec{
	"min":   {1, -1},
	"max":   {1, -1},
	"sqrt":  {1, 1},
	"pow":   {2, 2},
	"abs":   {1, 1},
	"floor": {1, 1},
	"ceil":  {1, 1},
	"round": {1, 1},
	"clamp": {3, 3},
	"if":    {3, 3},
	"rand":  {2, 2},
	"dice":  {2, 2},
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &ParseError{Source: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() (node, error) {
	n, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t.pos, "unexpected %q", t.text)
	}
	return n, nil
}

func (p *parser) comparison() (node, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind == tokOp {
		switch t.text {
		case "<", "<=", ">", ">=", "==", "!=":
			p.next()
			right, err := p.additive()
			if err != nil {
				return nil, err
			}
			return &binaryNode{op: t.text, left: left, right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) additive() (node, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text, left: left, right: right}
	}
}

func (p *parser) multiplicative() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/" && t.text != "%") {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text, left: left, right: right}
	}
}

func (p *parser) unary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		if t.text == "+" {
			return operand, nil
		}
		return &negNode{operand: operand}, nil
	}
	return p.power()
}

// power is right-associative: 2^3^2 == 2^(3^2).
func (p *parser) power() (node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp && t.text == "^" {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &callNode{name: "pow", args: []node{base, exp}}, nil
	}
	return base, nil
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numberNode(t.num), nil
	case tokLParen:
		n, err := p.comparison()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, p.errorf(c.pos, "expected ')'")
		}
		return n, nil
	case tokIdent:
		switch p.peek().kind {
		case tokLParen:
			return p.call(t)
		case tokColon:
			p.next()
			idTok := p.next()
			if idTok.kind != tokNumber {
				return nil, p.errorf(idTok.pos, "expected numeric id after %q:", t.text)
			}
			id, err := strconv.ParseInt(idTok.text, 10, 64)
			if err != nil {
				return nil, p.errorf(idTok.pos, "trait id %q is not an integer", idTok.text)
			}
			return &traitNode{name: t.text, id: id}, nil
		}
		return &varNode{name: t.text}, nil
	case tokEOF:
		return nil, p.errorf(t.pos, "unexpected end of expression")
	default:
		return nil, p.errorf(t.pos, "unexpected %q", t.text)
	}
}

func (p *parser) call(name token) (node, error) {
	spec, ok := builtins[name.text]
	if !ok {
		return nil, p.errorf(name.pos, "unknown function %q", name.text)
	}
	p.next() // (
	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.comparison()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if c := p.next(); c.kind != tokRParen {
		return nil, p.errorf(c.pos, "expected ')' to close %s(", name.text)
	}
	if len(args) < spec.minArgs || (spec.maxArgs >= 0 && len(args) > spec.maxArgs) {
		return nil, p.errorf(name.pos, "%s takes %s arguments, got %d", name.text, arity(spec), len(args))
	}
	return &callNode{name: name.text, args: args}, nil
}

func arity(s funcSpec) string {
	switch {
	case s.maxArgs < 0:
		return fmt.Sprintf("at least %d", s.minArgs)
	case s.minArgs == s.maxArgs:
		return strconv.Itoa(s.minArgs)
	default:
		return fmt.Sprintf("%d-%d", s.minArgs, s.maxArgs)
	}
}
