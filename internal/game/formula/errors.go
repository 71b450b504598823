package formula

import "fmt"

// ParseError reports malformed formula text. It is raised at load time only.
type ParseError struct {
	Source string
	Pos    int // byte offset into Source
	Msg    string
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("formula %q: parse error at %d: %s", e.Source, e.Pos, e.Msg)
}

// UnboundVariableError reports a variable or trait reference absent from the
// evaluation context.
type UnboundVariableError struct {
	Name string // "name" or "name:id"
}

// Error implements error.
func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("formula: unbound variable %q", e.Name)
}

// DomainError reports an invalid numeric operation, e.g. sqrt of a negative.
type DomainError struct {
	Op  string
	Msg string
}

// Error implements error.
func (e *DomainError) Error() string {
	return fmt.Sprintf("formula: domain error in %s: %s", e.Op, e.Msg)
}
