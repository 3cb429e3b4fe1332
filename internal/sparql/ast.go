package sparql

import (
	"fmt"
	"strings"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/rdf"
)

// Form is the query form.
type Form int

// Query forms.
const (
	FormSelect Form = iota + 1
	FormAsk
)

// Query is a parsed query.
type Query struct {
	Form     Form
	Distinct bool
	// Star is true for SELECT *.
	Star       bool
	Projection []Projection
	Where      *Group
	GroupBy    []Expr
	Having     []Expr
	OrderBy    []OrderCond
	Limit      int // -1 when absent
	Offset     int

	vars []string // every variable in pattern order, for SELECT *
}

// Projection is one SELECT item: a variable or (expr AS ?var).
type Projection struct {
	Var  string
	Expr Expr // nil for a plain variable
}

// OrderCond is one ORDER BY key.
type OrderCond struct {
	Expr Expr
	Desc bool
}

// HasAggregate reports whether the query groups solutions.
func (q *Query) HasAggregate() bool {
	if len(q.GroupBy) > 0 || len(q.Having) > 0 {
		return true
	}
	for _, p := range q.Projection {
		if p.Expr != nil && containsAggregate(p.Expr) {
			return true
		}
	}
	return false
}

// Vars returns the projected variable names in order.
func (q *Query) Vars() []string {
	if q.Star {
		out := make([]string, 0, len(q.vars))
		for _, v := range q.vars {
			if !strings.HasPrefix(v, blankVarPrefix) {
				out = append(out, v)
			}
		}
		return out
	}
	out := make([]string, len(q.Projection))
	for i, p := range q.Projection {
		out[i] = p.Var
	}
	return out
}

// blankVarPrefix marks variables introduced by blank nodes in patterns.
const blankVarPrefix = "_:"

// Node is a triple-pattern position: a constant term or a variable.
type Node struct {
	Var  string
	Term rdf.Term
}

// IsVar reports whether n is a variable.
func (n Node) IsVar() bool { return n.Var != "" }

// Pattern is one triple pattern.
type Pattern struct {
	S, P, O Node
}

// Element is a member of a group graph pattern.
type Element interface {
	element()
}

// BGP is a basic graph pattern: a sequence of triple patterns.
type BGP struct {
	Patterns []Pattern
}

// Optional is OPTIONAL { ... }.
type Optional struct {
	Group *Group
}

// Union is { ... } UNION { ... } [UNION ...].
type Union struct {
	Branches []*Group
}

// Minus is MINUS { ... }.
type Minus struct {
	Group *Group
}

// Bind is BIND(expr AS ?var).
type Bind struct {
	Expr Expr
	Var  string
}

// Group is { ... }. Filters apply to the whole group.
type Group struct {
	Elements []Element
	Filters  []Expr
}

func (*BGP) element()      {}
func (*Optional) element() {}
func (*Union) element()    {}
func (*Minus) element()    {}
func (*Bind) element()     {}
func (*Group) element()    {}

// Expr is an expression node.
type Expr interface {
	expr()
}

// VarExpr references a variable.
type VarExpr struct{ Name string }

// ConstExpr is a constant term.
type ConstExpr struct{ Term rdf.Term }

// UnaryExpr is !x, -x or +x.
type UnaryExpr struct {
	Op string
	X  Expr
}

// BinaryExpr is x op y.
type BinaryExpr struct {
	Op   string
	X, Y Expr
}

// InExpr is x [NOT] IN (list).
type InExpr struct {
	X    Expr
	List []Expr
	Not  bool
}

// CallExpr is a built-in function call.
type CallExpr struct {
	Name string
	Args []Expr
}

// AggregateExpr is COUNT, SUM, MIN, MAX, AVG or SAMPLE.
type AggregateExpr struct {
	Name     string
	Distinct bool
	// Arg is nil for COUNT(*).
	Arg Expr
}

func (*VarExpr) expr()       {}
func (*ConstExpr) expr()     {}
func (*UnaryExpr) expr()     {}
func (*BinaryExpr) expr()    {}
func (*InExpr) expr()        {}
func (*CallExpr) expr()      {}
func (*AggregateExpr) expr() {}

func containsAggregate(e Expr) bool {
	switch x := e.(type) {
	case *AggregateExpr:
		return true
	case *UnaryExpr:
		return containsAggregate(x.X)
	case *BinaryExpr:
		return containsAggregate(x.X) || containsAggregate(x.Y)
	case *InExpr:
		if containsAggregate(x.X) {
			return true
		}
		for _, a := range x.List {
			if containsAggregate(a) {
				return true
			}
		}
	case *CallExpr:
		for _, a := range x.Args {
			if containsAggregate(a) {
				return true
			}
		}
	}
	return false
}

// ParseError reports a syntax error with its position in the query text.
type ParseError struct {
	// Offset is the byte offset of the error.
	Offset int
	Line   int
	Column int
	Msg    string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Unwrap returns domain.ErrInvalidQuery.
func (e *ParseError) Unwrap() error {
	return domain.ErrInvalidQuery
}

func newParseError(src string, offset int, msg string) *ParseError {
	if offset > len(src) {
		offset = len(src)
	}
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset - strings.LastIndex(src[:offset], "\n")
	return &ParseError{Offset: offset, Line: line, Column: col, Msg: msg}
}
