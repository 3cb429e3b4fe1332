package sparql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/helixir/research-graph/internal/rdf"
)

// functions maps built-in function names to their accepted arity range.
// A max of -1 means variadic.
var functions = map[string][2]int{
	"BOUND":       {1, 1},
	"CONTAINS":    {2, 2},
	"STRSTARTS":   {2, 2},
	"STRENDS":     {2, 2},
	"LCASE":       {1, 1},
	"UCASE":       {1, 1},
	"STR":         {1, 1},
	"LANG":        {1, 1},
	"LANGMATCHES": {2, 2},
	"DATATYPE":    {1, 1},
	"STRLEN":      {1, 1},
	"SUBSTR":      {2, 3},
	"CONCAT":      {0, -1},
	"REGEX":       {2, 3},
	"ISIRI":       {1, 1},
	"ISURI":       {1, 1},
	"ISLITERAL":   {1, 1},
	"ISBLANK":     {1, 1},
	"ISNUMERIC":   {1, 1},
	"SAMETERM":    {2, 2},
	"IF":          {3, 3},
	"COALESCE":    {1, -1},
}

var aggregates = map[string]bool{
	"COUNT":  true,
	"SUM":    true,
	"MIN":    true,
	"MAX":    true,
	"AVG":    true,
	"SAMPLE": true,
}

type parser struct {
	src      string
	toks     []token
	pos      int
	prefixes map[string]string
	vars     []string
	seenVars map[string]bool
	// allowAggregate is set while parsing SELECT, HAVING and ORDER BY.
	allowAggregate bool
}

// Parse parses a query. Syntax errors are *ParseError values.
func Parse(src string) (*Query, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{
		src:      src,
		toks:     toks,
		prefixes: make(map[string]string),
		seenVars: make(map[string]bool),
	}
	for _, pre := range rdf.Prefixes() {
		p.prefixes[pre.Name] = string(pre.Namespace)
	}
	return p.parseQuery()
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(s string) bool {
	if p.peek().is(s) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(s string) error {
	if p.accept(s) {
		return nil
	}
	return p.errorf("expected %q, found %s", s, p.peek())
}

func (p *parser) errorf(format string, args ...any) error {
	return newParseError(p.src, p.peek().pos, fmt.Sprintf(format, args...))
}

func (p *parser) noteVar(name string) {
	if !p.seenVars[name] {
		p.seenVars[name] = true
		p.vars = append(p.vars, name)
	}
}

func (p *parser) parseQuery() (*Query, error) {
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}

	q := &Query{Limit: -1}
	switch {
	case p.accept("SELECT"):
		q.Form = FormSelect
		if err := p.parseSelectClause(q); err != nil {
			return nil, err
		}
	case p.accept("ASK"):
		q.Form = FormAsk
	default:
		return nil, p.errorf("expected SELECT or ASK, found %s", p.peek())
	}

	p.accept("WHERE")
	where, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	q.Where = where

	if err := p.parseModifiers(q); err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf("unexpected %s after query", t)
	}

	q.vars = p.vars
	if q.Star && q.HasAggregate() {
		return nil, newParseError(p.src, 0, "SELECT * cannot be combined with GROUP BY")
	}
	if err := p.checkGrouping(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *parser) parsePrologue() error {
	for {
		switch {
		case p.accept("PREFIX"):
			t := p.advance()
			if t.kind != tokPName || !strings.HasSuffix(t.val, ":") {
				return newParseError(p.src, t.pos, fmt.Sprintf("expected prefix name, found %s", t))
			}
			iri := p.advance()
			if iri.kind != tokIRI {
				return newParseError(p.src, iri.pos, fmt.Sprintf("expected IRI, found %s", iri))
			}
			p.prefixes[strings.TrimSuffix(t.val, ":")] = iri.val
		case p.accept("BASE"):
			if iri := p.advance(); iri.kind != tokIRI {
				return newParseError(p.src, iri.pos, fmt.Sprintf("expected IRI, found %s", iri))
			}
		default:
			return nil
		}
	}
}

func (p *parser) parseSelectClause(q *Query) error {
	if p.accept("DISTINCT") {
		q.Distinct = true
	} else if p.accept("REDUCED") {
		q.Distinct = true
	}

	if p.accept("*") {
		q.Star = true
		return nil
	}

	seen := make(map[string]bool)
	for {
		t := p.peek()
		switch {
		case t.kind == tokVar:
			p.advance()
			q.Projection = append(q.Projection, Projection{Var: t.val})
			p.noteVar(t.val)
		case t.is("("):
			p.advance()
			p.allowAggregate = true
			e, err := p.parseExpr()
			p.allowAggregate = false
			if err != nil {
				return err
			}
			if err := p.expect("AS"); err != nil {
				return err
			}
			v := p.advance()
			if v.kind != tokVar {
				return newParseError(p.src, v.pos, fmt.Sprintf("expected variable after AS, found %s", v))
			}
			if err := p.expect(")"); err != nil {
				return err
			}
			q.Projection = append(q.Projection, Projection{Var: v.val, Expr: e})
		default:
			if len(q.Projection) == 0 {
				return p.errorf("expected projection, found %s", t)
			}
			return nil
		}
		last := q.Projection[len(q.Projection)-1].Var
		if seen[last] {
			return p.errorf("duplicate projection variable ?%s", last)
		}
		seen[last] = true
	}
}

func (p *parser) parseModifiers(q *Query) error {
	if p.accept("GROUP") {
		if err := p.expect("BY"); err != nil {
			return err
		}
		for {
			t := p.peek()
			if t.kind == tokVar {
				p.advance()
				q.GroupBy = append(q.GroupBy, &VarExpr{Name: t.val})
				continue
			}
			if t.is("(") || p.isBuiltinCall() {
				e, err := p.parsePrimary()
				if err != nil {
					return err
				}
				q.GroupBy = append(q.GroupBy, e)
				continue
			}
			break
		}
		if len(q.GroupBy) == 0 {
			return p.errorf("expected GROUP BY condition, found %s", p.peek())
		}
	}

	if p.accept("HAVING") {
		p.allowAggregate = true
		for p.peek().is("(") || p.isBuiltinCall() {
			e, err := p.parsePrimary()
			if err != nil {
				return err
			}
			q.Having = append(q.Having, e)
		}
		if len(q.Having) == 0 {
			return p.errorf("expected HAVING condition, found %s", p.peek())
		}
		p.allowAggregate = false
	}

	if p.accept("ORDER") {
		if err := p.expect("BY"); err != nil {
			return err
		}
		p.allowAggregate = true
		for {
			t := p.peek()
			switch {
			case t.is("ASC") || t.is("DESC"):
				p.advance()
				if !p.peek().is("(") {
					return p.errorf("expected ( after %s", strings.ToUpper(t.val))
				}
				e, err := p.parsePrimary()
				if err != nil {
					return err
				}
				q.OrderBy = append(q.OrderBy, OrderCond{Expr: e, Desc: t.is("DESC")})
				continue
			case t.kind == tokVar:
				p.advance()
				q.OrderBy = append(q.OrderBy, OrderCond{Expr: &VarExpr{Name: t.val}})
				continue
			case t.is("(") || p.isBuiltinCall():
				e, err := p.parsePrimary()
				if err != nil {
					return err
				}
				q.OrderBy = append(q.OrderBy, OrderCond{Expr: e})
				continue
			}
			break
		}
		p.allowAggregate = false
		if len(q.OrderBy) == 0 {
			return p.errorf("expected ORDER BY condition, found %s", p.peek())
		}
	}

	for i := 0; i < 2; i++ {
		switch {
		case p.accept("LIMIT"):
			n, err := p.parseNonNegative()
			if err != nil {
				return err
			}
			q.Limit = n
		case p.accept("OFFSET"):
			n, err := p.parseNonNegative()
			if err != nil {
				return err
			}
			q.Offset = n
		}
	}
	return nil
}

func (p *parser) parseNonNegative() (int, error) {
	t := p.advance()
	if t.kind != tokInteger {
		return 0, newParseError(p.src, t.pos, fmt.Sprintf("expected integer, found %s", t))
	}
	n, err := strconv.Atoi(t.val)
	if err != nil {
		return 0, newParseError(p.src, t.pos, "integer out of range")
	}
	return n, nil
}

// checkGrouping rejects projections of variables that are neither grouped
// nor aggregated.
func (p *parser) checkGrouping(q *Query) error {
	if !q.HasAggregate() {
		return nil
	}
	grouped := make(map[string]bool)
	for _, g := range q.GroupBy {
		if v, ok := g.(*VarExpr); ok {
			grouped[v.Name] = true
		}
	}
	for _, pr := range q.Projection {
		if pr.Expr == nil && !grouped[pr.Var] {
			return newParseError(p.src, 0, fmt.Sprintf("variable ?%s must be grouped or aggregated", pr.Var))
		}
	}
	return nil
}

func (p *parser) parseGroup() (*Group, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	g := &Group{}
	var bgp *BGP

	flush := func() {
		if bgp != nil && len(bgp.Patterns) > 0 {
			g.Elements = append(g.Elements, bgp)
		}
		bgp = nil
	}

	for {
		t := p.peek()
		switch {
		case t.is("}"):
			p.advance()
			flush()
			return g, nil
		case t.kind == tokEOF:
			return nil, p.errorf("unterminated group, expected }")
		case t.is("."):
			p.advance()
		case t.is("OPTIONAL"):
			p.advance()
			flush()
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &Optional{Group: inner})
		case t.is("MINUS"):
			p.advance()
			flush()
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &Minus{Group: inner})
		case t.is("FILTER"):
			p.advance()
			e, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			g.Filters = append(g.Filters, e)
		case t.is("BIND"):
			p.advance()
			flush()
			b, err := p.parseBind()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, b)
		case t.is("{"):
			flush()
			first, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			if !p.peek().is("UNION") {
				g.Elements = append(g.Elements, first)
				continue
			}
			u := &Union{Branches: []*Group{first}}
			for p.accept("UNION") {
				br, err := p.parseGroup()
				if err != nil {
					return nil, err
				}
				u.Branches = append(u.Branches, br)
			}
			g.Elements = append(g.Elements, u)
		default:
			if bgp == nil {
				bgp = &BGP{}
			}
			if err := p.parseTriples(bgp); err != nil {
				return nil, err
			}
		}
	}
}

func (p *parser) parseConstraint() (Expr, error) {
	if p.peek().is("(") {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return e, p.expect(")")
	}
	if p.isBuiltinCall() {
		return p.parseCall()
	}
	return nil, p.errorf("expected FILTER constraint, found %s", p.peek())
}

func (p *parser) parseBind() (*Bind, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect("AS"); err != nil {
		return nil, err
	}
	v := p.advance()
	if v.kind != tokVar {
		return nil, newParseError(p.src, v.pos, fmt.Sprintf("expected variable after AS, found %s", v))
	}
	p.noteVar(v.val)
	return &Bind{Expr: e, Var: v.val}, p.expect(")")
}

// parseTriples reads one TriplesSameSubject with its property list.
func (p *parser) parseTriples(bgp *BGP) error {
	subj, err := p.parseNode(false)
	if err != nil {
		return err
	}
	for {
		verb, err := p.parseVerb()
		if err != nil {
			return err
		}
		for {
			obj, err := p.parseNode(true)
			if err != nil {
				return err
			}
			bgp.Patterns = append(bgp.Patterns, Pattern{S: subj, P: verb, O: obj})
			if !p.accept(",") {
				break
			}
		}
		if !p.accept(";") {
			return nil
		}
		for p.accept(";") {
		}
		if t := p.peek(); t.is(".") || t.is("}") {
			return nil
		}
	}
}

func (p *parser) parseVerb() (Node, error) {
	t := p.peek()
	if t.kind == tokWord && t.val == "a" {
		p.advance()
		return Node{Term: rdf.Type}, nil
	}
	n, err := p.parseNode(false)
	if err != nil {
		return Node{}, err
	}
	if !n.IsVar() && !n.Term.IsIRI() {
		return Node{}, newParseError(p.src, t.pos, "predicate must be an IRI or variable")
	}
	return n, nil
}

// parseNode reads a variable, IRI, blank node or, when literals is set,
// a literal.
func (p *parser) parseNode(literals bool) (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokVar:
		p.advance()
		p.noteVar(t.val)
		return Node{Var: t.val}, nil
	case tokBlank:
		p.advance()
		name := blankVarPrefix + t.val
		p.noteVar(name)
		return Node{Var: name}, nil
	case tokIRI, tokPName:
		term, err := p.parseIRI()
		if err != nil {
			return Node{}, err
		}
		return Node{Term: term}, nil
	}

	if t.is("[") {
		p.advance()
		if err := p.expect("]"); err != nil {
			return Node{}, err
		}
		name := fmt.Sprintf("%sanon%d", blankVarPrefix, t.pos)
		p.noteVar(name)
		return Node{Var: name}, nil
	}

	if literals {
		term, ok, err := p.parseLiteral()
		if err != nil {
			return Node{}, err
		}
		if ok {
			return Node{Term: term}, nil
		}
	}
	return Node{}, p.errorf("expected term, found %s", t)
}

func (p *parser) parseIRI() (rdf.Term, error) {
	t := p.advance()
	switch t.kind {
	case tokIRI:
		return rdf.IRI(t.val), nil
	case tokPName:
		prefix, local, _ := strings.Cut(t.val, ":")
		ns, ok := p.prefixes[prefix]
		if !ok {
			return rdf.Term{}, newParseError(p.src, t.pos, fmt.Sprintf("undeclared prefix %q", prefix))
		}
		return rdf.IRI(ns + local), nil
	default:
		return rdf.Term{}, newParseError(p.src, t.pos, fmt.Sprintf("expected IRI, found %s", t))
	}
}

// parseLiteral reads a string, numeric or boolean literal. ok is false when
// the next token does not start a literal.
func (p *parser) parseLiteral() (rdf.Term, bool, error) {
	t := p.peek()
	switch {
	case t.kind == tokString:
		p.advance()
		next := p.peek()
		if next.kind == tokLangTag {
			p.advance()
			return rdf.LangLiteral(t.val, next.val), true, nil
		}
		if next.is("^^") {
			p.advance()
			dt, err := p.parseIRI()
			if err != nil {
				return rdf.Term{}, false, err
			}
			return rdf.TypedLiteral(t.val, dt.Value), true, nil
		}
		return rdf.Literal(t.val), true, nil
	case t.kind == tokInteger:
		p.advance()
		return rdf.TypedLiteral(t.val, rdf.XSDInteger), true, nil
	case t.kind == tokDecimal:
		p.advance()
		return rdf.TypedLiteral(t.val, rdf.XSDDecimal), true, nil
	case t.kind == tokDouble:
		p.advance()
		return rdf.TypedLiteral(t.val, rdf.XSDDouble), true, nil
	case t.kind == tokWord && (strings.EqualFold(t.val, "true") || strings.EqualFold(t.val, "false")):
		p.advance()
		return rdf.TypedLiteral(strings.ToLower(t.val), rdf.XSDBoolean), true, nil
	}
	return rdf.Term{}, false, nil
}

func (p *parser) isBuiltinCall() bool {
	t := p.peek()
	if t.kind != tokWord {
		return false
	}
	name := strings.ToUpper(t.val)
	_, fn := functions[name]
	return fn || aggregates[name]
}

// Expression grammar, lowest precedence first.

func (p *parser) parseExpr() (Expr, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("||") {
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{Op: "||", X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseAnd() (Expr, error) {
	x, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.accept("&&") {
		y, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{Op: "&&", X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseRelational() (Expr, error) {
	x, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	switch {
	case t.kind == tokPunct && (t.val == "=" || t.val == "!=" || t.val == "<" || t.val == ">" || t.val == "<=" || t.val == ">="):
		p.advance()
		y, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: t.val, X: x, Y: y}, nil
	case t.is("IN"):
		p.advance()
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &InExpr{X: x, List: list}, nil
	case t.is("NOT"):
		p.advance()
		if err := p.expect("IN"); err != nil {
			return nil, err
		}
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &InExpr{X: x, List: list, Not: true}, nil
	}
	return x, nil
}

func (p *parser) parseExprList() ([]Expr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var list []Expr
	if p.accept(")") {
		return list, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.accept(")") {
			return list, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseAdditive() (Expr, error) {
	x, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !t.is("+") && !t.is("-") {
			return x, nil
		}
		p.advance()
		y, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{Op: t.val, X: x, Y: y}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !t.is("*") && !t.is("/") {
			return x, nil
		}
		p.advance()
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{Op: t.val, X: x, Y: y}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	if t.is("!") || t.is("-") || t.is("+") {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: t.val, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch {
	case t.is("("):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return e, p.expect(")")
	case t.kind == tokVar:
		p.advance()
		return &VarExpr{Name: t.val}, nil
	case t.kind == tokIRI || t.kind == tokPName:
		term, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return &ConstExpr{Term: term}, nil
	case p.isBuiltinCall():
		return p.parseCall()
	}

	term, ok, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	if ok {
		return &ConstExpr{Term: term}, nil
	}
	if t.kind == tokWord {
		return nil, p.errorf("unknown function %s", strings.ToUpper(t.val))
	}
	return nil, p.errorf("expected expression, found %s", t)
}

func (p *parser) parseCall() (Expr, error) {
	t := p.advance()
	name := strings.ToUpper(t.val)

	if aggregates[name] {
		if !p.allowAggregate {
			return nil, newParseError(p.src, t.pos, fmt.Sprintf("aggregate %s not allowed here", name))
		}
		if err := p.expect("("); err != nil {
			return nil, err
		}
		agg := &AggregateExpr{Name: name}
		agg.Distinct = p.accept("DISTINCT")
		if name == "COUNT" && p.accept("*") {
			return agg, p.expect(")")
		}
		p.allowAggregate = false
		arg, err := p.parseExpr()
		p.allowAggregate = true
		if err != nil {
			return nil, err
		}
		agg.Arg = arg
		return agg, p.expect(")")
	}

	args, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	arity := functions[name]
	if len(args) < arity[0] || (arity[1] >= 0 && len(args) > arity[1]) {
		return nil, newParseError(p.src, t.pos, fmt.Sprintf("wrong number of arguments to %s", name))
	}
	if name == "BOUND" {
		if _, ok := args[0].(*VarExpr); !ok {
			return nil, newParseError(p.src, t.pos, "BOUND requires a variable")
		}
	}
	return &CallExpr{Name: name, Args: args}, nil
}
