package sparql

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

// Binding maps variable names to terms. Unbound variables are absent.
type Binding map[string]rdf.Term

func (b Binding) clone() Binding {
	out := make(Binding, len(b)+2)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// compatible reports whether a and b agree on every shared variable.
func compatible(a, b Binding) bool {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	for k, v := range small {
		if w, ok := large[k]; ok && w != v {
			return false
		}
	}
	return true
}

// Results is the outcome of executing a query.
type Results struct {
	Form     Form
	Vars     []string
	Bindings []Binding
	// Boolean is the ASK answer.
	Boolean bool
}

// checkEvery is how many pattern matches pass between context checks.
const checkEvery = 1024

type evaluator struct {
	ctx        context.Context
	g          *store.Graph
	steps      int
	err        error
	regexCache map[string]*regexp.Regexp
}

func (ev *evaluator) tick() bool {
	if ev.err != nil {
		return false
	}
	ev.steps++
	if ev.steps%checkEvery == 0 {
		if err := ev.ctx.Err(); err != nil {
			ev.err = err
			return false
		}
	}
	return true
}

// Exec runs the query against g. initial seeds every solution, which is
// how prepared statements supply parameter values.
func (q *Query) Exec(ctx context.Context, g *store.Graph, initial Binding) (*Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ev := &evaluator{ctx: ctx, g: g, regexCache: make(map[string]*regexp.Regexp)}
	if initial == nil {
		initial = Binding{}
	}

	sols := ev.evalGroup(q.Where, []Binding{initial})
	if ev.err != nil {
		return nil, ev.err
	}

	if q.Form == FormAsk {
		return &Results{Form: FormAsk, Boolean: len(sols) > 0}, nil
	}

	if q.HasAggregate() {
		sols = ev.aggregate(q, sols)
	} else {
		sols = ev.extend(q, sols)
	}
	if ev.err != nil {
		return nil, ev.err
	}

	if len(q.OrderBy) > 0 {
		ev.order(q.OrderBy, sols)
	}

	vars := q.Vars()
	sols = project(vars, sols)
	if q.Distinct {
		sols = distinct(vars, sols)
	}
	sols = slice(sols, q.Offset, q.Limit)

	return &Results{Form: FormSelect, Vars: vars, Bindings: sols}, nil
}

// Exec parses and runs src against g.
func Exec(ctx context.Context, g *store.Graph, src string) (*Results, error) {
	q, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return q.Exec(ctx, g, nil)
}

func (ev *evaluator) evalGroup(grp *Group, in []Binding) []Binding {
	sols := in
	for _, el := range grp.Elements {
		if ev.err != nil || len(sols) == 0 {
			return nil
		}
		switch x := el.(type) {
		case *BGP:
			sols = ev.evalBGP(x, sols)
		case *Optional:
			sols = ev.evalOptional(x, sols)
		case *Union:
			sols = ev.evalUnion(x, sols)
		case *Minus:
			sols = ev.evalMinus(x, sols)
		case *Bind:
			sols = ev.evalBind(x, sols)
		case *Group:
			sols = ev.evalGroup(x, sols)
		}
	}
	if len(grp.Filters) == 0 {
		return sols
	}
	out := sols[:0:0]
	for _, s := range sols {
		if ev.passes(grp.Filters, s) {
			out = append(out, s)
		}
	}
	return out
}

func (ev *evaluator) passes(filters []Expr, s Binding) bool {
	en := env{sol: s}
	for _, f := range filters {
		ok, err := ev.evalBool(f, en)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func (ev *evaluator) evalBGP(bgp *BGP, in []Binding) []Binding {
	var out []Binding
	for _, s := range in {
		ev.matchPatterns(bgp.Patterns, s, func(b Binding) {
			out = append(out, b)
		})
		if ev.err != nil {
			return nil
		}
	}
	return out
}

// matchPatterns joins patterns against the graph, always taking next the
// pattern with the most positions already bound.
func (ev *evaluator) matchPatterns(patterns []Pattern, sol Binding, emit func(Binding)) {
	if len(patterns) == 0 {
		emit(sol)
		return
	}

	best, bestScore := 0, -1
	for i, p := range patterns {
		if score := boundScore(p, sol); score > bestScore {
			best, bestScore = i, score
		}
	}
	pat := patterns[best]
	rest := make([]Pattern, 0, len(patterns)-1)
	rest = append(rest, patterns[:best]...)
	rest = append(rest, patterns[best+1:]...)

	s, sOK := resolve(pat.S, sol)
	p, pOK := resolve(pat.P, sol)
	o, oOK := resolve(pat.O, sol)
	ev.g.MatchFunc(ptr(s, sOK), ptr(p, pOK), ptr(o, oOK), func(t rdf.Triple) bool {
		if !ev.tick() {
			return false
		}
		next := sol
		cloned := false
		bind := func(n Node, v rdf.Term) bool {
			if !n.IsVar() {
				return true
			}
			if cur, ok := next[n.Var]; ok {
				return cur == v
			}
			if !cloned {
				next = sol.clone()
				cloned = true
			}
			next[n.Var] = v
			return true
		}
		if bind(pat.S, t.S) && bind(pat.P, t.P) && bind(pat.O, t.O) {
			ev.matchPatterns(rest, next, emit)
		}
		return ev.err == nil
	})
}

func boundScore(p Pattern, sol Binding) int {
	score := 0
	for i, n := range []Node{p.S, p.P, p.O} {
		if _, ok := resolve(n, sol); ok {
			// Bound subjects and objects are more selective than predicates.
			if i == 1 {
				score++
			} else {
				score += 2
			}
		}
	}
	return score
}

func resolve(n Node, sol Binding) (rdf.Term, bool) {
	if !n.IsVar() {
		return n.Term, true
	}
	v, ok := sol[n.Var]
	return v, ok
}

func ptr(t rdf.Term, ok bool) *rdf.Term {
	if !ok {
		return nil
	}
	return &t
}

func (ev *evaluator) evalOptional(opt *Optional, in []Binding) []Binding {
	var out []Binding
	for _, s := range in {
		ext := ev.evalGroup(opt.Group, []Binding{s})
		if ev.err != nil {
			return nil
		}
		if len(ext) == 0 {
			out = append(out, s)
			continue
		}
		out = append(out, ext...)
	}
	return out
}

func (ev *evaluator) evalUnion(u *Union, in []Binding) []Binding {
	var out []Binding
	for _, br := range u.Branches {
		out = append(out, ev.evalGroup(br, in)...)
		if ev.err != nil {
			return nil
		}
	}
	return out
}

func (ev *evaluator) evalMinus(m *Minus, in []Binding) []Binding {
	right := ev.evalGroup(m.Group, []Binding{{}})
	if ev.err != nil {
		return nil
	}
	var out []Binding
	for _, l := range in {
		removed := false
		for _, r := range right {
			if sharesVar(l, r) && compatible(l, r) {
				removed = true
				break
			}
		}
		if !removed {
			out = append(out, l)
		}
	}
	return out
}

func sharesVar(a, b Binding) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func (ev *evaluator) evalBind(b *Bind, in []Binding) []Binding {
	out := make([]Binding, 0, len(in))
	for _, s := range in {
		if _, ok := s[b.Var]; ok {
			// Rebinding an in-scope variable yields no solution.
			continue
		}
		v, err := ev.eval(b.Expr, env{sol: s})
		if err != nil {
			out = append(out, s)
			continue
		}
		ns := s.clone()
		ns[b.Var] = v
		out = append(out, ns)
	}
	return out
}

// extend evaluates (expr AS ?var) projections of an ungrouped query.
func (ev *evaluator) extend(q *Query, sols []Binding) []Binding {
	hasExpr := false
	for _, p := range q.Projection {
		if p.Expr != nil {
			hasExpr = true
			break
		}
	}
	if !hasExpr {
		return sols
	}
	out := make([]Binding, len(sols))
	for i, s := range sols {
		ns := s.clone()
		for _, p := range q.Projection {
			if p.Expr == nil {
				continue
			}
			if v, err := ev.eval(p.Expr, env{sol: ns}); err == nil {
				ns[p.Var] = v
			}
		}
		out[i] = ns
	}
	return out
}

// aggregate partitions solutions by the GROUP BY keys and computes one
// solution per group.
func (ev *evaluator) aggregate(q *Query, sols []Binding) []Binding {
	type bucket struct {
		key     Binding
		members []Binding
	}
	var order []string
	buckets := make(map[string]*bucket)

	for _, s := range sols {
		key := Binding{}
		var sb strings.Builder
		for i, ge := range q.GroupBy {
			v, err := ev.eval(ge, env{sol: s})
			if err == nil {
				if ve, ok := ge.(*VarExpr); ok {
					key[ve.Name] = v
				}
				sb.WriteString(v.String())
			}
			sb.WriteString("|" + strconv.Itoa(i) + "|")
		}
		k := sb.String()
		b, ok := buckets[k]
		if !ok {
			b = &bucket{key: key}
			buckets[k] = b
			order = append(order, k)
		}
		b.members = append(b.members, s)
	}

	// Without GROUP BY, an empty input still forms one group.
	if len(q.GroupBy) == 0 && len(order) == 0 {
		buckets[""] = &bucket{key: Binding{}}
		order = append(order, "")
	}

	out := make([]Binding, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		en := env{sol: b.key, group: b.members}
		if !ev.havingPasses(q.Having, en) {
			continue
		}
		row := b.key.clone()
		for _, p := range q.Projection {
			if p.Expr == nil {
				continue
			}
			en.sol = row
			if v, err := ev.eval(p.Expr, en); err == nil {
				row[p.Var] = v
			}
		}
		out = append(out, row)
	}
	return out
}

func (ev *evaluator) havingPasses(having []Expr, en env) bool {
	for _, h := range having {
		ok, err := ev.evalBool(h, en)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func (ev *evaluator) evalAggregate(x *AggregateExpr, en env) (rdf.Term, error) {
	var vals []rdf.Term
	seen := make(map[rdf.Term]bool)
	for _, m := range en.group {
		if x.Arg == nil {
			vals = append(vals, rdf.Term{})
			continue
		}
		v, err := ev.eval(x.Arg, env{sol: m})
		if err != nil {
			continue
		}
		if x.Distinct {
			if seen[v] {
				continue
			}
			seen[v] = true
		}
		vals = append(vals, v)
	}
	if x.Arg == nil && x.Distinct {
		vals = distinctSolutions(en.group)
	}

	switch x.Name {
	case "COUNT":
		return intTerm(len(vals)), nil
	case "SAMPLE":
		if len(vals) == 0 {
			return rdf.Term{}, errType
		}
		return vals[0], nil
	case "MIN", "MAX":
		if len(vals) == 0 {
			return rdf.Term{}, errType
		}
		best := vals[0]
		for _, v := range vals[1:] {
			c := orderCompare(v, best, true, true)
			if (x.Name == "MIN" && c < 0) || (x.Name == "MAX" && c > 0) {
				best = v
			}
		}
		return best, nil
	case "SUM", "AVG":
		sum := 0.0
		integer := true
		for _, v := range vals {
			f, ok := numeric(v)
			if !ok {
				return rdf.Term{}, errType
			}
			sum += f
			integer = integer && isIntegerTerm(v)
		}
		if x.Name == "SUM" {
			return numTerm(sum, integer), nil
		}
		if len(vals) == 0 {
			return intTerm(0), nil
		}
		return numTerm(sum/float64(len(vals)), false), nil
	}
	return rdf.Term{}, errType
}

// distinctSolutions stands in for COUNT(DISTINCT *): one placeholder per
// distinct solution.
func distinctSolutions(group []Binding) []rdf.Term {
	seen := make(map[string]bool)
	var out []rdf.Term
	for _, s := range group {
		k := solutionKey(nil, s)
		if !seen[k] {
			seen[k] = true
			out = append(out, rdf.Term{})
		}
	}
	return out
}

func (ev *evaluator) order(conds []OrderCond, sols []Binding) {
	type keyed struct {
		sol  Binding
		keys []rdf.Term
		ok   []bool
	}
	rows := make([]keyed, len(sols))
	for i, s := range sols {
		r := keyed{sol: s, keys: make([]rdf.Term, len(conds)), ok: make([]bool, len(conds))}
		for j, c := range conds {
			v, err := ev.eval(c.Expr, env{sol: s})
			r.keys[j], r.ok[j] = v, err == nil
		}
		rows[i] = r
	}
	sort.SliceStable(rows, func(a, b int) bool {
		for j, c := range conds {
			cmp := orderCompare(rows[a].keys[j], rows[b].keys[j], rows[a].ok[j], rows[b].ok[j])
			if cmp == 0 {
				continue
			}
			if c.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	for i := range rows {
		sols[i] = rows[i].sol
	}
}

func project(vars []string, sols []Binding) []Binding {
	out := make([]Binding, len(sols))
	for i, s := range sols {
		row := make(Binding, len(vars))
		for _, v := range vars {
			if t, ok := s[v]; ok {
				row[v] = t
			}
		}
		out[i] = row
	}
	return out
}

func solutionKey(vars []string, s Binding) string {
	if vars == nil {
		for k := range s {
			vars = append(vars, k)
		}
		sort.Strings(vars)
	}
	var b strings.Builder
	for _, v := range vars {
		b.WriteString(v)
		b.WriteByte('=')
		if t, ok := s[v]; ok {
			b.WriteString(t.String())
		}
		b.WriteByte('\x00')
	}
	return b.String()
}

func distinct(vars []string, sols []Binding) []Binding {
	seen := make(map[string]bool, len(sols))
	out := sols[:0:0]
	for _, s := range sols {
		k := solutionKey(vars, s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

func slice(sols []Binding, offset, limit int) []Binding {
	if offset >= len(sols) {
		return nil
	}
	sols = sols[offset:]
	if limit >= 0 && limit < len(sols) {
		sols = sols[:limit]
	}
	return sols
}
