package sparql

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/helixir/research-graph/internal/rdf"
)

// errType is an expression type error. Inside FILTER it makes the
// constraint false; inside BIND it leaves the variable unbound.
var errType = errors.New("type error")

var (
	trueTerm  = rdf.TypedLiteral("true", rdf.XSDBoolean)
	falseTerm = rdf.TypedLiteral("false", rdf.XSDBoolean)
)

func boolTerm(b bool) rdf.Term {
	if b {
		return trueTerm
	}
	return falseTerm
}

func intTerm(n int) rdf.Term {
	return rdf.TypedLiteral(strconv.Itoa(n), rdf.XSDInteger)
}

func numTerm(f float64, integer bool) rdf.Term {
	if integer {
		return rdf.TypedLiteral(strconv.FormatInt(int64(f), 10), rdf.XSDInteger)
	}
	return rdf.TypedLiteral(strconv.FormatFloat(f, 'f', -1, 64), rdf.XSDDecimal)
}

func isNumericType(dt string) bool {
	switch dt {
	case rdf.XSDInteger, rdf.XSDDecimal, rdf.XSDDouble,
		string(rdf.XSD) + "float", string(rdf.XSD) + "int", string(rdf.XSD) + "long",
		string(rdf.XSD) + "short", string(rdf.XSD) + "nonNegativeInteger",
		string(rdf.XSD) + "positiveInteger":
		return true
	}
	return false
}

// numeric returns the value of a numeric literal.
func numeric(t rdf.Term) (float64, bool) {
	if !t.IsLiteral() || !isNumericType(t.Datatype) {
		return 0, false
	}
	f, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isIntegerTerm(t rdf.Term) bool {
	return t.IsLiteral() && t.Datatype != rdf.XSDDecimal && t.Datatype != rdf.XSDDouble &&
		t.Datatype != string(rdf.XSD)+"float" && isNumericType(t.Datatype)
}

// isStringLike reports whether t is a simple, xsd:string or language-tagged literal.
func isStringLike(t rdf.Term) bool {
	return t.IsLiteral() && (t.Datatype == "" || t.Datatype == rdf.XSDString)
}

// ebv computes the effective boolean value of a term.
func ebv(t rdf.Term) (bool, error) {
	if !t.IsLiteral() {
		return false, errType
	}
	switch {
	case t.Datatype == rdf.XSDBoolean:
		return t.Value == "true" || t.Value == "1", nil
	case isStringLike(t):
		return t.Value != "", nil
	case isNumericType(t.Datatype):
		f, ok := numeric(t)
		if !ok {
			return false, nil
		}
		return f != 0, nil
	}
	return false, errType
}

// env supplies variable values and, for grouped evaluation, the group.
type env struct {
	sol   Binding
	group []Binding
}

func (ev *evaluator) eval(e Expr, en env) (rdf.Term, error) {
	switch x := e.(type) {
	case *ConstExpr:
		return x.Term, nil
	case *VarExpr:
		v, ok := en.sol[x.Name]
		if !ok {
			return rdf.Term{}, errType
		}
		return v, nil
	case *UnaryExpr:
		return ev.evalUnary(x, en)
	case *BinaryExpr:
		return ev.evalBinary(x, en)
	case *InExpr:
		return ev.evalIn(x, en)
	case *CallExpr:
		return ev.evalCall(x, en)
	case *AggregateExpr:
		return ev.evalAggregate(x, en)
	}
	return rdf.Term{}, errType
}

func (ev *evaluator) evalUnary(x *UnaryExpr, en env) (rdf.Term, error) {
	v, err := ev.eval(x.X, en)
	if err != nil {
		return rdf.Term{}, err
	}
	switch x.Op {
	case "!":
		b, err := ebv(v)
		if err != nil {
			return rdf.Term{}, err
		}
		return boolTerm(!b), nil
	case "-":
		f, ok := numeric(v)
		if !ok {
			return rdf.Term{}, errType
		}
		return numTerm(-f, isIntegerTerm(v)), nil
	default:
		if _, ok := numeric(v); !ok {
			return rdf.Term{}, errType
		}
		return v, nil
	}
}

func (ev *evaluator) evalBinary(x *BinaryExpr, en env) (rdf.Term, error) {
	switch x.Op {
	case "||":
		l, lerr := ev.evalBool(x.X, en)
		if lerr == nil && l {
			return trueTerm, nil
		}
		r, rerr := ev.evalBool(x.Y, en)
		if rerr == nil && r {
			return trueTerm, nil
		}
		if lerr != nil || rerr != nil {
			return rdf.Term{}, errType
		}
		return falseTerm, nil
	case "&&":
		l, lerr := ev.evalBool(x.X, en)
		if lerr == nil && !l {
			return falseTerm, nil
		}
		r, rerr := ev.evalBool(x.Y, en)
		if rerr == nil && !r {
			return falseTerm, nil
		}
		if lerr != nil || rerr != nil {
			return rdf.Term{}, errType
		}
		return trueTerm, nil
	}

	l, err := ev.eval(x.X, en)
	if err != nil {
		return rdf.Term{}, err
	}
	r, err := ev.eval(x.Y, en)
	if err != nil {
		return rdf.Term{}, err
	}

	switch x.Op {
	case "=", "!=":
		eq, err := termEqual(l, r)
		if err != nil {
			return rdf.Term{}, err
		}
		return boolTerm(eq == (x.Op == "=")), nil
	case "<", ">", "<=", ">=":
		c, err := compareValues(l, r)
		if err != nil {
			return rdf.Term{}, err
		}
		switch x.Op {
		case "<":
			return boolTerm(c < 0), nil
		case ">":
			return boolTerm(c > 0), nil
		case "<=":
			return boolTerm(c <= 0), nil
		default:
			return boolTerm(c >= 0), nil
		}
	}

	lf, lok := numeric(l)
	rf, rok := numeric(r)
	if !lok || !rok {
		return rdf.Term{}, errType
	}
	integer := isIntegerTerm(l) && isIntegerTerm(r)
	switch x.Op {
	case "+":
		return numTerm(lf+rf, integer), nil
	case "-":
		return numTerm(lf-rf, integer), nil
	case "*":
		return numTerm(lf*rf, integer), nil
	case "/":
		if rf == 0 {
			return rdf.Term{}, errType
		}
		return numTerm(lf/rf, false), nil
	}
	return rdf.Term{}, errType
}

func (ev *evaluator) evalBool(e Expr, en env) (bool, error) {
	v, err := ev.eval(e, en)
	if err != nil {
		return false, err
	}
	return ebv(v)
}

func (ev *evaluator) evalIn(x *InExpr, en env) (rdf.Term, error) {
	v, err := ev.eval(x.X, en)
	if err != nil {
		return rdf.Term{}, err
	}
	found := false
	for _, item := range x.List {
		w, err := ev.eval(item, en)
		if err != nil {
			continue
		}
		if eq, err := termEqual(v, w); err == nil && eq {
			found = true
			break
		}
	}
	return boolTerm(found != x.Not), nil
}

// termEqual implements RDFterm-equal with numeric value comparison.
func termEqual(a, b rdf.Term) (bool, error) {
	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			return af == bf, nil
		}
	}
	if a == b {
		return true, nil
	}
	if isStringLike(a) && isStringLike(b) {
		return a.Value == b.Value && a.Lang == b.Lang, nil
	}
	return false, nil
}

// compareValues orders two comparable values.
func compareValues(a, b rdf.Term) (int, error) {
	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			return compareFloat(af, bf), nil
		}
		return 0, errType
	}
	if isStringLike(a) && isStringLike(b) {
		return strings.Compare(a.Value, b.Value), nil
	}
	if a.IsLiteral() && b.IsLiteral() && a.Datatype == b.Datatype && a.Datatype != "" {
		return strings.Compare(a.Value, b.Value), nil
	}
	return 0, errType
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// orderCompare is the total order used by ORDER BY: unbound, blank nodes,
// IRIs, then literals.
func orderCompare(a, b rdf.Term, aok, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	rank := func(t rdf.Term) int {
		switch t.Kind {
		case rdf.KindBlank:
			return 1
		case rdf.KindIRI:
			return 2
		default:
			return 3
		}
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra - rb
	}
	if c, err := compareValues(a, b); err == nil {
		return c
	}
	if c := strings.Compare(a.Value, b.Value); c != 0 {
		return c
	}
	if c := strings.Compare(a.Datatype, b.Datatype); c != 0 {
		return c
	}
	return strings.Compare(a.Lang, b.Lang)
}

func stringArg(t rdf.Term) (string, bool) {
	if t.IsLiteral() {
		return t.Value, true
	}
	return "", false
}

func (ev *evaluator) evalCall(x *CallExpr, en env) (rdf.Term, error) {
	switch x.Name {
	case "BOUND":
		_, ok := en.sol[x.Args[0].(*VarExpr).Name]
		return boolTerm(ok), nil
	case "IF":
		c, err := ev.evalBool(x.Args[0], en)
		if err != nil {
			return rdf.Term{}, err
		}
		if c {
			return ev.eval(x.Args[1], en)
		}
		return ev.eval(x.Args[2], en)
	case "COALESCE":
		for _, a := range x.Args {
			if v, err := ev.eval(a, en); err == nil {
				return v, nil
			}
		}
		return rdf.Term{}, errType
	}

	args := make([]rdf.Term, len(x.Args))
	for i, a := range x.Args {
		v, err := ev.eval(a, en)
		if err != nil {
			return rdf.Term{}, err
		}
		args[i] = v
	}

	switch x.Name {
	case "STR":
		if args[0].IsBlank() {
			return rdf.Term{}, errType
		}
		return rdf.Literal(args[0].Value), nil
	case "LANG":
		if !args[0].IsLiteral() {
			return rdf.Term{}, errType
		}
		return rdf.Literal(args[0].Lang), nil
	case "LANGMATCHES":
		tag, ok1 := stringArg(args[0])
		rng, ok2 := stringArg(args[1])
		if !ok1 || !ok2 {
			return rdf.Term{}, errType
		}
		return boolTerm(langMatches(tag, rng)), nil
	case "DATATYPE":
		if !args[0].IsLiteral() {
			return rdf.Term{}, errType
		}
		return rdf.IRI(args[0].EffectiveDatatype()), nil
	case "ISIRI", "ISURI":
		return boolTerm(args[0].IsIRI()), nil
	case "ISBLANK":
		return boolTerm(args[0].IsBlank()), nil
	case "ISLITERAL":
		return boolTerm(args[0].IsLiteral()), nil
	case "ISNUMERIC":
		_, ok := numeric(args[0])
		return boolTerm(ok), nil
	case "SAMETERM":
		return boolTerm(args[0] == args[1]), nil
	}

	// String functions take literal arguments.
	strs := make([]string, len(args))
	for i, a := range args {
		s, ok := stringArg(a)
		if !ok {
			return rdf.Term{}, errType
		}
		strs[i] = s
	}

	switch x.Name {
	case "CONTAINS":
		return boolTerm(strings.Contains(strs[0], strs[1])), nil
	case "STRSTARTS":
		return boolTerm(strings.HasPrefix(strs[0], strs[1])), nil
	case "STRENDS":
		return boolTerm(strings.HasSuffix(strs[0], strs[1])), nil
	case "LCASE":
		return withLang(strings.ToLower(strs[0]), args[0]), nil
	case "UCASE":
		return withLang(strings.ToUpper(strs[0]), args[0]), nil
	case "STRLEN":
		return intTerm(utf8.RuneCountInString(strs[0])), nil
	case "CONCAT":
		return rdf.Literal(strings.Join(strs, "")), nil
	case "SUBSTR":
		return ev.substr(args, strs)
	case "REGEX":
		flags := ""
		if len(strs) == 3 {
			flags = strs[2]
		}
		re, err := ev.regex(strs[1], flags)
		if err != nil {
			return rdf.Term{}, err
		}
		return boolTerm(re.MatchString(strs[0])), nil
	}
	return rdf.Term{}, errType
}

func withLang(v string, src rdf.Term) rdf.Term {
	if src.Lang != "" {
		return rdf.LangLiteral(v, src.Lang)
	}
	return rdf.Literal(v)
}

func langMatches(tag, rng string) bool {
	if rng == "*" {
		return tag != ""
	}
	tag, rng = strings.ToLower(tag), strings.ToLower(rng)
	return tag == rng || strings.HasPrefix(tag, rng+"-")
}

func (ev *evaluator) substr(args []rdf.Term, strs []string) (rdf.Term, error) {
	start, ok := numeric(args[1])
	if !ok {
		return rdf.Term{}, errType
	}
	runes := []rune(strs[0])
	from := int(start) - 1
	to := len(runes)
	if len(args) == 3 {
		n, ok := numeric(args[2])
		if !ok {
			return rdf.Term{}, errType
		}
		to = from + int(n)
	}
	if from < 0 {
		from = 0
	}
	if to > len(runes) {
		to = len(runes)
	}
	if from >= to {
		return withLang("", args[0]), nil
	}
	return withLang(string(runes[from:to]), args[0]), nil
}

func (ev *evaluator) regex(pattern, flags string) (*regexp.Regexp, error) {
	key := flags + "/" + pattern
	if re, ok := ev.regexCache[key]; ok {
		return re, nil
	}
	prefix := ""
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			prefix += string(f)
		case 'x':
		default:
			return nil, errType
		}
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errType
	}
	ev.regexCache[key] = re
	return re, nil
}
