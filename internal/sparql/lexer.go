package sparql

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokVar
	tokString
	tokLangTag
	tokInteger
	tokDecimal
	tokDouble
	tokBlank
	tokWord
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokIRI:
		return "IRI"
	case tokPName:
		return "prefixed name"
	case tokVar:
		return "variable"
	case tokString:
		return "string"
	case tokLangTag:
		return "language tag"
	case tokInteger, tokDecimal, tokDouble:
		return "number"
	case tokBlank:
		return "blank node"
	case tokWord:
		return "keyword"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	val  string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return t.kind.String()
	}
	return fmt.Sprintf("%s %q", t.kind, t.val)
}

// is reports whether t is the punctuation or case-insensitive keyword s.
func (t token) is(s string) bool {
	switch t.kind {
	case tokPunct:
		return t.val == s
	case tokWord:
		return strings.EqualFold(t.val, s)
	default:
		return false
	}
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.toks = append(l.toks, tok)
		if tok.kind == tokEOF {
			return l.toks, nil
		}
	}
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return newParseError(l.src, pos, fmt.Sprintf(format, args...))
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '<':
		if iri, ok := l.scanIRI(); ok {
			return token{kind: tokIRI, val: iri, pos: start}, nil
		}
		return l.operator(start)
	case c == '?' || c == '$':
		l.pos++
		name := l.scanVarName()
		if name == "" {
			return token{}, l.errorf(start, "empty variable name")
		}
		return token{kind: tokVar, val: name, pos: start}, nil
	case c == '"' || c == '\'':
		s, err := l.scanString()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, val: s, pos: start}, nil
	case c == '@':
		l.pos++
		tag := l.scanLangTag()
		if tag == "" {
			return token{}, l.errorf(start, "empty language tag")
		}
		return token{kind: tokLangTag, val: tag, pos: start}, nil
	case c >= '0' && c <= '9':
		return l.scanNumber(start), nil
	case c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]):
		return l.scanNumber(start), nil
	case c == '_' && l.pos+1 < len(l.src) && l.src[l.pos+1] == ':':
		l.pos += 2
		name := l.scanName()
		if name == "" {
			return token{}, l.errorf(start, "empty blank node label")
		}
		return token{kind: tokBlank, val: name, pos: start}, nil
	case c == ':' || isNameStart(l.peekRune()):
		return l.scanWordOrPName(start)
	default:
		return l.operator(start)
	}
}

func (l *lexer) peekRune() rune {
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

// scanIRI consumes <...> when the bracket opens an IRI rather than a
// less-than operator.
func (l *lexer) scanIRI() (string, bool) {
	for i := l.pos + 1; i < len(l.src); i++ {
		switch l.src[i] {
		case '>':
			iri := l.src[l.pos+1 : i]
			l.pos = i + 1
			return iri, true
		case ' ', '\t', '\n', '\r', '<', '"', '{', '}', '|', '^', '`', '\\':
			return "", false
		}
	}
	return "", false
}

func (l *lexer) operator(start int) (token, error) {
	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "&&", "||", "!=", "<=", ">=", "^^":
		l.pos += 2
		return token{kind: tokPunct, val: two, pos: start}, nil
	}
	c := l.src[l.pos]
	if strings.IndexByte("{}().;,*=<>!+-/[]", c) >= 0 {
		l.pos++
		return token{kind: tokPunct, val: string(c), pos: start}, nil
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return token{}, l.errorf(start, "unexpected character %q", r)
}

func (l *lexer) scanName() string {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isNameChar(r) {
			break
		}
		l.pos += size
	}
	return l.src[start:l.pos]
}

func (l *lexer) scanVarName() string {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r == '-' || !isNameChar(r) {
			break
		}
		l.pos += size
	}
	return l.src[start:l.pos]
}

func (l *lexer) scanLangTag() string {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if !(isLetter(c) || isDigit(c) || c == '-') {
			break
		}
		l.pos++
	}
	return l.src[start:l.pos]
}

func (l *lexer) scanNumber(start int) token {
	kind := tokInteger
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		kind = tokDecimal
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	} else if l.pos > start && l.pos < len(l.src) && l.src[l.pos] == '.' && l.exponentLen(l.pos+1) > 0 {
		// "1.e3": the dot belongs to the number only when an exponent follows.
		l.pos++
	}
	if n := l.exponentLen(l.pos); n > 0 {
		kind = tokDouble
		l.pos += n
	}
	return token{kind: kind, val: l.src[start:l.pos], pos: start}
}

// exponentLen returns the length of an [eE][+-]?[0-9]+ exponent at i, or 0.
func (l *lexer) exponentLen(i int) int {
	j := i
	if j >= len(l.src) || (l.src[j] != 'e' && l.src[j] != 'E') {
		return 0
	}
	j++
	if j < len(l.src) && (l.src[j] == '+' || l.src[j] == '-') {
		j++
	}
	digits := j
	for j < len(l.src) && isDigit(l.src[j]) {
		j++
	}
	if j == digits {
		return 0
	}
	return j - i
}

// scanWordOrPName reads a keyword, bare word or prefixed name. A trailing
// '.' belongs to the enclosing pattern, not to the name.
func (l *lexer) scanWordOrPName(start int) (token, error) {
	prefix := ""
	if l.src[l.pos] != ':' {
		prefix = l.scanName()
	}
	if l.pos >= len(l.src) || l.src[l.pos] != ':' {
		return token{kind: tokWord, val: prefix, pos: start}, nil
	}
	l.pos++
	localStart := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isNameChar(r) && r != '.' && r != ':' {
			break
		}
		l.pos += size
	}
	for l.pos > localStart && l.src[l.pos-1] == '.' {
		l.pos--
	}
	return token{kind: tokPName, val: prefix + ":" + l.src[localStart:l.pos], pos: start}, nil
}

func (l *lexer) scanString() (string, error) {
	start := l.pos
	quote := l.src[l.pos]
	long := strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(quote), 3))
	if long {
		l.pos += 3
	} else {
		l.pos++
	}

	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case long && strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(quote), 3)):
			l.pos += 3
			return b.String(), nil
		case !long && c == quote:
			l.pos++
			return b.String(), nil
		case !long && (c == '\n' || c == '\r'):
			return "", l.errorf(start, "unterminated string")
		case c == '\\':
			if l.pos+1 >= len(l.src) {
				return "", l.errorf(l.pos, "unterminated escape")
			}
			esc := l.src[l.pos+1]
			l.pos += 2
			switch esc {
			case 't':
				b.WriteByte('\t')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '"', '\'', '\\':
				b.WriteByte(esc)
			case 'u', 'U':
				n := 4
				if esc == 'U' {
					n = 8
				}
				if l.pos+n > len(l.src) {
					return "", l.errorf(l.pos, "short unicode escape")
				}
				var r rune
				if _, err := fmt.Sscanf(l.src[l.pos:l.pos+n], "%x", &r); err != nil {
					return "", l.errorf(l.pos, "bad unicode escape")
				}
				b.WriteRune(r)
				l.pos += n
			default:
				return "", l.errorf(l.pos-2, "unknown escape \\%c", esc)
			}
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	return "", l.errorf(start, "unterminated string")
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
