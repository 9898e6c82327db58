// Package query implements the subset of the JMESPath expression
// language the engine needs for client-side result filtering: field
// access, indexing, flattening projections and filter projections with
// comparisons. Expressions parse into a tagged-union AST so the filter
// node's root can be rewritten before evaluation.
package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Node is one AST vertex. The concrete types form a closed set.
type Node interface{ node() }

type (
	// Identity evaluates to its input unchanged.
	Identity struct{}

	// Current is the @ reference inside a filter expression.
	Current struct{}

	// Field selects a key from a map.
	Field struct{ Name string }

	// SubExpr applies Right to the result of Left (the dot operator).
	SubExpr struct{ Left, Right Node }

	// Index selects one element of a list, negative from the end.
	Index struct {
		Left Node
		Idx  int
	}

	// Flatten is the [] projection over a list.
	Flatten struct{ Left Node }

	// FilterProjection is the [?expr] projection: elements of Left's
	// list for which Filter is truthy.
	FilterProjection struct {
		Left   Node
		Filter Node
	}

	// Comparison is a binary comparator inside a filter.
	Comparison struct {
		Op          string
		Left, Right Node
	}

	// And/Or/Not combine filter conditions.
	And struct{ Left, Right Node }
	Or  struct{ Left, Right Node }
	Not struct{ Expr Node }

	// Literal is a quoted string or backtick JSON value.
	Literal struct{ Value any }
)

func (Identity) node()         {}
func (Current) node()          {}
func (Field) node()            {}
func (SubExpr) node()          {}
func (Index) node()            {}
func (Flatten) node()          {}
func (FilterProjection) node() {}
func (Comparison) node()       {}
func (And) node()              {}
func (Or) node()               {}
func (Not) node()              {}
func (Literal) node()          {}

// Parse compiles an expression into its AST.
func Parse(expression string) (Node, error) {
	p := &parser{input: expression}
	p.lex()
	if p.err != nil {
		return nil, p.err
	}
	node := p.parseExpression()
	if p.err != nil {
		return nil, p.err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("unexpected token %q", p.tokens[p.pos].text)
	}
	return node, nil
}

// FindFilterProjection returns the first filter-projection node in
// depth-first order, or nil.
func FindFilterProjection(n Node) *FilterProjection {
	switch v := n.(type) {
	case *FilterProjection:
		return v
	case *SubExpr:
		if fp := FindFilterProjection(v.Left); fp != nil {
			return fp
		}
		return FindFilterProjection(v.Right)
	case *Index:
		return FindFilterProjection(v.Left)
	case *Flatten:
		return FindFilterProjection(v.Left)
	}
	return nil
}

// RewriteRootToIdentity detaches the filter projection from whatever it
// was selecting so it applies directly to a caller-supplied array.
func RewriteRootToIdentity(fp *FilterProjection) {
	fp.Left = &Identity{}
}

// ApplyFilter evaluates the (rewritten) filter projection against a
// list, returning the elements whose condition holds.
func ApplyFilter(fp *FilterProjection, list []any) []any {
	result := Eval(fp, list)
	filtered, ok := result.([]any)
	if !ok {
		return nil
	}
	return filtered
}

// Eval evaluates a node against data. Missing fields and type
// mismatches evaluate to nil, matching the language's null semantics.
func Eval(n Node, data any) any {
	switch v := n.(type) {
	case *Identity, *Current:
		return data
	case *Field:
		if m, ok := data.(map[string]any); ok {
			return m[v.Name]
		}
		return nil
	case *SubExpr:
		left := Eval(v.Left, data)
		if isProjection(v.Left) {
			list, ok := left.([]any)
			if !ok {
				return nil
			}
			var out []any
			for _, element := range list {
				if r := Eval(v.Right, element); r != nil {
					out = append(out, r)
				}
			}
			return out
		}
		return Eval(v.Right, left)
	case *Index:
		list, ok := Eval(v.Left, data).([]any)
		if !ok {
			return nil
		}
		idx := v.Idx
		if idx < 0 {
			idx += len(list)
		}
		if idx < 0 || idx >= len(list) {
			return nil
		}
		return list[idx]
	case *Flatten:
		left := Eval(v.Left, data)
		list, ok := left.([]any)
		if !ok {
			return nil
		}
		var out []any
		for _, element := range list {
			if inner, ok := element.([]any); ok {
				out = append(out, inner...)
			} else if element != nil {
				out = append(out, element)
			}
		}
		return out
	case *FilterProjection:
		list, ok := Eval(v.Left, data).([]any)
		if !ok {
			return nil
		}
		var out []any
		for _, element := range list {
			if isTruthy(Eval(v.Filter, element)) {
				out = append(out, element)
			}
		}
		return out
	case *Comparison:
		return compare(v.Op, Eval(v.Left, data), Eval(v.Right, data))
	case *And:
		left := Eval(v.Left, data)
		if !isTruthy(left) {
			return left
		}
		return Eval(v.Right, data)
	case *Or:
		left := Eval(v.Left, data)
		if isTruthy(left) {
			return left
		}
		return Eval(v.Right, data)
	case *Not:
		return !isTruthy(Eval(v.Expr, data))
	case *Literal:
		return v.Value
	}
	return nil
}

func isProjection(n Node) bool {
	switch n.(type) {
	case *Flatten, *FilterProjection:
		return true
	case *SubExpr:
		return isProjection(n.(*SubExpr).Right)
	}
	return false
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

func compare(op string, left, right any) any {
	switch op {
	case "==":
		return equalValues(left, right)
	case "!=":
		return !equalValues(left, right)
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil
	}
	switch op {
	case "<":
		return lf < rf
	case "<=":
		return lf <= rf
	case ">":
		return lf > rf
	case ">=":
		return lf >= rf
	}
	return nil
}

func equalValues(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(aj) == string(bj)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

// ---- lexing and parsing ----

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokDot
	tokLBracket
	tokRBracket
	tokQuestion
	tokAt
	tokNumber
	tokRawString
	tokJSONLiteral
	tokCmp
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

type parser struct {
	input  string
	tokens []token
	pos    int
	err    error
}

func (p *parser) lex() {
	s := p.input
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '.':
			p.emit(tokDot, ".")
			i++
		case c == '[':
			p.emit(tokLBracket, "[")
			i++
		case c == ']':
			p.emit(tokRBracket, "]")
			i++
		case c == '?':
			p.emit(tokQuestion, "?")
			i++
		case c == '@':
			p.emit(tokAt, "@")
			i++
		case c == '(':
			p.emit(tokLParen, "(")
			i++
		case c == ')':
			p.emit(tokRParen, ")")
			i++
		case c == '&' && i+1 < len(s) && s[i+1] == '&':
			p.emit(tokAnd, "&&")
			i += 2
		case c == '|' && i+1 < len(s) && s[i+1] == '|':
			p.emit(tokOr, "||")
			i += 2
		case c == '=' && i+1 < len(s) && s[i+1] == '=':
			p.emit(tokCmp, "==")
			i += 2
		case c == '!' && i+1 < len(s) && s[i+1] == '=':
			p.emit(tokCmp, "!=")
			i += 2
		case c == '!':
			p.emit(tokNot, "!")
			i++
		case c == '<' || c == '>':
			op := string(c)
			i++
			if i < len(s) && s[i] == '=' {
				op += "="
				i++
			}
			p.emit(tokCmp, op)
		case c == '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				p.err = fmt.Errorf("unterminated raw string")
				return
			}
			p.emit(tokRawString, s[i+1:i+1+end])
			i += end + 2
		case c == '"':
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				p.err = fmt.Errorf("unterminated quoted identifier")
				return
			}
			p.emit(tokIdent, s[i+1:i+1+end])
			i += end + 2
		case c == '`':
			end := strings.IndexByte(s[i+1:], '`')
			if end < 0 {
				p.err = fmt.Errorf("unterminated literal")
				return
			}
			p.emit(tokJSONLiteral, s[i+1:i+1+end])
			i += end + 2
		case c == '-' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && (s[j] >= '0' && s[j] <= '9') {
				j++
			}
			p.emit(tokNumber, s[i:j])
			i = j
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i + 1
			for j < len(s) && (unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j])) || s[j] == '_') {
				j++
			}
			p.emit(tokIdent, s[i:j])
			i = j
		default:
			p.err = fmt.Errorf("unexpected character %q", string(c))
			return
		}
	}
}

func (p *parser) emit(kind tokenKind, text string) {
	p.tokens = append(p.tokens, token{kind, text})
}

func (p *parser) peek() (token, bool) {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos], true
	}
	return token{}, false
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *parser) expect(kind tokenKind, what string) bool {
	t, ok := p.next()
	if !ok || t.kind != kind {
		p.fail("expected " + what)
		return false
	}
	return true
}

func (p *parser) fail(msg string) {
	if p.err == nil {
		p.err = fmt.Errorf("%s", msg)
	}
}

// parseExpression handles || over && over comparisons over postfix
// chains, lowest precedence first.
func (p *parser) parseExpression() Node {
	left := p.parseAndExpr()
	for p.err == nil {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			break
		}
		p.pos++
		left = &Or{Left: left, Right: p.parseAndExpr()}
	}
	return left
}

func (p *parser) parseAndExpr() Node {
	left := p.parseComparison()
	for p.err == nil {
		t, ok := p.peek()
		if !ok || t.kind != tokAnd {
			break
		}
		p.pos++
		left = &And{Left: left, Right: p.parseComparison()}
	}
	return left
}

func (p *parser) parseComparison() Node {
	left := p.parsePostfix()
	t, ok := p.peek()
	if ok && t.kind == tokCmp {
		p.pos++
		return &Comparison{Op: t.text, Left: left, Right: p.parsePostfix()}
	}
	return left
}

func (p *parser) parsePostfix() Node {
	left := p.parsePrimary()
	for p.err == nil {
		t, ok := p.peek()
		if !ok {
			break
		}
		switch t.kind {
		case tokDot:
			p.pos++
			next, ok := p.next()
			if !ok || next.kind != tokIdent {
				p.fail("expected identifier after '.'")
				return left
			}
			left = &SubExpr{Left: left, Right: &Field{Name: next.text}}
		case tokLBracket:
			p.pos++
			left = p.parseBracket(left)
		default:
			return left
		}
	}
	return left
}

func (p *parser) parseBracket(left Node) Node {
	t, ok := p.peek()
	if !ok {
		p.fail("unterminated bracket expression")
		return left
	}
	switch t.kind {
	case tokRBracket:
		p.pos++
		return &Flatten{Left: left}
	case tokQuestion:
		p.pos++
		filter := p.parseExpression()
		if !p.expect(tokRBracket, "']'") {
			return left
		}
		return &FilterProjection{Left: left, Filter: filter}
	case tokNumber:
		p.pos++
		idx, err := strconv.Atoi(t.text)
		if err != nil {
			p.fail("invalid index " + t.text)
			return left
		}
		if !p.expect(tokRBracket, "']'") {
			return left
		}
		return &Index{Left: left, Idx: idx}
	default:
		p.fail("unsupported bracket expression")
		return left
	}
}

func (p *parser) parsePrimary() Node {
	t, ok := p.next()
	if !ok {
		p.fail("unexpected end of expression")
		return &Identity{}
	}
	switch t.kind {
	case tokIdent:
		return &Field{Name: t.text}
	case tokAt:
		return &Current{}
	case tokRawString:
		return &Literal{Value: t.text}
	case tokNumber:
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			p.fail("invalid number " + t.text)
			return &Identity{}
		}
		return &Literal{Value: n}
	case tokJSONLiteral:
		var v any
		if err := json.Unmarshal([]byte(t.text), &v); err != nil {
			p.fail("invalid literal: " + err.Error())
			return &Identity{}
		}
		return &Literal{Value: v}
	case tokNot:
		return &Not{Expr: p.parsePostfix()}
	case tokLParen:
		inner := p.parseExpression()
		p.expect(tokRParen, "')'")
		return inner
	case tokLBracket:
		// expression starting with a projection applies to the root
		return p.parseBracket(&Identity{})
	default:
		p.fail("unexpected token " + t.text)
		return &Identity{}
	}
}
