package condition

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Rules is the built-in Evaluator.
//
// Supported syntax:
//   - truthiness: `features.export`, `!actor.suspended`
//   - comparisons: `actor.department == "finance"`, `rows != 0`
//   - membership: `"admin" in actor.roles`, `"csv" in formats`
//   - composition: `a && (b || !c)`
//
// Identifiers are dotted paths into Context.Values, or into Context.Actor when
// prefixed with `actor.`. An empty rule evaluates to true.
type Rules struct{}

// New returns the built-in rule evaluator.
func New() *Rules { return &Rules{} }

var _ Evaluator = (*Rules)(nil)

// Eval parses and evaluates rule against ctx.
func (r *Rules) Eval(rule string, ctx Context) (bool, error) {
	expr, err := Parse(rule)
	if err != nil {
		return false, err
	}
	return expr.Eval(ctx)
}

// Expr is a parsed rule that can be evaluated repeatedly.
type Expr struct {
	root node
}

// Parse compiles rule. An empty rule yields an expression that is always true.
func Parse(rule string) (Expr, error) {
	tokens, err := lex(strings.TrimSpace(rule))
	if err != nil {
		return Expr{}, err
	}
	if len(tokens) == 0 {
		return Expr{}, nil
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return Expr{}, err
	}
	if p.pos < len(p.tokens) {
		return Expr{}, fmt.Errorf("condition: unexpected token %q", p.tokens[p.pos].raw)
	}
	return Expr{root: root}, nil
}

// Eval evaluates the expression.
func (e Expr) Eval(ctx Context) (bool, error) {
	if e.root == nil {
		return true, nil
	}
	return e.root.eval(ctx)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokEq
	tokNeq
	tokIn
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDelimiter(ch byte) bool {
	return isSpace(ch) || strings.IndexByte("()!=&|\"'", ch) >= 0
}

func lex(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		ch := input[i]
		switch {
		case isSpace(ch):
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, raw: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, raw: ")"})
			i++
		case ch == '!':
			if strings.HasPrefix(input[i:], "!=") {
				tokens = append(tokens, token{kind: tokNeq, raw: "!="})
				i += 2
				continue
			}
			tokens = append(tokens, token{kind: tokNot, raw: "!"})
			i++
		case ch == '=':
			if !strings.HasPrefix(input[i:], "==") {
				return nil, errors.New("condition: unexpected '='; use '=='")
			}
			tokens = append(tokens, token{kind: tokEq, raw: "=="})
			i += 2
		case ch == '&':
			if !strings.HasPrefix(input[i:], "&&") {
				return nil, errors.New("condition: unexpected '&'; use '&&'")
			}
			tokens = append(tokens, token{kind: tokAnd, raw: "&&"})
			i += 2
		case ch == '|':
			if !strings.HasPrefix(input[i:], "||") {
				return nil, errors.New("condition: unexpected '|'; use '||'")
			}
			tokens = append(tokens, token{kind: tokOr, raw: "||"})
			i += 2
		case ch == '"' || ch == '\'':
			end := i + 1
			for end < len(input) && input[end] != ch {
				if input[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(input) {
				return nil, errors.New("condition: unterminated string literal")
			}
			body := input[i+1 : end]
			if ch == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			value, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return nil, fmt.Errorf("condition: invalid string literal: %w", err)
			}
			tokens = append(tokens, token{kind: tokString, raw: value})
			i = end + 1
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			tokens = append(tokens, classifyWord(input[start:i]))
		}
	}
	return tokens, nil
}

func classifyWord(raw string) token {
	switch lower := strings.ToLower(raw); lower {
	case "true", "false":
		return token{kind: tokBool, raw: lower}
	case "null", "nil":
		return token{kind: tokNull, raw: "null"}
	case "in":
		return token{kind: tokIn, raw: "in"}
	case "and":
		return token{kind: tokAnd, raw: "&&"}
	case "or":
		return token{kind: tokOr, raw: "||"}
	case "not":
		return token{kind: tokNot, raw: "!"}
	}
	if looksNumeric(raw) {
		return token{kind: tokNumber, raw: raw}
	}
	return token{kind: tokIdent, raw: raw}
}

func looksNumeric(raw string) bool {
	if raw == "" || strings.IndexByte("0123456789+-.", raw[0]) < 0 {
		return false
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

type node interface {
	eval(ctx Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// operand is either a path lookup or a literal value.
type operand struct {
	path    string
	literal any
	isLit   bool
}

func (o operand) resolve(ctx Context) any {
	if o.isLit {
		return o.literal
	}
	value, _ := ctx.Lookup(o.path)
	return value
}

type truthNode struct{ operand operand }

func (n truthNode) eval(ctx Context) (bool, error) {
	return truthy(n.operand.resolve(ctx)), nil
}

type compareNode struct {
	left, right operand
	op          tokenKind
}

func (n compareNode) eval(ctx Context) (bool, error) {
	left, right := n.left.resolve(ctx), n.right.resolve(ctx)
	switch n.op {
	case tokEq:
		return equal(left, right, n.left.isLit, n.right.isLit), nil
	case tokNeq:
		return !equal(left, right, n.left.isLit, n.right.isLit), nil
	case tokIn:
		return contains(right, left), nil
	default:
		return false, fmt.Errorf("condition: unsupported operator")
	}
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) match(kind tokenKind) bool {
	if tok, ok := p.peek(); ok && tok.kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.match(tokOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.match(tokAnd) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.match(tokNot) {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.match(tokLParen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.match(tokRParen) {
			return nil, errors.New("condition: missing closing ')'")
		}
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	tok, ok := p.peek()
	if !ok || (tok.kind != tokEq && tok.kind != tokNeq && tok.kind != tokIn) {
		return truthNode{operand: left}, nil
	}
	p.pos++
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokIn && right.isLit {
		return nil, errors.New("condition: right side of 'in' must be a path")
	}
	return compareNode{left: left, right: right, op: tok.kind}, nil
}

func (p *parser) parseOperand() (operand, error) {
	tok, ok := p.peek()
	if !ok {
		return operand{}, errors.New("condition: unexpected end of rule")
	}
	p.pos++
	switch tok.kind {
	case tokIdent:
		return operand{path: tok.raw}, nil
	case tokString:
		return operand{literal: tok.raw, isLit: true}, nil
	case tokNumber:
		f, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return operand{}, fmt.Errorf("condition: invalid number %q", tok.raw)
		}
		return operand{literal: f, isLit: true}, nil
	case tokBool:
		return operand{literal: tok.raw == "true", isLit: true}, nil
	case tokNull:
		return operand{isLit: true}, nil
	default:
		return operand{}, fmt.Errorf("condition: expected value, got %q", tok.raw)
	}
}

// equal compares with the literal side deciding the coercion, so
// `count == 3` matches both 3 and "3". Missing values compare as the zero
// value of the literal's type.
func equal(left, right any, leftLit, rightLit bool) bool {
	if rightLit && !leftLit {
		left, right = right, left
		leftLit = true
	}
	if leftLit {
		switch want := left.(type) {
		case nil:
			return right == nil
		case bool:
			got, _ := toBool(right)
			return got == want
		case float64:
			if right == nil {
				return want == 0
			}
			got, ok := toNumber(right)
			return ok && got == want
		case string:
			return toString(right) == want
		}
	}
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if a, ok := toNumber(left); ok {
		if b, ok := toNumber(right); ok {
			return a == b
		}
	}
	return toString(left) == toString(right)
}

func contains(haystack, needle any) bool {
	switch typed := haystack.(type) {
	case nil:
		return false
	case string:
		return strings.Contains(typed, toString(needle))
	case map[string]any:
		_, ok := typed[toString(needle)]
		return ok
	case map[string]string:
		_, ok := typed[toString(needle)]
		return ok
	}
	rv := reflect.ValueOf(haystack)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if equal(needle, rv.Index(i).Interface(), true, false) {
			return true
		}
	}
	return false
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case map[string]any:
		return len(v) > 0
	}
	if n, ok := toNumber(value); ok {
		return n != 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return parsed, err == nil
	}
	if n, ok := toNumber(value); ok {
		return n != 0, true
	}
	return false, false
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}
