package treesitter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var errBadCondition = errors.New("invalid preprocessor condition")

// maxExpansionDepth bounds macro expansion inside #if conditions.
const maxExpansionDepth = 32

// evalCondition evaluates a #if/#elif expression against macros. Unknown
// identifiers evaluate to 0, as the preprocessor requires.
func evalCondition(expr string, macros map[string]string) (bool, error) {
	v, err := evalInteger(expr, macros)

	return v != 0, err
}

// evalInteger evaluates an integral constant expression such as an
// enumerator initializer.
func evalInteger(expr string, macros map[string]string) (int64, error) {
	toks, err := tokenizeCondition(expr)
	if err != nil {
		return 0, err
	}

	toks, err = expandCondition(toks, macros, 0)
	if err != nil {
		return 0, err
	}

	p := &condParser{toks: toks}

	v, err := p.ternary()
	if err != nil {
		return 0, err
	}

	if p.pos != len(p.toks) {
		return 0, fmt.Errorf("%w: trailing %q", errBadCondition, p.toks[p.pos])
	}

	return v, nil
}

func tokenizeCondition(s string) ([]string, error) {
	var toks []string

	for i := 0; i < len(s); {
		c := rune(s[i])

		switch {
		case unicode.IsSpace(c) || c == '\\':
			i++
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			return toks, nil
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return toks, nil
			}

			i += end + 4
		case c == '_' || unicode.IsLetter(c):
			j := i
			for j < len(s) && (s[j] == '_' || unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j]))) {
				j++
			}

			toks = append(toks, s[i:j])
			i = j
		case unicode.IsDigit(c):
			j := i
			for j < len(s) && (unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j])) || s[j] == '\'') {
				j++
			}

			toks = append(toks, s[i:j])
			i = j
		case c == '\'':
			j := strings.IndexByte(s[i+1:], '\'')
			if j < 0 {
				return nil, fmt.Errorf("%w: unterminated character literal", errBadCondition)
			}

			toks = append(toks, s[i:i+j+2])
			i += j + 2
		default:
			op := matchOperator(s[i:])
			if op == "" {
				return nil, fmt.Errorf("%w: unexpected %q", errBadCondition, string(c))
			}

			toks = append(toks, op)
			i += len(op)
		}
	}

	return toks, nil
}

var condOperators = []string{
	"&&", "||", "==", "!=", "<=", ">=", "<<", ">>",
	"!", "<", ">", "+", "-", "*", "/", "%", "(", ")", "?", ":", "&", "|", "^", "~", ",", ".",
}

func matchOperator(s string) string {
	for _, op := range condOperators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}

	return ""
}

// expandCondition resolves defined() and replaces object-like macros.
func expandCondition(toks []string, macros map[string]string, depth int) ([]string, error) {
	if depth > maxExpansionDepth {
		return nil, fmt.Errorf("%w: macro expansion too deep", errBadCondition)
	}

	var out []string

	for i := 0; i < len(toks); i++ {
		tok := toks[i]

		if tok == "defined" {
			name, skip, err := definedOperand(toks[i+1:])
			if err != nil {
				return nil, err
			}

			if _, ok := macros[name]; ok {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}

			i += skip

			continue
		}

		if !isIdent(tok) {
			out = append(out, tok)

			continue
		}

		switch tok {
		case "true":
			out = append(out, "1")

			continue
		case "false":
			out = append(out, "0")

			continue
		}

		body, ok := macros[tok]
		if !ok || skipCallArgs(toks[i+1:]) > 0 {
			// Function-like macro invocations and unknown names are 0.
			out = append(out, "0")
			i += skipCallArgs(toks[i+1:])

			continue
		}

		sub, err := tokenizeCondition(body)
		if err != nil {
			return nil, err
		}

		sub, err = expandCondition(sub, without(macros, tok), depth+1)
		if err != nil {
			return nil, err
		}

		if len(sub) == 0 {
			sub = []string{"0"}
		}

		out = append(out, "(")
		out = append(out, sub...)
		out = append(out, ")")
	}

	return out, nil
}

func definedOperand(rest []string) (string, int, error) {
	switch {
	case len(rest) >= 3 && rest[0] == "(" && isIdent(rest[1]) && rest[2] == ")":
		return rest[1], 3, nil
	case len(rest) >= 1 && isIdent(rest[0]):
		return rest[0], 1, nil
	default:
		return "", 0, fmt.Errorf("%w: malformed defined()", errBadCondition)
	}
}

func skipCallArgs(rest []string) int {
	if len(rest) == 0 || rest[0] != "(" {
		return 0
	}

	depth := 0

	for i, tok := range rest {
		switch tok {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}

	return len(rest)
}

func without(macros map[string]string, name string) map[string]string {
	out := make(map[string]string, len(macros))

	for k, v := range macros {
		if k != name {
			out[k] = v
		}
	}

	return out
}

func isIdent(tok string) bool {
	if tok == "" {
		return false
	}

	c := rune(tok[0])

	return c == '_' || unicode.IsLetter(c)
}

type condParser struct {
	toks []string
	pos  int
}

func (p *condParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}

	return p.toks[p.pos]
}

func (p *condParser) next() string {
	tok := p.peek()
	p.pos++

	return tok
}

func (p *condParser) ternary() (int64, error) {
	cond, err := p.binary(0)
	if err != nil {
		return 0, err
	}

	if p.peek() != "?" {
		return cond, nil
	}

	p.next()

	a, err := p.ternary()
	if err != nil {
		return 0, err
	}

	if p.next() != ":" {
		return 0, fmt.Errorf("%w: expected ':'", errBadCondition)
	}

	b, err := p.ternary()
	if err != nil {
		return 0, err
	}

	if cond != 0 {
		return a, nil
	}

	return b, nil
}

var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (p *condParser) binary(minPrec int) (int64, error) {
	lhs, err := p.unary()
	if err != nil {
		return 0, err
	}

	for {
		op := p.peek()

		prec, ok := binaryPrecedence[op]
		if !ok || prec <= minPrec {
			return lhs, nil
		}

		p.next()

		rhs, err := p.binary(prec)
		if err != nil {
			return 0, err
		}

		lhs, err = applyBinary(op, lhs, rhs)
		if err != nil {
			return 0, err
		}
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

func applyBinary(op string, a, b int64) (int64, error) {
	switch op {
	case "||":
		return boolInt(a != 0 || b != 0), nil
	case "&&":
		return boolInt(a != 0 && b != 0), nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "==":
		return boolInt(a == b), nil
	case "!=":
		return boolInt(a != b), nil
	case "<":
		return boolInt(a < b), nil
	case ">":
		return boolInt(a > b), nil
	case "<=":
		return boolInt(a <= b), nil
	case ">=":
		return boolInt(a >= b), nil
	case "<<":
		return a << uint64(b&63), nil //nolint:gosec // masked shift.
	case ">>":
		return a >> uint64(b&63), nil //nolint:gosec // masked shift.
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return 0, fmt.Errorf("%w: division by zero", errBadCondition)
		}

		if op == "/" {
			return a / b, nil
		}

		return a % b, nil
	default:
		return 0, fmt.Errorf("%w: unknown operator %q", errBadCondition, op)
	}
}

func (p *condParser) unary() (int64, error) {
	switch tok := p.next(); tok {
	case "!":
		v, err := p.unary()

		return boolInt(v == 0), err
	case "-":
		v, err := p.unary()

		return -v, err
	case "+":
		return p.unary()
	case "~":
		v, err := p.unary()

		return ^v, err
	case "(":
		v, err := p.ternary()
		if err != nil {
			return 0, err
		}

		if p.next() != ")" {
			return 0, fmt.Errorf("%w: expected ')'", errBadCondition)
		}

		return v, nil
	case "":
		return 0, fmt.Errorf("%w: unexpected end", errBadCondition)
	default:
		return parseIntLiteral(tok)
	}
}

func parseIntLiteral(tok string) (int64, error) {
	if strings.HasPrefix(tok, "'") {
		inner := strings.Trim(tok, "'")
		if inner == "" {
			return 0, nil
		}

		return int64(inner[len(inner)-1]), nil
	}

	lit := strings.ReplaceAll(tok, "'", "")
	lit = strings.TrimRight(lit, "uUlL")

	v, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errBadCondition, tok)
	}

	return v, nil
}
