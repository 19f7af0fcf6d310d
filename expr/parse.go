package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SyntaxError reports a problem reading FullForm text.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return "syntax error at offset " + strconv.Itoa(e.Offset) + ": " + e.Msg
}

// Parse reads an expression in FullForm.
//
// The reader is not the concrete syntax of a language.  It knows
// head[args...], {...} for List, integers, reals (1.5, 1., 2.*^-3),
// quoted strings, symbols, and blank shorthand: _, x_, x_h, x__,
// x___, x_. (Optional without a default), and x_:d (Optional with a
// default).  Expressions separated by ';' become a
// CompoundExpression, and a trailing ';' adds a final Null.
//
// Whatever String() prints, Parse can read back.
func Parse(src string) (Expr, error) {
	r := &reader{src: src}
	x, err := r.sequence()
	if err != nil {
		return nil, err
	}
	r.skip()
	if r.pos < len(r.src) {
		return nil, r.errorf("unexpected %q", r.src[r.pos:r.pos+1])
	}
	return x, nil
}

// MustParse is Parse that panics on error.  For tests and
// initialization.
func MustParse(src string) Expr {
	x, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return x
}

type reader struct {
	src string
	pos int
}

func (r *reader) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Offset: r.pos, Msg: fmt.Sprintf(format, args...)}
}

func (r *reader) peek() byte {
	if r.pos < len(r.src) {
		return r.src[r.pos]
	}
	return 0
}

// skip skips whitespace and (* comments *).
func (r *reader) skip() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			r.pos++
		case strings.HasPrefix(r.src[r.pos:], "(*"):
			end := strings.Index(r.src[r.pos+2:], "*)")
			if end < 0 {
				r.pos = len(r.src)
				return
			}
			r.pos += end + 4
		default:
			return
		}
	}
}

// sequence reads expr (';' expr?)*.
func (r *reader) sequence() (Expr, error) {
	x, err := r.expr()
	if err != nil {
		return nil, err
	}
	r.skip()
	if r.peek() != ';' {
		return x, nil
	}
	xs := []Expr{x}
	for r.peek() == ';' {
		r.pos++
		r.skip()
		switch r.peek() {
		case 0, ']', '}', ')', ',', ';':
			xs = append(xs, SymNull)
			continue
		}
		y, err := r.expr()
		if err != nil {
			return nil, err
		}
		xs = append(xs, y)
		r.skip()
	}
	return Apply("CompoundExpression", xs...), nil
}

func (r *reader) expr() (Expr, error) {
	x, err := r.primary()
	if err != nil {
		return nil, err
	}
	for {
		r.skip()
		if r.peek() != '[' {
			return x, nil
		}
		r.pos++
		args, err := r.args(']')
		if err != nil {
			return nil, err
		}
		x = New(x, args...)
	}
}

// args reads comma-separated sequences up to the closing byte.
func (r *reader) args(closing byte) ([]Expr, error) {
	args := make([]Expr, 0, 4)
	r.skip()
	if r.peek() == closing {
		r.pos++
		return args, nil
	}
	for {
		x, err := r.sequence()
		if err != nil {
			return nil, err
		}
		args = append(args, x)
		r.skip()
		switch r.peek() {
		case ',':
			r.pos++
		case closing:
			r.pos++
			return args, nil
		case 0:
			return nil, r.errorf("missing %q", string(closing))
		default:
			return nil, r.errorf("unexpected %q", r.src[r.pos:r.pos+1])
		}
	}
}

func (r *reader) primary() (Expr, error) {
	r.skip()
	c := r.peek()
	switch {
	case c == 0:
		return nil, r.errorf("unexpected end of input")
	case c == '(':
		r.pos++
		x, err := r.sequence()
		if err != nil {
			return nil, err
		}
		r.skip()
		if r.peek() != ')' {
			return nil, r.errorf("missing %q", ")")
		}
		r.pos++
		return x, nil
	case c == '{':
		r.pos++
		args, err := r.args('}')
		if err != nil {
			return nil, err
		}
		return List(args...), nil
	case c == '"':
		return r.str()
	case c == '-' || isDigit(c):
		return r.number()
	case c == '.' && r.pos+1 < len(r.src) && isDigit(r.src[r.pos+1]):
		return r.number()
	case c == '_' || isIdentStart(r.src[r.pos:]):
		return r.symbolOrPattern()
	}
	return nil, r.errorf("unexpected %q", r.src[r.pos:r.pos+1])
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isIdentStart(s string) bool {
	c, _ := utf8.DecodeRuneInString(s)
	return c == '$' || unicode.IsLetter(c)
}

func isIdentPart(c rune) bool {
	return c == '$' || c == '`' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

func (r *reader) ident() string {
	start := r.pos
	for r.pos < len(r.src) {
		c, n := utf8.DecodeRuneInString(r.src[r.pos:])
		if r.pos == start && !(c == '$' || unicode.IsLetter(c)) {
			break
		}
		if !isIdentPart(c) {
			break
		}
		r.pos += n
	}
	return r.src[start:r.pos]
}

func (r *reader) symbolOrPattern() (Expr, error) {
	name := ""
	if r.peek() != '_' {
		name = r.ident()
	}
	if r.peek() != '_' {
		return Symbol(name), nil
	}

	n := 0
	for r.peek() == '_' && n < 3 {
		r.pos++
		n++
	}
	var blank Expr
	{
		var args []Expr
		if r.pos < len(r.src) && isIdentStart(r.src[r.pos:]) {
			args = []Expr{Symbol(r.ident())}
		}
		switch n {
		case 1:
			blank = New(SymBlank, args...)
		case 2:
			blank = New(SymBlankSequence, args...)
		default:
			blank = New(SymBlankNullSequence, args...)
		}
	}

	var p Expr = blank
	if name != "" {
		p = Pattern(Symbol(name), blank)
	}

	switch r.peek() {
	case '.':
		if r.pos+1 < len(r.src) && isDigit(r.src[r.pos+1]) {
			// Not ours.
			return p, nil
		}
		r.pos++
		return Optional(p), nil
	case ':':
		r.pos++
		d, err := r.expr()
		if err != nil {
			return nil, err
		}
		return Optional(p, d), nil
	}
	return p, nil
}

func (r *reader) number() (Expr, error) {
	start := r.pos
	if r.peek() == '-' {
		r.pos++
		if !isDigit(r.peek()) && r.peek() != '.' {
			return nil, r.errorf("bad number")
		}
	}
	for isDigit(r.peek()) {
		r.pos++
	}
	real := false
	if r.peek() == '.' {
		real = true
		r.pos++
		for isDigit(r.peek()) {
			r.pos++
		}
	}
	mantissa := r.src[start:r.pos]
	exp := ""
	if strings.HasPrefix(r.src[r.pos:], "*^") {
		real = true
		r.pos += 2
		estart := r.pos
		if r.peek() == '-' || r.peek() == '+' {
			r.pos++
		}
		for isDigit(r.peek()) {
			r.pos++
		}
		exp = r.src[estart:r.pos]
		if exp == "" || exp == "-" || exp == "+" {
			return nil, r.errorf("bad exponent")
		}
	}
	if !real {
		i, err := strconv.ParseInt(mantissa, 10, 64)
		if err != nil {
			return nil, r.errorf("bad integer %q", mantissa)
		}
		return Integer(i), nil
	}
	s := mantissa
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	if exp != "" {
		s += "e" + exp
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, r.errorf("bad real %q", mantissa)
	}
	return Real(f), nil
}

func (r *reader) str() (Expr, error) {
	start := r.pos
	r.pos++
	for r.pos < len(r.src) {
		switch r.src[r.pos] {
		case '\\':
			r.pos += 2
			continue
		case '"':
			r.pos++
			s, err := strconv.Unquote(r.src[start:r.pos])
			if err != nil {
				return nil, &SyntaxError{Offset: start, Msg: "bad string: " + err.Error()}
			}
			return String(s), nil
		}
		r.pos++
	}
	return nil, &SyntaxError{Offset: start, Msg: "unterminated string"}
}
