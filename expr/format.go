package expr

import (
	"math"
	"strconv"
	"strings"
)

func (s Symbol) String() string {
	return string(s)
}

func (i Integer) String() string {
	return strconv.FormatInt(int64(i), 10)
}

func (r Real) String() string {
	f := float64(r)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if i := strings.IndexByte(s, 'e'); 0 <= i {
		mant, exp := s[:i], strings.TrimPrefix(s[i+1:], "+")
		if !strings.Contains(mant, ".") {
			mant += "."
		}
		return mant + "*^" + exp
	}
	if !strings.Contains(s, ".") {
		s += "."
	}
	return s
}

func (s String) String() string {
	return strconv.Quote(string(s))
}

func (c *Compound) String() string {
	var b strings.Builder
	c.write(&b)
	return b.String()
}

func write(b *strings.Builder, x Expr) {
	if c, is := x.(*Compound); is {
		c.write(b)
		return
	}
	b.WriteString(x.String())
}

func (c *Compound) write(b *strings.Builder) {
	if c == nil {
		b.WriteString("<nil>")
		return
	}
	if IsApplication(c, SymList) {
		b.WriteByte('{')
		c.writeArgs(b)
		b.WriteByte('}')
		return
	}
	if s, ok := shorthand(c); ok {
		b.WriteString(s)
		return
	}
	if h, is := c.head.(*Compound); is && (IsApplication(h, SymOptional) || IsApplication(h, SymList)) {
		// These can't be read back as heads in shorthand.
		h.writeFull(b)
	} else {
		write(b, c.head)
	}
	b.WriteByte('[')
	c.writeArgs(b)
	b.WriteByte(']')
}

func (c *Compound) writeFull(b *strings.Builder) {
	write(b, c.head)
	b.WriteByte('[')
	c.writeArgs(b)
	b.WriteByte(']')
}

func (c *Compound) writeArgs(b *strings.Builder) {
	for i, a := range c.args {
		if 0 < i {
			b.WriteString(", ")
		}
		write(b, a)
	}
}

var underscores = map[Symbol]string{
	SymBlank:             "_",
	SymBlankSequence:     "__",
	SymBlankNullSequence: "___",
}

// blankShorthand renders Blank[], BlankSequence[h], etc. as _, __h,
// etc.
func blankShorthand(x Expr) (string, bool) {
	s, is := HeadSymbol(x)
	if !is {
		return "", false
	}
	us, have := underscores[s]
	if !have {
		return "", false
	}
	c := x.(*Compound)
	switch len(c.args) {
	case 0:
		return us, true
	case 1:
		if h, is := c.args[0].(Symbol); is {
			return us + string(h), true
		}
	}
	return "", false
}

// patternShorthand renders Pattern[x, Blank[]] as x_ and so on.
func patternShorthand(x Expr) (string, bool) {
	if s, ok := blankShorthand(x); ok {
		return s, true
	}
	c, is := AsApplication(x, SymPattern)
	if !is || len(c.args) != 2 {
		return "", false
	}
	name, is := c.args[0].(Symbol)
	if !is {
		return "", false
	}
	s, ok := blankShorthand(c.args[1])
	if !ok {
		return "", false
	}
	return string(name) + s, true
}

func shorthand(c *Compound) (string, bool) {
	if s, ok := patternShorthand(c); ok {
		return s, true
	}
	if !IsApplication(c, SymOptional) {
		return "", false
	}
	switch len(c.args) {
	case 1:
		if s, ok := patternShorthand(c.args[0]); ok {
			return s + ".", true
		}
	case 2:
		if s, ok := patternShorthand(c.args[0]); ok {
			var b strings.Builder
			b.WriteString(s)
			b.WriteByte(':')
			write(&b, c.args[1])
			return b.String(), true
		}
	}
	return "", false
}
