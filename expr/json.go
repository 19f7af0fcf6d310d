package expr

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ToJSON converts an expression to a JSON-friendly value:
//
//	Symbol    "x"
//	Integer   3
//	Real      1.5 or {"real":1} when the value is integral
//	String    {"str":"hello"}
//	Compound  [head, arg1, arg2, ...]
func ToJSON(x Expr) interface{} {
	switch vv := x.(type) {
	case Symbol:
		return string(vv)
	case Integer:
		return int64(vv)
	case Real:
		f := float64(vv)
		if f == math.Trunc(f) {
			return map[string]interface{}{"real": f}
		}
		return f
	case String:
		return map[string]interface{}{"str": string(vv)}
	case *Compound:
		acc := make([]interface{}, 0, len(vv.args)+1)
		acc = append(acc, ToJSON(vv.head))
		for _, a := range vv.args {
			acc = append(acc, ToJSON(a))
		}
		return acc
	}
	return nil
}

// FromJSON is the inverse of ToJSON.
//
// Also accepts what json.Unmarshal (with or without UseNumber) and
// goja's Export produce for the same data.
func FromJSON(v interface{}) (Expr, error) {
	switch vv := v.(type) {
	case string:
		if vv == "" {
			return nil, errors.New("empty symbol")
		}
		return Symbol(vv), nil
	case int:
		return Integer(vv), nil
	case int64:
		return Integer(vv), nil
	case float64:
		if vv == math.Trunc(vv) && math.Abs(vv) < 1<<53 {
			return Integer(int64(vv)), nil
		}
		return Real(vv), nil
	case json.Number:
		s := string(vv)
		if !strings.ContainsAny(s, ".eE") {
			if i, err := vv.Int64(); err == nil {
				return Integer(i), nil
			}
		}
		f, err := vv.Float64()
		if err != nil {
			return nil, err
		}
		return Real(f), nil
	case map[string]interface{}:
		if s, have := vv["str"]; have {
			str, is := s.(string)
			if !is {
				return nil, fmt.Errorf("bad string %#v", s)
			}
			return String(str), nil
		}
		if r, have := vv["real"]; have {
			switch n := r.(type) {
			case float64:
				return Real(n), nil
			case int64:
				return Real(float64(n)), nil
			case int:
				return Real(float64(n)), nil
			case json.Number:
				f, err := n.Float64()
				if err != nil {
					return nil, err
				}
				return Real(f), nil
			}
			return nil, fmt.Errorf("bad real %#v", r)
		}
		return nil, errors.New("unknown JSON object for an expression")
	case []interface{}:
		if len(vv) == 0 {
			return nil, errors.New("empty array for an expression")
		}
		head, err := FromJSON(vv[0])
		if err != nil {
			return nil, err
		}
		args := make([]Expr, 0, len(vv)-1)
		for _, a := range vv[1:] {
			x, err := FromJSON(a)
			if err != nil {
				return nil, err
			}
			args = append(args, x)
		}
		return New(head, args...), nil
	}
	return nil, fmt.Errorf("can't make an expression from %T", v)
}

// MarshalJSON renders the Compound via ToJSON.
func (c *Compound) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToJSON(c))
}
