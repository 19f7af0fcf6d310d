package goja

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// required is one top-level require("NAME") statement.  from and to
// are byte offsets into the source.
type required struct {
	from, to int
	name     string
}

// requireStatement returns the library name if the statement is a
// top-level require("NAME").
func requireStatement(s ast.Statement) (string, bool, error) {
	exps, is := s.(*ast.ExpressionStatement)
	if !is {
		return "", false, nil
	}
	call, is := exps.Expression.(*ast.CallExpression)
	if !is {
		return "", false, nil
	}
	if id, is := call.Callee.(*ast.Identifier); !is || id.Name != "require" {
		return "", false, nil
	}
	if len(call.ArgumentList) != 1 {
		return "", false, fmt.Errorf("bad require args: %#v", call.ArgumentList)
	}
	lit, is := call.ArgumentList[0].(*ast.StringLiteral)
	if !is {
		return "", false, fmt.Errorf("bad require arg: %#v", call.ArgumentList[0])
	}
	return lit.Value.String(), true, nil
}

// InlineRequires replaces each top-level require("NAME") statement
// with the code the provider gives for NAME.  A library required more
// than once is inlined only at its first require.
//
// Compile uses this function on libraries so that a library can
// require other libraries.  The code of a Builtin itself is wrapped
// in a function, so it uses an explicit "requires" instead.
//
// Goja can't modify ASTs or Programs, so the source text is spliced
// using the statements' offsets.
func InlineRequires(ctx context.Context, src string, provider func(context.Context, string) (string, error)) (string, error) {
	p, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return "", err
	}

	var rs []required
	for _, s := range p.Body {
		name, is, err := requireStatement(s)
		if err != nil {
			return "", err
		}
		if is {
			// Idx is 1-based.
			rs = append(rs, required{
				from: int(s.Idx0()) - 1,
				to:   int(s.Idx1()) - 1,
				name: name,
			})
		}
	}
	if len(rs) == 0 {
		return src, nil
	}

	var (
		b    strings.Builder
		at   int
		seen = make(map[string]bool, len(rs))
	)
	for _, r := range rs {
		b.WriteString(src[at:r.from])
		at = r.to
		if seen[r.name] {
			continue
		}
		seen[r.name] = true
		lib, err := provider(ctx, r.name)
		if err != nil {
			return "", err
		}
		b.WriteString(lib)
	}
	b.WriteString(src[at:])
	return b.String(), nil
}
