/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package goja provides an ECMAScript interpreter for Builtins.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/expr"

	"github.com/dop251/goja"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// IgnoreExit will prevent the Goja function "exit" from
	// terminating the process. Being able to halt the process
	// from Goja is useful for some tests and utilities.  Maybe.
	IgnoreExit = false
)

// init adds a Interpreter as one of the DefaultInterpreters
func init() {
	core.DefaultInterpreters["goja"] = NewInterpreter()
}

// Interpreter implements core.Intepreter using Goja, which is a
// Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {

	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	// LibraryProvider resolves names in a source's "requires".
	// DefaultLibraryProvider is used if this provider is nil.
	LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// CompileLibrary checks that a library compiles.
//
// Goja can't combine ast.Programs, so the result isn't used when
// compiling code that requires the library.
func (i *Interpreter) CompileLibrary(ctx context.Context, name, src string) (interface{}, error) {
	return goja.Compile(name, src, true)
}

// ProvideLibrary resolves the library name into a library.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a provider that supports (barely)
// names that are URLs with protocols of "file", "http", and "https".
// File names are relative to the given directory. There currently is
// no additional control when using HTTP/HTTPS.
func MakeFileLibraryProvider(dir string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		switch parts[0] {
		case "file":
			filename := parts[1]
			if strings.Contains(filename, "..") {
				return "", fmt.Errorf("bad library file '%s'", filename)
			}
			bs, err := ioutil.ReadFile(dir + "/" + filename)
			if err != nil {
				return "", err
			}
			return string(bs), nil
		case "http", "https":
			req, err := http.NewRequest("GET", name, nil)
			if err != nil {
				return "", err
			}
			req = req.WithContext(ctx)
			client := http.Client{}
			resp, err := client.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusOK:
				bs, err := ioutil.ReadAll(resp.Body)
				if err != nil {
					return "", err
				}
				return string(bs), nil
			default:
				return "", fmt.Errorf("library fetch status %s %d",
					resp.Status, resp.StatusCode)
			}
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

func MakeMapLibraryProvider(srcs map[string]string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// parseSource looks into the given map to try to find "requires" and
// "code" properties.
//
// The YAML parser https://github.com/go-yaml/yaml will return
// map[interface{}]interface{}, which is correct but inconvenient.  So
// this repo uses a fork at https://github.com/jsccast/yaml, which
// will return map[string]interface{}.  AsSource still accepts
// map[interface{}]interface{} so that others don't need to use that
// fork.
func parseSource(vv map[string]interface{}) (code string, libs []string, err error) {
	x := vv["code"]
	if s, is := x.(string); is {
		code = s
	} else {
		err = errors.New("bad Goja code")
		return
	}

	switch vv := vv["requires"].(type) {
	case nil:
	case string:
		libs = []string{vv}
	case []string:
		libs = vv
	case []interface{}:
		libs = make([]string, 0, len(vv))
		for _, x := range vv {
			s, is := x.(string)
			if !is {
				err = errors.New("bad library")
				return
			}
			libs = append(libs, s)
		}
	default:
		err = errors.New("bad requires")
	}

	return
}

// AsSource extracts the code and required libraries from a
// BuiltinSource's Source.
func AsSource(src interface{}) (code string, libs []string, err error) {
	switch vv := src.(type) {
	case string:
		code = vv
		return
	case map[interface{}]interface{}:
		m := make(map[string]interface{})
		for k, v := range vv {
			str, ok := k.(string)
			if !ok {
				err = fmt.Errorf("bad src key (%T)", k)
				return
			}
			m[str] = v
		}
		return parseSource(m)
	case map[string]interface{}:
		return parseSource(vv)
	default:
		err = fmt.Errorf("bad Goja source (%T)", src)
		return
	}
}

// Compile prepends any required libraries (after InlineRequires)
// and calls goja.Compile.
//
// This method can block if the interpreter's library Provider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (interface{}, error) {
	code, libs, err := AsSource(src)
	if err != nil {
		return nil, err
	}

	code = wrapSrc(code)

	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		if libSrc, err = InlineRequires(ctx, libSrc, i.ProvideLibrary); err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	code = libsSrc + code

	obj, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}

	return obj, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// fromJS converts an exported value to an expression.
func fromJS(o *goja.Runtime, v goja.Value) expr.Expr {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		protest(o, "no expression")
	}
	x, err := expr.FromJSON(v.Export())
	if err != nil {
		protest(o, err.Error())
	}
	return x
}

// Exec implements the Interpreter method of the same name.
//
// The code should return the replacement for the expression in the
// form that expr.ToJSON makes.  Returning null or undefined means the
// Builtin declines to rewrite.
//
// The following properties are available from the runtime at _.
//
//	head: the expression's head (as a string).
//	args: the expression's arguments.
//	expr: the whole expression.
//	eval(x): evaluate x in the current evaluation.
//	parse(s): parse FullForm text.
//	str(x): render x as FullForm text.
//	match(pat, x): bindings (an object) if x matches or else null.
//	message(tag, text): emit a message for the expression's head.
//	attributes(sym): the names of the symbol's attributes.
//	unique(prefix): a new symbol like prefix$3 with no definitions.
//	log(x): log x as JSON.
//
// For testing only:
//
//	sleep(ms): sleep for the given number of milliseconds.
//	exit(msg): Terminate the process after printing the given message.
//
// The Testing flag must be set to see sleep() and exit().
func (i *Interpreter) Exec(ctx context.Context, e *core.Evaluation, x *expr.Compound, src interface{}, compiled interface{}) (expr.Expr, bool, error) {
	var p *goja.Program
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, src); err != nil {
			return nil, false, err
		}
	}
	var is bool
	if p, is = compiled.(*goja.Program); !is {
		return nil, false, fmt.Errorf("Goja bad compilation: %T %#v", compiled, compiled)
	}

	args := make([]interface{}, x.Len())
	for j, a := range x.Args() {
		args[j] = expr.ToJSON(a)
	}

	env := map[string]interface{}{
		"head": x.Head().String(),
		"args": args,
		"expr": expr.ToJSON(x),
	}

	o := goja.New()

	o.Set("_", env)

	// failed holds an error from the evaluator, which should stop
	// everything rather than become a Javascript exception that
	// the code could catch.
	var failed error

	env["eval"] = func(v goja.Value) interface{} {
		if failed != nil {
			protest(o, failed.Error())
		}
		y, err := e.Eval(ctx, fromJS(o, v))
		if err != nil {
			failed = err
			protest(o, err.Error())
		}
		return expr.ToJSON(y)
	}

	env["parse"] = func(s string) interface{} {
		y, err := expr.Parse(s)
		if err != nil {
			protest(o, err.Error())
		}
		return expr.ToJSON(y)
	}

	env["str"] = func(v goja.Value) interface{} {
		return fromJS(o, v).String()
	}

	env["match"] = func(pat, subject goja.Value) interface{} {
		bs, matched, err := e.Matcher().First(ctx, fromJS(o, pat), fromJS(o, subject), nil)
		if err != nil {
			if ctx.Err() != nil {
				failed = err
			}
			protest(o, err.Error())
		}
		if !matched {
			return nil
		}
		m := make(map[string]interface{}, len(bs))
		for name, v := range bs {
			m[string(name)] = expr.ToJSON(v)
		}
		return m
	}

	env["message"] = func(tag, text string) interface{} {
		s, _ := core.Tag(x)
		e.Message(s, tag, text)
		return nil
	}

	env["attributes"] = func(name string) interface{} {
		syms := e.Defs().Attributes(expr.Symbol(name)).Symbols()
		acc := make([]interface{}, len(syms))
		for j, s := range syms {
			acc[j] = string(s)
		}
		return acc
	}

	env["unique"] = func(prefix string) interface{} {
		return string(e.Evaluator().Unique(prefix))
	}

	env["log"] = func(v goja.Value) interface{} {
		y := v.Export()
		js, err := json.Marshal(&y)
		if err != nil {
			log.Println("goja.log (can't marshal: " + err.Error() + ")")
		} else {
			log.Println(string(js))
		}
		return y
	}

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})

		env["exit"] = func(n int64, msg string) interface{} {
			log.Println(msg)
			if !IgnoreExit {
				os.Exit(int(n))
			}
			return msg
		}
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If this Exec method calls cancel() after RunProgram
		// returns, then we'll never see this
		// InterruptedMessage, which is actually the behavior
		// we want.  In this case, we weren't actually interrupted.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if failed != nil {
		return nil, false, failed
	}
	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, false, Interrupted
		}
		return nil, false, err
	}

	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false, nil
	}

	y, err := expr.FromJSON(v.Export())
	if err != nil {
		return nil, false, fmt.Errorf("%#v (%T) isn't an expression: %w", v.Export(), v.Export(), err)
	}

	return y, true, nil
}
