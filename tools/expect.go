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

package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/expr"
	"github.com/Comcast/mkernel/match"

	"github.com/jsccast/yaml"
)

// Output describes a result that's expected.
//
// A result satisfies an Output when every given field agrees.
type Output struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Value is FullForm that must be SameQ to the result's value.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// Pattern is a FullForm pattern that the result's value must
	// match.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Messages are message texts that must all have been emitted
	// by the evaluation.
	Messages []string `json:"messages,omitempty" yaml:"messages,omitempty"`

	// Stopped is the name of the required StopReason (like
	// "Limited").
	Stopped string `json:"stopped,omitempty" yaml:"stopped,omitempty"`

	// Bindings, which is the result of a Pattern match, is written
	// during processing.  Just for diagnostics.
	Bindings match.Bindings `json:"bs,omitempty" yaml:"-"`

	// Inverted means that a satisfying result isn't desired!
	Inverted bool `json:"inverted,omitempty" yaml:"inverted,omitempty"`
}

// IO is a group of inputs and the outputs they should produce.
type IO struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// WaitBefore is the time to wait before sending the first input.
	WaitBefore time.Duration `json:"waitBefore,omitempty" yaml:"waitBefore,omitempty"`

	// WaitBetween is the time to wait between sending inputs.
	WaitBetween time.Duration `json:"waitBetween,omitempty" yaml:"waitBetween,omitempty"`

	// Inputs are FullForm expressions to evaluate.
	Inputs []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// WaitAfter is the time to wait after sending the last input.
	WaitAfter time.Duration `json:"waitAfter,omitempty" yaml:"waitAfter,omitempty"`

	// OutputSet is the set (not a list) of outputs to verify
	// against the results of the Inputs.
	OutputSet []Output `json:"outputSet,omitempty" yaml:"outputSet,omitempty"`

	// Timeout is the optional timeout for this set.
	// Session.DefaultTimeout is the default value.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Session is mostly a sequence of IOs.
type Session struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Package is loaded before the IOs when the Session is run
	// in-process.
	Package *Package `json:"package,omitempty" yaml:"package,omitempty"`

	// IOs is sequence of IOs that this session will run.
	IOs []IO `json:"ios" yaml:"ios"`

	// Interpreters are used (if necessary) to compile the
	// Package's Builtins.
	Interpreters core.InterpretersMap `json:"-" yaml:"-"`

	// DefaultTimeout is the default timeout for each IO.
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty" yaml:"defaultTimeout,omitempty"`

	// ShowStderr controls whether the subprocess's stderr is
	// logged.
	ShowStderr bool `json:"showStderr,omitempty" yaml:"showStderr,omitempty"`

	// ShowStdin controls whether the subprocess's stdin is
	// logged.
	ShowStdin bool `json:"showStdin,omitempty" yaml:"showStdin,omitempty"`

	// ShowStdout controls whether the subprocess's stdout is
	// logged.
	ShowStdout bool `json:"showStdout,omitempty" yaml:"showStdout,omitempty"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// ReadSession reads a Session from a YAML file, expanding any
// %inline("NAME") directives relative to the file's directory.
func ReadSession(filename string) (*Session, error) {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	var s Session
	if err = yaml.Unmarshal(bs, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Result is what a Session checks: one evaluation's outcome.
type Result struct {
	Input    string
	Value    expr.Expr
	Messages []string
	Stopped  string
}

func resultOf(input string, r *core.Evaluated) *Result {
	return &Result{
		Input:    input,
		Value:    r.Value,
		Messages: r.Texts(),
		Stopped:  r.StoppedBecause.String(),
	}
}

// reply is the JSON that a kernel process writes for each input.
type reply struct {
	Value          interface{}     `json:"value"`
	StoppedBecause string          `json:"stoppedBecause"`
	Messages       []*core.Message `json:"messages"`
	Error          string          `json:"error"`
}

func (r *reply) result(input string) (*Result, error) {
	if r.Error != "" {
		return nil, fmt.Errorf("%s: %s", input, r.Error)
	}
	v, err := expr.FromJSON(r.Value)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		texts[i] = m.Text
	}
	return &Result{
		Input:    input,
		Value:    v,
		Messages: texts,
		Stopped:  r.StoppedBecause,
	}, nil
}

// Failure describes an Output that wasn't satisfied (or an inverted
// one that was).
type Failure struct {
	IO     int
	Output int
	Doc    string
	Reason string
}

func (f *Failure) Error() string {
	s := fmt.Sprintf("io %d output %d: %s", f.IO, f.Output, f.Reason)
	if f.Doc != "" {
		s += " (" + f.Doc + ")"
	}
	return s
}

var (
	errTimeout  = errors.New("timeout")
	errCanceled = errors.New("canceled")
)

// Eval runs the Session in-process using the given Evaluator.
//
// The first unsatisfied Output is returned as a *Failure.
func (s *Session) Eval(ctx context.Context, ev *core.Evaluator) error {
	if s.Package != nil {
		if _, err := s.Package.Load(ctx, ev, s.Interpreters); err != nil {
			return err
		}
	}

	for i, iop := range s.IOs {
		if iop.Timeout == 0 {
			iop.Timeout = s.DefaultTimeout
		}
		ioctx, cancel := ctx, context.CancelFunc(func() {})
		if 0 < iop.Timeout {
			ioctx, cancel = context.WithTimeout(ctx, iop.Timeout)
		}

		s.pause("waitBefore", iop.WaitBefore)
		results := make([]*Result, 0, len(iop.Inputs))
		for j, input := range iop.Inputs {
			if 0 < j {
				s.pause("waitBetween", iop.WaitBetween)
			}
			if s.ShowStdin {
				log.Printf("in %s", input)
			}
			r, err := ev.EvaluateString(ioctx, input)
			if err != nil {
				cancel()
				return err
			}
			if s.ShowStdout {
				log.Printf("out %s", r.Value)
			}
			results = append(results, resultOf(input, r))
		}
		s.pause("waitAfter", iop.WaitAfter)

		err := s.check(ioctx, ev, i, &s.IOs[i], results)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// check verifies the IO's OutputSet against the results.
func (s *Session) check(ctx context.Context, ev *core.Evaluator, n int, iop *IO, results []*Result) error {
	m := ev.NewEvaluation().Matcher()

	for k := range iop.OutputSet {
		output := &iop.OutputSet[k]

		var pattern expr.Expr
		if output.Pattern != "" {
			p, err := expr.Parse(output.Pattern)
			if err != nil {
				return err
			}
			pattern = p
		}
		var value expr.Expr
		if output.Value != "" {
			v, err := expr.Parse(output.Value)
			if err != nil {
				return err
			}
			value = v
		}

		satisfied := false
		var last string
		for _, r := range results {
			ok, why, err := output.satisfiedBy(ctx, m, value, pattern, r)
			if err != nil {
				return err
			}
			if ok {
				satisfied = true
				break
			}
			last = why
		}

		switch {
		case satisfied && output.Inverted:
			return &Failure{IO: n, Output: k, Doc: output.Doc, Reason: "unwanted output appeared"}
		case !satisfied && !output.Inverted:
			if last == "" {
				last = "no results"
			}
			return &Failure{IO: n, Output: k, Doc: output.Doc, Reason: last}
		}
		if s.Verbose {
			log.Printf("io %d output %d ok", n, k)
		}
	}
	return nil
}

func (o *Output) satisfiedBy(ctx context.Context, m *match.Matcher, value, pattern expr.Expr, r *Result) (bool, string, error) {
	if value != nil && !expr.Equal(value, r.Value) {
		return false, fmt.Sprintf("%s gave %s, not %s", r.Input, r.Value, value), nil
	}
	if pattern != nil {
		bs, matched, err := m.First(ctx, pattern, r.Value, nil)
		if err != nil {
			return false, "", err
		}
		if !matched {
			return false, fmt.Sprintf("%s gave %s, which doesn't match %s", r.Input, r.Value, pattern), nil
		}
		o.Bindings = bs
	}
	if o.Stopped != "" && o.Stopped != r.Stopped {
		return false, fmt.Sprintf("%s stopped %s, not %s", r.Input, r.Stopped, o.Stopped), nil
	}
	for _, want := range o.Messages {
		found := false
		for _, text := range r.Messages {
			if text == want {
				found = true
				break
			}
		}
		if !found {
			return false, fmt.Sprintf("%s didn't emit %q (emitted %q)", r.Input, want, r.Messages), nil
		}
	}
	return true, "", nil
}

// Run processes all the IOs in the Session against a subprocess.
//
// The subprocess (given by args) should read one FullForm input per
// line on stdin and write one line of JSON (a core.Evaluated) for each
// input on stdout.  "mkernel -json" does that.
//
// The Session's Package is sent as inputs first (see
// Package.Inputs), so its Builtins aren't available.
func (s *Session) Run(ctx context.Context, dir string, args ...string) error {
	if len(args) == 0 {
		return errors.New("no command")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	defer stdin.Close()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	out := bufio.NewReader(stdout)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	// Log subprocess's stderr.
	go func() {
		in := bufio.NewReader(stderr)
		for {
			line, err := in.ReadBytes('\n')
			if err != nil {
				return
			}
			if s.ShowStderr {
				log.Printf("stderr %s", line)
			}
		}
	}()

	ev := core.NewEvaluator(nil, nil)

	if s.Package != nil {
		for _, input := range s.Package.Inputs() {
			if _, err := fmt.Fprintln(stdin, input); err != nil {
				return err
			}
			r, err := s.readReply(out, input)
			if err != nil {
				return err
			}
			if r.Stopped != core.Done.String() {
				return fmt.Errorf("%s stopped: %s", input, r.Stopped)
			}
		}
	}

	for n := range s.IOs {
		iop := &s.IOs[n]
		timeout := iop.Timeout
		if timeout == 0 {
			timeout = s.DefaultTimeout
		}

		var (
			done = make(chan error, 1)
			rs   []*Result
		)

		go func() {
			s.pause("waitBefore", iop.WaitBefore)
			for i, input := range iop.Inputs {
				if 0 < i {
					s.pause("waitBetween", iop.WaitBetween)
				}
				line := strings.ReplaceAll(input, "\n", " ")
				if s.ShowStdin {
					log.Printf("in %s", line)
				}
				if _, err := fmt.Fprintln(stdin, line); err != nil {
					done <- err
					return
				}
				r, err := s.readReply(out, input)
				if err != nil {
					done <- err
					return
				}
				rs = append(rs, r)
			}
			s.pause("waitAfter", iop.WaitAfter)
			done <- nil
		}()

		var timer <-chan time.Time
		if 0 < timeout {
			timer = time.After(timeout)
		}

		select {
		case <-ctx.Done():
			return errCanceled
		case <-timer:
			return errTimeout
		case err := <-done:
			if err != nil {
				return err
			}
		}

		if err := s.check(ctx, ev, n, iop, rs); err != nil {
			return err
		}
	}

	if err := stdin.Close(); err != nil {
		log.Printf("stdin.Close() error %s", err)
	}

	return cmd.Wait()
}

func (s *Session) readReply(out *bufio.Reader, input string) (*Result, error) {
	for {
		line, err := out.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		if s.ShowStdout {
			log.Printf("out %s", line)
		}
		var r reply
		if err = json.Unmarshal(line, &r); err != nil {
			log.Printf("ignoring %s", line)
			continue
		}
		return r.result(input)
	}
}

func (s *Session) pause(why string, d time.Duration) {
	if 0 < d {
		if s.Verbose {
			log.Printf("pause %s %s", why, d)
		}
		time.Sleep(d)
	}
}
