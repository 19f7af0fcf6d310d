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

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/interpreters"
	"github.com/Comcast/mkernel/storage/bolt"

	"github.com/google/go-cmp/cmp"
)

func testKernel(t *testing.T) *Kernel {
	t.Helper()
	conf, err := ReadConfig("testdata/mkernel.yaml")
	if err != nil {
		t.Fatal(err)
	}
	k, err := NewKernel(conf, interpreters.Standard(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestConfig(t *testing.T) {
	conf, err := ReadConfig("testdata/mkernel.yaml")
	if err != nil {
		t.Fatal(err)
	}
	want := &core.Control{IterationLimit: 500, RecursionLimit: 200}
	if diff := cmp.Diff(want, conf.Control); diff != "" {
		t.Fatal(diff)
	}
	b, have := conf.Builtins["twice"]
	if !have || b.Interpreter != "goja" || len(b.Attributes) != 1 {
		t.Fatal(conf.Builtins)
	}
}

func TestSession(t *testing.T) {
	k := testKernel(t)
	ctx := context.Background()
	s, err := k.NewSession(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	for src, want := range map[string]string{
		"pair[a]":            "{a, a}",
		"twice[{1, 2}]":      "{2, 4}",
		"pair[twice[3]]":     "{6, 6}",
		"$IterationLimit":    "500",
		"Length[pair[pair]]": "2",
	} {
		r, err := s.Eval(ctx, src)
		if err != nil {
			t.Fatal(err)
		}
		if got := r.Value.String(); got != want {
			t.Fatalf("%s: got %s; wanted %s", src, got, want)
		}
	}

	if _, err := s.Eval(ctx, "f["); err == nil {
		t.Fatal("should have complained")
	}
}

func TestSessionPersistence(t *testing.T) {
	ctx := context.Background()
	store, err := bolt.NewStorage(filepath.Join(t.TempDir(), "kernel.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err = store.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer store.Close(ctx)

	k, err := NewKernel(nil, interpreters.Standard(), store)
	if err != nil {
		t.Fatal(err)
	}

	s, err := k.NewSession(ctx, "me")
	if err != nil {
		t.Fatal(err)
	}
	for _, src := range []string{
		"SetAttributes[f, Orderless]",
		"SetDelayed[f[x_, y_], {x, y}]",
		"Set[g, 1]",
		"Set[h, 2]",
		"ClearAll[h]",
	} {
		if _, err := s.Eval(ctx, src); err != nil {
			t.Fatal(err)
		}
	}

	// A new Session with the same id sees the same definitions.
	s, err = k.NewSession(ctx, "me")
	if err != nil {
		t.Fatal(err)
	}
	r, err := s.Eval(ctx, "{f[b, a], g, h}")
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Value.String(); got != "{{a, b}, 1, h}" {
		t.Fatal(got)
	}

	// Another session doesn't.
	s, err = k.NewSession(ctx, "you")
	if err != nil {
		t.Fatal(err)
	}
	if r, err = s.Eval(ctx, "g"); err != nil {
		t.Fatal(err)
	}
	if got := r.Value.String(); got != "g" {
		t.Fatal(got)
	}

	var out bytes.Buffer
	if err = admin(ctx, store, true, "me", &out); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "you\n" {
		t.Fatalf("%q", got)
	}
}

func TestKernelSessions(t *testing.T) {
	k := testKernel(t)
	ctx := context.Background()
	a, err := k.Session(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := k.Session(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("expected the same session")
	}
}

func TestDo(t *testing.T) {
	k := testKernel(t)
	ctx := context.Background()
	s, err := k.NewSession(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	reply := s.Do(ctx, &Request{Id: "1", Input: "pair[1]"})
	if reply.Id != "1" || reply.Error != "" || reply.Result.Value.String() != "{1, 1}" {
		t.Fatal(reply)
	}
	if reply = s.Do(ctx, &Request{Id: "2", Input: "pair["}); reply.Error == "" {
		t.Fatal(reply)
	}
}
