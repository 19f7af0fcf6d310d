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
	"context"
	"os"
	"sort"
	"sync"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/expr"
	"github.com/Comcast/mkernel/storage"
	"github.com/Comcast/mkernel/tools"
	"github.com/Comcast/mkernel/util"

	"github.com/jsccast/yaml"
)

// Config is the optional YAML configuration file.
type Config struct {
	// Control gives the limits for new sessions.
	Control *core.Control `json:"control,omitempty" yaml:"control,omitempty"`

	// Debug turns on evaluator and storage logging.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`

	// Storage is the name of a BoltDB file.  Empty means no
	// persistence.
	Storage string `json:"storage,omitempty" yaml:"storage,omitempty"`

	// Session is the session id for stdio.
	Session string `json:"session,omitempty" yaml:"session,omitempty"`

	// Libraries is the directory for ECMAScript libraries named in
	// Builtins' "requires".
	Libraries string `json:"libraries,omitempty" yaml:"libraries,omitempty"`

	// Packages are package files loaded into every session.
	Packages []string `json:"packages,omitempty" yaml:"packages,omitempty"`

	// Builtins are installed into every session.
	Builtins map[string]*core.BuiltinSource `json:"builtins,omitempty" yaml:"builtins,omitempty"`
}

// ReadConfig reads a YAML Config.
func ReadConfig(filename string) (*Config, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var c Config
	if err = yaml.Unmarshal(bs, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Kernel makes Sessions.  Each Session has its own Registry.
type Kernel struct {
	Conf         *Config
	Interpreters core.InterpretersMap
	Store        storage.Storage

	packages []*tools.Package

	sync.Mutex
	sessions map[string]*Session
}

// NewKernel reads the configured packages.  The Store should already
// be open.
func NewKernel(conf *Config, interpreters core.InterpretersMap, store storage.Storage) (*Kernel, error) {
	if conf == nil {
		conf = &Config{}
	}
	if store == nil {
		store = &storage.NoopStorage{}
	}
	k := &Kernel{
		Conf:         conf,
		Interpreters: interpreters,
		Store:        store,
		sessions:     make(map[string]*Session),
	}
	for _, filename := range conf.Packages {
		p, err := tools.ReadPackage(filename)
		if err != nil {
			return nil, err
		}
		k.packages = append(k.packages, p)
	}
	return k, nil
}

// Session is an Evaluator whose definitions are persisted after
// every evaluation.
//
// A Session isn't safe for concurrent use.  Callers that share one
// hold its lock.
type Session struct {
	sync.Mutex

	Id string
	Ev *core.Evaluator

	k    *Kernel
	last []*storage.SymbolState
}

// NewSession makes a Session, loading its persisted definitions (if
// any).  An empty sid means no persistence.
func (k *Kernel) NewSession(ctx context.Context, sid string) (*Session, error) {
	ev := core.NewEvaluator(nil, k.Conf.Control)
	ev.Debug = k.Conf.Debug

	names := make([]string, 0, len(k.Conf.Builtins))
	for name := range k.Conf.Builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ev.Install(ctx, expr.Symbol(name), k.Conf.Builtins[name], k.Interpreters); err != nil {
			return nil, err
		}
	}

	for _, p := range k.packages {
		ms, err := p.Load(ctx, ev, k.Interpreters)
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			util.Logf("package %s: %s", p.Name, m)
		}
	}

	s := &Session{
		Id: sid,
		Ev: ev,
		k:  k,
	}

	if sid != "" {
		if err := k.Store.MakeSession(ctx, sid); err != nil {
			return nil, err
		}
		sss, err := k.Store.GetSession(ctx, sid)
		if err != nil {
			return nil, err
		}
		if err = storage.Load(ev.Defs, sss); err != nil {
			return nil, err
		}
		util.Logf("session %s: loaded %d symbols", sid, len(sss))
	}
	s.last = storage.Snapshot(ev.Defs, core.IsKernelSymbol)

	return s, nil
}

// Session finds or makes the named Session.
func (k *Kernel) Session(ctx context.Context, sid string) (*Session, error) {
	k.Lock()
	defer k.Unlock()
	if s, have := k.sessions[sid]; have {
		return s, nil
	}
	s, err := k.NewSession(ctx, sid)
	if err != nil {
		return nil, err
	}
	k.sessions[sid] = s
	return s, nil
}

// Eval parses and evaluates the input and then persists any changed
// definitions.
func (s *Session) Eval(ctx context.Context, src string) (*core.Evaluated, error) {
	r, err := s.Ev.EvaluateString(ctx, src)
	if err != nil {
		return nil, err
	}
	if s.Id == "" {
		return r, nil
	}
	now := storage.Snapshot(s.Ev.Defs, core.IsKernelSymbol)
	if changes := storage.Changes(s.last, now); 0 < len(changes) {
		if err := s.k.Store.WriteState(ctx, s.Id, changes); err != nil {
			return r, err
		}
		util.Logf("session %s: wrote %d symbols", s.Id, len(changes))
	}
	s.last = now
	return r, nil
}

// Request is what the websocket and MQTT front doors read.
type Request struct {
	Id      string `json:"id,omitempty"`
	Session string `json:"session,omitempty"`

	// Input is FullForm.
	Input string `json:"input"`

	// ReplyTo is an optional MQTT topic for the Reply.
	ReplyTo string `json:"replyTo,omitempty"`
}

// Reply is the response to a Request.
type Reply struct {
	Id     string          `json:"id,omitempty"`
	Result *core.Evaluated `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Do evaluates the Request in the Session.
func (s *Session) Do(ctx context.Context, req *Request) *Reply {
	r, err := s.Eval(ctx, req.Input)
	reply := &Reply{
		Id:     req.Id,
		Result: r,
	}
	if err != nil {
		reply.Error = err.Error()
	}
	return reply
}
