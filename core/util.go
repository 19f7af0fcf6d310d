/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package core

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/Comcast/mkernel/expr"
)

// Unique makes a symbol like prefix$17 that has no definitions and no
// attributes in the Evaluator's Registry.
//
// The number comes from a counter shared by all of the Evaluator's
// evaluations, so two calls never return the same symbol.
func (ev *Evaluator) Unique(prefix string) expr.Symbol {
	for {
		n := atomic.AddUint64(&ev.serial, 1)
		s := expr.Symbol(prefix + "$" + strconv.FormatUint(n, 10))
		if d := ev.Defs.Definition(s); d == nil || d.Empty() {
			return s
		}
	}
}

// unique implements Unique[] and Unique[x].
func unique(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arityBetween(e, x, 0, 1) {
		return nil, false, nil
	}
	if x.Len() == 0 {
		return e.ev.Unique(""), true, nil
	}
	s, is := x.Arg(0).(expr.Symbol)
	if !is {
		e.Message(SymUnique, "usym", x.Arg(0).String()+" is not a symbol.")
		return nil, false, nil
	}
	return e.ev.Unique(string(s)), true, nil
}
