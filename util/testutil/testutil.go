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

// Package testutil has helpers for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Comcast/mkernel/expr"
)

// JS renders its argument as JSON or as a string indicating an error.
// Expressions are rendered the way expr.ToJSON renders them.
func JS(x interface{}) string {
	if e, is := x.(expr.Expr); is {
		x = expr.ToJSON(e)
	}
	bs, err := json.Marshal(&x)
	if err != nil {
		log.Printf("warning: testutil.JS error %s for %#v", err, x)
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimx, when given a string or bytes, parses that data as an
// expression.  When given an expression, just returns it.  Anything
// else panics.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimx(x interface{}) expr.Expr {
	switch vv := x.(type) {
	case []byte:
		return Dwimx(string(vv))
	case string:
		return expr.MustParse(vv)
	case expr.Expr:
		return vv
	default:
		panic(fmt.Errorf("testutil.Dwimx can't handle a %T", x))
	}
}
