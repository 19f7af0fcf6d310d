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

package core

import (
	"context"
	"fmt"
)

// Example demonstrates a short session.
func Example() {
	ev := NewEvaluator(nil, nil)
	ctx := context.Background()

	for _, src := range []string{
		"SetAttributes[u, Flat]",
		"SetDelayed[u[x_], {x}]",
		"u[a]",
		"u[]",
		"SetAttributes[F]",
	} {
		r, err := ev.EvaluateString(ctx, src)
		if err != nil {
			panic(err)
		}
		for _, m := range r.Messages {
			fmt.Println(m)
		}
		fmt.Println(r.Value)
	}

	// Output:
	// Null
	// Null
	// {a}
	// u[]
	// SetAttributes::argrx: SetAttributes called with 1 arguments; 2 arguments are expected.
	// SetAttributes[F]
}
