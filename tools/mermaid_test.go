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
	"testing"
)

func TestMermaid(t *testing.T) {
	_, ev := peano(t)
	out := &closer{}
	if err := Mermaid(Dependencies(ev.Defs, nil), out, nil, "double", "plus"); err != nil {
		t.Fatal(err)
	}
	want := `graph TB
  n1["double (1)"]
  style n1 fill:#bcf2db
  n2["plus (2)"]
  style n2 fill:#bcf2db
  n1 ==> n2
  n2 --> n2

`
	if got := out.String(); got != want {
		t.Fatalf("got\n%s", got)
	}
}
