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
	"errors"
	"testing"

	"github.com/Comcast/mkernel/tools"
)

func TestRun(t *testing.T) {
	for _, filename := range []string{
		"../../tools/testdata/kernel.yaml",
		"../../tools/testdata/peano-session.yaml",
	} {
		if err := run(context.Background(), []string{"-f", filename, "-t", "30s"}); err != nil {
			t.Fatalf("%s: %v", filename, err)
		}
	}
}

func TestRunFailure(t *testing.T) {
	err := run(context.Background(), []string{"-f", "testdata/wrong.yaml"})
	var f *tools.Failure
	if !errors.As(err, &f) {
		t.Fatalf("got %v", err)
	}
}

func TestRunMissing(t *testing.T) {
	if err := run(context.Background(), []string{"-f", "testdata/nope.yaml"}); err == nil {
		t.Fatal("should have complained")
	}
}
