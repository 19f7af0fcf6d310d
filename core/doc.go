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

// Package core provides the evaluator: the loop that rewrites an
// expression with the rules in a defs.Registry until nothing more
// applies or a limit trips.
//
// The primary type is Evaluator, and the primary method is
// Evaluate().  Each call to Evaluate() gets its own Evaluation, which
// carries the iteration count, the recursion depth, and the messages
// emitted along the way.  Limits come from a Control.  When a limit
// trips, the call emits one message and its value is $Aborted.  The
// next call starts fresh.
//
// One rewrite is a Step().  A Step evaluates the head and then the
// arguments (honoring the Hold attributes), splices Sequences,
// threads Listable heads, normalizes (Flat and Orderless), and then
// tries UpValues, DownValues, and finally the head's Builtin.
// Evaluation repeats Steps until the expression stops changing.
//
// Builtins are Go functions, or they can be compiled from a
// BuiltinSource by an Interpreter (see package interpreters).  The
// kernel's own symbols (Set, SetDelayed, SetAttributes, MatchQ,
// ReplaceAll, ...) are Builtins installed by NewEvaluator.
package core
