// Package interpreters assembles the standard Interpreters for
// Builtins.
package interpreters

import (
	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/interpreters/goja"
	"github.com/Comcast/mkernel/interpreters/noop"
)

func Standard() core.InterpretersMap {
	is := core.NewInterpretersMap()

	g := goja.NewInterpreter()
	is["goja"] = g
	is["ecmascript"] = g
	is["ecmascript-5.1"] = g

	is["noop"] = noop.NewInterpreter()

	return is
}
