package sandbox

import (
	_ "embed"

	"github.com/dop251/goja"
)

//go:embed prelude.js
var preludeSource string

// prelude installs the guest globals. It evaluates to a function taking
// the host object holding the native capabilities.
var prelude = goja.MustCompile("prelude.js", preludeSource, true)
