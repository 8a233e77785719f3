package runtime

import (
	"github.com/lambda-feedback/scripthost/internal/execution"
	"github.com/lambda-feedback/scripthost/internal/loader"
	"github.com/lambda-feedback/scripthost/internal/sandbox"
)

type Config struct {
	// Loader configures where scripts are located and how they are
	// transpiled.
	Loader loader.Config `conf:",squash"`

	// Sandbox configures the limits of a single sandbox run.
	Sandbox sandbox.Config `conf:",squash"`

	// Execution configures the worker pool.
	Execution execution.Config `conf:",squash"`

	// MaxBodyBytes limits the size of request bodies.
	MaxBodyBytes int64 `conf:"max_body_bytes"`
}

var DefaultConfig = Config{
	Loader: loader.Config{
		Root: "./scripts",
	},
	Sandbox:      sandbox.DefaultConfig,
	MaxBodyBytes: 1 << 20,
}
