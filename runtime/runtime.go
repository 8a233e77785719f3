package runtime

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/execution"
	"github.com/lambda-feedback/scripthost/internal/loader"
	"github.com/lambda-feedback/scripthost/internal/sandbox"
	"github.com/lambda-feedback/scripthost/internal/store"
	"github.com/lambda-feedback/scripthost/internal/telemetry"
	"github.com/lambda-feedback/scripthost/models"
)

// Runtime is the interface for a script runtime.
type Runtime interface {
	// Execute runs a script and returns its response.
	Execute(context.Context, execution.Task) (models.Response, error)

	// Exists reports whether a script exists below the scripts root.
	Exists(script string) bool

	// Shutdown waits for running invocations and stops all workers.
	Shutdown(context.Context) error
}

// ScriptRuntime is a runtime that runs every script in a fresh sandbox
// on a bounded worker pool.
type ScriptRuntime struct {
	executor *execution.ScriptExecutor

	log *zap.Logger
}

var _ Runtime = (*ScriptRuntime)(nil)

// RuntimeParams defines the dependencies for the runtime.
type RuntimeParams struct {
	fx.In

	// Context is the context workers are created with
	Context context.Context

	// Config is the config for the underlying executor and sandboxes
	Config Config

	// Pool serves the database capabilities of the scripts
	Pool store.Pool `optional:"true"`

	// Journal records completed invocations
	Journal store.Journal `optional:"true"`

	Metrics *telemetry.Metrics `optional:"true"`

	Tracer trace.Tracer `optional:"true"`

	// Log is the logger to use for the runtime
	Log *zap.Logger
}

// NewRuntime creates a new runtime.
func NewRuntime(params RuntimeParams) (*ScriptRuntime, error) {
	log := params.Log.Named("runtime")

	scripts, err := loader.New(loader.Params{
		Config: params.Config.Loader,
		Log:    params.Log,
	})
	if err != nil {
		return nil, err
	}

	manager, err := sandbox.NewManager(sandbox.Params{
		Config: params.Config.Sandbox,
		Loader: scripts,
		Tracer: params.Tracer,
		Log:    params.Log,
	})
	if err != nil {
		return nil, err
	}

	executor, err := execution.NewExecutor(execution.Params{
		Context: params.Context,
		Config:  params.Config.Execution,
		Loader:  scripts,
		Runner:  manager,
		Pool:    params.Pool,
		Journal: params.Journal,
		Metrics: params.Metrics,
		Tracer:  params.Tracer,
		Log:     params.Log,
	})
	if err != nil {
		return nil, err
	}

	log.Debug("runtime created", zap.String("scripts_root", scripts.Root()))

	return &ScriptRuntime{
		executor: executor,
		log:      log,
	}, nil
}

func NewLifecycleRuntime(params RuntimeParams, lc fx.Lifecycle) (Runtime, error) {
	r, err := NewRuntime(params)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.Shutdown(ctx)
		},
	})

	return r, nil
}

func (r *ScriptRuntime) Execute(ctx context.Context, task execution.Task) (models.Response, error) {
	return r.executor.Execute(ctx, task)
}

func (r *ScriptRuntime) Exists(script string) bool {
	return r.executor.Exists(script)
}

func (r *ScriptRuntime) Shutdown(ctx context.Context) error {
	r.log.Debug("shutting down runtime")
	return r.executor.Shutdown(ctx)
}
