package runtime

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/jsonrpc"
	"github.com/lambda-feedback/scripthost/internal/telemetry"
)

type DispatcherParams struct {
	fx.In

	Runtime Runtime

	Metrics *telemetry.Metrics `optional:"true"`

	Tracer trace.Tracer `optional:"true"`

	Log *zap.Logger
}

// NewDispatcher creates a JSON-RPC dispatcher that runs calls on the
// runtime.
func NewDispatcher(params DispatcherParams) *jsonrpc.Dispatcher {
	return jsonrpc.NewDispatcher(jsonrpc.Params{
		Executor: params.Runtime,
		Metrics:  params.Metrics,
		Tracer:   params.Tracer,
		Log:      params.Log,
	})
}
