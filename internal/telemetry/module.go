package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	// Metrics enables the prometheus collectors and the metrics endpoint.
	Metrics bool `conf:"metrics"`

	Tracing TracingConfig `conf:"tracing"`
}

var DefaultConfig = Config{
	Metrics: true,
	Tracing: TracingConfig{
		Protocol:   "http",
		SampleRate: 1,
	},
}

type Params struct {
	fx.In

	Context context.Context

	Config Config

	Log *zap.Logger
}

type Result struct {
	fx.Out

	Metrics *Metrics

	Tracer trace.Tracer
}

// New creates the metrics and the tracer. Disabled metrics are provided
// as a nil *Metrics.
func New(params Params, lc fx.Lifecycle) (Result, error) {
	log := params.Log.Named("telemetry")

	var metrics *Metrics
	if params.Config.Metrics {
		metrics = NewMetrics()
	}

	setup, err := NewTracerSetup(params.Context, params.Config.Tracing)
	if err != nil {
		return Result{}, err
	}

	if setup != nil {
		log.Info("tracing enabled",
			zap.String("endpoint", params.Config.Tracing.Endpoint),
			zap.String("protocol", params.Config.Tracing.Protocol))

		lc.Append(fx.Hook{
			OnStop: setup.Shutdown,
		})
	}

	return Result{
		Metrics: metrics,
		Tracer:  setup.Tracer(),
	}, nil
}

func Module(config Config) fx.Option {
	return fx.Module("telemetry",
		fx.Supply(config),
		fx.Provide(New),
	)
}
