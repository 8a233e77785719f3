package config

import (
	"maps"

	"github.com/lambda-feedback/scripthost/internal/store"
	"github.com/lambda-feedback/scripthost/internal/telemetry"
	"github.com/lambda-feedback/scripthost/runtime"
	"github.com/lambda-feedback/scripthost/util/conf"
)

type AuthConfig struct {
	// Key is the API key clients have to send in the api-key header.
	// Authorization is disabled if empty.
	Key string `conf:"key"`
}

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// Auth is the authorization configuration of the http surface
	Auth AuthConfig `conf:"auth"`

	// Runtime is the runtime configuration
	Runtime runtime.Config `conf:"runtime"`

	// Store is the database configuration
	Store store.Config `conf:"store"`

	// Telemetry is the metrics and tracing configuration
	Telemetry telemetry.Config `conf:"telemetry"`
}

var DefaultConfig = merge(
	conf.DefaultConfig{
		"log_level":  "info",
		"log_format": "production",
	},
	conf.MergeDefaults("runtime", conf.DefaultConfig{
		"scripts_root":        runtime.DefaultConfig.Loader.Root,
		"max_workers":         runtime.DefaultConfig.Execution.MaxWorkers,
		"timeout":             runtime.DefaultConfig.Sandbox.Timeout,
		"max_rows":            runtime.DefaultConfig.Sandbox.MaxRows,
		"max_call_stack_size": runtime.DefaultConfig.Sandbox.MaxCallStackSize,
		"max_body_bytes":      runtime.DefaultConfig.MaxBodyBytes,
	}),
	conf.MergeDefaults("store", conf.DefaultConfig{
		"driver":          store.DefaultConfig.Driver,
		"url":             store.DefaultConfig.URL,
		"max_conns":       store.DefaultConfig.MaxConns,
		"min_conns":       store.DefaultConfig.MinConns,
		"acquire_timeout": store.DefaultConfig.AcquireTimeout,
		"journal":         store.DefaultConfig.Journal,
	}),
	conf.MergeDefaults("telemetry", conf.DefaultConfig{
		"metrics":             telemetry.DefaultConfig.Metrics,
		"tracing.protocol":    telemetry.DefaultConfig.Tracing.Protocol,
		"tracing.sample_rate": telemetry.DefaultConfig.Tracing.SampleRate,
	}),
)

func merge(defaults ...conf.DefaultConfig) conf.DefaultConfig {
	merged := conf.DefaultConfig{}
	for _, d := range defaults {
		maps.Copy(merged, d)
	}
	return merged
}
