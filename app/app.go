package app

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"github.com/lambda-feedback/scripthost/config"
	"github.com/lambda-feedback/scripthost/internal/shell"
	"github.com/lambda-feedback/scripthost/internal/store"
	"github.com/lambda-feedback/scripthost/internal/telemetry"
	"github.com/lambda-feedback/scripthost/runtime"
	"github.com/lambda-feedback/scripthost/util/conf"
	"github.com/lambda-feedback/scripthost/util/logging"
)

func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	config, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(config),
		// provide metrics and tracing
		telemetry.Module(config.Telemetry),
		// provide database pool and journal
		store.Module(config.Store),
		// provide runtime
		runtime.Module(config.Runtime),
	)

	return shell.New(log, sharedModule), nil
}
