package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/config"
	"github.com/lambda-feedback/scripthost/internal/shell"
	"github.com/lambda-feedback/scripthost/util/conf"
	"github.com/lambda-feedback/scripthost/util/logging"
)

var (
	appName  = "scripthost"
	appUsage = `A request-scoped host for JavaScript and TypeScript scripts,
exposed over HTTP, JSON-RPC and AWS Lambda.`
	rootApp = &cli.App{
		Name:            appName,
		Usage:           appUsage,
		HideHelpCommand: true,
		Args:            true,
		Flags: []cli.Flag{
			// general flags
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level. Options: debug, info, warn, error, panic, fatal.",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "set the log format. Options: production, development.",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.PathFlag{
				Name:    "config",
				Usage:   "load configuration from a JSON or YAML file.",
				EnvVars: []string{"CONFIG_FILE"},
			},
			// runtime flags
			&cli.PathFlag{
				Name:     "scripts-root",
				Usage:    "the directory scripts are served from.",
				Aliases:  []string{"r"},
				Category: "runtime",
				EnvVars:  []string{"SCRIPTS_ROOT"},
			},
			&cli.IntFlag{
				Name:     "max-workers",
				Usage:    "the maximum number of concurrent script invocations. Defaults to the number of CPUs.",
				Aliases:  []string{"n"},
				Category: "runtime",
				EnvVars:  []string{"MAX_WORKERS"},
			},
			&cli.DurationFlag{
				Name:     "timeout",
				Usage:    "the maximum duration of a single script invocation.",
				Aliases:  []string{"t"},
				Category: "runtime",
				EnvVars:  []string{"SCRIPT_TIMEOUT"},
			},
			// store flags
			&cli.StringFlag{
				Name:     "store-driver",
				Usage:    "the database driver. Options: pgx, postgres, sqlite.",
				Category: "store",
				EnvVars:  []string{"STORE_DRIVER"},
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "the database connection string.",
				Category: "store",
				EnvVars:  []string{"DATABASE_URL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// create the logger
			log, err := createLogger(ctx)
			if err != nil {
				return err
			}

			// inject logger into cli context
			ctx.Context = logging.ContextWithLogger(ctx.Context, log)

			// parse config using defaults, file, env and flags
			cfg, err := conf.Parse[config.Config](conf.ParseOptions{
				Cli:      ctx,
				CliMap:   rootFlagKeys,
				Defaults: config.DefaultConfig,
				FileName: ctx.Path("config"),
				Log:      log,
			})
			if err != nil {
				return err
			}

			// inject the config into the cli context
			ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

			return nil
		},
		After: func(ctx *cli.Context) error {
			log, err := logging.LoggerFromContext(ctx.Context)
			if err != nil {
				return err
			}

			_ = log.Sync()

			return nil
		},
	}

	// rootFlagKeys maps root flags onto their config keys.
	rootFlagKeys = map[string]string{
		"scripts-root": "runtime.scripts_root",
		"max-workers":  "runtime.max_workers",
		"timeout":      "runtime.timeout",
		"store-driver": "store.driver",
		"database-url": "store.url",
	}
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}
}

type ExecuteParams struct {
	Version  string
	Compiled time.Time
}

// Execute runs the root command and returns the process exit code.
func Execute(params ExecuteParams) int {
	rootApp.Version = params.Version
	rootApp.Compiled = params.Compiled

	loadDotEnv()

	return run(context.Background(), os.Args)
}

func run(ctx context.Context, args []string) int {
	err := rootApp.RunContext(ctx, args)

	// if app exited without error, return
	if err == nil {
		return 0
	}

	// if app exited with ExitError, exit with given exit code
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}

	fmt.Fprintf(os.Stderr, "exit error: %s\n", err.Error())

	// otherwise, exit with exit code 1
	return 1
}

// loadDotEnv loads a .env file from the working directory into the
// process environment. Variables that are already set take precedence.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %s\n", err.Error())
	}
}

func createLogger(ctx *cli.Context) (*zap.Logger, error) {
	level := getLogLevelFromCLI(ctx)
	format := getLogFormatFromCLI(ctx)

	var config zap.Config
	if format == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.InitialFields = map[string]any{
		"app": appName,
	}

	config.Level = level

	return config.Build()
}

func getLogFormatFromCLI(ctx *cli.Context) string {
	format := ctx.String("log-format")
	if format != "" {
		return format
	}

	return "production"
}

func getLogLevelFromCLI(ctx *cli.Context) zap.AtomicLevel {
	lvl := ctx.String("log-level")

	if atom, err := zap.ParseAtomicLevel(lvl); err == nil {
		return atom
	}

	return zap.NewAtomicLevelAt(zap.InfoLevel)
}
