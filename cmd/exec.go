package cmd

import (
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/lambda-feedback/scripthost/app"
	"github.com/lambda-feedback/scripthost/app/exec"
	"github.com/lambda-feedback/scripthost/util/conf"
	"github.com/lambda-feedback/scripthost/util/logging"
)

var (
	execCmdDescription = `The exec command runs a single script with a synthetic request
and prints the response of the script as JSON. The script is
resolved below the scripts root, exactly like requests to the
http surface. A body of "-" is read from stdin.

The command exits with 0 if the script answered with a status
below 400, and with 1 otherwise.`
	execCmd = &cli.Command{
		Name:        "exec",
		Usage:       "Run a single script and print its response.",
		ArgsUsage:   "<script>",
		Description: execCmdDescription,
		Action:      execAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "method",
				Aliases:  []string{"X"},
				Usage:    "The request method.",
				Value:    "GET",
				Category: "request",
			},
			&cli.StringFlag{
				Name:     "path",
				Usage:    "The request path. Defaults to /js/<script>.",
				Category: "request",
			},
			&cli.StringFlag{
				Name:     "body",
				Aliases:  []string{"d"},
				Usage:    "The request body.",
				Category: "request",
			},
			&cli.StringSliceFlag{
				Name:     "header",
				Aliases:  []string{"H"},
				Usage:    "A request header in the form \"Name: value\". May be repeated.",
				Category: "request",
			},
		},
	}
)

func execAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return cli.Exit("exactly one script is required", 2)
	}

	app, err := app.New(ctx)
	if err != nil {
		return err
	}

	cfg, err := conf.Parse[exec.Config](conf.ParseOptions{
		Defaults: conf.DefaultConfig{
			"method": "GET",
		},
		Log: log,
		Cli: ctx,
	})
	if err != nil {
		return err
	}

	cfg.Script = ctx.Args().First()

	if cfg.Body == "-" {
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		cfg.Body = string(body)
	}

	return app.Run(ctx.Context, exec.Module(cfg))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, execCmd)
}
