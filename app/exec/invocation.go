package exec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/execution"
	"github.com/lambda-feedback/scripthost/models"
	"github.com/lambda-feedback/scripthost/runtime"
)

var ErrInvalidHeader = errors.New("invalid header")

type InvocationParams struct {
	fx.In

	Context context.Context

	Config Config

	Runtime runtime.Runtime

	Shutdowner fx.Shutdowner

	// Output receives the response, os.Stdout if not set.
	Output io.Writer `name:"output" optional:"true"`

	Log *zap.Logger
}

// Invocation runs a single script and prints its response.
type Invocation struct {
	ctx        context.Context
	config     Config
	runtime    runtime.Runtime
	shutdowner fx.Shutdowner
	out        io.Writer
	log        *zap.Logger
}

func NewInvocation(params InvocationParams) *Invocation {
	out := params.Output
	if out == nil {
		out = os.Stdout
	}

	return &Invocation{
		ctx:        params.Context,
		config:     params.Config,
		runtime:    params.Runtime,
		shutdowner: params.Shutdowner,
		out:        out,
		log:        params.Log,
	}
}

// NewLifecycleInvocation runs the invocation once the application has
// started and stops the application with its exit code.
func NewLifecycleInvocation(params InvocationParams, lc fx.Lifecycle) *Invocation {
	inv := NewInvocation(params)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := inv.Run(inv.ctx)
				if err := inv.shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					inv.log.Error("failed to stop application", zap.Error(err))
				}
			}()
			return nil
		},
	})
	return inv
}

// Run executes the script and writes the response as JSON. The returned
// exit code is zero if the script answered with a status below 400.
func (i *Invocation) Run(ctx context.Context) int {
	log := i.log.With(zap.String("script", i.config.Script))

	req, err := i.request()
	if err != nil {
		log.Error("invalid request", zap.Error(err))
		return 2
	}

	res, err := i.runtime.Execute(ctx, execution.Task{
		Script:    i.config.Script,
		Transport: execution.TransportCLI,
		Request:   req,
	})
	if err != nil {
		log.Error("failed to execute script", zap.Error(err))
		return 1
	}

	encoder := json.NewEncoder(i.out)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(res); err != nil {
		log.Error("failed to write response", zap.Error(err))
		return 1
	}

	if res.Status >= http.StatusBadRequest {
		return 1
	}

	return 0
}

func (i *Invocation) request() (models.Request, error) {
	header := make(http.Header, len(i.config.Header))

	for _, h := range i.config.Header {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return models.Request{}, fmt.Errorf("%w: %q", ErrInvalidHeader, h)
		}
		header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	method := strings.ToUpper(i.config.Method)
	if method == "" {
		method = http.MethodGet
	}

	path := i.config.Path
	if path == "" {
		path = "/js/" + strings.TrimPrefix(i.config.Script, "/")
	}

	return models.NewRequest(method, path, header, i.config.Body), nil
}
