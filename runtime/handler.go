package runtime

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/http/httpguts"

	"github.com/lambda-feedback/scripthost/internal/execution"
	"github.com/lambda-feedback/scripthost/models"
)

var (
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrMissingScript = errors.New("missing script")
)

var wellKnownErrors = map[error]int{
	execution.ErrScriptNotFound:    http.StatusNotFound,
	execution.ErrInvalidScriptPath: http.StatusBadRequest,
	ErrMissingScript:               http.StatusNotFound,
	ErrBodyTooLarge:                http.StatusRequestEntityTooLarge,
}

// HandlerParams defines the dependencies for the runtime handler.
type HandlerParams struct {
	fx.In

	Runtime Runtime

	Log *zap.Logger
}

// Request represents an incoming request.
type Request struct {
	// Script is the script path relative to the scripts root.
	Script string
	Path   string
	Method string
	Body   []byte
	Header http.Header
}

// Response represents an outgoing response.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Handler is the interface for handling runtime requests.
type Handler interface {
	Handle(ctx context.Context, request Request) Response
}

// RuntimeHandler is a runtime handler that uses a runtime to handle requests.
type RuntimeHandler struct {
	runtime Runtime

	log *zap.Logger
}

// NewRuntimeHandler creates a new runtime handler.
func NewRuntimeHandler(params HandlerParams) Handler {
	return &RuntimeHandler{
		runtime: params.Runtime,
		log:     params.Log,
	}
}

// Handle runs the requested script with the request and returns the
// response of the script.
func (h *RuntimeHandler) Handle(ctx context.Context, req Request) Response {
	log := h.log.With(
		zap.String("path", req.Path),
		zap.String("method", req.Method),
	)

	script := strings.TrimPrefix(req.Script, "/")
	if script == "" {
		log.Debug("missing script")
		return newErrorResponse(ErrMissingScript)
	}

	log = log.With(zap.String("script", script))

	request := models.NewRequest(
		strings.ToUpper(req.Method),
		req.Path,
		req.Header,
		string(req.Body),
	)

	res, err := h.runtime.Execute(ctx, execution.Task{
		Script:    script,
		Transport: execution.TransportHTTP,
		Request:   request,
	})
	if err != nil {
		log.Debug("failed to execute script", zap.Error(err))
		return newErrorResponse(err)
	}

	return newScriptResponse(res, log)
}

// newScriptResponse maps a script response to a transport response.
// Headers that cannot be transmitted are dropped.
func newScriptResponse(res models.Response, log *zap.Logger) Response {
	header := make(http.Header, len(res.Headers))

	for k, v := range res.Headers {
		if !httpguts.ValidHeaderFieldName(k) || !httpguts.ValidHeaderFieldValue(v) {
			log.Debug("dropping invalid response header", zap.String("header", k))
			continue
		}
		header.Set(k, v)
	}

	return Response{
		StatusCode: res.Status,
		Body:       []byte(res.Body),
		Header:     header,
	}
}
