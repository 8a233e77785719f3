package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lambda-feedback/scripthost/internal/execution"
	"github.com/lambda-feedback/scripthost/internal/telemetry"
	"github.com/lambda-feedback/scripthost/models"
)

const (
	// RequestMethod is the method of requests synthesized for calls.
	RequestMethod = "JSON-RPC"

	// PathPrefix prefixes the method in the path of synthesized requests.
	PathPrefix = "/rpc/"

	// ScriptSuffix is appended to the method to locate its script.
	ScriptSuffix = ".js"
)

// Executor runs scripts for calls.
type Executor interface {
	Execute(ctx context.Context, task execution.Task) (models.Response, error)
	Exists(script string) bool
}

type Params struct {
	Executor Executor

	// Metrics is optional.
	Metrics *telemetry.Metrics

	// Tracer is optional.
	Tracer trace.Tracer

	Log *zap.Logger
}

// Dispatcher maps JSON-RPC envelopes onto script invocations.
type Dispatcher struct {
	executor Executor
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	log      *zap.Logger
}

func NewDispatcher(params Params) *Dispatcher {
	tracer := params.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return &Dispatcher{
		executor: params.Executor,
		metrics:  params.Metrics,
		tracer:   tracer,
		log:      params.Log.Named("jsonrpc"),
	}
}

// Dispatch processes one envelope. header becomes the header of every
// synthesized request. Batch members run concurrently; the reply keeps
// their order and omits notifications.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte, header http.Header) Reply {
	trimmed := bytes.TrimSpace(body)

	if !json.Valid(trimmed) {
		d.metrics.ObserveRPCCall(CodeParseError)
		return ErrorReply(ParseError("invalid JSON"))
	}

	switch trimmed[0] {
	case '{':
		return d.single(ctx, trimmed, header)
	case '[':
		return d.batch(ctx, trimmed, header)
	default:
		d.metrics.ObserveRPCCall(CodeParseError)
		return ErrorReply(ParseError("request must be an object or an array"))
	}
}

func (d *Dispatcher) single(ctx context.Context, raw json.RawMessage, header http.Header) Reply {
	call, rpcErr := decodeCall(raw)
	if rpcErr != nil {
		d.metrics.ObserveRPCCall(rpcErr.Code)
		return ErrorReply(rpcErr)
	}

	res, executed := d.process(ctx, call, header)

	// an executed notification is never answered
	if executed && call.IsNotification() {
		return Reply{}
	}

	return Reply{single: &res}
}

func (d *Dispatcher) batch(ctx context.Context, raw json.RawMessage, header http.Header) Reply {
	var members []json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		d.metrics.ObserveRPCCall(CodeParseError)
		return ErrorReply(ParseError(err.Error()))
	}

	if len(members) == 0 {
		d.metrics.ObserveRPCCall(CodeInvalidRequest)
		return ErrorReply(InvalidRequest("batch request cannot be empty"))
	}

	results := make([]*Response, len(members))

	var g errgroup.Group
	for i, member := range members {
		g.Go(func() error {
			call, rpcErr := decodeCall(member)
			if rpcErr != nil {
				// members without a readable id are always answered
				d.metrics.ObserveRPCCall(rpcErr.Code)
				res := failure(nil, rpcErr)
				results[i] = &res
				return nil
			}

			res, _ := d.process(ctx, call, header)
			if !call.IsNotification() {
				results[i] = &res
			}
			return nil
		})
	}

	// the members never fail
	_ = g.Wait()

	reply := Reply{batched: true}
	for _, res := range results {
		if res != nil {
			reply.batch = append(reply.batch, *res)
		}
	}

	d.log.Debug("processed batch",
		zap.Int("calls", len(members)),
		zap.Int("responses", len(reply.batch)))

	return reply
}

// process validates and executes a call. executed is false if the call
// was rejected before its script ran.
func (d *Dispatcher) process(ctx context.Context, call Call, header http.Header) (res Response, executed bool) {
	ctx, span := d.tracer.Start(ctx, "jsonrpc.call",
		trace.WithAttributes(
			attribute.String("rpc.method", call.Method),
			attribute.Bool("rpc.notification", call.IsNotification()),
		))
	defer span.End()

	defer func() {
		code := 0
		if res.Error != nil {
			code = res.Error.Code
			span.SetStatus(codes.Error, res.Error.Message)
		}
		d.metrics.ObserveRPCCall(code)
	}()

	id := call.ID
	if call.IsNotification() {
		id = nil
	}

	// 1. validate the protocol shape
	if rpcErr := validate(call); rpcErr != nil {
		return failure(id, rpcErr), false
	}

	// 2. the method names a script
	script := call.Method + ScriptSuffix
	if !d.executor.Exists(script) {
		return failure(id, MethodNotFound(call.Method)), false
	}

	// 3. execute with the params as request body
	req := models.NewRequest(RequestMethod, PathPrefix+call.Method, header, paramsBody(call.Params))

	out, err := d.executor.Execute(ctx, execution.Task{
		Script:    script,
		Transport: execution.TransportJSONRPC,
		Request:   req,
	})
	if errors.Is(err, execution.ErrScriptNotFound) || errors.Is(err, execution.ErrInvalidScriptPath) {
		return failure(id, MethodNotFound(call.Method)), false
	}
	if err != nil {
		return failure(id, InternalError(err.Error())), true
	}

	// 4. map the script response
	if !out.OK() {
		return failure(id, InternalError(out.Body)), true
	}

	return success(id, resultOf(out.Body)), true
}

// MARK: - helpers

func decodeCall(raw json.RawMessage) (Call, *Error) {
	var call Call

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return call, InvalidRequest("request must be an object")
	}

	if err := json.Unmarshal(raw, &call); err != nil {
		return call, InvalidRequest(err.Error())
	}

	return call, nil
}

func validate(call Call) *Error {
	if call.Version != Version {
		return InvalidRequest("jsonrpc version must be 2.0")
	}

	if call.Method == "" {
		return InvalidRequest("method is required")
	}

	return nil
}

// paramsBody serializes params compactly, absent params become null.
func paramsBody(params json.RawMessage) string {
	if len(params) == 0 {
		return "null"
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, params); err != nil {
		return string(params)
	}

	return buf.String()
}

// resultOf parses a response body as JSON, falling back to the raw body
// as a string.
func resultOf(body string) json.RawMessage {
	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}

	// marshalling a string cannot fail
	encoded, _ := json.Marshal(body)

	return encoded
}
