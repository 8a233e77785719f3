package sandbox

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/store"
	"github.com/lambda-feedback/scripthost/models"
	"github.com/lambda-feedback/scripthost/runtime/schema"
)

// bridge implements the native capabilities of one sandbox. All methods
// run on the sandbox event loop.
type bridge struct {
	ctx     context.Context
	vm      *goja.Runtime
	loop    *eventloop.EventLoop
	handles *HandleTable
	sender  *Sender
	pool    store.Pool
	schema  *schema.Schema
	maxRows int
	tracer  trace.Tracer

	// guest receives the output of log()
	guest *zap.Logger
	log   *zap.Logger
}

// object returns the host object passed to the prelude.
func (b *bridge) object() *goja.Object {
	host := b.vm.NewObject()

	natives := map[string]func(goja.FunctionCall) goja.Value{
		"requestMethod":  b.requestMethod,
		"requestPath":    b.requestPath,
		"requestHeaders": b.requestHeaders,
		"requestBody":    b.requestBody,
		"requestHeader":  b.requestHeader,
		"releaseRequest": b.releaseRequest,
		"sendResponse":   b.sendResponse,
		"sqlExecute":     b.sqlExecute,
		"sqlQuery":       b.sqlQuery,
		"log":            b.logText,
		"delay":          b.delay,
	}

	for name, fn := range natives {
		// the names are constant, Set cannot fail
		_ = host.Set(name, fn)
	}

	return host
}

// MARK: - request

func (b *bridge) requestMethod(call goja.FunctionCall) goja.Value {
	return b.vm.ToValue(b.request(call).Method)
}

func (b *bridge) requestPath(call goja.FunctionCall) goja.Value {
	return b.vm.ToValue(b.request(call).Path)
}

func (b *bridge) requestBody(call goja.FunctionCall) goja.Value {
	return b.vm.ToValue(b.request(call).Body)
}

func (b *bridge) requestHeaders(call goja.FunctionCall) goja.Value {
	req := b.request(call)

	headers := b.vm.NewObject()
	for _, key := range req.HeaderKeys() {
		b.defineField(headers, key, b.vm.ToValue(req.Headers[key]))
	}

	return headers
}

func (b *bridge) requestHeader(call goja.FunctionCall) goja.Value {
	req := b.request(call)

	key := call.Argument(1)
	if goja.IsUndefined(key) || goja.IsNull(key) {
		panic(b.vm.NewTypeError("header name required"))
	}

	value, ok := req.Header(key.String())
	if !ok {
		return goja.Null()
	}

	return b.vm.ToValue(value)
}

func (b *bridge) releaseRequest(call goja.FunctionCall) goja.Value {
	if err := b.handles.Remove(b.handle(call.Argument(0))); err != nil {
		panic(b.vm.NewGoError(err))
	}
	return goja.Undefined()
}

// MARK: - response

func (b *bridge) sendResponse(call goja.FunctionCall) goja.Value {
	res, err := b.response(call.Argument(0))
	if err != nil {
		panic(b.vm.NewTypeError("%s", err.Error()))
	}

	if err := b.sender.Send(res); err != nil {
		b.log.Warn("script sent a second response", zap.Int("status", res.Status))
		panic(b.vm.NewGoError(err))
	}

	b.log.Debug("script sent response", zap.Int("status", res.Status))

	return goja.Undefined()
}

// MARK: - database

func (b *bridge) sqlExecute(call goja.FunctionCall) goja.Value {
	query := b.sqlArg(call)

	var affected int64
	err := b.withConn("store.execute", query, func(ctx context.Context, conn store.Conn) (err error) {
		affected, err = conn.Exec(ctx, query)
		return err
	})
	if err != nil {
		panic(b.vm.NewGoError(err))
	}

	return b.vm.ToValue(affected)
}

func (b *bridge) sqlQuery(call goja.FunctionCall) goja.Value {
	query := b.sqlArg(call)

	var rows []store.Row
	err := b.withConn("store.query", query, func(ctx context.Context, conn store.Conn) (err error) {
		rows, err = conn.Query(ctx, query, b.maxRows)
		return err
	})
	if err != nil {
		panic(b.vm.NewGoError(err))
	}

	result := make([]any, len(rows))
	for i, row := range rows {
		result[i] = b.rowObject(row)
	}

	return b.vm.NewArray(result...)
}

// withConn checks out a connection for the duration of fn.
func (b *bridge) withConn(
	name string,
	query string,
	fn func(context.Context, store.Conn) error,
) error {
	if b.pool == nil {
		return ErrNoStore
	}

	ctx, span := b.tracer.Start(b.ctx, name,
		trace.WithAttributes(attribute.String("db.statement", query)))
	defer span.End()

	err := func() error {
		conn, err := b.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer conn.Release()

		return fn(ctx, conn)
	}()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.log.Debug("statement failed", zap.String("operation", name), zap.Error(err))
	}

	return err
}

func (b *bridge) rowObject(row store.Row) *goja.Object {
	obj := b.vm.NewObject()
	for _, col := range row {
		var value goja.Value
		if col.Value.Kind() == store.KindNull {
			value = goja.Null()
		} else {
			value = b.vm.ToValue(col.Value.Interface())
		}
		b.defineField(obj, col.Name, value)
	}
	return obj
}

// defineField adds an own enumerable property. Unlike Set it never runs
// inherited accessors, so a name like __proto__ becomes a plain key.
func (b *bridge) defineField(obj *goja.Object, name string, value goja.Value) {
	_ = obj.DefineDataProperty(name, value, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

// MARK: - utility

func (b *bridge) logText(call goja.FunctionCall) goja.Value {
	b.guest.Info(call.Argument(0).String())
	return goja.Undefined()
}

func (b *bridge) delay(call goja.FunctionCall) goja.Value {
	ms := call.Argument(0).ToInteger()
	if ms < 0 {
		ms = 0
	}

	promise, resolve, _ := b.vm.NewPromise()

	b.loop.SetTimeout(func(*goja.Runtime) {
		resolve(goja.Undefined())
	}, time.Duration(ms)*time.Millisecond)

	return b.vm.ToValue(promise)
}

// MARK: - helpers

// request returns the request addressed by the first argument.
func (b *bridge) request(call goja.FunctionCall) *models.Request {
	req, err := b.handles.Get(b.handle(call.Argument(0)))
	if err != nil {
		panic(b.vm.NewGoError(err))
	}
	return req
}

func (b *bridge) handle(arg goja.Value) Handle {
	var n int64

	switch v := arg.Export().(type) {
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			panic(b.vm.NewGoError(fmt.Errorf("%w: %v", ErrBadResource, v)))
		}
		n = int64(v)
	default:
		panic(b.vm.NewTypeError("resource id must be a number"))
	}

	if n < 0 || n > math.MaxUint32 {
		panic(b.vm.NewGoError(fmt.Errorf("%w: %d", ErrBadResource, n)))
	}

	return Handle(n)
}

func (b *bridge) sqlArg(call goja.FunctionCall) string {
	sql, ok := call.Argument(0).Export().(string)
	if !ok {
		panic(b.vm.NewTypeError("sql must be a string"))
	}
	return sql
}
