package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/loader"
	"github.com/lambda-feedback/scripthost/internal/store"
	"github.com/lambda-feedback/scripthost/models"
	"github.com/lambda-feedback/scripthost/runtime/schema"
)

// RequestHandleGlobal is the global binding holding the handle of the
// invocation request.
const RequestHandleGlobal = "__REQUEST_HANDLE__"

type Config struct {
	// Timeout bounds a single sandbox run. Zero disables the timeout.
	Timeout time.Duration `conf:"timeout"`

	// MaxRows caps the rows a single query may return. Zero disables
	// the cap.
	MaxRows int `conf:"max_rows"`

	// MaxCallStackSize limits guest recursion. Zero keeps the engine
	// default.
	MaxCallStackSize int `conf:"max_call_stack_size"`
}

var DefaultConfig = Config{
	Timeout:          30 * time.Second,
	MaxRows:          10000,
	MaxCallStackSize: 4096,
}

type Params struct {
	Config Config

	Loader *loader.Loader

	// Tracer is optional, spans are dropped without one.
	Tracer trace.Tracer

	Log *zap.Logger
}

// Manager runs scripts, each in a fresh sandbox.
type Manager struct {
	config Config
	loader *loader.Loader
	schema *schema.Schema
	tracer trace.Tracer
	log    *zap.Logger
}

func NewManager(params Params) (*Manager, error) {
	responseSchema, err := schema.NewResponseSchema()
	if err != nil {
		return nil, fmt.Errorf("error loading response schema: %w", err)
	}

	tracer := params.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return &Manager{
		config: params.Config,
		loader: params.Loader,
		schema: responseSchema,
		tracer: tracer,
		log:    params.Log.Named("sandbox"),
	}, nil
}

// Invocation describes a single sandbox run.
type Invocation struct {
	// Location is the absolute location of the entry module.
	Location string

	// Request is registered in the handle table of the sandbox.
	Request models.Request

	// Pool serves the database capabilities. It may be nil.
	Pool store.Pool

	// Sender receives the response of the script. Run does not close it.
	Sender *Sender

	// Log is the invocation logger. The manager logger is used if nil.
	Log *zap.Logger
}

// Run creates a sandbox, evaluates the entry module and drives the event
// loop until it settles. The returned error is one of ErrScriptUnavailable,
// ErrLoad, ErrEvaluate or ErrTimeout, wrapping the cause. A response sent
// before the failure has already been delivered.
func (m *Manager) Run(ctx context.Context, inv Invocation) error {
	log := inv.Log
	if log == nil {
		log = m.log
	}

	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	ctx, span := m.tracer.Start(ctx, "sandbox.run",
		trace.WithAttributes(attribute.String("script.location", inv.Location)))
	defer span.End()

	s := &sandbox{
		ctx:     ctx,
		manager: m,
		inv:     inv,
		handles: NewHandleTable(),
		log:     log,
	}

	start := time.Now()
	err := s.run()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug("sandbox failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
	} else {
		log.Debug("sandbox settled", zap.Duration("duration", time.Since(start)))
	}

	return err
}

// sandbox is the state of a single run.
type sandbox struct {
	ctx     context.Context
	manager *Manager
	inv     Invocation
	handles *HandleTable
	linker  *linker
	log     *zap.Logger

	rejections []*goja.Promise
}

func (s *sandbox) run() error {
	// 1. node registry with file loading disabled, modules go through
	// the linker
	registry := require.NewRegistry(require.WithLoader(func(string) ([]byte, error) {
		return nil, require.ModuleFileDoesNotExistError
	}))
	registry.RegisterNativeModule(console.ModuleName,
		console.RequireWithPrinter(&consolePrinter{log: s.log.Named("console")}))

	loop := eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(false),
	)

	// 2. evaluate and drive the loop until no jobs are left
	var (
		runErr error
		entry  *goja.Promise
	)
	stop := func() bool { return false }

	loop.Run(func(vm *goja.Runtime) {
		stop = context.AfterFunc(s.ctx, func() {
			vm.Interrupt(s.ctx.Err())
			loop.RunOnLoop(func(*goja.Runtime) {
				loop.StopNoWait()
			})
		})

		if runErr = s.init(vm, loop); runErr != nil {
			return
		}

		entry, runErr = s.linker.main(s.inv.Location)
	})

	stop()

	// 3. classify
	if err := s.ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, s.manager.config.Timeout)
		}
		return fmt.Errorf("%w: %w", ErrEvaluate, err)
	}

	if runErr != nil {
		return runErr
	}

	if entry != nil && entry.State() == goja.PromiseStateRejected {
		return fmt.Errorf("%w: %s", ErrEvaluate, entry.Result())
	}

	if len(s.rejections) > 0 {
		return fmt.Errorf("%w: unhandled promise rejection: %s",
			ErrEvaluate, s.rejections[0].Result())
	}

	return nil
}

// init prepares the runtime before any guest code runs.
func (s *sandbox) init(vm *goja.Runtime, loop *eventloop.EventLoop) error {
	if n := s.manager.config.MaxCallStackSize; n > 0 {
		vm.SetMaxCallStackSize(n)
	}

	vm.SetPromiseRejectionTracker(s.trackRejection)

	// console is the only native module; the global require is replaced
	// by the per-module require of the linker
	console.Enable(vm)

	native, ok := goja.AssertFunction(vm.Get("require"))
	if !ok {
		return fmt.Errorf("%w: require is not available", ErrLoad)
	}

	if err := vm.GlobalObject().Delete("require"); err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	s.linker = newLinker(vm, s.manager.loader, native, s.log)

	// the request is the first resource of the sandbox
	handle := s.handles.Add(&s.inv.Request)
	if err := vm.Set(RequestHandleGlobal, uint32(handle)); err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	b := &bridge{
		ctx:     s.ctx,
		vm:      vm,
		loop:    loop,
		handles: s.handles,
		sender:  s.inv.Sender,
		pool:    s.inv.Pool,
		schema:  s.manager.schema,
		maxRows: s.manager.config.MaxRows,
		tracer:  s.manager.tracer,
		guest:   s.log.Named("guest"),
		log:     s.log,
	}

	install, err := vm.RunProgram(prelude)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	fn, ok := goja.AssertFunction(install)
	if !ok {
		return fmt.Errorf("%w: invalid prelude", ErrLoad)
	}

	if _, err := fn(goja.Undefined(), b.object()); err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return nil
}

func (s *sandbox) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		s.rejections = append(s.rejections, p)
	case goja.PromiseRejectionHandle:
		for i, r := range s.rejections {
			if r == p {
				s.rejections = append(s.rejections[:i], s.rejections[i+1:]...)
				break
			}
		}
	}
}
