package execution

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/puddle/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/loader"
	"github.com/lambda-feedback/scripthost/internal/sandbox"
	"github.com/lambda-feedback/scripthost/internal/store"
	"github.com/lambda-feedback/scripthost/internal/telemetry"
	"github.com/lambda-feedback/scripthost/models"
)

var (
	ErrScriptNotFound    = errors.New("script not found")
	ErrInvalidScriptPath = errors.New("invalid script path")
)

// journalTimeout bounds recording a single journal entry.
const journalTimeout = 5 * time.Second

// ChannelClosedMessage is the body of the response returned when a
// sandbox finished without sending a response.
const ChannelClosedMessage = "script finished without sending a response"

const (
	TransportHTTP    = "http"
	TransportJSONRPC = "jsonrpc"
	TransportCLI     = "cli"
)

// Task is a single script invocation.
type Task struct {
	// Script is the script path relative to the scripts root.
	Script string

	// Transport labels the invocation in logs, metrics and the journal.
	Transport string

	Request models.Request
}

type Executor interface {
	// Execute runs the script of task in a fresh sandbox on a worker and
	// returns its response. Script failures are returned as responses;
	// errors are only returned for scripts that do not exist
	// (ErrScriptNotFound) or paths outside the scripts root
	// (ErrInvalidScriptPath), before any worker is occupied.
	Execute(ctx context.Context, task Task) (models.Response, error)

	// Exists reports whether a script exists.
	Exists(script string) bool

	// Shutdown stops all workers after their current invocation.
	Shutdown(context.Context) error
}

// Runner runs a single sandbox.
type Runner interface {
	Run(ctx context.Context, inv sandbox.Invocation) error
}

type Config struct {
	// MaxWorkers is the maximum number of concurrent sandboxes. Zero
	// uses the number of CPUs.
	MaxWorkers int `conf:"max_workers"`
}

type Params struct {
	// Context is the context workers are created with
	Context context.Context

	Config Config

	Loader *loader.Loader

	Runner Runner

	// Pool serves the database capabilities of all sandboxes. Optional.
	Pool store.Pool

	// Journal records finished invocations. Optional.
	Journal store.Journal

	// Metrics is optional.
	Metrics *telemetry.Metrics

	// Tracer is optional.
	Tracer trace.Tracer

	Log *zap.Logger
}

type ScriptExecutor struct {
	pool    *puddle.Pool[*worker]
	loader  *loader.Loader
	store   store.Pool
	journal store.Journal
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	log     *zap.Logger

	// pending tracks journal writes still in flight
	pending sync.WaitGroup
}

var _ Executor = (*ScriptExecutor)(nil)

func NewExecutor(params Params) (*ScriptExecutor, error) {
	log := params.Log.Named("executor")

	if params.Runner == nil {
		return nil, errors.New("runner is required")
	}

	if params.Journal == nil {
		params.Journal = store.NewJournal(store.JournalParams{})
	}

	tracer := params.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	pool, err := createPool(params, log)
	if err != nil {
		return nil, err
	}

	return &ScriptExecutor{
		pool:    pool,
		loader:  params.Loader,
		store:   params.Pool,
		journal: params.Journal,
		metrics: params.Metrics,
		tracer:  tracer,
		log:     log,
	}, nil
}

func (e *ScriptExecutor) Exists(script string) bool {
	_, err := e.loader.Locate(script)
	return err == nil
}

func (e *ScriptExecutor) Execute(ctx context.Context, task Task) (models.Response, error) {
	id := uuid.New()
	start := time.Now()

	log := e.log.With(
		zap.String("invocation_id", id.String()),
		zap.String("script", task.Script),
		zap.String("transport", task.Transport),
	)

	ctx, span := e.tracer.Start(ctx, "executor.execute",
		trace.WithAttributes(
			attribute.String("invocation.id", id.String()),
			attribute.String("script.name", task.Script),
			attribute.String("invocation.transport", task.Transport),
		))
	defer span.End()

	// 1. fail fast on missing scripts, before a worker is occupied
	location, err := e.loader.Locate(task.Script)
	if err != nil {
		err = lookupError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.ObserveInvocation(task.Transport, "not_found", time.Since(start))
		log.Debug("script lookup failed", zap.Error(err))
		return models.Response{}, err
	}

	// 2. dispatch to a worker
	resource, err := e.pool.Acquire(ctx)
	if err != nil {
		log.Error("error acquiring worker", zap.Error(err))
		res := models.InternalError(fmt.Sprintf("no worker available: %v", err))
		e.finish(ctx, id, task, res, start, log)
		return res, nil
	}

	sender, receiver := sandbox.NewCompletion()

	e.metrics.WorkerAcquired()

	resource.Value().dispatch(job{
		// the transport context only cancels waiting for the response
		ctx: context.WithoutCancel(ctx),
		invocation: sandbox.Invocation{
			Location: location,
			Request:  task.Request,
			Pool:     e.store,
			Sender:   sender,
			Log:      log,
		},
		resource: resource,
		done:     e.metrics.WorkerReleased,
	})

	// 3. await the response
	res, err := receiver.Recv(ctx)
	switch {
	case errors.Is(err, sandbox.ErrChannelClosed):
		log.Warn("sandbox finished without a response")
		res = models.InternalError(ChannelClosedMessage)
	case err != nil:
		log.Info("stopped waiting for response", zap.Error(err))
		res = models.InternalError(fmt.Sprintf("invocation cancelled: %v", err))
	}

	if !res.OK() {
		span.SetAttributes(attribute.Int("response.status", res.Status))
	}

	e.finish(ctx, id, task, res, start, log)

	return res, nil
}

// finish records metrics and the journal entry of an invocation.
func (e *ScriptExecutor) finish(
	ctx context.Context,
	id uuid.UUID,
	task Task,
	res models.Response,
	start time.Time,
	log *zap.Logger,
) {
	duration := time.Since(start)

	e.metrics.ObserveInvocation(task.Transport, strconv.Itoa(res.Status), duration)

	entry := store.Entry{
		ID:        id,
		Script:    task.Script,
		Transport: task.Transport,
		Status:    res.Status,
		Duration:  duration,
		CreatedAt: start,
	}

	// the response does not wait for the journal
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
		defer cancel()

		if err := e.journal.Record(ctx, entry); err != nil {
			log.Warn("error recording invocation", zap.Error(err))
		}
	}()

	log.Debug("invocation finished",
		zap.Int("status", res.Status),
		zap.Duration("duration", duration))
}

// Shutdown stops all workers after their current invocation and waits
// for pending journal writes until ctx is done.
func (e *ScriptExecutor) Shutdown(ctx context.Context) error {
	e.log.Debug("shutting down executor")
	e.pool.Close()

	done := make(chan struct{})
	go func() {
		e.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("error waiting for journal: %w", ctx.Err())
	}
}

// MARK: - Pool

func createPool(params Params, log *zap.Logger) (*puddle.Pool[*worker], error) {
	maxWorkers := params.Config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	var nextID atomic.Int32

	constructor := func(context.Context) (*worker, error) {
		w := newWorker(int(nextID.Add(1)), params.Runner, log)
		w.start()
		return w, nil
	}

	destructor := func(w *worker) {
		w.stop()
	}

	return puddle.NewPool(&puddle.Config[*worker]{
		Constructor: constructor,
		Destructor:  destructor,
		MaxSize:     int32(maxWorkers),
	})
}

func lookupError(err error) error {
	switch {
	case errors.Is(err, loader.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrScriptNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidScriptPath, err)
	}
}
