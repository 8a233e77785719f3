package execution

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/puddle/v2"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/sandbox"
	"github.com/lambda-feedback/scripthost/models"
)

type job struct {
	ctx        context.Context
	invocation sandbox.Invocation

	// resource is released, or destroyed after a panic, once the job is done
	resource *puddle.Resource[*worker]

	// done is called after the resource was returned
	done func()
}

// worker is a long-lived goroutine running one sandbox at a time.
type worker struct {
	id     int
	jobs   chan job
	exited chan struct{}
	runner Runner
	log    *zap.Logger
}

func newWorker(id int, runner Runner, log *zap.Logger) *worker {
	return &worker{
		id:     id,
		jobs:   make(chan job, 1),
		exited: make(chan struct{}),
		runner: runner,
		log:    log.Named("worker").With(zap.Int("worker", id)),
	}
}

func (w *worker) start() {
	go w.loop()
}

// stop closes the job queue and waits for the current job to finish.
func (w *worker) stop() {
	close(w.jobs)
	<-w.exited
	w.log.Debug("worker stopped")
}

// dispatch hands j to the worker. The caller must hold the worker's
// pool resource, so the queue is always empty.
func (w *worker) dispatch(j job) {
	w.jobs <- j
}

func (w *worker) loop() {
	defer close(w.exited)

	for j := range w.jobs {
		w.run(j)
	}
}

func (w *worker) run(j job) {
	sender := j.invocation.Sender

	log := w.log
	if j.invocation.Log != nil {
		log = j.invocation.Log.With(zap.Int("worker", w.id))
	}
	j.invocation.Log = log

	defer func() {
		if done := j.done; done != nil {
			defer done()
		}

		if r := recover(); r != nil {
			log.Error("sandbox panicked", zap.Any("panic", r))

			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetTag("script", j.invocation.Location)
			hub.Recover(r)

			// the receiver observes the closed channel
			sender.Close()
			j.resource.Destroy()
			return
		}

		sender.Close()
		j.resource.Release()
	}()

	err := w.runner.Run(j.ctx, j.invocation)
	if err == nil {
		return
	}

	if sender.Sent() {
		log.Warn("script failed after sending its response", zap.Error(err))
		return
	}

	log.Error("script failed", zap.Error(err))

	if sendErr := sender.Send(models.InternalError(err.Error())); sendErr != nil {
		log.Debug("error sending failure response", zap.Error(sendErr))
	}
}
