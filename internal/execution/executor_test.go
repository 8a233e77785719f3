package execution_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/execution"
	"github.com/lambda-feedback/scripthost/internal/loader"
	"github.com/lambda-feedback/scripthost/internal/sandbox"
	"github.com/lambda-feedback/scripthost/internal/store"
	"github.com/lambda-feedback/scripthost/internal/telemetry"
	"github.com/lambda-feedback/scripthost/models"
)

type recordingJournal struct {
	mu      sync.Mutex
	entries []store.Entry
}

func (j *recordingJournal) Record(_ context.Context, e store.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func createLoader(t *testing.T, files map[string]string) (*loader.Loader, string) {
	root := t.TempDir()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	l, err := loader.New(loader.Params{
		Config: loader.Config{Root: root},
		Log:    zap.NewNop(),
	})
	require.NoError(t, err)

	return l, root
}

func createExecutor(t *testing.T, runner execution.Runner, params execution.Params) *execution.ScriptExecutor {
	if params.Loader == nil {
		params.Loader, _ = createLoader(t, map[string]string{"test.js": ""})
	}

	params.Context = context.Background()
	params.Runner = runner
	params.Log = zap.NewNop()

	e, err := execution.NewExecutor(params)
	require.NoError(t, err)

	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })

	return e
}

func task(script string) execution.Task {
	return execution.Task{
		Script:    script,
		Transport: execution.TransportHTTP,
		Request:   models.NewRequest(http.MethodGet, "/js/"+script, http.Header{}, "body"),
	}
}

func TestExecutor_New_RequiresRunner(t *testing.T) {
	_, err := execution.NewExecutor(execution.Params{Log: zap.NewNop()})
	assert.Error(t, err)
}

func TestExecutor_Execute(t *testing.T) {
	runner := NewMockRunner(t)
	ldr, root := createLoader(t, map[string]string{"test.js": ""})

	runner.EXPECT().Run(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, inv sandbox.Invocation) error {
			assert.Equal(t, filepath.Join(root, "test.js"), inv.Location)
			assert.Equal(t, "body", inv.Request.Body)
			return inv.Sender.Send(models.NewResponse(http.StatusCreated, "done"))
		})

	e := createExecutor(t, runner, execution.Params{Loader: ldr})

	res, err := e.Execute(context.Background(), task("test.js"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, "done", res.Body)
}

func TestExecutor_Execute_NotFound(t *testing.T) {
	runner := NewMockRunner(t)

	e := createExecutor(t, runner, execution.Params{})

	_, err := e.Execute(context.Background(), task("missing.js"))
	assert.ErrorIs(t, err, execution.ErrScriptNotFound)

	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestExecutor_Execute_InvalidPath(t *testing.T) {
	runner := NewMockRunner(t)

	e := createExecutor(t, runner, execution.Params{})

	_, err := e.Execute(context.Background(), task("../test.js"))
	assert.ErrorIs(t, err, execution.ErrInvalidScriptPath)
}

func TestExecutor_Exists(t *testing.T) {
	e := createExecutor(t, NewMockRunner(t), execution.Params{})

	assert.True(t, e.Exists("test.js"))
	assert.False(t, e.Exists("other.js"))
}

func TestExecutor_Execute_RunErrorBecomesInternalError(t *testing.T) {
	runner := NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).Return(sandbox.ErrEvaluate)

	e := createExecutor(t, runner, execution.Params{})

	res, err := e.Execute(context.Background(), task("test.js"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, sandbox.ErrEvaluate.Error(), res.Body)
}

func TestExecutor_Execute_SentResponseWinsOverError(t *testing.T) {
	runner := NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, inv sandbox.Invocation) error {
			assert.NoError(t, inv.Sender.Send(models.NewResponse(http.StatusOK, "ok")))
			return sandbox.ErrEvaluate
		})

	e := createExecutor(t, runner, execution.Params{})

	res, err := e.Execute(context.Background(), task("test.js"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "ok", res.Body)
}

func TestExecutor_Execute_NoResponse(t *testing.T) {
	runner := NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).Return(nil)

	e := createExecutor(t, runner, execution.Params{})

	res, err := e.Execute(context.Background(), task("test.js"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, execution.ChannelClosedMessage, res.Body)
}

func TestExecutor_Execute_RecoversPanics(t *testing.T) {
	runner := NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, sandbox.Invocation) error {
			panic("boom")
		}).Once()
	runner.EXPECT().Run(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, inv sandbox.Invocation) error {
			return inv.Sender.Send(models.NewResponse(http.StatusOK, "recovered"))
		}).Once()

	e := createExecutor(t, runner, execution.Params{Config: execution.Config{MaxWorkers: 1}})

	res, err := e.Execute(context.Background(), task("test.js"))
	require.NoError(t, err)
	assert.Equal(t, execution.ChannelClosedMessage, res.Body)

	res, err = e.Execute(context.Background(), task("test.js"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Body)
}

func TestExecutor_Execute_CancelOnlyStopsWaiting(t *testing.T) {
	runner := NewMockRunner(t)

	release := make(chan struct{})
	finished := make(chan error, 1)

	runner.EXPECT().Run(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, inv sandbox.Invocation) error {
			<-release
			finished <- ctx.Err()
			return inv.Sender.Send(models.NewResponse(http.StatusOK, "late"))
		})

	e := createExecutor(t, runner, execution.Params{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := e.Execute(ctx, task("test.js"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Contains(t, res.Body, "invocation cancelled")

	close(release)

	select {
	case err := <-finished:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not finish")
	}
}

func TestExecutor_Execute_BoundsConcurrency(t *testing.T) {
	runner := NewMockRunner(t)

	var running, peak atomic.Int32

	runner.EXPECT().Run(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, inv sandbox.Invocation) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return inv.Sender.Send(models.NewResponse(http.StatusOK, ""))
		})

	e := createExecutor(t, runner, execution.Params{Config: execution.Config{MaxWorkers: 2}})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Execute(context.Background(), task("test.js"))
			assert.NoError(t, err)
			assert.Equal(t, http.StatusOK, res.Status)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExecutor_Execute_RecordsMetricsAndJournal(t *testing.T) {
	runner := NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, inv sandbox.Invocation) error {
			return inv.Sender.Send(models.NewResponse(http.StatusAccepted, ""))
		})

	metrics := telemetry.NewMetrics()
	journal := &recordingJournal{}

	e := createExecutor(t, runner, execution.Params{Metrics: metrics, Journal: journal})

	_, err := e.Execute(context.Background(), task("test.js"))
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), task("missing.js"))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InvocationsTotal.WithLabelValues("http", "202")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InvocationsTotal.WithLabelValues("http", "not_found")))

	// shutdown waits for pending journal writes
	require.NoError(t, e.Shutdown(context.Background()))

	require.Len(t, journal.entries, 1)
	assert.Equal(t, "test.js", journal.entries[0].Script)
	assert.Equal(t, http.StatusAccepted, journal.entries[0].Status)
	assert.Equal(t, execution.TransportHTTP, journal.entries[0].Transport)
}

type blockingJournal struct {
	release  chan struct{}
	recorded atomic.Bool
}

func (j *blockingJournal) Record(ctx context.Context, _ store.Entry) error {
	select {
	case <-j.release:
		j.recorded.Store(true)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestExecutor_Execute_DoesNotWaitForJournal(t *testing.T) {
	runner := NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, inv sandbox.Invocation) error {
			return inv.Sender.Send(models.NewResponse(http.StatusOK, ""))
		})

	journal := &blockingJournal{release: make(chan struct{})}

	e := createExecutor(t, runner, execution.Params{Journal: journal})

	start := time.Now()
	res, err := e.Execute(context.Background(), task("test.js"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, journal.recorded.Load())

	close(journal.release)

	require.NoError(t, e.Shutdown(context.Background()))
	assert.True(t, journal.recorded.Load())
}

func TestExecutor_Shutdown_BoundedByContext(t *testing.T) {
	runner := NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, inv sandbox.Invocation) error {
			return inv.Sender.Send(models.NewResponse(http.StatusOK, ""))
		})

	journal := &blockingJournal{release: make(chan struct{})}

	e := createExecutor(t, runner, execution.Params{Journal: journal})
	t.Cleanup(func() { close(journal.release) })

	_, err := e.Execute(context.Background(), task("test.js"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, e.Shutdown(ctx), context.DeadlineExceeded)
}

func TestExecutor_Execute_Sandbox(t *testing.T) {
	ldr, _ := createLoader(t, map[string]string{
		"add.js": `
const { a, b } = JSON.parse(request.body());
sendResponse({ status: 200, body: JSON.stringify({ result: a + b }) });
`,
		"silent.js": `log("no response");`,
	})

	manager, err := sandbox.NewManager(sandbox.Params{
		Config: sandbox.DefaultConfig,
		Loader: ldr,
		Log:    zap.NewNop(),
	})
	require.NoError(t, err)

	e := createExecutor(t, manager, execution.Params{Loader: ldr})

	req := models.NewRequest(http.MethodPost, "/rpc/add", http.Header{}, `{"a":5,"b":3}`)

	res, err := e.Execute(context.Background(), execution.Task{Script: "add.js", Request: req})
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":8}`, res.Body)

	res, err = e.Execute(context.Background(), execution.Task{Script: "silent.js", Request: req})
	require.NoError(t, err)
	assert.Equal(t, execution.ChannelClosedMessage, res.Body)
}
