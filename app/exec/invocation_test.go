package exec_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/app/exec"
	"github.com/lambda-feedback/scripthost/internal/execution"
	"github.com/lambda-feedback/scripthost/models"
)

type stubRuntime struct {
	res   models.Response
	err   error
	tasks []execution.Task
}

func (r *stubRuntime) Execute(_ context.Context, task execution.Task) (models.Response, error) {
	r.tasks = append(r.tasks, task)
	return r.res, r.err
}

func (r *stubRuntime) Exists(string) bool { return true }

func (r *stubRuntime) Shutdown(context.Context) error { return nil }

func newInvocation(config exec.Config, rt *stubRuntime, out *bytes.Buffer) *exec.Invocation {
	return exec.NewInvocation(exec.InvocationParams{
		Context: context.Background(),
		Config:  config,
		Runtime: rt,
		Output:  out,
		Log:     zap.NewNop(),
	})
}

func TestInvocation_Run(t *testing.T) {
	rt := &stubRuntime{res: models.Response{
		Status:  http.StatusOK,
		Headers: map[string]string{"content-type": "text/plain"},
		Body:    "hi",
	}}

	var out bytes.Buffer

	code := newInvocation(exec.Config{
		Script: "greet.ts",
		Method: "post",
		Body:   `{"name":"Ada"}`,
		Header: []string{"X-User: ada", "Accept:application/json"},
	}, rt, &out).Run(context.Background())

	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"status":200,"headers":{"content-type":"text/plain"},"body":"hi"}`, out.String())

	require.Len(t, rt.tasks, 1)

	task := rt.tasks[0]
	assert.Equal(t, "greet.ts", task.Script)
	assert.Equal(t, execution.TransportCLI, task.Transport)
	assert.Equal(t, "POST", task.Request.Method)
	assert.Equal(t, "/js/greet.ts", task.Request.Path)
	assert.Equal(t, `{"name":"Ada"}`, task.Request.Body)
	assert.Equal(t, map[string]string{"x-user": "ada", "accept": "application/json"}, task.Request.Headers)
}

func TestInvocation_Run_Defaults(t *testing.T) {
	rt := &stubRuntime{res: models.NewResponse(http.StatusOK, "")}

	var out bytes.Buffer
	newInvocation(exec.Config{Script: "hello.js", Path: "/custom"}, rt, &out).Run(context.Background())

	require.Len(t, rt.tasks, 1)
	assert.Equal(t, http.MethodGet, rt.tasks[0].Request.Method)
	assert.Equal(t, "/custom", rt.tasks[0].Request.Path)
}

func TestInvocation_Run_ExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		config exec.Config
		res    models.Response
		err    error
		code   int
	}{
		{"error status", exec.Config{Script: "a.js"}, models.InternalError("boom"), nil, 1},
		{"not found", exec.Config{Script: "a.js"}, models.Response{}, execution.ErrScriptNotFound, 1},
		{"invalid header", exec.Config{Script: "a.js", Header: []string{"no-colon"}}, models.Response{}, nil, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &stubRuntime{res: tt.res, err: tt.err}

			var out bytes.Buffer
			code := newInvocation(tt.config, rt, &out).Run(context.Background())

			assert.Equal(t, tt.code, code)
		})
	}
}
