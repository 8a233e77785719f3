package execution_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lambda-feedback/scripthost/internal/sandbox"
)

// MockRunner is a mock type for the Runner type
type MockRunner struct {
	mock.Mock
}

type MockRunner_Expecter struct {
	mock *mock.Mock
}

func (_m *MockRunner) EXPECT() *MockRunner_Expecter {
	return &MockRunner_Expecter{mock: &_m.Mock}
}

// Run provides a mock function with given fields: ctx, inv
func (_m *MockRunner) Run(ctx context.Context, inv sandbox.Invocation) error {
	ret := _m.Called(ctx, inv)

	if len(ret) == 0 {
		panic("no return value specified for Run")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, sandbox.Invocation) error); ok {
		r0 = rf(ctx, inv)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// MockRunner_Run_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Run'
type MockRunner_Run_Call struct {
	*mock.Call
}

// Run is a helper method to define mock.On call
//   - ctx context.Context
//   - inv sandbox.Invocation
func (_e *MockRunner_Expecter) Run(ctx interface{}, inv interface{}) *MockRunner_Run_Call {
	return &MockRunner_Run_Call{Call: _e.mock.On("Run", ctx, inv)}
}

func (_c *MockRunner_Run_Call) Run(run func(ctx context.Context, inv sandbox.Invocation)) *MockRunner_Run_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(sandbox.Invocation))
	})
	return _c
}

func (_c *MockRunner_Run_Call) Return(_a0 error) *MockRunner_Run_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockRunner_Run_Call) RunAndReturn(run func(context.Context, sandbox.Invocation) error) *MockRunner_Run_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockRunner creates a new instance of MockRunner. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockRunner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRunner {
	mock := &MockRunner{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
