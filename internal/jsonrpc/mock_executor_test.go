package jsonrpc_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lambda-feedback/scripthost/internal/execution"
	"github.com/lambda-feedback/scripthost/models"
)

// MockExecutor is a mock type for the Executor type
type MockExecutor struct {
	mock.Mock
}

type MockExecutor_Expecter struct {
	mock *mock.Mock
}

func (_m *MockExecutor) EXPECT() *MockExecutor_Expecter {
	return &MockExecutor_Expecter{mock: &_m.Mock}
}

// Execute provides a mock function with given fields: ctx, task
func (_m *MockExecutor) Execute(ctx context.Context, task execution.Task) (models.Response, error) {
	ret := _m.Called(ctx, task)

	if len(ret) == 0 {
		panic("no return value specified for Execute")
	}

	var r0 models.Response
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, execution.Task) (models.Response, error)); ok {
		return rf(ctx, task)
	}
	if rf, ok := ret.Get(0).(func(context.Context, execution.Task) models.Response); ok {
		r0 = rf(ctx, task)
	} else {
		r0 = ret.Get(0).(models.Response)
	}

	if rf, ok := ret.Get(1).(func(context.Context, execution.Task) error); ok {
		r1 = rf(ctx, task)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockExecutor_Execute_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Execute'
type MockExecutor_Execute_Call struct {
	*mock.Call
}

// Execute is a helper method to define mock.On call
//   - ctx context.Context
//   - task execution.Task
func (_e *MockExecutor_Expecter) Execute(ctx interface{}, task interface{}) *MockExecutor_Execute_Call {
	return &MockExecutor_Execute_Call{Call: _e.mock.On("Execute", ctx, task)}
}

func (_c *MockExecutor_Execute_Call) Run(run func(ctx context.Context, task execution.Task)) *MockExecutor_Execute_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(execution.Task))
	})
	return _c
}

func (_c *MockExecutor_Execute_Call) Return(_a0 models.Response, _a1 error) *MockExecutor_Execute_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockExecutor_Execute_Call) RunAndReturn(run func(context.Context, execution.Task) (models.Response, error)) *MockExecutor_Execute_Call {
	_c.Call.Return(run)
	return _c
}

// Exists provides a mock function with given fields: script
func (_m *MockExecutor) Exists(script string) bool {
	ret := _m.Called(script)

	if len(ret) == 0 {
		panic("no return value specified for Exists")
	}

	var r0 bool
	if rf, ok := ret.Get(0).(func(string) bool); ok {
		r0 = rf(script)
	} else {
		r0 = ret.Get(0).(bool)
	}

	return r0
}

// MockExecutor_Exists_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Exists'
type MockExecutor_Exists_Call struct {
	*mock.Call
}

// Exists is a helper method to define mock.On call
//   - script string
func (_e *MockExecutor_Expecter) Exists(script interface{}) *MockExecutor_Exists_Call {
	return &MockExecutor_Exists_Call{Call: _e.mock.On("Exists", script)}
}

func (_c *MockExecutor_Exists_Call) Run(run func(script string)) *MockExecutor_Exists_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(string))
	})
	return _c
}

func (_c *MockExecutor_Exists_Call) Return(_a0 bool) *MockExecutor_Exists_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockExecutor_Exists_Call) RunAndReturn(run func(string) bool) *MockExecutor_Exists_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockExecutor creates a new instance of MockExecutor. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockExecutor(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockExecutor {
	mock := &MockExecutor{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
