package runtime_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lambda-feedback/scripthost/internal/execution"
	"github.com/lambda-feedback/scripthost/models"
)

// MockRuntime is a mock type for the Runtime type
type MockRuntime struct {
	mock.Mock
}

type MockRuntime_Expecter struct {
	mock *mock.Mock
}

func (_m *MockRuntime) EXPECT() *MockRuntime_Expecter {
	return &MockRuntime_Expecter{mock: &_m.Mock}
}

// Execute provides a mock function with given fields: ctx, task
func (_m *MockRuntime) Execute(ctx context.Context, task execution.Task) (models.Response, error) {
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

// MockRuntime_Execute_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Execute'
type MockRuntime_Execute_Call struct {
	*mock.Call
}

// Execute is a helper method to define mock.On call
//   - ctx context.Context
//   - task execution.Task
func (_e *MockRuntime_Expecter) Execute(ctx interface{}, task interface{}) *MockRuntime_Execute_Call {
	return &MockRuntime_Execute_Call{Call: _e.mock.On("Execute", ctx, task)}
}

func (_c *MockRuntime_Execute_Call) Run(run func(ctx context.Context, task execution.Task)) *MockRuntime_Execute_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(execution.Task))
	})
	return _c
}

func (_c *MockRuntime_Execute_Call) Return(_a0 models.Response, _a1 error) *MockRuntime_Execute_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockRuntime_Execute_Call) RunAndReturn(run func(context.Context, execution.Task) (models.Response, error)) *MockRuntime_Execute_Call {
	_c.Call.Return(run)
	return _c
}

// Exists provides a mock function with given fields: script
func (_m *MockRuntime) Exists(script string) bool {
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

// MockRuntime_Exists_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Exists'
type MockRuntime_Exists_Call struct {
	*mock.Call
}

// Exists is a helper method to define mock.On call
//   - script string
func (_e *MockRuntime_Expecter) Exists(script interface{}) *MockRuntime_Exists_Call {
	return &MockRuntime_Exists_Call{Call: _e.mock.On("Exists", script)}
}

func (_c *MockRuntime_Exists_Call) Run(run func(script string)) *MockRuntime_Exists_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(string))
	})
	return _c
}

func (_c *MockRuntime_Exists_Call) Return(_a0 bool) *MockRuntime_Exists_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockRuntime_Exists_Call) RunAndReturn(run func(string) bool) *MockRuntime_Exists_Call {
	_c.Call.Return(run)
	return _c
}

// Shutdown provides a mock function with given fields: ctx
func (_m *MockRuntime) Shutdown(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Shutdown")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// MockRuntime_Shutdown_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Shutdown'
type MockRuntime_Shutdown_Call struct {
	*mock.Call
}

// Shutdown is a helper method to define mock.On call
//   - ctx context.Context
func (_e *MockRuntime_Expecter) Shutdown(ctx interface{}) *MockRuntime_Shutdown_Call {
	return &MockRuntime_Shutdown_Call{Call: _e.mock.On("Shutdown", ctx)}
}

func (_c *MockRuntime_Shutdown_Call) Run(run func(ctx context.Context)) *MockRuntime_Shutdown_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context))
	})
	return _c
}

func (_c *MockRuntime_Shutdown_Call) Return(_a0 error) *MockRuntime_Shutdown_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockRuntime_Shutdown_Call) RunAndReturn(run func(context.Context) error) *MockRuntime_Shutdown_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockRuntime creates a new instance of MockRuntime. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockRuntime(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRuntime {
	mock := &MockRuntime{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
