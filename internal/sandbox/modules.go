package sandbox

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/loader"
)

const (
	wrapperHead      = "(function (exports, require, module, __filename, __dirname) {"
	asyncWrapperHead = "(async function (exports, require, module, __filename, __dirname) {"
	wrapperTail      = "\n})"
)

// nativeModules are served by the node require registry instead of the
// loader, mapped to the global they expose.
var nativeModules = map[string]string{
	"console": "console",
}

// linker evaluates modules loaded through the loader as CommonJS, each
// at most once per sandbox.
type linker struct {
	vm      *goja.Runtime
	loader  *loader.Loader
	native  goja.Callable
	modules map[string]*goja.Object
	log     *zap.Logger
}

func newLinker(vm *goja.Runtime, ldr *loader.Loader, native goja.Callable, log *zap.Logger) *linker {
	return &linker{
		vm:      vm,
		loader:  ldr,
		native:  native,
		modules: make(map[string]*goja.Object),
		log:     log,
	}
}

// main evaluates the entry module. An entry awaiting at the top level
// is linked with its imports into an async body; the returned promise
// settles once that body has run. It is nil for all other entries.
func (l *linker) main(location string) (*goja.Promise, error) {
	code, err := l.commonJS(location)
	switch {
	case errors.Is(err, loader.ErrTopLevelAwait):
		return l.async(location)
	case err != nil:
		return nil, err
	}

	_, _, err = l.evaluate(location, wrapperHead, code)
	return nil, err
}

func (l *linker) require(location string) (goja.Value, error) {
	if module, ok := l.modules[location]; ok {
		return module.Get("exports"), nil
	}

	code, err := l.commonJS(location)
	if err != nil {
		return nil, err
	}

	module, _, err := l.evaluate(location, wrapperHead, code)
	if err != nil {
		return nil, err
	}

	return module.Get("exports"), nil
}

// commonJS loads and transpiles the module at location.
func (l *linker) commonJS(location string) (string, error) {
	src, err := l.loader.Load(location)
	if err != nil {
		return "", loadError(err)
	}

	code, err := l.loader.CommonJS(src)
	if err != nil {
		return "", loadError(err)
	}

	return code, nil
}

func (l *linker) async(location string) (*goja.Promise, error) {
	code, err := l.loader.AsyncBody(location, nativeModules)
	if err != nil {
		return nil, loadError(err)
	}

	_, result, err := l.evaluate(location, asyncWrapperHead, code)
	if err != nil {
		return nil, err
	}

	promise, ok := result.Export().(*goja.Promise)
	if !ok {
		return nil, fmt.Errorf("%w: %s did not evaluate to a promise", ErrLoad, location)
	}

	return promise, nil
}

// evaluate compiles code into a module function using head and calls it.
// The module is registered first so cycles see the partially populated
// exports.
func (l *linker) evaluate(location, head, code string) (*goja.Object, goja.Value, error) {
	log := l.log.With(zap.String("module", filepath.Base(location)))

	program, err := goja.Compile(location, head+code+wrapperTail, false)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	wrapper, err := l.vm.RunProgram(program)
	if err != nil {
		return nil, nil, evaluateError(err)
	}

	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s did not compile to a function", ErrLoad, location)
	}

	exports := l.vm.NewObject()
	module := l.vm.NewObject()
	_ = module.Set("id", location)
	_ = module.Set("exports", exports)
	l.modules[location] = module

	result, err := fn(exports,
		exports,
		l.vm.ToValue(l.requireFrom(location)),
		module,
		l.vm.ToValue(location),
		l.vm.ToValue(filepath.Dir(location)),
	)
	if err != nil {
		delete(l.modules, location)
		return nil, nil, evaluateError(err)
	}

	log.Debug("evaluated module")

	return module, result, nil
}

// requireFrom returns the require function handed to the module at
// referrer.
func (l *linker) requireFrom(referrer string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		specifier := call.Argument(0).String()

		if _, ok := nativeModules[specifier]; ok {
			value, err := l.native(goja.Undefined(), l.vm.ToValue(specifier))
			if err != nil {
				l.throw(err)
			}
			return value
		}

		location, err := l.loader.Resolve(specifier, referrer)
		if err != nil {
			l.throw(loadError(err))
		}

		value, err := l.require(location)
		if err != nil {
			l.throw(err)
		}

		return value
	}
}

// throw raises err inside the guest, preserving guest exceptions and
// interrupts.
func (l *linker) throw(err error) {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		panic(interrupted)
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex.Value())
	}

	panic(l.vm.NewGoError(err))
}

// MARK: - helpers

func loadError(err error) error {
	switch {
	case errors.Is(err, loader.ErrNotFound),
		errors.Is(err, loader.ErrRead),
		errors.Is(err, loader.ErrOutsideRoot):
		return fmt.Errorf("%w: %w", ErrScriptUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
}

func evaluateError(err error) error {
	if errors.Is(err, ErrScriptUnavailable) || errors.Is(err, ErrLoad) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEvaluate, err)
}
