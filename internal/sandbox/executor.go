package sandbox

import (
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/absmartly/preview-engine/internal/logging"
	"github.com/absmartly/preview-engine/internal/marker"
	"github.com/absmartly/preview-engine/internal/sanitize"
)

// scriptWrapper puts user code into a function scope that receives exactly
// the five contract bindings and nothing else.
const (
	wrapperPrefix = "(function(element, document, window, console, experimentName) {\n"
	wrapperSuffix = "\n})"
)

// Executor runs validated script against a page. Each execution gets a
// fresh VM; nothing persists between calls.
type Executor struct {
	config    Config
	validator *Validator
	sanitizer *sanitize.Sanitizer
	logger    *logging.Logger
}

// NewExecutor creates an executor with the given limits.
func NewExecutor(cfg Config, logger *logging.Logger) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxScriptLength <= 0 {
		cfg.MaxScriptLength = DefaultConfig().MaxScriptLength
	}
	if cfg.MaxCallStack <= 0 {
		cfg.MaxCallStack = DefaultConfig().MaxCallStack
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		config:    cfg,
		validator: NewValidator(cfg.MaxScriptLength),
		sanitizer: sanitize.New(),
		logger:    logger,
	}
}

// Validate runs the static validation pass without executing anything.
func (e *Executor) Validate(code string) ValidationResult {
	return e.validator.Validate(code)
}

// Execute validates and runs code with the five-binding contract. Returns
// false without side effects when code is empty or validation rejects it,
// and false when execution fails at compile or run time. Errors never
// propagate to the caller.
func (e *Executor) Execute(code string, execCtx Context) (ok bool) {
	experiment := execCtx.ExperimentName
	if experiment == "" {
		experiment = marker.PreviewSentinel
	}

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("sandboxed execution panicked",
				zap.Any("panic", rec),
				zap.String("experiment", experiment),
			)
			ok = false
		}
	}()

	if code == "" {
		e.logger.Warn("empty script rejected", zap.String("experiment", experiment))
		return false
	}

	// Validation runs on every call, never cached. A rejection here is a
	// security event, not a style warning.
	result := e.validator.Validate(code)
	if !result.Valid {
		e.logger.Error("script failed security validation",
			zap.String("reason", result.Reason),
			zap.String("experiment", experiment),
		)
		return false
	}
	for _, w := range result.Warnings {
		e.logger.Warn("script validation warning",
			zap.String("warning", w),
			zap.String("experiment", experiment),
		)
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(e.config.MaxCallStack)
	hardenRuntime(vm)

	timer := time.AfterFunc(e.config.Timeout, func() {
		vm.Interrupt("execution timeout exceeded")
	})
	defer timer.Stop()

	bridge := newBridge(vm, execCtx.Page, e.sanitizer, e.logger)

	compiled, err := vm.RunString(wrapperPrefix + code + wrapperSuffix)
	if err != nil {
		e.logger.Error("script failed to compile",
			zap.Error(err),
			zap.String("experiment", experiment),
		)
		return false
	}

	fn, isFn := goja.AssertFunction(compiled)
	if !isFn {
		e.logger.Error("script wrapper did not produce a function",
			zap.String("experiment", experiment),
		)
		return false
	}

	_, err = fn(goja.Undefined(),
		bridge.elementValue(execCtx.Element),
		bridge.documentObject(),
		bridge.windowObject(),
		bridge.consoleObject(experiment),
		vm.ToValue(experiment),
	)
	if err != nil {
		e.logger.Error("script execution failed",
			zap.Error(err),
			zap.String("experiment", experiment),
		)
		return false
	}

	return true
}

// hardenRuntime removes Node-style escape hatches and neuters timers.
func hardenRuntime(vm *goja.Runtime) {
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())

	noop := func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	}
	vm.Set("setTimeout", noop)
	vm.Set("setInterval", noop)
	vm.Set("setImmediate", noop)
}
