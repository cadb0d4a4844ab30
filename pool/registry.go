package pool

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// Environment variables passed from the coordinator to a worker process.
const (
	EnvWorkerFunc   = "PROCPOOL_WORKER_FUNC"
	EnvWorkerInput  = "PROCPOOL_WORKER_INPUT"
	EnvWorkerOutput = "PROCPOOL_WORKER_OUTPUT"
	EnvLogLevel     = "PROCPOOL_LOG_LEVEL"
)

// Worker exit codes.
const (
	exitOK           = 0
	exitFuncFailed   = 1 // the function returned an error or panicked
	exitEncodeFailed = 2 // the result could not be encoded or written
	exitProtocol     = 3 // unknown function, missing environment or unreadable input
)

// workerEntry runs a registered function inside a worker and returns the exit code.
type workerEntry func(ctx context.Context, inputPath, outputPath string, log logrus.FieldLogger) int

var registry = struct {
	mu    sync.RWMutex
	funcs map[string]workerEntry
}{funcs: make(map[string]workerEntry)}

// Func is a function registered for execution in worker processes.
// Create it with Register, normally as a package-level variable.
type Func[A any, R any] struct {
	name string
	fn   ProcessFunc[A, R]
}

// Name returns the name the function was registered under.
func (f *Func[A, R]) Name() string {
	return f.name
}

// Register makes fn runnable in worker processes under name.
//
// Workers are re-executions of the current binary, so registration must
// happen identically in every process: call Register from package-level
// variable initialisers or init functions, never conditionally.
//
// Panics:
//
//	If name is empty, fn is nil, or name is already registered.
func Register[A any, R any](name string, fn ProcessFunc[A, R]) *Func[A, R] {
	if name == "" {
		panic("pool: Register called with an empty name")
	}
	if fn == nil {
		panic(fmt.Sprintf("pool: Register(%q) called with a nil function", name))
	}

	f := &Func[A, R]{name: name, fn: fn}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, dup := registry.funcs[name]; dup {
		panic(fmt.Sprintf("pool: function %q registered twice", name))
	}
	registry.funcs[name] = f.run

	return f
}

func lookup(name string) (workerEntry, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	entry, ok := registry.funcs[name]
	return entry, ok
}

// registered reports whether f was created by Register.
func (f *Func[A, R]) registered() bool {
	if f == nil || f.fn == nil {
		return false
	}
	_, ok := lookup(f.name)
	return ok
}

// Init turns the current process into a worker when it was started by a
// ProcessPool, and returns immediately otherwise. Inside a worker it runs the
// requested function and terminates the process; it never returns.
//
// Call Init at the very top of main, or of TestMain in tests.
func Init() {
	name, ok := os.LookupEnv(EnvWorkerFunc)
	if !ok {
		return
	}

	inputPath := os.Getenv(EnvWorkerInput)
	outputPath := os.Getenv(EnvWorkerOutput)

	// A function that uses the pool itself must start fresh workers, not
	// re-enter this one.
	_ = os.Unsetenv(EnvWorkerFunc)
	_ = os.Unsetenv(EnvWorkerInput)
	_ = os.Unsetenv(EnvWorkerOutput)

	code := runWorker(context.Background(), name, inputPath, outputPath)

	flushStdio()
	// os.Exit skips deferred calls and anything else the inherited program
	// state would run on a normal return from main.
	os.Exit(code)
}

// runWorker executes the worker side of the protocol and returns the exit code.
func runWorker(ctx context.Context, name, inputPath, outputPath string) int {
	log := newDefaultLogger().WithFields(logrus.Fields{
		"func": name,
		"pid":  os.Getpid(),
	})

	if inputPath == "" || outputPath == "" {
		log.Error("worker started without input or output file")
		return exitProtocol
	}

	entry, ok := lookup(name)
	if !ok {
		log.Error("worker started for an unregistered function")
		return exitProtocol
	}

	return entry(ctx, inputPath, outputPath, log)
}

func (f *Func[A, R]) run(ctx context.Context, inputPath, outputPath string, log logrus.FieldLogger) int {
	arg, err := readValue[A](inputPath)
	if err != nil {
		log.WithError(err).Error("failed to decode worker input")
		return exitProtocol
	}

	result, err := invokeWithRecovery(ctx, f.fn, arg)
	if err != nil {
		log.WithError(err).Error("work item failed")
		return exitFuncFailed
	}

	if err := writeValue(outputPath, result); err != nil {
		log.WithError(err).Error("failed to write worker result")
		return exitEncodeFailed
	}

	return exitOK
}

// invokeWithRecovery calls fn, converting a panic into an error that carries
// the stack trace.
func invokeWithRecovery[A, R any](ctx context.Context, fn ProcessFunc[A, R], arg A) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("worker panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()

	return fn(ctx, arg)
}
