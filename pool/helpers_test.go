package pool

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"
	"time"
)

// TestMain lets the test binary double as the worker executable.
func TestMain(m *testing.M) {
	Init()
	os.Exit(m.Run())
}

// span is the wall-clock interval during which a worker ran its function.
type span struct {
	Start int64
	End   int64
}

// brokenResult cannot be gob encoded.
type brokenResult struct{}

func (brokenResult) GobEncode() ([]byte, error) {
	return nil, errors.New("brokenResult refuses to encode")
}

func (*brokenResult) GobDecode([]byte) error {
	return nil
}

var (
	squareFn = Register("test.square", func(_ context.Context, x int) (int, error) {
		return x * x, nil
	})

	// napFn sleeps for ms milliseconds and returns ms. Negative input fails.
	napFn = Register("test.nap", func(_ context.Context, ms int) (int, error) {
		if ms < 0 {
			return 0, errors.New("negative nap")
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return ms, nil
	})

	divideFn = Register("test.divide", func(_ context.Context, x int) (int, error) {
		return 100 / x, nil
	})

	failFn = Register("test.fail", func(_ context.Context, msg string) (string, error) {
		return "", errors.New(msg)
	})

	exitFn = Register("test.exit", func(_ context.Context, code int) (int, error) {
		os.Exit(code)
		return 0, nil
	})

	pidFn = Register("test.pid", func(_ context.Context, _ int) (int, error) {
		return os.Getpid(), nil
	})

	stampFn = Register("test.stamp", func(_ context.Context, ms int) (span, error) {
		s := span{Start: time.Now().UnixNano()}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		s.End = time.Now().UnixNano()
		return s, nil
	})

	bigFn = Register("test.big", func(_ context.Context, n int) (string, error) {
		return strings.Repeat("x", n), nil
	})

	brokenFn = Register("test.broken", func(_ context.Context, _ int) (brokenResult, error) {
		return brokenResult{}, nil
	})

	ptrFn = Register("test.ptr", func(_ context.Context, x int) (*int, error) {
		if x == 0 {
			return nil, nil
		}
		return &x, nil
	})
)

// newTestPool creates a pool that polls quickly and keeps its files in a
// private directory, which it returns.
func newTestPool[A, R any](t *testing.T, opts ...Option) (*ProcessPool[A, R], string) {
	t.Helper()
	dir := t.TempDir()
	base := []Option{WithTempDir(dir), WithPollInterval(10 * time.Millisecond)}
	return NewProcessPool[A, R](append(base, opts...)...), dir
}

// transportFiles lists the files left in dir.
func transportFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names
}

func sequential[A, R any](inputs []A, fn func(A) R) []R {
	out := make([]R, len(inputs))
	for i, in := range inputs {
		out[i] = fn(in)
	}
	return out
}
