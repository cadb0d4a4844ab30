package pool

import (
	"cmp"
	"context"
	"iter"
	"maps"
	"slices"
	"sync/atomic"
)

// ProcessPool runs registered functions in worker processes, at most
// MaxParallel at a time.
//
// A ProcessPool holds configuration only. Every call owns its own workers and
// files, so one pool may serve concurrent calls.
//
// Type parameters:
//   - A: The argument type
//   - R: The result type
type ProcessPool[A any, R any] struct {
	conf *config
}

// NewProcessPool creates a new process pool with the given options.
//
// Default configuration:
//   - maxParallel: number of CPUs available to this process
//   - tempDir: os.TempDir()
//   - poll interval: 100ms, fixed
//   - killOnFailure: true
//
// Example:
//
//	p := NewProcessPool[string, Digest](
//	    WithMaxParallel(8),
//	    WithTempDir("/mnt/scratch"),
//	)
func NewProcessPool[A any, R any](opts ...Option) *ProcessPool[A, R] {
	return &ProcessPool[A, R]{
		conf: newConfig(opts...),
	}
}

// MaxParallel returns the maximum number of concurrent worker processes.
func (pp *ProcessPool[A, R]) MaxParallel() int {
	return pp.conf.maxParallel
}

// ProcessUnordered runs fn once per input, each in its own process, and
// yields results in the order the workers finish.
//
// The returned sequence is lazy: no worker starts until it is ranged over.
// It is also single-use: ranging over it again yields nothing. When a worker
// fails, the sequence yields one final (zero, err) pair and stops. Breaking out
// of the loop early, or panicking in it, kills and reaps the workers that are
// still running.
//
// Example:
//
//	for v, err := range pool.ProcessUnordered(ctx, square, slices.Values(inputs)) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(v)
//	}
func (pp *ProcessPool[A, R]) ProcessUnordered(
	ctx context.Context,
	fn *Func[A, R],
	inputs iter.Seq[A],
) iter.Seq2[R, error] {
	var consumed atomic.Bool

	return func(yield func(R, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}

		err := pp.stream(ctx, fn, inputs, func(r indexedResult[R]) bool {
			return yield(r.value, nil)
		})
		if err != nil {
			var zero R
			yield(zero, err)
		}
	}
}

// Process runs fn once per task, each in its own process, and returns the
// results in the same order as tasks.
//
// Parameters:
//   - ctx: Cancelling it kills the running workers
//   - fn: A function created by Register
//   - tasks: Arguments, one worker each
//
// Returns:
//   - results: One result per task in task order, or nil on failure
//   - error: The first failure, typically a *ChildError
//
// Example:
//
//	results, err := pool.Process(ctx, square, []int{1, 2, 3, 4, 5})
//	// results: [1 4 9 16 25]
func (pp *ProcessPool[A, R]) Process(
	ctx context.Context,
	fn *Func[A, R],
	tasks []A,
) ([]R, error) {
	if len(tasks) == 0 {
		if !fn.registered() {
			return nil, ErrNotRegistered
		}
		return []R{}, nil
	}
	return pp.collect(ctx, fn, slices.Values(tasks), len(tasks))
}

// ProcessSeq is Process for an arbitrary sequence of tasks. The sequence is
// consumed lazily, one item per free worker slot.
func (pp *ProcessPool[A, R]) ProcessSeq(
	ctx context.Context,
	fn *Func[A, R],
	tasks iter.Seq[A],
) ([]R, error) {
	return pp.collect(ctx, fn, tasks, 0)
}

// ProcessMap runs fn once per map entry and returns the results under the
// same keys. Workers are started in sorted key order.
//
// Example:
//
//	tasks := map[string]int{"a": 1, "b": 2, "c": 3}
//	results, err := pool.ProcessMap(ctx, square, tasks)
//	// results: map[a:1 b:4 c:9]
func (pp *ProcessPool[A, R]) ProcessMap(
	ctx context.Context,
	fn *Func[A, R],
	tasks map[string]A,
) (map[string]R, error) {
	keys := slices.Sorted(maps.Keys(tasks))

	args := func(yield func(A) bool) {
		for _, k := range keys {
			if !yield(tasks[k]) {
				return
			}
		}
	}

	values, err := pp.collect(ctx, fn, args, len(keys))
	if err != nil {
		return nil, err
	}

	results := make(map[string]R, len(keys))
	for i, k := range keys {
		results[k] = values[i]
	}
	return results, nil
}

// collect runs the unordered stream to completion and restores input order.
func (pp *ProcessPool[A, R]) collect(
	ctx context.Context,
	fn *Func[A, R],
	tasks iter.Seq[A],
	sizeHint int,
) ([]R, error) {
	indexed := make([]indexedResult[R], 0, sizeHint)

	err := pp.stream(ctx, fn, tasks, func(r indexedResult[R]) bool {
		indexed = append(indexed, r)
		return true
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(indexed, func(a, b indexedResult[R]) int {
		return cmp.Compare(a.index, b.index)
	})

	results := make([]R, len(indexed))
	for i, r := range indexed {
		results[i] = r.value
	}
	return results, nil
}

// stream runs one call of the completion poller over tasks.
func (pp *ProcessPool[A, R]) stream(
	ctx context.Context,
	fn *Func[A, R],
	tasks iter.Seq[A],
	yield func(indexedResult[R]) bool,
) error {
	if !fn.registered() {
		return ErrNotRegistered
	}

	next, stop := iter.Pull(tasks)
	defer stop()

	return newPoller(ctx, pp.conf, fn, next).run(yield)
}

// ParallelMapUnordered is a shortcut for NewProcessPool(opts...).ProcessUnordered.
func ParallelMapUnordered[A, R any](
	ctx context.Context,
	fn *Func[A, R],
	inputs iter.Seq[A],
	opts ...Option,
) iter.Seq2[R, error] {
	return NewProcessPool[A, R](opts...).ProcessUnordered(ctx, fn, inputs)
}

// ParallelMap is a shortcut for NewProcessPool(opts...).ProcessSeq: it returns
// one result per input, in input order.
func ParallelMap[A, R any](
	ctx context.Context,
	fn *Func[A, R],
	inputs iter.Seq[A],
	opts ...Option,
) ([]R, error) {
	return NewProcessPool[A, R](opts...).ProcessSeq(ctx, fn, inputs)
}
