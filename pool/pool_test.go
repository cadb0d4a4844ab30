package pool

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPool_Process_Squares(t *testing.T) {
	pool, _ := newTestPool[int, int](t, WithMaxParallel(2))

	results, err := pool.Process(context.Background(), squareFn, []int{1, 2, 3, 4, 5})
	require.NoError(t, err)

	if diff := cmp.Diff([]int{1, 4, 9, 16, 25}, results); diff != "" {
		t.Errorf("wrong results (-want +got):\n%s", diff)
	}
}

func TestProcessPool_Process_MatchesSequential(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		maxParallel int
	}{
		{"single task", 1, 4},
		{"fewer tasks than workers", 3, 8},
		{"more tasks than workers", 17, 4},
		{"one worker", 6, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, _ := newTestPool[int, int](t, WithMaxParallel(tt.maxParallel))

			tasks := make([]int, tt.count)
			for i := range tasks {
				tasks[i] = i*3 - 7
			}

			results, err := pool.Process(context.Background(), squareFn, tasks)
			require.NoError(t, err)

			want := sequential(tasks, func(x int) int { return x * x })
			if diff := cmp.Diff(want, results); diff != "" {
				t.Errorf("wrong results (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProcessPool_Process_EmptyTasks(t *testing.T) {
	pool, _ := newTestPool[int, int](t)

	results, err := pool.Process(context.Background(), squareFn, []int{})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestProcessPool_Process_RunsInSeparateProcesses(t *testing.T) {
	pool, _ := newTestPool[int, int](t, WithMaxParallel(4))

	pids, err := pool.Process(context.Background(), pidFn, []int{0, 1, 2, 3, 4, 5})
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, pid := range pids {
		assert.NotEqual(t, os.Getpid(), pid, "work ran in the coordinator")
		assert.False(t, seen[pid], "pid %d ran two items", pid)
		seen[pid] = true
	}
}

func TestProcessPool_Process_LargeResult(t *testing.T) {
	pool, _ := newTestPool[int, string](t, WithMaxParallel(2))

	const size = 48 << 20
	results, err := pool.Process(context.Background(), bigFn, []int{size, 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0], size)
	assert.Equal(t, "xxxxxxxxxx", results[1])
}

func TestProcessPool_Process_NilPointerResult(t *testing.T) {
	pool, _ := newTestPool[int, *int](t)

	results, err := pool.Process(context.Background(), ptrFn, []int{0, 5})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Nil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, 5, *results[1])
}

func TestProcessPool_ProcessUnordered_CompletionOrder(t *testing.T) {
	pool, _ := newTestPool[int, int](t, WithMaxParallel(3))

	var got []int
	for v, err := range pool.ProcessUnordered(context.Background(), napFn, slices.Values([]int{600, 200, 400})) {
		require.NoError(t, err)
		got = append(got, v)
	}

	if diff := cmp.Diff([]int{200, 400, 600}, got); diff != "" {
		t.Errorf("results not in completion order (-want +got):\n%s", diff)
	}
}

func TestProcessPool_ProcessUnordered_SameMultisetAsSequential(t *testing.T) {
	pool, _ := newTestPool[int, int](t, WithMaxParallel(3))

	tasks := []int{4, -2, 7, 4, 0, 9, -2, 1}
	var got []int
	for v, err := range pool.ProcessUnordered(context.Background(), squareFn, slices.Values(tasks)) {
		require.NoError(t, err)
		got = append(got, v)
	}

	want := sequential(tasks, func(x int) int { return x * x })
	slices.Sort(want)
	slices.Sort(got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrong multiset (-want +got):\n%s", diff)
	}
}

func TestProcessPool_ProcessUnordered_SinglePass(t *testing.T) {
	pool, _ := newTestPool[int, int](t, WithMaxParallel(2))
	seq := pool.ProcessUnordered(context.Background(), squareFn, slices.Values([]int{1, 2, 3}))

	first := 0
	for _, err := range seq {
		require.NoError(t, err)
		first++
	}
	assert.Equal(t, 3, first)

	second := 0
	for range seq {
		second++
	}
	assert.Zero(t, second, "second pass should yield nothing")
}

func TestProcessPool_ProcessUnordered_Lazy(t *testing.T) {
	var spawned int
	pool, _ := newTestPool[int, int](t, WithOnSpawn(func(WorkerInfo) { spawned++ }))

	seq := pool.ProcessUnordered(context.Background(), squareFn, slices.Values([]int{1, 2, 3}))
	assert.Zero(t, spawned, "workers started before iteration")

	for _, err := range seq {
		require.NoError(t, err)
	}
	assert.Equal(t, 3, spawned)
}

func TestProcessPool_ProcessUnordered_EarlyBreakCleansUp(t *testing.T) {
	pool, dir := newTestPool[int, int](t, WithMaxParallel(3))

	start := time.Now()
	for v, err := range pool.ProcessUnordered(context.Background(), napFn, slices.Values([]int{10, 5000, 5000, 5000})) {
		require.NoError(t, err)
		assert.Equal(t, 10, v)
		break
	}

	assert.Less(t, time.Since(start), 3*time.Second, "break waited for the running workers")
	assert.Empty(t, transportFiles(t, dir))
}

func TestProcessPool_ProcessUnordered_FailureEndsStream(t *testing.T) {
	pool, _ := newTestPool[int, int](t, WithMaxParallel(1))

	var values []int
	var errs []error
	for v, err := range pool.ProcessUnordered(context.Background(), divideFn, slices.Values([]int{5, 0, 10})) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values = append(values, v)
	}

	assert.Equal(t, []int{20}, values)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrChildFailed)
}

func TestProcessPool_ProcessSeq(t *testing.T) {
	pool, _ := newTestPool[int, int](t, WithMaxParallel(2))

	gen := func(yield func(int) bool) {
		for i := range 6 {
			if !yield(i) {
				return
			}
		}
	}

	results, err := pool.ProcessSeq(context.Background(), squareFn, gen)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4, 9, 16, 25}, results)
}

func TestProcessPool_ProcessMap(t *testing.T) {
	pool, _ := newTestPool[int, int](t, WithMaxParallel(2))

	tasks := map[string]int{"a": 1, "b": 2, "c": 3, "d": -4}
	results, err := pool.ProcessMap(context.Background(), squareFn, tasks)
	require.NoError(t, err)

	want := map[string]int{"a": 1, "b": 4, "c": 9, "d": 16}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("wrong results (-want +got):\n%s", diff)
	}
}

func TestProcessPool_ProcessMap_Empty(t *testing.T) {
	pool, _ := newTestPool[int, int](t)

	results, err := pool.ProcessMap(context.Background(), squareFn, map[string]int{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProcessPool_ConcurrentCalls(t *testing.T) {
	pool, dir := newTestPool[int, int](t, WithMaxParallel(2))

	const calls = 3
	results := make([][]int, calls)
	errs := make([]error, calls)

	var wg sync.WaitGroup
	for c := range calls {
		wg.Go(func() {
			tasks := []int{c, c + 10, c + 20, c + 30}
			results[c], errs[c] = pool.Process(context.Background(), squareFn, tasks)
		})
	}
	wg.Wait()

	for c := range calls {
		require.NoError(t, errs[c], "call %d", c)
		want := []int{c * c, (c + 10) * (c + 10), (c + 20) * (c + 20), (c + 30) * (c + 30)}
		assert.Equal(t, want, results[c], "call %d", c)
	}
	assert.Empty(t, transportFiles(t, dir))
}

func TestParallelMap(t *testing.T) {
	dir := t.TempDir()

	results, err := ParallelMap(context.Background(), squareFn, slices.Values([]int{3, 1, 2}),
		WithMaxParallel(2), WithTempDir(dir), WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, []int{9, 1, 4}, results)
	assert.Empty(t, transportFiles(t, dir))
}

func TestParallelMapUnordered(t *testing.T) {
	dir := t.TempDir()

	var got []int
	seq := ParallelMapUnordered(context.Background(), squareFn, slices.Values([]int{3, 1, 2}),
		WithTempDir(dir), WithPollInterval(10*time.Millisecond))
	for v, err := range seq {
		require.NoError(t, err)
		got = append(got, v)
	}

	slices.Sort(got)
	assert.Equal(t, []int{1, 4, 9}, got)
}

func BenchmarkProcessPool_Process(b *testing.B) {
	for _, n := range []int{1, 4} {
		b.Run(fmt.Sprintf("maxParallel=%d", n), func(b *testing.B) {
			pool := NewProcessPool[int, int](
				WithMaxParallel(n),
				WithTempDir(b.TempDir()),
				WithAdaptivePolling(time.Millisecond, 20*time.Millisecond),
			)
			tasks := []int{1, 2, 3, 4, 5, 6, 7, 8}

			for b.Loop() {
				if _, err := pool.Process(context.Background(), squareFn, tasks); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
