//go:build !unix

package proc

import (
	"os"
	"sync"
)

type waitResult struct {
	st  Status
	err error
}

// waiters holds one blocking Wait goroutine per child; there is no
// non-blocking wait primitive to call directly.
var waiters sync.Map // *os.Process -> chan waitResult

func waiter(p *os.Process) chan waitResult {
	ch := make(chan waitResult, 1)
	actual, loaded := waiters.LoadOrStore(p, ch)
	if loaded {
		return actual.(chan waitResult)
	}

	go func() {
		ps, err := p.Wait()
		if err != nil {
			ch <- waitResult{err: err}
			return
		}
		ch <- waitResult{st: Status{
			Code:       ps.ExitCode(),
			UserTime:   ps.UserTime(),
			SystemTime: ps.SystemTime(),
		}}
	}()
	return ch
}

// TryWait checks whether p has exited without blocking.
func TryWait(p *os.Process) (Status, bool, error) {
	select {
	case r := <-waiter(p):
		waiters.Delete(p)
		return r.st, true, r.err
	default:
		return Status{}, false, nil
	}
}

// Reap blocks until p exits.
func Reap(p *os.Process) (Status, error) {
	r := <-waiter(p)
	waiters.Delete(p)
	return r.st, r.err
}
