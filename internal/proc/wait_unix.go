//go:build unix

package proc

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// TryWait checks whether p has exited without blocking.
//
// It returns done=false while the child is still running. Once done is true
// the child has been reaped and p has been released; p must not be used again.
func TryWait(p *os.Process) (st Status, done bool, err error) {
	return wait4(p, unix.WNOHANG)
}

// Reap blocks until p exits and reaps it.
func Reap(p *os.Process) (Status, error) {
	st, _, err := wait4(p, 0)
	return st, err
}

func wait4(p *os.Process, options int) (Status, bool, error) {
	var ws unix.WaitStatus
	var ru unix.Rusage

	for {
		pid, err := unix.Wait4(p.Pid, &ws, options, &ru)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return Status{}, false, err
		}
		if pid == 0 {
			return Status{}, false, nil
		}
		break
	}

	// The pid is gone; drop the handle so a recycled pid is never signalled.
	_ = p.Release()

	st := Status{
		Code:       ws.ExitStatus(),
		UserTime:   time.Duration(ru.Utime.Nano()),
		SystemTime: time.Duration(ru.Stime.Nano()),
	}
	if ws.Signaled() {
		st.Code = -1
		st.Signal = ws.Signal().String()
	}
	return st, true, nil
}
