//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// allowedCPUs returns the CPU ids in the calling process's affinity mask.
func allowedCPUs() []int {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(0, &mask); err != nil {
		return nil
	}

	ids := make([]int, 0, mask.Count())
	for id := 0; id < len(mask)*64 && len(ids) < mask.Count(); id++ {
		if mask.IsSet(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Available returns the number of processing units this process may run on.
// Under taskset or a container cpuset this is smaller than runtime.NumCPU().
func Available() int {
	if n := len(allowedCPUs()); n > 0 {
		return n
	}
	return max(runtime.NumCPU(), 1)
}

// PinProcess restricts the process pid to a single core chosen round robin
// from the coordinator's own affinity mask.
//
// slot is usually the submission index of the work item.
func PinProcess(pid, slot int) error {
	ids := allowedCPUs()
	if len(ids) == 0 {
		return nil
	}
	if slot < 0 {
		slot = -slot
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(ids[slot%len(ids)])

	return unix.SchedSetaffinity(pid, &mask)
}
