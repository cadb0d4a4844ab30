//go:build linux

package cpu

import (
	"os/exec"
	"testing"

	"golang.org/x/sys/unix"
)

func TestPinProcess_Child(t *testing.T) {
	sleepPath, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep binary not available")
	}

	cmd := exec.Command(sleepPath, "5")
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start child: %v", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	ids := allowedCPUs()
	if len(ids) == 0 {
		t.Skip("affinity mask unavailable")
	}

	slot := len(ids) + 1
	if err := PinProcess(cmd.Process.Pid, slot); err != nil {
		t.Fatalf("PinProcess() error = %v", err)
	}

	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(cmd.Process.Pid, &mask); err != nil {
		t.Fatalf("SchedGetaffinity() error = %v", err)
	}

	if mask.Count() != 1 {
		t.Errorf("child mask has %d cpus, want 1", mask.Count())
	}
	if want := ids[slot%len(ids)]; !mask.IsSet(want) {
		t.Errorf("child not pinned to cpu %d", want)
	}
}

func TestPinProcess_UnknownPid(t *testing.T) {
	if err := PinProcess(-12345, 0); err == nil {
		t.Error("expected an error pinning a nonexistent pid")
	}
}
