package pool

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/utkarsh5026/procpool/internal/cpu"
)

// workerHandle is the coordinator's record of one running worker.
type workerHandle struct {
	info      WorkerInfo
	proc      *os.Process
	inputPath string
}

var executable = sync.OnceValues(os.Executable)

// flushStdio pushes buffered stdout/stderr data to the OS so that a child
// never inherits, and later repeats, output that belongs to the parent.
// Sync fails on pipes and terminals, which have nothing buffered anyway.
func flushStdio() {
	_ = os.Stdout.Sync()
	_ = os.Stderr.Sync()
}

// spawn starts one worker process executing fn on arg.
//
// Any failure here is fatal for the whole call: the returned error wraps
// ErrSpawn, except for context errors raised while waiting on the spawn rate
// limiter, which are returned as context errors.
func spawn[A, R any](ctx context.Context, cfg *config, fn *Func[A, R], arg A, index int) (*workerHandle, error) {
	if cfg.spawnLimiter != nil {
		if err := cfg.spawnLimiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// The limiter refuses up front when the deadline falls before
			// the next token.
			return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
	}

	exe, err := executable()
	if err != nil {
		return nil, fmt.Errorf("%w: locate executable: %v", ErrSpawn, err)
	}

	inputPath, err := reserveFile(cfg.tempDir, inputFilePrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: create input file: %v", ErrSpawn, err)
	}
	if err := writeValue(inputPath, arg); err != nil {
		removeFiles(inputPath)
		return nil, fmt.Errorf("%w: encode input of item %d: %v", ErrSpawn, index, err)
	}

	resultPath, err := reserveFile(cfg.tempDir, resultFilePrefix)
	if err != nil {
		removeFiles(inputPath)
		return nil, fmt.Errorf("%w: create result file: %v", ErrSpawn, err)
	}

	env := append(os.Environ(),
		EnvWorkerFunc+"="+fn.name,
		EnvWorkerInput+"="+inputPath,
		EnvWorkerOutput+"="+resultPath,
	)

	flushStdio()
	p, err := os.StartProcess(exe, []string{os.Args[0]}, &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, os.Stdout, os.Stderr},
	})
	if err != nil {
		removeFiles(inputPath, resultPath)
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	h := &workerHandle{
		info: WorkerInfo{
			ID:         uuid.New(),
			PID:        p.Pid,
			Index:      index,
			ResultPath: resultPath,
			Started:    time.Now(),
		},
		proc:      p,
		inputPath: inputPath,
	}

	log := cfg.logger.WithField("func", fn.name).WithFields(workerFields(h.info))
	if cfg.cpuAffinity {
		if err := cpu.PinProcess(p.Pid, index); err != nil {
			log.WithError(err).Warn("failed to pin worker to a cpu")
		}
	}

	log.Debug("worker spawned")
	return h, nil
}
