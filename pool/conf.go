package pool

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/utkarsh5026/procpool/internal/algorithms"
	"github.com/utkarsh5026/procpool/internal/cpu"
	"golang.org/x/time/rate"
)

const (
	// DefaultPollInterval is the pause between two scans that found no exited worker.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultPollJitter is the random spread applied to adaptive poll pauses.
	DefaultPollJitter = 0.2
)

// Option is a functional option for configuring the process pool.
type Option func(*config)

type config struct {
	maxParallel   int
	tempDir       string
	pollType      algorithms.PollType
	pollInitial   time.Duration
	pollMax       time.Duration
	pollJitter    float64
	spawnLimiter  *rate.Limiter
	killOnFailure bool
	cpuAffinity   bool
	logger        logrus.FieldLogger

	onSpawn func(WorkerInfo)
	onExit  func(WorkerInfo, error)
}

// WithMaxParallel sets the maximum number of worker processes alive at once.
// If not specified, defaults to the number of CPUs available to this process.
func WithMaxParallel(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxParallel = n
		}
	}
}

// WithTempDir sets the directory where input and result files are created.
// Point it at fast local storage for large results.
// If not specified, os.TempDir() is used.
func WithTempDir(dir string) Option {
	return func(cfg *config) {
		cfg.tempDir = dir
	}
}

// WithPollInterval sets the fixed pause between scans of the running workers.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.pollType = algorithms.PollFixed
			cfg.pollInitial = d
			cfg.pollMax = d
		}
	}
}

// WithAdaptivePolling replaces the fixed pause with jittered exponential pacing:
// the pause starts at initial, doubles on every scan that finds nothing, is
// capped at max and drops back to initial as soon as a worker exits.
//
// Example:
//
//	WithAdaptivePolling(5*time.Millisecond, 250*time.Millisecond)
func WithAdaptivePolling(initial, max time.Duration) Option {
	return func(cfg *config) {
		if initial > 0 && max >= initial {
			cfg.pollType = algorithms.PollJittered
			cfg.pollInitial = initial
			cfg.pollMax = max
		}
	}
}

// WithPollJitter sets the random spread of adaptive poll pauses as a fraction
// of the pause, between 0 and 1. Zero makes the pacing a plain doubling.
// It has no effect on fixed polling.
func WithPollJitter(factor float64) Option {
	return func(cfg *config) {
		if factor >= 0 && factor <= 1 {
			cfg.pollJitter = factor
		}
	}
}

// WithSpawnRate limits how fast worker processes are created.
// perSecond is the sustained spawn rate and burst how many may start back to back.
// The limiter is shared by every call made through the same pool.
func WithSpawnRate(perSecond float64, burst int) Option {
	return func(cfg *config) {
		if perSecond > 0 && burst > 0 {
			cfg.spawnLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithKillOnFailure controls what happens to running siblings when a worker fails.
// When true (the default) they are killed, reaped and their files removed.
// When false they are left running and never waited on, and their files stay
// behind for them.
func WithKillOnFailure(kill bool) Option {
	return func(cfg *config) {
		cfg.killOnFailure = kill
	}
}

// WithCPUAffinity pins every worker to a single core, assigned round robin by
// submission index. It is a no-op outside Linux.
func WithCPUAffinity(enabled bool) Option {
	return func(cfg *config) {
		cfg.cpuAffinity = enabled
	}
}

// WithLogger sets the logger used for worker lifecycle events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithOnSpawn registers a hook called after each worker process starts.
// Hooks run on the coordinating goroutine of the call.
func WithOnSpawn(fn func(WorkerInfo)) Option {
	return func(cfg *config) {
		cfg.onSpawn = fn
	}
}

// WithOnExit registers a hook called after a worker exits on its own and has
// been reaped. err is nil for a worker whose result was collected. Workers
// killed during an abort are not reported.
func WithOnExit(fn func(WorkerInfo, error)) Option {
	return func(cfg *config) {
		cfg.onExit = fn
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		maxParallel:   cpu.Available(),
		pollType:      algorithms.PollFixed,
		pollInitial:   DefaultPollInterval,
		pollMax:       DefaultPollInterval,
		pollJitter:    DefaultPollJitter,
		killOnFailure: true,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = newDefaultLogger()
	}

	return cfg
}

// pollStrategy builds a fresh pacing strategy for one call.
func (cfg *config) pollStrategy() algorithms.PollStrategy {
	return algorithms.NewPollStrategy(cfg.pollType, cfg.pollInitial, cfg.pollMax, cfg.pollJitter)
}
