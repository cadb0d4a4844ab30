package pool

import (
	"context"
	"errors"
	"os"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/utkarsh5026/procpool/internal/algorithms"
	"github.com/utkarsh5026/procpool/internal/proc"
	"golang.org/x/sync/errgroup"
)

// poller drives one call: it keeps up to maxParallel workers alive, notices
// when they exit and turns their result files into values.
//
// All of its state belongs to a single call and a single goroutine.
type poller[A, R any] struct {
	ctx    context.Context
	cfg    *config
	fn     *Func[A, R]
	pacing algorithms.PollStrategy
	log    logrus.FieldLogger

	next      func() (A, bool) // pending inputs, drawn FIFO
	nextIndex int
	inFlight  []*workerHandle
}

func newPoller[A, R any](ctx context.Context, cfg *config, fn *Func[A, R], next func() (A, bool)) *poller[A, R] {
	return &poller[A, R]{
		ctx:    ctx,
		cfg:    cfg,
		fn:     fn,
		pacing: cfg.pollStrategy(),
		log:    cfg.logger.WithField("func", fn.name),
		next:   next,
	}
}

// run streams results to yield in completion order until every input has been
// processed, yield returns false, or something fails.
//
// Whatever way control leaves run, including a panic or runtime.Goexit in
// yield or a hook, workers still in flight are killed and their files removed.
func (p *poller[A, R]) run(yield func(indexedResult[R]) bool) error {
	defer p.abort(true)

	if err := p.fill(); err != nil {
		return err
	}

	idleScans := 0
	for len(p.inFlight) > 0 {
		if err := p.ctx.Err(); err != nil {
			return err
		}

		h, st, err := p.scan()
		if err != nil {
			return err
		}

		if h == nil {
			delay := p.pacing.NextDelay(idleScans)
			idleScans++
			if err := sleepContext(p.ctx, delay); err != nil {
				return err
			}
			continue
		}

		idleScans = 0
		p.pacing.Reset()
		removeFiles(h.inputPath)

		log := p.log.WithFields(workerFields(h.info)).WithField("status", st.String())
		log.WithFields(logrus.Fields{
			"user_time":   st.UserTime,
			"system_time": st.SystemTime,
			"elapsed":     time.Since(h.info.Started),
		}).Debug("worker exited")

		if !st.Success() {
			cerr := &ChildError{Worker: h.info, ExitCode: st.Code, Signal: st.Signal}
			removeFiles(h.info.ResultPath)
			p.exited(h, cerr)
			log.Debug("aborting after worker failure")
			p.abort(p.cfg.killOnFailure)
			return cerr
		}

		value, err := takeResult[R](h.info.ResultPath)
		p.exited(h, err)
		if err != nil {
			return err
		}

		// Refill before handing the value out so the pool stays saturated
		// while the caller works on it.
		if err := p.fill(); err != nil {
			return err
		}

		if !yield(indexedResult[R]{index: h.info.Index, value: value}) {
			return nil
		}
	}

	return nil
}

// fill spawns workers for pending inputs until the pool is at its ceiling or
// the inputs run out.
func (p *poller[A, R]) fill() error {
	for len(p.inFlight) < p.cfg.maxParallel {
		if err := p.ctx.Err(); err != nil {
			return err
		}

		arg, ok := p.next()
		if !ok {
			return nil
		}

		h, err := spawn(p.ctx, p.cfg, p.fn, arg, p.nextIndex)
		if err != nil {
			return err
		}
		p.nextIndex++

		// New workers are scanned first on the next pass.
		p.inFlight = slices.Insert(p.inFlight, 0, h)

		if p.cfg.onSpawn != nil {
			p.cfg.onSpawn(h.info)
		}
	}
	return nil
}

// scan checks every in-flight worker once without blocking and returns the
// first one that has exited, removing it from the in-flight set.
// It returns a nil handle if none has exited yet.
func (p *poller[A, R]) scan() (*workerHandle, proc.Status, error) {
	for i, h := range p.inFlight {
		st, done, err := proc.TryWait(h.proc)
		if err != nil {
			return nil, proc.Status{}, err
		}
		if done {
			p.inFlight = slices.Delete(p.inFlight, i, i+1)
			return h, st, nil
		}
	}
	return nil, proc.Status{}, nil
}

func (p *poller[A, R]) exited(h *workerHandle, err error) {
	if p.cfg.onExit != nil {
		p.cfg.onExit(h.info, err)
	}
}

// abort gives up on every in-flight worker. With kill set the workers are
// killed and reaped concurrently and their files removed; otherwise they are
// left running and never waited on. Either way the in-flight set is emptied,
// so a second abort is a no-op.
func (p *poller[A, R]) abort(kill bool) {
	stragglers := p.inFlight
	p.inFlight = nil
	if len(stragglers) == 0 {
		return
	}

	if !kill {
		p.log.WithField("workers", len(stragglers)).Debug("abandoning running workers")
		return
	}

	var g errgroup.Group
	for _, h := range stragglers {
		g.Go(func() error {
			defer removeFiles(h.inputPath, h.info.ResultPath)

			killErr := h.proc.Kill()
			if errors.Is(killErr, os.ErrProcessDone) {
				return nil
			}
			st, err := proc.Reap(h.proc)
			if err != nil {
				return errors.Join(killErr, err)
			}
			p.log.WithFields(workerFields(h.info)).WithField("status", st.String()).Debug("worker killed")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.log.WithError(err).Warn("failed to reap a killed worker")
	}
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
