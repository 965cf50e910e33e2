// Package runner decides when grouping runs happen. Triggers are debounced, runs
// never overlap, consecutive runs are spaced out, and runs that hit a busy tab strip
// are retried with a growing delay.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
)

// RunFunc performs one run. trigger names what asked for it.
type RunFunc func(ctx context.Context, trigger string) error

type Options struct {
	Debounce   time.Duration
	Throttle   time.Duration
	MaxRetries int
	RetryBase  time.Duration
	RetryStep  time.Duration
	// Retryable reports whether a failed run should be retried. Defaults to the
	// tabs-busy condition.
	Retryable func(error) bool
}

func DefaultOptions() Options {
	return Options{
		Debounce:   1200 * time.Millisecond,
		Throttle:   500 * time.Millisecond,
		MaxRetries: 10,
		RetryBase:  500 * time.Millisecond,
		RetryStep:  250 * time.Millisecond,
	}
}

func tabsBusy(err error) bool { return cdpcontrol.IsCode(err, cdpcontrol.CodeTabsBusy) }

// Scheduler owns the timers and run state. The zero value is not usable; call New.
type Scheduler struct {
	run  RunFunc
	opts Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	debounce *time.Timer
	retry    *time.Timer
	running  bool
	stopped  bool
	lastRun  time.Time
}

func New(run RunFunc, opts Options) *Scheduler {
	if opts.Retryable == nil {
		opts.Retryable = tabsBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{run: run, opts: opts, ctx: ctx, cancel: cancel}
}

// Trigger asks for a run after delay. A later trigger replaces a pending one.
// A delay of zero or less attempts the run right away.
func (s *Scheduler) Trigger(reason string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	if delay <= 0 {
		go s.attempt(reason, 0)
		return
	}
	s.debounce = time.AfterFunc(delay, func() { s.attempt(reason, 0) })
}

func (s *Scheduler) TriggerDefault(reason string) {
	s.Trigger(reason, s.opts.Debounce)
}

// Stop cancels pending triggers and retries and waits for a run in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.debounce != nil {
		s.debounce.Stop()
	}
	if s.retry != nil {
		s.retry.Stop()
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) attempt(reason string, retry int) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.running {
		s.mu.Unlock()
		slog.Debug("runner already running, skipping", "trigger", reason)
		return
	}
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	if retry > s.opts.MaxRetries {
		s.mu.Unlock()
		slog.Warn("runner retry limit reached", "trigger", reason, "retries", s.opts.MaxRetries)
		return
	}
	now := time.Now()
	if s.lastRun.Add(s.opts.Throttle).After(now) {
		s.retry = time.AfterFunc(s.opts.Throttle, func() { s.attempt(reason, retry) })
		s.mu.Unlock()
		slog.Debug("runner throttled", "trigger", reason)
		return
	}
	s.running = true
	s.lastRun = now
	s.wg.Add(1)
	s.mu.Unlock()

	err := s.run(s.ctx, reason)

	s.mu.Lock()
	s.running = false
	switch {
	case err == nil:
	case s.opts.Retryable(err) && !s.stopped:
		wait := s.opts.RetryBase + time.Duration(retry)*s.opts.RetryStep
		slog.Info("runner retrying", "trigger", reason, "attempt", retry+1, "wait", wait, "error", err)
		s.retry = time.AfterFunc(wait, func() { s.attempt(reason, retry+1) })
	default:
		slog.Error("runner run failed", "trigger", reason, "error", err)
	}
	s.mu.Unlock()
	s.wg.Done()
}
