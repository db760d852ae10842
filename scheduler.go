package mirrorlai

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDebounce is the quiescence window between the last trigger and a run.
const DefaultDebounce = 400 * time.Millisecond

// Scheduler turns a stream of change notifications into pipeline runs.
//
// Triggers arriving within the debounce window collapse into one run. Runs
// are executed one at a time on a single goroutine; triggers received while
// a run is in flight are folded into exactly one follow-up run.
type Scheduler struct {
	window  time.Duration
	run     func(ctx context.Context)
	trigger chan struct{}
	runs    atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler that calls run after each quiet window.
// A non-positive window uses DefaultDebounce.
func NewScheduler(window time.Duration, run func(ctx context.Context)) *Scheduler {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Scheduler{
		window:  window,
		run:     run,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger schedules a run. It never blocks.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Start launches the worker. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop halts the worker and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Runs returns how many runs have completed.
func (s *Scheduler) Runs() int {
	return int(s.runs.Load())
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(s.window)
			fire = timer.C
		case <-fire:
			fire = nil
			s.run(ctx)
			s.runs.Add(1)
		}
	}
}
