// Package worker hosts the long-running polling workers (hardware
// monitor, fan control, power state, accessory discovery). Each
// worker runs on its own goroutine; the scheduler owns start/stop and
// cooperative cancellation.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Poll interval bounds, mirroring the teacher's fileMonitor/pidmonitor
// config-validation convention.
const (
	PollMin = 1 * time.Millisecond
	PollMax = 10000 * time.Millisecond
)

// Worker is one cooperative, long-running task.
type Worker interface {
	// OnStart runs once before the first tick.
	OnStart(ctx context.Context) error
	// OnWork runs once per tick.
	OnWork(ctx context.Context) error
	// OnExit runs once after the last tick or on cancellation.
	OnExit()
}

// handle tracks one running worker.
type handle struct {
	name   string
	cancel chan struct{}
	done   chan struct{}
}

// Scheduler starts, ticks, and stops a set of Workers.
type Scheduler struct {
	mu      sync.Mutex
	handles []*handle
	log     *logrus.Entry
}

// New creates an empty Scheduler.
func New(log *logrus.Entry) *Scheduler {
	return &Scheduler{log: log.WithField("component", "worker.scheduler")}
}

// Spawn validates tick, starts w on its own goroutine, and returns
// immediately; the worker's first OnWork call happens after one tick
// interval has elapsed, following OnStart.
func (s *Scheduler) Spawn(name string, w Worker, tick time.Duration) error {
	if tick < PollMin || tick > PollMax {
		return fmt.Errorf("invalid tick for worker %q: must be in [%s,%s], got %s", name, PollMin, PollMax, tick)
	}

	h := &handle{name: name, cancel: make(chan struct{}), done: make(chan struct{})}

	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()

	go s.run(name, w, tick, h)
	return nil
}

func (s *Scheduler) run(name string, w Worker, tick time.Duration, h *handle) {
	defer close(h.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-h.cancel
		cancel()
	}()

	if err := w.OnStart(ctx); err != nil {
		s.log.WithError(err).Errorf("worker %q failed to start", name)
		w.OnExit()
		return
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-h.cancel:
			w.OnExit()
			return
		case <-ticker.C:
			select {
			case <-h.cancel:
				w.OnExit()
				return
			default:
			}
			if err := w.OnWork(ctx); err != nil {
				s.log.WithError(err).Warnf("worker %q iteration failed", name)
			}
		}
	}
}

// StopAll signals every worker to stop, then waits up to timeout for
// all of them to finish. Workers that miss the deadline are logged and
// abandoned — the caller proceeds with shutdown regardless (§4.6/§5).
// The timeout budget is shared across all workers, not restarted per
// worker, so one slow worker cannot silently grant every other worker
// its own fresh 10s allowance.
func (s *Scheduler) StopAll(timeout time.Duration) {
	s.mu.Lock()
	handles := append([]*handle(nil), s.handles...)
	s.mu.Unlock()

	for _, h := range handles {
		close(h.cancel)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for _, h := range handles {
		select {
		case <-h.done:
		case <-deadline.C:
			s.logAbandoned(handles[indexOf(handles, h):])
			return
		}
	}
}

func indexOf(handles []*handle, target *handle) int {
	for i, h := range handles {
		if h == target {
			return i
		}
	}
	return len(handles)
}

func (s *Scheduler) logAbandoned(remaining []*handle) {
	for _, h := range remaining {
		select {
		case <-h.done:
		default:
			s.log.Warnf("worker %q did not exit in time; abandoning", h.name)
		}
	}
}
