// Package powerstate implements the PowerStateWorker: reads AC adapter
// presence and water-cooler connectivity, debounces, and resolves the
// state-mapped profile on change.
package powerstate

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Tick is the worker's fixed polling interval.
const Tick = 1000 * time.Millisecond

// State is the power source recognized by the state map.
type State string

const (
	StateAC   State = "ac"
	StateACWC State = "ac_wc"
	StateBat  State = "bat"
)

// Reader reports raw hardware signals the worker debounces.
type Reader interface {
	ACPresent() (bool, bool)
	WaterCoolerConnected() (bool, bool)
}

// Resolver is called with the debounced state on every change; it is
// the profile engine's state-map resolution + apply step.
type Resolver interface {
	ResolvePowerState(state State)
}

// Worker is the PowerStateWorker.
type Worker struct {
	reader   Reader
	resolver Resolver
	log      *logrus.Entry

	lastReading  State
	pendingCount int

	// mu guards current/haveCurrent: written only from OnWork (the
	// worker's own goroutine) but read from Current by the RPC
	// surface's GetPowerState handler on its own goroutine.
	mu          sync.RWMutex
	current     State
	haveCurrent bool
}

// New builds the worker.
func New(reader Reader, resolver Resolver, log *logrus.Entry) *Worker {
	return &Worker{reader: reader, resolver: resolver, log: log.WithField("component", "worker.powerstate")}
}

func (w *Worker) OnStart(ctx context.Context) error { return nil }
func (w *Worker) OnExit()                           {}

// OnWork reads the raw signals, classifies them into a State, and
// debounces for 2 consecutive identical readings before emitting a
// change.
func (w *Worker) OnWork(ctx context.Context) error {
	reading := w.classify()

	if reading == w.lastReading {
		w.pendingCount++
	} else {
		w.lastReading = reading
		w.pendingCount = 1
	}

	w.mu.RLock()
	changed := !w.haveCurrent || reading != w.current
	w.mu.RUnlock()

	if w.pendingCount >= 2 && changed {
		w.mu.Lock()
		w.current = reading
		w.haveCurrent = true
		w.mu.Unlock()
		w.log.WithField("state", reading).Info("power state changed")
		w.resolver.ResolvePowerState(reading)
	}
	return nil
}

// Current returns the last debounced state, or ok=false before the
// first one has been established.
func (w *Worker) Current() (State, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current, w.haveCurrent
}

func (w *Worker) classify() State {
	ac, _ := w.reader.ACPresent()
	if !ac {
		return StateBat
	}
	if wc, ok := w.reader.WaterCoolerConnected(); ok && wc {
		return StateACWC
	}
	return StateAC
}
