// Package accessory implements the AccessoryDiscoveryWorker: a bounded
// retry/backoff loop around a pluggable scanner used to discover the
// water-cooler's companion BLE accessory. The scan itself is out of
// scope (§9 Non-goals); only the scheduling around AccessoryScanner is
// implemented here.
package accessory

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Tick is the worker's base polling interval. Actual scan attempts are
// additionally gated by the backoff state below.
const Tick = 2000 * time.Millisecond

// BackoffMin/BackoffMax bound the exponential retry delay applied
// after a failed scan, so a persistently absent accessory never busy
// loops at the tick rate.
const (
	BackoffMin = 2 * time.Second
	BackoffMax = 60 * time.Second
)

// Scanner discovers (or confirms the continued presence of) the
// water-cooler's companion accessory. Implementations are free to use
// whatever transport (BLE, vendor HID, etc.) the device requires; this
// package only schedules calls to it.
type Scanner interface {
	// Scan attempts one discovery pass. found indicates whether the
	// accessory answered during this attempt.
	Scan(ctx context.Context) (found bool, err error)
}

// ConnectionNotifier is told about accessory connection-state changes,
// normally wired to an RPC signal emitter
// (AccessoryConnectionChanged).
type ConnectionNotifier interface {
	AccessoryConnectionChanged(connected bool)
}

// Worker is the AccessoryDiscoveryWorker. The daemon controller starts
// it whenever the capability record reports water-cooler support; the
// water cooler's enabled state is not checked before starting it.
type Worker struct {
	scanner  Scanner
	notifier ConnectionNotifier
	log      *logrus.Entry

	connected   bool
	haveState   bool
	backoff     time.Duration
	nextAttempt time.Time
}

// New builds the worker.
func New(scanner Scanner, notifier ConnectionNotifier, log *logrus.Entry) *Worker {
	return &Worker{
		scanner:  scanner,
		notifier: notifier,
		log:      log.WithField("component", "worker.accessory"),
		backoff:  BackoffMin,
	}
}

func (w *Worker) OnStart(ctx context.Context) error { return nil }
func (w *Worker) OnExit()                           {}

// OnWork runs at most one scan attempt per tick, honoring the current
// backoff delay after a failed attempt. A successful scan resets the
// backoff to its minimum.
func (w *Worker) OnWork(ctx context.Context) error {
	now := time.Now()
	if now.Before(w.nextAttempt) {
		return nil
	}

	found, err := w.scanner.Scan(ctx)
	if err != nil {
		w.log.WithError(err).Debug("accessory scan failed")
		w.backoff = nextBackoff(w.backoff)
		w.nextAttempt = now.Add(w.backoff)
		return nil
	}

	w.backoff = BackoffMin
	w.nextAttempt = now.Add(w.backoff)

	if !w.haveState || found != w.connected {
		w.connected = found
		w.haveState = true
		w.log.WithField("connected", found).Info("accessory connection state changed")
		w.notifier.AccessoryConnectionChanged(found)
	}
	return nil
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > BackoffMax {
		return BackoffMax
	}
	return next
}
