package accessory

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type scriptedScanner struct {
	results []bool
	errs    []error
	i       int
	calls   int
}

func (s *scriptedScanner) Scan(ctx context.Context) (bool, error) {
	s.calls++
	idx := s.i
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	found := s.results[idx]
	s.i++
	return found, err
}

type recordingNotifier struct {
	events []bool
}

func (n *recordingNotifier) AccessoryConnectionChanged(connected bool) {
	n.events = append(n.events, connected)
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestEmitsOnFirstDiscovery(t *testing.T) {
	scanner := &scriptedScanner{results: []bool{true}}
	notifier := &recordingNotifier{}
	w := New(scanner, notifier, testLogger())

	if err := w.OnWork(context.Background()); err != nil {
		t.Fatalf("OnWork() error: %v", err)
	}
	if len(notifier.events) != 1 || !notifier.events[0] {
		t.Fatalf("events = %v, want [true]", notifier.events)
	}
}

func TestNoReEmitOnUnchangedState(t *testing.T) {
	scanner := &scriptedScanner{results: []bool{true}}
	notifier := &recordingNotifier{}
	w := New(scanner, notifier, testLogger())

	w.OnWork(context.Background())
	w.nextAttempt = time.Time{} // force the next tick to scan again
	w.OnWork(context.Background())

	if len(notifier.events) != 1 {
		t.Fatalf("events = %v, want a single emission", notifier.events)
	}
}

func TestBackoffSuppressesImmediateRetry(t *testing.T) {
	scanner := &scriptedScanner{results: []bool{false}, errs: []error{errors.New("scan failed")}}
	notifier := &recordingNotifier{}
	w := New(scanner, notifier, testLogger())

	w.OnWork(context.Background())
	if w.backoff != BackoffMin*2 {
		t.Fatalf("backoff = %v, want %v", w.backoff, BackoffMin*2)
	}

	// Immediately ticking again must not scan because nextAttempt is
	// still in the future.
	w.OnWork(context.Background())
	if scanner.calls != 1 {
		t.Fatalf("scanner called %d times, want 1 (still backing off)", scanner.calls)
	}
}

func TestBackoffCapsAtMax(t *testing.T) {
	b := BackoffMin
	for i := 0; i < 20; i++ {
		b = nextBackoff(b)
	}
	if b != BackoffMax {
		t.Fatalf("backoff = %v, want capped at %v", b, BackoffMax)
	}
}

func TestSuccessfulScanResetsBackoff(t *testing.T) {
	scanner := &scriptedScanner{
		results: []bool{false, false, true},
		errs:    []error{errors.New("x"), errors.New("x"), nil},
	}
	notifier := &recordingNotifier{}
	w := New(scanner, notifier, testLogger())

	w.OnWork(context.Background())
	w.nextAttempt = time.Time{}
	w.OnWork(context.Background())
	w.nextAttempt = time.Time{}
	w.OnWork(context.Background())

	if w.backoff != BackoffMin {
		t.Fatalf("backoff = %v, want reset to %v after success", w.backoff, BackoffMin)
	}
}
