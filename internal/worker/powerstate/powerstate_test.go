package powerstate

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakeReader struct {
	ac   bool
	wc   bool
	wcOK bool
}

func (r *fakeReader) ACPresent() (bool, bool)           { return r.ac, true }
func (r *fakeReader) WaterCoolerConnected() (bool, bool) { return r.wc, r.wcOK }

type recordingResolver struct {
	changes []State
}

func (r *recordingResolver) ResolvePowerState(s State) {
	r.changes = append(r.changes, s)
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestDebouncedTransitionEmitsOnce(t *testing.T) {
	reader := &fakeReader{ac: true}
	resolver := &recordingResolver{}
	w := New(reader, resolver, testLogger())
	ctx := context.Background()

	// First reading on AC establishes baseline after 2 identical reads.
	w.OnWork(ctx)
	w.OnWork(ctx)
	if len(resolver.changes) != 1 || resolver.changes[0] != StateAC {
		t.Fatalf("after 2 AC reads, changes = %v, want [ac]", resolver.changes)
	}

	// Unplug: single reading should not yet trigger a change.
	reader.ac = false
	w.OnWork(ctx)
	if len(resolver.changes) != 1 {
		t.Fatalf("after 1 battery read, changes = %v, want still [ac]", resolver.changes)
	}

	// Second consecutive battery reading triggers exactly one change.
	w.OnWork(ctx)
	if len(resolver.changes) != 2 || resolver.changes[1] != StateBat {
		t.Fatalf("after 2 battery reads, changes = %v, want [ac bat]", resolver.changes)
	}

	// Further identical battery readings must not re-emit.
	w.OnWork(ctx)
	w.OnWork(ctx)
	if len(resolver.changes) != 2 {
		t.Fatalf("extra battery reads re-emitted: changes = %v", resolver.changes)
	}
}

func TestFlickerDoesNotEmit(t *testing.T) {
	reader := &fakeReader{ac: true}
	resolver := &recordingResolver{}
	w := New(reader, resolver, testLogger())
	ctx := context.Background()

	w.OnWork(ctx)
	w.OnWork(ctx) // baseline ac established

	reader.ac = false
	w.OnWork(ctx) // single flicker to battery
	reader.ac = true
	w.OnWork(ctx) // back to ac before debounce confirms

	if len(resolver.changes) != 1 {
		t.Fatalf("flicker caused a spurious emission: changes = %v", resolver.changes)
	}
}
