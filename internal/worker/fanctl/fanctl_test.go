package fanctl

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/fancurve"
	"github.com/uccd-project/uccd/internal/hal/fan"
	"github.com/uccd-project/uccd/internal/metrics"
)

type fakeTemps struct {
	cpuC, gpu0C, gpu1C, pumpC, wcC float64
	cpuOK, gpuOK, pumpOK, wcOK     bool
}

func (f *fakeTemps) CPUTempC() (float64, bool)        { return f.cpuC, f.cpuOK }
func (f *fakeTemps) GPUTempC(ch int) (float64, bool) {
	if ch == 0 {
		return f.gpu0C, f.gpuOK
	}
	return f.gpu1C, f.gpuOK
}
func (f *fakeTemps) PumpTempC() (float64, bool)        { return f.pumpC, f.pumpOK }
func (f *fakeTemps) WaterCoolerTempC() (float64, bool) { return f.wcC, f.wcOK }

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func zeroClock() int64 { return 0 }

func newTestWorker(temps TempReader) *Worker {
	fanCtl := fan.New(&ectransport.Transport{})
	store := metrics.New(60, zeroClock)
	return New(temps, fanCtl, nil, store, testLogger())
}

func TestSetDisabledSuppressesCurveEvaluation(t *testing.T) {
	temps := &fakeTemps{cpuC: 80, cpuOK: true}
	w := newTestWorker(temps)
	w.ApplyCurves(Curves{CPU: []fancurve.Point{{TempC: 40, DutyPct: 30}, {TempC: 80, DutyPct: 90}}})
	ctx := context.Background()

	// Undisabled: evaluating the curve at 80C should push a CPU duty
	// metric sample.
	if err := w.OnWork(ctx); err != nil {
		t.Fatalf("OnWork() error: %v", err)
	}
	if _, ok := w.store.Latest(metrics.CPUDuty); !ok {
		t.Fatal("expected a CPUDuty sample once curves are bound and enabled")
	}

	// Disable the CPU channel: the next tick must skip curve
	// evaluation entirely, not just zero the result.
	w.SetDisabled(ectransport.ChannelCPU, true)
	before, _ := w.store.Latest(metrics.CPUDuty)
	if err := w.OnWork(ctx); err != nil {
		t.Fatalf("OnWork() error: %v", err)
	}
	after, ok := w.store.Latest(metrics.CPUDuty)
	if !ok || after != before {
		t.Fatalf("CPUDuty sample changed while channel disabled: before=%v after=%v ok=%v", before, after, ok)
	}
}

func TestSetDisabledSurvivesRepeatedTicks(t *testing.T) {
	temps := &fakeTemps{cpuC: 80, cpuOK: true}
	w := newTestWorker(temps)
	w.ApplyCurves(Curves{CPU: []fancurve.Point{{TempC: 40, DutyPct: 30}, {TempC: 80, DutyPct: 90}}})
	ctx := context.Background()

	w.SetDisabled(ectransport.ChannelCPU, true)

	// A direct SetDuty(ch, 0) would be overwritten by the very next
	// curve-driven tick once curves are bound (the bug this guards
	// against); SetDisabled must hold across many ticks instead.
	for i := 0; i < 5; i++ {
		if err := w.OnWork(ctx); err != nil {
			t.Fatalf("OnWork() error: %v", err)
		}
	}
	if _, ok := w.store.Latest(metrics.CPUDuty); ok {
		t.Fatal("expected no CPUDuty sample while the channel stays disabled across ticks")
	}

	w.SetDisabled(ectransport.ChannelCPU, false)
	if err := w.OnWork(ctx); err != nil {
		t.Fatalf("OnWork() error: %v", err)
	}
	if _, ok := w.store.Latest(metrics.CPUDuty); !ok {
		t.Fatal("expected curve evaluation to resume once the channel is re-enabled")
	}
}
