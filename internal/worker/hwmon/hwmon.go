// Package hwmon implements the HardwareMonitorWorker: samples GPU
// telemetry every tick, CPU power every 3rd tick, NVIDIA-Prime status
// every 12th tick, and webcam/CPU-frequency state every tick.
package hwmon

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uccd-project/uccd/internal/hal/gpu"
	"github.com/uccd-project/uccd/internal/hal/webcam"
	"github.com/uccd-project/uccd/internal/metrics"
)

// Tick is the worker's fixed polling interval.
const Tick = 800 * time.Millisecond

// CPUSampler is the subset of hal/cpufreq this worker needs: reading
// back current per-core frequency to publish into metrics.
type CPUSampler interface {
	// CurrentFreqMHz returns the average current frequency across
	// online cores, or ok=false if none could be read.
	CurrentFreqMHz() (int, bool)
	// CurrentPowerWatts returns the package power draw.
	CurrentPowerWatts() (float64, bool)
}

// Worker is the HardwareMonitorWorker.
type Worker struct {
	gpu    *gpu.Controller
	cpu    CPUSampler
	webcam *webcam.Controller
	store  *metrics.Store
	log    *logrus.Entry

	tickCount uint64
}

// New builds the worker. gpu/cpu/webcam may individually be nil when
// the corresponding capability is absent on this device; each nil is
// checked before use.
func New(gpuCtl *gpu.Controller, cpu CPUSampler, wc *webcam.Controller, store *metrics.Store, log *logrus.Entry) *Worker {
	return &Worker{gpu: gpuCtl, cpu: cpu, webcam: wc, store: store, log: log.WithField("component", "worker.hwmon")}
}

func (w *Worker) OnStart(ctx context.Context) error { return nil }
func (w *Worker) OnExit()                           {}

// OnWork runs the tick-counter-gated sampling schedule from §4.6.
func (w *Worker) OnWork(ctx context.Context) error {
	now := time.Now().UnixMilli()
	w.tickCount++

	w.sampleGPU(now)
	w.sampleWebcamAndFreq(now)

	if w.tickCount%3 == 0 {
		w.sampleCPUPower(now)
	}
	if w.tickCount%12 == 0 {
		w.sampleNVIDIAPrime()
	}
	return nil
}

func (w *Worker) sampleGPU(now int64) {
	if w.gpu == nil {
		return
	}
	if w.gpu.HasDGPU() {
		t := w.gpu.ReadDGPU()
		if t.TempOK {
			w.store.Push(metrics.DGPUTemp, now, t.TempC)
		}
		if t.DutyOK {
			w.store.Push(metrics.DGPUDuty, now, float64(t.DutyPct))
		}
		if t.PowerOK {
			w.store.Push(metrics.DGPUPower, now, t.PowerW)
		}
		if t.FreqOK {
			w.store.Push(metrics.DGPUFreq, now, float64(t.FreqMHz))
		}
	}
	if w.gpu.HasIGPU() {
		t := w.gpu.ReadIGPU()
		if t.TempOK {
			w.store.Push(metrics.IGPUTemp, now, t.TempC)
		}
		if t.PowerOK {
			w.store.Push(metrics.IGPUPower, now, t.PowerW)
		}
		if t.FreqOK {
			w.store.Push(metrics.IGPUFreq, now, float64(t.FreqMHz))
		}
	}
}

func (w *Worker) sampleWebcamAndFreq(now int64) {
	if w.webcam != nil {
		// Polled so shadow state stays fresh for RPC reads even
		// though the switch is usually toggled out-of-band by a
		// physical key; no metric is stored for a boolean switch.
		w.webcam.Get()
	}
	if w.cpu != nil {
		if mhz, ok := w.cpu.CurrentFreqMHz(); ok {
			w.store.Push(metrics.CPUFreq, now, float64(mhz))
		}
	}
}

func (w *Worker) sampleCPUPower(now int64) {
	if w.cpu == nil {
		return
	}
	if watts, ok := w.cpu.CurrentPowerWatts(); ok {
		w.store.Push(metrics.CPUPower, now, watts)
	}
}

func (w *Worker) sampleNVIDIAPrime() {
	if w.gpu == nil {
		return
	}
	if mode, ok := w.gpu.NVIDIAPrimeMode(); ok {
		w.log.WithField("mode", mode).Debug("nvidia-prime status refreshed")
	}
}
