// Package fanctl implements the FanControlWorker: the only writer of
// fan/pump duty, evaluating the active fan profile's curves with
// hysteresis and publishing resulting duty/rpm to the metrics store.
package fanctl

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/fancurve"
	"github.com/uccd-project/uccd/internal/hal/fan"
	"github.com/uccd-project/uccd/internal/hal/watercooler"
	"github.com/uccd-project/uccd/internal/metrics"
)

// Tick is the worker's fixed polling interval.
const Tick = 500 * time.Millisecond

// TempReader is the subset of the HAL this worker needs for current
// temperatures. Implemented by an adapter over hal/gpu + EC field
// reads for CPU package temperature.
type TempReader interface {
	CPUTempC() (float64, bool)
	GPUTempC(channel int) (float64, bool)
	PumpTempC() (float64, bool)
	WaterCoolerTempC() (float64, bool)
}

// Curves is the set of curves currently bound by the active profile;
// handed off by ApplyFanProfiles / the profile engine and swapped
// atomically between ticks (§5: "the worker applies them at its next
// tick").
type Curves struct {
	CPU            []fancurve.Point
	GPU            []fancurve.Point
	Pump           []fancurve.Point
	WaterCoolerFan []fancurve.Point
	AutoControlWC  bool
}

// disabledUpdate is one pending SetDisabled call, handed off to the
// worker's own goroutine the same way ApplyCurves hands off curves.
type disabledUpdate struct {
	channel  ectransport.Channel
	disabled bool
}

// Worker is the FanControlWorker.
type Worker struct {
	temps TempReader
	fan   *fan.Controller
	wc    *watercooler.Controller // nil if unsupported on this device
	store *metrics.Store
	log   *logrus.Entry

	curvesCh chan Curves
	curves   Curves

	disabledCh chan disabledUpdate
	disabled   map[ectransport.Channel]bool // owned by OnWork's goroutine only

	cpuSmoother  *fancurve.Smoother
	gpuSmoothers map[int]*fancurve.Smoother
	pumpSmoother *fancurve.Smoother
	wcSmoother   *fancurve.Smoother
}

// New builds the worker with no curves bound; ApplyCurves must be
// called (normally once at startup by the profile engine's initial
// apply()) before OnWork has anything to evaluate.
func New(temps TempReader, fanCtl *fan.Controller, wc *watercooler.Controller, store *metrics.Store, log *logrus.Entry) *Worker {
	return &Worker{
		temps:        temps,
		fan:          fanCtl,
		wc:           wc,
		store:        store,
		log:          log.WithField("component", "worker.fanctl"),
		curvesCh:     make(chan Curves, 1),
		disabledCh:   make(chan disabledUpdate, 8),
		disabled:     map[ectransport.Channel]bool{},
		cpuSmoother:  fancurve.NewSmoother(),
		gpuSmoothers: map[int]*fancurve.Smoother{0: fancurve.NewSmoother(), 1: fancurve.NewSmoother()},
		pumpSmoother: fancurve.NewSmoother(),
		wcSmoother:   fancurve.NewSmoother(),
	}
}

// SetDisabled forces channel fully off (disabled=true) or releases it
// back to curve control (disabled=false). Like ApplyCurves, it never
// performs an EC write itself — the worker's own goroutine applies the
// flag at its next tick, in OnWork, before evaluating that channel's
// curve. This is what makes "disable" stick rather than being
// silently overwritten by the next tick's curve evaluation.
func (w *Worker) SetDisabled(channel ectransport.Channel, disabled bool) {
	select {
	case w.disabledCh <- disabledUpdate{channel: channel, disabled: disabled}:
	default:
		w.log.Warn("disabledCh full, dropping a SetDisabled update")
	}
}

// ApplyCurves hands new curves to the worker. It never blocks the
// caller (buffered channel of size 1, latest-wins) and never performs
// an EC write itself — only the worker's own goroutine writes to the
// EC, avoiding racing writes from multiple threads (§5).
func (w *Worker) ApplyCurves(c Curves) {
	select {
	case w.curvesCh <- c:
	default:
		// Drain the stale pending update and replace it.
		select {
		case <-w.curvesCh:
		default:
		}
		w.curvesCh <- c
	}
}

func (w *Worker) OnStart(ctx context.Context) error { return nil }
func (w *Worker) OnExit()                           {}

// OnWork picks up any pending curve update, then evaluates and (via
// hysteresis) writes each channel.
func (w *Worker) OnWork(ctx context.Context) error {
	select {
	case c := <-w.curvesCh:
		w.curves = c
	default:
	}
drainDisabled:
	for {
		select {
		case u := <-w.disabledCh:
			w.disabled[u.channel] = u.disabled
		default:
			break drainDisabled
		}
	}

	now := time.Now()
	nowMs := now.UnixMilli()

	if w.disabled[ectransport.ChannelCPU] {
		if err := w.fan.SetDuty(ectransport.ChannelCPU, 0); err != nil {
			w.log.WithError(err).Warn("failed to force CPU fan off")
		}
		w.cpuSmoother.Reset()
	} else if t, ok := w.temps.CPUTempC(); ok && len(w.curves.CPU) > 0 {
		duty := fancurve.Evaluate(w.curves.CPU, t)
		if d, write := w.cpuSmoother.Next(now, duty); write {
			if err := w.fan.SetDuty(ectransport.ChannelCPU, int(d)); err != nil {
				w.log.WithError(err).Warn("failed to write CPU fan duty")
			}
		}
		w.store.Push(metrics.CPUDuty, nowMs, duty)
	}

	w.evaluateGPUChannel(now, nowMs, 0, ectransport.ChannelGPU1)
	w.evaluateGPUChannel(now, nowMs, 1, ectransport.ChannelGPU2)

	if w.disabled[ectransport.ChannelPump] {
		if err := w.fan.SetDuty(ectransport.ChannelPump, 0); err != nil {
			w.log.WithError(err).Warn("failed to force pump off")
		}
		w.pumpSmoother.Reset()
	} else if t, ok := w.temps.PumpTempC(); ok && len(w.curves.Pump) > 0 {
		level := fancurve.PumpQuantize(w.curves.Pump, t)
		lf := float64(level)
		if d, write := w.pumpSmoother.Next(now, lf); write {
			if err := w.fan.SetDuty(ectransport.ChannelPump, int(d)); err != nil {
				w.log.WithError(err).Warn("failed to write pump level")
			}
		}
	}

	w.evaluateWaterCooler(now, nowMs)

	return nil
}

func (w *Worker) evaluateGPUChannel(now time.Time, nowMs int64, idx int, ch ectransport.Channel) {
	sm := w.gpuSmoothers[idx]
	if w.disabled[ch] {
		if err := w.fan.SetDuty(ch, 0); err != nil {
			w.log.WithError(err).Warnf("failed to force GPU%d fan off", idx)
		}
		sm.Reset()
		return
	}
	t, ok := w.temps.GPUTempC(idx)
	if !ok || len(w.curves.GPU) == 0 {
		return
	}
	duty := fancurve.Evaluate(w.curves.GPU, t)
	if d, write := sm.Next(now, duty); write {
		if err := w.fan.SetDuty(ch, int(d)); err != nil {
			w.log.WithError(err).Warnf("failed to write GPU%d fan duty", idx)
		}
	}
	w.store.Push(metrics.DGPUDuty, nowMs, duty)
}

// evaluateWaterCooler implements the autoControlWC semantics resolved
// in DESIGN.md's Open Question #2: when autoControlWC is true and a
// water-cooler is connected, drive it from the curve; otherwise the
// evaluator holds and RPC-set values remain authoritative. A disabled
// channel overrides AutoControlWC: it forces duty 0 regardless.
func (w *Worker) evaluateWaterCooler(now time.Time, nowMs int64) {
	if w.wc == nil {
		return
	}
	if w.disabled[ectransport.ChannelWaterCoolerFan] {
		if err := w.wc.SetFanDuty(0); err != nil {
			w.log.WithError(err).Warn("failed to force water-cooler fan off")
		}
		w.wcSmoother.Reset()
		return
	}
	if !w.curves.AutoControlWC {
		return
	}
	connected, ok := w.wc.GetConnected()
	if !ok || !connected {
		return // holds: user setpoints stay authoritative
	}
	t, ok := w.temps.WaterCoolerTempC()
	if !ok || len(w.curves.WaterCoolerFan) == 0 {
		return
	}
	duty := fancurve.Evaluate(w.curves.WaterCoolerFan, t)
	if d, write := w.wcSmoother.Next(now, duty); write {
		if err := w.wc.SetFanDuty(int(d)); err != nil {
			w.log.WithError(err).Warn("failed to write water-cooler fan duty")
		}
	}
	w.store.Push(metrics.WaterCoolerFanDuty, nowMs, duty)
}
