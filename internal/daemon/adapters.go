package daemon

import (
	"time"

	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/hal/cpufreq"
	"github.com/uccd-project/uccd/internal/hal/gpu"
	"github.com/uccd-project/uccd/internal/hal/power"
	"github.com/uccd-project/uccd/internal/hal/watercooler"
	"github.com/uccd-project/uccd/internal/sysfsattr"
)

// Package-private EC fields for telemetry the HAL packages don't
// already expose through sysfs: CPU package temperature and the two
// water-cooler loop temperatures, all EC-native on every model that
// carries this capability. 0x0700 is the first free field range after
// fan/keyboard/watercooler/charging/webcam/fnlock/odm.
const (
	fieldCPUPackageTemp  ectransport.FieldID = 0x0700
	fieldPumpTemp        ectransport.FieldID = 0x0701
	fieldWaterCoolerTemp ectransport.FieldID = 0x0702
)

// cpuSampler adapts hal/cpufreq and hal/power into worker/hwmon's
// CPUSampler, deriving instantaneous power from the RAPL energy
// counter's delta between ticks (hal/power only exposes the
// monotonic counter itself, never a wattage).
type cpuSampler struct {
	freq  *cpufreq.Controller
	power *power.Controller // nil if RAPL is absent on this device

	haveLast   bool
	lastEnergy int64
	lastTime   time.Time
}

func newCPUSampler(freq *cpufreq.Controller, pwr *power.Controller) *cpuSampler {
	return &cpuSampler{freq: freq, power: pwr}
}

func (s *cpuSampler) CurrentFreqMHz() (int, bool) {
	return s.freq.CurrentFreqMHz()
}

// CurrentPowerWatts converts two energy_uj samples into an average
// wattage over the elapsed interval. The first call after startup (or
// after any counter wraparound) has nothing to diff against and
// reports not-ok rather than a bogus spike.
func (s *cpuSampler) CurrentPowerWatts() (float64, bool) {
	if s.power == nil {
		return 0, false
	}
	energy, ok := s.power.GetEnergyMicrojoules()
	if !ok {
		return 0, false
	}
	now := time.Now()

	if !s.haveLast || energy < s.lastEnergy {
		s.haveLast = true
		s.lastEnergy = energy
		s.lastTime = now
		return 0, false
	}

	dt := now.Sub(s.lastTime).Seconds()
	deltaUJ := energy - s.lastEnergy
	s.lastEnergy = energy
	s.lastTime = now
	if dt <= 0 {
		return 0, false
	}
	return float64(deltaUJ) / 1e6 / dt, true
}

// fanTempReader adapts the EC transport and hal/gpu into
// worker/fanctl's TempReader.
type fanTempReader struct {
	ec  *ectransport.Transport
	gpu *gpu.Controller // nil if GPU telemetry is absent
}

func newFanTempReader(ec *ectransport.Transport, gpuCtl *gpu.Controller) *fanTempReader {
	return &fanTempReader{ec: ec, gpu: gpuCtl}
}

func (r *fanTempReader) CPUTempC() (float64, bool) {
	v, ok := r.ec.GetField(fieldCPUPackageTemp)
	if !ok {
		return 0, false
	}
	return float64(v) / 10, true
}

func (r *fanTempReader) GPUTempC(channel int) (float64, bool) {
	if r.gpu == nil {
		return 0, false
	}
	switch channel {
	case 0:
		t := r.gpu.ReadDGPU()
		return t.TempC, t.TempOK
	case 1:
		t := r.gpu.ReadIGPU()
		return t.TempC, t.TempOK
	default:
		return 0, false
	}
}

func (r *fanTempReader) PumpTempC() (float64, bool) {
	v, ok := r.ec.GetField(fieldPumpTemp)
	if !ok {
		return 0, false
	}
	return float64(v) / 10, true
}

func (r *fanTempReader) WaterCoolerTempC() (float64, bool) {
	v, ok := r.ec.GetField(fieldWaterCoolerTemp)
	if !ok {
		return 0, false
	}
	return float64(v) / 10, true
}

// acPowerReader adapts a discovered power_supply "online" attribute
// and hal/watercooler into worker/powerstate's Reader.
type acPowerReader struct {
	online *sysfsattr.Attr
	wc     *watercooler.Controller // nil if unsupported on this device
}

func newACPowerReader(online *sysfsattr.Attr, wc *watercooler.Controller) *acPowerReader {
	return &acPowerReader{online: online, wc: wc}
}

func (r *acPowerReader) ACPresent() (bool, bool) {
	return r.online.ReadBool()
}

func (r *acPowerReader) WaterCoolerConnected() (bool, bool) {
	if r.wc == nil {
		return false, true
	}
	return r.wc.GetConnected()
}
