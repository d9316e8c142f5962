// Package gpu reads dGPU/iGPU telemetry (temperature, duty, power,
// frequency) and the NVIDIA-Prime render-offload status.
package gpu

import (
	"github.com/spf13/afero"
	"github.com/uccd-project/uccd/internal/sysfsattr"
)

// Telemetry is one GPU's current sample set. Absent fields are zero
// with their corresponding *_ok flag false.
type Telemetry struct {
	TempC      float64
	TempOK     bool
	DutyPct    int
	DutyOK     bool
	PowerW     float64
	PowerOK    bool
	FreqMHz    int
	FreqOK     bool
}

// Controller is the GpuTelemetry capability, covering both the
// discrete and integrated GPU when present.
type Controller struct {
	dgpuTemp, dgpuDuty, dgpuPower, dgpuFreq *sysfsattr.Attr
	igpuTemp, igpuPower, igpuFreq           *sysfsattr.Attr
	nvidiaPrimeMode                         *sysfsattr.Attr
	hasDGPU, hasIGPU                        bool
}

// New builds GPU telemetry handles. dgpuHwmonPath/igpuHwmonPath are
// resolved by the caller (internal/daemon matches hwmon directories
// by driver name); either may be empty if that GPU is absent on this
// model.
func New(fs afero.Fs, dgpuHwmonPath, igpuHwmonPath string) *Controller {
	c := &Controller{}
	if dgpuHwmonPath != "" {
		c.dgpuTemp = sysfsattr.New(fs, dgpuHwmonPath+"/temp1_input", sysfsattr.KindInt)
		c.dgpuDuty = sysfsattr.New(fs, dgpuHwmonPath+"/pwm1", sysfsattr.KindInt)
		c.dgpuPower = sysfsattr.New(fs, dgpuHwmonPath+"/power1_average", sysfsattr.KindInt)
		c.dgpuFreq = sysfsattr.New(fs, dgpuHwmonPath+"/freq1_input", sysfsattr.KindInt)
		c.hasDGPU = c.dgpuTemp.IsAvailable()
	}
	if igpuHwmonPath != "" {
		c.igpuTemp = sysfsattr.New(fs, igpuHwmonPath+"/temp1_input", sysfsattr.KindInt)
		c.igpuPower = sysfsattr.New(fs, igpuHwmonPath+"/power1_average", sysfsattr.KindInt)
		c.igpuFreq = sysfsattr.New(fs, igpuHwmonPath+"/freq1_input", sysfsattr.KindInt)
		c.hasIGPU = c.igpuTemp.IsAvailable()
	}
	c.nvidiaPrimeMode = sysfsattr.New(fs, "/etc/prime-discrete", sysfsattr.KindString)
	return c
}

// HasDGPU/HasIGPU report whether each GPU's telemetry tree is present.
func (c *Controller) HasDGPU() bool { return c.hasDGPU }
func (c *Controller) HasIGPU() bool { return c.hasIGPU }

// ReadDGPU samples the discrete GPU's telemetry.
func (c *Controller) ReadDGPU() Telemetry {
	var t Telemetry
	if c.dgpuTemp == nil {
		return t
	}
	if milliC, ok := c.dgpuTemp.ReadInt(); ok {
		t.TempC, t.TempOK = float64(milliC)/1000.0, true
	}
	if duty, ok := c.dgpuDuty.ReadInt(); ok {
		t.DutyPct, t.DutyOK = (duty*100)/255, true
	}
	if microW, ok := c.dgpuPower.ReadInt(); ok {
		t.PowerW, t.PowerOK = float64(microW)/1_000_000.0, true
	}
	if hz, ok := c.dgpuFreq.ReadInt(); ok {
		t.FreqMHz, t.FreqOK = hz/1_000_000, true
	}
	return t
}

// ReadIGPU samples the integrated GPU's telemetry (no duty cycle:
// integrated GPUs on these models don't expose a separate fan).
func (c *Controller) ReadIGPU() Telemetry {
	var t Telemetry
	if c.igpuTemp == nil {
		return t
	}
	if milliC, ok := c.igpuTemp.ReadInt(); ok {
		t.TempC, t.TempOK = float64(milliC)/1000.0, true
	}
	if microW, ok := c.igpuPower.ReadInt(); ok {
		t.PowerW, t.PowerOK = float64(microW)/1_000_000.0, true
	}
	if hz, ok := c.igpuFreq.ReadInt(); ok {
		t.FreqMHz, t.FreqOK = hz/1_000_000, true
	}
	return t
}

// NVIDIAPrimeMode reports the render-offload mode string (e.g.
// "on-demand", "nvidia", "intel"), re-read by the hardware-monitor
// worker every 12th tick per §4.6.
func (c *Controller) NVIDIAPrimeMode() (string, bool) {
	return c.nvidiaPrimeMode.ReadString()
}
