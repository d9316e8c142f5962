// Package fan wraps EC fan channels. Writes are only ever issued by
// the fan-control worker (see internal/worker/fanctl); this package
// itself imposes no such restriction, it simply provides the typed
// calls.
package fan

import (
	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/ucerr"
)

// Mode selects automatic (EC-driven) or manual (daemon-driven) fan
// control.
type Mode int

const (
	ModeAuto Mode = iota
	ModeManual
)

// fanModeField is the EC field that toggles automatic vs. manual fan
// control; duty is written to a per-channel field via SetField and
// read back through GetFanInfo.
const fanModeField ectransport.FieldID = 0x0210

// Controller is the FanController capability.
type Controller struct {
	ec *ectransport.Transport
}

// New always succeeds; fan channel availability is probed per-call via
// the EC transport, since the EC has no sysfs precondition to check
// up front.
func New(ec *ectransport.Transport) *Controller {
	return &Controller{ec: ec}
}

// GetRPM returns the channel's current fan speed, or ok=false if the
// EC did not answer.
func (c *Controller) GetRPM(ch ectransport.Channel) (rpm uint16, ok bool) {
	info, ok := c.ec.GetFanInfo(ch)
	if !ok {
		return 0, false
	}
	return info.RPM, true
}

// GetDuty returns the channel's current duty percentage.
func (c *Controller) GetDuty(ch ectransport.Channel) (dutyPct uint8, ok bool) {
	info, ok := c.ec.GetFanInfo(ch)
	if !ok {
		return 0, false
	}
	return info.DutyPct, true
}

// SetMode switches the EC between automatic and manual fan control.
func (c *Controller) SetMode(mode Mode) error {
	v := uint16(0)
	if mode == ModeManual {
		v = 1
	}
	if err := c.ec.SetField(fanModeField, v); err != nil {
		return ucerr.New(ucerr.HwIO, "fan.SetMode", err)
	}
	return nil
}

// SetDuty writes a duty percentage [0,100] for ch. Callers validate
// the duty is already in range before reaching this layer (see
// internal/fancurve), but this method clamps defensively since it's
// the last stop before an EC write.
func (c *Controller) SetDuty(ch ectransport.Channel, dutyPct int) error {
	if dutyPct < 0 {
		dutyPct = 0
	}
	if dutyPct > 100 {
		dutyPct = 100
	}
	field := dutyFieldForChannel(ch)
	if err := c.ec.SetField(field, uint16(dutyPct)); err != nil {
		return ucerr.New(ucerr.HwIO, "fan.SetDuty", err)
	}
	return nil
}

func dutyFieldForChannel(ch ectransport.Channel) ectransport.FieldID {
	return ectransport.FieldID(0x0220 + uint16(ch))
}
