// Package watercooler wraps the optional external water-cooler
// accessory. Presence of this capability is gated by the device
// capability record (internal/deviceid), not by a sysfs/EC probe —
// the EC exposes the fields unconditionally, but only devices with
// WaterCoolerSupported actually have the accessory connector wired.
package watercooler

import (
	"fmt"

	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/ucerr"
)

// PumpVoltage codes as defined by the EC protocol (§4.3).
type PumpVoltage int

const (
	PumpOff PumpVoltage = 4
	PumpV7  PumpVoltage = 2
	PumpV8  PumpVoltage = 3
	PumpV11 PumpVoltage = 0
)

const (
	fieldEnabled    ectransport.FieldID = 0x0400
	fieldConnected  ectransport.FieldID = 0x0401
	fieldFanDuty    ectransport.FieldID = 0x0402
	fieldPumpVolt   ectransport.FieldID = 0x0403
	fieldLEDColor   ectransport.FieldID = 0x0404
	fieldLEDMode    ectransport.FieldID = 0x0405
	fieldPumpLevel  ectransport.FieldID = 0x0406
)

// EnableEvent is passed to the controller's onToggle callback whenever
// Enable toggles. The daemon installs a no-op callback; the
// accessory-discovery worker (internal/worker/accessory) does not
// receive these events.
type EnableEvent struct {
	Enabled bool
}

// Controller is the WaterCoolerController capability.
type Controller struct {
	ec       *ectransport.Transport
	onToggle func(EnableEvent)
}

// New constructs the controller. onToggle may be nil if no one needs
// to observe enable/disable transitions (e.g. BLE scan is disabled).
func New(ec *ectransport.Transport, onToggle func(EnableEvent)) *Controller {
	return &Controller{ec: ec, onToggle: onToggle}
}

// IsEnabled reports whether water-cooler support is turned on.
func (c *Controller) IsEnabled() (bool, bool) {
	v, ok := c.ec.GetField(fieldEnabled)
	return v != 0, ok
}

// Enable turns water-cooler support on or off and then calls the
// onToggle callback, if one was given.
func (c *Controller) Enable(on bool) error {
	v := uint16(0)
	if on {
		v = 1
	}
	if err := c.ec.SetField(fieldEnabled, v); err != nil {
		return ucerr.New(ucerr.HwIO, "watercooler.Enable", err)
	}
	if c.onToggle != nil {
		c.onToggle(EnableEvent{Enabled: on})
	}
	return nil
}

// GetConnected reports whether the accessory is currently connected.
func (c *Controller) GetConnected() (bool, bool) {
	v, ok := c.ec.GetField(fieldConnected)
	return v != 0, ok
}

// SetFanDuty sets the water-cooler fan duty percentage.
func (c *Controller) SetFanDuty(dutyPct int) error {
	if dutyPct < 0 || dutyPct > 100 {
		return ucerr.New(ucerr.InvalidArgument, "watercooler.SetFanDuty", fmt.Errorf("dutyPct %d out of range [0,100]", dutyPct))
	}
	if err := c.ec.SetField(fieldFanDuty, uint16(dutyPct)); err != nil {
		return ucerr.New(ucerr.HwIO, "watercooler.SetFanDuty", err)
	}
	return nil
}

// GetFanDuty reads back the current fan duty.
func (c *Controller) GetFanDuty() (int, bool) {
	v, ok := c.ec.GetField(fieldFanDuty)
	return int(v), ok
}

// SetPumpVoltage selects the pump's drive voltage.
func (c *Controller) SetPumpVoltage(code PumpVoltage) error {
	if err := c.ec.SetField(fieldPumpVolt, uint16(code)); err != nil {
		return ucerr.New(ucerr.HwIO, "watercooler.SetPumpVoltage", err)
	}
	return nil
}

// GetPumpLevel reads the pump's current quantized level {0,1,2,3}.
func (c *Controller) GetPumpLevel() (int, bool) {
	v, ok := c.ec.GetField(fieldPumpLevel)
	return int(v), ok
}

// SetLED sets the accessory's LED color and mode. Color is split
// across two 16-bit EC fields (R,G in one word, B + mode in the
// other) since the EC field width is fixed at 16 bits.
func (c *Controller) SetLED(r, g, b uint8, mode uint8) error {
	if err := c.ec.SetField(fieldLEDColor, uint16(r)<<8|uint16(g)); err != nil {
		return ucerr.New(ucerr.HwIO, "watercooler.SetLED", err)
	}
	if err := c.ec.SetField(fieldLEDMode, uint16(mode)<<8|uint16(b)); err != nil {
		return ucerr.New(ucerr.HwIO, "watercooler.SetLED", err)
	}
	return nil
}

// TurnOffLED is a convenience for SetLED(0,0,0,off).
func (c *Controller) TurnOffLED() error {
	return c.SetLED(0, 0, 0, 0)
}
