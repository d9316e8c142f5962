// Package charging wraps the EC's battery-charging controls: charge
// profile, priority, and start/stop thresholds.
package charging

import (
	"errors"

	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/ucerr"
)

// Profile selects the charging strategy.
type Profile int

const (
	ProfileHighCapacity Profile = iota
	ProfileBalanced
	ProfileStationary
)

const (
	fieldProfile    ectransport.FieldID = 0x0500
	fieldPriority   ectransport.FieldID = 0x0501
	fieldStartPct   ectransport.FieldID = 0x0502
	fieldStopPct    ectransport.FieldID = 0x0503
)

// Controller is the ChargingController capability.
type Controller struct {
	ec *ectransport.Transport
}

// New always succeeds; the device capability record determines
// whether charging-profile RPCs are exposed at all.
func New(ec *ectransport.Transport) *Controller {
	return &Controller{ec: ec}
}

// SetProfile selects the charging strategy.
func (c *Controller) SetProfile(p Profile) error {
	if err := c.ec.SetField(fieldProfile, uint16(p)); err != nil {
		return ucerr.New(ucerr.HwIO, "charging.SetProfile", err)
	}
	return nil
}

// SetPriority sets the charging priority (vendor-defined scale).
func (c *Controller) SetPriority(priority int) error {
	if err := c.ec.SetField(fieldPriority, uint16(priority)); err != nil {
		return ucerr.New(ucerr.HwIO, "charging.SetPriority", err)
	}
	return nil
}

// SetThresholds sets start/stop charge percentages. Invariant
// start < stop is validated by the profile engine before this is
// called; this layer still checks it as a last line of defense.
func (c *Controller) SetThresholds(startPct, stopPct int) error {
	if startPct < 0 || stopPct > 100 || startPct >= stopPct {
		return ucerr.New(ucerr.InvalidArgument, "charging.SetThresholds", errors.New("charging start must be < stop, within [0,100]"))
	}
	if err := c.ec.SetField(fieldStartPct, uint16(startPct)); err != nil {
		return ucerr.New(ucerr.HwIO, "charging.SetThresholds", err)
	}
	if err := c.ec.SetField(fieldStopPct, uint16(stopPct)); err != nil {
		return ucerr.New(ucerr.HwIO, "charging.SetThresholds", err)
	}
	return nil
}

// GetStatusJSON-shaped fields are read individually for the RPC
// layer; kept as plain getters rather than one aggregate struct so
// each can report absence independently.

func (c *Controller) GetProfile() (Profile, bool) {
	v, ok := c.ec.GetField(fieldProfile)
	return Profile(v), ok
}

func (c *Controller) GetThresholds() (startPct, stopPct int, ok bool) {
	start, ok1 := c.ec.GetField(fieldStartPct)
	stop, ok2 := c.ec.GetField(fieldStopPct)
	return int(start), int(stop), ok1 && ok2
}
