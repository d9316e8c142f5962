// Package display wraps the internal panel's brightness control under
// /sys/class/backlight.
package display

import (
	"errors"

	"github.com/spf13/afero"
	"github.com/uccd-project/uccd/internal/sysfsattr"
	"github.com/uccd-project/uccd/internal/ucerr"
)

// Controller is the DisplayBrightness capability.
type Controller struct {
	brightness    *sysfsattr.Attr
	maxBrightness *sysfsattr.Attr
}

// New probes /sys/class/backlight/<first device>; returns (nil, false)
// if no backlight device is present.
func New(fs afero.Fs, backlightPath string) (*Controller, bool) {
	max := sysfsattr.New(fs, backlightPath+"/max_brightness", sysfsattr.KindInt)
	if !max.IsAvailable() {
		return nil, false
	}
	return &Controller{
		brightness:    sysfsattr.New(fs, backlightPath+"/brightness", sysfsattr.KindInt),
		maxBrightness: max,
	}, true
}

// SetPercent sets brightness as a percentage of the device's max.
func (c *Controller) SetPercent(pct int) error {
	if pct < 0 || pct > 100 {
		return ucerr.New(ucerr.InvalidArgument, "display.SetPercent", errors.New("brightness percent must be within [0,100]"))
	}
	max, ok := c.maxBrightness.ReadInt()
	if !ok {
		return ucerr.New(ucerr.HwIO, "display.SetPercent", errors.New("max_brightness attribute unavailable"))
	}
	raw := (pct * max) / 100
	if err := c.brightness.WriteInt(raw); err != nil {
		return ucerr.New(ucerr.HwIO, "display.SetPercent", err)
	}
	return nil
}

// GetPercent reads current brightness as a percentage.
func (c *Controller) GetPercent() (int, bool) {
	raw, ok := c.brightness.ReadInt()
	if !ok {
		return 0, false
	}
	max, ok := c.maxBrightness.ReadInt()
	if !ok || max == 0 {
		return 0, false
	}
	return (raw * 100) / max, true
}
