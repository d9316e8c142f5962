// Package power wraps RAPL power counters and constraints (PL1/PL2/PL4,
// cTGP) exposed under /sys/class/powercap/intel-rapl.
package power

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/uccd-project/uccd/internal/sysfsattr"
	"github.com/uccd-project/uccd/internal/ucerr"
)

// Slot is one configurable power-limit slot, taken from the device
// capability record's power-limit-slots list.
type Slot struct {
	Label    string
	MinW     int
	MaxW     int
	attr     *sysfsattr.Attr
}

// Controller is the PowerController (RAPL) capability.
type Controller struct {
	fs        afero.Fs
	energyUJ  *sysfsattr.Attr // energy_uj, monotonic microjoule counter
	slots     map[string]*Slot
}

// New builds a controller for the given power-limit slots (labels and
// ranges are supplied by the device capability record at startup).
// Returns (nil, false) if the RAPL powercap root is absent.
func New(fs afero.Fs, slots []Slot) (*Controller, bool) {
	root := "/sys/class/powercap/intel-rapl/intel-rapl:0"
	energy := sysfsattr.New(fs, root+"/energy_uj", sysfsattr.KindInt)
	if !energy.IsAvailable() {
		return nil, false
	}

	c := &Controller{fs: fs, energyUJ: energy, slots: make(map[string]*Slot)}
	for i := range slots {
		s := slots[i]
		s.attr = sysfsattr.New(fs, fmt.Sprintf("%s/constraint_%d_power_limit_uw", root, i), sysfsattr.KindInt)
		c.slots[s.Label] = &s
	}
	return c, true
}

// GetEnergyMicrojoules reads the monotonic RAPL energy counter.
func (c *Controller) GetEnergyMicrojoules() (int64, bool) {
	v, ok := c.energyUJ.ReadInt()
	return int64(v), ok
}

// SetLimitWatts writes a power-limit slot (PL1/PL2/PL4/cTGP), clamped
// to that slot's [MinW, MaxW] range from the capability record.
func (c *Controller) SetLimitWatts(label string, watts int) error {
	s, ok := c.slots[label]
	if !ok {
		return ucerr.New(ucerr.NotFound, "power.SetLimitWatts", fmt.Errorf("unknown power-limit slot %q", label))
	}
	if watts < s.MinW {
		watts = s.MinW
	}
	if watts > s.MaxW {
		watts = s.MaxW
	}
	if err := s.attr.WriteInt(watts * 1_000_000); err != nil {
		return ucerr.New(ucerr.HwIO, "power.SetLimitWatts", err)
	}
	return nil
}

// GetLimitWatts reads back a power-limit slot's current value.
func (c *Controller) GetLimitWatts(label string) (int, bool) {
	s, ok := c.slots[label]
	if !ok {
		return 0, false
	}
	uw, ok := s.attr.ReadInt()
	if !ok {
		return 0, false
	}
	return uw / 1_000_000, true
}

// Slots lists the configured power-limit slot labels.
func (c *Controller) Slots() []string {
	labels := make([]string, 0, len(c.slots))
	for l := range c.slots {
		labels = append(labels, l)
	}
	return labels
}
