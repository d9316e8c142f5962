// Package odm controls the vendor-defined ODM performance mode: a
// named power/performance profile implemented entirely by the EC, set
// by index into the device's fixed mode-name list.
package odm

import (
	"fmt"

	"github.com/uccd-project/uccd/internal/ectransport"
)

const odmModeField ectransport.FieldID = 0x0602

// Controller switches among the device's ODM performance modes. The
// mode name list itself comes from the device capability record (§3);
// this controller only knows the EC-facing index.
type Controller struct {
	ec    *ectransport.Transport
	modes []string
}

// New builds the controller against the device's available mode
// names, as given by the capability record at startup.
func New(ec *ectransport.Transport, modes []string) *Controller {
	return &Controller{ec: ec, modes: modes}
}

// Available returns the device's fixed set of mode names.
func (c *Controller) Available() []string {
	out := make([]string, len(c.modes))
	copy(out, c.modes)
	return out
}

// SetMode selects a mode by name.
func (c *Controller) SetMode(name string) error {
	idx := c.indexOf(name)
	if idx < 0 {
		return fmt.Errorf("odm: unknown performance mode %q", name)
	}
	return c.ec.SetField(odmModeField, uint16(idx))
}

// GetMode reads back the currently active mode name.
func (c *Controller) GetMode() (string, bool) {
	v, ok := c.ec.GetField(odmModeField)
	if !ok || int(v) >= len(c.modes) {
		return "", false
	}
	return c.modes[v], true
}

func (c *Controller) indexOf(name string) int {
	for i, m := range c.modes {
		if m == name {
			return i
		}
	}
	return -1
}
