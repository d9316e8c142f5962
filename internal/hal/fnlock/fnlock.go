// Package fnlock wraps the EC's function-key lock switch.
package fnlock

import (
	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/ucerr"
)

const fieldFnLock ectransport.FieldID = 0x0601

// Controller is the FnLockSwitch capability.
type Controller struct {
	ec *ectransport.Transport
}

func New(ec *ectransport.Transport) *Controller {
	return &Controller{ec: ec}
}

// Get reports whether Fn-lock is currently enabled.
func (c *Controller) Get() (bool, bool) {
	v, ok := c.ec.GetField(fieldFnLock)
	return v != 0, ok
}

// Set enables or disables Fn-lock.
func (c *Controller) Set(on bool) error {
	v := uint16(0)
	if on {
		v = 1
	}
	if err := c.ec.SetField(fieldFnLock, v); err != nil {
		return ucerr.New(ucerr.HwIO, "fnlock.Set", err)
	}
	return nil
}
