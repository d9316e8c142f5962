// Package webcam wraps the EC's webcam hardware-kill switch.
package webcam

import (
	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/ucerr"
)

const fieldWebcam ectransport.FieldID = 0x0600

// Controller is the WebcamSwitch capability.
type Controller struct {
	ec *ectransport.Transport
}

func New(ec *ectransport.Transport) *Controller {
	return &Controller{ec: ec}
}

// Get reports whether the webcam is currently switched on.
func (c *Controller) Get() (bool, bool) {
	v, ok := c.ec.GetField(fieldWebcam)
	return v != 0, ok
}

// Set switches the webcam on or off.
func (c *Controller) Set(on bool) error {
	v := uint16(0)
	if on {
		v = 1
	}
	if err := c.ec.SetField(fieldWebcam, v); err != nil {
		return ucerr.New(ucerr.HwIO, "webcam.Set", err)
	}
	return nil
}
