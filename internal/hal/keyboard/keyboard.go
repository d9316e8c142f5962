// Package keyboard wraps the keyboard-backlight EC registers: zone
// count, per-zone color/mode/brightness state, and the overall
// brightness scalar.
package keyboard

import (
	"encoding/binary"
	"errors"

	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/ucerr"
)

// Recognized zone counts per §3 of the data model: single-zone,
// 3-zone, and per-key (126-zone) keyboards.
const (
	Zones1   = 1
	Zones3   = 3
	ZonesPerKey = 126
)

// Mode is a per-zone lighting mode (static color, breathe, etc.); the
// set of valid values is vendor-defined and opaque to this layer.
type Mode uint8

// ZoneState is the per-zone backlight state.
type ZoneState struct {
	Mode       Mode
	Brightness uint8
	R, G, B    uint8
}

// Info describes the keyboard's backlight capabilities.
type Info struct {
	Zones      int
	MaxBrightness uint8
	MaxR, MaxG, MaxB uint8
}

const (
	fieldZoneCount   ectransport.FieldID = 0x0300
	fieldMaxBright   ectransport.FieldID = 0x0301
	fieldMaxColor    ectransport.FieldID = 0x0302
	fieldBrightness  ectransport.FieldID = 0x0303
	fieldZoneStateBase ectransport.FieldID = 0x0310
)

// Controller is the KeyboardBacklightController capability.
type Controller struct {
	ec *ectransport.Transport
}

// New probes the EC for a zone count; returns (nil, false) if the EC
// reports zero zones (no keyboard backlight on this model).
func New(ec *ectransport.Transport) (*Controller, bool) {
	zones, ok := ec.GetField(fieldZoneCount)
	if !ok || zones == 0 {
		return nil, false
	}
	return &Controller{ec: ec}, true
}

// GetInfo reports the keyboard's zone/brightness/color capabilities.
func (c *Controller) GetInfo() (Info, bool) {
	zones, ok := c.ec.GetField(fieldZoneCount)
	if !ok {
		return Info{}, false
	}
	maxBright, _ := c.ec.GetField(fieldMaxBright)
	maxColor, _ := c.ec.GetField(fieldMaxColor)

	return Info{
		Zones:         int(zones),
		MaxBrightness: uint8(maxBright),
		MaxR:          uint8(maxColor >> 16),
		MaxG:          uint8(maxColor >> 8),
		MaxB:          uint8(maxColor),
	}, true
}

// SetStates pushes one ZoneState per zone in order. Only each zone's
// mode and brightness reach the EC; R, G and B are not written.
func (c *Controller) SetStates(states []ZoneState) error {
	for i, st := range states {
		packed := packZoneState(st)
		field := fieldZoneStateBase + ectransport.FieldID(i)
		if err := c.ec.SetField(field, packed); err != nil {
			return ucerr.New(ucerr.HwIO, "keyboard.SetStates", err)
		}
	}
	return nil
}

// SetBrightness sets the overall backlight brightness.
func (c *Controller) SetBrightness(brightness int) error {
	if brightness < 0 {
		return ucerr.New(ucerr.InvalidArgument, "keyboard.SetBrightness", errors.New("brightness must be >= 0"))
	}
	if err := c.ec.SetField(fieldBrightness, uint16(brightness)); err != nil {
		return ucerr.New(ucerr.HwIO, "keyboard.SetBrightness", err)
	}
	return nil
}

func packZoneState(st ZoneState) uint16 {
	// Packs mode (high byte) with brightness (low byte) into a single
	// 16-bit word, matching the fixed-width EC field convention used
	// throughout this package. Color is not part of the word.
	var buf [2]byte
	buf[0] = st.Brightness
	buf[1] = uint8(st.Mode)
	return binary.LittleEndian.Uint16(buf[:])
}
