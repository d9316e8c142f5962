// Package ectransport is the single-owner binder to the embedded
// controller's character device. All field access funnels through one
// mutex guarding the device file descriptor; nothing else in the
// daemon is permitted to open the device directly.
package ectransport

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/uccd-project/uccd/internal/ucerr"
)

// FieldID identifies an EC register field.
type FieldID uint16

// Channel identifies a fan channel exposed by the EC.
type Channel uint8

const (
	ChannelCPU Channel = iota
	ChannelGPU1
	ChannelGPU2
	ChannelPump
	ChannelWaterCoolerFan
)

// FanInfo is the EC's report for a single fan channel.
type FanInfo struct {
	RPM     uint16
	DutyPct uint8
}

// opCode tags the framed request sent to the device.
type opCode uint8

const (
	opGetField opCode = iota
	opSetField
	opSetFieldMasked
	opGetFanInfo
)

// request/response are the fixed-size wire structs framed over the
// character device. The real device multiplexes request types on a
// single node; field widths mirror the vendor's EC protocol (16-bit
// field ids/values, 8-bit channel/opcode selectors).
type request struct {
	Op      opCode
	Channel Channel
	Field   FieldID
	Value   uint16
	Mask    uint16
}

type response struct {
	OK    uint8
	Value uint16
	RPM   uint16
	Duty  uint8
}

// Transport is the single owner of the EC character device.
type Transport struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// Open opens the EC character device exactly once. Failure to open is
// classified ucerr.Unsupported: the daemon controller treats this as
// "unsupported device" and exits cleanly rather than restart-looping.
func Open(path string) (*Transport, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, ucerr.New(ucerr.Unsupported, "ectransport.Open", err)
	}
	return &Transport{file: f, path: path}, nil
}

// Close releases the device file descriptor.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// GetField reads an EC field. A failed or malformed response yields
// (0, false) — absent, not an error, per the HAL read-failure policy.
func (t *Transport) GetField(id FieldID) (uint16, bool) {
	resp, err := t.roundTrip(request{Op: opGetField, Field: id})
	if err != nil || resp.OK == 0 {
		return 0, false
	}
	return resp.Value, true
}

// SetField writes an EC field.
func (t *Transport) SetField(id FieldID, value uint16) error {
	resp, err := t.roundTrip(request{Op: opSetField, Field: id, Value: value})
	if err != nil {
		return ucerr.New(ucerr.HwIO, "ectransport.SetField", err)
	}
	if resp.OK == 0 {
		return ucerr.New(ucerr.HwIO, "ectransport.SetField", errors.Errorf("EC rejected field 0x%x", id))
	}
	return nil
}

// WriteFieldMasked writes only the bits selected by mask, preserving
// the remaining bits of the field.
func (t *Transport) WriteFieldMasked(id FieldID, value, mask uint16) error {
	resp, err := t.roundTrip(request{Op: opSetFieldMasked, Field: id, Value: value, Mask: mask})
	if err != nil {
		return ucerr.New(ucerr.HwIO, "ectransport.WriteFieldMasked", err)
	}
	if resp.OK == 0 {
		return ucerr.New(ucerr.HwIO, "ectransport.WriteFieldMasked", errors.Errorf("EC rejected masked write to field 0x%x", id))
	}
	return nil
}

// GetFanInfo reads RPM and duty for a fan channel.
func (t *Transport) GetFanInfo(ch Channel) (FanInfo, bool) {
	resp, err := t.roundTrip(request{Op: opGetFanInfo, Channel: ch})
	if err != nil || resp.OK == 0 {
		return FanInfo{}, false
	}
	return FanInfo{RPM: resp.RPM, DutyPct: resp.Duty}, true
}

// roundTrip serializes one request/response exchange under the single
// transport mutex. The character device is a single shared resource;
// no caller may bypass this lock.
func (t *Transport) roundTrip(req request) (response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return response{}, errors.New("ec transport closed")
	}

	if err := binary.Write(t.file, binary.LittleEndian, req); err != nil {
		return response{}, errors.Wrap(err, "write EC request")
	}

	var resp response
	if err := binary.Read(t.file, binary.LittleEndian, &resp); err != nil {
		return response{}, errors.Wrap(err, "read EC response")
	}

	return resp, nil
}
