package rpcsvc

import (
	"encoding/json"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/uccd-project/uccd/internal/authz"
	"github.com/uccd-project/uccd/internal/hal/watercooler"
	"github.com/uccd-project/uccd/internal/ucerr"
)

// Control-group methods (§4.10). Each checks authz.Control against the
// trailing dbus.Sender before touching hardware or engine state.

// SetActiveProfile switches the active profile and applies it.
func (s *Service) SetActiveProfile(id string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	if err := s.engine.SetActiveProfile(id); err != nil {
		return errToDBus(err)
	}
	return nil
}

// ApplyFanProfiles pushes a JSON-encoded set of fan curves straight to
// the fan-control worker, bypassing the profile catalog (used by
// clients tuning curves live before saving them as a named profile).
func (s *Service) ApplyFanProfiles(curvesJSON string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	if s.fanWorker == nil {
		return errToDBus(ucerr.New(ucerr.Unsupported, "rpcsvc.ApplyFanProfiles", errors.New("no fan-control worker")))
	}
	var wire fanCurvesWire
	if err := json.Unmarshal([]byte(curvesJSON), &wire); err != nil {
		return errToDBus(ucerr.New(ucerr.InvalidArgument, "rpcsvc.ApplyFanProfiles", err))
	}
	s.fanWorker.ApplyCurves(wire.toCurves())
	return nil
}

// SetKeyboardBacklightStatesJSON pushes a JSON-encoded set of per-zone
// states straight to the keyboard controller, bypassing the profile
// catalog (live-preview path, same rationale as ApplyFanProfiles).
func (s *Service) SetKeyboardBacklightStatesJSON(statesJSON string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	if s.hal.Keyboard == nil {
		return errToDBus(ucerr.New(ucerr.Unsupported, "rpcsvc.SetKeyboardBacklightStatesJSON", errors.New("no keyboard controller")))
	}
	var wire []keyboardZoneStateWire
	if err := json.Unmarshal([]byte(statesJSON), &wire); err != nil {
		return errToDBus(ucerr.New(ucerr.InvalidArgument, "rpcsvc.SetKeyboardBacklightStatesJSON", err))
	}
	if err := s.hal.Keyboard.SetStates(keyboardZoneStatesFromWire(wire)); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetWebcam toggles the webcam kill switch.
func (s *Service) SetWebcam(on bool, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	if s.hal.Webcam == nil {
		return errToDBus(ucerr.New(ucerr.Unsupported, "rpcsvc.SetWebcam", errors.New("no webcam controller")))
	}
	if err := s.hal.Webcam.Set(on); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetFnLockStatus toggles the Fn-lock.
func (s *Service) SetFnLockStatus(on bool, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	if s.hal.FnLock == nil {
		return errToDBus(ucerr.New(ucerr.Unsupported, "rpcsvc.SetFnLockStatus", errors.New("no fn-lock controller")))
	}
	if err := s.hal.FnLock.Set(on); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetDisplayBrightness sets the panel backlight percentage.
func (s *Service) SetDisplayBrightness(pct int32, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	if s.hal.Display == nil {
		return errToDBus(ucerr.New(ucerr.Unsupported, "rpcsvc.SetDisplayBrightness", errors.New("no display controller")))
	}
	if err := s.hal.Display.SetPercent(int(pct)); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetWaterCoolerFanSpeed sets the accessory fan's duty percentage.
func (s *Service) SetWaterCoolerFanSpeed(dutyPct int32, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	wc, err := s.waterCooler()
	if err != nil {
		return errToDBus(err)
	}
	if err := wc.SetFanDuty(int(dutyPct)); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetWaterCoolerPumpVoltage sets the accessory pump's quantized
// voltage code.
func (s *Service) SetWaterCoolerPumpVoltage(code int32, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	wc, err := s.waterCooler()
	if err != nil {
		return errToDBus(err)
	}
	if err := wc.SetPumpVoltage(watercooler.PumpVoltage(code)); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetWaterCoolerLEDColor sets the accessory's LED color and mode.
func (s *Service) SetWaterCoolerLEDColor(r, g, b, mode byte, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	wc, err := s.waterCooler()
	if err != nil {
		return errToDBus(err)
	}
	if err := wc.SetLED(r, g, b, mode); err != nil {
		return errToDBus(err)
	}
	return nil
}

// TurnOffWaterCoolerLED switches the accessory's LED off.
func (s *Service) TurnOffWaterCoolerLED(sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	wc, err := s.waterCooler()
	if err != nil {
		return errToDBus(err)
	}
	if err := wc.TurnOffLED(); err != nil {
		return errToDBus(err)
	}
	return nil
}

// EnableWaterCooler toggles whether the daemon drives the accessory at
// all.
func (s *Service) EnableWaterCooler(on bool, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	wc, err := s.waterCooler()
	if err != nil {
		return errToDBus(err)
	}
	if err := wc.Enable(on); err != nil {
		return errToDBus(err)
	}
	return nil
}

func (s *Service) waterCooler() (*watercooler.Controller, error) {
	if s.hal.WaterCooler == nil {
		return nil, ucerr.New(ucerr.Unsupported, "rpcsvc.waterCooler", errors.New("no water-cooler controller"))
	}
	return s.hal.WaterCooler, nil
}

// SetODMPerformanceProfile switches the device's fixed ODM mode (the
// vendor-defined thermal/performance presets the EC itself enforces,
// independent of the profile engine's own settings).
func (s *Service) SetODMPerformanceProfile(name string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.Control); derr != nil {
		return derr
	}
	if s.hal.ODM == nil {
		return errToDBus(ucerr.New(ucerr.Unsupported, "rpcsvc.SetODMPerformanceProfile", errors.New("no ODM controller")))
	}
	if err := s.hal.ODM.SetMode(name); err != nil {
		return errToDBus(err)
	}
	return nil
}
