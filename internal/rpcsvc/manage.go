package rpcsvc

import (
	"encoding/json"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/uccd-project/uccd/internal/authz"
	"github.com/uccd-project/uccd/internal/hal/charging"
	"github.com/uccd-project/uccd/internal/profile"
	"github.com/uccd-project/uccd/internal/ucerr"
	"github.com/uccd-project/uccd/internal/worker/powerstate"
)

// Manage-hardware-group methods (§4.10): anything that persists a
// custom profile, edits the state map, or changes a threshold/limit
// the vendor otherwise fixes (charging thresholds, TDP slots, fan
// disable). Each checks authz.ManageHardware.

// CreateCustomProfile stores a new custom profile and returns it with
// its assigned id as JSON.
func (s *Service) CreateCustomProfile(profileJSON string, sender dbus.Sender) (string, *dbus.Error) {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return "", derr
	}
	var p profile.Profile
	if err := json.Unmarshal([]byte(profileJSON), &p); err != nil {
		return "", errToDBus(ucerr.New(ucerr.InvalidArgument, "rpcsvc.CreateCustomProfile", err))
	}
	stored, err := s.engine.CreateCustomProfile(p)
	if err != nil {
		return "", errToDBus(err)
	}
	body, err := json.Marshal(stored)
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// UpdateCustomProfile replaces the custom profile with id.
func (s *Service) UpdateCustomProfile(id, profileJSON string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	var p profile.Profile
	if err := json.Unmarshal([]byte(profileJSON), &p); err != nil {
		return errToDBus(ucerr.New(ucerr.InvalidArgument, "rpcsvc.UpdateCustomProfile", err))
	}
	if err := s.engine.UpdateCustomProfile(id, p); err != nil {
		return errToDBus(err)
	}
	return nil
}

// DeleteCustomProfile removes the custom profile with id.
func (s *Service) DeleteCustomProfile(id string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	if err := s.engine.DeleteCustomProfile(id); err != nil {
		return errToDBus(err)
	}
	return nil
}

// CreateCustomFanProfile stores a new custom fan profile.
func (s *Service) CreateCustomFanProfile(fanProfileJSON string, sender dbus.Sender) (string, *dbus.Error) {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return "", derr
	}
	var fp profile.FanProfile
	if err := json.Unmarshal([]byte(fanProfileJSON), &fp); err != nil {
		return "", errToDBus(ucerr.New(ucerr.InvalidArgument, "rpcsvc.CreateCustomFanProfile", err))
	}
	stored, err := s.engine.CreateCustomFanProfile(fp)
	if err != nil {
		return "", errToDBus(err)
	}
	body, err := json.Marshal(stored)
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// UpdateCustomFanProfile replaces the custom fan profile with id.
func (s *Service) UpdateCustomFanProfile(id, fanProfileJSON string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	var fp profile.FanProfile
	if err := json.Unmarshal([]byte(fanProfileJSON), &fp); err != nil {
		return errToDBus(ucerr.New(ucerr.InvalidArgument, "rpcsvc.UpdateCustomFanProfile", err))
	}
	if err := s.engine.UpdateCustomFanProfile(id, fp); err != nil {
		return errToDBus(err)
	}
	return nil
}

// DeleteCustomFanProfile removes the custom fan profile with id.
func (s *Service) DeleteCustomFanProfile(id string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	if err := s.engine.DeleteCustomFanProfile(id); err != nil {
		return errToDBus(err)
	}
	return nil
}

// CreateCustomKeyboardProfile stores a new custom keyboard profile.
func (s *Service) CreateCustomKeyboardProfile(keyboardProfileJSON string, sender dbus.Sender) (string, *dbus.Error) {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return "", derr
	}
	var kp profile.KeyboardProfile
	if err := json.Unmarshal([]byte(keyboardProfileJSON), &kp); err != nil {
		return "", errToDBus(ucerr.New(ucerr.InvalidArgument, "rpcsvc.CreateCustomKeyboardProfile", err))
	}
	stored, err := s.engine.CreateCustomKeyboardProfile(kp)
	if err != nil {
		return "", errToDBus(err)
	}
	body, err := json.Marshal(stored)
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// UpdateCustomKeyboardProfile replaces the custom keyboard profile
// with id.
func (s *Service) UpdateCustomKeyboardProfile(id, keyboardProfileJSON string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	var kp profile.KeyboardProfile
	if err := json.Unmarshal([]byte(keyboardProfileJSON), &kp); err != nil {
		return errToDBus(ucerr.New(ucerr.InvalidArgument, "rpcsvc.UpdateCustomKeyboardProfile", err))
	}
	if err := s.engine.UpdateCustomKeyboardProfile(id, kp); err != nil {
		return errToDBus(err)
	}
	return nil
}

// DeleteCustomKeyboardProfile removes the custom keyboard profile
// with id.
func (s *Service) DeleteCustomKeyboardProfile(id string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	if err := s.engine.DeleteCustomKeyboardProfile(id); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetStateProfile binds a power-source state to a profile id.
func (s *Service) SetStateProfile(state, id string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	if err := s.engine.SetStateProfile(powerstate.State(state), id); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetChargingProfile switches the battery-charging policy.
func (s *Service) SetChargingProfile(name string, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	cc, err := s.charging()
	if err != nil {
		return errToDBus(err)
	}
	p, ok := chargingProfileFromName(name)
	if !ok {
		return errToDBus(ucerr.New(ucerr.InvalidArgument, "rpcsvc.SetChargingProfile", errors.Errorf("unknown charging profile %q", name)))
	}
	if err := cc.SetProfile(p); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetChargingPriority sets which rail (CPU vs. battery) is favored
// under shared power budget.
func (s *Service) SetChargingPriority(priority int32, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	cc, err := s.charging()
	if err != nil {
		return errToDBus(err)
	}
	if err := cc.SetPriority(int(priority)); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetChargingThresholds sets the start/stop battery percentages that
// bound charge-limiting.
func (s *Service) SetChargingThresholds(startPct, stopPct int32, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	cc, err := s.charging()
	if err != nil {
		return errToDBus(err)
	}
	if err := cc.SetThresholds(int(startPct), int(stopPct)); err != nil {
		return errToDBus(err)
	}
	return nil
}

func (s *Service) charging() (interface {
	SetProfile(charging.Profile) error
	SetPriority(int) error
	SetThresholds(int, int) error
}, error) {
	if s.hal.Charging == nil {
		return nil, ucerr.New(ucerr.Unsupported, "rpcsvc.charging", errors.New("no charging controller"))
	}
	return s.hal.Charging, nil
}

func chargingProfileFromName(name string) (charging.Profile, bool) {
	switch name {
	case "high_capacity":
		return charging.ProfileHighCapacity, true
	case "balanced":
		return charging.ProfileBalanced, true
	case "stationary":
		return charging.ProfileStationary, true
	default:
		return 0, false
	}
}

// SetPowerLimitWatts sets one named TDP/PL slot (pl1, pl2, pl4, ctgp,
// ...) to the given wattage.
func (s *Service) SetPowerLimitWatts(label string, watts int32, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	if s.hal.Power == nil {
		return errToDBus(ucerr.New(ucerr.Unsupported, "rpcsvc.SetPowerLimitWatts", errors.New("no power-limit controller")))
	}
	if err := s.hal.Power.SetLimitWatts(label, int(watts)); err != nil {
		return errToDBus(err)
	}
	return nil
}

// SetFanDisabled forces a fan channel fully off or releases it back to
// curve control (a safety/manage-hardware-tier override, not exposed
// through profiles). Routed through the fan-control worker rather than
// s.hal.Fan directly: fan writes occur only from that worker's own
// goroutine (§5), and only the worker can make "disabled" stick
// against its own curve-driven writes on the next tick.
func (s *Service) SetFanDisabled(channel int32, disabled bool, sender dbus.Sender) *dbus.Error {
	if derr := s.authorize(sender, authz.ManageHardware); derr != nil {
		return derr
	}
	if s.fanWorker == nil {
		return errToDBus(ucerr.New(ucerr.Unsupported, "rpcsvc.SetFanDisabled", errors.New("no fan-control worker")))
	}
	s.fanWorker.SetDisabled(fanChannelFromInt(channel), disabled)
	return nil
}
