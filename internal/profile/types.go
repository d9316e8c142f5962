// Package profile implements the profile engine: built-in and custom
// catalogs of profiles, fan profiles, and keyboard profiles, the
// active profile, the per-power-source state map, and application of
// a profile's settings to the hardware abstraction layer.
package profile

import (
	"fmt"

	"github.com/uccd-project/uccd/internal/fancurve"
	"github.com/uccd-project/uccd/internal/hal/charging"
	"github.com/uccd-project/uccd/internal/hal/keyboard"
	"github.com/uccd-project/uccd/internal/ucerr"
	"github.com/uccd-project/uccd/internal/worker/powerstate"
)

// CPUSettings is the profile's CPU governance block.
//
// ScalingMinFreqKHz/ScalingMaxFreqKHz: 0 means "leave the current
// scaling bound alone" — apply() skips that step entirely rather than
// handing 0 to cpufreq.Controller.SetMinFreq/SetMaxFreq, which would
// clamp the bound down to the hardware's absolute floor. A profile
// that wants the floor raised to scaling_max sets ScalingMinFreqKHz to
// cpufreq.TargetToMax; one that wants a reduced ceiling sets
// ScalingMaxFreqKHz to cpufreq.TargetReduced.
type CPUSettings struct {
	Governor                    string
	EnergyPerformancePreference string
	ScalingMinFreqKHz           int
	ScalingMaxFreqKHz           int
	OnlineCoreCount             int
	BoostEnabled                bool
}

// ChargingSettings is the profile's battery-charging block.
type ChargingSettings struct {
	Profile  charging.Profile
	Priority int
	StartPct int
	StopPct  int
}

// FanBinding ties a profile to a fan profile and the water-cooler
// auto-control flag handed off to the fan-control worker.
type FanBinding struct {
	FanProfileID  string
	AutoControlWC bool
}

// Profile is one complete hardware configuration, per §3 of the data
// model. Display/Webcam/FnLock/Keyboard settings use nil (pointer or
// empty-string) to mean "unchanged" — apply() skips those steps. The
// same convention applies to CPU.ScalingMinFreqKHz/ScalingMaxFreqKHz
// (see CPUSettings).
type Profile struct {
	ID      string
	Name    string
	Builtin bool

	CPU      CPUSettings
	Charging ChargingSettings
	ODMMode  string // "" means unchanged

	DisplayBrightnessPercent *int // nil means unchanged
	WebcamOn                 *bool
	FnLockOn                 *bool

	Fan      FanBinding
	Keyboard KeyboardProfileRef
}

func (p *Profile) GetID() string     { return p.ID }
func (p *Profile) SetID(id string)   { p.ID = id }
func (p *Profile) GetBuiltin() bool  { return p.Builtin }

// Validate enforces the profile-local invariants of §3: scaling-min <=
// scaling-max, charging-start < charging-stop. Referential invariants
// (fan-profile-id exists, keyboard reference resolves) are checked by
// the engine, which has catalog access.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return ucerr.New(ucerr.InvalidArgument, "profile.Validate", fmt.Errorf("name must not be empty"))
	}
	if len(p.Name) > 128 {
		return ucerr.New(ucerr.InvalidArgument, "profile.Validate", fmt.Errorf("name exceeds 128 bytes"))
	}
	if p.CPU.ScalingMinFreqKHz > p.CPU.ScalingMaxFreqKHz {
		return ucerr.New(ucerr.InvalidArgument, "profile.Validate", fmt.Errorf("scaling-min-freq (%d) must be <= scaling-max-freq (%d)", p.CPU.ScalingMinFreqKHz, p.CPU.ScalingMaxFreqKHz))
	}
	if p.Charging.StartPct != 0 || p.Charging.StopPct != 0 {
		if p.Charging.StartPct < 0 || p.Charging.StopPct > 100 || p.Charging.StartPct >= p.Charging.StopPct {
			return ucerr.New(ucerr.InvalidArgument, "profile.Validate", fmt.Errorf("charging-start (%d) must be < charging-stop (%d), within [0,100]", p.Charging.StartPct, p.Charging.StopPct))
		}
	}
	if p.DisplayBrightnessPercent != nil {
		if v := *p.DisplayBrightnessPercent; v < 0 || v > 100 {
			return ucerr.New(ucerr.InvalidArgument, "profile.Validate", fmt.Errorf("display brightness %d out of range [0,100]", v))
		}
	}
	return nil
}

// FanProfile is a named set of per-channel fan curves, per §3.
type FanProfile struct {
	ID      string
	Name    string
	Builtin bool

	TableCPU            []fancurve.Point
	TableGPU            []fancurve.Point
	TablePump           []fancurve.Point
	TableWaterCoolerFan []fancurve.Point
}

func (f *FanProfile) GetID() string    { return f.ID }
func (f *FanProfile) SetID(id string)  { f.ID = id }
func (f *FanProfile) GetBuiltin() bool { return f.Builtin }

// Validate checks every non-empty table against fancurve's curve
// invariants. A fan profile need not define every channel (e.g. a
// device without a water cooler has no WaterCoolerFan table). Pump is
// validated against the discrete {0,1,2,3} drive-level range the
// fan-control worker quantizes into via fancurve.PumpQuantize;
// WaterCoolerFan is a duty-percent table like CPU/GPU, written
// straight through to the water-cooler's fan duty.
func (f *FanProfile) Validate() error {
	if f.Name == "" {
		return ucerr.New(ucerr.InvalidArgument, "fanProfile.Validate", fmt.Errorf("name must not be empty"))
	}
	dutyTables := map[string][]fancurve.Point{
		"cpu": f.TableCPU, "gpu": f.TableGPU, "water-cooler-fan": f.TableWaterCoolerFan,
	}
	for name, pts := range dutyTables {
		if len(pts) == 0 {
			continue
		}
		if err := fancurve.ValidateCurve(pts); err != nil {
			return ucerr.New(ucerr.InvalidArgument, "fanProfile.Validate", fmt.Errorf("table %s: %w", name, err))
		}
	}
	if len(f.TablePump) > 0 {
		if err := fancurve.ValidatePumpCurve(f.TablePump); err != nil {
			return ucerr.New(ucerr.InvalidArgument, "fanProfile.Validate", fmt.Errorf("table pump: %w", err))
		}
	}
	return nil
}

// KeyboardProfile is a named keyboard-backlight configuration, per §3.
type KeyboardProfile struct {
	ID         string
	Name       string
	Builtin    bool
	Brightness int
	States     []keyboard.ZoneState
}

func (k *KeyboardProfile) GetID() string    { return k.ID }
func (k *KeyboardProfile) SetID(id string)  { k.ID = id }
func (k *KeyboardProfile) GetBuiltin() bool { return k.Builtin }

func (k *KeyboardProfile) Validate() error {
	if k.Name == "" {
		return ucerr.New(ucerr.InvalidArgument, "keyboardProfile.Validate", fmt.Errorf("name must not be empty"))
	}
	if k.Brightness < 0 {
		return ucerr.New(ucerr.InvalidArgument, "keyboardProfile.Validate", fmt.Errorf("brightness must be >= 0"))
	}
	return nil
}

// StateMap maps a power-source state to the profile id that should be
// active while it holds. Engine implements worker/powerstate.Resolver
// directly against powerstate.State so the power-state worker can call
// it without this package re-declaring that enum.
type StateMap map[powerstate.State]string
