package daemon

import (
	"github.com/uccd-project/uccd/internal/fancurve"
	"github.com/uccd-project/uccd/internal/hal/charging"
	"github.com/uccd-project/uccd/internal/hal/keyboard"
	"github.com/uccd-project/uccd/internal/profile"
)

// builtinFanProfiles are the three curve sets offered out of the box;
// devices without a water cooler simply never read the WaterCoolerFan
// table (profile.FanProfile.Validate tolerates empty tables).
func builtinFanProfiles() []*profile.FanProfile {
	return []*profile.FanProfile{
		{
			ID: "quiet-fan", Name: "Quiet", Builtin: true,
			TableCPU: []fancurve.Point{
				{TempC: 40, DutyPct: 0}, {TempC: 55, DutyPct: 20}, {TempC: 70, DutyPct: 40}, {TempC: 85, DutyPct: 70},
			},
			TableGPU: []fancurve.Point{
				{TempC: 45, DutyPct: 0}, {TempC: 60, DutyPct: 25}, {TempC: 75, DutyPct: 50}, {TempC: 88, DutyPct: 80},
			},
			TablePump: []fancurve.Point{
				{TempC: 35, DutyPct: 0}, {TempC: 50, DutyPct: 1}, {TempC: 65, DutyPct: 2},
			},
			TableWaterCoolerFan: []fancurve.Point{
				{TempC: 35, DutyPct: 0}, {TempC: 50, DutyPct: 20}, {TempC: 65, DutyPct: 45},
			},
		},
		{
			ID: "balanced-fan", Name: "Balanced", Builtin: true,
			TableCPU: []fancurve.Point{
				{TempC: 35, DutyPct: 10}, {TempC: 55, DutyPct: 35}, {TempC: 70, DutyPct: 60}, {TempC: 85, DutyPct: 100},
			},
			TableGPU: []fancurve.Point{
				{TempC: 40, DutyPct: 15}, {TempC: 60, DutyPct: 45}, {TempC: 75, DutyPct: 75}, {TempC: 88, DutyPct: 100},
			},
			TablePump: []fancurve.Point{
				{TempC: 30, DutyPct: 1}, {TempC: 50, DutyPct: 2}, {TempC: 65, DutyPct: 3},
			},
			TableWaterCoolerFan: []fancurve.Point{
				{TempC: 30, DutyPct: 20}, {TempC: 50, DutyPct: 50}, {TempC: 65, DutyPct: 80},
			},
		},
		{
			ID: "performance-fan", Name: "Performance", Builtin: true,
			TableCPU: []fancurve.Point{
				{TempC: 30, DutyPct: 30}, {TempC: 50, DutyPct: 60}, {TempC: 65, DutyPct: 85}, {TempC: 80, DutyPct: 100},
			},
			TableGPU: []fancurve.Point{
				{TempC: 35, DutyPct: 35}, {TempC: 55, DutyPct: 70}, {TempC: 70, DutyPct: 90}, {TempC: 82, DutyPct: 100},
			},
			TablePump: []fancurve.Point{
				{TempC: 25, DutyPct: 2}, {TempC: 45, DutyPct: 3},
			},
			TableWaterCoolerFan: []fancurve.Point{
				{TempC: 25, DutyPct: 50}, {TempC: 45, DutyPct: 80}, {TempC: 60, DutyPct: 100},
			},
		},
	}
}

// builtinKeyboardProfiles covers the single-zone case, the common
// floor; multi-zone devices get the same default color applied to
// however many zones GetInfo reports (apply() writes whatever States
// slice this profile carries, one entry per zone present).
func builtinKeyboardProfiles() []*profile.KeyboardProfile {
	return []*profile.KeyboardProfile{
		{
			ID: "default-keyboard", Name: "White", Builtin: true,
			Brightness: 128,
			States: []keyboard.ZoneState{
				{Mode: 0, Brightness: 128, R: 255, G: 255, B: 255},
			},
		},
	}
}

// allCores is passed to CPUSettings.OnlineCoreCount by every built-in
// profile: cpufreq.UseCores brings cores [0, n) online, so any value
// at or above the highest core count on a real laptop leaves every
// core online.
const allCores = 256

// builtinProfiles is the daemon's default profile table, per §3/§4.7.
// The first entry is also the state map's fallback target when a
// mapped id is missing (profile.Engine.ResolvePowerState).
func builtinProfiles() []*profile.Profile {
	return []*profile.Profile{
		{
			ID: "balanced", Name: "Balanced", Builtin: true,
			CPU: profile.CPUSettings{
				Governor: "powersave", EnergyPerformancePreference: "balance_performance",
				OnlineCoreCount: allCores, BoostEnabled: true,
			},
			Charging: profile.ChargingSettings{Profile: charging.ProfileBalanced, Priority: 0},
			ODMMode:  "power_saving",
			Fan:      profile.FanBinding{FanProfileID: "balanced-fan", AutoControlWC: true},
			Keyboard: profile.KeyboardProfileRef("default-keyboard"),
		},
		{
			ID: "performance", Name: "Performance", Builtin: true,
			CPU: profile.CPUSettings{
				Governor: "performance", EnergyPerformancePreference: "performance",
				OnlineCoreCount: allCores, BoostEnabled: true,
			},
			Charging: profile.ChargingSettings{Profile: charging.ProfileHighCapacity, Priority: 1},
			ODMMode:  "enthusiast",
			Fan:      profile.FanBinding{FanProfileID: "performance-fan", AutoControlWC: true},
			Keyboard: profile.KeyboardProfileRef("default-keyboard"),
		},
		{
			ID: "quiet", Name: "Quiet", Builtin: true,
			CPU: profile.CPUSettings{
				Governor: "powersave", EnergyPerformancePreference: "power",
				OnlineCoreCount: allCores, BoostEnabled: false,
			},
			Charging: profile.ChargingSettings{Profile: charging.ProfileStationary, Priority: 0},
			ODMMode:  "quiet",
			Fan:      profile.FanBinding{FanProfileID: "quiet-fan", AutoControlWC: false},
			Keyboard: profile.KeyboardProfileRef("default-keyboard"),
		},
	}
}
