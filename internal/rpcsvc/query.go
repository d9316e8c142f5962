package rpcsvc

import (
	"encoding/json"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/uccd-project/uccd/internal/buildinfo"
	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/metrics"
	"github.com/uccd-project/uccd/internal/profile"
)

// GetVersion reports the daemon's build version.
func (s *Service) GetVersion() (string, *dbus.Error) {
	return buildinfo.Version, nil
}

// Query-group methods (§4.10). All are tagged authz.Read, which the
// gate bypasses entirely, so none of these touch s.authorize or take
// a dbus.Sender: per §9, read access is unconditional for local
// callers. Missing hardware returns a zero/empty sentinel, never an
// error (§7's "read queries ... return absent").

// IsDeviceSupported reports whether the resolved device identity
// matched a known capability record.
func (s *Service) IsDeviceSupported() (bool, *dbus.Error) {
	return s.identity.Supported, nil
}

// GetSystemInfoJSON reports DMI identity and the resolved capability
// summary.
func (s *Service) GetSystemInfoJSON() (string, *dbus.Error) {
	body, err := json.Marshal(s.systemInfoPayload())
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// GetDefaultProfilesJSON returns the built-in profile catalog.
func (s *Service) GetDefaultProfilesJSON() (string, *dbus.Error) {
	all := s.engine.ListProfiles()
	var out []profile.Profile
	for _, p := range all {
		if p.Builtin {
			out = append(out, p)
		}
	}
	body, err := marshalProfiles(out)
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// GetActiveProfileJSON returns the currently active profile.
func (s *Service) GetActiveProfileJSON() (string, *dbus.Error) {
	p, err := s.engine.GetActiveProfile()
	if err != nil {
		return "", errToDBus(err)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// GetPowerState reports the last debounced power-source state, or ""
// before the power-state worker has established one.
func (s *Service) GetPowerState() (string, *dbus.Error) {
	if s.powerWorker == nil {
		return "", nil
	}
	state, ok := s.powerWorker.Current()
	if !ok {
		return "", nil
	}
	return string(state), nil
}

// GetFanProfileNames lists every fan profile's display name.
func (s *Service) GetFanProfileNames() ([]string, *dbus.Error) {
	fps := s.engine.ListFanProfiles()
	names := make([]string, len(fps))
	for i, fp := range fps {
		names[i] = fp.Name
	}
	return names, nil
}

// GetFanProfile returns one fan profile by id as JSON.
func (s *Service) GetFanProfile(id string) (string, *dbus.Error) {
	fp, err := s.engine.GetFanProfile(id)
	if err != nil {
		return "", errToDBus(err)
	}
	body, err := json.Marshal(fp)
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// GetFanProfilesJSON returns the full fan-profile catalog.
func (s *Service) GetFanProfilesJSON() (string, *dbus.Error) {
	body, err := marshalFanProfiles(s.engine.ListFanProfiles())
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// GetWaterCoolerSupported reports the static capability record, not a
// live EC probe (§3: water-cooler presence is a capability-table fact,
// the EC exposes the fields unconditionally).
func (s *Service) GetWaterCoolerSupported() (bool, *dbus.Error) {
	return s.hal.WaterCooler != nil, nil
}

// GetWaterCoolerConnected reports live accessory connection state.
func (s *Service) GetWaterCoolerConnected() (bool, *dbus.Error) {
	if s.hal.WaterCooler == nil {
		return false, nil
	}
	connected, _ := s.hal.WaterCooler.GetConnected()
	return connected, nil
}

// IsWaterCoolerEnabled reports whether the accessory is toggled on.
func (s *Service) IsWaterCoolerEnabled() (bool, *dbus.Error) {
	if s.hal.WaterCooler == nil {
		return false, nil
	}
	on, _ := s.hal.WaterCooler.IsEnabled()
	return on, nil
}

// GetFanDataCPU returns the CPU fan channel's speed/temp pair.
func (s *Service) GetFanDataCPU() (map[string]map[string]dbus.Variant, *dbus.Error) {
	return s.fanData(ectransport.ChannelCPU, metrics.CPUTemp), nil
}

// GetFanDataGPU1 returns the first GPU fan channel's speed/temp pair.
func (s *Service) GetFanDataGPU1() (map[string]map[string]dbus.Variant, *dbus.Error) {
	return s.fanData(ectransport.ChannelGPU1, metrics.DGPUTemp), nil
}

// GetFanDataGPU2 returns the second GPU fan channel's speed/temp pair.
func (s *Service) GetFanDataGPU2() (map[string]map[string]dbus.Variant, *dbus.Error) {
	return s.fanData(ectransport.ChannelGPU2, metrics.IGPUTemp), nil
}

func (s *Service) fanData(ch ectransport.Channel, tempMetric metrics.MetricID) map[string]map[string]dbus.Variant {
	var speedSample metrics.Sample
	haveSpeed := false
	if s.hal.Fan != nil {
		if rpm, ok := s.hal.Fan.GetRPM(ch); ok {
			speedSample = metrics.Sample{TimestampMs: time.Now().UnixMilli(), Value: float64(rpm)}
			haveSpeed = true
		}
	}
	tempSample, haveTemp := s.store.Latest(tempMetric)
	return fanDataVariant(speedSample, haveSpeed, tempSample, haveTemp)
}

// GetCpuFrequencyMHz returns the last sampled average CPU frequency.
func (s *Service) GetCpuFrequencyMHz() (int32, *dbus.Error) {
	sample, ok := s.store.Latest(metrics.CPUFreq)
	if !ok {
		return 0, nil
	}
	return int32(sample.Value), nil
}

// GetCpuPowerValuesJSON returns the last sampled CPU power/frequency
// point pair.
func (s *Service) GetCpuPowerValuesJSON() (string, *dbus.Error) {
	out := map[string]metricPoint{
		"power":   s.point(metrics.CPUPower),
		"freqMHz": s.point(metrics.CPUFreq),
	}
	body, err := json.Marshal(out)
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// GetDGpuInfoValuesJSON returns the discrete GPU's last sampled
// telemetry point set.
func (s *Service) GetDGpuInfoValuesJSON() (string, *dbus.Error) {
	out := map[string]metricPoint{
		"temp":    s.point(metrics.DGPUTemp),
		"duty":    s.point(metrics.DGPUDuty),
		"power":   s.point(metrics.DGPUPower),
		"freqMHz": s.point(metrics.DGPUFreq),
	}
	body, err := json.Marshal(out)
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// GetIGpuInfoValuesJSON returns the integrated GPU's last sampled
// telemetry point set.
func (s *Service) GetIGpuInfoValuesJSON() (string, *dbus.Error) {
	out := map[string]metricPoint{
		"temp":    s.point(metrics.IGPUTemp),
		"power":   s.point(metrics.IGPUPower),
		"freqMHz": s.point(metrics.IGPUFreq),
	}
	body, err := json.Marshal(out)
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// metricPoint is a single timestamped reading for the *ValuesJSON
// snapshot methods (as distinct from GetMonitorDataSince's full
// history).
type metricPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

func (s *Service) point(id metrics.MetricID) metricPoint {
	sample, ok := s.store.Latest(id)
	if !ok {
		return metricPoint{}
	}
	return metricPoint{Timestamp: sample.TimestampMs, Value: sample.Value}
}

// GetMonitorDataSince returns every metric sample with ts >= sinceMs,
// in the compact binary wire format (§4.5/§4.10).
func (s *Service) GetMonitorDataSince(sinceMs int64) ([]byte, *dbus.Error) {
	body, err := s.store.QueryBinary(sinceMs)
	if err != nil {
		return nil, errToDBus(err)
	}
	return body, nil
}

// ODMProfilesAvailable lists the device's fixed ODM mode names.
func (s *Service) ODMProfilesAvailable() ([]string, *dbus.Error) {
	if s.hal.ODM == nil {
		return nil, nil
	}
	return s.hal.ODM.Available(), nil
}

// GetODMPerformanceProfile returns the currently active ODM mode name.
func (s *Service) GetODMPerformanceProfile() (string, *dbus.Error) {
	if s.hal.ODM == nil {
		return "", nil
	}
	mode, _ := s.hal.ODM.GetMode()
	return mode, nil
}

// GetODMPowerLimits returns the device's power-limit slots as JSON.
func (s *Service) GetODMPowerLimits() (string, *dbus.Error) {
	body, err := json.Marshal(s.identity.Capability.PowerLimitSlots)
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// GetNVIDIAPowerCTRLMaxPowerLimit returns the max watts of the
// configurable-total-graphics-power slot ("ctgp"), 0 if the device has
// none.
func (s *Service) GetNVIDIAPowerCTRLMaxPowerLimit() (int32, *dbus.Error) {
	for _, slot := range s.identity.Capability.PowerLimitSlots {
		if slot.Label == "ctgp" {
			return int32(slot.MaxW), nil
		}
	}
	return 0, nil
}

// GetWebcamSWStatus reports the webcam kill-switch state.
func (s *Service) GetWebcamSWStatus() (bool, *dbus.Error) {
	if s.hal.Webcam == nil {
		return false, nil
	}
	on, _ := s.hal.Webcam.Get()
	return on, nil
}

// GetFnLockStatus reports the Fn-lock toggle state.
func (s *Service) GetFnLockStatus() (bool, *dbus.Error) {
	if s.hal.FnLock == nil {
		return false, nil
	}
	on, _ := s.hal.FnLock.Get()
	return on, nil
}

// GetDisplayBrightness reports the panel backlight percentage.
func (s *Service) GetDisplayBrightness() (int32, *dbus.Error) {
	if s.hal.Display == nil {
		return 0, nil
	}
	pct, ok := s.hal.Display.GetPercent()
	if !ok {
		return 0, nil
	}
	return int32(pct), nil
}

// GetKeyboardBacklightInfo reports zone/brightness/color capability.
func (s *Service) GetKeyboardBacklightInfo() (string, *dbus.Error) {
	if s.hal.Keyboard == nil {
		return "", nil
	}
	info, ok := s.hal.Keyboard.GetInfo()
	if !ok {
		return "", nil
	}
	body, err := json.Marshal(keyboardInfoPayload(info))
	if err != nil {
		return "", errToDBus(err)
	}
	return string(body), nil
}

// GetKeyboardBacklightStates reports the active profile's per-zone
// backlight state.
func (s *Service) GetKeyboardBacklightStates() (string, *dbus.Error) {
	p, err := s.engine.GetActiveProfile()
	if err != nil || p.Keyboard.Empty() {
		return "[]", nil
	}
	kp, kerr := s.engine.GetKeyboardProfile(string(p.Keyboard))
	if kerr != nil {
		return "[]", nil
	}
	body, merr := json.Marshal(keyboardStatesPayload(kp.States))
	if merr != nil {
		return "", errToDBus(merr)
	}
	return string(body), nil
}

// GetWaterCoolerFanSpeed returns the water-cooler fan's duty
// percentage.
func (s *Service) GetWaterCoolerFanSpeed() (int32, *dbus.Error) {
	if s.hal.WaterCooler == nil {
		return 0, nil
	}
	duty, ok := s.hal.WaterCooler.GetFanDuty()
	if !ok {
		return 0, nil
	}
	return int32(duty), nil
}

// GetWaterCoolerPumpLevel returns the water-cooler pump's quantized
// level.
func (s *Service) GetWaterCoolerPumpLevel() (int32, *dbus.Error) {
	if s.hal.WaterCooler == nil {
		return 0, nil
	}
	level, ok := s.hal.WaterCooler.GetPumpLevel()
	if !ok {
		return 0, nil
	}
	return int32(level), nil
}
