package rpcsvc

import (
	"encoding/json"

	"github.com/godbus/dbus/v5"

	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/fancurve"
	"github.com/uccd-project/uccd/internal/hal/charging"
	"github.com/uccd-project/uccd/internal/hal/keyboard"
	"github.com/uccd-project/uccd/internal/metrics"
	"github.com/uccd-project/uccd/internal/profile"
	"github.com/uccd-project/uccd/internal/worker/fanctl"
)

// systemInfoWire is the payload for GetSystemInfoJSON: DMI identity
// plus the resolved device/capability classification.
type systemInfoWire struct {
	SysVendor    string `json:"sysVendor"`
	BoardVendor  string `json:"boardVendor"`
	ProductName  string `json:"productName"`
	ProductSKU   string `json:"productSku"`
	BoardName    string `json:"boardName"`
	CPUModel     string `json:"cpuModel"`
	Manufacturer string `json:"manufacturer"`
	DeviceID     string `json:"deviceId"`
	Supported    bool   `json:"supported"`
	GPUFans      int    `json:"gpuFans"`
	WaterCooler  bool   `json:"waterCoolerSupported"`
	KeyboardZones int   `json:"keyboardZones"`
}

func (s *Service) systemInfoPayload() systemInfoWire {
	id := s.identity
	return systemInfoWire{
		SysVendor:     id.DMI.SysVendor,
		BoardVendor:   id.DMI.BoardVendor,
		ProductName:   id.DMI.ProductName,
		ProductSKU:    id.DMI.ProductSKU,
		BoardName:     id.DMI.BoardName,
		CPUModel:      id.DMI.CPUModel,
		Manufacturer:  string(id.Manufacturer),
		DeviceID:      string(id.ID),
		Supported:     id.Supported,
		GPUFans:       id.Capability.GPUFans,
		WaterCooler:   id.Capability.WaterCoolerSupported,
		KeyboardZones: id.Capability.KeyboardZones,
	}
}

// marshalProfiles/marshalFanProfiles round-trip internal/profile's
// structs directly through encoding/json — no bespoke wire shape is
// needed since every field there is already JSON-friendly.
func marshalProfiles(profiles []profile.Profile) ([]byte, error) {
	return json.Marshal(profiles)
}

func marshalFanProfiles(profiles []profile.FanProfile) ([]byte, error) {
	return json.Marshal(profiles)
}

// chargingProfileName renders a charging.Profile for JSON payloads
// that should be human-legible rather than the bare int enum.
func chargingProfileName(p charging.Profile) string {
	switch p {
	case charging.ProfileHighCapacity:
		return "high_capacity"
	case charging.ProfileBalanced:
		return "balanced"
	case charging.ProfileStationary:
		return "stationary"
	default:
		return "unknown"
	}
}

// keyboardInfoWire is the payload for GetKeyboardBacklightInfo.
type keyboardInfoWire struct {
	Zones         int  `json:"zones"`
	MaxBrightness int  `json:"maxBrightness"`
	MaxR          int  `json:"maxR"`
	MaxG          int  `json:"maxG"`
	MaxB          int  `json:"maxB"`
}

func keyboardInfoPayload(info keyboard.Info) keyboardInfoWire {
	return keyboardInfoWire{
		Zones:         info.Zones,
		MaxBrightness: int(info.MaxBrightness),
		MaxR:          int(info.MaxR),
		MaxG:          int(info.MaxG),
		MaxB:          int(info.MaxB),
	}
}

// keyboardZoneStateWire is one zone's wire-visible state.
type keyboardZoneStateWire struct {
	Mode       int  `json:"mode"`
	Brightness int  `json:"brightness"`
	R          int  `json:"r"`
	G          int  `json:"g"`
	B          int  `json:"b"`
}

func keyboardStatesPayload(states []keyboard.ZoneState) []keyboardZoneStateWire {
	out := make([]keyboardZoneStateWire, len(states))
	for i, st := range states {
		out[i] = keyboardZoneStateWire{
			Mode:       int(st.Mode),
			Brightness: int(st.Brightness),
			R:          int(st.R),
			G:          int(st.G),
			B:          int(st.B),
		}
	}
	return out
}

// keyboardZoneStatesFromWire is the inverse of keyboardStatesPayload,
// used by SetKeyboardBacklightStatesJSON's live-preview path.
func keyboardZoneStatesFromWire(wire []keyboardZoneStateWire) []keyboard.ZoneState {
	out := make([]keyboard.ZoneState, len(wire))
	for i, st := range wire {
		out[i] = keyboard.ZoneState{
			Mode:       keyboard.Mode(st.Mode),
			Brightness: uint8(st.Brightness),
			R:          uint8(st.R),
			G:          uint8(st.G),
			B:          uint8(st.B),
		}
	}
	return out
}

// fanCurveWire is one knot of a wire-transmitted fan curve.
type fanCurveWire struct {
	TempC   float64 `json:"tempC"`
	DutyPct float64 `json:"dutyPct"`
}

// fanCurvesWire is ApplyFanProfiles' JSON argument shape: the four
// curve tables fanctl.Worker understands, keyed the same way as
// profile.FanProfile's JSON (§3/§4.10).
type fanCurvesWire struct {
	CPU            []fanCurveWire `json:"cpu"`
	GPU            []fanCurveWire `json:"gpu"`
	Pump           []fanCurveWire `json:"pump"`
	WaterCoolerFan []fanCurveWire `json:"waterCoolerFan"`
	AutoControlWC  bool           `json:"autoControlWc"`
}

func fanCurvePoints(wire []fanCurveWire) []fancurve.Point {
	out := make([]fancurve.Point, len(wire))
	for i, pt := range wire {
		out[i] = fancurve.Point{TempC: pt.TempC, DutyPct: pt.DutyPct}
	}
	return out
}

// fanChannelFromInt maps the wire's plain channel index (0=CPU,
// 1=GPU1, 2=GPU2, 3=pump, 4=water-cooler fan) to ectransport.Channel.
func fanChannelFromInt(channel int32) ectransport.Channel {
	switch channel {
	case 1:
		return ectransport.ChannelGPU1
	case 2:
		return ectransport.ChannelGPU2
	case 3:
		return ectransport.ChannelPump
	case 4:
		return ectransport.ChannelWaterCoolerFan
	default:
		return ectransport.ChannelCPU
	}
}

func (w fanCurvesWire) toCurves() fanctl.Curves {
	return fanctl.Curves{
		CPU:            fanCurvePoints(w.CPU),
		GPU:            fanCurvePoints(w.GPU),
		Pump:           fanCurvePoints(w.Pump),
		WaterCoolerFan: fanCurvePoints(w.WaterCoolerFan),
		AutoControlWC:  w.AutoControlWC,
	}
}

// fanDataVariant builds the "variant-of-variant" map from §4.10:
// {"speed": {"timestamp": ..., "data": ...}, "temp": {...}}, with
// timestamp == 0 meaning "not yet populated".
func fanDataVariant(speed metrics.Sample, haveSpeed bool, temp metrics.Sample, haveTemp bool) map[string]map[string]dbus.Variant {
	speedTS, tempTS := int64(0), int64(0)
	speedVal, tempVal := float64(0), float64(0)
	if haveSpeed {
		speedTS, speedVal = speed.TimestampMs, speed.Value
	}
	if haveTemp {
		tempTS, tempVal = temp.TimestampMs, temp.Value
	}
	return map[string]map[string]dbus.Variant{
		"speed": {
			"timestamp": dbus.MakeVariant(speedTS),
			"data":      dbus.MakeVariant(speedVal),
		},
		"temp": {
			"timestamp": dbus.MakeVariant(tempTS),
			"data":      dbus.MakeVariant(tempVal),
		},
	}
}
