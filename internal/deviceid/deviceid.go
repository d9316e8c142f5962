// Package deviceid probes DMI/PCI/cpuinfo identity at startup and
// resolves it to a static device-ID-to-capability mapping. The
// daemon controller uses an unresolved identity to trigger the
// graceful "device not supported" exit path.
package deviceid

import (
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/spf13/afero"
	"github.com/uccd-project/uccd/internal/sysfsattr"
)

// DeviceID is a static enum of recognized laptop models.
type DeviceID string

const Unknown DeviceID = ""

// Manufacturer is classified by case-insensitive substring search over
// DMI vendor fields.
type Manufacturer string

const (
	ManufacturerUnknown Manufacturer = "unknown"
)

// knownBrandTokens maps a lower-cased substring found in sys_vendor or
// board_vendor to a canonical manufacturer name.
var knownBrandTokens = map[string]Manufacturer{
	"tuxedo":   "tuxedo",
	"uniwill":  "uniwill",
	"clevo":    "clevo",
	"schenker": "schenker",
	"mechrevo": "mechrevo",
}

// DMI is the raw identity information read at startup.
type DMI struct {
	SysVendor   string
	BoardVendor string
	ProductName string
	ProductSKU  string
	BoardName   string
	CPUModel    string
}

// deviceKey is the lookup key into the static device table.
type deviceKey struct {
	BoardName  string
	ProductSKU string
}

// modelTable maps {board_name, product_sku} to a DeviceID. Populated
// with representative entries; a real deployment ships one row per
// qualified model.
var modelTable = map[deviceKey]DeviceID{
	{BoardName: "PULSE1502", ProductSKU: "0000000000000"}: "tuxedo-pulse-15-gen2",
	{BoardName: "POLARIS1XA05", ProductSKU: "0000000000000"}: "tuxedo-polaris-15-gen5-amd",
	{BoardName: "STELLARIS1XI04", ProductSKU: "0000000000000"}: "tuxedo-stellaris-16-gen4-intel",
}

// PowerLimitSlot mirrors the capability record's power-limit-slots.
type PowerLimitSlot struct {
	Label    string
	MinW     int
	MaxW     int
}

// CapabilityRecord describes, once resolved, what the daemon may
// expose for this device. Immutable for process lifetime.
type CapabilityRecord struct {
	ID                         DeviceID
	GPUFans                    int
	WaterCoolerSupported       bool
	KeyboardZones              int
	ChargingProfilesSupported  bool
	ODMModes                   []string
	PowerLimitSlots            []PowerLimitSlot
}

// capabilityTable maps each known DeviceID to its capability record.
var capabilityTable = map[DeviceID]CapabilityRecord{
	"tuxedo-pulse-15-gen2": {
		GPUFans: 1, WaterCoolerSupported: false, KeyboardZones: 1,
		ChargingProfilesSupported: true,
		ODMModes:                 []string{"quiet", "power_saving", "enthusiast", "overboost"},
		PowerLimitSlots: []PowerLimitSlot{
			{Label: "pl1", MinW: 15, MaxW: 45},
			{Label: "pl2", MinW: 20, MaxW: 65},
		},
	},
	"tuxedo-polaris-15-gen5-amd": {
		GPUFans: 2, WaterCoolerSupported: true, KeyboardZones: 3,
		ChargingProfilesSupported: true,
		ODMModes:                 []string{"quiet", "power_saving", "enthusiast", "overboost"},
		PowerLimitSlots: []PowerLimitSlot{
			{Label: "pl1", MinW: 15, MaxW: 54},
			{Label: "pl2", MinW: 20, MaxW: 90},
			{Label: "ctgp", MinW: 35, MaxW: 140},
		},
	},
	"tuxedo-stellaris-16-gen4-intel": {
		GPUFans: 2, WaterCoolerSupported: true, KeyboardZones: 126,
		ChargingProfilesSupported: true,
		ODMModes:                 []string{"quiet", "power_saving", "enthusiast", "overboost"},
		PowerLimitSlots: []PowerLimitSlot{
			{Label: "pl1", MinW: 28, MaxW: 65},
			{Label: "pl2", MinW: 35, MaxW: 115},
			{Label: "pl4", MinW: 90, MaxW: 175},
			{Label: "ctgp", MinW: 60, MaxW: 175},
		},
	},
}

// Identity is the resolved outcome of Probe.
type Identity struct {
	DMI          DMI
	Manufacturer Manufacturer
	ID           DeviceID
	Capability   CapabilityRecord
	Supported    bool
}

// Probe reads DMI and cpuinfo, then resolves the result to a DeviceID
// and its capability record. It does not enumerate PCI devices.
func Probe(fs afero.Fs) Identity {
	dmi := readDMI(fs)

	id := Unknown
	if rec, ok := modelTable[deviceKey{BoardName: dmi.BoardName, ProductSKU: dmi.ProductSKU}]; ok {
		id = rec
	}

	ident := Identity{
		DMI:          dmi,
		Manufacturer: classifyManufacturer(dmi),
		ID:           id,
		Supported:    id != Unknown,
	}
	if cap, ok := capabilityTable[id]; ok {
		cap.ID = id
		ident.Capability = cap
	}
	return ident
}

func readDMI(fs afero.Fs) DMI {
	read := func(path string) string {
		a := sysfsattr.New(fs, path, sysfsattr.KindString)
		v, _ := a.ReadString()
		return v
	}
	return DMI{
		SysVendor:   read("/sys/class/dmi/id/sys_vendor"),
		BoardVendor: read("/sys/class/dmi/id/board_vendor"),
		ProductName: read("/sys/class/dmi/id/product_name"),
		ProductSKU:  read("/sys/class/dmi/id/product_sku"),
		BoardName:   read("/sys/class/dmi/id/board_name"),
		CPUModel:    readCPUModel(fs),
	}
}

func readCPUModel(fs afero.Fs) string {
	data, err := afero.ReadFile(fs, "/proc/cpuinfo")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "model name") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	return ""
}

// classifyManufacturer performs a case-insensitive substring search of
// known brand tokens against the DMI vendor fields.
func classifyManufacturer(dmi DMI) Manufacturer {
	haystack := strings.ToLower(dmi.SysVendor + " " + dmi.BoardVendor)
	for token, mfr := range knownBrandTokens {
		if strings.Contains(haystack, token) {
			return mfr
		}
	}
	return ManufacturerUnknown
}

// FeatureSet returns the capability record's boolean features as a
// distinct-token set, used by the RPC layer's ODMProfilesAvailable and
// similar "what can this device do" queries.
func (c CapabilityRecord) FeatureSet() mapset.Set {
	s := mapset.NewSet()
	if c.WaterCoolerSupported {
		s.Add("water_cooler")
	}
	if c.ChargingProfilesSupported {
		s.Add("charging_profiles")
	}
	if c.GPUFans > 0 {
		s.Add("gpu_fans")
	}
	if c.KeyboardZones > 1 {
		s.Add("keyboard_zones")
	}
	for _, mode := range c.ODMModes {
		s.Add("odm:" + mode)
	}
	return s
}
