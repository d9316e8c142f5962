package deviceid

import (
	"testing"

	"github.com/spf13/afero"
)

func writeDMI(t *testing.T, fs afero.Fs, field, value string) {
	t.Helper()
	if err := afero.WriteFile(fs, "/sys/class/dmi/id/"+field, []byte(value+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestProbeUnknownDevice(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDMI(t, fs, "sys_vendor", "Acme Corp")
	writeDMI(t, fs, "board_name", "NOPE")
	writeDMI(t, fs, "product_sku", "NOPE")

	ident := Probe(fs)
	if ident.Supported {
		t.Fatal("expected unsupported device")
	}
	if ident.ID != Unknown {
		t.Fatalf("expected Unknown device id, got %q", ident.ID)
	}
}

func TestProbeKnownDevice(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDMI(t, fs, "sys_vendor", "TUXEDO Computers")
	writeDMI(t, fs, "board_name", "PULSE1502")
	writeDMI(t, fs, "product_sku", "0000000000000")

	ident := Probe(fs)
	if !ident.Supported {
		t.Fatal("expected supported device")
	}
	if ident.Manufacturer != "tuxedo" {
		t.Fatalf("Manufacturer = %q, want tuxedo", ident.Manufacturer)
	}
	if ident.Capability.GPUFans != 1 {
		t.Fatalf("GPUFans = %d, want 1", ident.Capability.GPUFans)
	}
}

func TestClassifyManufacturerCaseInsensitive(t *testing.T) {
	got := classifyManufacturer(DMI{SysVendor: "UNIWILL Computer Corp"})
	if got != "uniwill" {
		t.Fatalf("classifyManufacturer() = %q, want uniwill", got)
	}
}

func TestFeatureSet(t *testing.T) {
	rec := CapabilityRecord{WaterCoolerSupported: true, GPUFans: 2}
	s := rec.FeatureSet()
	if !s.Contains("water_cooler") || !s.Contains("gpu_fans") {
		t.Fatalf("FeatureSet() = %v, missing expected members", s)
	}
	if s.Contains("charging_profiles") {
		t.Fatal("FeatureSet() should not contain charging_profiles when unsupported")
	}
}
