package daemon

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// discoverBacklightPath returns the first entry under
// /sys/class/backlight, the precondition hal/display.New needs — the
// device capability record has no opinion on which backlight device
// exists, only whether the model has a panel at all.
func discoverBacklightPath(fs afero.Fs) (string, bool) {
	const root = "/sys/class/backlight"
	entries, err := afero.ReadDir(fs, root)
	if err != nil || len(entries) == 0 {
		return "", false
	}
	return filepath.Join(root, entries[0].Name()), true
}

// discoverHwmonPath scans /sys/class/hwmon/hwmon*/name for a driver
// name containing any of candidates, returning that hwmon directory.
// Used to resolve the dGPU/iGPU telemetry roots hal/gpu.New expects.
func discoverHwmonPath(fs afero.Fs, candidates ...string) (string, bool) {
	const root = "/sys/class/hwmon"
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		name, err := afero.ReadFile(fs, filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		n := strings.TrimSpace(string(name))
		for _, c := range candidates {
			if strings.Contains(n, c) {
				return dir, true
			}
		}
	}
	return "", false
}

// discoverACOnlinePath scans /sys/class/power_supply/*/type for the
// "Mains" entry and returns its sibling "online" attribute path, the
// precondition the AC-presence adapter needs.
func discoverACOnlinePath(fs afero.Fs) (string, bool) {
	const root = "/sys/class/power_supply"
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		typ, err := afero.ReadFile(fs, filepath.Join(dir, "type"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(typ)) == "Mains" {
			return filepath.Join(dir, "online"), true
		}
	}
	return "", false
}
