// Package cpufreq wraps the Linux cpufreq sysfs tree: per-core online
// state, scaling frequency bounds, governor, energy-performance
// preference, and boost control.
package cpufreq

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/uccd-project/uccd/internal/sysfsattr"
	"github.com/uccd-project/uccd/internal/ucerr"
)

// Sentinel targets for SetMaxFreq/SetMinFreq.
const (
	TargetReduced = -1 // SetMaxFreq: drop to a reduced, driver-appropriate ceiling
	TargetToMax   = -2 // SetMinFreq: raise the floor to scaling_max
)

const driverACPICpufreq = "acpi-cpufreq"
const driverIntelPstate = "intel_pstate"

// core holds the sysfs attribute handles for one logical CPU.
type core struct {
	id int

	online     *sysfsattr.Attr // absent for core 0, which is never offline
	curFreq    *sysfsattr.Attr
	minFreq    *sysfsattr.Attr // scaling_min_freq
	maxFreq    *sysfsattr.Attr // scaling_max_freq
	cpuinfoMin *sysfsattr.Attr
	cpuinfoMax *sysfsattr.Attr
	driver     *sysfsattr.Attr
	available  *sysfsattr.Attr // scaling_available_frequencies
	governor   *sysfsattr.Attr
	govList    *sysfsattr.Attr // scaling_available_governors
	epp        *sysfsattr.Attr // energy_performance_preference
	eppList    *sysfsattr.Attr // energy_performance_available_preferences
}

// Controller is the CpuController capability. Only constructed when
// at least one core's cpufreq tree is present.
type Controller struct {
	fs    afero.Fs
	cores []core

	boostAttr   *sysfsattr.Attr // /sys/devices/system/cpu/cpufreq/boost
	noTurboAttr *sysfsattr.Attr // intel_pstate/no_turbo

	log *logrus.Entry
}

// New enumerates logical cores from the possible list only (present
// and online are not read here) and builds per-core attribute handles
// for every listed core that has a cpufreq/scaling_cur_freq file.
// Returns (nil, false) if the possible list cannot be read or no core
// has that file.
func New(fs afero.Fs, log *logrus.Entry) (*Controller, bool) {
	possible := sysfsattr.New(fs, "/sys/devices/system/cpu/possible", sysfsattr.KindIntList)
	ids, ok := possible.ReadIntList()
	if !ok {
		return nil, false
	}

	c := &Controller{
		fs:          fs,
		boostAttr:   sysfsattr.New(fs, "/sys/devices/system/cpu/cpufreq/boost", sysfsattr.KindBool),
		noTurboAttr: sysfsattr.New(fs, "/sys/devices/system/cpu/intel_pstate/no_turbo", sysfsattr.KindBool),
		log:         log.WithField("component", "hal.cpufreq"),
	}

	found := false
	for _, id := range ids {
		base := fmt.Sprintf("/sys/devices/system/cpu/cpu%d/cpufreq", id)
		cur := sysfsattr.New(fs, base+"/scaling_cur_freq", sysfsattr.KindInt)
		if !cur.IsAvailable() {
			continue
		}
		found = true
		c.cores = append(c.cores, core{
			id:         id,
			online:     sysfsattr.New(fs, fmt.Sprintf("/sys/devices/system/cpu/cpu%d/online", id), sysfsattr.KindBool),
			curFreq:    cur,
			minFreq:    sysfsattr.New(fs, base+"/scaling_min_freq", sysfsattr.KindInt),
			maxFreq:    sysfsattr.New(fs, base+"/scaling_max_freq", sysfsattr.KindInt),
			cpuinfoMin: sysfsattr.New(fs, base+"/cpuinfo_min_freq", sysfsattr.KindInt),
			cpuinfoMax: sysfsattr.New(fs, base+"/cpuinfo_max_freq", sysfsattr.KindInt),
			driver:     sysfsattr.New(fs, base+"/scaling_driver", sysfsattr.KindString),
			available:  sysfsattr.New(fs, base+"/scaling_available_frequencies", sysfsattr.KindIntList),
			governor:   sysfsattr.New(fs, base+"/scaling_governor", sysfsattr.KindString),
			govList:    sysfsattr.New(fs, base+"/scaling_available_governors", sysfsattr.KindStringList),
			epp:        sysfsattr.New(fs, base+"/energy_performance_preference", sysfsattr.KindString),
			eppList:    sysfsattr.New(fs, base+"/energy_performance_available_preferences", sysfsattr.KindStringList),
		})
	}

	if !found {
		return nil, false
	}
	return c, true
}

// UseCores brings cores [0, min(n, count)) online and takes the rest
// offline. Core 0 is never taken offline; cores without an "online"
// node (core 0 on most systems) are skipped rather than failed.
func (c *Controller) UseCores(n int) error {
	if n < 1 {
		return ucerr.New(ucerr.InvalidArgument, "cpufreq.UseCores", fmt.Errorf("n must be >= 1, got %d", n))
	}

	var firstErr error
	for i, cpu := range c.cores {
		wantOnline := i < n || cpu.id == 0
		if cpu.online == nil || !cpu.online.IsAvailable() {
			continue
		}
		if err := cpu.online.WriteBool(wantOnline); err != nil {
			c.log.WithError(err).Warnf("failed to set online=%v for cpu%d", wantOnline, cpu.id)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return ucerr.New(ucerr.HwIO, "cpufreq.UseCores", firstErr)
	}
	return nil
}

// SetGovernor applies name to every online core whose
// scaling_available_governors lists it; cores that don't list it are
// silently skipped.
func (c *Controller) SetGovernor(name string) error {
	var firstErr error
	for _, cpu := range c.cores {
		if !c.isOnline(cpu) {
			continue
		}
		avail, ok := cpu.govList.ReadStringList()
		if !ok || !contains(avail, name) {
			continue
		}
		if err := cpu.governor.WriteString(name); err != nil {
			c.log.WithError(err).Warnf("failed to set governor on cpu%d", cpu.id)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return ucerr.New(ucerr.HwIO, "cpufreq.SetGovernor", firstErr)
	}
	return nil
}

// SetEnergyPerformancePreference applies name with the same
// listed-or-skip discipline as SetGovernor.
func (c *Controller) SetEnergyPerformancePreference(name string) error {
	var firstErr error
	for _, cpu := range c.cores {
		if !c.isOnline(cpu) || cpu.epp == nil || !cpu.epp.IsAvailable() {
			continue
		}
		avail, ok := cpu.eppList.ReadStringList()
		if !ok || !contains(avail, name) {
			continue
		}
		if err := cpu.epp.WriteString(name); err != nil {
			c.log.WithError(err).Warnf("failed to set EPP on cpu%d", cpu.id)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return ucerr.New(ucerr.HwIO, "cpufreq.SetEnergyPerformancePreference", firstErr)
	}
	return nil
}

// SetMaxFreq applies targetKHz (or TargetReduced) to every online
// core using EffectiveMaxFreq, then, for the reduced+acpi-cpufreq
// case, disables boost instead of touching scaling_max.
func (c *Controller) SetMaxFreq(targetKHz int) error {
	var firstErr error
	for _, cpu := range c.cores {
		if !c.isOnline(cpu) {
			continue
		}
		driver, _ := cpu.driver.ReadString()
		scalingMin, _ := cpu.minFreq.ReadInt()
		cpuinfoMax, _ := cpu.cpuinfoMax.ReadInt()
		available, _ := cpu.available.ReadIntList()

		if targetKHz == TargetReduced && driver == driverACPICpufreq {
			if err := cpu.maxFreq.WriteInt(cpuinfoMax); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if err := c.SetBoost(false); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}

		eff := EffectiveMaxFreq(targetKHz, scalingMin, cpuinfoMax, available, driver)
		if err := cpu.maxFreq.WriteInt(eff); err != nil {
			c.log.WithError(err).Warnf("failed to set scaling_max_freq on cpu%d", cpu.id)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return ucerr.New(ucerr.HwIO, "cpufreq.SetMaxFreq", firstErr)
	}
	return nil
}

// SetMinFreq applies targetKHz (or TargetToMax) to every online core
// using EffectiveMinFreq.
func (c *Controller) SetMinFreq(targetKHz int) error {
	var firstErr error
	for _, cpu := range c.cores {
		if !c.isOnline(cpu) {
			continue
		}
		cpuinfoMin, _ := cpu.cpuinfoMin.ReadInt()
		scalingMax, _ := cpu.maxFreq.ReadInt()
		available, _ := cpu.available.ReadIntList()

		eff := EffectiveMinFreq(targetKHz, cpuinfoMin, scalingMax, available)
		if err := cpu.minFreq.WriteInt(eff); err != nil {
			c.log.WithError(err).Warnf("failed to set scaling_min_freq on cpu%d", cpu.id)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return ucerr.New(ucerr.HwIO, "cpufreq.SetMinFreq", firstErr)
	}
	return nil
}

// SetBoost sets boost state. On acpi-cpufreq it writes the shared
// boost attribute directly; on intel_pstate it writes the inverse to
// no_turbo.
func (c *Controller) SetBoost(enabled bool) error {
	driver := c.primaryDriver()

	switch driver {
	case driverACPICpufreq:
		if c.boostAttr.IsAvailable() {
			if err := c.boostAttr.WriteBool(enabled); err != nil {
				return ucerr.New(ucerr.HwIO, "cpufreq.SetBoost", err)
			}
		}
	case driverIntelPstate:
		if c.noTurboAttr.IsAvailable() {
			if err := c.noTurboAttr.WriteBool(!enabled); err != nil {
				return ucerr.New(ucerr.HwIO, "cpufreq.SetBoost", err)
			}
		}
	default:
		c.log.Debugf("SetBoost: no known boost control for driver %q", driver)
	}
	return nil
}

// CurrentFreqMHz returns the average scaling_cur_freq across online
// cores, converted from the sysfs kHz unit to MHz. Implements
// worker/hwmon.CPUSampler's frequency half.
func (c *Controller) CurrentFreqMHz() (int, bool) {
	var sumKHz, n int
	for _, cpu := range c.cores {
		if !c.isOnline(cpu) {
			continue
		}
		v, ok := cpu.curFreq.ReadInt()
		if !ok {
			continue
		}
		sumKHz += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return (sumKHz / n) / 1000, true
}

func (c *Controller) primaryDriver() string {
	if len(c.cores) == 0 {
		return ""
	}
	d, _ := c.cores[0].driver.ReadString()
	return d
}

func (c *Controller) isOnline(cpu core) bool {
	if cpu.online == nil || !cpu.online.IsAvailable() {
		return true // core without an online node (core 0) is always online
	}
	v, ok := cpu.online.ReadBool()
	return ok && v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// EffectiveMaxFreq is the pure clamp/snap function behind SetMaxFreq,
// exposed so validation and the write path share identical semantics.
// It clamps to [scalingMin, cpuinfoMax] and, when available is
// non-empty, snaps to the nearest listed frequency >= scalingMin.
//
// TargetReduced on a non-acpi-cpufreq driver uses the median of the
// available frequencies at or above scalingMin (the acpi-cpufreq case
// is handled by the caller via the boost attribute instead, and never
// reaches this function with TargetReduced).
func EffectiveMaxFreq(targetKHz, scalingMin, cpuinfoMax int, available []int, driver string) int {
	target := targetKHz
	if targetKHz == TargetReduced {
		candidates := filterAtLeast(available, scalingMin)
		if len(candidates) > 0 {
			target = median(candidates)
		} else {
			target = cpuinfoMax
		}
	}

	if target < scalingMin {
		target = scalingMin
	}
	if target > cpuinfoMax {
		target = cpuinfoMax
	}

	if len(available) > 0 {
		target = nearestAtLeast(available, scalingMin, target)
	}

	return target
}

// EffectiveMinFreq is the pure clamp/snap function behind SetMinFreq.
// It clamps to [cpuinfoMin, scalingMax] and, when available is
// non-empty, snaps down to the nearest listed frequency <= scalingMax.
func EffectiveMinFreq(targetKHz, cpuinfoMin, scalingMax int, available []int) int {
	target := targetKHz
	if targetKHz == TargetToMax {
		target = scalingMax
	}

	if target < cpuinfoMin {
		target = cpuinfoMin
	}
	if target > scalingMax {
		target = scalingMax
	}

	if len(available) > 0 {
		target = nearestAtMost(available, cpuinfoMin, target)
	}

	return target
}

func filterAtLeast(freqs []int, min int) []int {
	out := make([]int, 0, len(freqs))
	for _, f := range freqs {
		if f >= min {
			out = append(out, f)
		}
	}
	sort.Ints(out)
	return out
}

func median(sorted []int) int {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[len(sorted)/2]
}

// nearestAtLeast picks the value in freqs closest to target, breaking
// ties toward the higher frequency, preferring candidates >= floor
// when any exist.
func nearestAtLeast(freqs []int, floor, target int) int {
	best := freqs[0]
	bestDelta := -1
	for _, f := range freqs {
		if f < floor {
			continue
		}
		delta := abs(f - target)
		if bestDelta == -1 || delta < bestDelta || (delta == bestDelta && f > best) {
			best = f
			bestDelta = delta
		}
	}
	if bestDelta == -1 {
		// nothing at/above floor; fall back to the closest overall.
		return nearestAny(freqs, target)
	}
	return best
}

func nearestAtMost(freqs []int, floor, target int) int {
	best := freqs[0]
	bestDelta := -1
	for _, f := range freqs {
		if f > target {
			continue
		}
		if f < floor {
			continue
		}
		delta := abs(f - target)
		if bestDelta == -1 || delta < bestDelta {
			best = f
			bestDelta = delta
		}
	}
	if bestDelta == -1 {
		return nearestAny(freqs, target)
	}
	return best
}

func nearestAny(freqs []int, target int) int {
	best := freqs[0]
	bestDelta := abs(best - target)
	for _, f := range freqs[1:] {
		if d := abs(f - target); d < bestDelta {
			best, bestDelta = f, d
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
