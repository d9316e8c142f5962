package profile

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/uccd-project/uccd/internal/hal/cpufreq"
	"github.com/uccd-project/uccd/internal/persist"
	"github.com/uccd-project/uccd/internal/worker/powerstate"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type recordingNotifier struct {
	activeChanges []string
	catalogEvents int
}

func (n *recordingNotifier) ActiveProfileChanged(id string) { n.activeChanges = append(n.activeChanges, id) }
func (n *recordingNotifier) ProfileCatalogChanged()          { n.catalogEvents++ }

func newTestEngine(t *testing.T) (*Engine, *recordingNotifier) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := persist.New(fs, "/etc/uccd", testLogger())
	notifier := &recordingNotifier{}

	builtins := []*Profile{
		{ID: "quiet", Name: "Quiet", Builtin: true},
		{ID: "performance", Name: "Performance", Builtin: true},
	}
	e, err := New(HAL{}, store, notifier, builtins, nil, nil, testLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return e, notifier
}

func TestListProfilesBuiltinsFirst(t *testing.T) {
	e, _ := newTestEngine(t)
	list := e.ListProfiles()
	if len(list) != 2 || list[0].ID != "quiet" || list[1].ID != "performance" {
		t.Fatalf("ListProfiles() = %+v", list)
	}
}

func TestGetActiveProfileDefaultsToFirstBuiltin(t *testing.T) {
	e, _ := newTestEngine(t)
	active, err := e.GetActiveProfile()
	if err != nil {
		t.Fatalf("GetActiveProfile() error: %v", err)
	}
	if active.ID != "quiet" {
		t.Fatalf("active.ID = %q, want %q", active.ID, "quiet")
	}
}

func TestSetActiveProfileSucceedsWithNilHAL(t *testing.T) {
	e, notifier := newTestEngine(t)
	if err := e.SetActiveProfile("performance"); err != nil {
		t.Fatalf("SetActiveProfile() error: %v", err)
	}
	active, _ := e.GetActiveProfile()
	if active.ID != "performance" {
		t.Fatalf("active.ID = %q, want performance", active.ID)
	}
	if len(notifier.activeChanges) != 1 || notifier.activeChanges[0] != "performance" {
		t.Fatalf("notifier.activeChanges = %v", notifier.activeChanges)
	}
}

func TestSetActiveProfileRejectsUnknownID(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.SetActiveProfile("nonexistent"); err == nil {
		t.Fatal("expected error for unknown profile id")
	}
}

func TestCreateUpdateDeleteCustomProfile(t *testing.T) {
	e, notifier := newTestEngine(t)

	created, err := e.CreateCustomProfile(Profile{Name: "My Custom"})
	if err != nil {
		t.Fatalf("CreateCustomProfile() error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a generated id")
	}
	if notifier.catalogEvents != 1 {
		t.Fatalf("catalogEvents = %d, want 1", notifier.catalogEvents)
	}

	created.Name = "Renamed"
	if err := e.UpdateCustomProfile(created.ID, created); err != nil {
		t.Fatalf("UpdateCustomProfile() error: %v", err)
	}
	list := e.ListProfiles()
	found := false
	for _, p := range list {
		if p.ID == created.ID {
			found = true
			if p.Name != "Renamed" {
				t.Fatalf("profile name = %q, want Renamed", p.Name)
			}
		}
	}
	if !found {
		t.Fatal("updated profile missing from ListProfiles()")
	}

	if err := e.DeleteCustomProfile(created.ID); err != nil {
		t.Fatalf("DeleteCustomProfile() error: %v", err)
	}
	for _, p := range e.ListProfiles() {
		if p.ID == created.ID {
			t.Fatal("deleted profile still present")
		}
	}
}

func TestDeleteCustomProfileRefusedWhileActive(t *testing.T) {
	e, _ := newTestEngine(t)
	created, err := e.CreateCustomProfile(Profile{Name: "Active One"})
	if err != nil {
		t.Fatalf("CreateCustomProfile() error: %v", err)
	}
	if err := e.SetActiveProfile(created.ID); err != nil {
		t.Fatalf("SetActiveProfile() error: %v", err)
	}
	if err := e.DeleteCustomProfile(created.ID); err == nil {
		t.Fatal("expected delete to be refused while the profile is active")
	}
}

func TestSetStateProfileAndResolvePowerState(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.SetStateProfile(powerstate.StateBat, "performance"); err != nil {
		t.Fatalf("SetStateProfile() error: %v", err)
	}
	e.ResolvePowerState(powerstate.StateBat)
	active, _ := e.GetActiveProfile()
	if active.ID != "performance" {
		t.Fatalf("active.ID = %q, want performance after resolving bat state", active.ID)
	}

	// Unmapped state falls back to the first built-in.
	e.ResolvePowerState(powerstate.StateACWC)
	active, _ = e.GetActiveProfile()
	if active.ID != "quiet" {
		t.Fatalf("active.ID = %q, want quiet (fallback) for unmapped state", active.ID)
	}
}

func TestPersistedCustomProfileSurvivesReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := persist.New(fs, "/etc/uccd", testLogger())
	builtins := []*Profile{{ID: "quiet", Name: "Quiet", Builtin: true}}

	e1, err := New(HAL{}, store, &recordingNotifier{}, builtins, nil, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	created, err := e1.CreateCustomProfile(Profile{Name: "Persisted"})
	if err != nil {
		t.Fatal(err)
	}

	e2, err := New(HAL{}, store, &recordingNotifier{}, builtins, nil, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, p := range e2.ListProfiles() {
		if p.ID == created.ID && p.Name == "Persisted" {
			found = true
		}
	}
	if !found {
		t.Fatal("custom profile did not survive engine reload")
	}
}

func TestCreateCustomProfileRejectsUnknownFanProfileReference(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.CreateCustomProfile(Profile{Name: "Bad Fan Ref", Fan: FanBinding{FanProfileID: "nonexistent"}})
	if err == nil {
		t.Fatal("expected error for a profile referencing a nonexistent fan profile")
	}
}

const testCPUFreqBase = "/sys/devices/system/cpu/cpu0/cpufreq"

// newTestCPUController builds a single-core cpufreq.Controller against a
// fake sysfs tree with scaling_min_freq/scaling_max_freq already away
// from the cpuinfo floor, so a regression that clamps them to
// cpuinfoMin is visible. Returns the controller and the backing fs so
// the caller can read the attribute files back after apply().
func newTestCPUController(t *testing.T) (*cpufreq.Controller, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	base := testCPUFreqBase
	afero.WriteFile(fs, "/sys/devices/system/cpu/possible", []byte("0"), 0644)
	afero.WriteFile(fs, base+"/scaling_cur_freq", []byte("2000000"), 0644)
	afero.WriteFile(fs, base+"/scaling_min_freq", []byte("1200000"), 0644)
	afero.WriteFile(fs, base+"/scaling_max_freq", []byte("3200000"), 0644)
	afero.WriteFile(fs, base+"/cpuinfo_min_freq", []byte("800000"), 0644)
	afero.WriteFile(fs, base+"/cpuinfo_max_freq", []byte("4000000"), 0644)
	afero.WriteFile(fs, base+"/scaling_driver", []byte("acpi-cpufreq\n"), 0644)
	afero.WriteFile(fs, base+"/scaling_available_frequencies", []byte("800000 1200000 1600000 2000000 2400000 2800000 3200000 3600000 4000000"), 0644)
	afero.WriteFile(fs, base+"/scaling_governor", []byte("powersave\n"), 0644)
	afero.WriteFile(fs, base+"/scaling_available_governors", []byte("performance powersave\n"), 0644)
	afero.WriteFile(fs, base+"/energy_performance_preference", []byte("balance_performance\n"), 0644)
	afero.WriteFile(fs, base+"/energy_performance_available_preferences", []byte("performance balance_performance power\n"), 0644)

	ctl, ok := cpufreq.New(fs, testLogger())
	if !ok {
		t.Fatal("cpufreq.New returned not-ok against a populated fake sysfs tree")
	}
	return ctl, fs
}

func readAttr(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error: %v", path, err)
	}
	return string(b)
}

// TestApplyBuiltinProfileLeavesScalingBoundsUnchanged guards against
// the zero-value ScalingMinFreqKHz/ScalingMaxFreqKHz of a built-in
// profile being handed to SetMinFreq/SetMaxFreq, which would clamp
// both bounds down to the hardware floor instead of leaving them
// alone.
func TestApplyBuiltinProfileLeavesScalingBoundsUnchanged(t *testing.T) {
	cpuCtl, cpuFS := newTestCPUController(t)
	storeFS := afero.NewMemMapFs()
	store := persist.New(storeFS, "/etc/uccd", testLogger())
	builtins := []*Profile{
		{
			ID:      "performance",
			Name:    "Performance",
			Builtin: true,
			CPU: CPUSettings{
				Governor:        "performance",
				OnlineCoreCount: 256,
				BoostEnabled:    true,
				// ScalingMinFreqKHz/ScalingMaxFreqKHz intentionally left
				// at the zero value, matching a real built-in profile.
			},
		},
	}

	e, err := New(HAL{CPU: cpuCtl}, store, &recordingNotifier{}, builtins, nil, nil, testLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := e.SetActiveProfile("performance"); err != nil {
		t.Fatalf("SetActiveProfile() error: %v", err)
	}

	if got := readAttr(t, cpuFS, testCPUFreqBase+"/scaling_min_freq"); got != "1200000" {
		t.Fatalf("scaling_min_freq = %q, want unchanged 1200000 (a 0 profile target must not clamp it to cpuinfo_min_freq)", got)
	}
	if got := readAttr(t, cpuFS, testCPUFreqBase+"/scaling_max_freq"); got != "3200000" {
		t.Fatalf("scaling_max_freq = %q, want unchanged 3200000 (a 0 profile target must not clamp it to cpuinfo_min_freq)", got)
	}
}
