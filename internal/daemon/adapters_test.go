package daemon

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/uccd-project/uccd/internal/hal/power"
)

func newTestPowerController(t *testing.T, initialUJ string) *power.Controller {
	t.Helper()
	fs := afero.NewMemMapFs()
	path := "/sys/class/powercap/intel-rapl/intel-rapl:0/energy_uj"
	afero.WriteFile(fs, path, []byte(initialUJ), 0644)
	ctl, ok := power.New(fs, nil)
	if !ok {
		t.Fatal("power.New returned not-ok against a populated fs")
	}
	return ctl
}

func TestCPUSamplerNilPowerController(t *testing.T) {
	s := newCPUSampler(nil, nil)
	if _, ok := s.CurrentPowerWatts(); ok {
		t.Fatal("expected not-ok with no power controller wired")
	}
}

func TestCPUSamplerFirstReadIsNotOK(t *testing.T) {
	ctl := newTestPowerController(t, "1000000")
	s := newCPUSampler(nil, ctl)

	if _, ok := s.CurrentPowerWatts(); ok {
		t.Fatal("expected the first sample to report not-ok, nothing to diff against yet")
	}
}

func TestCPUSamplerCounterWraparoundIsNotOK(t *testing.T) {
	ctl := newTestPowerController(t, "5000000")
	s := newCPUSampler(nil, ctl)

	if _, ok := s.CurrentPowerWatts(); ok {
		t.Fatal("first read should be not-ok")
	}

	// Simulate the monotonic counter wrapping back to a lower value.
	s.lastEnergy = 9000000

	if _, ok := s.CurrentPowerWatts(); ok {
		t.Fatal("expected not-ok when the energy counter appears to have gone backwards")
	}
}
