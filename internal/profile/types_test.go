package profile

import (
	"testing"

	"github.com/uccd-project/uccd/internal/fancurve"
)

func TestFanProfileValidateAcceptsDutyCurves(t *testing.T) {
	fp := FanProfile{
		Name: "Custom",
		TableCPU: []fancurve.Point{
			{TempC: 40, DutyPct: 30},
			{TempC: 80, DutyPct: 90},
		},
	}
	if err := fp.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestFanProfileValidateAcceptsInRangePumpLevels(t *testing.T) {
	fp := FanProfile{
		Name: "Custom",
		TablePump: []fancurve.Point{
			{TempC: 40, DutyPct: 0},
			{TempC: 60, DutyPct: 1},
			{TempC: 80, DutyPct: 3},
		},
	}
	if err := fp.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestFanProfileValidateRejectsOutOfRangePumpLevel(t *testing.T) {
	fp := FanProfile{
		Name: "Custom",
		TablePump: []fancurve.Point{
			{TempC: 40, DutyPct: 50},
		},
	}
	if err := fp.Validate(); err == nil {
		t.Fatal("expected Validate() to reject a pump duty of 50, outside the {0,1,2,3} level range")
	}
}

func TestFanProfileValidateRejectsDecreasingPumpLevel(t *testing.T) {
	fp := FanProfile{
		Name: "Custom",
		TablePump: []fancurve.Point{
			{TempC: 40, DutyPct: 2},
			{TempC: 60, DutyPct: 1},
		},
	}
	if err := fp.Validate(); err == nil {
		t.Fatal("expected Validate() to reject a decreasing pump level")
	}
}

func TestFanProfileValidateAllowsWaterCoolerFanDutyUpTo100(t *testing.T) {
	fp := FanProfile{
		Name: "Custom",
		TableWaterCoolerFan: []fancurve.Point{
			{TempC: 40, DutyPct: 40},
			{TempC: 80, DutyPct: 100},
		},
	}
	if err := fp.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}
