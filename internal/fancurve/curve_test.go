package fancurve

import (
	"testing"
	"time"
)

func samplePoints() []Point {
	return []Point{
		{TempC: 40, DutyPct: 20},
		{TempC: 60, DutyPct: 50},
		{TempC: 80, DutyPct: 100},
	}
}

func TestEvaluateInterpolatesLinearly(t *testing.T) {
	got := Evaluate(samplePoints(), 50)
	if got != 35 {
		t.Fatalf("Evaluate(50) = %v, want 35", got)
	}
}

func TestEvaluateClampsBelowAndAbove(t *testing.T) {
	if got := Evaluate(samplePoints(), 10); got != 20 {
		t.Fatalf("Evaluate(below range) = %v, want 20", got)
	}
	if got := Evaluate(samplePoints(), 120); got != 100 {
		t.Fatalf("Evaluate(above range) = %v, want 100", got)
	}
}

func TestEvaluateSinglePoint(t *testing.T) {
	points := []Point{{TempC: 50, DutyPct: 42}}
	for _, temp := range []float64{0, 50, 100} {
		if got := Evaluate(points, temp); got != 42 {
			t.Fatalf("Evaluate(%v) on single-point curve = %v, want 42", temp, got)
		}
	}
}

func TestEvaluateMonotonicAndBounded(t *testing.T) {
	points := samplePoints()
	prev := Evaluate(points, 20)
	for temp := 20.0; temp <= 100; temp += 1 {
		d := Evaluate(points, temp)
		if d < prev {
			t.Fatalf("Evaluate() not monotonic non-decreasing at temp %v: %v < %v", temp, d, prev)
		}
		if d < points[0].DutyPct || d > points[len(points)-1].DutyPct {
			t.Fatalf("Evaluate(%v) = %v out of bounds [%v,%v]", temp, d, points[0].DutyPct, points[len(points)-1].DutyPct)
		}
		prev = d
	}
}

func TestValidateCurveRejectsEqualTemps(t *testing.T) {
	points := []Point{{TempC: 50, DutyPct: 10}, {TempC: 50, DutyPct: 20}}
	if err := ValidateCurve(points); err == nil {
		t.Fatal("expected error for equal temps")
	}
}

func TestValidateCurveRejectsDecreasingDuty(t *testing.T) {
	points := []Point{{TempC: 40, DutyPct: 50}, {TempC: 60, DutyPct: 20}}
	if err := ValidateCurve(points); err == nil {
		t.Fatal("expected error for decreasing duty")
	}
}

func TestValidateCurveAcceptsSamplePoints(t *testing.T) {
	if err := ValidateCurve(samplePoints()); err != nil {
		t.Fatalf("ValidateCurve() unexpected error: %v", err)
	}
}

func TestSmootherHysteresis(t *testing.T) {
	s := NewSmoother()
	now := time.Unix(1000, 0)

	duty, write := s.Next(now, 30)
	if !write || duty != 30 {
		t.Fatalf("first Next() = (%v, %v), want (30, true)", duty, write)
	}

	// Small change, no time elapsed: held.
	duty, write = s.Next(now.Add(time.Second), 31)
	if write || duty != 30 {
		t.Fatalf("small-delta Next() = (%v, %v), want (30, false)", duty, write)
	}

	// Large change: adopted immediately.
	duty, write = s.Next(now.Add(2*time.Second), 40)
	if !write || duty != 40 {
		t.Fatalf("large-delta Next() = (%v, %v), want (40, true)", duty, write)
	}

	// Small change but >5s elapsed: adopted.
	duty, write = s.Next(now.Add(10*time.Second), 41)
	if !write || duty != 41 {
		t.Fatalf("elapsed Next() = (%v, %v), want (41, true)", duty, write)
	}
}

func TestPumpQuantize(t *testing.T) {
	points := []Point{{TempC: 40, DutyPct: 0}, {TempC: 80, DutyPct: 3}}
	if got := PumpQuantize(points, 40); got != PumpLevelOff {
		t.Fatalf("PumpQuantize(40) = %v, want Off", got)
	}
	if got := PumpQuantize(points, 80); got != PumpLevelV11 {
		t.Fatalf("PumpQuantize(80) = %v, want V11", got)
	}
}
