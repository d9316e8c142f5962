package metrics

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"sync"
	"testing"
)

func clockAt(ms int64) func() int64 {
	return func() int64 { return ms }
}

func TestPushAndQueryBinaryExactMatch(t *testing.T) {
	s := New(HorizonDefaultSec, clockAt(2000))
	s.Push(CPUTemp, 1000, 55.0)
	s.Push(CPUTemp, 2000, 56.0)
	s.Push(DGPUTemp, 1500, 60.0)

	raw, err := s.QueryBinary(1500)
	if err != nil {
		t.Fatalf("QueryBinary() error: %v", err)
	}

	got := decodeBinary(t, raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 metric blocks, got %d: %+v", len(got), got)
	}
	if samples := got[CPUTemp]; len(samples) != 1 || samples[0].TimestampMs != 2000 || samples[0].Value != 56.0 {
		t.Fatalf("CPUTemp block = %+v, want [(2000,56.0)]", samples)
	}
	if samples := got[DGPUTemp]; len(samples) != 1 || samples[0].TimestampMs != 1500 || samples[0].Value != 60.0 {
		t.Fatalf("DGPUTemp block = %+v, want [(1500,60.0)]", samples)
	}
}

func TestQueryJSONOmitsEmptyMetrics(t *testing.T) {
	s := New(HorizonDefaultSec, clockAt(1000))
	s.Push(CPUTemp, 1000, 42.0)

	raw, err := s.QueryJSON(0)
	if err != nil {
		t.Fatalf("QueryJSON() error: %v", err)
	}

	var out map[string][][2]float64
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 metric in output, got %d: %v", len(out), out)
	}
	if _, ok := out["cpu_temp"]; !ok {
		t.Fatalf("expected cpu_temp key, got %v", out)
	}
}

func TestHorizonEviction(t *testing.T) {
	now := int64(HorizonDefaultSec * 1000)
	s := New(HorizonDefaultSec, clockAt(now))

	s.Push(CPUTemp, -1, 1.0) // strictly before now - H*1000: evicted
	s.Push(CPUTemp, 0, 2.0)  // exactly now - H*1000: retained

	raw, _ := s.QueryBinary(-1)
	got := decodeBinary(t, raw)
	samples := got[CPUTemp]
	if len(samples) != 1 || samples[0].TimestampMs != 0 {
		t.Fatalf("expected only the in-horizon sample retained, got %+v", samples)
	}
}

func TestHorizonClamped(t *testing.T) {
	s := New(10, clockAt(0))
	if s.horizonMs != HorizonMinSec*1000 {
		t.Fatalf("horizon not clamped to min: got %dms", s.horizonMs)
	}
	s2 := New(100000, clockAt(0))
	if s2.horizonMs != HorizonMaxSec*1000 {
		t.Fatalf("horizon not clamped to max: got %dms", s2.horizonMs)
	}
}

func TestConcurrentPushAndQuery(t *testing.T) {
	s := New(HorizonDefaultSec, clockAt(100000))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Push(MetricID(n%int(metricCount)), int64(j), float64(j))
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.QueryJSON(0)
			s.QueryBinary(0)
		}()
	}
	wg.Wait()
}

func decodeBinary(t *testing.T, raw []byte) map[MetricID][]Sample {
	t.Helper()
	out := make(map[MetricID][]Sample)
	pos := 0
	for pos < len(raw) {
		id := MetricID(raw[pos])
		pos++
		count := binary.NativeEndian.Uint32(raw[pos : pos+4])
		pos += 4
		samples := make([]Sample, 0, count)
		for i := uint32(0); i < count; i++ {
			ts := int64(binary.NativeEndian.Uint64(raw[pos : pos+8]))
			pos += 8
			bits := binary.NativeEndian.Uint64(raw[pos : pos+8])
			pos += 8
			samples = append(samples, Sample{TimestampMs: ts, Value: math.Float64frombits(bits)})
		}
		out[id] = samples
	}
	return out
}
