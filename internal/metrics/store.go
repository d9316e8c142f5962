// Package metrics holds a fixed-horizon, per-metric ring of
// timestamped samples, safe for concurrent multi-reader/multi-writer
// use, with JSON and compact-binary query forms.
package metrics

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MetricID enumerates the 13 metrics tracked by the store.
type MetricID uint8

const (
	CPUTemp MetricID = iota
	CPUDuty
	CPUPower
	CPUFreq
	DGPUTemp
	DGPUDuty
	DGPUPower
	DGPUFreq
	IGPUTemp
	IGPUPower
	IGPUFreq
	WaterCoolerFanDuty
	WaterCoolerPumpLevel

	metricCount
)

var metricNames = map[MetricID]string{
	CPUTemp:              "cpu_temp",
	CPUDuty:              "cpu_duty",
	CPUPower:             "cpu_power",
	CPUFreq:              "cpu_freq",
	DGPUTemp:             "dgpu_temp",
	DGPUDuty:             "dgpu_duty",
	DGPUPower:            "dgpu_power",
	DGPUFreq:             "dgpu_freq",
	IGPUTemp:             "igpu_temp",
	IGPUPower:            "igpu_power",
	IGPUFreq:             "igpu_freq",
	WaterCoolerFanDuty:   "wc_fan_duty",
	WaterCoolerPumpLevel: "wc_pump_level",
}

// Sample is one timestamped value.
type Sample struct {
	TimestampMs int64
	Value       float64
}

const (
	// HorizonDefaultSec, HorizonMinSec, HorizonMaxSec bound the
	// store's retention window.
	HorizonDefaultSec = 1800
	HorizonMinSec     = 60
	HorizonMaxSec     = 7200
)

// Store is the metrics history store. One exclusive-write/shared-read
// lock covers the whole store: writes from different metrics never
// interleave, matching §5's "metrics writes ... serialize on the
// single store lock".
type Store struct {
	mu        sync.RWMutex
	horizonMs int64
	rings     [metricCount][]Sample
	now       func() int64
}

// New creates a Store with the given horizon in seconds, clamped to
// [HorizonMinSec, HorizonMaxSec]. now lets tests inject a deterministic
// clock; production callers pass a wrapper around time.Now().
func New(horizonSec int, now func() int64) *Store {
	if horizonSec < HorizonMinSec {
		horizonSec = HorizonMinSec
	}
	if horizonSec > HorizonMaxSec {
		horizonSec = HorizonMaxSec
	}
	return &Store{horizonMs: int64(horizonSec) * 1000, now: now}
}

// Push appends a sample to the given metric's ring and prunes expired
// entries from the front. Callers must push non-decreasing timestamps
// per metric (single-producer-per-metric invariant from §3).
func (s *Store) Push(id MetricID, tsMs int64, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := s.rings[id]
	ring = append(ring, Sample{TimestampMs: tsMs, Value: value})

	cutoff := s.now() - s.horizonMs
	start := 0
	for start < len(ring) && ring[start].TimestampMs < cutoff {
		start++
	}
	if start > 0 {
		ring = append(ring[:0], ring[start:]...)
	}
	s.rings[id] = ring
}

// Latest returns the most recent sample pushed for id, or
// ok=false if the ring is empty (the RPC surface's point-query
// methods read through here rather than QueryJSON/QueryBinary's
// since-filtered ranges).
func (s *Store) Latest(id MetricID) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ring := s.rings[id]
	if len(ring) == 0 {
		return Sample{}, false
	}
	return ring[len(ring)-1], true
}

// sinceIndex returns the index of the first sample with
// TimestampMs >= sinceMs, via binary search (the reader-dominant cost
// per §4.5/§9).
func sinceIndex(ring []Sample, sinceMs int64) int {
	return sort.Search(len(ring), func(i int) bool {
		return ring[i].TimestampMs >= sinceMs
	})
}

// QueryJSON renders samples since sinceMs as
// {"<metric>": [[ts, value], ...], ...}, omitting metrics with no
// matching samples.
func (s *Store) QueryJSON(sinceMs int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][][2]float64)
	for id := MetricID(0); id < metricCount; id++ {
		ring := s.rings[id]
		idx := sinceIndex(ring, sinceMs)
		if idx >= len(ring) {
			continue
		}
		rows := make([][2]float64, 0, len(ring)-idx)
		for _, samp := range ring[idx:] {
			rows = append(rows, [2]float64{float64(samp.TimestampMs), samp.Value})
		}
		out[metricNames[id]] = rows
	}
	return json.Marshal(out)
}

// QueryBinary renders samples since sinceMs in the compact wire
// format: concatenation of per-metric blocks
// {u8 metric_id, u32 count, count x {i64 ts_ms, f64 value}}, native
// endian, empty metrics omitted.
func (s *Store) QueryBinary(sinceMs int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var buf bytes.Buffer
	for id := MetricID(0); id < metricCount; id++ {
		ring := s.rings[id]
		idx := sinceIndex(ring, sinceMs)
		if idx >= len(ring) {
			continue
		}
		count := uint32(len(ring) - idx)
		if err := buf.WriteByte(byte(id)); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.NativeEndian, count); err != nil {
			return nil, fmt.Errorf("write count for metric %d: %w", id, err)
		}
		for _, samp := range ring[idx:] {
			if err := binary.Write(&buf, binary.NativeEndian, samp.TimestampMs); err != nil {
				return nil, err
			}
			if err := binary.Write(&buf, binary.NativeEndian, samp.Value); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}
