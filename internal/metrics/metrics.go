// Package metrics keeps in-process counters and timings for the journal
// pipeline. Paths are "topic/function", e.g. "journal/transcribe".
package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Snapshot is the exported view of one metric path.
type Snapshot struct {
	Path    string           `json:"path"`
	Success int64            `json:"success"`
	Failure int64            `json:"failure"`
	Reasons map[string]int64 `json:"reasons,omitempty"`
	Counter int64            `json:"counter,omitempty"`
	Count   int64            `json:"count,omitempty"`
	AvgMs   float64          `json:"avgMs,omitempty"`
	MaxMs   float64          `json:"maxMs,omitempty"`
}

type metric struct {
	success int64
	failure int64
	reasons map[string]int64
	counter int64
	count   int64
	total   time.Duration
	max     time.Duration
}

// MetricsManager holds all metrics. The zero value is not usable; use
// GetInstance or NewManager.
type MetricsManager struct {
	mu      sync.RWMutex
	metrics map[string]*metric
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the singleton metrics manager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = NewManager()
	})
	return instance
}

// NewManager returns an empty manager (used by tests).
func NewManager() *MetricsManager {
	return &MetricsManager{metrics: make(map[string]*metric)}
}

// buildPath creates a normalized path from topic and function
func buildPath(topic, function string) string {
	if function == "" {
		return topic
	}
	return fmt.Sprintf("%s/%s", topic, function)
}

func (m *MetricsManager) get(path string) *metric {
	mt, ok := m.metrics[path]
	if !ok {
		mt = &metric{}
		m.metrics[path] = mt
	}
	return mt
}

// RecordSuccess counts a successful operation.
func (m *MetricsManager) RecordSuccess(topic, function string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(buildPath(topic, function)).success++
}

// RecordFailure counts a failed operation with an optional reason.
func (m *MetricsManager) RecordFailure(topic, function, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt := m.get(buildPath(topic, function))
	mt.failure++
	if reason != "" {
		if mt.reasons == nil {
			mt.reasons = make(map[string]int64)
		}
		mt.reasons[reason]++
	}
}

// IncrementCounter adds one to a plain counter.
func (m *MetricsManager) IncrementCounter(topic, function string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(buildPath(topic, function)).counter++
}

// RecordDuration records one timing sample.
func (m *MetricsManager) RecordDuration(topic, function string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt := m.get(buildPath(topic, function))
	mt.count++
	mt.total += d
	if d > mt.max {
		mt.max = d
	}
}

// GetSnapshot returns all metrics sorted by path.
func (m *MetricsManager) GetSnapshot() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.metrics))
	for path, mt := range m.metrics {
		s := Snapshot{
			Path:    path,
			Success: mt.success,
			Failure: mt.failure,
			Counter: mt.counter,
			Count:   mt.count,
		}
		if len(mt.reasons) > 0 {
			s.Reasons = make(map[string]int64, len(mt.reasons))
			for k, v := range mt.reasons {
				s.Reasons[k] = v
			}
		}
		if mt.count > 0 {
			s.AvgMs = float64(mt.total.Microseconds()) / float64(mt.count) / 1000
			s.MaxMs = float64(mt.max.Microseconds()) / 1000
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
