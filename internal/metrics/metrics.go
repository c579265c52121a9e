package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	selections    map[string]int64
	failures      map[string]int64
	responseTimes map[string][]time.Duration
	states        map[string]string
	rejections    map[string]int64
	startTime     time.Time
}

type Snapshot struct {
	TotalDispatches int64                      `json:"total_dispatches"`
	Rejections      map[string]int64           `json:"rejections"`
	Uptime          time.Duration              `json:"uptime"`
	Providers       map[string]ProviderMetrics `json:"providers"`
	Algorithm       string                     `json:"algorithm"`
}

type ProviderMetrics struct {
	Selections  int64         `json:"selections"`
	Failures    int64         `json:"failures"`
	State       string        `json:"state,omitempty"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		selections:    make(map[string]int64),
		failures:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		states:        make(map[string]string),
		rejections:    make(map[string]int64),
		startTime:     time.Now(),
	}
}

func (m *Metrics) RecordSelection(provider string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[provider]++
}

func (m *Metrics) RecordResponse(provider string, duration time.Duration, failed bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes[provider] = append(m.responseTimes[provider], duration)
	if len(m.responseTimes[provider]) > maxSamples {
		m.responseTimes[provider] = m.responseTimes[provider][1:]
	}

	if failed {
		m.failures[provider]++
	}
}

func (m *Metrics) RecordRejection(reason string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejections[reason]++
}

func (m *Metrics) UpdateState(provider, state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.states[provider] = state
}

func (m *Metrics) Snapshot(algorithm string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Rejections: make(map[string]int64, len(m.rejections)),
		Uptime:     time.Since(m.startTime),
		Providers:  make(map[string]ProviderMetrics),
		Algorithm:  algorithm,
	}

	for reason, count := range m.rejections {
		snap.Rejections[reason] = count
	}

	// Collect all known providers
	all := make(map[string]bool)
	for p := range m.selections {
		all[p] = true
	}
	for p := range m.responseTimes {
		all[p] = true
	}
	for p := range m.states {
		all[p] = true
	}

	for p := range all {
		snap.TotalDispatches += m.selections[p]

		pm := ProviderMetrics{
			Selections: m.selections[p],
			Failures:   m.failures[p],
			State:      m.states[p],
		}

		durations := m.responseTimes[p]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			pm.AvgResponse = average(sorted)
			pm.P50Response = percentile(sorted, 0.50)
			pm.P95Response = percentile(sorted, 0.95)
			pm.P99Response = percentile(sorted, 0.99)
		}

		snap.Providers[p] = pm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
