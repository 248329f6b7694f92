package services

import (
	"sync"
	"time"
)

const (
	SourceVectorIndex = "vector_index"
	SourceGoogleMaps  = "google_maps"

	slowQueryThreshold = 2 * time.Second
	slowQueryKeep      = 10
)

type SearchCounters struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	Cached     int64 `json:"cached"`
}

type DataSourceMetrics struct {
	Requests      int64   `json:"requests"`
	Successes     int64   `json:"successes"`
	Failures      int64   `json:"failures"`
	AvgResponseMs float64 `json:"avg_response_ms"`
}

type SlowQuery struct {
	Query      string    `json:"query"`
	DurationMs int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

type MetricsSnapshot struct {
	Searches      SearchCounters               `json:"searches"`
	DataSources   map[string]DataSourceMetrics `json:"data_sources"`
	AvgSearchMs   float64                      `json:"avg_search_ms"`
	SlowQueries   []SlowQuery                  `json:"slow_queries"`
	ErrorRatePct  float64                      `json:"error_rate_pct"`
	UptimeSeconds int64                        `json:"uptime_seconds"`
}

// SearchMetrics holds in-process counters for the search path. Values reset on restart.
type SearchMetrics struct {
	mu          sync.Mutex
	started     time.Time
	searches    SearchCounters
	sources     map[string]*DataSourceMetrics
	avgSearchMs float64
	slow        []SlowQuery
}

func NewSearchMetrics() *SearchMetrics {
	return &SearchMetrics{
		started: time.Now(),
		sources: map[string]*DataSourceMetrics{
			SourceVectorIndex: {},
			SourceGoogleMaps:  {},
		},
	}
}

func (m *SearchMetrics) RecordSearch(query string, success, cached bool, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.searches.Total++
	if success {
		m.searches.Successful++
	} else {
		m.searches.Failed++
	}
	if cached {
		m.searches.Cached++
	}

	ms := float64(elapsed.Milliseconds())
	m.avgSearchMs += (ms - m.avgSearchMs) / float64(m.searches.Total)

	if elapsed > slowQueryThreshold {
		m.slow = append(m.slow, SlowQuery{Query: query, DurationMs: elapsed.Milliseconds(), At: time.Now().UTC()})
		if len(m.slow) > slowQueryKeep {
			m.slow = m.slow[len(m.slow)-slowQueryKeep:]
		}
	}
}

func (m *SearchMetrics) RecordSource(source string, success bool, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sources[source]
	if !ok {
		s = &DataSourceMetrics{}
		m.sources[source] = s
	}
	s.Requests++
	if success {
		s.Successes++
	} else {
		s.Failures++
	}
	s.AvgResponseMs += (float64(elapsed.Milliseconds()) - s.AvgResponseMs) / float64(s.Requests)
}

func (m *SearchMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		Searches:      m.searches,
		DataSources:   make(map[string]DataSourceMetrics, len(m.sources)),
		AvgSearchMs:   m.avgSearchMs,
		SlowQueries:   append([]SlowQuery(nil), m.slow...),
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
	}
	for name, s := range m.sources {
		snap.DataSources[name] = *s
	}
	if m.searches.Total > 0 {
		snap.ErrorRatePct = float64(m.searches.Failed) / float64(m.searches.Total) * 100
	}
	return snap
}
