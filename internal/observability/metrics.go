package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	issuedCount    int64
	validatedCount map[string]int64
	sweptCount     int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		validatedCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTokenIssued counts successful issuances.
func (m *Metrics) RecordTokenIssued() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issuedCount++
}

// RecordTokenValidated counts validation attempts per outcome code.
func (m *Metrics) RecordTokenValidated(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validatedCount[outcome]++
}

// RecordTokensSwept counts deleted expired tokens.
func (m *Metrics) RecordTokensSwept(deleted int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweptCount += deleted
}

// Snapshot returns copies of the counters for the health/debug surface.
func (m *Metrics) Snapshot() (issued int64, validated map[string]int64, swept int64) {
	if m == nil {
		return 0, nil, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	validated = make(map[string]int64, len(m.validatedCount))
	for k, v := range m.validatedCount {
		validated[k] = v
	}
	return m.issuedCount, validated, m.sweptCount
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
