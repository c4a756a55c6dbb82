package fetch

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"sync"
	"time"
)

// Summary is the aggregate view of one fetch run.
type Summary struct {
	TotalURLs     int            `json:"total_urls"`
	Successful    int            `json:"successful"`
	Failed        int            `json:"failed"`
	TotalRequests int            `json:"total_requests"`
	Retries       int            `json:"retries"`
	AvgLatencyMS  float64        `json:"avg_latency_ms"`
	SlowResponses int            `json:"slow_responses"`
	ByStatus      map[string]int `json:"by_status"`
	ByError       map[string]int `json:"by_error"`
}

// Tracker accumulates run statistics across URLs and attempts.
type Tracker struct {
	mu            sync.Mutex
	totalURLs     int
	successful    int
	failed        int
	totalRequests int
	retries       int
	latenciesMS   []float64
	slowResponses int
	byStatus      map[string]int
	byError       map[string]int
}

func NewTracker() *Tracker {
	return &Tracker{
		byStatus: make(map[string]int),
		byError:  make(map[string]int),
	}
}

func (t *Tracker) RecordURL(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalURLs++
	if ok {
		t.successful++
	} else {
		t.failed++
	}
}

func (t *Tracker) RecordRequest() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalRequests++
}

func (t *Tracker) RecordRetry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retries++
}

func (t *Tracker) RecordLatency(latency, slowThreshold time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latenciesMS = append(t.latenciesMS, millis(latency))
	if latency > slowThreshold {
		t.slowResponses++
	}
}

func (t *Tracker) RecordStatus(status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byStatus[strconv.Itoa(status)]++
}

func (t *Tracker) RecordError(kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byError[kind]++
}

// Summary returns a copy of the current aggregates.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	avg := 0.0
	if len(t.latenciesMS) > 0 {
		var sum float64
		for _, v := range t.latenciesMS {
			sum += v
		}
		avg = math.Round(sum/float64(len(t.latenciesMS))*10) / 10
	}

	byStatus := make(map[string]int, len(t.byStatus))
	for k, v := range t.byStatus {
		byStatus[k] = v
	}
	byError := make(map[string]int, len(t.byError))
	for k, v := range t.byError {
		byError[k] = v
	}

	return Summary{
		TotalURLs:     t.totalURLs,
		Successful:    t.successful,
		Failed:        t.failed,
		TotalRequests: t.totalRequests,
		Retries:       t.retries,
		AvgLatencyMS:  avg,
		SlowResponses: t.slowResponses,
		ByStatus:      byStatus,
		ByError:       byError,
	}
}

// WriteFile renders the summary as indented JSON.
func (s Summary) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("fetch: marshal summary: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("fetch: write summary %s: %w", path, err)
	}
	return nil
}
