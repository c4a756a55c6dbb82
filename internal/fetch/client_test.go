package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/mergectl/internal/testutil/testlog"
)

// recordingHandler counts callbacks by name.
type recordingHandler struct {
	NopHandler
	mu       sync.Mutex
	events   map[string]int
	keywords []string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{events: map[string]int{}}
}

func (h *recordingHandler) bump(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events[name]++
}

func (h *recordingHandler) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events[name]
}

func (h *recordingHandler) OnSuccess(string, int, time.Duration) { h.bump("success") }
func (h *recordingHandler) OnClientError(string, int)            { h.bump("client_error") }
func (h *recordingHandler) OnServerError(string, int, int)       { h.bump("server_error") }
func (h *recordingHandler) OnRetry(string, int, time.Duration, string) {
	h.bump("retry")
}
func (h *recordingHandler) OnMaxRetries(string, int, string) { h.bump("max_retries") }
func (h *recordingHandler) OnBodyMatch(url, keyword string) {
	h.bump("body_match")
	h.mu.Lock()
	h.keywords = append(h.keywords, keyword)
	h.mu.Unlock()
}

func fastConfig() Config {
	return Config{
		MaxRetries:    3,
		Timeout:       2 * time.Second,
		SlowThreshold: time.Second,
		Backoff: BackoffConfig{
			InitialDelay: time.Millisecond,
			Multiplier:   1.0,
			MaxDelay:     time.Millisecond,
		},
	}
}

func TestFetchSuccessMatchesKeywords(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("system is ready for merging"))
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.Keywords = []string{"ready", "absent-word"}
	h := newRecordingHandler()
	c := NewClient(cfg, h, clockwork.NewRealClock(), zerolog.Nop())

	require.True(t, c.Fetch(context.Background(), srv.URL))
	require.Equal(t, 1, h.count("success"))
	require.Equal(t, 1, h.count("body_match"))
	require.Equal(t, []string{"ready"}, h.keywords)

	s := c.Tracker().Summary()
	require.Equal(t, 1, s.TotalRequests)
	require.Equal(t, 0, s.Retries)
	require.Equal(t, 1, s.ByStatus["200"])
}

func TestFetchClientErrorNeverRetries(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	h := newRecordingHandler()
	c := NewClient(fastConfig(), h, clockwork.NewRealClock(), zerolog.Nop())

	require.False(t, c.Fetch(context.Background(), srv.URL))
	require.Equal(t, 1, h.count("client_error"))
	require.Equal(t, 0, h.count("retry"))
	require.Equal(t, 1, c.Tracker().Summary().TotalRequests)
}

func TestFetchServerErrorRetriesUntilSuccess(t *testing.T) {
	testlog.Start(t)
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		hits++
		n := hits
		mu.Unlock()
		if n <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	h := newRecordingHandler()
	c := NewClient(fastConfig(), h, clockwork.NewRealClock(), zerolog.Nop())

	require.True(t, c.Fetch(context.Background(), srv.URL))
	require.Equal(t, 2, h.count("server_error"))
	require.Equal(t, 2, h.count("retry"))
	require.Equal(t, 1, h.count("success"))

	s := c.Tracker().Summary()
	require.Equal(t, 3, s.TotalRequests)
	require.Equal(t, 2, s.Retries)
	require.Equal(t, 2, s.ByStatus["500"])
	require.Equal(t, 1, s.ByStatus["200"])
}

func TestFetchExhaustsRetries(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.MaxRetries = 1
	h := newRecordingHandler()
	c := NewClient(cfg, h, clockwork.NewRealClock(), zerolog.Nop())

	require.False(t, c.Fetch(context.Background(), srv.URL))
	require.Equal(t, 1, h.count("max_retries"))
	require.Equal(t, 2, c.Tracker().Summary().TotalRequests)
}

func TestFetchConnectionErrorRecorded(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close() // nobody listens anymore

	cfg := fastConfig()
	cfg.MaxRetries = 0
	c := NewClient(cfg, nil, clockwork.NewRealClock(), zerolog.Nop())

	require.False(t, c.Fetch(context.Background(), url))
	s := c.Tracker().Summary()
	require.Equal(t, 1, s.ByError["connection"])
}

func TestFetchAllSummarizes(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(fastConfig(), nil, clockwork.NewRealClock(), zerolog.Nop())
	summary := c.FetchAll(context.Background(), []string{srv.URL + "/good", srv.URL + "/bad"})

	require.Equal(t, 2, summary.TotalURLs)
	require.Equal(t, 1, summary.Successful)
	require.Equal(t, 1, summary.Failed)
}

func TestSummaryWriteFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "summary.json")
	s := Summary{TotalURLs: 2, Successful: 1, Failed: 1,
		ByStatus: map[string]int{"200": 1}, ByError: map[string]int{}}
	require.NoError(t, s.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Summary
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, s, back)
}

func TestEventLogWritesStampedLines(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "events.jsonl")
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	l := NewEventLog(path, clock)

	l.OnSuccess("http://example.com", 200, 120*time.Millisecond)
	l.OnRetry("http://example.com", 2, 50*time.Millisecond, "server_error")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := []map[string]any{}
	for _, raw := range splitLines(data) {
		var obj map[string]any
		require.NoError(t, json.Unmarshal(raw, &obj))
		lines = append(lines, obj)
	}
	require.Len(t, lines, 2)
	require.Equal(t, "success", lines[0]["event"])
	require.Equal(t, "2024-03-01T12:00:00.000Z", lines[0]["timestamp"])
	require.NotEmpty(t, lines[0]["event_id"])
	require.Equal(t, "retry", lines[1]["event"])
	require.Equal(t, "server_error", lines[1]["reason"])
}

func splitLines(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				out = append(out, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, data[start:])
	}
	return out
}
