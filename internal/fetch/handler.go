package fetch

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const eventTimeFormat = "2006-01-02T15:04:05.000Z"

// Handler observes fetch lifecycle callbacks.
type Handler interface {
	OnSuccess(url string, status int, latency time.Duration)
	OnClientError(url string, status int)
	OnServerError(url string, status, attempt int)
	OnTimeout(url string, attempt int, timeout time.Duration)
	OnConnectionError(url string, attempt int, err error)
	OnSlowResponse(url string, latency time.Duration)
	OnRetry(url string, attempt int, wait time.Duration, reason string)
	OnBodyMatch(url, keyword string)
	OnMaxRetries(url string, attempts int, lastReason string)
}

// EventLog writes one JSON object per callback to an append-only file.
type EventLog struct {
	mu    sync.Mutex
	path  string
	clock clockwork.Clock
}

func NewEventLog(path string, clock clockwork.Clock) *EventLog {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventLog{path: path, clock: clock}
}

func (l *EventLog) OnSuccess(url string, status int, latency time.Duration) {
	l.write("success", url, map[string]any{"status": status, "latency_ms": millis(latency)})
}

func (l *EventLog) OnClientError(url string, status int) {
	l.write("client_error", url, map[string]any{"status": status})
}

func (l *EventLog) OnServerError(url string, status, attempt int) {
	l.write("server_error", url, map[string]any{"status": status, "attempt": attempt})
}

func (l *EventLog) OnTimeout(url string, attempt int, timeout time.Duration) {
	l.write("timeout", url, map[string]any{"attempt": attempt, "timeout_sec": timeout.Seconds()})
}

func (l *EventLog) OnConnectionError(url string, attempt int, err error) {
	l.write("connection_error", url, map[string]any{"attempt": attempt, "error": err.Error()})
}

func (l *EventLog) OnSlowResponse(url string, latency time.Duration) {
	l.write("slow_response", url, map[string]any{"latency_ms": millis(latency)})
}

func (l *EventLog) OnRetry(url string, attempt int, wait time.Duration, reason string) {
	l.write("retry", url, map[string]any{"attempt": attempt, "wait_ms": millis(wait), "reason": reason})
}

func (l *EventLog) OnBodyMatch(url, keyword string) {
	l.write("body_match", url, map[string]any{"keyword": keyword})
}

func (l *EventLog) OnMaxRetries(url string, attempts int, lastReason string) {
	l.write("max_retries", url, map[string]any{"attempts": attempts, "last_error": lastReason})
}

func (l *EventLog) write(event, url string, fields map[string]any) {
	obj := map[string]any{
		"timestamp": l.clock.Now().UTC().Format(eventTimeFormat),
		"event":     event,
		"event_id":  uuid.NewString(),
		"url":       url,
	}
	for k, v := range fields {
		obj[k] = v
	}
	line, err := json.Marshal(obj)
	if err != nil {
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(line)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

var _ Handler = (*EventLog)(nil)

// NopHandler discards every callback.
type NopHandler struct{}

func (NopHandler) OnSuccess(string, int, time.Duration) {}
func (NopHandler) OnClientError(string, int) {}
func (NopHandler) OnServerError(string, int, int) {}
func (NopHandler) OnTimeout(string, int, time.Duration) {}
func (NopHandler) OnConnectionError(string, int, error) {}
func (NopHandler) OnSlowResponse(string, time.Duration) {}
func (NopHandler) OnRetry(string, int, time.Duration, string) {}
func (NopHandler) OnBodyMatch(string, string) {}
func (NopHandler) OnMaxRetries(string, int, string) {}
