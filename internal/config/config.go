package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// WorkerConfig describes one worker endpoint running over file mailboxes.
type WorkerConfig struct {
	Role          string  `toml:"role"`
	Inbox         string  `toml:"inbox"`
	Outbox        string  `toml:"outbox"`
	Output        string  `toml:"output"`
	Data          []int64 `toml:"data"`
	DataFile      string  `toml:"data_file"`
	PollMS        int     `toml:"poll_ms"`
	SendTimeoutMS int     `toml:"send_timeout_ms"`
}

// RunConfig describes a full single-process merge run.
type RunConfig struct {
	Listen     string        `toml:"listen"`
	MaxSeconds int           `toml:"max_seconds"`
	A          RunsideConfig `toml:"a"`
	B          RunsideConfig `toml:"b"`
}

// RunsideConfig is one side of a single-process run.
type RunsideConfig struct {
	Data     []int64 `toml:"data"`
	DataFile string  `toml:"data_file"`
	Output   string  `toml:"output"`
}

// BackoffConfig defines retry backoff behavior for the fetcher.
type BackoffConfig struct {
	InitialMS  int     `toml:"initial_ms"`
	Multiplier float64 `toml:"multiplier"`
	MaxMS      int     `toml:"max_ms"`
}

// FetchConfig describes a fetch run.
type FetchConfig struct {
	URLs            []string      `toml:"urls"`
	URLFile         string        `toml:"url_file"`
	EventLog        string        `toml:"event_log"`
	Summary         string        `toml:"summary"`
	MaxRetries      int           `toml:"max_retries"`
	TimeoutSeconds  int           `toml:"timeout_seconds"`
	SlowThresholdMS int           `toml:"slow_threshold_ms"`
	Keywords        []string      `toml:"keywords"`
	Backoff         BackoffConfig `toml:"backoff"`
}

// EventLogConfig describes a durable event logger run.
type EventLogConfig struct {
	LogFile    string          `toml:"log_file"`
	BufferSize int             `toml:"buffer_size"`
	Source     SimSourceConfig `toml:"source"`
}

// SimSourceConfig tunes the simulated packet source used by logctl.
type SimSourceConfig struct {
	Packets       int     `toml:"packets"`
	DupRate       float64 `toml:"dup_rate"`
	CorruptRate   float64 `toml:"corrupt_rate"`
	ReorderWindow int     `toml:"reorder_window"`
	Seed          int64   `toml:"seed"`
}

func LoadWorkerConfig(path string) (WorkerConfig, error) {
	var cfg WorkerConfig
	if err := loadToml(path, &cfg); err != nil {
		return WorkerConfig{}, err
	}
	if cfg.PollMS == 0 {
		cfg.PollMS = 10
	}
	if cfg.SendTimeoutMS == 0 {
		cfg.SendTimeoutMS = 30000
	}
	if err := ValidateWorkerConfig(cfg); err != nil {
		return WorkerConfig{}, err
	}
	return cfg, nil
}

func LoadRunConfig(path string) (RunConfig, error) {
	var cfg RunConfig
	if err := loadToml(path, &cfg); err != nil {
		return RunConfig{}, err
	}
	if cfg.MaxSeconds == 0 {
		cfg.MaxSeconds = 60
	}
	return cfg, nil
}

func LoadFetchConfig(path string) (FetchConfig, error) {
	var cfg FetchConfig
	if err := loadToml(path, &cfg); err != nil {
		return FetchConfig{}, err
	}
	if cfg.EventLog == "" {
		cfg.EventLog = "fetch_events.jsonl"
	}
	if cfg.Summary == "" {
		cfg.Summary = "summary.json"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 5
	}
	if cfg.SlowThresholdMS == 0 {
		cfg.SlowThresholdMS = 500
	}
	if cfg.Backoff.InitialMS == 0 {
		cfg.Backoff.InitialMS = 100
	}
	if cfg.Backoff.Multiplier == 0 {
		cfg.Backoff.Multiplier = 2.0
	}
	if cfg.Backoff.MaxMS == 0 {
		cfg.Backoff.MaxMS = 5000
	}
	if err := ValidateFetchConfig(cfg); err != nil {
		return FetchConfig{}, err
	}
	return cfg, nil
}

func LoadEventLogConfig(path string) (EventLogConfig, error) {
	var cfg EventLogConfig
	if err := loadToml(path, &cfg); err != nil {
		return EventLogConfig{}, err
	}
	if cfg.LogFile == "" {
		cfg.LogFile = "events.log"
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 30
	}
	if cfg.Source.Packets == 0 {
		cfg.Source.Packets = 100
	}
	if err := ValidateEventLogConfig(cfg); err != nil {
		return EventLogConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateWorkerConfig(cfg WorkerConfig) error {
	role := strings.TrimSpace(cfg.Role)
	if role != "A" && role != "B" {
		return fmt.Errorf("worker config role must be A or B, got %q", cfg.Role)
	}
	if strings.TrimSpace(cfg.Inbox) == "" {
		return fmt.Errorf("worker config missing inbox")
	}
	if strings.TrimSpace(cfg.Outbox) == "" {
		return fmt.Errorf("worker config missing outbox")
	}
	if cfg.Inbox == cfg.Outbox {
		return fmt.Errorf("worker config inbox and outbox must differ")
	}
	if strings.TrimSpace(cfg.Output) == "" {
		return fmt.Errorf("worker config missing output")
	}
	if len(cfg.Data) > 0 && cfg.DataFile != "" {
		return fmt.Errorf("worker config data and data_file are mutually exclusive")
	}
	return nil
}

func ValidateFetchConfig(cfg FetchConfig) error {
	if len(cfg.URLs) == 0 && strings.TrimSpace(cfg.URLFile) == "" {
		return fmt.Errorf("fetch config needs urls or url_file")
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("fetch config max_retries must not be negative")
	}
	if cfg.Backoff.Multiplier < 1.0 {
		return fmt.Errorf("fetch config backoff multiplier must be at least 1.0")
	}
	return nil
}

func ValidateEventLogConfig(cfg EventLogConfig) error {
	if cfg.BufferSize < 1 {
		return fmt.Errorf("eventlog config buffer_size must be positive")
	}
	if cfg.Source.Packets < 0 {
		return fmt.Errorf("eventlog config source packets must not be negative")
	}
	if cfg.Source.DupRate < 0 || cfg.Source.DupRate >= 1 {
		return fmt.Errorf("eventlog config dup_rate must be in [0,1)")
	}
	if cfg.Source.CorruptRate < 0 || cfg.Source.CorruptRate >= 1 {
		return fmt.Errorf("eventlog config corrupt_rate must be in [0,1)")
	}
	return nil
}

// ReadValuesFile reads one integer per line, skipping blanks.
func ReadValuesFile(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	defer f.Close()

	var out []int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return out, nil
}

// Values resolves a worker's dataset from inline data or data_file.
func (cfg WorkerConfig) Values() ([]int64, error) {
	if cfg.DataFile != "" {
		return ReadValuesFile(cfg.DataFile)
	}
	return cfg.Data, nil
}

// Values resolves one run side's dataset from inline data or data_file.
func (cfg RunsideConfig) Values() ([]int64, error) {
	if cfg.DataFile != "" {
		return ReadValuesFile(cfg.DataFile)
	}
	return cfg.Data, nil
}
