package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/mergectl/internal/testutil/testlog"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWorkerConfig(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "worker.toml", `
role = "A"
inbox = "/tmp/b_to_a.msg"
outbox = "/tmp/a_to_b.msg"
output = "/tmp/out.txt"
data = [3, 1, 2]
`)
	cfg, err := LoadWorkerConfig(path)
	require.NoError(t, err)
	require.Equal(t, "A", cfg.Role)
	require.Equal(t, []int64{3, 1, 2}, cfg.Data)
	require.Equal(t, 10, cfg.PollMS)
	require.Equal(t, 30000, cfg.SendTimeoutMS)

	values, err := cfg.Values()
	require.NoError(t, err)
	require.Equal(t, []int64{3, 1, 2}, values)
}

func TestLoadWorkerConfigRejectsBadRole(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "worker.toml", `
role = "C"
inbox = "in"
outbox = "out"
output = "res"
`)
	_, err := LoadWorkerConfig(path)
	require.ErrorContains(t, err, "role must be A or B")
}

func TestLoadWorkerConfigRejectsSharedMailbox(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "worker.toml", `
role = "B"
inbox = "same"
outbox = "same"
output = "res"
`)
	_, err := LoadWorkerConfig(path)
	require.ErrorContains(t, err, "inbox and outbox must differ")
}

func TestLoadRunConfigDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "run.toml", `
[a]
data = [1, 2]

[b]
data = [3]
`)
	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	require.Equal(t, 60, cfg.MaxSeconds)
	require.Equal(t, []int64{1, 2}, cfg.A.Data)
	require.Equal(t, []int64{3}, cfg.B.Data)
}

func TestLoadFetchConfigDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "fetch.toml", `
urls = ["http://example.com"]
`)
	cfg, err := LoadFetchConfig(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, 5, cfg.TimeoutSeconds)
	require.Equal(t, 500, cfg.SlowThresholdMS)
	require.Equal(t, 100, cfg.Backoff.InitialMS)
	require.Equal(t, 2.0, cfg.Backoff.Multiplier)
	require.Equal(t, 5000, cfg.Backoff.MaxMS)
	require.Equal(t, "fetch_events.jsonl", cfg.EventLog)
	require.Equal(t, "summary.json", cfg.Summary)
}

func TestLoadFetchConfigNeedsURLs(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "fetch.toml", `max_retries = 2`)
	_, err := LoadFetchConfig(path)
	require.ErrorContains(t, err, "needs urls or url_file")
}

func TestLoadEventLogConfigDefaultsAndBounds(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "eventlog.toml", `
log_file = "ev.log"

[source]
seed = 7
`)
	cfg, err := LoadEventLogConfig(path)
	require.NoError(t, err)
	require.Equal(t, 30, cfg.BufferSize)
	require.Equal(t, 100, cfg.Source.Packets)
	require.Equal(t, int64(7), cfg.Source.Seed)

	bad := writeFile(t, "bad.toml", `
[source]
dup_rate = 1.5
`)
	_, err = LoadEventLogConfig(bad)
	require.ErrorContains(t, err, "dup_rate")
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	_, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.ErrorContains(t, err, "config load failed")
}

func TestReadValuesFile(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "values.txt", "5\n\n-2\n 17 \n")
	values, err := ReadValuesFile(path)
	require.NoError(t, err)
	require.Equal(t, []int64{5, -2, 17}, values)

	bad := writeFile(t, "bad.txt", "5\nnope\n")
	_, err = ReadValuesFile(bad)
	require.ErrorContains(t, err, "config parse failed")
}
