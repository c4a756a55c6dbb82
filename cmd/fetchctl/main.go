package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/danmuck/mergectl/internal/config"
	"github.com/danmuck/mergectl/internal/fetch"
	"github.com/danmuck/mergectl/internal/logging"
	"github.com/danmuck/mergectl/internal/observability"
)

func main() {
	cfgPath := flag.String("config", "fetch.toml", "fetch config path")
	flag.Parse()

	logging.ConfigureRuntime()
	observability.RegisterMetrics()
	log := logging.Component("fetchctl")

	if err := run(*cfgPath); err != nil {
		log.Error().Err(err).Msg("fetch run failed")
		fmt.Fprintf(os.Stderr, "fetchctl: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.LoadFetchConfig(path)
	if err != nil {
		return err
	}

	urls := cfg.URLs
	if cfg.URLFile != "" {
		fromFile, err := readURLFile(cfg.URLFile)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}

	clock := clockwork.NewRealClock()
	client := fetch.NewClient(fetch.Config{
		MaxRetries:    cfg.MaxRetries,
		Timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
		SlowThreshold: time.Duration(cfg.SlowThresholdMS) * time.Millisecond,
		Keywords:      cfg.Keywords,
		Backoff: fetch.BackoffConfig{
			InitialDelay: time.Duration(cfg.Backoff.InitialMS) * time.Millisecond,
			Multiplier:   cfg.Backoff.Multiplier,
			MaxDelay:     time.Duration(cfg.Backoff.MaxMS) * time.Millisecond,
			Jitter:       true,
		},
	}, fetch.NewEventLog(cfg.EventLog, clock), clock, logging.Component("fetch"))

	summary := client.FetchAll(context.Background(), urls)
	if err := summary.WriteFile(cfg.Summary); err != nil {
		return err
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("url file load failed (%s): %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("url file load failed (%s): %w", path, err)
	}
	return urls, nil
}
