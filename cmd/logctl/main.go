package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/mergectl/internal/config"
	"github.com/danmuck/mergectl/internal/eventlog"
	"github.com/danmuck/mergectl/internal/logging"
)

// logctl drives the durable event logger against the simulated unreliable
// source. Re-running with the same log file resumes from recovered state.
func main() {
	cfgPath := flag.String("config", "eventlog.toml", "eventlog config path")
	flag.Parse()

	logging.ConfigureRuntime()
	log := logging.Component("logctl")

	cfg, err := config.LoadEventLogConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logctl: %v\n", err)
		os.Exit(1)
	}

	source := eventlog.NewSimSource(eventlog.SimConfig{
		Packets:       cfg.Source.Packets,
		DupRate:       cfg.Source.DupRate,
		CorruptRate:   cfg.Source.CorruptRate,
		ReorderWindow: cfg.Source.ReorderWindow,
		Seed:          cfg.Source.Seed,
	})
	logger, err := eventlog.New(source, cfg.LogFile, cfg.BufferSize, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logctl: %v\n", err)
		os.Exit(1)
	}

	stats, err := logger.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logctl: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logctl: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
