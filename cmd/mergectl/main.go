package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/mergectl/internal/config"
	"github.com/danmuck/mergectl/internal/coordinator"
	"github.com/danmuck/mergectl/internal/logging"
	"github.com/danmuck/mergectl/internal/mailbox"
	"github.com/danmuck/mergectl/internal/merge"
	"github.com/danmuck/mergectl/internal/observability"
	"github.com/danmuck/mergectl/internal/server"
	"github.com/danmuck/mergectl/internal/store"
)

func main() {
	cfgPath := flag.String("config", "mergectl.toml", "run config path")
	flag.Parse()

	logging.ConfigureRuntime()
	observability.RegisterMetrics()
	log := logging.Component("mergectl")

	if err := run(*cfgPath, log); err != nil {
		fmt.Fprintf(os.Stderr, "mergectl: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, log zerolog.Logger) error {
	cfg, err := config.LoadRunConfig(path)
	if err != nil {
		return err
	}
	valuesA, err := cfg.A.Values()
	if err != nil {
		return err
	}
	valuesB, err := cfg.B.Values()
	if err != nil {
		return err
	}

	chA, chB := mailbox.NewPair(0)
	rec := coordinator.NewRecorder()

	sinkA := sinkFor(rec, merge.RoleA, cfg.A.Output)
	sinkB := sinkFor(rec, merge.RoleB, cfg.B.Output)
	a := merge.NewWorker(merge.RoleA, store.New(valuesA), chA, sinkA, log)
	b := merge.NewWorker(merge.RoleB, store.New(valuesB), chB, sinkB, log)

	if cfg.Listen != "" {
		srv := server.New(cfg.Listen, func() []server.WorkerStatus {
			return []server.WorkerStatus{workerStatus(a), workerStatus(b)}
		})
		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("status server failed")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	coord := coordinator.New(log, time.Duration(cfg.MaxSeconds)*time.Second)
	report, err := coord.Run(context.Background(), a, b)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func sinkFor(rec *coordinator.Recorder, role merge.Role, output string) merge.Sink {
	if output != "" {
		return coordinator.NewFileSink(output)
	}
	return rec.SinkFor(role)
}

func workerStatus(w *merge.Worker) server.WorkerStatus {
	state, stats := w.Snapshot()
	return server.WorkerStatus{
		Role:  string(w.Role()),
		State: state.String(),
		Mode:  w.Mode().String(),
		Stats: stats,
	}
}
