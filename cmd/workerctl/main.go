package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danmuck/mergectl/internal/config"
	"github.com/danmuck/mergectl/internal/coordinator"
	"github.com/danmuck/mergectl/internal/logging"
	"github.com/danmuck/mergectl/internal/mailbox"
	"github.com/danmuck/mergectl/internal/merge"
	"github.com/danmuck/mergectl/internal/observability"
	"github.com/danmuck/mergectl/internal/store"
)

// workerctl runs a single worker endpoint over file mailboxes, so two
// processes (or hosts sharing a filesystem) can execute a merge without any
// coordinator.
func main() {
	cfgPath := flag.String("config", "worker.toml", "worker config path")
	flag.Parse()

	logging.ConfigureRuntime()
	observability.RegisterMetrics()
	log := logging.Component("workerctl")

	cfg, err := config.LoadWorkerConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "workerctl: %v\n", err)
		os.Exit(1)
	}
	values, err := cfg.Values()
	if err != nil {
		fmt.Fprintf(os.Stderr, "workerctl: %v\n", err)
		os.Exit(1)
	}

	box := mailbox.NewFileBox(cfg.Inbox, cfg.Outbox, mailbox.FileOptions{
		PollInterval: time.Duration(cfg.PollMS) * time.Millisecond,
		SendTimeout:  time.Duration(cfg.SendTimeoutMS) * time.Millisecond,
	})
	worker := merge.NewWorker(merge.Role(cfg.Role), store.New(values), box,
		coordinator.NewFileSink(cfg.Output), log)

	if err := worker.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "workerctl: %v\n", err)
		os.Exit(1)
	}

	_, stats := worker.Snapshot()
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "workerctl: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
