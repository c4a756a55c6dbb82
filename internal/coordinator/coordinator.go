// Package coordinator supervises a full two-worker merge run and collects
// the run report. The workers stay fully independent; the coordinator only
// starts them, bounds the run, and reads their stats snapshots.
package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/mergectl/internal/mailbox"
	"github.com/danmuck/mergectl/internal/merge"
	"github.com/danmuck/mergectl/internal/store"
)

// RunReport summarizes one completed (or failed) merge run.
type RunReport struct {
	RunID      string      `json:"run_id"`
	Success    bool        `json:"success"`
	ModeA      string      `json:"mode_a"`
	ModeB      string      `json:"mode_b"`
	DurationMS int64       `json:"duration_ms"`
	StatsA     merge.Stats `json:"stats_a"`
	StatsB     merge.Stats `json:"stats_b"`
	Error      string      `json:"error,omitempty"`
}

// Coordinator runs worker pairs to completion under a deadline.
type Coordinator struct {
	log     zerolog.Logger
	timeout time.Duration
}

// New returns a coordinator. A non-positive timeout means no deadline beyond
// the caller's context.
func New(log zerolog.Logger, timeout time.Duration) *Coordinator {
	return &Coordinator{log: log, timeout: timeout}
}

// Run executes both workers concurrently until both terminate or either
// fails. Either both sides reach TERMINATED with full output, or the run is
// failed; there is no partial success.
func (c *Coordinator) Run(ctx context.Context, a, b *merge.Worker) (RunReport, error) {
	runID := uuid.NewString()
	log := c.log.With().Str("run_id", runID).Logger()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error { return b.Run(gctx) })
	err := g.Wait()

	_, statsA := a.Snapshot()
	_, statsB := b.Snapshot()
	report := RunReport{
		RunID:      runID,
		Success:    err == nil,
		ModeA:      a.Mode().String(),
		ModeB:      b.Mode().String(),
		DurationMS: time.Since(start).Milliseconds(),
		StatsA:     statsA,
		StatsB:     statsB,
	}
	if err != nil {
		report.Error = err.Error()
		log.Error().Err(err).Msg("merge run failed")
		return report, err
	}
	log.Info().
		Str("mode_a", report.ModeA).
		Str("mode_b", report.ModeB).
		Int("emitted_a", statsA.ValuesEmitted).
		Int("emitted_b", statsB.ValuesEmitted).
		Int64("duration_ms", report.DurationMS).
		Msg("merge run complete")
	return report, nil
}

// RunValues merges two in-memory datasets over an in-memory pair and returns
// the report plus the reassembled global sequence.
func (c *Coordinator) RunValues(ctx context.Context, valuesA, valuesB []int64) (RunReport, []int64, error) {
	chA, chB := mailbox.NewPair(0)
	rec := NewRecorder()
	a := merge.NewWorker(merge.RoleA, store.New(valuesA), chA, rec.SinkFor(merge.RoleA), c.log)
	b := merge.NewWorker(merge.RoleB, store.New(valuesB), chB, rec.SinkFor(merge.RoleB), c.log)
	report, err := c.Run(ctx, a, b)
	return report, rec.Merged(), err
}
