package merge

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/danmuck/mergectl/internal/observability"
	"github.com/danmuck/mergectl/internal/protocol"
	"github.com/danmuck/mergectl/internal/store"
)

// Role identifies one of the two protocol endpoints. It is the only
// asymmetric input: role A wins the equal-head tie-break.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
)

// ChunkLimit is the maximum number of values a worker may emit in one step.
const ChunkLimit = 10

// Channel is the reliable ordered transport between the two workers.
// Messages arrive in send order, never dropped, duplicated, or reordered.
// Transport failures are surfaced to the caller as-is; the protocol has no
// retry of its own.
type Channel interface {
	Send(msg protocol.Message) error
	Receive(ctx context.Context) (protocol.Message, error)
}

// Sink receives emitted values, ascending across all calls from one worker.
type Sink interface {
	Emit(values []int64) error
}

// Stats counts work performed by one worker during a run.
type Stats struct {
	Comparisons      int `json:"comparisons"`
	MessagesSent     int `json:"messages_sent"`
	MessagesReceived int `json:"messages_received"`
	ValuesEmitted    int `json:"values_emitted"`
	OverlapSteps     int `json:"overlap_steps"`
	HeadsSent        int `json:"heads_sent"`
}

type headState int

const (
	headUnknown headState = iota
	headPresent
	headAbsent
)

// Worker drives one side of the merge protocol to completion. A Worker is
// single-use: Run may be called once per instance.
type Worker struct {
	role  Role
	store *store.Store
	ch    Channel
	sink  Sink
	log   zerolog.Logger

	ownRange     store.Range
	partnerRange store.Range
	mode         Mode

	partnerHead      int64
	partnerHeadState headState
	partnerDone      bool

	lastHead     int64
	lastHeadSent bool
	doneSent     bool

	mu    sync.Mutex
	state State
	stats Stats
}

// NewWorker wires a worker to its store, channel, and sink.
func NewWorker(role Role, st *store.Store, ch Channel, sink Sink, log zerolog.Logger) *Worker {
	return &Worker{
		role:  role,
		store: st,
		ch:    ch,
		sink:  sink,
		log:   log.With().Str("role", string(role)).Logger(),
		state: StateAwaitingRange,
	}
}

// Run executes the protocol until both sides have exchanged DONE.
// Any protocol violation, malformed message, or channel failure aborts the
// run; there is no partial-success mode.
func (w *Worker) Run(ctx context.Context) error {
	w.ownRange = w.store.Range()
	if err := w.send(protocol.RangeMessage(
		w.ownRange.Empty, w.ownRange.Min, w.ownRange.Max, w.ownRange.Count)); err != nil {
		return err
	}

	msg, err := w.receive(ctx)
	if err != nil {
		return err
	}
	if msg.Type != protocol.TypeRange {
		return fmt.Errorf("%w: got %s while awaiting RANGE", protocol.ErrProtocolViolation, msg.Type)
	}
	w.applyRange(msg)

	w.mu.Lock()
	w.mode = Classify(w.ownRange, w.partnerRange)
	w.mu.Unlock()
	w.setState(StateModeSelected)
	w.log.Debug().
		Stringer("mode", w.mode).
		Int("own_count", w.ownRange.Count).
		Int("partner_count", w.partnerRange.Count).
		Msg("mode selected")

	switch w.mode {
	case ModeMeFirst:
		err = w.runMeFirst(ctx)
	case ModePartnerFirst:
		err = w.runPartnerFirst(ctx)
	default:
		err = w.runOverlap(ctx)
	}
	if err != nil {
		return err
	}

	w.setState(StateTerminated)
	w.log.Debug().Msg("terminated")
	return nil
}

// runMeFirst emits the whole store, signals DONE, then waits for the
// partner's DONE. No HEAD messages are exchanged in this mode.
func (w *Worker) runMeFirst(ctx context.Context) error {
	w.setState(StateEmitting)
	for !w.store.Exhausted() {
		if err := w.emit(w.store.TakeChunk(ChunkLimit)); err != nil {
			return err
		}
	}
	if err := w.sendDone(); err != nil {
		return err
	}
	return w.awaitPartnerDone(ctx)
}

// runPartnerFirst waits for the partner's DONE, then emits the whole store
// and signals DONE. An already-empty store short-circuits to DONE first so
// that two empty workers cannot wait on each other.
func (w *Worker) runPartnerFirst(ctx context.Context) error {
	if w.store.Exhausted() {
		if err := w.sendDone(); err != nil {
			return err
		}
		return w.awaitPartnerDone(ctx)
	}

	w.setState(StateWaiting)
	if err := w.awaitPartnerDone(ctx); err != nil {
		return err
	}

	w.setState(StateEmitting)
	for !w.store.Exhausted() {
		if err := w.emit(w.store.TakeChunk(ChunkLimit)); err != nil {
			return err
		}
	}
	return w.sendDone()
}

// runOverlap interleaves emission through head-exchange steps. Each pass
// either emits a chunk, sends DONE, or consumes one partner message; the
// equal-head tie-break guarantees at least one side can always act.
func (w *Worker) runOverlap(ctx context.Context) error {
	w.setState(StateExchangingHeads)
	if err := w.announceHead(); err != nil {
		return err
	}

	// Safety valve against a stalled or violating partner. A correct run
	// emits at least one value per step and sends a bounded message count,
	// so the iteration total stays well under this limit.
	limit := 4*(w.ownRange.Count+w.partnerRange.Count) + 64
	for iter := 0; ; iter++ {
		if iter > limit {
			return fmt.Errorf("%w: no joint progress after %d iterations",
				protocol.ErrProtocolViolation, iter)
		}

		if w.doneSent && w.partnerDone {
			return nil
		}

		if w.store.Exhausted() {
			if !w.doneSent {
				if err := w.sendDone(); err != nil {
					return err
				}
				continue
			}
			// Drain trailing HEADs until the partner's DONE arrives.
			if err := w.receiveOverlap(ctx); err != nil {
				return err
			}
			continue
		}

		if w.partnerHeadState == headUnknown && !w.partnerDone {
			if err := w.receiveOverlap(ctx); err != nil {
				return err
			}
			continue
		}

		chunk := w.takeEligible()
		if len(chunk) > 0 {
			w.recordStep()
			if err := w.emit(chunk); err != nil {
				return err
			}
			if err := w.announceHead(); err != nil {
				return err
			}
			continue
		}

		// Not eligible: the partner holds the smaller head and will advance.
		if err := w.receiveOverlap(ctx); err != nil {
			return err
		}
	}
}

// takeEligible pops up to ChunkLimit values that this worker may emit under
// the current partner head. With the partner absent the whole chunk is free;
// otherwise values must compare below the partner head, or equal while
// holding role A.
func (w *Worker) takeEligible() []int64 {
	if w.partnerAbsent() {
		return w.store.TakeChunk(ChunkLimit)
	}
	out := make([]int64, 0, ChunkLimit)
	for len(out) < ChunkLimit {
		head, ok := w.store.Head()
		if !ok {
			break
		}
		w.recordComparison()
		if head < w.partnerHead || (head == w.partnerHead && w.role == RoleA) {
			out = append(out, head)
			w.store.Advance()
			continue
		}
		break
	}
	return out
}

// announceHead sends the current head, or DONE once exhausted. A HEAD equal
// to the last one sent is suppressed: the partner's cached copy is already
// accurate, and redundant sends would cost messages without carrying news.
func (w *Worker) announceHead() error {
	head, ok := w.store.Head()
	if !ok {
		return w.sendDone()
	}
	if w.lastHeadSent && head == w.lastHead {
		return nil
	}
	if err := w.send(protocol.HeadMessage(head)); err != nil {
		return err
	}
	w.lastHead = head
	w.lastHeadSent = true
	w.mu.Lock()
	w.stats.HeadsSent++
	w.mu.Unlock()
	return nil
}

// receiveOverlap consumes one partner message during head exchange.
func (w *Worker) receiveOverlap(ctx context.Context) error {
	msg, err := w.receive(ctx)
	if err != nil {
		return err
	}
	switch msg.Type {
	case protocol.TypeHead:
		if v, ok := msg.Head(); ok {
			w.partnerHead = v
			w.partnerHeadState = headPresent
		} else {
			w.partnerHeadState = headAbsent
		}
	case protocol.TypeDone:
		w.partnerDone = true
		w.partnerHeadState = headAbsent
	default:
		return fmt.Errorf("%w: got %s during head exchange", protocol.ErrProtocolViolation, msg.Type)
	}
	return nil
}

// awaitPartnerDone blocks until the partner's DONE. Only DONE is valid here.
func (w *Worker) awaitPartnerDone(ctx context.Context) error {
	for !w.partnerDone {
		msg, err := w.receive(ctx)
		if err != nil {
			return err
		}
		if msg.Type != protocol.TypeDone {
			return fmt.Errorf("%w: got %s while awaiting DONE", protocol.ErrProtocolViolation, msg.Type)
		}
		w.partnerDone = true
	}
	return nil
}

// sendDone transmits DONE exactly once per run.
func (w *Worker) sendDone() error {
	if w.doneSent {
		return nil
	}
	if err := w.send(protocol.DoneMessage()); err != nil {
		return err
	}
	w.doneSent = true
	w.setState(StateDoneSent)
	return nil
}

func (w *Worker) applyRange(msg protocol.Message) {
	if len(msg.Values) == 0 {
		w.partnerRange = store.Range{Empty: true}
		return
	}
	w.partnerRange = store.Range{
		Min:   msg.Values[0],
		Max:   msg.Values[1],
		Count: int(msg.Values[2]),
	}
}

// partnerAbsent reports whether the partner can no longer block emission:
// it has signalled DONE or announced an absent head.
func (w *Worker) partnerAbsent() bool {
	return w.partnerDone || w.partnerHeadState == headAbsent
}

func (w *Worker) send(msg protocol.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := w.ch.Send(msg); err != nil {
		return fmt.Errorf("merge: send %s: %w", msg.Type, err)
	}
	w.mu.Lock()
	w.stats.MessagesSent++
	w.mu.Unlock()
	observability.RecordProtocolMessage(string(w.role), "sent", msg.Type)
	w.log.Trace().Str("type", msg.Type).Ints64("values", msg.Values).Msg("message sent")
	return nil
}

func (w *Worker) receive(ctx context.Context) (protocol.Message, error) {
	msg, err := w.ch.Receive(ctx)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("merge: receive: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return protocol.Message{}, err
	}
	w.mu.Lock()
	w.stats.MessagesReceived++
	w.mu.Unlock()
	observability.RecordProtocolMessage(string(w.role), "received", msg.Type)
	w.log.Trace().Str("type", msg.Type).Ints64("values", msg.Values).Msg("message received")
	return msg, nil
}

func (w *Worker) emit(values []int64) error {
	if len(values) == 0 {
		return nil
	}
	if err := w.sink.Emit(values); err != nil {
		return fmt.Errorf("merge: emit: %w", err)
	}
	w.mu.Lock()
	w.stats.ValuesEmitted += len(values)
	w.mu.Unlock()
	observability.RecordValuesEmitted(string(w.role), len(values))
	return nil
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) recordStep() {
	w.mu.Lock()
	w.stats.OverlapSteps++
	w.mu.Unlock()
	observability.RecordOverlapStep(string(w.role))
}

func (w *Worker) recordComparison() {
	w.mu.Lock()
	w.stats.Comparisons++
	w.mu.Unlock()
}

// Role returns the worker's fixed identity.
func (w *Worker) Role() Role {
	return w.role
}

// Mode returns the mode selected for this run, or ModeUnknown before the
// RANGE exchange completes.
func (w *Worker) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// Snapshot returns the current state and a copy of the stats. Safe to call
// from other goroutines while Run is in flight.
func (w *Worker) Snapshot() (State, Stats) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.stats
}
