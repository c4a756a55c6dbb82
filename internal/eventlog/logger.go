package eventlog

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Stats reports logging performance for one run.
type Stats struct {
	PacketsReceived     int `json:"packets_received"`
	PacketsWritten      int `json:"packets_written"`
	DuplicatesDiscarded int `json:"duplicates_discarded"`
	CorruptedPackets    int `json:"corrupted_packets"`
	RetransmitRequests  int `json:"retransmit_requests"`
	RetransmitsReceived int `json:"retransmits_received"`
	Inversions          int `json:"inversions"`
	Gaps                int `json:"gaps"`
	BufferFlushes       int `json:"buffer_flushes"`
	FinalBufferSize     int `json:"final_buffer_size"`
}

// Logger buffers out-of-order packets and writes contiguous runs to an
// append-only log. Restarting against an existing log resumes where the
// previous run stopped.
type Logger struct {
	source     Source
	path       string
	bufferSize int
	log        zerolog.Logger

	buffer      []Packet
	seen        map[int]struct{}
	lastWritten int
	pending     map[int]struct{}
	expected    int
	gapWait     int
	gapPatience int

	stats Stats
}

// New builds a logger over source, recovering state from an existing log at
// path if one is present.
func New(source Source, path string, bufferSize int, log zerolog.Logger) (*Logger, error) {
	if bufferSize < 1 {
		bufferSize = 30
	}
	l := &Logger{
		source:      source,
		path:        path,
		bufferSize:  bufferSize,
		log:         log,
		seen:        make(map[int]struct{}),
		lastWritten: -1,
		pending:     make(map[int]struct{}),
		gapPatience: max(5, bufferSize/2),
	}
	if err := l.recover(); err != nil {
		return nil, err
	}
	return l, nil
}

// Run consumes the source until it terminates, then finalizes the log.
func (l *Logger) Run(ctx context.Context) (Stats, error) {
	for {
		pkt, err := l.source.Receive(ctx)
		if errors.Is(err, io.EOF) {
			if err := l.finalize(); err != nil {
				return l.stats, err
			}
			return l.stats, nil
		}
		if err != nil {
			return l.stats, fmt.Errorf("eventlog: receive: %w", err)
		}

		l.stats.PacketsReceived++
		l.handlePacket(pkt)

		if l.shouldFlush() {
			if err := l.flush(); err != nil {
				return l.stats, err
			}
		}
	}
}

func (l *Logger) handlePacket(pkt Packet) {
	if !pkt.Verify() {
		l.stats.CorruptedPackets++
		l.requestRetransmit(pkt.Sequence)
		return
	}

	if _, ok := l.seen[pkt.Sequence]; ok {
		l.stats.DuplicatesDiscarded++
		return
	}
	for _, buffered := range l.buffer {
		if buffered.Sequence == pkt.Sequence {
			l.stats.DuplicatesDiscarded++
			return
		}
	}

	if _, ok := l.pending[pkt.Sequence]; ok {
		l.stats.RetransmitsReceived++
	}

	l.buffer = append(l.buffer, pkt)

	if l.bufferHas(l.expected) {
		l.gapWait = 0
		return
	}
	l.gapWait++
	if l.gapWait >= l.gapPatience {
		l.requestRetransmit(l.expected)
		l.gapWait = 0
	}
}

func (l *Logger) shouldFlush() bool {
	return l.bufferHas(l.expected) || len(l.buffer) >= l.bufferSize
}

// flush writes the longest contiguous run starting at the expected sequence.
// A full buffer stuck behind a gap force-writes one packet so the run cannot
// stall forever on a lost sequence.
func (l *Logger) flush() error {
	if len(l.buffer) == 0 {
		return nil
	}
	sort.Slice(l.buffer, func(i, j int) bool {
		return l.buffer[i].Sequence < l.buffer[j].Sequence
	})

	wrote := false
	for len(l.buffer) > 0 && l.buffer[0].Sequence == l.expected {
		pkt := l.buffer[0]
		l.buffer = l.buffer[1:]
		if err := l.appendPacket(pkt); err != nil {
			return err
		}
		wrote = true
		l.expected = l.lastWritten + 1
		l.gapWait = 0
	}
	if wrote {
		l.stats.BufferFlushes++
	}

	if len(l.buffer) >= l.bufferSize {
		pkt := l.buffer[0]
		l.buffer = l.buffer[1:]
		if err := l.appendPacket(pkt); err != nil {
			return err
		}
		l.stats.BufferFlushes++
		l.expected = l.lastWritten + 1
	}
	return nil
}

// finalize drains the buffer in sequence order and counts residual gaps.
func (l *Logger) finalize() error {
	if l.shouldFlush() {
		if err := l.flush(); err != nil {
			return err
		}
	}
	if len(l.buffer) > 0 {
		sort.Slice(l.buffer, func(i, j int) bool {
			return l.buffer[i].Sequence < l.buffer[j].Sequence
		})
		for _, pkt := range l.buffer {
			if err := l.appendPacket(pkt); err != nil {
				return err
			}
		}
		l.buffer = nil
		l.stats.BufferFlushes++
	}

	l.stats.FinalBufferSize = 0
	l.stats.Gaps = l.computeGaps()
	l.log.Info().
		Int("written", l.stats.PacketsWritten).
		Int("gaps", l.stats.Gaps).
		Int("inversions", l.stats.Inversions).
		Msg("event log finalized")
	return nil
}

// recover rebuilds seen/last-written state from the append-only log.
func (l *Logger) recover() error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.expected = 0
			return nil
		}
		return fmt.Errorf("eventlog: open %s: %w", l.path, err)
	}
	defer f.Close()

	maxSeq := -1
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 4)
		if len(parts) < 4 {
			continue
		}
		seq, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		l.seen[seq] = struct{}{}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("eventlog: recover %s: %w", l.path, err)
	}

	l.lastWritten = maxSeq
	l.expected = maxSeq + 1
	l.gapWait = 0
	if maxSeq >= 0 {
		l.log.Info().Int("last_written", maxSeq).Msg("recovered from existing log")
	}
	return nil
}

func (l *Logger) requestRetransmit(seq int) {
	if seq < 0 {
		return
	}
	if _, ok := l.seen[seq]; ok {
		return
	}
	if _, ok := l.pending[seq]; ok {
		return
	}
	l.source.RequestRetransmit(seq)
	l.pending[seq] = struct{}{}
	l.stats.RetransmitRequests++
}

func (l *Logger) appendPacket(pkt Packet) error {
	status := "OK"
	if _, ok := l.pending[pkt.Sequence]; ok {
		status = "RETRANSMIT"
	} else if pkt.Sequence < l.lastWritten {
		status = "LATE"
	}
	if pkt.Sequence < l.lastWritten {
		l.stats.Inversions++
	}

	line := fmt.Sprintf("%d,%d,%s,%s\n",
		pkt.Sequence, pkt.Timestamp, hex.EncodeToString(pkt.Payload), status)

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("eventlog: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("eventlog: open %s: %w", l.path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("eventlog: append %s: %w", l.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("eventlog: sync %s: %w", l.path, err)
	}

	l.seen[pkt.Sequence] = struct{}{}
	if pkt.Sequence > l.lastWritten {
		l.lastWritten = pkt.Sequence
	}
	delete(l.pending, pkt.Sequence)
	l.stats.PacketsWritten++
	return nil
}

func (l *Logger) computeGaps() int {
	if l.lastWritten < 0 {
		return 0
	}
	upper := l.lastWritten
	if sized, ok := l.source.(Sized); ok && sized.TotalPackets() > 0 {
		if sized.TotalPackets()-1 > upper {
			upper = sized.TotalPackets() - 1
		}
	}
	gaps := 0
	for seq := 0; seq <= upper; seq++ {
		if _, ok := l.seen[seq]; !ok {
			gaps++
		}
	}
	return gaps
}

func (l *Logger) bufferHas(seq int) bool {
	for _, pkt := range l.buffer {
		if pkt.Sequence == seq {
			return true
		}
	}
	return false
}
