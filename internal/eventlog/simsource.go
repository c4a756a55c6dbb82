package eventlog

import (
	"context"
	"io"
	"math/rand"
	"sync"
)

// SimConfig tunes the simulated packet source.
type SimConfig struct {
	Packets       int
	DupRate       float64
	CorruptRate   float64
	ReorderWindow int
	Seed          int64
}

// SimSource is a deterministic unreliable source: same seed, same stream.
// Retransmit requests are served before further stream delivery, always with
// a clean copy of the original packet.
type SimSource struct {
	mu      sync.Mutex
	origin  []Packet
	stream  []Packet
	pos     int
	retrans []int
}

func NewSimSource(cfg SimConfig) *SimSource {
	rng := rand.New(rand.NewSource(cfg.Seed))

	origin := make([]Packet, cfg.Packets)
	base := int64(1700000000000)
	for i := range origin {
		payload := make([]byte, 8)
		rng.Read(payload)
		pkt := Packet{Sequence: i, Timestamp: base + int64(i), Payload: payload}
		pkt.Checksum = pkt.ComputeChecksum()
		origin[i] = pkt
	}

	stream := make([]Packet, len(origin))
	copy(stream, origin)

	if cfg.ReorderWindow > 1 {
		for i := range stream {
			j := i + rng.Intn(cfg.ReorderWindow)
			if j < len(stream) {
				stream[i], stream[j] = stream[j], stream[i]
			}
		}
	}

	if cfg.DupRate > 0 {
		withDups := make([]Packet, 0, len(stream))
		for _, pkt := range stream {
			withDups = append(withDups, pkt)
			if rng.Float64() < cfg.DupRate {
				withDups = append(withDups, pkt)
			}
		}
		stream = withDups
	}

	if cfg.CorruptRate > 0 {
		for i := range stream {
			if rng.Float64() < cfg.CorruptRate {
				stream[i].Checksum ^= 0xFFFFFFFF
			}
		}
	}

	return &SimSource{origin: origin, stream: stream}
}

func (s *SimSource) Receive(ctx context.Context) (Packet, error) {
	if err := ctx.Err(); err != nil {
		return Packet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.retrans) > 0 {
		seq := s.retrans[0]
		s.retrans = s.retrans[1:]
		if seq >= 0 && seq < len(s.origin) {
			return s.origin[seq], nil
		}
	}
	if s.pos >= len(s.stream) {
		return Packet{}, io.EOF
	}
	pkt := s.stream[s.pos]
	s.pos++
	return pkt, nil
}

func (s *SimSource) RequestRetransmit(seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retrans = append(s.retrans, seq)
}

func (s *SimSource) TotalPackets() int {
	return len(s.origin)
}
