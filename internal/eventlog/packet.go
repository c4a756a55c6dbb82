// Package eventlog writes an append-only, sequence-ordered event log from an
// unreliable packet source: duplicates are discarded, corrupted packets and
// gaps trigger retransmit requests, and state is recovered from the log on
// restart.
package eventlog

import (
	"context"
	"encoding/binary"
	"hash/crc32"
)

// Packet is one event from the source.
type Packet struct {
	Sequence  int
	Timestamp int64
	Payload   []byte
	Checksum  uint32
}

// ComputeChecksum covers sequence, timestamp, and payload.
func (p Packet) ComputeChecksum() uint32 {
	var hdr [16]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(p.Sequence))
	binary.BigEndian.PutUint64(hdr[8:16], uint64(p.Timestamp))
	crc := crc32.ChecksumIEEE(hdr[:])
	return crc32.Update(crc, crc32.IEEETable, p.Payload)
}

// Verify reports whether the carried checksum matches the content.
func (p Packet) Verify() bool {
	return p.Checksum == p.ComputeChecksum()
}

// Source delivers packets and accepts retransmit requests.
// Receive returns io.EOF once the stream has terminated.
type Source interface {
	Receive(ctx context.Context) (Packet, error)
	RequestRetransmit(seq int)
}

// Sized is implemented by sources that know their total packet count; the
// logger uses it to count trailing gaps at finalization.
type Sized interface {
	TotalPackets() int
}
