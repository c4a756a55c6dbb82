// Package merge implements the two-party distributed merge protocol.
//
// Two workers, each holding a private sorted sequence, jointly produce the
// fully merged globally sorted sequence using only message exchange over a
// reliable FIFO channel. Ranges are exchanged first so that disjoint inputs
// skip all per-value coordination; overlapping inputs interleave through
// head-exchange steps with a fixed A/B tie-break on equal heads.
package merge
