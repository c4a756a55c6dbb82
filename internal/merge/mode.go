package merge

import "github.com/danmuck/mergectl/internal/store"

// Mode is the merge strategy derived from the two range summaries. It is
// assigned once per run, after both RANGE messages are observed.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeMeFirst
	ModePartnerFirst
	ModeOverlap
)

func (m Mode) String() string {
	switch m {
	case ModeMeFirst:
		return "ME_FIRST"
	case ModePartnerFirst:
		return "PARTNER_FIRST"
	case ModeOverlap:
		return "OVERLAP"
	default:
		return "UNKNOWN"
	}
}

// Classify maps a pair of range summaries to a merge mode. Total and
// deterministic: every input pair yields exactly one mode.
//
// Range comparisons are strict: an exact shared endpoint classifies OVERLAP,
// where the equal-head tie-break orders emission. A worker with an empty
// store behaves as PARTNER_FIRST and finishes trivially.
func Classify(own, partner store.Range) Mode {
	if own.Empty {
		return ModePartnerFirst
	}
	if partner.Empty {
		return ModeMeFirst
	}
	if own.Max < partner.Min {
		return ModeMeFirst
	}
	if partner.Max < own.Min {
		return ModePartnerFirst
	}
	return ModeOverlap
}
