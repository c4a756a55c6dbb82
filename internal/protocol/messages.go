package protocol

import "fmt"

// Message types. Wire type strings are at most 5 bytes.
const (
	TypeRange = "RANGE"
	TypeHead  = "HEAD"
	TypeDone  = "DONE"
)

const (
	// MaxTypeLen bounds the wire type string.
	MaxTypeLen = 5
	// MaxValues bounds the payload of any single message.
	MaxValues = 10
)

// Message is one immutable protocol envelope. An empty Values slice is the
// single absent/empty/finished sentinel shared by all three types.
type Message struct {
	Type   string  `json:"type"`
	Values []int64 `json:"values"`
}

// RangeMessage summarizes a full store as [min, max, count], or [] when the
// store is empty.
func RangeMessage(empty bool, min, max int64, count int) Message {
	if empty {
		return Message{Type: TypeRange, Values: []int64{}}
	}
	return Message{Type: TypeRange, Values: []int64{min, max, int64(count)}}
}

// HeadMessage announces the sender's current head value.
func HeadMessage(head int64) Message {
	return Message{Type: TypeHead, Values: []int64{head}}
}

// HeadAbsent announces that the sender has no head left.
func HeadAbsent() Message {
	return Message{Type: TypeHead, Values: []int64{}}
}

// DoneMessage signals local completion. Sent exactly once per worker per run.
func DoneMessage() Message {
	return Message{Type: TypeDone, Values: []int64{}}
}

// Validate checks the envelope against the per-type payload shape rules.
func (m Message) Validate() error {
	if len(m.Type) > MaxTypeLen {
		return fmt.Errorf("%w: type %q exceeds %d bytes", ErrMalformedMessage, m.Type, MaxTypeLen)
	}
	if len(m.Values) > MaxValues {
		return fmt.Errorf("%w: %d values exceeds %d", ErrMessageTooLarge, len(m.Values), MaxValues)
	}
	switch m.Type {
	case TypeRange:
		if len(m.Values) != 0 && len(m.Values) != 3 {
			return fmt.Errorf("%w: RANGE payload must be [] or [min,max,count], got %d values",
				ErrMalformedMessage, len(m.Values))
		}
		if len(m.Values) == 3 {
			if m.Values[2] <= 0 {
				return fmt.Errorf("%w: RANGE count must be positive, got %d", ErrMalformedMessage, m.Values[2])
			}
			if m.Values[0] > m.Values[1] {
				return fmt.Errorf("%w: RANGE min %d exceeds max %d", ErrMalformedMessage, m.Values[0], m.Values[1])
			}
		}
	case TypeHead:
		if len(m.Values) > 1 {
			return fmt.Errorf("%w: HEAD payload must be [] or [value], got %d values",
				ErrMalformedMessage, len(m.Values))
		}
	case TypeDone:
		if len(m.Values) != 0 {
			return fmt.Errorf("%w: DONE payload must be empty, got %d values",
				ErrMalformedMessage, len(m.Values))
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return nil
}

// Head returns the announced head value and whether one is present.
// Only meaningful for HEAD messages.
func (m Message) Head() (int64, bool) {
	if m.Type != TypeHead || len(m.Values) == 0 {
		return 0, false
	}
	return m.Values[0], true
}
