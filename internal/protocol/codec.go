package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// maxEncodedLen bounds a single encoded message line.
const maxEncodedLen = 4 * 1024

// Encode renders a message as one JSON line, validating shape first.
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Values == nil {
		m.Values = []int64{}
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return append(payload, '\n'), nil
}

// Decode parses one encoded message and validates its shape.
func Decode(data []byte) (Message, error) {
	if len(data) > maxEncodedLen {
		return Message{}, ErrMessageTooLarge
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.Values == nil {
		m.Values = []int64{}
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Write encodes one message to w.
func Write(w io.Writer, m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return nil
}

// Read consumes one message line from r.
func Read(r *bufio.Reader) (Message, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return Message{}, err
	}
	return Decode(line)
}
