package mailbox

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/mergectl/internal/protocol"
)

const (
	streamMagic    uint32 = 0x4D524745 // "MRGE"
	streamVersion  uint16 = 1
	frameHeaderLen        = 10
)

// Frame type codes.
const (
	frameTypeRange uint16 = 1
	frameTypeHead  uint16 = 2
	frameTypeDone  uint16 = 3
)

var (
	ErrBadMagic      = errors.New("mailbox: bad frame magic")
	ErrBadVersion    = errors.New("mailbox: unsupported frame version")
	ErrBadFrameType  = errors.New("mailbox: unknown frame type")
	ErrFrameTooLarge = errors.New("mailbox: frame value count too large")
)

// Stream frames protocol messages over any reliable byte stream, such as a
// connected socket or pipe. Wire layout, big endian:
//
//	magic u32 | version u16 | type u16 | count u16 | count * 8 value bytes
//
// Receive blocks inside the underlying read; the context is checked only on
// entry. Callers needing hard cancellation should close the stream.
type Stream struct {
	r   io.Reader
	w   io.Writer
	wmu sync.Mutex
}

func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{r: rw, w: rw}
}

func (s *Stream) Send(msg protocol.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	code, err := frameType(msg.Type)
	if err != nil {
		return err
	}

	buf := make([]byte, frameHeaderLen+8*len(msg.Values))
	binary.BigEndian.PutUint32(buf[0:4], streamMagic)
	binary.BigEndian.PutUint16(buf[4:6], streamVersion)
	binary.BigEndian.PutUint16(buf[6:8], code)
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(msg.Values)))
	for i, v := range msg.Values {
		binary.BigEndian.PutUint64(buf[frameHeaderLen+8*i:], uint64(v))
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.w.Write(buf); err != nil {
		return fmt.Errorf("mailbox: write frame: %w", err)
	}
	return nil
}

func (s *Stream) Receive(ctx context.Context) (protocol.Message, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Message{}, err
	}

	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		return protocol.Message{}, fmt.Errorf("mailbox: read frame header: %w", err)
	}
	if binary.BigEndian.Uint32(hdr[0:4]) != streamMagic {
		return protocol.Message{}, ErrBadMagic
	}
	if binary.BigEndian.Uint16(hdr[4:6]) != streamVersion {
		return protocol.Message{}, ErrBadVersion
	}
	msgType, err := messageType(binary.BigEndian.Uint16(hdr[6:8]))
	if err != nil {
		return protocol.Message{}, err
	}
	count := int(binary.BigEndian.Uint16(hdr[8:10]))
	if count > protocol.MaxValues {
		return protocol.Message{}, ErrFrameTooLarge
	}

	values := make([]int64, count)
	if count > 0 {
		body := make([]byte, 8*count)
		if _, err := io.ReadFull(s.r, body); err != nil {
			return protocol.Message{}, fmt.Errorf("mailbox: read frame body: %w", err)
		}
		for i := range values {
			values[i] = int64(binary.BigEndian.Uint64(body[8*i:]))
		}
	}

	msg := protocol.Message{Type: msgType, Values: values}
	if err := msg.Validate(); err != nil {
		return protocol.Message{}, err
	}
	return msg, nil
}

func frameType(msgType string) (uint16, error) {
	switch msgType {
	case protocol.TypeRange:
		return frameTypeRange, nil
	case protocol.TypeHead:
		return frameTypeHead, nil
	case protocol.TypeDone:
		return frameTypeDone, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadFrameType, msgType)
	}
}

func messageType(code uint16) (string, error) {
	switch code {
	case frameTypeRange:
		return protocol.TypeRange, nil
	case frameTypeHead:
		return protocol.TypeHead, nil
	case frameTypeDone:
		return protocol.TypeDone, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrBadFrameType, code)
	}
}
