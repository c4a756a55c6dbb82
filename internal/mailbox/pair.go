package mailbox

import (
	"context"
	"errors"
	"sync"

	"github.com/danmuck/mergectl/internal/protocol"
)

var ErrClosed = errors.New("mailbox: endpoint closed")

const defaultPairBuffer = 16

// Pair is one endpoint of an in-memory duplex channel.
type Pair struct {
	out       chan protocol.Message
	in        chan protocol.Message
	closeOnce sync.Once
}

// NewPair returns both endpoints of an in-memory duplex channel. The buffer
// must hold at least one message so both sides can send their opening RANGE
// before either receives.
func NewPair(buffer int) (*Pair, *Pair) {
	if buffer < 1 {
		buffer = defaultPairBuffer
	}
	ab := make(chan protocol.Message, buffer)
	ba := make(chan protocol.Message, buffer)
	return &Pair{out: ab, in: ba}, &Pair{out: ba, in: ab}
}

func (p *Pair) Send(msg protocol.Message) error {
	p.out <- msg
	return nil
}

func (p *Pair) Receive(ctx context.Context) (protocol.Message, error) {
	select {
	case msg, ok := <-p.in:
		if !ok {
			return protocol.Message{}, ErrClosed
		}
		return msg, nil
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	}
}

// Close closes this endpoint's outgoing direction. The partner's pending
// Receive observes ErrClosed once the buffer drains.
func (p *Pair) Close() error {
	p.closeOnce.Do(func() { close(p.out) })
	return nil
}
