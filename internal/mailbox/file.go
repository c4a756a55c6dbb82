package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"github.com/danmuck/mergectl/internal/protocol"
)

var ErrSendTimeout = errors.New("mailbox: send timeout waiting for slot")

const (
	defaultPollInterval = 10 * time.Millisecond
	defaultSendTimeout  = 30 * time.Second
)

// FileOptions tunes dropbox polling behavior.
type FileOptions struct {
	PollInterval time.Duration
	SendTimeout  time.Duration
}

// FileBox is a file-based dropbox channel: each direction is one single-slot
// file. Send waits until the partner has consumed the previous message, then
// writes atomically under a cross-process lock; Receive polls the inbox and
// truncates the slot after consuming. The single slot plus wait-on-send is
// what makes the box reliable and FIFO without any sequence numbers.
type FileBox struct {
	inbox   string
	outbox  string
	inLock  *flock.Flock
	outLock *flock.Flock
	poll    time.Duration
	sendTO  time.Duration
}

// NewFileBox opens a dropbox endpoint reading from inbox and writing to
// outbox. The two workers cross-wire the same pair of paths.
func NewFileBox(inbox, outbox string, opts FileOptions) *FileBox {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	return &FileBox{
		inbox:   inbox,
		outbox:  outbox,
		inLock:  flock.New(inbox + ".lock"),
		outLock: flock.New(outbox + ".lock"),
		poll:    opts.PollInterval,
		sendTO:  opts.SendTimeout,
	}
}

func (b *FileBox) Send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(b.sendTO)
	for {
		wrote, err := b.trySend(data)
		if err != nil {
			return err
		}
		if wrote {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w (%s)", ErrSendTimeout, b.outbox)
		}
		time.Sleep(b.poll)
	}
}

func (b *FileBox) Receive(ctx context.Context) (protocol.Message, error) {
	for {
		msg, ok, err := b.tryReceive()
		if err != nil {
			return protocol.Message{}, err
		}
		if ok {
			return msg, nil
		}
		select {
		case <-ctx.Done():
			return protocol.Message{}, ctx.Err()
		case <-time.After(b.poll):
		}
	}
}

// trySend writes the message if the outbox slot is free. Slot check and
// write happen under the file lock so the partner never observes a torn
// or clobbered message.
func (b *FileBox) trySend(data []byte) (bool, error) {
	if err := b.outLock.Lock(); err != nil {
		return false, fmt.Errorf("mailbox: lock %s: %w", b.outbox, err)
	}
	defer b.outLock.Unlock()

	info, err := os.Stat(b.outbox)
	if err == nil && info.Size() > 0 {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("mailbox: stat %s: %w", b.outbox, err)
	}
	if err := atomic.WriteFile(b.outbox, bytes.NewReader(data)); err != nil {
		return false, fmt.Errorf("mailbox: write %s: %w", b.outbox, err)
	}
	return true, nil
}

func (b *FileBox) tryReceive() (protocol.Message, bool, error) {
	if err := b.inLock.Lock(); err != nil {
		return protocol.Message{}, false, fmt.Errorf("mailbox: lock %s: %w", b.inbox, err)
	}
	defer b.inLock.Unlock()

	data, err := os.ReadFile(b.inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return protocol.Message{}, false, nil
		}
		return protocol.Message{}, false, fmt.Errorf("mailbox: read %s: %w", b.inbox, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return protocol.Message{}, false, nil
	}

	msg, err := protocol.Decode(trimmed)
	if err != nil {
		return protocol.Message{}, false, err
	}

	// Clear the slot so the partner's next Send finds it free.
	if err := atomic.WriteFile(b.inbox, bytes.NewReader(nil)); err != nil {
		return protocol.Message{}, false, fmt.Errorf("mailbox: clear %s: %w", b.inbox, err)
	}
	return msg, true, nil
}
