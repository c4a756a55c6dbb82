package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/mergectl/internal/testutil/testlog"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	msgs := []Message{
		RangeMessage(false, -3, 40, 7),
		RangeMessage(true, 0, 0, 0),
		HeadMessage(12),
		HeadAbsent(),
		DoneMessage(),
	}
	for _, in := range msgs {
		data, err := Encode(in)
		if err != nil {
			t.Fatalf("encode %s: %v", in.Type, err)
		}
		out, err := Decode(bytes.TrimSpace(data))
		if err != nil {
			t.Fatalf("decode %s: %v", in.Type, err)
		}
		if out.Type != in.Type || len(out.Values) != len(in.Values) {
			t.Fatalf("round trip mismatch: in=%+v out=%+v", in, out)
		}
		for i := range in.Values {
			if out.Values[i] != in.Values[i] {
				t.Fatalf("value %d mismatch: in=%+v out=%+v", i, in, out)
			}
		}
	}
}

func TestValidateRejectsUnknownType(t *testing.T) {
	testlog.Start(t)
	err := Message{Type: "PING", Values: []int64{}}.Validate()
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestValidateRejectsBadRangeShape(t *testing.T) {
	testlog.Start(t)
	cases := []Message{
		{Type: TypeRange, Values: []int64{1, 2}},
		{Type: TypeRange, Values: []int64{1, 2, 0}},
		{Type: TypeRange, Values: []int64{9, 2, 3}},
	}
	for _, msg := range cases {
		if err := msg.Validate(); !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("expected ErrMalformedMessage for %v, got %v", msg.Values, err)
		}
	}
}

func TestValidateRejectsNonEmptyDone(t *testing.T) {
	testlog.Start(t)
	err := Message{Type: TypeDone, Values: []int64{1}}.Validate()
	if !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage, got %v", err)
	}
}

func TestValidateRejectsOversizedPayload(t *testing.T) {
	testlog.Start(t)
	vals := make([]int64, MaxValues+1)
	err := Message{Type: TypeHead, Values: vals}.Validate()
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestDecodeMalformedJSONIsDeterministic(t *testing.T) {
	testlog.Start(t)
	if _, err := Decode([]byte("{not json")); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage, got %v", err)
	}
}

func TestReadWriteStream(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := Write(&buf, HeadMessage(99)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Write(&buf, DoneMessage()); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := bufio.NewReader(&buf)
	first, err := Read(r)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if head, ok := first.Head(); !ok || head != 99 {
		t.Fatalf("unexpected first message: %+v", first)
	}
	second, err := Read(r)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if second.Type != TypeDone {
		t.Fatalf("unexpected second message: %+v", second)
	}
}
