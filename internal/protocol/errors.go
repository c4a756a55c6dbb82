package protocol

import "errors"

var (
	ErrMalformedMessage  = errors.New("protocol: malformed message")
	ErrUnknownType       = errors.New("protocol: unknown message type")
	ErrProtocolViolation = errors.New("protocol: message not valid in current state")
	ErrMessageTooLarge   = errors.New("protocol: message too large")
)
