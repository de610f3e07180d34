package rpc

import (
	"errors"
	"fmt"

	"agbridge/pkg/javaser"
)

var (
	ErrProtocol = errors.New("no decodable payload in console output")
	ErrDecode   = errors.New("failed to decode console payload")
)

// ProtocolError is returned when a wrapped call printed no payload line
type ProtocolError struct {
	// Preview is the start of the captured console text
	Preview string
	Reason  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%v: %s on %q", ErrProtocol, e.Reason, e.Preview)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// DecodeError is returned when a payload was found but is not a valid
// serialization stream
type DecodeError struct {
	Preview string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: %v raised on %q", ErrDecode, e.Err, e.Preview)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Offset reports where the codec stopped, -1 when the payload was not valid base64
func (e *DecodeError) Offset() int {
	var dErr *javaser.DecodeError
	if errors.As(e.Err, &dErr) {
		return dErr.Offset
	}
	return -1
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
