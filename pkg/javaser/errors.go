package javaser

import (
	"errors"
	"fmt"
)

var (
	ErrBadMagic          = errors.New("not a java serialization stream")
	ErrTruncated         = errors.New("truncated stream")
	ErrUnsupportedMarker = errors.New("unsupported type marker")
	ErrDepthExceeded     = errors.New("nesting depth exceeded")
	ErrCyclicReference   = errors.New("cyclic back-reference")
	ErrBadHandle         = errors.New("unknown back-reference handle")
	ErrMalformed         = errors.New("malformed content")
)

// DecodeError reports where in the stream decoding stopped
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("javaser: offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
