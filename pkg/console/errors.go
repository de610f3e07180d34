package console

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("invalid console configuration")
	ErrConnection    = errors.New("console connection failed")
	ErrHandshake     = errors.New("console handshake failed")
	ErrTimeout       = errors.New("timed out waiting for console output")
	ErrStreamClosed  = errors.New("console stream closed")
	ErrNotConnected  = errors.New("console session is not ready")
)

// ErrBufferOverflow means the console printed more unread output than the
// session keeps. The output is lost but the session stays usable.
var ErrBufferOverflow = errors.New("console output exceeded the buffer limit")

// HandshakeError keeps what the console printed before it failed to synchronize
type HandshakeError struct {
	// Stage is the step that failed, "prompt" or "ready"
	Stage string
	// Output is the raw buffered console output, control codes included
	Output string
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("%v while waiting for %s: %v", ErrHandshake, e.Stage, e.Err)
}

func (e *HandshakeError) Is(target error) bool {
	return target == ErrHandshake
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}
