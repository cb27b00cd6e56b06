package led

import "github.com/pkg/errors"

var (
	// ErrConfig is returned by constructors for an unusable strip geometry or
	// timing. It is never returned once a FrameBuffer exists.
	ErrConfig = errors.New("led: invalid configuration")
	// ErrIndexOutOfRange is what callers that need an error value report for
	// a pixel write the buffer ignored.
	ErrIndexOutOfRange = errors.New("led: pixel index out of range")
	ErrMalformedSymbol = errors.New("led: malformed symbol")
	ErrClosed          = errors.New("led: strip closed")
)

// TransmitError wraps a transport failure during Render. The frame buffer is
// left as it was, so the same frame can be sent again.
type TransmitError struct {
	Err error
}

func (e *TransmitError) Error() string {
	return "led: transmit: " + e.Err.Error()
}

func (e *TransmitError) Unwrap() error { return e.Err }

// Cause lets errors.Cause from github.com/pkg/errors reach the transport error.
func (e *TransmitError) Cause() error { return e.Err }
