package link

import (
	"errors"
	"fmt"
)

var (
	// ErrOverflow indicates the receive buffer filled up before a frame completed.
	ErrOverflow = &FramingError{Reason: "receive buffer overflow"}
	// ErrNoStartMarker indicates too many bytes arrived without a start marker.
	ErrNoStartMarker = &FramingError{Reason: "no start marker"}
	// ErrRestarted indicates a start marker arrived inside an unfinished frame.
	ErrRestarted = &FramingError{Reason: "frame restarted"}
	// ErrFrameTooLarge indicates a complete frame doesn't fit a queue slot.
	ErrFrameTooLarge = &FramingError{Reason: "frame too large"}

	// ErrQueueFull indicates a frame is dropped because the queue is full.
	ErrQueueFull = errors.New("queue full")
)

// FramingError reports bytes dropped by the Assembler.
// It is never fatal: the Assembler has already resynchronized.
type FramingError struct {
	Reason string
}

// Error implements error.
func (e *FramingError) Error() string {
	return "framing error: " + e.Reason
}

// DecodeReason classifies a DecodeError.
type DecodeReason int

// Decode failures.
const (
	MalformedStart DecodeReason = iota + 1
	MalformedEnd
	ChecksumMismatch
)

// String implements fmt.Stringer.
func (r DecodeReason) String() string {
	switch r {
	case MalformedStart:
		return "malformed start"
	case MalformedEnd:
		return "malformed end"
	case ChecksumMismatch:
		return "checksum mismatch"
	}
	return fmt.Sprintf("reason %d", int(r))
}

// DecodeError is returned by Decode when a frame is rejected.
type DecodeError struct {
	Reason   DecodeReason
	Expected int
	Actual   string
}

// Error implements error.
func (e *DecodeError) Error() string {
	if e.Reason == ChecksumMismatch {
		return fmt.Sprintf("decode error: checksum mismatch (expect %d, got %q)", e.Expected, e.Actual)
	}
	return "decode error: " + e.Reason.String()
}

// IsDecodeReason checks if err is a DecodeError with the given reason.
func IsDecodeReason(err error, reason DecodeReason) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Reason == reason
}
