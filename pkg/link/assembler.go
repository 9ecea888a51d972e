package link

import "bytes"

// Assembler defaults.
const (
	// RecvBufferSize is the default receive buffer capacity.
	RecvBufferSize = 2048
	// HuntSlack is the number of bytes kept while hunting for a start marker.
	HuntSlack = 100
)

// Assembler extracts frames from a byte stream, one byte at a time.
// The zero value is ready to use with a RecvBufferSize buffer.
type Assembler struct {
	buf     []byte
	n       int
	inFrame bool
}

// NewAssembler creates an Assembler with a receive buffer of size bytes.
func NewAssembler(size int) *Assembler {
	if size < len(StartMarker)+len(EndMarker) {
		size = len(StartMarker) + len(EndMarker)
	}
	return &Assembler{buf: make([]byte, size)}
}

// InFrame indicates a start marker has been seen and the frame is incomplete.
func (a *Assembler) InFrame() bool {
	return a.inFrame
}

// Buffered returns the number of bytes held in the receive buffer.
func (a *Assembler) Buffered() int {
	return a.n
}

// Reset drops all buffered bytes.
func (a *Assembler) Reset() {
	a.n, a.inFrame = 0, false
}

// Feed consumes one byte. When the byte completes a frame, the frame is
// returned; it aliases the receive buffer and is only valid until the
// next call. A non-nil error reports bytes dropped for resynchronization
// and may accompany a nil frame only.
func (a *Assembler) Feed(b byte) (frame []byte, err error) {
	if a.buf == nil {
		a.buf = make([]byte, RecvBufferSize)
	}
	if a.n >= len(a.buf) {
		a.Reset()
		err = ErrOverflow
	}
	a.buf[a.n] = b
	a.n++

	if bytes.HasSuffix(a.buf[:a.n], startMarker) {
		// the latest start marker always wins.
		if a.inFrame && a.n > len(startMarker) && err == nil {
			err = ErrRestarted
		}
		a.shiftTail(len(startMarker))
		a.inFrame = true
		return
	}

	if !a.inFrame {
		if a.n > HuntSlack {
			// keep what may be the head of a start marker.
			a.shiftTail(len(startMarker) - 1)
			if err == nil {
				err = ErrNoStartMarker
			}
		}
		return
	}

	if bytes.HasSuffix(a.buf[:a.n], endMarker) {
		frame = a.buf[:a.n]
		a.Reset()
	}
	return
}

func (a *Assembler) shiftTail(keep int) {
	if keep > a.n {
		keep = a.n
	}
	copy(a.buf, a.buf[a.n-keep:a.n])
	a.n = keep
}
