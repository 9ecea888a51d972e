package link

import "context"

// Queue defaults.
const (
	// MaxFrameSize is the capacity of a Frame slot.
	MaxFrameSize = 1024
	// QueueSize is the default number of slots in a FrameQueue.
	QueueSize = 4
)

// Frame is a fixed size slot holding a complete packet.
// It's passed by value so the receive buffer can be reused immediately.
type Frame struct {
	len  int
	data [MaxFrameSize]byte
}

// FrameFrom copies p into a Frame. The copy is bounded by MaxFrameSize
// and ok is false if p was truncated.
func FrameFrom(p []byte) (f Frame, ok bool) {
	f.len = copy(f.data[:], p)
	return f, f.len == len(p)
}

// Len returns the length of the frame.
func (f *Frame) Len() int {
	return f.len
}

// Bytes returns the frame content.
func (f *Frame) Bytes() []byte {
	return f.data[:f.len]
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	return string(f.data[:f.len])
}

// FrameQueue is a bounded FIFO of frames between a producer which must
// never block and a consumer which waits.
type FrameQueue struct {
	ch chan Frame
}

// NewFrameQueue creates a FrameQueue with size slots.
func NewFrameQueue(size int) *FrameQueue {
	if size <= 0 {
		size = QueueSize
	}
	return &FrameQueue{ch: make(chan Frame, size)}
}

// Cap returns the number of slots.
func (q *FrameQueue) Cap() int {
	return cap(q.ch)
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	return len(q.ch)
}

// Push enqueues a frame without blocking. If the queue is full, the
// frame is rejected with ErrQueueFull and the queued frames are untouched.
func (q *FrameQueue) Push(f Frame) error {
	select {
	case q.ch <- f:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pop waits for the next frame.
func (q *FrameQueue) Pop(ctx context.Context) (Frame, error) {
	select {
	case f := <-q.ch:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}
