package link

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/golang/glog"
)

// ReadChunkSize is the size of each read from the transport.
const ReadChunkSize = 256

// Stats counts what happened on the link.
type Stats struct {
	Bytes         uint64
	Frames        uint64
	FramingErrors uint64
	Dropped       uint64
	DecodeErrors  uint64
}

// Receiver reads the transport and queues complete frames.
// Feed is the producer side: it never blocks and never allocates.
type Receiver struct {
	// 64-bit counters first for atomic alignment on 32-bit targets.
	bytes         uint64
	frames        uint64
	framingErrors uint64
	dropped       uint64

	Reader    io.Reader
	Queue     *FrameQueue
	Assembler *Assembler
}

// NewReceiver creates a Receiver.
func NewReceiver(r io.Reader, q *FrameQueue) *Receiver {
	return &Receiver{
		Reader:    r,
		Queue:     q,
		Assembler: NewAssembler(RecvBufferSize),
	}
}

// Stats returns the counters.
func (r *Receiver) Stats() Stats {
	return Stats{
		Bytes:         atomic.LoadUint64(&r.bytes),
		Frames:        atomic.LoadUint64(&r.frames),
		FramingErrors: atomic.LoadUint64(&r.framingErrors),
		Dropped:       atomic.LoadUint64(&r.dropped),
	}
}

// Feed consumes one received byte. It must be called from a single
// goroutine, the same way a UART interrupt delivers bytes.
func (r *Receiver) Feed(b byte) {
	atomic.AddUint64(&r.bytes, 1)
	if r.Assembler == nil {
		r.Assembler = &Assembler{}
	}
	p, err := r.Assembler.Feed(b)
	if err != nil {
		atomic.AddUint64(&r.framingErrors, 1)
		glog.V(2).Infof("%v", err)
	}
	if p == nil {
		return
	}
	f, ok := FrameFrom(p)
	if !ok {
		atomic.AddUint64(&r.framingErrors, 1)
		glog.Warningf("%v: %d bytes", ErrFrameTooLarge, len(p))
		return
	}
	if err := r.Queue.Push(f); err != nil {
		atomic.AddUint64(&r.dropped, 1)
		glog.Warningf("frame dropped: %v", err)
		return
	}
	atomic.AddUint64(&r.frames, 1)
	glog.V(4).Infof("frame queued (len=%d)", f.Len())
}

// Run reads the transport until it fails or ctx is done.
func (r *Receiver) Run(ctx context.Context) error {
	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.readLoop(subCtx, chunkCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			for _, b := range chunk {
				r.Feed(b)
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Receiver) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	buf := make([]byte, ReadChunkSize)
	for {
		n, err := r.Reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunkCh <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}
