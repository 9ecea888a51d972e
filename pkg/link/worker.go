package link

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"
)

// Worker decodes queued frames and dispatches the messages.
type Worker struct {
	decodeErrors uint64

	Queue   *FrameQueue
	Handler MessageHandler
}

// NewWorker creates a Worker.
func NewWorker(q *FrameQueue, h MessageHandler) *Worker {
	return &Worker{Queue: q, Handler: h}
}

// DecodeErrors returns the number of rejected frames.
func (w *Worker) DecodeErrors() uint64 {
	return atomic.LoadUint64(&w.decodeErrors)
}

// Run implements Runnable.
func (w *Worker) Run(ctx context.Context) error {
	glog.Info("packet worker started")
	for {
		f, err := w.Queue.Pop(ctx)
		if err != nil {
			return err
		}
		w.Process(ctx, f.Bytes())
	}
}

// Process decodes one frame and dispatches it. A rejected frame is
// logged and dropped.
func (w *Worker) Process(ctx context.Context, frame []byte) error {
	msg, err := Decode(frame)
	if err != nil {
		atomic.AddUint64(&w.decodeErrors, 1)
		glog.Errorf("packet dropped: %v", err)
		return err
	}
	glog.V(2).Infof("packet type: %s", msg.Type)
	if h := w.Handler; h != nil {
		h.HandleMessage(ctx, msg)
	}
	return nil
}
