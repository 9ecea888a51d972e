package link

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReceiverFeed(t *testing.T) {
	q := NewFrameQueue(2)
	r := NewReceiver(nil, q)
	stream := "garbage" + pkt("one") + pkt("two") + pkt("three")
	for i := 0; i < len(stream); i++ {
		r.Feed(stream[i])
	}
	stats := r.Stats()
	require.EqualValues(t, len(stream), stats.Bytes)
	require.EqualValues(t, 2, stats.Frames)
	require.EqualValues(t, 1, stats.Dropped)
	require.Equal(t, 2, q.Len())

	ctx := context.Background()
	f, err := q.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, pkt("one"), f.String())
	f, err = q.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, pkt("two"), f.String())
}

func TestReceiverFrameTooLarge(t *testing.T) {
	q := NewFrameQueue(1)
	r := &Receiver{Queue: q}
	big := make([]byte, MaxFrameSize)
	for i := range big {
		big[i] = 'x'
	}
	stream := pkt(string(big))
	for i := 0; i < len(stream); i++ {
		r.Feed(stream[i])
	}
	require.Zero(t, q.Len())
	require.EqualValues(t, 1, r.Stats().FramingErrors)
}

func TestReceiverRun(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	q := NewFrameQueue(4)
	r := NewReceiver(local, q)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	msg := NewMessage("STATUS", "ok")
	go func() {
		// split the packet over several writes.
		b := msg.Bytes()
		remote.Write(b[:5])
		remote.Write(b[5:20])
		remote.Write(b[20:])
	}()

	popCtx, popCancel := context.WithTimeout(ctx, time.Second)
	defer popCancel()
	f, err := q.Pop(popCtx)
	require.NoError(t, err)
	require.Equal(t, string(msg.Bytes()), f.String())

	local.Close()
	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("receiver didn't stop")
	}
}

func TestReceiverRunEOF(t *testing.T) {
	r := NewReceiver(eofReader{}, NewFrameQueue(1))
	require.Equal(t, io.EOF, r.Run(context.Background()))
}

type eofReader struct{}

func (eofReader) Read(p []byte) (int, error) {
	return 0, io.EOF
}

func TestWorkerDispatch(t *testing.T) {
	var lock sync.Mutex
	var got []string
	record := func(ctx context.Context, msg *Message) {
		lock.Lock()
		got = append(got, msg.Type+":"+msg.Data)
		lock.Unlock()
	}
	var unknown []string
	mux := NewMux().
		HandleFunc("TASKS", record).
		Handle("STATUS", LogInfo("Status"))
	mux.Unknown = HandleMessageFunc(func(ctx context.Context, msg *Message) {
		unknown = append(unknown, msg.Type)
	})

	w := NewWorker(NewFrameQueue(1), mux)
	ctx := context.Background()
	require.NoError(t, w.Process(ctx, NewMessage("TASKS", "NO_TASKS").Bytes()))
	require.NoError(t, w.Process(ctx, NewMessage("STATUS", "idle").Bytes()))
	require.NoError(t, w.Process(ctx, NewMessage("BOGUS", "").Bytes()))
	err := w.Process(ctx, []byte(pkt("TYPE:TASKS|DATA:1.A,1.1.x|CHECKSUM:0")))
	require.True(t, IsDecodeReason(err, ChecksumMismatch))

	require.Equal(t, []string{"TASKS:NO_TASKS"}, got)
	require.Equal(t, []string{"BOGUS"}, unknown)
	require.EqualValues(t, 1, w.DecodeErrors())
}

func TestWorkerRun(t *testing.T) {
	q := NewFrameQueue(4)
	gotCh := make(chan *Message, 4)
	w := NewWorker(q, HandleMessageFunc(func(ctx context.Context, msg *Message) {
		gotCh <- msg
	}))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	f, _ := FrameFrom(NewMessage("TEST", "ping").Bytes())
	require.NoError(t, q.Push(f))
	select {
	case msg := <-gotCh:
		require.Equal(t, "ping", msg.Data)
	case <-time.After(time.Second):
		t.Fatal("message not dispatched")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}
