package framework

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())

	errA, errB := errors.New("a"), errors.New("b")
	errs.Add(errA)
	require.Equal(t, "a", errs.Aggregate().Error())
	errs.Add(nil, errB)
	require.Equal(t, "multiple errors:\n  a\n  b", errs.Error())
	require.Len(t, errs.Unwrap(), 2)
}

func TestRunnerCancelsOnFailure(t *testing.T) {
	errBoom := errors.New("boom")
	r := NewRunner()
	r.Go(
		NamedRun("waiter", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		RunFunc(func(ctx context.Context) error {
			return errBoom
		}),
	)
	err := r.Wait()
	require.Error(t, err)
	var agg *AggregatedError
	require.ErrorAs(t, err, &agg)
	require.Equal(t, []error{errBoom}, agg.Errors)
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	r.Stop()
	require.NoError(t, r.Wait())
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunWithContextCloser(t *testing.T) {
	var closed int32
	unblock := make(chan struct{})
	closer := closerFunc(func() error {
		if atomic.AddInt32(&closed, 1) == 1 {
			close(unblock)
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-unblock
		return errors.New("closed")
	})
	require.Equal(t, context.Canceled, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&closed))

	err = RunWithContextCloser(context.Background(), closerFunc(func() error {
		atomic.AddInt32(&closed, 1)
		return nil
	}), func() error { return nil })
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&closed))
}
