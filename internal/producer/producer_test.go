package producer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunSkipsTicksWhileDisconnected(t *testing.T) {
	sender := &fakeSender{}
	capturer := &fakeCapturer{frame: []byte("jpeg")}
	p := New(capturer, sender, Options{Interval: 5 * time.Millisecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	stats := p.Run(ctx)

	require.Zero(t, stats.Sent)
	require.Positive(t, stats.Skipped)
	require.Zero(t, capturer.calls.Load())
}

func TestRunKeepsAtMostOneSendInFlight(t *testing.T) {
	sender := &fakeSender{hold: make(chan struct{})}
	sender.connected.Store(true)
	p := New(&fakeCapturer{frame: []byte("jpeg")}, sender, Options{Interval: 2 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Stats, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return sender.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(1), sender.calls.Load())
	require.Positive(t, p.Stats().Skipped)

	close(sender.hold)
	require.Eventually(t, func() bool { return sender.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	stats := <-done
	require.Equal(t, int32(1), sender.maxActive.Load())
	require.GreaterOrEqual(t, stats.Sent, uint64(2))
}

func TestRunStatsIncludeSendInFlightAtCancel(t *testing.T) {
	sender := &fakeSender{delay: 80 * time.Millisecond}
	sender.connected.Store(true)
	p := New(&fakeCapturer{frame: []byte("jpeg")}, sender, Options{Interval: 2 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Stats, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return sender.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	stats := <-done
	require.Equal(t, uint64(1), stats.Sent)
	require.Equal(t, int32(1), sender.calls.Load())
}

func TestRunEncodesFramesAsBase64ByDefault(t *testing.T) {
	sender := &fakeSender{}
	sender.connected.Store(true)
	p := New(&fakeCapturer{frame: []byte{0xff, 0xd8, 0xff}}, sender, Options{Interval: 2 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Stats, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return sender.calls.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	require.Equal(t, "/9j/", sender.first())
}

func TestRunCountsFailuresAndContinues(t *testing.T) {
	sender := &fakeSender{}
	sender.connected.Store(true)
	capturer := &fakeCapturer{err: errors.New("camera unplugged")}
	p := New(capturer, sender, Options{Interval: 2 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Stats, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return capturer.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	stats := <-done

	require.GreaterOrEqual(t, stats.Failed, uint64(2))
	require.Zero(t, stats.Sent)
	require.Zero(t, sender.calls.Load())
}

func TestEncode(t *testing.T) {
	out, err := encode([]byte("hi"), EncodingBase64)
	require.NoError(t, err)
	require.Equal(t, "aGk=", string(out))

	out, err = encode([]byte("hi"), EncodingRaw)
	require.NoError(t, err)
	require.Equal(t, "hi", string(out))

	_, err = encode([]byte("hi"), Encoding("hex"))
	require.ErrorContains(t, err, "unsupported frame encoding")
}

func TestNewDefaults(t *testing.T) {
	p := New(&fakeCapturer{}, &fakeSender{}, Options{}, nil)
	require.Equal(t, DefaultInterval, p.opts.Interval)
	require.Equal(t, EncodingBase64, p.opts.Encoding)
}

type fakeCapturer struct {
	calls atomic.Int32
	frame []byte
	err   error
}

func (f *fakeCapturer) Capture(context.Context) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.frame, nil
}

type fakeSender struct {
	connected atomic.Bool
	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	hold      chan struct{}
	// delay runs after ctx is cancelled too, like a write already on the wire.
	delay time.Duration

	mu       sync.Mutex
	payloads []string
}

func (f *fakeSender) Connected() bool { return f.connected.Load() }

func (f *fakeSender) Send(ctx context.Context, payload []byte) error {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		current := f.maxActive.Load()
		if n <= current || f.maxActive.CompareAndSwap(current, n) {
			break
		}
	}

	f.mu.Lock()
	f.payloads = append(f.payloads, string(payload))
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeSender) first() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return ""
	}
	return f.payloads[0]
}
