// Package producer captures frames on a fixed tick and sends them to the recognizer.
package producer

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultInterval = 200 * time.Millisecond

// Capturer returns one encoded frame per call.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Sender is the outbound half of the recognizer connection.
type Sender interface {
	Connected() bool
	Send(ctx context.Context, payload []byte) error
}

type Encoding string

const (
	EncodingBase64 Encoding = "base64"
	EncodingRaw    Encoding = "raw"
)

// Stats counts tick outcomes.
type Stats struct {
	Sent    uint64
	Skipped uint64
	Failed  uint64
}

type Options struct {
	Interval time.Duration
	Encoding Encoding
}

// Producer sends at most one frame at a time. Ticks that land while a send is
// in flight or while disconnected are skipped, never queued.
type Producer struct {
	capturer Capturer
	sender   Sender
	opts     Options
	logger   *slog.Logger

	busy    atomic.Bool
	sent    atomic.Uint64
	skipped atomic.Uint64
	failed  atomic.Uint64
}

func New(capturer Capturer, sender Sender, opts Options, logger *slog.Logger) *Producer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Encoding == "" {
		opts.Encoding = EncodingBase64
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Producer{capturer: capturer, sender: sender, opts: opts, logger: logger}
}

// Run ticks until ctx is cancelled and then waits for the in-flight send.
func (p *Producer) Run(ctx context.Context) Stats {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			// Stats must include the in-flight frame.
			wg.Wait()
			return p.Stats()
		case <-ticker.C:
			p.tick(ctx, &wg)
		}
	}
}

func (p *Producer) tick(ctx context.Context, wg *sync.WaitGroup) {
	if !p.sender.Connected() {
		p.skipped.Add(1)
		return
	}
	if !p.busy.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer p.busy.Store(false)

		if err := p.sendFrame(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.failed.Add(1)
			p.logger.Warn("frame send failed", "error", err.Error())
			return
		}
		p.sent.Add(1)
	}()
}

func (p *Producer) sendFrame(ctx context.Context) error {
	frame, err := p.capturer.Capture(ctx)
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}
	payload, err := encode(frame, p.opts.Encoding)
	if err != nil {
		return err
	}
	return p.sender.Send(ctx, payload)
}

func (p *Producer) Stats() Stats {
	return Stats{
		Sent:    p.sent.Load(),
		Skipped: p.skipped.Load(),
		Failed:  p.failed.Load(),
	}
}

func encode(frame []byte, encoding Encoding) ([]byte, error) {
	switch encoding {
	case EncodingBase64, "":
		out := make([]byte, base64.StdEncoding.EncodedLen(len(frame)))
		base64.StdEncoding.Encode(out, frame)
		return out, nil
	case EncodingRaw:
		return frame, nil
	default:
		return nil, fmt.Errorf("unsupported frame encoding %q", encoding)
	}
}
