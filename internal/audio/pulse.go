// Package audio plays mono 16-bit PCM through the session PulseAudio or
// PipeWire server.
package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/pulse"
)

// Playback describes how a stream is announced to the sound server.
type Playback struct {
	AppName   string
	IconName  string
	MediaName string
	// Latency is the requested buffer size in seconds; 0 uses 80ms.
	Latency float64
}

// Play streams little-endian PCM from r until EOF or ctx is cancelled.
func (p Playback) Play(ctx context.Context, r io.Reader, sampleRate int) error {
	src := &pcmSource{ctx: ctx, r: bufio.NewReaderSize(r, 8192)}
	if err := p.stream(src.read, sampleRate); err != nil {
		return err
	}
	if src.err != nil {
		return fmt.Errorf("read pcm: %w", src.err)
	}
	return nil
}

// PlaySamples plays an in-memory clip.
func (p Playback) PlaySamples(ctx context.Context, samples []int16, sampleRate int) error {
	src := &sampleSource{ctx: ctx, samples: samples}
	return p.stream(src.read, sampleRate)
}

func (p Playback) stream(read func([]int16) (int, error), sampleRate int) error {
	appName := p.AppName
	if appName == "" {
		appName = "signstream"
	}
	iconName := p.IconName
	if iconName == "" {
		iconName = "audio-speakers"
	}
	latency := p.Latency
	if latency <= 0 {
		latency = 0.08
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName(appName),
		pulse.ClientApplicationIconName(iconName),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	opts := []pulse.PlaybackOption{
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(latency),
	}
	if p.MediaName != "" {
		opts = append(opts, pulse.PlaybackMediaName(p.MediaName))
	}

	stream, err := client.NewPlayback(pulse.Int16Reader(read), opts...)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play pulse stream: %w", err)
	}
	return nil
}

// pcmSource decodes little-endian samples and ends early on cancellation.
type pcmSource struct {
	ctx context.Context
	r   *bufio.Reader
	err error
}

func (s *pcmSource) read(buf []int16) (int, error) {
	if s.ctx.Err() != nil {
		return 0, pulse.EndOfData
	}

	var sample [2]byte
	for n := range buf {
		if _, err := io.ReadFull(s.r, sample[:]); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && s.ctx.Err() == nil {
				s.err = err
			}
			return n, pulse.EndOfData
		}
		buf[n] = int16(binary.LittleEndian.Uint16(sample[:]))
	}
	return len(buf), nil
}

type sampleSource struct {
	ctx     context.Context
	samples []int16
	cursor  int
}

func (s *sampleSource) read(buf []int16) (int, error) {
	if s.cursor >= len(s.samples) || s.ctx.Err() != nil {
		return 0, pulse.EndOfData
	}

	n := copy(buf, s.samples[s.cursor:])
	s.cursor += n
	if s.cursor >= len(s.samples) {
		return n, pulse.EndOfData
	}
	return n, nil
}
