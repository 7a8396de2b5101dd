// Package speech vocalizes finalized sentences with at most one active utterance.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrEmptyText is returned by engines handed blank text.
var ErrEmptyText = errors.New("speech text is empty")

// Source identifies what triggered an utterance.
type Source string

const (
	SourceAutomatic Source = "automatic"
	SourceManual    Source = "manual"
)

// Utterance is one request handed to an engine.
type Utterance struct {
	Text     string
	Language string
	Pitch    float64
	Rate     float64
}

// Engine produces audio for one utterance.
//
// Speak blocks until playback ends and must return promptly once ctx is
// cancelled. started is invoked once audio output begins.
type Engine interface {
	Speak(ctx context.Context, u Utterance, started func()) error
}

// Options controls coordinator defaults.
type Options struct {
	Language  string
	Pitch     float64
	Rate      float64
	AutoSpeak bool
	// Debounce drops an identical text from the same source inside this window.
	Debounce time.Duration
	// StopTimeout bounds how long a new utterance waits for a cancelled one.
	StopTimeout time.Duration
}

type utterance struct {
	id     uint64
	source Source
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator serializes speech so only one utterance is ever active.
type Coordinator struct {
	engine Engine
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	autoSpeak atomic.Bool
	speaking  atomic.Bool

	base       context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	seq        uint64
	active     *utterance
	speakingID uint64
	lastText   string
	lastSource Source
	lastAt     time.Time
	onChange   func(bool)
}

// NewCoordinator constructs a coordinator around engine.
func NewCoordinator(engine Engine, opts Options, logger *slog.Logger) *Coordinator {
	if engine == nil {
		engine = NopEngine{}
	}
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = "en-US"
	}
	if opts.Pitch <= 0 {
		opts.Pitch = 1
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 2 * time.Second
	}

	base, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		engine:     engine,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
		base:       base,
		cancelBase: cancel,
	}
	c.autoSpeak.Store(opts.AutoSpeak)
	return c
}

// AutoSpeak reports the current preference.
func (c *Coordinator) AutoSpeak() bool {
	return c.autoSpeak.Load()
}

// SetAutoSpeak updates the preference. Disabling it stops an active automatic utterance.
func (c *Coordinator) SetAutoSpeak(enabled bool) {
	c.autoSpeak.Store(enabled)
	if enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil && c.active.source == SourceAutomatic {
		c.active.cancel()
	}
}

// ToggleAutoSpeak flips the preference and returns the new value.
func (c *Coordinator) ToggleAutoSpeak() bool {
	for {
		current := c.autoSpeak.Load()
		if c.autoSpeak.CompareAndSwap(current, !current) {
			if current {
				c.SetAutoSpeak(false)
			}
			return !current
		}
	}
}

// IsSpeaking reports whether an utterance is currently producing audio.
func (c *Coordinator) IsSpeaking() bool {
	return c.speaking.Load()
}

// OnSpeakingChange registers fn for isSpeaking transitions.
func (c *Coordinator) OnSpeakingChange(fn func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SpeakAutomatic speaks text if auto-speak is enabled right now.
func (c *Coordinator) SpeakAutomatic(ctx context.Context, text string) bool {
	return c.Speak(ctx, text, SourceAutomatic)
}

// SpeakManual speaks text regardless of the auto-speak preference.
func (c *Coordinator) SpeakManual(ctx context.Context, text string) bool {
	return c.Speak(ctx, text, SourceManual)
}

// Speak hard-stops any active utterance and starts text. It reports whether
// the request was accepted.
func (c *Coordinator) Speak(ctx context.Context, text string, source Source) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	if source == SourceAutomatic && !c.autoSpeak.Load() {
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	now := c.now()
	// Only automatic repeats are debounced; manual replays always speak.
	if source == SourceAutomatic && c.lastSource == SourceAutomatic &&
		c.opts.Debounce > 0 && text == c.lastText && now.Sub(c.lastAt) < c.opts.Debounce {
		c.mu.Unlock()
		c.debug("speech request debounced", "source", source)
		return false
	}

	prev := c.active
	if prev != nil {
		prev.cancel()
	}

	c.seq++
	uctx, cancel := context.WithCancel(c.base)
	u := &utterance{id: c.seq, source: source, ctx: uctx, cancel: cancel, done: make(chan struct{})}
	c.active = u
	c.lastText = text
	c.lastSource = source
	c.lastAt = now
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(u, prev, Utterance{
		Text:     text,
		Language: c.opts.Language,
		Pitch:    c.opts.Pitch,
		Rate:     c.opts.Rate,
	})
	return true
}

// Stop cancels the active utterance, if any.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.cancel()
	}
}

// Close stops speech, rejects further requests, and waits for engines to return.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	if c.active != nil {
		c.active.cancel()
	}
	c.mu.Unlock()

	c.cancelBase()
	c.wg.Wait()
}

func (c *Coordinator) run(u *utterance, prev *utterance, req Utterance) {
	defer c.wg.Done()
	defer close(u.done)
	defer u.cancel()

	if prev != nil {
		select {
		case <-prev.done:
		case <-time.After(c.opts.StopTimeout):
			c.warn("previous utterance did not stop in time", "timeout_ms", c.opts.StopTimeout.Milliseconds())
		}
	}
	if u.ctx.Err() != nil {
		c.finish(u)
		return
	}

	err := c.engine.Speak(u.ctx, req, func() { c.started(u) })
	switch {
	case err == nil:
	case u.ctx.Err() != nil:
		c.debug("utterance stopped", "source", u.source)
	default:
		c.warn("speech engine failed", "source", u.source, "error", err.Error())
	}
	c.finish(u)
}

func (c *Coordinator) started(u *utterance) {
	c.mu.Lock()
	if c.active != u || u.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.speakingID = u.id
	fn := c.setSpeakingLocked(true)
	c.mu.Unlock()

	if fn != nil {
		fn(true)
	}
}

func (c *Coordinator) finish(u *utterance) {
	c.mu.Lock()
	if c.active == u {
		c.active = nil
	}
	var fn func(bool)
	if c.speakingID == u.id {
		c.speakingID = 0
		fn = c.setSpeakingLocked(false)
	}
	c.mu.Unlock()

	if fn != nil {
		fn(false)
	}
}

// setSpeakingLocked updates the flag and returns the listener when it changed.
func (c *Coordinator) setSpeakingLocked(v bool) func(bool) {
	if c.speaking.Swap(v) == v {
		return nil
	}
	return c.onChange
}

func (c *Coordinator) debug(message string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(message, args...)
}

func (c *Coordinator) warn(message string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(message, args...)
}

// NopEngine accepts every utterance without producing audio.
type NopEngine struct{}

func (NopEngine) Speak(ctx context.Context, u Utterance, started func()) error {
	if strings.TrimSpace(u.Text) == "" {
		return ErrEmptyText
	}
	if started != nil {
		started()
	}
	return ctx.Err()
}
