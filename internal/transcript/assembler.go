package transcript

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// History receives finalized sentences in finalization order.
type History interface {
	Prepend(Sentence)
}

// Speaker is the assembler-facing subset of speech output.
type Speaker interface {
	AutoSpeak() bool
	SpeakAutomatic(ctx context.Context, text string) bool
}

// Observer mirrors assembler state to a presentation surface.
type Observer interface {
	ShowPartial(ctx context.Context, text string)
	ShowSentence(ctx context.Context, sentence Sentence)
}

type noopHistory struct{}

func (noopHistory) Prepend(Sentence) {}

type noopSpeaker struct{}

func (noopSpeaker) AutoSpeak() bool                             { return false }
func (noopSpeaker) SpeakAutomatic(context.Context, string) bool { return false }

type noopObserver struct{}

func (noopObserver) ShowPartial(context.Context, string)    {}
func (noopObserver) ShowSentence(context.Context, Sentence) {}

// Options controls token framing and sentence finalization.
type Options struct {
	Sentinel     string
	Protocol     Protocol
	IgnoreTokens []string
	// IdleFlush finalizes a pending buffer after this much silence. Zero disables it.
	IdleFlush time.Duration
}

// Assembler owns the in-progress sentence buffer.
type Assembler struct {
	opts     Options
	ignore   map[string]struct{}
	history  History
	speaker  Speaker
	observer Observer
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	buffer    string
	nextID    int64
	idleTimer *time.Timer
	idleSeq   uint64
}

// NewAssembler constructs an assembler with no-op fallbacks for nil collaborators.
func NewAssembler(opts Options, history History, speaker Speaker, observer Observer, logger *slog.Logger) *Assembler {
	if strings.TrimSpace(opts.Sentinel) == "" && opts.Protocol != ProtocolJSON {
		opts.Sentinel = DefaultSentinel
	}
	if history == nil {
		history = noopHistory{}
	}
	if speaker == nil {
		speaker = noopSpeaker{}
	}
	if observer == nil {
		observer = noopObserver{}
	}

	ignore := make(map[string]struct{}, len(opts.IgnoreTokens))
	for _, token := range opts.IgnoreTokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		ignore[token] = struct{}{}
	}

	return &Assembler{
		opts:     opts,
		ignore:   ignore,
		history:  history,
		speaker:  speaker,
		observer: observer,
		logger:   logger,
		now:      time.Now,
		nextID:   1,
	}
}

// Consume processes one raw inbound payload. Calls must arrive in wire order.
func (a *Assembler) Consume(ctx context.Context, raw string) {
	tok, err := ParseToken(raw, a.opts.Protocol, a.opts.Sentinel)
	if err != nil {
		a.log("dropping malformed token", "error", err.Error())
		return
	}
	if !tok.End && a.ignored(tok.Text) {
		return
	}

	a.mu.Lock()
	next, final, finalized := Accumulate(a.buffer, tok)
	changed := next != a.buffer
	a.buffer = next
	var sentence Sentence
	if finalized {
		sentence = a.recordLocked(final)
	}
	switch {
	case tok.End:
		a.stopIdleLocked()
	case changed:
		a.armIdleLocked()
	}
	a.mu.Unlock()

	if changed || tok.End {
		a.observer.ShowPartial(ctx, next)
	}
	if finalized {
		a.announce(ctx, sentence)
	}
}

// Flush finalizes the pending buffer as if the sentinel had arrived.
func (a *Assembler) Flush(ctx context.Context) (Sentence, bool) {
	a.mu.Lock()
	sentence, finalized := a.flushLocked()
	a.mu.Unlock()

	a.observer.ShowPartial(ctx, "")
	if finalized {
		a.announce(ctx, sentence)
	}
	return sentence, finalized
}

func (a *Assembler) flushLocked() (Sentence, bool) {
	_, final, finalized := Accumulate(a.buffer, Token{End: true})
	a.buffer = ""
	a.stopIdleLocked()
	if !finalized {
		return Sentence{}, false
	}
	return a.recordLocked(final), true
}

// Reset discards the pending buffer without finalizing it.
func (a *Assembler) Reset(ctx context.Context) {
	a.mu.Lock()
	a.buffer = ""
	a.stopIdleLocked()
	a.mu.Unlock()

	a.observer.ShowPartial(ctx, "")
}

// Current returns a snapshot of the pending buffer.
func (a *Assembler) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffer
}

// Close stops the idle-flush timer.
func (a *Assembler) Close() {
	a.mu.Lock()
	a.stopIdleLocked()
	a.mu.Unlock()
}

// recordLocked builds the sentence and appends it to history while a.mu is held
// so history order always matches finalization order.
func (a *Assembler) recordLocked(text string) Sentence {
	sentence := Sentence{ID: a.nextID, Text: text, CreatedAt: a.now()}
	a.nextID++
	a.history.Prepend(sentence)
	return sentence
}

func (a *Assembler) announce(ctx context.Context, sentence Sentence) {
	a.log("sentence finalized", "id", sentence.ID, "length", len(sentence.Text))
	a.observer.ShowSentence(ctx, sentence)
	if a.speaker.AutoSpeak() {
		a.speaker.SpeakAutomatic(ctx, sentence.Text)
	}
}

func (a *Assembler) ignored(text string) bool {
	if len(a.ignore) == 0 {
		return false
	}
	_, ok := a.ignore[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func (a *Assembler) armIdleLocked() {
	if a.opts.IdleFlush <= 0 {
		return
	}
	a.stopIdleLocked()
	a.idleSeq++
	seq := a.idleSeq
	a.idleTimer = time.AfterFunc(a.opts.IdleFlush, func() { a.idleFlush(seq) })
}

func (a *Assembler) stopIdleLocked() {
	if a.idleTimer != nil {
		a.idleTimer.Stop()
		a.idleTimer = nil
	}
	a.idleSeq++
}

func (a *Assembler) idleFlush(seq uint64) {
	a.mu.Lock()
	if seq != a.idleSeq {
		a.mu.Unlock()
		return
	}
	sentence, finalized := a.flushLocked()
	a.mu.Unlock()

	ctx := context.Background()
	a.observer.ShowPartial(ctx, "")
	if finalized {
		a.log("idle flush finalized pending sentence", "id", sentence.ID)
		a.announce(ctx, sentence)
	}
}

func (a *Assembler) log(message string, args ...any) {
	if a.logger == nil {
		return
	}
	a.logger.Debug(message, args...)
}
