// Package session wires the recognizer connection, frame producer, sentence
// assembly, history, and speech into one owner lifecycle.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/signstream/internal/fsm"
	"github.com/rbright/signstream/internal/history"
	"github.com/rbright/signstream/internal/indicator"
	"github.com/rbright/signstream/internal/producer"
	"github.com/rbright/signstream/internal/speech"
	"github.com/rbright/signstream/internal/transcript"
	"github.com/rbright/signstream/internal/transport"
)

type action int

const (
	actionStop action = iota + 1
)

// Result is the lifecycle summary returned by one Run invocation.
type Result struct {
	State       fsm.State
	Endpoint    string
	Frames      producer.Stats
	Sentences   int
	LastError   string
	Interrupted bool
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Options carries the per-component settings of a recognizer.
type Options struct {
	Transport  transport.Options
	Producer   producer.Options
	Transcript transcript.Options
	Speech     speech.Options
	HistoryMax int
}

// Dependencies are the external collaborators of a recognizer. Nil fields
// fall back to inert implementations; a nil Capturer fails every frame.
type Dependencies struct {
	Dialer    transport.Dialer
	Capturer  producer.Capturer
	Engine    speech.Engine
	Presenter indicator.Presenter
	Committer Committer
	Logger    *slog.Logger
}

type noopPresenter struct{}

func (noopPresenter) ShowConnection(context.Context, fsm.State, string) {}
func (noopPresenter) ShowPartial(context.Context, string)               {}
func (noopPresenter) ShowSentence(context.Context, transcript.Sentence) {}
func (noopPresenter) ShowSpeaking(context.Context, bool)                {}
func (noopPresenter) ShowError(context.Context, string)                 {}

var errNoCapturer = errors.New("no frame capturer configured")

type noopCapturer struct{}

func (noopCapturer) Capture(context.Context) ([]byte, error) { return nil, errNoCapturer }

// Recognizer owns a live recognition session. Run must be called at most once.
type Recognizer struct {
	logger    *slog.Logger
	presenter indicator.Presenter
	commit    Committer
	endpoint  string

	transport *transport.Manager
	producer  *producer.Producer
	assembler *transcript.Assembler
	history   *history.Store
	speech    *speech.Coordinator

	actions chan action

	mu      sync.Mutex
	lastErr string
}

// NewRecognizer builds every session component from opts and deps.
func NewRecognizer(opts Options, deps Dependencies) *Recognizer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	presenter := deps.Presenter
	if presenter == nil {
		presenter = noopPresenter{}
	}
	committer := deps.Committer
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	capturer := deps.Capturer
	if capturer == nil {
		capturer = noopCapturer{}
	}

	r := &Recognizer{
		logger:    logger,
		presenter: presenter,
		commit:    committer,
		endpoint:  opts.Transport.Endpoint,
		history:   history.New(opts.HistoryMax),
		actions:   make(chan action, 1),
	}

	r.speech = speech.NewCoordinator(deps.Engine, opts.Speech, logger.With("component", "speech"))
	r.speech.OnSpeakingChange(func(speaking bool) {
		r.presenter.ShowSpeaking(context.Background(), speaking)
	})
	r.assembler = transcript.NewAssembler(opts.Transcript, r.history, r.speech, sentenceObserver{r}, logger.With("component", "transcript"))
	r.transport = transport.NewManager(deps.Dialer, r, opts.Transport, logger.With("component", "transport"))
	r.producer = producer.New(capturer, r.transport, opts.Producer, logger.With("component", "producer"))
	return r
}

// OnOpen discards any partial sentence left from a previous connection.
func (r *Recognizer) OnOpen(connID string) {
	ctx := context.Background()
	r.assembler.Reset(ctx)
	r.presenter.ShowConnection(ctx, fsm.StateConnected, r.endpoint)
	r.logger.Debug("session attached to connection", "conn_id", connID)
}

// OnMessage feeds one inbound word to the assembler.
func (r *Recognizer) OnMessage(payload string) {
	r.assembler.Consume(context.Background(), payload)
}

// OnClose records the close cause and renders the disconnect.
func (r *Recognizer) OnClose(err error) {
	if err != nil && !errors.Is(err, io.EOF) {
		r.mu.Lock()
		r.lastErr = err.Error()
		r.mu.Unlock()
	}
	r.presenter.ShowConnection(context.Background(), fsm.StateDisconnected, r.endpoint)
}

// Run connects, streams frames until ctx ends or a stop is requested, then
// tears everything down.
func (r *Recognizer) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now(), Endpoint: r.endpoint}

	r.presenter.ShowConnection(ctx, fsm.StateConnecting, r.endpoint)
	r.transport.Connect()

	produceCtx, cancelProduce := context.WithCancel(ctx)
	stats := make(chan producer.Stats, 1)
	go func() { stats <- r.producer.Run(produceCtx) }()

	select {
	case <-ctx.Done():
		result.Interrupted = true
		r.logger.Info("session interrupted", "cause", context.Cause(ctx).Error())
	case a := <-r.actions:
		r.logger.Info("session stop requested", "action", int(a))
	}

	cancelProduce()
	result.Frames = <-stats
	r.assembler.Close()
	r.speech.Close()
	status := r.transport.Status()
	r.transport.Close()

	result.State = r.transport.State()
	result.Sentences = r.history.Len()
	result.LastError = status.LastError
	if result.LastError == "" {
		r.mu.Lock()
		result.LastError = r.lastErr
		r.mu.Unlock()
	}
	result.FinishedAt = time.Now()
	return result
}

// History exposes the session's sentence store.
func (r *Recognizer) History() *history.Store {
	return r.history
}

// Speech exposes the session's speech coordinator.
func (r *Recognizer) Speech() *speech.Coordinator {
	return r.speech
}

// requestStop enqueues a stop action.
func (r *Recognizer) requestStop() bool {
	select {
	case r.actions <- actionStop:
		return true
	default:
		return false
	}
}

// sentenceObserver forwards assembler output to the presenter and committer.
type sentenceObserver struct {
	r *Recognizer
}

func (o sentenceObserver) ShowPartial(ctx context.Context, text string) {
	o.r.presenter.ShowPartial(ctx, text)
}

func (o sentenceObserver) ShowSentence(ctx context.Context, sentence transcript.Sentence) {
	o.r.presenter.ShowSentence(ctx, sentence)
	if err := o.r.commit.Commit(ctx, sentence.Text); err != nil {
		o.r.logger.Warn("sentence commit failed", "id", sentence.ID, "error", err.Error())
		o.r.presenter.ShowError(ctx, "Clipboard copy failed")
	}
}
