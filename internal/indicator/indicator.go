// Package indicator renders session state to the console, desktop
// notifications, and audio cues.
package indicator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/signstream/internal/config"
	"github.com/rbright/signstream/internal/fsm"
	"github.com/rbright/signstream/internal/transcript"
)

// Presenter is the session-facing presentation contract.
type Presenter interface {
	ShowConnection(ctx context.Context, state fsm.State, endpoint string)
	ShowPartial(ctx context.Context, text string)
	ShowSentence(ctx context.Context, sentence transcript.Sentence)
	ShowSpeaking(ctx context.Context, speaking bool)
	ShowError(ctx context.Context, text string)
}

// Indicator is the concrete presenter used by runtime sessions. Console output
// is always rendered when enabled; the desktop backend adds notifications.
type Indicator struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	console  *Console

	mu                    sync.Mutex
	lastState             fsm.State
	desktopNotificationID uint32
	soundMu               sync.Mutex
	cueWG                 sync.WaitGroup

	notify  func(ctx context.Context, n notification) (uint32, error)
	dismiss func(ctx context.Context, id uint32) error
	emit    func(ctx context.Context, kind cueKind) error
}

// New creates an indicator writing console output to w. A nil w disables the
// console surface.
func New(cfg config.IndicatorConfig, w io.Writer, logger *slog.Logger) *Indicator {
	msgs := indicatorMessagesFromEnv()
	ind := &Indicator{
		cfg:       cfg,
		logger:    logger,
		messages:  msgs,
		lastState: fsm.StateDisconnected,
		notify:    desktopNotify,
		dismiss:   desktopDismiss,
	}
	if w != nil {
		ind.console = NewConsole(w, msgs)
	}
	ind.emit = func(ctx context.Context, kind cueKind) error {
		return emitCue(ctx, kind, cfg)
	}
	return ind
}

// ShowConnection renders a connection-state change and plays the matching cue.
func (i *Indicator) ShowConnection(ctx context.Context, state fsm.State, endpoint string) {
	i.mu.Lock()
	previous := i.lastState
	i.lastState = state
	i.mu.Unlock()
	if previous == state {
		return
	}

	switch {
	case state == fsm.StateConnected:
		i.playCue(cueConnected)
	case previous == fsm.StateConnected:
		i.playCue(cueDisconnected)
	}

	if !i.cfg.Enable {
		return
	}
	if i.console != nil {
		i.console.Connection(state, endpoint)
	}
	if i.desktopEnabled() && (state == fsm.StateConnected || previous == fsm.StateConnected) {
		i.run(ctx, func(ctx context.Context) error {
			return i.notifyDesktop(ctx, i.messages.connectionText(state), endpoint, 2500)
		})
	}
}

// ShowPartial renders the in-progress sentence.
func (i *Indicator) ShowPartial(_ context.Context, text string) {
	if !i.cfg.Enable || i.console == nil {
		return
	}
	i.console.Partial(text)
}

// ShowSentence renders a finalized sentence and plays the sentence cue.
func (i *Indicator) ShowSentence(ctx context.Context, sentence transcript.Sentence) {
	i.playCue(cueSentence)
	if !i.cfg.Enable {
		return
	}
	if i.console != nil {
		i.console.Sentence(sentence)
	}
	if i.desktopEnabled() {
		i.run(ctx, func(ctx context.Context) error {
			return i.notifyDesktop(ctx, i.messages.sentenceTitle, sentence.Text, 6000)
		})
	}
}

// ShowSpeaking renders speech playback transitions.
func (i *Indicator) ShowSpeaking(_ context.Context, speaking bool) {
	if !i.cfg.Enable || i.console == nil {
		return
	}
	i.console.Speaking(speaking)
}

// ShowError displays an error-state message.
func (i *Indicator) ShowError(ctx context.Context, text string) {
	if !i.cfg.Enable {
		return
	}
	if text == "" {
		text = i.messages.errorText
	}
	if i.console != nil {
		i.console.Error(text)
	}
	if !i.desktopEnabled() {
		return
	}
	timeout := i.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	i.run(ctx, func(ctx context.Context) error {
		return i.notifyDesktop(ctx, i.messages.errorText, text, timeout)
	})
}

// Dismiss closes the active desktop notification, if any.
func (i *Indicator) Dismiss(ctx context.Context) {
	if !i.cfg.Enable || !i.desktopEnabled() {
		return
	}
	i.mu.Lock()
	id := i.desktopNotificationID
	i.desktopNotificationID = 0
	i.mu.Unlock()
	if id == 0 {
		return
	}
	i.run(ctx, func(ctx context.Context) error { return i.dismiss(ctx, id) })
}

// Wait blocks until queued cues finish playing.
func (i *Indicator) Wait() {
	i.cueWG.Wait()
}

func (i *Indicator) desktopEnabled() bool {
	return i.cfg.Backend == "desktop"
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (i *Indicator) notifyDesktop(ctx context.Context, summary, body string, timeoutMS int) error {
	i.mu.Lock()
	replaceID := i.desktopNotificationID
	i.mu.Unlock()

	appName := i.cfg.DesktopAppName
	if appName == "" {
		appName = "signstream"
	}

	id, err := i.notify(ctx, notification{
		appName:   appName,
		replaceID: replaceID,
		summary:   summary,
		body:      body,
		timeoutMS: timeoutMS,
	})
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.desktopNotificationID = id
	i.mu.Unlock()
	return nil
}

// run executes an indicator operation with a bounded timeout.
func (i *Indicator) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		i.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (i *Indicator) playCue(kind cueKind) {
	if !i.cfg.SoundEnable {
		return
	}
	i.cueWG.Add(1)
	go func() {
		defer i.cueWG.Done()
		i.soundMu.Lock()
		defer i.soundMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := i.emit(ctx, kind); err != nil {
			i.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (i *Indicator) log(message string, err error) {
	if i.logger == nil || err == nil {
		return
	}
	i.logger.Debug(message, "error", err.Error())
}
