package indicator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rbright/signstream/internal/config"
	"github.com/rbright/signstream/internal/fsm"
	"github.com/rbright/signstream/internal/transcript"
	"github.com/stretchr/testify/require"
)

func TestConsoleRenderingThroughIndicator(t *testing.T) {
	cfg := config.Default().Indicator
	var out bytes.Buffer
	ind := New(cfg, &out, nil)
	ctx := context.Background()

	ind.ShowConnection(ctx, fsm.StateConnecting, "ws://127.0.0.1:8765")
	ind.ShowConnection(ctx, fsm.StateConnected, "ws://127.0.0.1:8765")
	ind.ShowConnection(ctx, fsm.StateConnected, "ws://127.0.0.1:8765")
	ind.ShowPartial(ctx, "Hello")
	ind.ShowPartial(ctx, "Hello")
	ind.ShowPartial(ctx, "Hello world")
	ind.ShowSentence(ctx, transcript.Sentence{ID: 1, Text: "Hello world", CreatedAt: time.Date(2026, 1, 2, 9, 5, 7, 0, time.Local)})
	ind.ShowSpeaking(ctx, true)
	ind.ShowSpeaking(ctx, false)
	ind.ShowError(ctx, "")
	ind.ShowConnection(ctx, fsm.StateDisconnected, "ws://127.0.0.1:8765")

	require.Equal(t, strings.Join([]string{
		"status: Connecting to recognizer… ws://127.0.0.1:8765",
		"status: Connected to recognizer ws://127.0.0.1:8765",
		"... Hello",
		"... Hello world",
		"#1 [09:05:07] Hello world",
		"speech: speaking…",
		"speech: done",
		"error: Sign recognition error",
		"status: Recognizer disconnected",
	}, "\n")+"\n", out.String())
}

func TestDisabledIndicatorRendersNothing(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.Backend = "desktop"
	var out bytes.Buffer
	ind := New(cfg, &out, nil)
	notes := &recordingNotifier{}
	ind.notify = notes.notify

	ind.ShowConnection(context.Background(), fsm.StateConnected, "ws://x")
	ind.ShowPartial(context.Background(), "hi")
	ind.ShowSentence(context.Background(), transcript.Sentence{ID: 1, Text: "hi"})
	ind.ShowError(context.Background(), "boom")
	ind.Dismiss(context.Background())

	require.Empty(t, out.String())
	require.Empty(t, notes.snapshot())
}

func TestDesktopBackendReplacesNotification(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Backend = "desktop"
	cfg.DesktopAppName = "signstream-test"
	cfg.ErrorTimeoutMS = 0
	ind := New(cfg, nil, nil)
	notes := &recordingNotifier{nextID: 41}
	ind.notify = notes.notify
	var dismissed []uint32
	ind.dismiss = func(_ context.Context, id uint32) error {
		dismissed = append(dismissed, id)
		return nil
	}

	ctx := context.Background()
	ind.ShowConnection(ctx, fsm.StateConnecting, "ws://x")
	ind.ShowConnection(ctx, fsm.StateConnected, "ws://x")
	ind.ShowSentence(ctx, transcript.Sentence{ID: 1, Text: "good morning"})
	ind.ShowError(ctx, "camera unavailable")
	ind.ShowConnection(ctx, fsm.StateDisconnected, "ws://x")
	ind.Dismiss(ctx)
	ind.Dismiss(ctx)

	got := notes.snapshot()
	require.Len(t, got, 4)
	require.Equal(t, notification{appName: "signstream-test", replaceID: 0, summary: "Connected to recognizer", body: "ws://x", timeoutMS: 2500}, got[0])
	require.Equal(t, notification{appName: "signstream-test", replaceID: 42, summary: "Sentence recognized", body: "good morning", timeoutMS: 6000}, got[1])
	require.Equal(t, notification{appName: "signstream-test", replaceID: 43, summary: "Sign recognition error", body: "camera unavailable", timeoutMS: 1200}, got[2])
	require.Equal(t, "Recognizer disconnected", got[3].summary)
	require.Equal(t, []uint32{45}, dismissed)
}

func TestDesktopNotifyFailureIsLoggedNotPropagated(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Backend = "desktop"
	ind := New(cfg, nil, nil)
	ind.notify = func(context.Context, notification) (uint32, error) {
		return 0, errors.New("no notification daemon")
	}

	require.NotPanics(t, func() {
		ind.ShowSentence(context.Background(), transcript.Sentence{ID: 1, Text: "hi"})
	})
	require.Zero(t, ind.desktopNotificationID)
}

func TestCuesFollowConnectionTransitions(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.SoundEnable = true
	ind := New(cfg, nil, nil)

	var (
		mu    sync.Mutex
		kinds []cueKind
	)
	ind.emit = func(_ context.Context, kind cueKind) error {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, kind)
		return nil
	}

	ctx := context.Background()
	ind.ShowConnection(ctx, fsm.StateConnecting, "")
	ind.Wait()
	ind.ShowConnection(ctx, fsm.StateDisconnected, "")
	ind.Wait()
	ind.ShowConnection(ctx, fsm.StateConnecting, "")
	ind.Wait()
	ind.ShowConnection(ctx, fsm.StateConnected, "")
	ind.Wait()
	ind.ShowSentence(ctx, transcript.Sentence{ID: 1, Text: "hi"})
	ind.Wait()
	ind.ShowConnection(ctx, fsm.StateDisconnected, "")
	ind.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []cueKind{cueConnected, cueSentence, cueDisconnected}, kinds)
}

func TestDesktopNotifyUsesBusctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "${6:-}" == "Notify" ]]; then
  echo 'u 17'
fi
`)

	id, err := desktopNotify(context.Background(), notification{
		appName:   "signstream",
		replaceID: 3,
		summary:   "Sentence recognized",
		body:      "hello",
		timeoutMS: 6000,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(17), id)
	require.NoError(t, desktopDismiss(context.Background(), id))

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Notify susssasa{sv}i signstream 3 accessories-character-map Sentence recognized hello 0 0 6000")
	require.Contains(t, lines[1], "CloseNotification u 17")
}

func TestDesktopNotifyRejectsUnexpectedResponse(t *testing.T) {
	installBusctlStub(t, `
echo 'garbage'
`)

	_, err := desktopNotify(context.Background(), notification{appName: "signstream", summary: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid response")
}

type recordingNotifier struct {
	mu     sync.Mutex
	nextID uint32
	notes  []notification
}

func (r *recordingNotifier) notify(_ context.Context, n notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	r.nextID++
	return r.nextID, nil
}

func (r *recordingNotifier) snapshot() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.notes...)
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
