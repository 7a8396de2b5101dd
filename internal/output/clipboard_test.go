package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/signstream/internal/config"
	"github.com/stretchr/testify/require"
)

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")

	err := runCommandWithInput(context.Background(), []string{scriptPath, outputPath}, "hello from signstream")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello from signstream", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func TestClipboardCommitWritesSentence(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	clip := NewClipboard(config.ClipboardConfig{
		Enable: true,
		Cmd:    config.CommandConfig{Argv: []string{scriptPath, clipboardPath}},
	}, nil)
	require.True(t, clip.Enabled())
	require.NoError(t, clip.Commit(context.Background(), "good morning"))

	data, err := os.ReadFile(clipboardPath)
	require.NoError(t, err)
	require.Equal(t, "good morning", string(data))
}

func TestClipboardCommitSkipsWhenDisabledOrBlank(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")
	cmd := config.CommandConfig{Argv: []string{scriptPath, clipboardPath}}

	disabled := NewClipboard(config.ClipboardConfig{Enable: false, Cmd: cmd}, nil)
	require.False(t, disabled.Enabled())
	require.NoError(t, disabled.Commit(context.Background(), "hello"))

	enabled := NewClipboard(config.ClipboardConfig{Enable: true, Cmd: cmd}, nil)
	require.NoError(t, enabled.Commit(context.Background(), "   "))

	_, statErr := os.Stat(clipboardPath)
	require.True(t, os.IsNotExist(statErr))

	var nilClip *Clipboard
	require.False(t, nilClip.Enabled())
	require.NoError(t, nilClip.Commit(context.Background(), "hello"))
}

func TestClipboardCommitReturnsErrorWhenCommandFails(t *testing.T) {
	failScript := writeFailScript(t, "clipboard failed")

	clip := NewClipboard(config.ClipboardConfig{
		Enable: true,
		Cmd:    config.CommandConfig{Argv: []string{failScript}},
	}, nil)
	err := clip.Commit(context.Background(), "good morning")
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")
	require.Contains(t, err.Error(), "clipboard failed")
}

func TestDefaultClipboardCommandIsDisabled(t *testing.T) {
	cfg := config.Default()
	clip := NewClipboard(cfg.Clipboard, nil)
	require.False(t, clip.Enabled())
	require.Equal(t, []string{"wl-copy", "--trim-newline"}, cfg.Clipboard.Cmd.Argv)
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "capture-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat > "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho " + "\"" + message + "\"" + " >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
