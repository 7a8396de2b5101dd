// Package output applies finalized-sentence side effects outside the process.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/signstream/internal/config"
)

const clipboardTimeout = 2 * time.Second

// Clipboard copies finalized sentences through an external clipboard command.
type Clipboard struct {
	config config.ClipboardConfig
	logger *slog.Logger
}

// NewClipboard constructs a clipboard committer from runtime config.
func NewClipboard(cfg config.ClipboardConfig, logger *slog.Logger) *Clipboard {
	return &Clipboard{config: cfg, logger: logger}
}

// Enabled reports whether sentences should be copied.
func (c *Clipboard) Enabled() bool {
	return c != nil && c.config.Enable && len(c.config.Cmd.Argv) > 0
}

// Commit writes text to the clipboard. Disabled clipboards and blank text are no-ops.
func (c *Clipboard) Commit(ctx context.Context, text string) error {
	if !c.Enabled() || strings.TrimSpace(text) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(ctx, c.config.Cmd.Argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("sentence copied to clipboard", "chars", len(text))
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("wait for %s: %w (%s)", argv[0], err, msg)
		}
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
