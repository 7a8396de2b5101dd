package speech

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	espeakBasePitch = 50
	espeakBaseRate  = 175
)

// CommandEngine speaks by running an external TTS program per utterance.
//
// Argv entries may contain {text}, {language}, {pitch} and {rate}
// placeholders. Without {text}, the utterance is written to stdin.
type CommandEngine struct {
	argv []string
}

// NewCommandEngine builds an engine from parsed argv.
func NewCommandEngine(argv []string) (*CommandEngine, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("speech command argv cannot be empty")
	}
	return &CommandEngine{argv: append([]string(nil), argv...)}, nil
}

// Speak runs the configured command until it exits or ctx is cancelled.
func (e *CommandEngine) Speak(ctx context.Context, u Utterance, started func()) error {
	if strings.TrimSpace(u.Text) == "" {
		return ErrEmptyText
	}

	args, useStdin := expandArgv(e.argv, u)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.WaitDelay = 250 * time.Millisecond
	if useStdin {
		cmd.Stdin = strings.NewReader(u.Text)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start speech command %s: %w", args[0], err)
	}
	if started != nil {
		started()
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return fmt.Errorf("wait for %s: %w", args[0], err)
		}
		return fmt.Errorf("wait for %s: %w (%s)", args[0], err, detail)
	}
	return nil
}

// expandArgv substitutes utterance placeholders and reports whether text
// must be delivered over stdin.
func expandArgv(argv []string, u Utterance) ([]string, bool) {
	replacer := strings.NewReplacer(
		"{text}", u.Text,
		"{language}", u.Language,
		"{pitch}", strconv.Itoa(espeakPitch(u.Pitch)),
		"{rate}", strconv.Itoa(espeakRate(u.Rate)),
	)

	out := make([]string, 0, len(argv))
	hasText := false
	for _, arg := range argv {
		if strings.Contains(arg, "{text}") {
			hasText = true
		}
		out = append(out, replacer.Replace(arg))
	}
	return out, !hasText
}

// espeakPitch maps a 1.0-centred multiplier onto espeak's 0..99 scale.
func espeakPitch(pitch float64) int {
	if pitch <= 0 {
		pitch = 1
	}
	v := int(math.Round(pitch * espeakBasePitch))
	return min(max(v, 0), 99)
}

// espeakRate maps a 1.0-centred multiplier onto words per minute.
func espeakRate(rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	v := int(math.Round(rate * espeakBaseRate))
	return min(max(v, 80), 450)
}
