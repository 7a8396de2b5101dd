// Package transcript turns the recognizer word stream into finalized sentences.
package transcript

import (
	"strings"
	"time"
)

// Sentence is one finalized utterance. It is never mutated after creation.
type Sentence struct {
	ID        int64
	Text      string
	CreatedAt time.Time
}

// Timestamp renders CreatedAt for display.
func (s Sentence) Timestamp() string {
	return s.CreatedAt.Format("15:04:05")
}

// Accumulate folds one token into buffer.
//
// It returns the next buffer and, when tok ends a non-empty sentence, the
// finalized text. Empty word tokens leave buffer untouched.
func Accumulate(buffer string, tok Token) (next string, final string, finalized bool) {
	if tok.End {
		final = strings.TrimSpace(buffer)
		return "", final, final != ""
	}

	text := strings.TrimSpace(tok.Text)
	if text == "" {
		return buffer, "", false
	}
	if buffer == "" {
		return text, "", false
	}
	return buffer + " " + text, "", false
}
