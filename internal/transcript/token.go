package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Protocol selects how inbound recognizer payloads are framed.
type Protocol string

const (
	// ProtocolText treats every payload as one bare word or the sentinel.
	ProtocolText Protocol = "text"
	// ProtocolJSON expects {"type":"word","text":...} or {"type":"end"} frames.
	ProtocolJSON Protocol = "json"
)

// DefaultSentinel marks end-of-sentence in the text protocol.
const DefaultSentinel = "END."

// Token is one recognized unit after framing is removed.
type Token struct {
	Text string
	End  bool
}

type jsonFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseToken decodes one inbound payload into a token.
func ParseToken(raw string, protocol Protocol, sentinel string) (Token, error) {
	switch protocol {
	case "", ProtocolText:
		text := strings.TrimSpace(raw)
		if IsSentinel(text, sentinel) {
			return Token{End: true}, nil
		}
		return Token{Text: text}, nil
	case ProtocolJSON:
		var frame jsonFrame
		if err := json.Unmarshal([]byte(raw), &frame); err != nil {
			return Token{}, fmt.Errorf("decode token frame: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(frame.Type)) {
		case "word":
			return Token{Text: strings.TrimSpace(frame.Text)}, nil
		case "end":
			return Token{End: true}, nil
		default:
			return Token{}, fmt.Errorf("unknown token frame type %q", frame.Type)
		}
	default:
		return Token{}, fmt.Errorf("unsupported token protocol %q", protocol)
	}
}

// IsSentinel reports whether token matches sentinel, ignoring case and surrounding space.
func IsSentinel(token string, sentinel string) bool {
	sentinel = strings.TrimSpace(sentinel)
	if sentinel == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(token), sentinel)
}
