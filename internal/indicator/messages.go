package indicator

import (
	"os"
	"strings"

	"github.com/rbright/signstream/internal/fsm"
)

type locale string

const (
	localeEnglish locale = "en"
)

type messages struct {
	connecting    string
	connected     string
	disconnected  string
	closing       string
	failed        string
	sentenceTitle string
	speaking      string
	speechDone    string
	errorText     string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			connecting:    "Connecting to recognizer…",
			connected:     "Connected to recognizer",
			disconnected:  "Recognizer disconnected",
			closing:       "Closing recognizer connection…",
			failed:        "Recognizer connection failed",
			sentenceTitle: "Sentence recognized",
			speaking:      "speaking…",
			speechDone:    "done",
			errorText:     "Sign recognition error",
		}
	}
}

func (m messages) connectionText(state fsm.State) string {
	switch state {
	case fsm.StateConnecting:
		return m.connecting
	case fsm.StateConnected:
		return m.connected
	case fsm.StateClosing:
		return m.closing
	case fsm.StateError:
		return m.failed
	default:
		return m.disconnected
	}
}
