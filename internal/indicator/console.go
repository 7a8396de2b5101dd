package indicator

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rbright/signstream/internal/fsm"
	"github.com/rbright/signstream/internal/transcript"
)

// Console renders session state as plain lines. Writes are serialized.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	messages messages
	partial  string
}

func NewConsole(w io.Writer, msgs messages) *Console {
	return &Console{w: w, messages: msgs}
}

func (c *Console) Connection(state fsm.State, endpoint string) {
	line := c.messages.connectionText(state)
	if endpoint != "" && (state == fsm.StateConnecting || state == fsm.StateConnected) {
		line += " " + endpoint
	}
	c.println("status: " + line)
}

// Partial prints the live sentence when it changes.
func (c *Console) Partial(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == c.partial {
		return
	}
	c.partial = text
	if text == "" {
		return
	}
	fmt.Fprintf(c.w, "... %s\n", text)
}

func (c *Console) Sentence(s transcript.Sentence) {
	c.mu.Lock()
	c.partial = ""
	c.mu.Unlock()
	c.println(FormatSentence(s))
}

func (c *Console) Speaking(speaking bool) {
	if speaking {
		c.println("speech: " + c.messages.speaking)
		return
	}
	c.println("speech: " + c.messages.speechDone)
}

func (c *Console) Error(text string) {
	c.println("error: " + strings.TrimSpace(text))
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

// FormatSentence renders a history entry as "#id [hh:mm:ss] text".
func FormatSentence(s transcript.Sentence) string {
	return fmt.Sprintf("#%d [%s] %s", s.ID, s.Timestamp(), s.Text)
}
