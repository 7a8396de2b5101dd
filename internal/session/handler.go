package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rbright/signstream/internal/indicator"
	"github.com/rbright/signstream/internal/ipc"
	"github.com/rbright/signstream/internal/transcript"
)

// Handle serves IPC commands for the active owner session.
func (r *Recognizer) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	state := string(r.transport.State())
	arg := strings.TrimSpace(req.Arg)

	switch req.Command {
	case ipc.CommandStatus:
		return r.status()
	case ipc.CommandStop:
		if r.requestStop() {
			return ipc.Response{OK: true, State: state, Message: "stop requested"}
		}
		return ipc.Response{OK: true, State: state, Message: "stop already requested"}
	case ipc.CommandAutoSpeak:
		return r.autoSpeak(state, arg)
	case ipc.CommandReplay:
		return r.replay(ctx, state, arg)
	case ipc.CommandHistory:
		return r.listHistory(state, arg)
	case ipc.CommandFlush:
		sentence, ok := r.assembler.Flush(ctx)
		if !ok {
			return ipc.Response{OK: true, State: state, Message: "nothing to flush"}
		}
		return ipc.Response{OK: true, State: state, Message: indicator.FormatSentence(sentence)}
	case ipc.CommandCurrent:
		return ipc.Response{OK: true, State: state, Message: r.assembler.Current()}
	case ipc.CommandSilence:
		speaking := r.speech.IsSpeaking()
		r.speech.Stop()
		if !speaking {
			return ipc.Response{OK: true, State: state, Message: "not speaking"}
		}
		return ipc.Response{OK: true, State: state, Message: "speech stopped"}
	default:
		return ipc.Response{OK: false, State: state, Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (r *Recognizer) status() ipc.Response {
	st := r.transport.Status()
	resp := ipc.Response{
		OK:    true,
		State: string(st.State),
		Message: fmt.Sprintf(
			"%s sentences=%d autospeak=%s speaking=%s",
			st.State,
			r.history.Len(),
			onOff(r.speech.AutoSpeak()),
			yesNo(r.speech.IsSpeaking()),
		),
		Lines: []string{"endpoint: " + st.Endpoint},
	}
	if st.ConnID != "" {
		resp.Lines = append(resp.Lines, "connection: "+st.ConnID)
	}
	if st.Retries > 0 {
		resp.Lines = append(resp.Lines, fmt.Sprintf("retries: %d", st.Retries))
	}
	if st.LastError != "" {
		resp.Lines = append(resp.Lines, "last error: "+st.LastError)
	}
	return resp
}

func (r *Recognizer) autoSpeak(state, arg string) ipc.Response {
	var enabled bool
	switch strings.ToLower(arg) {
	case "", "toggle":
		enabled = r.speech.ToggleAutoSpeak()
	case "on":
		r.speech.SetAutoSpeak(true)
		enabled = true
	case "off":
		r.speech.SetAutoSpeak(false)
	default:
		return ipc.Response{OK: false, State: state, Error: fmt.Sprintf("invalid autospeak value %q (want on|off|toggle)", arg)}
	}
	return ipc.Response{OK: true, State: state, Message: "autospeak=" + onOff(enabled)}
}

// replay speaks a stored sentence. An empty arg replays the newest one.
func (r *Recognizer) replay(ctx context.Context, state, arg string) ipc.Response {
	var (
		sentence transcript.Sentence
		ok       bool
	)
	if arg == "" {
		sentence, ok = r.history.Latest()
		if !ok {
			return ipc.Response{OK: false, State: state, Error: "history is empty"}
		}
	} else {
		id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
		if err != nil || id <= 0 {
			return ipc.Response{OK: false, State: state, Error: fmt.Sprintf("invalid sentence id %q", arg)}
		}
		sentence, ok = r.history.Find(id)
		if !ok {
			return ipc.Response{OK: false, State: state, Error: fmt.Sprintf("no sentence #%d", id)}
		}
	}

	if !r.history.Replay(ctx, sentence.ID, r.speech) {
		return ipc.Response{OK: false, State: state, Error: fmt.Sprintf("sentence #%d was not spoken", sentence.ID)}
	}
	return ipc.Response{OK: true, State: state, Message: "replaying " + indicator.FormatSentence(sentence)}
}

func (r *Recognizer) listHistory(state, arg string) ipc.Response {
	limit := 0
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return ipc.Response{OK: false, State: state, Error: fmt.Sprintf("invalid history limit %q", arg)}
		}
		limit = n
	}

	recent := r.history.Recent(limit)
	lines := make([]string, 0, len(recent))
	for _, sentence := range recent {
		lines = append(lines, indicator.FormatSentence(sentence))
	}
	return ipc.Response{
		OK:      true,
		State:   state,
		Message: fmt.Sprintf("%d of %d sentences", len(lines), r.history.Len()),
		Lines:   lines,
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
