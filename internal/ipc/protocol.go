// Package ipc carries JSON-line commands between signstream clients and the
// owning session over a unix socket.
package ipc

// Session commands understood by the owner process.
const (
	CommandStatus    = "status"
	CommandStop      = "stop"
	CommandAutoSpeak = "autospeak"
	CommandReplay    = "replay"
	CommandHistory   = "history"
	CommandFlush     = "flush"
	CommandCurrent   = "current"
	CommandSilence   = "silence"
)

type Request struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
}

type Response struct {
	OK      bool     `json:"ok"`
	State   string   `json:"state,omitempty"`
	Message string   `json:"message,omitempty"`
	Lines   []string `json:"lines,omitempty"`
	Error   string   `json:"error,omitempty"`
}
