// Package doctor runs runtime readiness diagnostics for config, tools, and the recognizer.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/signstream/internal/config"
	"github.com/rbright/signstream/internal/producer"
	"github.com/rbright/signstream/internal/transport"
)

const recognizerProbeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime dir is set", "XDG_RUNTIME_DIR is empty; the session socket cannot be created"))

	checks = append(checks, checkFrameSource(cfg.Config.Producer))
	checks = append(checks, checkSpeech(cfg.Config.Speech))

	if cfg.Config.Clipboard.Enable {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Cmd.Argv, "clipboard.cmd"))
	}
	if cfg.Config.Indicator.Enable && cfg.Config.Indicator.Backend == "desktop" {
		checks = append(checks, checkBinary("busctl", "desktop notifications require busctl"))
	}

	checks = append(checks, checkRecognizer(cfg.Config.Recognizer, transport.WebSocketDialer{
		HandshakeTimeout: recognizerProbeTimeout,
	}))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkFrameSource(cfg config.ProducerConfig) Check {
	if cfg.Source != "directory" {
		return checkCommand(cfg.Capture.Argv, "producer.capture_cmd")
	}

	frames, err := producer.ListFrames(cfg.Directory)
	if err != nil {
		return Check{Name: "producer.directory", Pass: false, Message: err.Error()}
	}
	if len(frames) == 0 {
		return Check{Name: "producer.directory", Pass: false, Message: fmt.Sprintf("no jpeg frames in %q", cfg.Directory)}
	}
	return Check{Name: "producer.directory", Pass: true, Message: fmt.Sprintf("%d frames in %q", len(frames), cfg.Directory)}
}

func checkSpeech(cfg config.SpeechConfig) Check {
	switch cfg.Backend {
	case "none":
		return Check{Name: "speech", Pass: true, Message: "speech output disabled"}
	case "elevenlabs":
		var missing []string
		if strings.TrimSpace(cfg.ElevenLabs.APIKey) == "" {
			missing = append(missing, "api key")
		}
		if strings.TrimSpace(cfg.ElevenLabs.VoiceID) == "" {
			missing = append(missing, "voice id")
		}
		if len(missing) > 0 {
			return Check{Name: "speech.elevenlabs", Pass: false, Message: "missing " + strings.Join(missing, " and ")}
		}
		return Check{Name: "speech.elevenlabs", Pass: true, Message: fmt.Sprintf("voice %q configured", cfg.ElevenLabs.VoiceID)}
	default:
		return checkCommand(cfg.Command.Argv, "speech.command")
	}
}

// checkRecognizer performs one WebSocket handshake against the configured endpoint.
func checkRecognizer(cfg config.RecognizerConfig, dialer transport.Dialer) Check {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return Check{Name: "recognizer", Pass: false, Message: "recognizer.endpoint is empty"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), recognizerProbeTimeout)
	defer cancel()

	started := time.Now()
	conn, err := dialer.Dial(ctx, endpoint)
	if err != nil {
		return Check{Name: "recognizer", Pass: false, Message: err.Error()}
	}
	_ = conn.Close()
	return Check{
		Name:    "recognizer",
		Pass:    true,
		Message: fmt.Sprintf("handshake with %s in %dms", endpoint, time.Since(started).Milliseconds()),
	}
}
