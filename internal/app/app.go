package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/signstream/internal/cli"
	"github.com/rbright/signstream/internal/config"
	"github.com/rbright/signstream/internal/doctor"
	"github.com/rbright/signstream/internal/indicator"
	"github.com/rbright/signstream/internal/ipc"
	"github.com/rbright/signstream/internal/logging"
	"github.com/rbright/signstream/internal/output"
	"github.com/rbright/signstream/internal/session"
	"github.com/rbright/signstream/internal/version"
)

const binaryName = "signstream"

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logOpts := logging.Options{Level: logging.ParseLevel(cfgLoaded.Config.Log.Level)}
	if parsed.Verbose || cfgLoaded.Config.Log.Console {
		logOpts.Console = r.Stderr
	}
	if parsed.Verbose && logOpts.Level > slog.LevelDebug {
		logOpts.Level = slog.LevelDebug
	}
	logRuntime, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop, "")
	case cli.CommandAutoSpeak:
		return r.forwardOrFail(ctx, ipc.CommandAutoSpeak, parsed.Arg)
	case cli.CommandReplay:
		return r.forwardOrFail(ctx, ipc.CommandReplay, parsed.Arg)
	case cli.CommandHistory:
		return r.forwardOrFail(ctx, ipc.CommandHistory, parsed.Arg)
	case cli.CommandCurrent:
		return r.forwardOrFail(ctx, ipc.CommandCurrent, "")
	case cli.CommandFlush:
		return r.forwardOrFail(ctx, ipc.CommandFlush, "")
	case cli.CommandSilence:
		return r.forwardOrFail(ctx, ipc.CommandSilence, "")
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if !handled {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message == "" {
		resp.Message = resp.State
	}
	if resp.Message == "" {
		resp.Message = "not running"
	}
	r.printResponse(resp)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string, arg string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: command, Arg: arg})
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active signstream session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	r.printResponse(resp)
	return 0
}

func (r Runner) printResponse(resp ipc.Response) {
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	for _, line := range resp.Lines {
		fmt.Fprintln(r.Stdout, line)
	}
}

// commandRun is the owner path: it holds the session socket until the
// session ends.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, func(path string) {
		logger.Warn("removed stale session socket", "path", path)
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	engine, err := buildSpeechEngine(cfg.Speech)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	capturer, err := buildCapturer(cfg.Producer)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	presenter := indicator.New(cfg.Indicator, r.Stdout, logger)
	recognizer := session.NewRecognizer(recognizerOptions(cfg), session.Dependencies{
		Dialer:    buildDialer(cfg.Recognizer),
		Capturer:  capturer,
		Engine:    engine,
		Presenter: presenter,
		Committer: output.NewClipboard(cfg.Clipboard, logger),
		Logger:    logger,
	})

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, recognizer)
	}()

	result := recognizer.Run(ctx)
	serverCancel()
	serverErr := <-serverErrCh

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	presenter.Dismiss(cleanupCtx)
	cancel()
	presenter.Wait()

	logSessionResult(logger, result)
	if serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	fmt.Fprintf(r.Stdout, "session ended: sentences=%d frames=%d skipped=%d failed=%d\n",
		result.Sentences, result.Frames.Sent, result.Frames.Skipped, result.Frames.Failed)
	return 0
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"endpoint", result.Endpoint,
		"interrupted", result.Interrupted,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"sentences", result.Sentences,
		"frames_sent", result.Frames.Sent,
		"frames_skipped", result.Frames.Skipped,
		"frames_failed", result.Frames.Failed,
	}

	if result.LastError != "" {
		logger.Warn("session complete with errors", append(fields, "last_error", result.LastError)...)
		return
	}
	logger.Info("session complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if errors.Is(err, ipc.ErrNoOwner) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
