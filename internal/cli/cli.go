package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun       Command = "run"
	CommandStatus    Command = "status"
	CommandStop      Command = "stop"
	CommandAutoSpeak Command = "autospeak"
	CommandReplay    Command = "replay"
	CommandHistory   Command = "history"
	CommandCurrent   Command = "current"
	CommandFlush     Command = "flush"
	CommandSilence   Command = "silence"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

// validCommands maps each command to whether it accepts one positional argument.
var validCommands = map[Command]bool{
	CommandRun:       false,
	CommandStatus:    false,
	CommandStop:      false,
	CommandAutoSpeak: true,
	CommandReplay:    true,
	CommandHistory:   true,
	CommandCurrent:   false,
	CommandFlush:     false,
	CommandSilence:   false,
	CommandDoctor:    false,
	CommandVersion:   false,
	CommandHelp:      false,
}

type Parsed struct {
	Command    Command
	Arg        string
	ConfigPath string
	Verbose    bool
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	haveCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") && !haveCommand {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			if haveCommand {
				if !validCommands[parsed.Command] {
					return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
				}
				if parsed.Arg != "" {
					return Parsed{}, fmt.Errorf("command %q takes at most one argument", parsed.Command)
				}
				parsed.Arg = arg
				continue
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			haveCommand = true
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--verbose] <command> [arg]

Commands:
  run                        Connect to the recognizer and stream camera frames
  status                     Print connection state of the running session
  stop                       Stop the running session
  autospeak [on|off|toggle]  Change whether finished sentences are spoken
  replay [ID]                Speak a sentence from history again (default: newest)
  history [N]                List recognized sentences, newest first
  current                    Print the sentence being assembled
  flush                      Finalize the sentence being assembled
  silence                    Stop the utterance currently playing
  doctor                     Run configuration and environment checks
  version                    Print version information
  help                       Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/signstream/config.jsonc)
  -v, --verbose   Mirror logs to stderr
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
