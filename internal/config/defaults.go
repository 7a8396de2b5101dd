package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	capture := "ffmpeg -hide_banner -loglevel error -f v4l2 -i /dev/video0 -frames:v 1 -f mjpeg -"
	speak := "espeak-ng -v {language} -p {pitch} -s {rate} {text}"
	clipboard := "wl-copy --trim-newline"

	return Config{
		Recognizer: RecognizerConfig{
			Endpoint:         "ws://127.0.0.1:8765",
			ReconnectDelayMS: 3000,
			DialTimeoutMS:    5000,
			WriteTimeoutMS:   2000,
		},
		Producer: ProducerConfig{
			IntervalMS:       200,
			Source:           "command",
			Capture:          CommandConfig{Raw: capture, Argv: mustParseArgv(capture)},
			Encoding:         "base64",
			CaptureTimeoutMS: 2000,
		},
		Transcript: TranscriptConfig{
			Sentinel: "END.",
			Protocol: "text",
		},
		Speech: SpeechConfig{
			Backend:    "command",
			Command:    CommandConfig{Raw: speak, Argv: mustParseArgv(speak)},
			Language:   "en-US",
			Pitch:      1.0,
			Rate:       1.0,
			AutoSpeak:  true,
			DebounceMS: 250,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "console",
			DesktopAppName: "signstream",
			SoundEnable:    false,
			ErrorTimeoutMS: 1600,
		},
		Clipboard: ClipboardConfig{
			Enable: false,
			Cmd:    CommandConfig{Raw: clipboard, Argv: mustParseArgv(clipboard)},
		},
		Log: LogConfig{Level: "info"},
	}
}
