package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	recognizerWarnings, err := validateRecognizer(cfg.Recognizer)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, recognizerWarnings...)

	if err := validateProducer(cfg.Producer); err != nil {
		return nil, err
	}

	transcriptWarnings, err := validateTranscript(cfg.Transcript)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, transcriptWarnings...)

	if err := validateSpeech(cfg.Speech); err != nil {
		return nil, err
	}

	if cfg.History.MaxEntries < 0 {
		return nil, fmt.Errorf("history.max_entries must be >= 0")
	}

	backend := cfg.Indicator.Backend
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "console" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: console, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Clipboard.Enable && len(cfg.Clipboard.Cmd.Argv) == 0 {
		return nil, fmt.Errorf("clipboard.cmd must not be empty when clipboard.enable=true")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}

func validateRecognizer(cfg RecognizerConfig) ([]Warning, error) {
	var warnings []Warning

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("recognizer.endpoint must not be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("recognizer.endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("recognizer.endpoint must use ws:// or wss://")
	}
	if u.Host == "" {
		return nil, fmt.Errorf("recognizer.endpoint must include a host")
	}

	if cfg.ReconnectDelayMS <= 0 {
		return nil, fmt.Errorf("recognizer.reconnect_delay_ms must be > 0")
	}
	if cfg.ReconnectDelayMS < 100 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("recognizer.reconnect_delay_ms=%d is below the 100ms floor; using 100ms", cfg.ReconnectDelayMS)})
	}
	if cfg.MaxReconnectDelayMS < 0 {
		return nil, fmt.Errorf("recognizer.max_reconnect_delay_ms must be >= 0")
	}
	if cfg.MaxReconnectDelayMS > 0 && cfg.MaxReconnectDelayMS <= cfg.ReconnectDelayMS {
		warnings = append(warnings, Warning{Message: "recognizer.max_reconnect_delay_ms does not exceed reconnect_delay_ms; reconnect delay stays constant"})
	}
	if cfg.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.dial_timeout_ms must be > 0")
	}
	if cfg.WriteTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.write_timeout_ms must be > 0")
	}
	return warnings, nil
}

func validateProducer(cfg ProducerConfig) error {
	if cfg.IntervalMS <= 0 {
		return fmt.Errorf("producer.interval_ms must be > 0")
	}
	switch cfg.Source {
	case "command":
		if len(cfg.Capture.Argv) == 0 {
			return fmt.Errorf("producer.capture_cmd must not be empty when producer.source=command")
		}
	case "directory":
		if strings.TrimSpace(cfg.Directory) == "" {
			return fmt.Errorf("producer.directory must not be empty when producer.source=directory")
		}
	default:
		return fmt.Errorf("producer.source must be one of: command, directory")
	}
	if cfg.Encoding != "base64" && cfg.Encoding != "raw" {
		return fmt.Errorf("producer.encoding must be one of: base64, raw")
	}
	if cfg.CaptureTimeoutMS <= 0 {
		return fmt.Errorf("producer.capture_timeout_ms must be > 0")
	}
	return nil
}

func validateTranscript(cfg TranscriptConfig) ([]Warning, error) {
	var warnings []Warning

	switch cfg.Protocol {
	case "text":
		if cfg.Sentinel == "" {
			return nil, fmt.Errorf("transcript.sentinel must not be empty when transcript.protocol=text")
		}
	case "json":
	default:
		return nil, fmt.Errorf("transcript.protocol must be one of: text, json")
	}
	if cfg.IdleFlushMS < 0 {
		return nil, fmt.Errorf("transcript.idle_flush_ms must be >= 0")
	}
	if slices.ContainsFunc(cfg.IgnoreTokens, func(token string) bool { return strings.EqualFold(token, cfg.Sentinel) }) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("transcript.ignore_tokens contains the sentinel %q; sentences will never finalize", cfg.Sentinel)})
	}
	return warnings, nil
}

func validateSpeech(cfg SpeechConfig) error {
	switch cfg.Backend {
	case "none":
		return nil
	case "command":
		if len(cfg.Command.Argv) == 0 {
			return fmt.Errorf("speech.command must not be empty when speech.backend=command")
		}
	case "elevenlabs":
		if cfg.ElevenLabs.APIKey == "" {
			return fmt.Errorf("speech.elevenlabs.api_key or %s is required when speech.backend=elevenlabs", EnvElevenLabsKey)
		}
		if cfg.ElevenLabs.VoiceID == "" {
			return fmt.Errorf("speech.elevenlabs.voice_id or %s is required when speech.backend=elevenlabs", EnvElevenLabsVoice)
		}
	default:
		return fmt.Errorf("speech.backend must be one of: command, elevenlabs, none")
	}

	if strings.TrimSpace(cfg.Language) == "" {
		return fmt.Errorf("speech.language must not be empty")
	}
	if cfg.Pitch <= 0 || cfg.Pitch > 2 {
		return fmt.Errorf("speech.pitch must be in (0, 2]")
	}
	if cfg.Rate <= 0 || cfg.Rate > 4 {
		return fmt.Errorf("speech.rate must be in (0, 4]")
	}
	if cfg.DebounceMS < 0 {
		return fmt.Errorf("speech.debounce_ms must be >= 0")
	}
	return nil
}
