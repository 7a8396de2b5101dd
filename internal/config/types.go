// Package config resolves, parses, validates, and defaults signstream configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by signstream.
type Config struct {
	Recognizer RecognizerConfig
	Producer   ProducerConfig
	Transcript TranscriptConfig
	Speech     SpeechConfig
	History    HistoryConfig
	Indicator  IndicatorConfig
	Clipboard  ClipboardConfig
	Log        LogConfig
}

// RecognizerConfig controls the persistent connection to the recognition server.
type RecognizerConfig struct {
	Endpoint            string
	ReconnectDelayMS    int
	MaxReconnectDelayMS int
	DialTimeoutMS       int
	WriteTimeoutMS      int
}

// ProducerConfig controls how frames are captured and encoded.
type ProducerConfig struct {
	IntervalMS       int
	Source           string
	Capture          CommandConfig
	Directory        string
	Encoding         string
	CaptureTimeoutMS int
}

// TranscriptConfig controls how inbound tokens become sentences.
type TranscriptConfig struct {
	Sentinel     string
	Protocol     string
	IgnoreTokens []string
	IdleFlushMS  int
}

// SpeechConfig controls the text-to-speech backend and utterance defaults.
type SpeechConfig struct {
	Backend    string
	Command    CommandConfig
	Language   string
	Pitch      float64
	Rate       float64
	AutoSpeak  bool
	DebounceMS int
	ElevenLabs ElevenLabsConfig
}

type ElevenLabsConfig struct {
	APIKey  string
	VoiceID string
	ModelID string
}

type HistoryConfig struct {
	MaxEntries int
}

// IndicatorConfig controls status rendering and audio cue behavior.
type IndicatorConfig struct {
	Enable                bool
	Backend               string
	DesktopAppName        string
	SoundEnable           bool
	SoundConnectedFile    string
	SoundDisconnectedFile string
	SoundSentenceFile     string
	ErrorTimeoutMS        int
}

// ClipboardConfig controls copying finalized sentences to the clipboard.
type ClipboardConfig struct {
	Enable bool
	Cmd    CommandConfig
}

type LogConfig struct {
	Console bool
	Level   string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// Millis converts a millisecond config value to a duration.
func Millis(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
