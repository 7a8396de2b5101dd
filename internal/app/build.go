package app

import (
	"fmt"

	"github.com/rbright/signstream/internal/audio"
	"github.com/rbright/signstream/internal/config"
	"github.com/rbright/signstream/internal/producer"
	"github.com/rbright/signstream/internal/session"
	"github.com/rbright/signstream/internal/speech"
	"github.com/rbright/signstream/internal/transcript"
	"github.com/rbright/signstream/internal/transport"
)

// recognizerOptions maps runtime config onto session component options.
func recognizerOptions(cfg config.Config) session.Options {
	return session.Options{
		Transport: transport.Options{
			Endpoint:          cfg.Recognizer.Endpoint,
			ReconnectDelay:    config.Millis(cfg.Recognizer.ReconnectDelayMS),
			MaxReconnectDelay: config.Millis(cfg.Recognizer.MaxReconnectDelayMS),
			DialTimeout:       config.Millis(cfg.Recognizer.DialTimeoutMS),
		},
		Producer: producer.Options{
			Interval: config.Millis(cfg.Producer.IntervalMS),
			Encoding: producer.Encoding(cfg.Producer.Encoding),
		},
		Transcript: transcript.Options{
			Sentinel:     cfg.Transcript.Sentinel,
			Protocol:     transcript.Protocol(cfg.Transcript.Protocol),
			IgnoreTokens: cfg.Transcript.IgnoreTokens,
			IdleFlush:    config.Millis(cfg.Transcript.IdleFlushMS),
		},
		Speech: speech.Options{
			Language:  cfg.Speech.Language,
			Pitch:     cfg.Speech.Pitch,
			Rate:      cfg.Speech.Rate,
			AutoSpeak: cfg.Speech.AutoSpeak,
			Debounce:  config.Millis(cfg.Speech.DebounceMS),
		},
		HistoryMax: cfg.History.MaxEntries,
	}
}

func buildDialer(cfg config.RecognizerConfig) transport.WebSocketDialer {
	return transport.WebSocketDialer{
		HandshakeTimeout: config.Millis(cfg.DialTimeoutMS),
		WriteTimeout:     config.Millis(cfg.WriteTimeoutMS),
	}
}

func buildCapturer(cfg config.ProducerConfig) (producer.Capturer, error) {
	switch cfg.Source {
	case "directory":
		capturer, err := producer.NewDirectoryCapturer(cfg.Directory)
		if err != nil {
			return nil, fmt.Errorf("frame source: %w", err)
		}
		return capturer, nil
	case "", "command":
		if len(cfg.Capture.Argv) == 0 {
			return nil, fmt.Errorf("frame source: producer.capture_cmd is empty")
		}
		return producer.CommandCapturer{
			Argv:    cfg.Capture.Argv,
			Timeout: config.Millis(cfg.CaptureTimeoutMS),
		}, nil
	default:
		return nil, fmt.Errorf("frame source: unsupported producer.source %q", cfg.Source)
	}
}

func buildSpeechEngine(cfg config.SpeechConfig) (speech.Engine, error) {
	switch cfg.Backend {
	case "none":
		return speech.NopEngine{}, nil
	case "elevenlabs":
		return &speech.ElevenLabsEngine{
			APIKey:  cfg.ElevenLabs.APIKey,
			VoiceID: cfg.ElevenLabs.VoiceID,
			ModelID: cfg.ElevenLabs.ModelID,
			Timeout: speech.DefaultElevenLabsTimeout,
			Player:  audio.Playback{AppName: binaryName, MediaName: "signstream speech"},
		}, nil
	case "", "command":
		engine, err := speech.NewCommandEngine(cfg.Command.Argv)
		if err != nil {
			return nil, fmt.Errorf("speech backend: %w", err)
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("speech backend: unsupported speech.backend %q", cfg.Backend)
	}
}
