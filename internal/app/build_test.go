package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/signstream/internal/audio"
	"github.com/rbright/signstream/internal/config"
	"github.com/rbright/signstream/internal/producer"
	"github.com/rbright/signstream/internal/speech"
	"github.com/rbright/signstream/internal/transcript"
	"github.com/stretchr/testify/require"
)

func TestRecognizerOptionsMapsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Recognizer.Endpoint = "ws://recognizer.local:9000"
	cfg.Recognizer.MaxReconnectDelayMS = 30000
	cfg.Producer.Encoding = "raw"
	cfg.Transcript.Protocol = "json"
	cfg.Transcript.IgnoreTokens = []string{"<pad>"}
	cfg.Transcript.IdleFlushMS = 4000
	cfg.Speech.AutoSpeak = false
	cfg.History.MaxEntries = 50

	opts := recognizerOptions(cfg)

	require.Equal(t, "ws://recognizer.local:9000", opts.Transport.Endpoint)
	require.Equal(t, 3*time.Second, opts.Transport.ReconnectDelay)
	require.Equal(t, 30*time.Second, opts.Transport.MaxReconnectDelay)
	require.Equal(t, 5*time.Second, opts.Transport.DialTimeout)

	require.Equal(t, 200*time.Millisecond, opts.Producer.Interval)
	require.Equal(t, producer.Encoding("raw"), opts.Producer.Encoding)

	require.Equal(t, "END.", opts.Transcript.Sentinel)
	require.Equal(t, transcript.Protocol("json"), opts.Transcript.Protocol)
	require.Equal(t, []string{"<pad>"}, opts.Transcript.IgnoreTokens)
	require.Equal(t, 4*time.Second, opts.Transcript.IdleFlush)

	require.Equal(t, "en-US", opts.Speech.Language)
	require.False(t, opts.Speech.AutoSpeak)
	require.Equal(t, 250*time.Millisecond, opts.Speech.Debounce)

	require.Equal(t, 50, opts.HistoryMax)
}

func TestBuildDialerUsesRecognizerTimeouts(t *testing.T) {
	dialer := buildDialer(config.RecognizerConfig{DialTimeoutMS: 1500, WriteTimeoutMS: 700})
	require.Equal(t, 1500*time.Millisecond, dialer.HandshakeTimeout)
	require.Equal(t, 700*time.Millisecond, dialer.WriteTimeout)
}

func TestBuildSpeechEngineBackends(t *testing.T) {
	cfg := config.Default().Speech

	cfg.Backend = "none"
	engine, err := buildSpeechEngine(cfg)
	require.NoError(t, err)
	require.IsType(t, speech.NopEngine{}, engine)

	cfg.Backend = "command"
	engine, err = buildSpeechEngine(cfg)
	require.NoError(t, err)
	require.IsType(t, &speech.CommandEngine{}, engine)

	cfg.Backend = "elevenlabs"
	cfg.ElevenLabs.APIKey = "key"
	cfg.ElevenLabs.VoiceID = "voice"
	engine, err = buildSpeechEngine(cfg)
	require.NoError(t, err)
	eleven, ok := engine.(*speech.ElevenLabsEngine)
	require.True(t, ok)
	require.Equal(t, "voice", eleven.VoiceID)
	require.Equal(t, speech.DefaultElevenLabsTimeout, eleven.Timeout)
	require.Equal(t, audio.Playback{AppName: binaryName, MediaName: "signstream speech"}, eleven.Player)
}

func TestBuildSpeechEngineErrors(t *testing.T) {
	_, err := buildSpeechEngine(config.SpeechConfig{Backend: "command"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "speech backend:")

	_, err = buildSpeechEngine(config.SpeechConfig{Backend: "festival"})
	require.Error(t, err)
	require.Contains(t, err.Error(), `unsupported speech.backend "festival"`)
}

func TestBuildCapturerSources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte{0xff, 0xd8}, 0o644))

	capturer, err := buildCapturer(config.ProducerConfig{Source: "directory", Directory: dir})
	require.NoError(t, err)
	require.IsType(t, &producer.DirectoryCapturer{}, capturer)

	capturer, err = buildCapturer(config.ProducerConfig{
		Source:           "command",
		Capture:          config.CommandConfig{Argv: []string{"cat", "frame.jpg"}},
		CaptureTimeoutMS: 900,
	})
	require.NoError(t, err)
	require.Equal(t, producer.CommandCapturer{Argv: []string{"cat", "frame.jpg"}, Timeout: 900 * time.Millisecond}, capturer)
}

func TestBuildCapturerErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ProducerConfig
		wantErr string
	}{
		{name: "empty directory", cfg: config.ProducerConfig{Source: "directory", Directory: t.TempDir()}, wantErr: "no jpeg frames"},
		{name: "empty command", cfg: config.ProducerConfig{Source: "command"}, wantErr: "capture_cmd is empty"},
		{name: "unknown source", cfg: config.ProducerConfig{Source: "rtsp"}, wantErr: `unsupported producer.source "rtsp"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildCapturer(tc.cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), "frame source:")
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
