package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/haguro/elevenlabs-go"
)

const (
	DefaultElevenLabsModel   = "eleven_flash_v2_5"
	DefaultElevenLabsTimeout = 30 * time.Second
	elevenLabsSampleRate     = 16000
)

// Player renders signed 16-bit little-endian mono PCM.
type Player interface {
	Play(ctx context.Context, pcm io.Reader, sampleRate int) error
}

// ttsStreamer is the part of the elevenlabs client the engine drives.
type ttsStreamer interface {
	TextToSpeechStream(w io.Writer, voiceID string, req elevenlabs.TextToSpeechRequest, queries ...elevenlabs.QueryFunc) error
}

func newElevenLabsClient(ctx context.Context, apiKey string, timeout time.Duration) ttsStreamer {
	return elevenlabs.NewClient(ctx, apiKey, timeout)
}

// ElevenLabsEngine streams PCM from the ElevenLabs streaming endpoint into Player.
type ElevenLabsEngine struct {
	APIKey  string
	VoiceID string
	ModelID string
	// Timeout bounds one synthesis request; 0 uses DefaultElevenLabsTimeout.
	Timeout time.Duration
	Player  Player

	newClient func(ctx context.Context, apiKey string, timeout time.Duration) ttsStreamer
}

// Speak synthesizes u and plays it until the stream ends or ctx is cancelled.
// started fires when the first audio bytes arrive.
func (e *ElevenLabsEngine) Speak(ctx context.Context, u Utterance, started func()) error {
	if strings.TrimSpace(u.Text) == "" {
		return ErrEmptyText
	}
	if strings.TrimSpace(e.APIKey) == "" || strings.TrimSpace(e.VoiceID) == "" {
		return fmt.Errorf("elevenlabs: api key or voice id missing")
	}
	if e.Player == nil {
		return fmt.Errorf("elevenlabs: no audio player configured")
	}

	newClient := e.newClient
	if newClient == nil {
		newClient = newElevenLabsClient
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultElevenLabsTimeout
	}
	client := newClient(ctx, e.APIKey, timeout)

	pr, pw := io.Pipe()
	streamErr := make(chan error, 1)
	go func() {
		err := client.TextToSpeechStream(pw, e.VoiceID, e.request(u), elevenlabs.OutputFormat(fmt.Sprintf("pcm_%d", elevenLabsSampleRate)))
		_ = pw.CloseWithError(err)
		streamErr <- err
	}()

	playErr := e.Player.Play(ctx, &firstReadNotifier{r: pr, fn: started}, elevenLabsSampleRate)
	// Unblocks the stream writer when playback ends early.
	_ = pr.Close()
	err := <-streamErr

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("elevenlabs stream: %w", err)
	}
	if playErr != nil {
		return fmt.Errorf("play elevenlabs stream: %w", playErr)
	}
	return nil
}

func (e *ElevenLabsEngine) request(u Utterance) elevenlabs.TextToSpeechRequest {
	model := strings.TrimSpace(e.ModelID)
	if model == "" {
		model = DefaultElevenLabsModel
	}
	return elevenlabs.TextToSpeechRequest{
		Text:    u.Text,
		ModelID: model,
		VoiceSettings: &elevenlabs.VoiceSettings{
			Stability:       0.4,
			SimilarityBoost: 0.7,
		},
	}
}

// firstReadNotifier calls fn once, on the first read that returns data.
type firstReadNotifier struct {
	r    io.Reader
	fn   func()
	once sync.Once
}

func (n *firstReadNotifier) Read(p []byte) (int, error) {
	read, err := n.r.Read(p)
	if read > 0 && n.fn != nil {
		n.once.Do(n.fn)
	}
	return read, err
}
