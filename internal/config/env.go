package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides. Process values win over the optional .env file.
const (
	EnvEndpoint        = "SIGNSTREAM_ENDPOINT"
	EnvAutoSpeak       = "SIGNSTREAM_AUTO_SPEAK"
	EnvSpeechBackend   = "SIGNSTREAM_SPEECH_BACKEND"
	EnvElevenLabsKey   = "ELEVENLABS_API_KEY"
	EnvElevenLabsVoice = "ELEVENLABS_VOICE_ID"
)

func applyEnv(cfg *Config, dotenvPath string) ([]Warning, error) {
	var warnings []Warning

	fileValues, err := godotenv.Read(dotenvPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("ignoring %s: %v", dotenvPath, err)})
		}
		fileValues = nil
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
		if v, ok := fileValues[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
		return "", false
	}

	if v, ok := lookup(EnvEndpoint); ok {
		cfg.Recognizer.Endpoint = v
	}
	if v, ok := lookup(EnvAutoSpeak); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s=%q: expected a boolean", EnvAutoSpeak, v)
		}
		cfg.Speech.AutoSpeak = enabled
	}
	if v, ok := lookup(EnvSpeechBackend); ok {
		cfg.Speech.Backend = strings.ToLower(v)
	}
	if v, ok := lookup(EnvElevenLabsKey); ok {
		cfg.Speech.ElevenLabs.APIKey = v
	}
	if v, ok := lookup(EnvElevenLabsVoice); ok {
		cfg.Speech.ElevenLabs.VoiceID = v
	}

	return warnings, nil
}
