package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Recognizer *jsoncRecognizer `json:"recognizer"`
	Producer   *jsoncProducer   `json:"producer"`
	Transcript *jsoncTranscript `json:"transcript"`
	Speech     *jsoncSpeech     `json:"speech"`
	History    *jsoncHistory    `json:"history"`
	Indicator  *jsoncIndicator  `json:"indicator"`
	Clipboard  *jsoncClipboard  `json:"clipboard"`
	Log        *jsoncLog        `json:"log"`
}

type jsoncRecognizer struct {
	Endpoint            *string `json:"endpoint"`
	ReconnectDelayMS    *int    `json:"reconnect_delay_ms"`
	MaxReconnectDelayMS *int    `json:"max_reconnect_delay_ms"`
	DialTimeoutMS       *int    `json:"dial_timeout_ms"`
	WriteTimeoutMS      *int    `json:"write_timeout_ms"`
}

type jsoncProducer struct {
	IntervalMS       *int    `json:"interval_ms"`
	Source           *string `json:"source"`
	CaptureCmd       *string `json:"capture_cmd"`
	Directory        *string `json:"directory"`
	Encoding         *string `json:"encoding"`
	CaptureTimeoutMS *int    `json:"capture_timeout_ms"`
}

type jsoncTranscript struct {
	Sentinel     *string          `json:"sentinel"`
	Protocol     *string          `json:"protocol"`
	IgnoreTokens *jsoncStringList `json:"ignore_tokens"`
	IdleFlushMS  *int             `json:"idle_flush_ms"`
}

type jsoncSpeech struct {
	Backend    *string          `json:"backend"`
	Command    *string          `json:"command"`
	Language   *string          `json:"language"`
	Pitch      *float64         `json:"pitch"`
	Rate       *float64         `json:"rate"`
	AutoSpeak  *bool            `json:"auto_speak"`
	DebounceMS *int             `json:"debounce_ms"`
	ElevenLabs *jsoncElevenLabs `json:"elevenlabs"`
}

type jsoncElevenLabs struct {
	APIKey  *string `json:"api_key"`
	VoiceID *string `json:"voice_id"`
	ModelID *string `json:"model_id"`
}

type jsoncHistory struct {
	MaxEntries *int `json:"max_entries"`
}

type jsoncIndicator struct {
	Enable                *bool   `json:"enable"`
	Backend               *string `json:"backend"`
	DesktopAppName        *string `json:"desktop_app_name"`
	SoundEnable           *bool   `json:"sound_enable"`
	SoundConnectedFile    *string `json:"sound_connected_file"`
	SoundDisconnectedFile *string `json:"sound_disconnected_file"`
	SoundSentenceFile     *string `json:"sound_sentence_file"`
	ErrorTimeoutMS        *int    `json:"error_timeout_ms"`
}

type jsoncClipboard struct {
	Enable *bool   `json:"enable"`
	Cmd    *string `json:"cmd"`
}

type jsoncLog struct {
	Console *bool   `json:"console"`
	Level   *string `json:"level"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if r := payload.Recognizer; r != nil {
		assignTrimmed(&cfg.Recognizer.Endpoint, r.Endpoint)
		assign(&cfg.Recognizer.ReconnectDelayMS, r.ReconnectDelayMS)
		assign(&cfg.Recognizer.MaxReconnectDelayMS, r.MaxReconnectDelayMS)
		assign(&cfg.Recognizer.DialTimeoutMS, r.DialTimeoutMS)
		assign(&cfg.Recognizer.WriteTimeoutMS, r.WriteTimeoutMS)
	}

	if p := payload.Producer; p != nil {
		assign(&cfg.Producer.IntervalMS, p.IntervalMS)
		assignLower(&cfg.Producer.Source, p.Source)
		assignTrimmed(&cfg.Producer.Directory, p.Directory)
		assignLower(&cfg.Producer.Encoding, p.Encoding)
		assign(&cfg.Producer.CaptureTimeoutMS, p.CaptureTimeoutMS)
		if p.CaptureCmd != nil {
			cmd, err := parseCommand("producer.capture_cmd", *p.CaptureCmd)
			if err != nil {
				return nil, err
			}
			cfg.Producer.Capture = cmd
		}
	}

	if t := payload.Transcript; t != nil {
		assignTrimmed(&cfg.Transcript.Sentinel, t.Sentinel)
		assignLower(&cfg.Transcript.Protocol, t.Protocol)
		assign(&cfg.Transcript.IdleFlushMS, t.IdleFlushMS)
		if t.IgnoreTokens != nil {
			cfg.Transcript.IgnoreTokens = nil
			for _, token := range *t.IgnoreTokens {
				token = strings.TrimSpace(token)
				if token == "" {
					continue
				}
				cfg.Transcript.IgnoreTokens = append(cfg.Transcript.IgnoreTokens, token)
			}
		}
	}

	if s := payload.Speech; s != nil {
		assignLower(&cfg.Speech.Backend, s.Backend)
		assignTrimmed(&cfg.Speech.Language, s.Language)
		assign(&cfg.Speech.Pitch, s.Pitch)
		assign(&cfg.Speech.Rate, s.Rate)
		assign(&cfg.Speech.AutoSpeak, s.AutoSpeak)
		assign(&cfg.Speech.DebounceMS, s.DebounceMS)
		if s.Command != nil {
			cmd, err := parseCommand("speech.command", *s.Command)
			if err != nil {
				return nil, err
			}
			cfg.Speech.Command = cmd
		}
		if e := s.ElevenLabs; e != nil {
			assignTrimmed(&cfg.Speech.ElevenLabs.APIKey, e.APIKey)
			assignTrimmed(&cfg.Speech.ElevenLabs.VoiceID, e.VoiceID)
			assignTrimmed(&cfg.Speech.ElevenLabs.ModelID, e.ModelID)
			if e.APIKey != nil && strings.TrimSpace(*e.APIKey) != "" {
				warnings = append(warnings, Warning{Message: "speech.elevenlabs.api_key is stored in the config file; prefer " + EnvElevenLabsKey})
			}
		}
	}

	if h := payload.History; h != nil {
		assign(&cfg.History.MaxEntries, h.MaxEntries)
	}

	if i := payload.Indicator; i != nil {
		assign(&cfg.Indicator.Enable, i.Enable)
		assignLower(&cfg.Indicator.Backend, i.Backend)
		assignTrimmed(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		assign(&cfg.Indicator.SoundEnable, i.SoundEnable)
		assignTrimmed(&cfg.Indicator.SoundConnectedFile, i.SoundConnectedFile)
		assignTrimmed(&cfg.Indicator.SoundDisconnectedFile, i.SoundDisconnectedFile)
		assignTrimmed(&cfg.Indicator.SoundSentenceFile, i.SoundSentenceFile)
		assign(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if c := payload.Clipboard; c != nil {
		assign(&cfg.Clipboard.Enable, c.Enable)
		if c.Cmd != nil {
			cmd, err := parseCommand("clipboard.cmd", *c.Cmd)
			if err != nil {
				return nil, err
			}
			cfg.Clipboard.Cmd = cmd
		}
	}

	if l := payload.Log; l != nil {
		assign(&cfg.Log.Console, l.Console)
		assignLower(&cfg.Log.Level, l.Level)
	}

	return warnings, nil
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func assignTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func assignLower(dst *string, src *string) {
	if src != nil {
		*dst = strings.ToLower(strings.TrimSpace(*src))
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
