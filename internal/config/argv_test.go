package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgv(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "", want: nil},
		{
			name:  "speech placeholders",
			input: "espeak-ng -v {language} -p {pitch} -s {rate} {text}",
			want:  []string{"espeak-ng", "-v", "{language}", "-p", "{pitch}", "-s", "{rate}", "{text}"},
		},
		{
			name:  "quoted placeholder",
			input: `say --voice "Samantha (Enhanced)" --text='{text}'`,
			want:  []string{"say", "--voice", "Samantha (Enhanced)", "--text={text}"},
		},
		{
			name:  "capture pipeline",
			input: "ffmpeg -f v4l2 -i /dev/video0 -frames:v 1 -f mjpeg -",
			want:  []string{"ffmpeg", "-f", "v4l2", "-i", "/dev/video0", "-frames:v", "1", "-f", "mjpeg", "-"},
		},
		{name: "escaped space", input: `cat /tmp/sign\ frames/latest.jpg`, want: []string{"cat", "/tmp/sign frames/latest.jpg"}},
		{name: "leading comment", input: `# espeak-ng {text}`, want: nil},
		{name: "unterminated quote", input: `espeak-ng "{text}`, wantErr: "unterminated quote"},
		{name: "unterminated escape", input: `espeak-ng {text}\`, wantErr: "unterminated escape"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgv(tc.input)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommandNamesField(t *testing.T) {
	cmd, err := parseCommand("speech.command", "  espeak-ng {text}  ")
	require.NoError(t, err)
	require.Equal(t, CommandConfig{Raw: "espeak-ng {text}", Argv: []string{"espeak-ng", "{text}"}}, cmd)

	_, err = parseCommand("producer.capture_cmd", `ffmpeg -i "/dev/video0`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid producer.capture_cmd")
	require.Contains(t, err.Error(), "unterminated quote")
}

func TestDefaultCommandsParse(t *testing.T) {
	cfg := Default()
	require.Equal(t, "ffmpeg", cfg.Producer.Capture.Argv[0])
	require.Contains(t, cfg.Speech.Command.Argv, "{text}")
}

func TestMustParseArgvPanicsOnInvalidInput(t *testing.T) {
	require.Panics(t, func() {
		_ = mustParseArgv(`espeak-ng "unterminated`)
	})
}
