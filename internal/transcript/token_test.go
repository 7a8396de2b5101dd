package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTokenTextProtocol(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Token
	}{
		{name: "plain word", raw: "hello", want: Token{Text: "hello"}},
		{name: "trims whitespace", raw: "  world\n", want: Token{Text: "world"}},
		{name: "sentinel exact", raw: "END.", want: Token{End: true}},
		{name: "sentinel lowercase", raw: "end.", want: Token{End: true}},
		{name: "sentinel padded", raw: "  End. \t", want: Token{End: true}},
		{name: "sentinel without dot is a word", raw: "END", want: Token{Text: "END"}},
		{name: "empty payload", raw: "   ", want: Token{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseToken(tc.raw, ProtocolText, DefaultSentinel)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseTokenJSONProtocol(t *testing.T) {
	got, err := ParseToken(`{"type":"word","text":" END. "}`, ProtocolJSON, DefaultSentinel)
	require.NoError(t, err)
	require.Equal(t, Token{Text: "END."}, got)

	got, err = ParseToken(`{"type":"END"}`, ProtocolJSON, DefaultSentinel)
	require.NoError(t, err)
	require.True(t, got.End)

	_, err = ParseToken(`not-json`, ProtocolJSON, DefaultSentinel)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode token frame")

	_, err = ParseToken(`{"type":"mystery"}`, ProtocolJSON, DefaultSentinel)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown token frame type")
}

func TestParseTokenUnsupportedProtocol(t *testing.T) {
	_, err := ParseToken("hello", Protocol("morse"), DefaultSentinel)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported token protocol")
}

func TestIsSentinelEmptyNeverMatches(t *testing.T) {
	require.False(t, IsSentinel("", ""))
	require.False(t, IsSentinel("END.", "  "))
	require.True(t, IsSentinel("stop", "STOP"))
}
