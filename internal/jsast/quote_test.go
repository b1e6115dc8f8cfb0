package jsast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnquoteString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "double quoted", input: `"example/package/main"`, want: "example/package/main"},
		{name: "single quoted", input: `'it\'s'`, want: "it's"},
		{name: "simple escapes", input: `"a\tb\nc\\d"`, want: "a\tb\nc\\d"},
		{name: "hex escape", input: `"\x41\x42"`, want: "AB"},
		{name: "unicode escape", input: `"\u3042"`, want: "\u3042"},
		{name: "surrogate pair", input: `"\ud83d\ude00"`, want: "\U0001F600"},
		{name: "lone surrogate", input: `"\ud83d"`, want: "\uFFFD"},
		{name: "octal escape", input: `"\101\0"`, want: "A\x00"},
		{name: "line continuation", input: "\"a\\\nb\"", want: "ab"},
		{name: "identity escape", input: `"\q"`, want: "q"},
		{name: "raw utf8", input: `"été"`, want: "été"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnquoteString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnquoteStringErrors(t *testing.T) {
	for _, input := range []string{``, `"`, `abc`, `"abc'`, `"\x4"`} {
		_, err := UnquoteString(input)
		assert.Error(t, err, input)
	}
}

func TestQuoteStringRoundTrip(t *testing.T) {
	for _, s := range []string{"plain", "tab\there", "quote\"s", "ctrl\x01", "line\u2028sep", "ünï"} {
		got, err := UnquoteString(QuoteString(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}
