package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssignments(t *testing.T) {
	got, err := ParseAssignments([]string{"tests/a=src/tests/a.js", "tests/b=b.js", "tests/a=other.js"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tests/a": "other.js", "tests/b": "b.js"}, got)

	for _, bad := range []string{"noequals", "=path", "name="} {
		_, err := ParseAssignments([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"example/package/main", 10, "example..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateString(tt.in, tt.max))
	}
}
