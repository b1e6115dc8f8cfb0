package webpackcfg

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dop251/goja/ast"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldLogger := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = oldLogger })
	return &buf
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestModuleRendersTemplate(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Set("entry", "__calmjs_bootstrap__"))
	require.NoError(t, cfg.Set("output", map[string]interface{}{"library": "__calmjs__"}))

	out, err := cfg.Module()
	require.NoError(t, err)

	want := `'use strict';

var webpack = require('webpack');

var webpackConfig = {
    "entry": "__calmjs_bootstrap__",
    "output": {
        "library": "__calmjs__"
    }
};

module.exports = webpackConfig;
`
	assert.Equal(t, want, out)
}

func TestModuleOmitsMarkerAndEmitsPlugins(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Set(TargetKey, NewVersion(2, 6, 1)))
	require.NoError(t, cfg.Set("plugins", []string{"new webpack.DefinePlugin({})"}))

	out, err := cfg.Module()
	require.NoError(t, err)
	assert.NotContains(t, out, TargetKey)
	assert.Contains(t, out, "\"plugins\": [\n        new webpack.DefinePlugin({})\n    ]")
}

func TestSetConvertsPlugins(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Set("plugins", "[new A(), new B()]"))

	v, ok := cfg.Get("plugins")
	require.True(t, ok)
	seq, ok := v.(*CodeSequence)
	require.True(t, ok)
	assert.Equal(t, 2, seq.Len())
	assert.Equal(t, "[new A(), new B()]", seq.String())

	assert.Error(t, cfg.Set("plugins", 42))
}

func TestSetPluginsCopiesSequence(t *testing.T) {
	seq, err := ParseCodeSequence("new A()")
	require.NoError(t, err)

	cfg := New()
	require.NoError(t, cfg.Set("plugins", seq))
	require.NoError(t, seq.AppendCode("new B()"))

	assert.Equal(t, 1, cfg.Plugins().Len())
}

func TestTarget(t *testing.T) {
	cfg := New()
	target, err := cfg.Target()
	require.NoError(t, err)
	assert.Equal(t, Latest, target)

	require.NoError(t, cfg.Set(TargetKey, "3.12.0"))
	target, err = cfg.Target()
	require.NoError(t, err)
	assert.Equal(t, NewVersion(3, 12, 0), target)
}

func TestRewriteMode(t *testing.T) {
	tests := []struct {
		name    string
		target  Version
		mode    string
		kept    bool
		level   string
		message string
	}{
		{name: "default removed", target: NewVersion(2, 6, 1), mode: "none", level: "info", message: "'mode' default value removed for webpack 2.6.1"},
		{name: "non-default removed", target: NewVersion(2, 6, 1), mode: "production", level: "warn", message: "'mode' non-default value removed as it is unsupported by webpack 2.6.1"},
		{name: "kept for webpack 4", target: NewVersion(4, 1, 0), mode: "production", kept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)

			cfg := New()
			require.NoError(t, cfg.Set(TargetKey, tt.target))
			require.NoError(t, cfg.Set("mode", tt.mode))

			out, err := cfg.Module()
			require.NoError(t, err)

			if tt.kept {
				assert.Contains(t, out, `"mode": "`+tt.mode+`"`)
				assert.Empty(t, buf.String())
				return
			}
			assert.NotContains(t, out, `"mode"`)
			entries := logEntries(t, buf)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0]["level"])
			assert.Equal(t, tt.message, entries[0]["message"])
		})
	}
}

func TestRewriteModuleRules(t *testing.T) {
	module := map[string]interface{}{"rules": []interface{}{}}

	cfg := New()
	require.NoError(t, cfg.Set("module", module))
	out, err := cfg.Module()
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "javascript/auto"`)
	assert.Contains(t, out, `"test": /\.(json|html)/`)

	cfg = New()
	require.NoError(t, cfg.Set(TargetKey, NewVersion(3, 0, 0)))
	require.NoError(t, cfg.Set("module", module))
	out, err = cfg.Module()
	require.NoError(t, err)
	assert.NotContains(t, out, "javascript/auto")
}

func TestRewriteOptimization(t *testing.T) {
	t.Run("minimize becomes uglify plugin", func(t *testing.T) {
		captureLogs(t)

		cfg := New()
		require.NoError(t, cfg.Set(TargetKey, NewVersion(3, 12, 0)))
		require.NoError(t, cfg.Set("optimization", map[string]interface{}{"minimize": true}))
		require.NoError(t, cfg.Set("plugins", "new webpack.DefinePlugin({})"))

		out, err := cfg.Module()
		require.NoError(t, err)
		assert.NotContains(t, out, `"optimization"`)
		assert.Contains(t, out, "new webpack.DefinePlugin({}),\n        new webpack.optimize.UglifyJsPlugin({})")
	})

	t.Run("plugins created when absent", func(t *testing.T) {
		captureLogs(t)

		cfg := New()
		require.NoError(t, cfg.Set(TargetKey, NewVersion(2, 6, 1)))
		require.NoError(t, cfg.Set("optimization", map[string]interface{}{"minimize": true}))

		out, err := cfg.Module()
		require.NoError(t, err)
		assert.Contains(t, out, "\"plugins\": [\n        new webpack.optimize.UglifyJsPlugin({})\n    ]")
	})

	t.Run("other values dropped", func(t *testing.T) {
		captureLogs(t)

		cfg := New()
		require.NoError(t, cfg.Set(TargetKey, NewVersion(2, 6, 1)))
		require.NoError(t, cfg.Set("optimization", map[string]interface{}{"minimize": false}))

		out, err := cfg.Module()
		require.NoError(t, err)
		assert.NotContains(t, out, "optimization")
		assert.NotContains(t, out, "UglifyJsPlugin")
	})

	t.Run("kept for webpack 4", func(t *testing.T) {
		cfg := New()
		require.NoError(t, cfg.Set("optimization", map[string]interface{}{"minimize": true}))
		out, err := cfg.Module()
		require.NoError(t, err)
		assert.Contains(t, out, "\"optimization\": {\n        \"minimize\": true\n    }")
	})
}

func TestInjectArrayItemsRejectsNonArray(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Set("plugins", nil))
	require.NoError(t, cfg.Set("rules", "not an array"))

	obj, err := cfg.Object()
	require.NoError(t, err)

	seq, err := ParseCodeSequence("new A()")
	require.NoError(t, err)
	arr := seq.Export()

	err = InjectArrayItems(obj, "rules", arr.(*ast.ArrayLiteral))
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "2.6.1", want: "2.6.1"},
		{input: "v4", want: "4.0.0"},
		{input: " 4.1 ", want: "4.1.0"},
		{input: "3.12.0-beta.1", want: "3.12.0-beta.1"},
		{input: "4.46.0+build.7", want: "4.46.0"},
		{input: "", wantErr: true},
		{input: "a.b", wantErr: true},
		{input: "1.2.3.4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestVersionCompare(t *testing.T) {
	beta, err := ParseVersion("4.0.0-beta.1")
	require.NoError(t, err)
	v4, err := ParseVersion("v4")
	require.NoError(t, err)

	assert.True(t, NewVersion(2, 6, 1).Before(NewVersion(4, 0, 0)))
	assert.Equal(t, 0, Latest.Compare(v4))
	assert.True(t, beta.Before(v4))
	assert.Equal(t, 1, NewVersion(4, 0, 1).Compare(beta))
	assert.True(t, Version{}.IsZero())
	assert.Equal(t, "0.0.0", Version{}.String())
}
