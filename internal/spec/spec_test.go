package spec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    Method
		wantErr bool
	}{
		{input: "", want: MethodAll},
		{input: "all", want: MethodAll},
		{input: "explicit", want: MethodExplicit},
		{input: "none", want: MethodNone},
		{input: "some", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMethod(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExternalJSON(t *testing.T) {
	data, err := json.Marshal(BootstrapExternal())
	require.NoError(t, err)
	assert.JSONEq(t, `{"root": "__calmjs__", "amd": "__calmjs__", "commonjs": ["global", "__calmjs__"], "commonjs2": ["global", "__calmjs__"]}`, string(data))

	var decoded External
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, BootstrapExternal(), decoded)
	assert.True(t, decoded.Complete())
}

func TestModuleExternal(t *testing.T) {
	ext := ModuleExternal("example/package/main")
	assert.True(t, ext.Complete())
	assert.Equal(t, ExternalTarget{"__calmjs__", "modules", "example/package/main"}, ext.Root)
	assert.Equal(t, ExternalTarget{"global", "__calmjs__", "modules", "example/package/main"}, ext.CommonJS2)
}

func TestHandleAdvice(t *testing.T) {
	sp := New()
	var calls []string
	sp.Advise(BeforeCompile, func(sp *Spec) error {
		calls = append(calls, "first")
		return nil
	})
	sp.Advise(BeforeCompile, func(sp *Spec) error {
		calls = append(calls, "second")
		return errors.New("boom")
	})
	sp.Advise(BeforeCompile, func(sp *Spec) error {
		calls = append(calls, "third")
		return nil
	})

	err := sp.HandleAdvice(BeforeCompile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before_compile")
	assert.Equal(t, []string{"first", "second"}, calls)

	assert.NoError(t, sp.HandleAdvice(AfterLink))
}

func TestAddExportModuleName(t *testing.T) {
	sp := New()
	sp.AddExportModuleName("a")
	sp.AddExportModuleName("b")
	sp.AddExportModuleName("a")
	assert.Equal(t, []string{"a", "b"}, sp.ExportModuleNames)
}
