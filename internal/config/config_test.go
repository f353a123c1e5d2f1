package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/ssr/internal/pattern"
	"github.com/gnoswap-labs/ssr/internal/types"
)

const sample = `
name: project
exclude:
  - "**/gen/**"
rules:
  - name: close-check
    pattern: "defer '_f.Close()"
    severity: error
    message: unchecked Close
    variables:
      - name: _f
        constraint: "exprtype(*os.File)"
  - name: sprintf-error
    pattern: "errors.New(fmt.Sprintf('args+))"
    replacement: "fmt.Errorf($args$)"
    case_sensitive: true
    loose: true
    reformat: true
    mode: single
    imports: [fmt]
    replacement_variables:
      - name: n
        script: "len(args)"
`

func TestDecode(t *testing.T) {
	t.Parallel()
	cfg, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "project", cfg.Name)
	assert.Equal(t, []string{"**/gen/**"}, cfg.Exclude)
	require.Len(t, cfg.Rules, 2)

	closeCheck := cfg.Rules[0]
	assert.Equal(t, types.SeverityError, closeCheck.Level())
	assert.Equal(t, []pattern.VariableSpec{{Name: "_f", Constraint: "exprtype(*os.File)"}}, closeCheck.Variables)

	opts := cfg.Rules[1].Options()
	assert.Equal(t, "errors.New(fmt.Sprintf('args+))", opts.Pattern)
	assert.Equal(t, "fmt.Errorf($args$)", opts.Replacement)
	assert.True(t, opts.CaseSensitive)
	assert.True(t, opts.Loose)
	assert.True(t, opts.Reformat)
	assert.Equal(t, pattern.SingleNode, opts.Mode)
	assert.Equal(t, []pattern.ReplacementVariable{{Name: "n", Script: "len(args)"}}, opts.ReplacementVariables)
	assert.Equal(t, types.SeverityWarning, cfg.Rules[1].Level())
	assert.Equal(t, []string{"fmt"}, cfg.Rules[1].Imports)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "rules:\n  - pattern: x\n", "no name"},
		{"duplicate", "rules:\n  - name: a\n    pattern: x\n  - name: a\n    pattern: y\n", "duplicate rule"},
		{"no pattern", "rules:\n  - name: a\n", "no pattern"},
		{"unknown field", "rules:\n  - name: a\n    pattern: x\n    bogus: 1\n", "bogus"},
		{"script without name", "rules:\n  - name: a\n    pattern: x\n    replacement_variables:\n      - script: \"1\"\n", "need a name"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	t.Parallel()
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cfg.Rules)
}

func TestSelect(t *testing.T) {
	t.Parallel()
	cfg, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	all, err := cfg.Select()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := cfg.Select("sprintf-error")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "sprintf-error", one[0].Name)

	_, err = cfg.Select("missing")
	assert.Error(t, err)
}

func TestWriteAndLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, Write(path, Default()))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestDefaultRulesCompile(t *testing.T) {
	t.Parallel()
	for _, r := range Default().Rules {
		_, err := pattern.Compile(r.Options(), nil)
		assert.NoError(t, err, r.Name)
	}
}
