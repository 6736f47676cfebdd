package prompts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsatony/go-prompts"
)

func TestTokenTable_Lookup(t *testing.T) {
	table := prompts.DefaultTokenTable()

	tokens, ok := table.Lookup(prompts.ModelGemma2)
	assert.True(t, ok)
	assert.Equal(t, prompts.Limits{Begin: "<bos>", End: "<eos>"}, tokens.Sequence)

	tokens, ok = table.Lookup(prompts.ModelMistral7BInstruct)
	assert.True(t, ok)
	assert.Equal(t, prompts.Limits{Begin: "[INST]", End: "[/INST]"}, tokens.User)
	assert.Equal(t, prompts.Limits{End: "</s>"}, tokens.Assistant)
	assert.True(t, tokens.HasRoleMarkers())

	tokens, ok = table.Lookup("")
	assert.True(t, ok)
	assert.Equal(t, prompts.SpecialTokens{}, tokens)

	tokens, ok = table.Lookup("acme/unknown")
	assert.False(t, ok)
	assert.Equal(t, table.Default(), tokens)
	assert.False(t, tokens.HasRoleMarkers())
}

func TestTokenTable_Models(t *testing.T) {
	assert.Equal(t, []string{
		prompts.ModelGemma2,
		prompts.ModelMistral7BInstruct,
		prompts.ModelMistral7B,
		prompts.ModelGPT2,
	}, prompts.DefaultTokenTable().Models())
}

func TestTokenTable_NewTokenTableCopies(t *testing.T) {
	models := map[string]prompts.SpecialTokens{"a": {Sequence: prompts.Limits{Begin: "<"}}}
	table := prompts.NewTokenTable(prompts.SpecialTokens{}, models)

	models["b"] = prompts.SpecialTokens{}
	_, ok := table.Lookup("b")
	assert.False(t, ok)
}

func TestTokenTable_Merge(t *testing.T) {
	base := prompts.DefaultTokenTable()
	override := prompts.NewTokenTable(
		prompts.SpecialTokens{Sequence: prompts.Limits{Begin: "^"}},
		map[string]prompts.SpecialTokens{
			prompts.ModelGPT2: {Sequence: prompts.Limits{Begin: "[gpt]"}},
			"acme/model":      {Sequence: prompts.Limits{End: "$"}},
		},
	)

	merged := base.Merge(override)

	tokens, _ := merged.Lookup(prompts.ModelGPT2)
	assert.Equal(t, "[gpt]", tokens.Sequence.Begin)
	tokens, ok := merged.Lookup("acme/model")
	assert.True(t, ok)
	assert.Equal(t, "$", tokens.Sequence.End)
	tokens, _ = merged.Lookup(prompts.ModelGemma2)
	assert.Equal(t, "<bos>", tokens.Sequence.Begin)
	assert.Equal(t, "^", merged.Default().Sequence.Begin)

	// The base table is untouched
	tokens, _ = base.Lookup(prompts.ModelGPT2)
	assert.Equal(t, "", tokens.Sequence.Begin)
}

func TestSpecialTokens_Role(t *testing.T) {
	tokens, _ := prompts.DefaultTokenTable().Lookup(prompts.ModelMistral7BInstruct)

	assert.Equal(t, tokens.User, tokens.Role(prompts.RoleUser))
	assert.Equal(t, tokens.Assistant, tokens.Role(prompts.RoleAssistant))
	assert.Equal(t, tokens.System, tokens.Role(prompts.RoleSystem))
	assert.Equal(t, prompts.Limits{}, tokens.Role(prompts.Role("narrator")))
}

func TestParseTokenTable(t *testing.T) {
	tests := []struct {
		name   string
		format string
		data   string
	}{
		{
			name:   "yaml",
			format: prompts.TokenFormatYAML,
			data: `
models:
  acme/model:
    sequence: {begin: "<a>", end: "</a>"}
    user: {begin: "[U]", end: "[/U]"}
`,
		},
		{
			name:   "toml",
			format: prompts.TokenFormatTOML,
			data: `
[models."acme/model".sequence]
begin = "<a>"
end = "</a>"

[models."acme/model".user]
begin = "[U]"
end = "[/U]"
`,
		},
		{
			name:   "json",
			format: prompts.TokenFormatJSON,
			data:   `{"models": {"acme/model": {"sequence": {"begin": "<a>", "end": "</a>"}, "user": {"begin": "[U]", "end": "[/U]"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := prompts.ParseTokenTable([]byte(tt.data), tt.format)
			require.NoError(t, err)

			tokens, ok := table.Lookup("acme/model")
			require.True(t, ok)
			assert.Equal(t, prompts.Limits{Begin: "<a>", End: "</a>"}, tokens.Sequence)
			assert.Equal(t, prompts.Limits{Begin: "[U]", End: "[/U]"}, tokens.User)

			// Built-in entries survive
			_, ok = table.Lookup(prompts.ModelGemma2)
			assert.True(t, ok)
		})
	}
}

func TestParseTokenTable_Default(t *testing.T) {
	table, err := prompts.ParseTokenTable([]byte("default:\n  sequence: {begin: \"<d>\"}\n"), prompts.TokenFormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "<d>", table.Default().Sequence.Begin)
}

func TestParseTokenTable_Errors(t *testing.T) {
	_, err := prompts.ParseTokenTable([]byte("{}"), "ini")
	assert.Error(t, err)

	_, err = prompts.ParseTokenTable([]byte("models: ["), prompts.TokenFormatYAML)
	assert.Error(t, err)
}

func TestLoadTokenTable(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "tokens.yml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  acme/model:\n    sequence: {begin: \"<a>\"}\n"), 0o644))

	table, err := prompts.LoadTokenTable(path)
	require.NoError(t, err)
	tokens, ok := table.Lookup("acme/model")
	assert.True(t, ok)
	assert.Equal(t, "<a>", tokens.Sequence.Begin)

	t.Run("missing file", func(t *testing.T) {
		_, err := prompts.LoadTokenTable(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
		got, _ := prompts.ErrorMetadata(err, prompts.MetaKeyPath)
		assert.Equal(t, filepath.Join(dir, "missing.yaml"), got)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := prompts.LoadTokenTable(filepath.Join(dir, "tokens.ini"))
		assert.Error(t, err)
	})
}
