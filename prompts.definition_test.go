package prompts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsatony/go-prompts"
)

const summarizeYAML = `
name: summarize
description: Summarize a text
params:
  - name: text
  - name: words
    default: 50
body: |
  Summarize in {{ words }} words:
  {{ text }}
variants:
  google/gemma-2-9b:
    body: "{{ bos }}Summary ({{ words }}): {{ text }}"
tags: [summary]
`

func TestParseDefinition(t *testing.T) {
	def, err := prompts.ParseDefinition([]byte(summarizeYAML))
	require.NoError(t, err)

	assert.Equal(t, "summarize", def.Name)
	assert.Equal(t, "Summarize a text", def.Description)
	require.Len(t, def.Params, 2)
	assert.Equal(t, "text", def.Params[0].Name)
	assert.Equal(t, 50, def.Params[1].Default)
	assert.Equal(t, []string{prompts.ModelGemma2}, def.VariantModels())
	assert.Equal(t, []string{"summary"}, def.Tags)
}

func TestParseDefinition_Errors(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		check func(error) bool
	}{
		{"malformed", "name: [", func(err error) bool { return err != nil }},
		{"missing name", "body: x", func(err error) bool { return err != nil && !prompts.IsNoTemplateFound(err) }},
		{"missing body", "name: x", prompts.IsNoTemplateFound},
		{"empty variant", "name: x\nbody: y\nvariants:\n  m: {body: ''}", prompts.IsNoTemplateFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prompts.ParseDefinition([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestDefinition_Build(t *testing.T) {
	ctx := context.Background()
	def, err := prompts.ParseDefinition([]byte(summarizeYAML))
	require.NoError(t, err)

	tmpl, err := def.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, "summarize", tmpl.Name())
	assert.Equal(t, []string{prompts.ModelGemma2}, tmpl.Models())

	out, err := tmpl.Call(ctx, "the text")
	require.NoError(t, err)
	assert.Equal(t, "Summarize in 50 words:\nthe text", out)

	// Variants inherit the parent params
	out, err = tmpl.Index(prompts.ModelGemma2).Call(ctx, "the text", prompts.Kw("words", 5))
	require.NoError(t, err)
	assert.Equal(t, "<bos>Summary (5): the text", out)
}

func TestParamDef_Param(t *testing.T) {
	assert.Equal(t, prompts.Required("a"), prompts.ParamDef{Name: "a"}.Param())
	assert.Equal(t, prompts.Required("a"), prompts.ParamDef{Name: "a", Default: 1, Required: true}.Param())
	assert.Equal(t, prompts.Optional("a", "x"), prompts.ParamDef{Name: "a", Default: "x"}.Param())
}

func TestDefinition_Clone(t *testing.T) {
	def := &prompts.Definition{
		Name:     "d",
		Body:     "b",
		Params:   []prompts.ParamDef{{Name: "p"}},
		Variants: map[string]prompts.VariantDef{"m": {Body: "v", Params: []prompts.ParamDef{{Name: "q"}}}},
		Tags:     []string{"t"},
	}

	c := def.Clone()
	c.Params[0].Name = "changed"
	c.Variants["m"].Params[0].Name = "changed"
	c.Variants["n"] = prompts.VariantDef{Body: "new"}
	c.Tags[0] = "changed"

	assert.Equal(t, "p", def.Params[0].Name)
	assert.Equal(t, "q", def.Variants["m"].Params[0].Name)
	assert.Len(t, def.Variants, 1)
	assert.Equal(t, "t", def.Tags[0])
}

func TestMarshalDefinition_RoundTrip(t *testing.T) {
	def, err := prompts.ParseDefinition([]byte(summarizeYAML))
	require.NoError(t, err)

	data, err := prompts.MarshalDefinition(def)
	require.NoError(t, err)

	again, err := prompts.ParseDefinition(data)
	require.NoError(t, err)
	assert.Equal(t, def, again)

	_, err = prompts.MarshalDefinition(nil)
	assert.Error(t, err)
}
