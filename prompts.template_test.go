package prompts_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsatony/go-prompts"
)

func TestTemplate_Call(t *testing.T) {
	ctx := context.Background()
	tmpl, err := prompts.NewTemplate("test_tpl", "{{variable}} test", prompts.Params("variable"))
	require.NoError(t, err)

	assert.Equal(t, []string{"variable"}, paramNames(tmpl.Params()))

	out, err := tmpl.Call(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "test test", out)

	out, err = tmpl.Call(ctx, prompts.Kw("variable", "test"))
	require.NoError(t, err)
	assert.Equal(t, "test test", out)

	_, err = tmpl.Call(ctx, prompts.Kw("v", "test"))
	assert.True(t, prompts.IsSignatureMismatch(err))
}

func TestTemplate_CallDefaults(t *testing.T) {
	ctx := context.Background()
	tmpl := prompts.MustTemplate("test_kwarg_tpl", "{{var}} and {{other_var}}", []prompts.Param{
		prompts.Required("var"),
		prompts.Optional("other_var", "other"),
	})

	out, err := tmpl.Call(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "test and other", out)

	out, err = tmpl.Call(ctx, "test", prompts.Kw("other_var", "kwarg"))
	require.NoError(t, err)
	assert.Equal(t, "test and kwarg", out)

	out, err = tmpl.Call(ctx, "test", "test")
	require.NoError(t, err)
	assert.Equal(t, "test and test", out)

	out, err = tmpl.CallMap(ctx, map[string]any{"var": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x and other", out)
}

func TestTemplate_MissingVariable(t *testing.T) {
	tmpl := prompts.MustTemplate("t", "{{ query }} {{ undeclared }}", prompts.Params("query"))

	_, err := tmpl.Call(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, prompts.IsMissingVariable(err))
}

func TestNewTemplate_NoTemplateFound(t *testing.T) {
	for _, body := range []string{"", "   ", "\n\t\n"} {
		_, err := prompts.NewTemplate("empty", body, nil)
		require.Error(t, err)
		assert.True(t, prompts.IsNoTemplateFound(err))
		name, _ := prompts.ErrorMetadata(err, prompts.MetaKeyTemplateName)
		assert.Equal(t, "empty", name)
	}

	assert.Panics(t, func() { prompts.MustTemplate("empty", "", nil) })
}

func TestNewTemplate_InvalidSignature(t *testing.T) {
	_, err := prompts.NewTemplate("t", "x", prompts.Params("a", "a"))
	assert.True(t, prompts.IsSignatureMismatch(err))
}

func TestTemplate_Dispatch(t *testing.T) {
	ctx := context.Background()

	simple := prompts.MustTemplate("simple_prompt", "{{ query }}", prompts.Params("query"))
	named, err := simple.Register("provider/name", "name: {{ query }}", prompts.Params("query"))
	require.NoError(t, err)

	assert.Equal(t, []string{"provider/name"}, simple.Models())
	assert.Equal(t, "", simple.Model())
	assert.Equal(t, "provider/name", named.Model())
	assert.Same(t, named, simple.Index("provider/name"))
	assert.Equal(t, "provider/name", simple.Index("provider/name").Model())

	out, err := simple.Call(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "test", out)

	out, err = named.Call(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "name: test", out)

	out, err = simple.Index(prompts.ModelGPT2).Call(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "test", out)

	out, err = simple.Index("provider/name").Call(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "name: test", out)
}

func TestTemplate_IndexUnregisteredMutates(t *testing.T) {
	ctx := context.Background()
	tmpl := prompts.MustTemplate("t", "{{ bos }}{{ query }}{{ eos }}", prompts.Params("query"))
	_, err := tmpl.Register("provider/name", "name: {{ query }}", prompts.Params("query"))
	require.NoError(t, err)

	plain, err := tmpl.Call(ctx, "q")
	require.NoError(t, err)

	// An unregistered model without special tokens renders like no model
	indexed := tmpl.Index("acme/no-tokens")
	assert.Same(t, tmpl, indexed)
	viaIndex, err := indexed.Call(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, plain, viaIndex)
	assert.Equal(t, []string{"provider/name"}, tmpl.Models(), "indexing must not register")

	// The original now carries the model
	assert.Equal(t, "acme/no-tokens", tmpl.Model())

	// Indexing a known model changes what later plain calls render
	tmpl.Index(prompts.ModelGemma2)
	out, err := tmpl.Call(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "<bos>q<eos>", out)

	tmpl.ResetModel()
	out, err = tmpl.Call(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "q", out)
}

func TestTemplate_NonMutatingLookups(t *testing.T) {
	ctx := context.Background()
	tmpl := prompts.MustTemplate("t", "{{ bos }}{{ query }}", prompts.Params("query"))
	variant, err := tmpl.Register("provider/name", "name: {{ query }}", prompts.Params("query"))
	require.NoError(t, err)

	got, ok := tmpl.Registered("provider/name")
	assert.True(t, ok)
	assert.Same(t, variant, got)

	_, ok = tmpl.Registered(prompts.ModelGemma2)
	assert.False(t, ok)

	bound := tmpl.WithModel(prompts.ModelGemma2)
	assert.NotSame(t, tmpl, bound)
	assert.Equal(t, prompts.ModelGemma2, bound.Model())
	assert.Equal(t, "", tmpl.Model())

	out, err := bound.Call(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "<bos>q", out)

	// Copies share the registry with their origin
	assert.Same(t, variant, bound.Index("provider/name"))
	_, err = bound.Register("other/model", "other", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"other/model", "provider/name"}, tmpl.Models())

	assert.Same(t, variant, tmpl.For("provider/name"))
	assert.Equal(t, prompts.ModelGemma2, tmpl.For(prompts.ModelGemma2).Model())
	assert.Equal(t, "", tmpl.Model())
}

func TestTemplate_RegisterTwiceReplaces(t *testing.T) {
	ctx := context.Background()
	tmpl := prompts.MustTemplate("t", "{{ q }}", prompts.Params("q"))

	_, err := tmpl.Register("provider/name", "first {{ q }}", prompts.Params("q"))
	require.NoError(t, err)
	require.Len(t, tmpl.Models(), 1)

	_, err = tmpl.Register("provider/name", "second {{ q }}", prompts.Params("q"))
	require.NoError(t, err)
	assert.Len(t, tmpl.Models(), 1)

	out, err := tmpl.Index("provider/name").Call(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "second x", out)
}

func TestTemplate_RegisterTemplate(t *testing.T) {
	tmpl := prompts.MustTemplate("t", "default", nil)
	other := prompts.MustTemplate("other", "other", nil)

	require.NoError(t, tmpl.RegisterTemplate("provider/name", other))
	assert.Equal(t, "provider/name", other.Model())
	assert.Same(t, other, tmpl.Index("provider/name"))

	tests := []struct {
		name    string
		model   string
		variant *prompts.Template
	}{
		{"self", "provider/self", tmpl},
		{"nil", "provider/nil", nil},
		{"empty model", "", other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tmpl.RegisterTemplate(tt.model, tt.variant)
			require.Error(t, err)
			assert.True(t, prompts.IsInvalidRegistration(err))
		})
	}
	assert.Equal(t, []string{"provider/name"}, tmpl.Models())

	_, err := tmpl.Register("", "body", nil)
	assert.True(t, prompts.IsInvalidRegistration(err))

	_, err = tmpl.Register("provider/empty", " ", nil)
	assert.True(t, prompts.IsNoTemplateFound(err))
}

func TestTemplate_ConcurrentRegister(t *testing.T) {
	tmpl := prompts.MustTemplate("t", "default", nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = tmpl.Register(fmt.Sprintf("provider/model-%02d", i), "variant", nil)
			tmpl.Index(fmt.Sprintf("provider/model-%02d", i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, tmpl.Models(), 50)
}

func TestTemplate_Accessors(t *testing.T) {
	tmpl := prompts.MustTemplate("summary", "\n    Summarize {{ text }}\n", prompts.Params("text"))

	assert.Equal(t, "summary", tmpl.Name())
	assert.Equal(t, "\n    Summarize {{ text }}\n", tmpl.Body())
	assert.Equal(t, "Summarize {{ text }}", tmpl.Normalized())
	assert.NoError(t, tmpl.Check())

	broken := prompts.MustTemplate("broken", "{% if %}", nil)
	assert.True(t, prompts.IsTemplateSyntaxError(broken.Check()))
}

func TestTemplate_WithRenderer(t *testing.T) {
	table := prompts.NewTokenTable(prompts.SpecialTokens{}, map[string]prompts.SpecialTokens{
		"acme/model": {Sequence: prompts.Limits{Begin: "<go>"}},
	})
	r := prompts.NewRenderer(prompts.WithTokenTable(table), prompts.WithoutCache())

	tmpl := prompts.MustTemplate("t", "{{ bos }}x", nil, prompts.WithRenderer(r), prompts.WithBoundModel("acme/model"))
	out, err := tmpl.Call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<go>x", out)

	variant, err := tmpl.Register("acme/other", "{{ bos }}y", nil)
	require.NoError(t, err)
	out, err = variant.Call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "y", out, "variants use the renderer of their parent")
}

func paramNames(params []prompts.Param) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}
