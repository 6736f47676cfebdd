package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func parse(t *testing.T, src string) *RootNode {
	t.Helper()
	root, err := Parse(src, DefaultLexerConfig(), zap.NewNop())
	require.NoError(t, err)
	return root
}

func TestParser_TextAndOutput(t *testing.T) {
	root := parse(t, "Hello {{ name }}!")
	require.Len(t, root.Children, 3)

	text, ok := root.Children[0].(*TextNode)
	require.True(t, ok)
	assert.Equal(t, "Hello ", text.Content)

	_, ok = root.Children[1].(*OutputNode)
	assert.True(t, ok)
	assert.Equal(t, "!", root.Children[2].(*TextNode).Content)
}

func TestParser_If(t *testing.T) {
	root := parse(t, "{% if a %}A{% elif b %}B{% else %}C{% endif %}")
	require.Len(t, root.Children, 1)

	node, ok := root.Children[0].(*IfNode)
	require.True(t, ok)
	assert.Len(t, node.Branches, 2)
	require.NotNil(t, node.Else)
	assert.Equal(t, "C", node.Else[0].(*TextNode).Content)

	t.Run("empty else is kept", func(t *testing.T) {
		root := parse(t, "{% if a %}A{% else %}{% endif %}")
		node := root.Children[0].(*IfNode)
		assert.NotNil(t, node.Else)
		assert.Empty(t, node.Else)
	})

	t.Run("no else", func(t *testing.T) {
		root := parse(t, "{% if a %}A{% endif %}")
		assert.Nil(t, root.Children[0].(*IfNode).Else)
	})
}

func TestParser_For(t *testing.T) {
	root := parse(t, "{% for k, v in items if v %}{{ k }}{% else %}none{% endfor %}")
	require.Len(t, root.Children, 1)

	node, ok := root.Children[0].(*ForNode)
	require.True(t, ok)
	assert.Equal(t, []string{"k", "v"}, node.Targets)
	assert.NotNil(t, node.Iter)
	assert.NotNil(t, node.Filter)
	assert.Len(t, node.Body, 1)
	assert.Len(t, node.Else, 1)
}

func TestParser_Set(t *testing.T) {
	root := parse(t, "{% set x = 1 %}{{ x }}")
	require.Len(t, root.Children, 2)

	node, ok := root.Children[0].(*SetNode)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, node.Targets)
	assert.NotNil(t, node.Value)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"unclosed if", "{% if x %}a", ErrMsgUnclosedBlock},
		{"unclosed for", "{% for x in y %}a", ErrMsgUnclosedBlock},
		{"stray end tag", "a{% endif %}", ErrMsgUnexpectedEnd},
		{"unknown statement", "{% frobnicate %}", ErrMsgUnknownStatement},
		{"else after else", "{% if x %}{% else %}{% else %}{% endif %}", ErrMsgElseAfterElse},
		{"elif after else", "{% if x %}{% else %}{% elif y %}{% endif %}", ErrMsgElifAfterElse},
		{"for without in", "{% for x y %}{% endfor %}", ErrMsgForMissingIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src, DefaultLexerConfig(), zap.NewNop())
			require.Error(t, err)

			var parserErr *ParserError
			require.True(t, errors.As(err, &parserErr), "got %T: %v", err, err)
			assert.Equal(t, tt.message, parserErr.Message)
			assert.Positive(t, parserErr.Position.Line)
		})
	}
}
