package prompts_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itsatony/go-prompts"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"only spaces", "   ", ""},
		{"leading newline", "\n    A test string", "A test string"},
		{"trailing indent", "\n    A test string\n    ", "A test string"},
		{"two lines", "\n        A test\n        Another test\n    ", "A test\nAnother test"},
		{"text on first line", "A test\n        Another test\n    ", "A test\nAnother test"},
		{"relative indent kept", "\n        A test line\n            An indented line\n    ", "A test line\n    An indented line"},
		{"trailing blank line", "\n        A test line\n            An indented line\n\n    ", "A test line\n    An indented line\n"},
		{"blank line with spaces", "\n    A new string\n    \n    ", "A new string\n"},
		{"several trailing blank lines", "\n    A new string\n\n\n\n    ", "A new string\n"},
		{"inner blank line kept", "\n    a\n\n    b\n", "a\n\nb"},
		{"collapse after word", "a    b", "a b"},
		{"collapse keeps line start", "\n    a\n      b    c", "a\n  b c"},
		{"collapse spares punctuation", "a:   b", "a:   b"},
		{"collapse after accented letter", "café    au lait", "café au lait"},
		{"collapse after cyrillic", "Привет   мир", "Привет мир"},
		{"collapse after cjk", "你好 \u3000 世界", "你好 世界"},
		{"collapse after digit and underscore", "x_  1   y", "x_ 1 y"},
		{"collapse stops at newline", "a   \n   b", "a \nb"},
		{"tabs expand", "\n\ta\n\tb", "a\nb"},
		{"short line emptied", "\n        a\n   \n        b", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, prompts.Normalize(tt.input))
		})
	}
}

func TestNormalize_Continuation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "joins lines",
			input:    "\n        A long test \\\n        that we break \\\n        in several lines\n    ",
			expected: "A long test that we break in several lines",
		},
		{
			name: "respects indentation",
			input: "\n        Break in \\\n        several lines \\\n        But respect the indentation\n" +
				"            on line breaks.\n        And after everything \\\n        Goes back to normal\n    ",
			expected: "Break in several lines But respect the indentation\n    on line breaks.\nAnd after everything Goes back to normal",
		},
		{
			name:     "no space typed",
			input:    "\n    abc\\\n    def",
			expected: "abcdef",
		},
		{
			name:     "escaped backslash",
			input:    "\n    a\\\\\n    b",
			expected: "a\\\\\nb",
		},
		{
			name:     "backslash mid line",
			input:    "\n    a\\b\n    c",
			expected: "a\\b\nc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, prompts.Normalize(tt.input))
		})
	}
}

func TestNormalize_UniformIndent(t *testing.T) {
	lines := []string{"first line", "  nested", "last line"}

	for _, k := range []int{1, 2, 4, 8, 12} {
		pad := strings.Repeat(" ", k)
		var sb strings.Builder
		for _, line := range lines {
			sb.WriteString("\n" + pad + line)
		}
		assert.Equal(t, strings.Join(lines, "\n"), prompts.Normalize(sb.String()), "indent %d", k)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"\n    A test string",
		"\n        A test line\n          An indented line\n        Back\n    ",
		"\n        A long test \\\n        that we break \\\n        in several lines\n    ",
		"\n    {% for e in examples %}\n    Example: {{ e }}\n    {% endfor -%}",
		"I like   {{ food }}",
	}

	for _, input := range inputs {
		once := prompts.Normalize(input)
		assert.Equal(t, once, prompts.Normalize(once), "input %q", input)
	}
}

func TestNormalizeLines(t *testing.T) {
	assert.Equal(t, []string{"a", "  b"}, prompts.NormalizeLines("\n    a\n      b\n"))
}
