package prompts

import (
	"strings"
	"unicode"
)

// Normalize turns author-written, source-indented text into the text the
// author intended. Steps, in order:
//
//  1. tabs are expanded to 8-column stops
//  2. common indentation is removed; the first line does not count toward
//     the margin and leading and trailing blank lines are dropped
//  3. one "\n" is restored when the original ends in a blank line, ignoring spaces
//  4. a backslash before a newline joins the two lines, unless it is escaped
//  5. whitespace runs after a word character (any Unicode letter or number,
//     or the underscore) collapse into one space
//
// Whitespace at the start of a line is never collapsed, so a continued
// line's indentation is not re-introduced at the join point.
func Normalize(text string) string {
	cleaned := dedent(expandTabs(text, TabSize))

	if strings.HasSuffix(strings.ReplaceAll(text, " ", ""), "\n\n") {
		cleaned += "\n"
	}

	cleaned = joinContinuations(cleaned)
	return collapseWhitespace(cleaned)
}

// NormalizeLines returns the normalized text split into lines
func NormalizeLines(text string) []string {
	return strings.Split(Normalize(text), "\n")
}

// expandTabs replaces tabs with spaces up to the next multiple of size.
// Columns restart after every line break.
func expandTabs(text string, size int) string {
	if !strings.Contains(text, "\t") {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	col := 0
	for _, r := range text {
		switch r {
		case '\t':
			n := size - col%size
			sb.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n', '\r':
			sb.WriteRune(r)
			col = 0
		default:
			sb.WriteRune(r)
			col++
		}
	}
	return sb.String()
}

// dedent removes the common indentation of every line after the first.
// The first line is left-stripped instead, then leading and trailing empty
// lines are removed.
func dedent(text string) string {
	lines := strings.Split(text, "\n")

	margin := -1
	for _, line := range lines[1:] {
		content := strings.TrimLeftFunc(line, unicode.IsSpace)
		if content == "" {
			continue
		}
		indent := len([]rune(line)) - len([]rune(content))
		if margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeftFunc(lines[0], unicode.IsSpace)
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			runes := []rune(lines[i])
			if len(runes) <= margin {
				lines[i] = ""
			} else {
				lines[i] = string(runes[margin:])
			}
		}
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// collapseWhitespace replaces every run of horizontal whitespace that directly
// follows a word character with a single space. Word characters are Unicode
// letters, numbers and the underscore.
func collapseWhitespace(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	afterWord := false
	inRun := false
	for _, r := range text {
		if inRun {
			if isHorizontalSpace(r) {
				continue
			}
			inRun = false
		}
		if afterWord && isHorizontalSpace(r) {
			sb.WriteByte(' ')
			inRun = true
			afterWord = false
			continue
		}
		sb.WriteRune(r)
		afterWord = isWordRune(r)
	}
	return sb.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// isHorizontalSpace reports whitespace other than line breaks. The ASCII
// separators 0x1C-0x1F count as whitespace, as they do for Unicode-aware
// regular expression engines.
func isHorizontalSpace(r rune) bool {
	if r == '\r' || r == '\n' {
		return false
	}
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// joinContinuations removes every newline preceded by an odd run of
// backslashes, together with the last backslash of the run
func joinContinuations(text string) string {
	if !strings.Contains(text, "\\\n") {
		return text
	}

	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			out = append(out, text[i])
			continue
		}
		run := 0
		for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
			run++
		}
		if run%2 == 1 {
			out = out[:len(out)-1]
			continue
		}
		out = append(out, '\n')
	}
	return string(out)
}
