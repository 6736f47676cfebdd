package internal

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// LexerConfig holds the whitespace handling of the lexer
type LexerConfig struct {
	TrimBlocks   bool // Drop the first newline after a block or comment tag
	LstripBlocks bool // Drop spaces and tabs before a block or comment tag that starts a line
}

// DefaultLexerConfig returns the configuration used for prompt templates
func DefaultLexerConfig() LexerConfig {
	return LexerConfig{
		TrimBlocks:   true,
		LstripBlocks: true,
	}
}

var endRawPattern = regexp.MustCompile(`\{%([-+]?)\s*endraw\s*([-+]?)%\}`)

// Lexer splits template source into text, expression and statement tokens
type Lexer struct {
	source     string
	config     LexerConfig
	pos        int
	lineStarts []int
	logger     *zap.Logger
}

// NewLexer creates a new lexer with default configuration
func NewLexer(source string, logger *zap.Logger) *Lexer {
	return NewLexerWithConfig(source, DefaultLexerConfig(), logger)
}

// NewLexerWithConfig creates a lexer with custom configuration
func NewLexerWithConfig(source string, config LexerConfig, logger *zap.Logger) *Lexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgLexerCreated, zap.Int(LogFieldSource, len(source)))

	lineStarts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == CharNewline {
			lineStarts = append(lineStarts, i+1)
		}
	}

	return &Lexer{
		source:     source,
		config:     config,
		lineStarts: lineStarts,
		logger:     logger,
	}
}

// Tokenize processes the source and returns a token stream ending in EOF
func (l *Lexer) Tokenize() ([]Token, error) {
	l.logger.Debug(LogMsgTokenizerStart)
	var tokens []Token

	for l.pos < len(l.source) {
		textStart := l.pos
		atLineStart := l.atLineStart()

		open := l.findOpen(l.pos)
		if open < 0 {
			tokens = appendText(tokens, l.source[l.pos:], l.position(textStart))
			l.pos = len(l.source)
			break
		}

		delim := l.source[open : open+LenDelim]
		inner := open + LenDelim
		openMark := l.markAt(inner)
		if openMark != 0 {
			inner++
		}

		text := l.source[l.pos:open]
		text = l.controlBefore(text, delim, openMark, atLineStart)
		tokens = appendText(tokens, text, l.position(textStart))

		closeDelim := closingFor(delim)
		closeAt, err := l.findClose(inner, delim, closeDelim)
		if err != nil {
			return nil, err
		}

		contentEnd := closeAt
		closeMark := byte(0)
		if closeAt > inner {
			if m := l.source[closeAt-1]; m == CharTrim || m == CharKeep {
				closeMark = m
				contentEnd--
			}
		}
		content := l.source[inner:contentEnd]
		pos := l.position(open)
		l.pos = closeAt + LenDelim
		l.controlAfter(delim, closeMark)

		switch delim {
		case StrCommentOpen:
			continue
		case StrVarOpen:
			tokens = append(tokens, NewExprToken(content, pos))
		case StrBlockOpen:
			if strings.TrimSpace(content) == KeywordRaw {
				raw, err := l.scanRaw(pos)
				if err != nil {
					return nil, err
				}
				tokens = appendText(tokens, raw, pos)
				continue
			}
			tokens = append(tokens, NewStmtToken(content, pos))
		}
	}

	tokens = append(tokens, NewEOFToken(l.position(l.pos)))
	l.logger.Debug(LogMsgTokenizerEnd, zap.Int(LogFieldTokens, len(tokens)))
	return tokens, nil
}

// scanRaw consumes everything up to the matching endraw tag verbatim
func (l *Lexer) scanRaw(start Position) (string, error) {
	atLineStart := l.atLineStart()
	loc := endRawPattern.FindStringSubmatchIndex(l.source[l.pos:])
	if loc == nil {
		return "", &LexerError{Message: ErrMsgUnclosedRaw, Position: start}
	}

	body := l.source[l.pos : l.pos+loc[0]]
	var openMark, closeMark byte
	if loc[3] > loc[2] {
		openMark = l.source[l.pos+loc[2]]
	}
	if loc[5] > loc[4] {
		closeMark = l.source[l.pos+loc[4]]
	}

	body = l.controlBefore(body, StrBlockOpen, openMark, atLineStart)
	l.pos += loc[1]
	l.controlAfter(StrBlockOpen, closeMark)
	return body, nil
}

// controlBefore applies "-" trimming and lstrip_blocks to the text preceding a tag
func (l *Lexer) controlBefore(text, delim string, mark byte, atLineStart bool) string {
	if mark == CharTrim {
		return strings.TrimRight(text, " \t\r\n\v\f")
	}
	if mark == CharKeep || !l.config.LstripBlocks || delim == StrVarOpen {
		return text
	}

	lineStart := strings.LastIndexByte(text, CharNewline) + 1
	if lineStart == 0 && !atLineStart {
		return text
	}
	if strings.Trim(text[lineStart:], " \t") != "" {
		return text
	}
	return text[:lineStart]
}

// controlAfter applies "-" trimming and trim_blocks to the text following a tag
func (l *Lexer) controlAfter(delim string, mark byte) {
	if mark == CharTrim {
		for l.pos < len(l.source) && isSpaceByte(l.source[l.pos]) {
			l.pos++
		}
		return
	}
	if mark == CharKeep || !l.config.TrimBlocks || delim == StrVarOpen {
		return
	}
	if strings.HasPrefix(l.source[l.pos:], "\r\n") {
		l.pos += 2
	} else if l.pos < len(l.source) && l.source[l.pos] == CharNewline {
		l.pos++
	}
}

// findOpen returns the offset of the next tag opener at or after from, or -1
func (l *Lexer) findOpen(from int) int {
	for i := from; i+1 < len(l.source); i++ {
		if l.source[i] != '{' {
			continue
		}
		switch l.source[i+1] {
		case '{', '%', '#':
			return i
		}
	}
	return -1
}

// findClose locates the closing delimiter, skipping over quoted strings
// inside expressions and statements
func (l *Lexer) findClose(from int, delim, closeDelim string) (int, error) {
	if delim == StrCommentOpen {
		idx := strings.Index(l.source[from:], closeDelim)
		if idx < 0 {
			return 0, &LexerError{Message: ErrMsgUnclosedComment, Position: l.position(from - LenDelim)}
		}
		return from + idx, nil
	}

	for i := from; i < len(l.source); i++ {
		ch := l.source[i]
		if ch == CharQuote || ch == CharApos {
			end := l.skipString(i)
			if end < 0 {
				return 0, &LexerError{Message: ErrMsgUnclosedString, Position: l.position(i)}
			}
			i = end
			continue
		}
		if strings.HasPrefix(l.source[i:], closeDelim) {
			return i, nil
		}
	}
	return 0, &LexerError{Message: ErrMsgUnclosedTag, Position: l.position(from - LenDelim)}
}

// skipString returns the offset of the quote closing the string opened at i
func (l *Lexer) skipString(i int) int {
	quote := l.source[i]
	for j := i + 1; j < len(l.source); j++ {
		switch l.source[j] {
		case CharEscape:
			j++
		case quote:
			return j
		}
	}
	return -1
}

func (l *Lexer) markAt(i int) byte {
	if i < len(l.source) && (l.source[i] == CharTrim || l.source[i] == CharKeep) {
		return l.source[i]
	}
	return 0
}

func (l *Lexer) atLineStart() bool {
	return l.pos == 0 || l.source[l.pos-1] == CharNewline
}

// position converts a byte offset into a line/column position
func (l *Lexer) position(offset int) Position {
	line := sort.SearchInts(l.lineStarts, offset+1) - 1
	if line < 0 {
		line = 0
	}
	return Position{
		Offset: offset,
		Line:   line + 1,
		Column: offset - l.lineStarts[line] + 1,
	}
}

func closingFor(delim string) string {
	switch delim {
	case StrVarOpen:
		return StrVarClose
	case StrCommentOpen:
		return StrCommentClose
	default:
		return StrBlockClose
	}
}

func appendText(tokens []Token, text string, pos Position) []Token {
	if text == "" {
		return tokens
	}
	return append(tokens, NewTextToken(text, pos))
}

func isSpaceByte(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// LexerError represents a tokenization error
type LexerError struct {
	Message  string
	Position Position
}

func (e *LexerError) Error() string {
	return e.Message + " at " + e.Position.String()
}
