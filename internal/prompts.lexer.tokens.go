package internal

import "fmt"

// Position represents a location in the source template
type Position struct {
	Offset int // Byte offset from start
	Line   int // 1-indexed line number
	Column int // 1-indexed column number
}

// String returns a human-readable position string
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Token is one segment of template source: literal text, an output
// expression or a statement. Comments never produce tokens.
type Token struct {
	Type     TokenType
	Value    string
	Position Position
}

// String returns a human-readable representation of the token
func (t Token) String() string {
	if t.Value == "" {
		return fmt.Sprintf("Token{%s @ %s}", t.Type, t.Position)
	}
	return fmt.Sprintf("Token{%s: %q @ %s}", t.Type, t.Value, t.Position)
}

// IsEOF returns true if this is an end-of-file token
func (t Token) IsEOF() bool {
	return t.Type == TokenTypeEOF
}

// NewTextToken creates a text token with the given content
func NewTextToken(content string, pos Position) Token {
	return Token{Type: TokenTypeText, Value: content, Position: pos}
}

// NewExprToken creates a token for the inside of a {{ ... }} tag
func NewExprToken(source string, pos Position) Token {
	return Token{Type: TokenTypeExpr, Value: source, Position: pos}
}

// NewStmtToken creates a token for the inside of a {% ... %} tag
func NewStmtToken(source string, pos Position) Token {
	return Token{Type: TokenTypeStmt, Value: source, Position: pos}
}

// NewEOFToken creates an EOF token at the given position
func NewEOFToken(pos Position) Token {
	return Token{Type: TokenTypeEOF, Position: pos}
}
