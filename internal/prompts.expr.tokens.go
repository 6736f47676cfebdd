package internal

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExprTokenType represents the type of an expression token
type ExprTokenType string

// Expression token type constants
const (
	ExprTokenTypeName     ExprTokenType = "NAME"
	ExprTokenTypeString   ExprTokenType = "STRING"
	ExprTokenTypeInt      ExprTokenType = "INT"
	ExprTokenTypeFloat    ExprTokenType = "FLOAT"
	ExprTokenTypeOperator ExprTokenType = "OP"
	ExprTokenTypeEOF      ExprTokenType = "EOF"
)

// Expression operators, longest first so the tokenizer matches greedily
var exprOperators = []string{
	"//", "**", "==", "!=", "<=", ">=",
	"+", "-", "*", "/", "%", "~", "<", ">", "=",
	"(", ")", "[", "]", "{", "}", ",", ".", ":", "|",
}

// Expression operator strings
const (
	ExprOpAdd      = "+"
	ExprOpSub      = "-"
	ExprOpMul      = "*"
	ExprOpDiv      = "/"
	ExprOpFloorDiv = "//"
	ExprOpMod      = "%"
	ExprOpPow      = "**"
	ExprOpConcat   = "~"
	ExprOpEq       = "=="
	ExprOpNeq      = "!="
	ExprOpLt       = "<"
	ExprOpLte      = "<="
	ExprOpGt       = ">"
	ExprOpGte      = ">="
	ExprOpAssign   = "="
	ExprOpLParen   = "("
	ExprOpRParen   = ")"
	ExprOpLBracket = "["
	ExprOpRBracket = "]"
	ExprOpLBrace   = "{"
	ExprOpRBrace   = "}"
	ExprOpComma    = ","
	ExprOpDot      = "."
	ExprOpColon    = ":"
	ExprOpPipe     = "|"
	ExprOpIn       = "in"
	ExprOpNotIn    = "not in"
	ExprOpAnd      = "and"
	ExprOpOr       = "or"
	ExprOpNot      = "not"
)

// ExprToken represents a token in an expression
type ExprToken struct {
	Type    ExprTokenType
	Value   string
	Pos     int
	Literal any // Parsed value for literals (string, int64, float64)
}

// String returns the string representation of the token
func (t ExprToken) String() string {
	if t.Value != "" {
		return fmt.Sprintf("%s(%s)", t.Type, t.Value)
	}
	return string(t.Type)
}

// Is reports whether the token is the given operator or keyword name
func (t ExprToken) Is(value string) bool {
	return (t.Type == ExprTokenTypeOperator || t.Type == ExprTokenTypeName) && t.Value == value
}

// ExprTokenizer tokenizes expression strings
type ExprTokenizer struct {
	input string
	pos   int
	len   int
}

// NewExprTokenizer creates a new expression tokenizer
func NewExprTokenizer(input string) *ExprTokenizer {
	return &ExprTokenizer{
		input: input,
		pos:   0,
		len:   len(input),
	}
}

// Tokenize converts the input string into a slice of tokens
func (t *ExprTokenizer) Tokenize() ([]ExprToken, error) {
	var tokens []ExprToken

	for {
		t.skipWhitespace()

		if t.pos >= t.len {
			tokens = append(tokens, ExprToken{Type: ExprTokenTypeEOF, Pos: t.pos})
			break
		}

		token, err := t.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}

func (t *ExprTokenizer) nextToken() (ExprToken, error) {
	ch := t.input[t.pos]

	if ch == CharQuote || ch == CharApos {
		return t.readString()
	}
	if isDigit(ch) {
		return t.readNumber()
	}

	r, _ := utf8.DecodeRuneInString(t.input[t.pos:])
	if r == '_' || unicode.IsLetter(r) {
		return t.readName(), nil
	}

	for _, op := range exprOperators {
		if strings.HasPrefix(t.input[t.pos:], op) {
			tok := ExprToken{Type: ExprTokenTypeOperator, Value: op, Pos: t.pos}
			t.pos += len(op)
			return tok, nil
		}
	}

	return ExprToken{}, NewExprParseError(ErrMsgUnexpectedChar, t.pos, string(r))
}

func (t *ExprTokenizer) readString() (ExprToken, error) {
	start := t.pos
	quote := t.input[t.pos]
	t.pos++

	var sb strings.Builder
	for t.pos < t.len {
		ch := t.input[t.pos]
		if ch == quote {
			t.pos++
			return ExprToken{
				Type:    ExprTokenTypeString,
				Value:   t.input[start:t.pos],
				Pos:     start,
				Literal: sb.String(),
			}, nil
		}
		if ch == CharEscape && t.pos+1 < t.len {
			t.pos++
			sb.WriteString(unescapeChar(t.input[t.pos], quote))
			t.pos++
			continue
		}
		sb.WriteByte(ch)
		t.pos++
	}

	return ExprToken{}, NewExprParseError(ErrMsgUnclosedString, start, t.input[start:])
}

func unescapeChar(ch, quote byte) string {
	switch ch {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case CharEscape:
		return "\\"
	case quote:
		return string(quote)
	default:
		return string([]byte{CharEscape, ch})
	}
}

func (t *ExprTokenizer) readNumber() (ExprToken, error) {
	start := t.pos
	isFloat := false

	for t.pos < t.len && (isDigit(t.input[t.pos]) || t.input[t.pos] == '_') {
		t.pos++
	}
	// A dot only continues the number when a digit follows, so "1..2" and "x.0" stay apart
	if t.pos+1 < t.len && t.input[t.pos] == '.' && isDigit(t.input[t.pos+1]) {
		isFloat = true
		t.pos++
		for t.pos < t.len && (isDigit(t.input[t.pos]) || t.input[t.pos] == '_') {
			t.pos++
		}
	}
	if t.pos < t.len && (t.input[t.pos] == 'e' || t.input[t.pos] == 'E') {
		next := t.pos + 1
		if next < t.len && (t.input[next] == '+' || t.input[next] == '-') {
			next++
		}
		if next < t.len && isDigit(t.input[next]) {
			isFloat = true
			t.pos = next
			for t.pos < t.len && isDigit(t.input[t.pos]) {
				t.pos++
			}
		}
	}

	text := t.input[start:t.pos]
	clean := strings.ReplaceAll(text, "_", "")
	if isFloat {
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return ExprToken{}, NewExprParseError(ErrMsgInvalidNumber, start, text)
		}
		return ExprToken{Type: ExprTokenTypeFloat, Value: text, Pos: start, Literal: f}, nil
	}

	if n, err := strconv.ParseInt(clean, 10, 64); err == nil {
		return ExprToken{Type: ExprTokenTypeInt, Value: text, Pos: start, Literal: n}, nil
	}
	n, ok := new(big.Int).SetString(clean, 10)
	if !ok {
		return ExprToken{}, NewExprParseError(ErrMsgInvalidNumber, start, text)
	}
	return ExprToken{Type: ExprTokenTypeInt, Value: text, Pos: start, Literal: n}, nil
}

func (t *ExprTokenizer) readName() ExprToken {
	start := t.pos
	for t.pos < t.len {
		r, size := utf8.DecodeRuneInString(t.input[t.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		t.pos += size
	}
	return ExprToken{Type: ExprTokenTypeName, Value: t.input[start:t.pos], Pos: start}
}

func (t *ExprTokenizer) skipWhitespace() {
	for t.pos < t.len && isSpaceByte(t.input[t.pos]) {
		t.pos++
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
