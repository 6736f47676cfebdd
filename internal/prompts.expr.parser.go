package internal

import (
	"fmt"
	"strings"
)

// ExprParser parses expression tokens into an AST using recursive descent.
// Precedence, lowest first: conditional, or, and, not, comparison,
// additive, concatenation, multiplicative, power, unary, filters/tests,
// postfix access, primary.
type ExprParser struct {
	tokens  []ExprToken
	current int
}

// NewExprParser creates a new expression parser
func NewExprParser(tokens []ExprToken) *ExprParser {
	return &ExprParser{
		tokens:  tokens,
		current: 0,
	}
}

// Parse parses a complete expression; bare comma-separated values form a tuple
func (p *ExprParser) Parse() (ExprNode, error) {
	if p.isAtEnd() {
		return nil, NewExprParseError(ErrMsgEmptyExpression, 0, "")
	}
	node, err := p.ParseTuple(true)
	if err != nil {
		return nil, err
	}
	if err := p.ExpectEnd(); err != nil {
		return nil, err
	}
	return node, nil
}

// ParseTuple parses one expression, or several separated by commas as a tuple
func (p *ExprParser) ParseTuple(withCond bool) (ExprNode, error) {
	first, err := p.ParseExpression(withCond)
	if err != nil {
		return nil, err
	}
	if !p.check(ExprOpComma) {
		return first, nil
	}

	items := []ExprNode{first}
	for p.match(ExprOpComma) {
		if p.isAtEnd() || p.check(ExprOpRParen) {
			break
		}
		next, err := p.ParseExpression(withCond)
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}
	return &TupleNode{Items: items}, nil
}

// ParseExpression parses a single expression. Without withCond a trailing
// "if" is left for the caller, as in a for-loop filter.
func (p *ExprParser) ParseExpression(withCond bool) (ExprNode, error) {
	if withCond {
		return p.parseCondExpr()
	}
	return p.parseOr()
}

// ExpectName consumes a name token and returns it
func (p *ExprParser) ExpectName() (string, error) {
	tok := p.peek()
	if tok.Type != ExprTokenTypeName {
		return "", NewExprParseError(ErrMsgExpectedName, tok.Pos, tok.Value)
	}
	p.advance()
	return tok.Value, nil
}

// Match consumes the next token when it is the given operator or keyword
func (p *ExprParser) Match(value string) bool {
	return p.match(value)
}

// Check reports whether the next token is the given operator or keyword
func (p *ExprParser) Check(value string) bool {
	return p.check(value)
}

// AtEnd reports whether all tokens have been consumed
func (p *ExprParser) AtEnd() bool {
	return p.isAtEnd()
}

// ExpectEnd fails unless all tokens have been consumed
func (p *ExprParser) ExpectEnd() error {
	if !p.isAtEnd() {
		tok := p.peek()
		return NewExprParseError(ErrMsgTrailingTokens, tok.Pos, tok.Value)
	}
	return nil
}

// parseCondExpr handles: expr if cond [else expr]
func (p *ExprParser) parseCondExpr() (ExprNode, error) {
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	for p.match(KeywordIf) {
		cond, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		var alt ExprNode
		if p.match(KeywordElse) {
			alt, err = p.parseCondExpr()
			if err != nil {
				return nil, err
			}
		}
		expr = &CondNode{Cond: cond, Then: expr, Else: alt}
	}

	return expr, nil
}

func (p *ExprParser) parseOr() (ExprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.match(ExprOpOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: ExprOpOr, Left: left, Right: right}
	}

	return left, nil
}

func (p *ExprParser) parseAnd() (ExprNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.match(ExprOpAnd) {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: ExprOpAnd, Left: left, Right: right}
	}

	return left, nil
}

func (p *ExprParser) parseNot() (ExprNode, error) {
	if p.check(ExprOpNot) && !p.checkNext(ExprOpIn) {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: ExprOpNot, X: operand}, nil
	}
	return p.parseCompare()
}

// parseCompare handles comparison chains; a < b < c becomes (a < b) and (b < c)
func (p *ExprParser) parseCompare() (ExprNode, error) {
	left, err := p.parseMath1()
	if err != nil {
		return nil, err
	}

	var result ExprNode
	for {
		var op string
		switch {
		case p.matchAny(ExprOpEq, ExprOpNeq, ExprOpLt, ExprOpLte, ExprOpGt, ExprOpGte, ExprOpIn):
			op = p.previous().Value
		case p.check(ExprOpNot) && p.checkNext(ExprOpIn):
			p.advance()
			p.advance()
			op = ExprOpNotIn
		default:
			if result == nil {
				return left, nil
			}
			return result, nil
		}

		right, err := p.parseMath1()
		if err != nil {
			return nil, err
		}
		cmp := &BinaryNode{Op: op, Left: left, Right: right}
		if result == nil {
			result = cmp
		} else {
			result = &BinaryNode{Op: ExprOpAnd, Left: result, Right: cmp}
		}
		left = right
	}
}

func (p *ExprParser) parseMath1() (ExprNode, error) {
	return p.parseBinaryLevel(p.parseConcat, ExprOpAdd, ExprOpSub)
}

func (p *ExprParser) parseConcat() (ExprNode, error) {
	return p.parseBinaryLevel(p.parseMath2, ExprOpConcat)
}

func (p *ExprParser) parseMath2() (ExprNode, error) {
	return p.parseBinaryLevel(p.parsePow, ExprOpMul, ExprOpDiv, ExprOpFloorDiv, ExprOpMod)
}

func (p *ExprParser) parsePow() (ExprNode, error) {
	return p.parseBinaryLevel(func() (ExprNode, error) { return p.parseUnary(true) }, ExprOpPow)
}

// parseBinaryLevel parses a left-associative chain of the given operators
func (p *ExprParser) parseBinaryLevel(next func() (ExprNode, error), ops ...string) (ExprNode, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}

	for p.matchAny(ops...) {
		op := p.previous().Value
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}

	return left, nil
}

func (p *ExprParser) parseUnary(withFilter bool) (ExprNode, error) {
	var node ExprNode
	var err error

	switch {
	case p.match(ExprOpSub):
		operand, err := p.parseUnary(false)
		if err != nil {
			return nil, err
		}
		node = &UnaryNode{Op: ExprOpSub, X: operand}
	case p.match(ExprOpAdd):
		operand, err := p.parseUnary(false)
		if err != nil {
			return nil, err
		}
		node = &UnaryNode{Op: ExprOpAdd, X: operand}
	default:
		node, err = p.parsePrimary()
		if err != nil {
			return nil, err
		}
		node, err = p.parsePostfix(node)
		if err != nil {
			return nil, err
		}
	}

	if withFilter {
		return p.parseFilterExpr(node)
	}
	return node, nil
}

func (p *ExprParser) parsePrimary() (ExprNode, error) {
	tok := p.peek()

	switch tok.Type {
	case ExprTokenTypeName:
		p.advance()
		switch strings.ToLower(tok.Value) {
		case KeywordTrue:
			if tok.Value == KeywordTrue || tok.Value == StrTrue {
				return &LiteralNode{Value: true}, nil
			}
		case KeywordFalse:
			if tok.Value == KeywordFalse || tok.Value == StrFalse {
				return &LiteralNode{Value: false}, nil
			}
		case KeywordNone:
			if tok.Value == KeywordNone || tok.Value == StrNone {
				return &LiteralNode{Value: nil}, nil
			}
		}
		return &NameNode{Name: tok.Value}, nil

	case ExprTokenTypeString:
		p.advance()
		s := tok.Literal.(string)
		// Adjacent string literals concatenate
		for p.peek().Type == ExprTokenTypeString {
			s += p.advance().Literal.(string)
		}
		return &LiteralNode{Value: s}, nil

	case ExprTokenTypeInt, ExprTokenTypeFloat:
		p.advance()
		return &LiteralNode{Value: tok.Literal}, nil

	case ExprTokenTypeOperator:
		switch tok.Value {
		case ExprOpLParen:
			p.advance()
			return p.parseParen()
		case ExprOpLBracket:
			p.advance()
			items, err := p.parseSequence(ExprOpRBracket)
			if err != nil {
				return nil, err
			}
			return &ListNode{Items: items}, nil
		case ExprOpLBrace:
			p.advance()
			return p.parseDict()
		}
	}

	if tok.Type == ExprTokenTypeEOF {
		return nil, NewExprParseError(ErrMsgUnexpectedEnd, tok.Pos, "")
	}
	return nil, NewExprParseError(ErrMsgUnexpectedToken, tok.Pos, tok.Value)
}

// parseParen parses what follows "(": a grouped expression or a tuple
func (p *ExprParser) parseParen() (ExprNode, error) {
	if p.match(ExprOpRParen) {
		return &TupleNode{}, nil
	}

	first, err := p.ParseExpression(true)
	if err != nil {
		return nil, err
	}
	if p.match(ExprOpRParen) {
		return first, nil
	}
	if err := p.expect(ExprOpComma); err != nil {
		return nil, err
	}

	items := []ExprNode{first}
	rest, err := p.parseSequence(ExprOpRParen)
	if err != nil {
		return nil, err
	}
	return &TupleNode{Items: append(items, rest...)}, nil
}

// parseSequence parses comma-separated expressions up to the closing operator
func (p *ExprParser) parseSequence(closing string) ([]ExprNode, error) {
	var items []ExprNode
	for !p.match(closing) {
		if len(items) > 0 {
			if err := p.expect(ExprOpComma); err != nil {
				return nil, err
			}
			if p.match(closing) {
				break
			}
		}
		item, err := p.ParseExpression(true)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *ExprParser) parseDict() (ExprNode, error) {
	node := &DictNode{}
	for !p.match(ExprOpRBrace) {
		if len(node.Keys) > 0 {
			if err := p.expect(ExprOpComma); err != nil {
				return nil, err
			}
			if p.match(ExprOpRBrace) {
				break
			}
		}
		key, err := p.ParseExpression(true)
		if err != nil {
			return nil, err
		}
		if err := p.expect(ExprOpColon); err != nil {
			return nil, err
		}
		value, err := p.ParseExpression(true)
		if err != nil {
			return nil, err
		}
		node.Keys = append(node.Keys, key)
		node.Values = append(node.Values, value)
	}
	return node, nil
}

// parsePostfix handles attribute access, subscripts and calls
func (p *ExprParser) parsePostfix(node ExprNode) (ExprNode, error) {
	for {
		switch {
		case p.match(ExprOpDot):
			tok := p.advance()
			switch tok.Type {
			case ExprTokenTypeName:
				node = &AttrNode{Obj: node, Name: tok.Value}
			case ExprTokenTypeInt:
				node = &IndexNode{Obj: node, Key: &LiteralNode{Value: tok.Literal}}
			default:
				return nil, NewExprParseError(ErrMsgExpectedName, tok.Pos, tok.Value)
			}
		case p.match(ExprOpLBracket):
			sub, err := p.parseSubscript(node)
			if err != nil {
				return nil, err
			}
			node = sub
		case p.match(ExprOpLParen):
			call, err := p.parseCall(node)
			if err != nil {
				return nil, err
			}
			node = call
		default:
			return node, nil
		}
	}
}

func (p *ExprParser) parseSubscript(obj ExprNode) (ExprNode, error) {
	var start ExprNode
	var err error

	if !p.check(ExprOpColon) {
		start, err = p.ParseExpression(true)
		if err != nil {
			return nil, err
		}
		if p.match(ExprOpRBracket) {
			return &IndexNode{Obj: obj, Key: start}, nil
		}
	}

	slice := &SliceNode{Obj: obj, Start: start}
	if err := p.expect(ExprOpColon); err != nil {
		return nil, err
	}
	if !p.check(ExprOpRBracket) && !p.check(ExprOpColon) {
		if slice.Stop, err = p.ParseExpression(true); err != nil {
			return nil, err
		}
	}
	if p.match(ExprOpColon) && !p.check(ExprOpRBracket) {
		if slice.Step, err = p.ParseExpression(true); err != nil {
			return nil, err
		}
	}
	if err := p.expect(ExprOpRBracket); err != nil {
		return nil, err
	}
	return slice, nil
}

func (p *ExprParser) parseCall(fn ExprNode) (ExprNode, error) {
	args, kwargs, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	return &CallNode{Fn: fn, Args: args, Kwargs: kwargs}, nil
}

// parseArgs parses an argument list after "(" up to and including ")"
func (p *ExprParser) parseArgs() ([]ExprNode, []KwArg, error) {
	var args []ExprNode
	var kwargs []KwArg

	for !p.match(ExprOpRParen) {
		if len(args)+len(kwargs) > 0 {
			if err := p.expect(ExprOpComma); err != nil {
				return nil, nil, err
			}
			if p.match(ExprOpRParen) {
				break
			}
		}

		if p.peek().Type == ExprTokenTypeName && p.checkNext(ExprOpAssign) {
			name := p.advance().Value
			p.advance()
			value, err := p.ParseExpression(true)
			if err != nil {
				return nil, nil, err
			}
			kwargs = append(kwargs, KwArg{Name: name, Value: value})
			continue
		}

		if len(kwargs) > 0 {
			return nil, nil, NewExprParseError(ErrMsgPositionalAfterKw, p.peek().Pos, p.peek().Value)
		}
		arg, err := p.ParseExpression(true)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, arg)
	}

	return args, kwargs, nil
}

// parseFilterExpr handles |filter, is test and trailing calls
func (p *ExprParser) parseFilterExpr(node ExprNode) (ExprNode, error) {
	for {
		switch {
		case p.match(ExprOpPipe):
			name, err := p.parseDottedName()
			if err != nil {
				return nil, err
			}
			filter := &FilterNode{Obj: node, Name: name}
			if p.match(ExprOpLParen) {
				if filter.Args, filter.Kwargs, err = p.parseArgs(); err != nil {
					return nil, err
				}
			}
			node = filter
		case p.match(KeywordIs):
			test, err := p.parseTest(node)
			if err != nil {
				return nil, err
			}
			node = test
		case p.match(ExprOpLParen):
			call, err := p.parseCall(node)
			if err != nil {
				return nil, err
			}
			node = call
		default:
			return node, nil
		}
	}
}

func (p *ExprParser) parseTest(obj ExprNode) (ExprNode, error) {
	negated := p.match(ExprOpNot)
	name, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	test := &TestNode{Obj: obj, Name: name, Negated: negated}

	if p.match(ExprOpLParen) {
		args, _, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		test.Args = args
		return test, nil
	}

	if p.startsTestArg() {
		arg, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if arg, err = p.parsePostfix(arg); err != nil {
			return nil, err
		}
		test.Args = []ExprNode{arg}
	}
	return test, nil
}

// startsTestArg reports whether the next token begins a bare test argument,
// as in "x is divisibleby 3"
func (p *ExprParser) startsTestArg() bool {
	tok := p.peek()
	switch tok.Type {
	case ExprTokenTypeString, ExprTokenTypeInt, ExprTokenTypeFloat:
		return true
	case ExprTokenTypeName:
		switch tok.Value {
		case KeywordElse, ExprOpOr, ExprOpAnd, KeywordIf, KeywordIs, ExprOpIn, ExprOpNot:
			return false
		}
		return true
	case ExprTokenTypeOperator:
		return tok.Value == ExprOpLBracket || tok.Value == ExprOpLBrace
	}
	return false
}

func (p *ExprParser) parseDottedName() (string, error) {
	name, err := p.ExpectName()
	if err != nil {
		return "", err
	}
	for p.check(ExprOpDot) && p.peekAt(1).Type == ExprTokenTypeName {
		p.advance()
		name += ExprOpDot + p.advance().Value
	}
	return name, nil
}

func (p *ExprParser) expect(value string) error {
	if p.match(value) {
		return nil
	}
	tok := p.peek()
	return NewExprParseError(ErrMsgExpectedToken, tok.Pos, fmt.Sprintf("%q, got %q", value, tok.Value))
}

func (p *ExprParser) match(value string) bool {
	if p.check(value) {
		p.advance()
		return true
	}
	return false
}

func (p *ExprParser) matchAny(values ...string) bool {
	for _, v := range values {
		if p.match(v) {
			return true
		}
	}
	return false
}

func (p *ExprParser) check(value string) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Is(value)
}

func (p *ExprParser) checkNext(value string) bool {
	return p.peekAt(1).Is(value)
}

func (p *ExprParser) advance() ExprToken {
	tok := p.peek()
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *ExprParser) peek() ExprToken {
	return p.peekAt(0)
}

func (p *ExprParser) peekAt(offset int) ExprToken {
	idx := p.current + offset
	if idx >= len(p.tokens) {
		return ExprToken{Type: ExprTokenTypeEOF}
	}
	return p.tokens[idx]
}

func (p *ExprParser) previous() ExprToken {
	if p.current == 0 {
		return ExprToken{Type: ExprTokenTypeEOF}
	}
	return p.tokens[p.current-1]
}

func (p *ExprParser) isAtEnd() bool {
	return p.peek().Type == ExprTokenTypeEOF
}

// ExprParseError represents an expression parsing error
type ExprParseError struct {
	Message string
	Pos     int
	Detail  string
}

// NewExprParseError creates a new expression parse error
func NewExprParseError(message string, pos int, detail string) *ExprParseError {
	return &ExprParseError{
		Message: message,
		Pos:     pos,
		Detail:  detail,
	}
}

// Error implements the error interface
func (e *ExprParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s at position %d: %s", e.Message, e.Pos, e.Detail)
	}
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}

// ParseExpression is a convenience function that tokenizes and parses an expression string
func ParseExpression(expr string) (ExprNode, error) {
	tokens, err := NewExprTokenizer(expr).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewExprParser(tokens).Parse()
}
