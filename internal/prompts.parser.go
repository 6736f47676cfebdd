package internal

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Parser builds an AST from a lexer token stream using recursive descent
type Parser struct {
	tokens  []Token
	current int
	logger  *zap.Logger
}

// stmtHead is a statement tag split into its keyword and the rest of its tokens
type stmtHead struct {
	keyword string
	expr    *ExprParser
	pos     Position
}

// NewParser creates a new parser for the given tokens
func NewParser(tokens []Token, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgParserCreated, zap.Int(LogFieldTokens, len(tokens)))
	return &Parser{
		tokens: tokens,
		logger: logger,
	}
}

// Parse parses the token stream into an AST
func (p *Parser) Parse() (*RootNode, error) {
	p.logger.Debug(LogMsgParserStart)

	children, head, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if head != nil {
		return nil, p.errorAt(ErrMsgUnexpectedEnd, head.pos, head.keyword)
	}

	root := &RootNode{Children: children}
	p.logger.Debug(LogMsgParserEnd, zap.Int(LogFieldNodes, len(children)))
	return root, nil
}

// parseNodes parses nodes until EOF or a statement whose keyword is in ends.
// The terminating statement is returned so the caller can finish it.
func (p *Parser) parseNodes(ends ...string) ([]Node, *stmtHead, error) {
	var nodes []Node

	for {
		tok := p.advance()

		switch tok.Type {
		case TokenTypeEOF:
			if len(ends) > 0 {
				return nil, nil, p.errorAt(ErrMsgUnclosedBlock, tok.Position, ends[len(ends)-1])
			}
			return nodes, nil, nil

		case TokenTypeText:
			nodes = append(nodes, &TextNode{Content: tok.Value, Position: tok.Position})

		case TokenTypeExpr:
			expr, err := p.parseOutput(tok)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, expr)

		case TokenTypeStmt:
			head, err := p.parseHead(tok)
			if err != nil {
				return nil, nil, err
			}
			for _, end := range ends {
				if head.keyword == end {
					return nodes, head, nil
				}
			}

			node, err := p.parseStatement(head)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, node)
		}
	}
}

func (p *Parser) parseOutput(tok Token) (Node, error) {
	exprTokens, err := NewExprTokenizer(tok.Value).Tokenize()
	if err != nil {
		return nil, p.wrapExprError(err, tok.Position)
	}
	if len(exprTokens) == 1 {
		return nil, p.errorAt(ErrMsgEmptyExpression, tok.Position, "")
	}
	expr, err := NewExprParser(exprTokens).Parse()
	if err != nil {
		return nil, p.wrapExprError(err, tok.Position)
	}
	return &OutputNode{Expr: expr, Position: tok.Position}, nil
}

func (p *Parser) parseHead(tok Token) (*stmtHead, error) {
	exprTokens, err := NewExprTokenizer(tok.Value).Tokenize()
	if err != nil {
		return nil, p.wrapExprError(err, tok.Position)
	}
	ep := NewExprParser(exprTokens)
	if ep.AtEnd() {
		return nil, p.errorAt(ErrMsgEmptyStatement, tok.Position, "")
	}
	keyword, err := ep.ExpectName()
	if err != nil {
		return nil, p.wrapExprError(err, tok.Position)
	}
	return &stmtHead{keyword: keyword, expr: ep, pos: tok.Position}, nil
}

func (p *Parser) parseStatement(head *stmtHead) (Node, error) {
	switch head.keyword {
	case KeywordIf:
		return p.parseIf(head)
	case KeywordFor:
		return p.parseFor(head)
	case KeywordSet:
		return p.parseSet(head)
	case KeywordElif, KeywordElse, KeywordEndIf, KeywordEndFor, KeywordEndSet, KeywordEndRaw:
		return nil, p.errorAt(ErrMsgUnexpectedEnd, head.pos, head.keyword)
	default:
		return nil, p.errorAt(ErrMsgUnknownStatement, head.pos, head.keyword)
	}
}

func (p *Parser) parseIf(head *stmtHead) (Node, error) {
	node := &IfNode{Position: head.pos}

	for {
		cond, err := p.finishExpr(head)
		if err != nil {
			return nil, err
		}
		body, end, err := p.parseNodes(KeywordElif, KeywordElse, KeywordEndIf)
		if err != nil {
			return nil, err
		}
		node.Branches = append(node.Branches, IfBranch{Condition: cond, Body: body, Position: head.pos})

		switch end.keyword {
		case KeywordElif:
			head = end
			continue
		case KeywordElse:
			if err := p.finishEmpty(end); err != nil {
				return nil, err
			}
			elseBody, endif, err := p.parseNodes(KeywordEndIf, KeywordElif, KeywordElse)
			if err != nil {
				return nil, err
			}
			switch endif.keyword {
			case KeywordElif:
				return nil, p.errorAt(ErrMsgElifAfterElse, endif.pos, "")
			case KeywordElse:
				return nil, p.errorAt(ErrMsgElseAfterElse, endif.pos, "")
			}
			if err := p.finishEmpty(endif); err != nil {
				return nil, err
			}
			// Non-nil marks an else branch, even when its body is empty
			node.Else = append([]Node{}, elseBody...)
			return node, nil
		default:
			if err := p.finishEmpty(end); err != nil {
				return nil, err
			}
			return node, nil
		}
	}
}

func (p *Parser) parseFor(head *stmtHead) (Node, error) {
	node := &ForNode{Position: head.pos}
	ep := head.expr

	for {
		name, err := ep.ExpectName()
		if err != nil {
			return nil, p.errorAt(ErrMsgForBadTarget, head.pos, err.Error())
		}
		node.Targets = append(node.Targets, name)
		if !ep.Match(ExprOpComma) {
			break
		}
	}
	if !ep.Match(KeywordIn) {
		return nil, p.errorAt(ErrMsgForMissingIn, head.pos, "")
	}

	iter, err := ep.ParseTuple(false)
	if err != nil {
		return nil, p.wrapExprError(err, head.pos)
	}
	node.Iter = iter

	if ep.Match(KeywordIf) {
		if node.Filter, err = ep.ParseExpression(true); err != nil {
			return nil, p.wrapExprError(err, head.pos)
		}
	}
	if err := ep.ExpectEnd(); err != nil {
		return nil, p.wrapExprError(err, head.pos)
	}

	body, end, err := p.parseNodes(KeywordElse, KeywordEndFor)
	if err != nil {
		return nil, err
	}
	node.Body = body

	if end.keyword == KeywordElse {
		if err := p.finishEmpty(end); err != nil {
			return nil, err
		}
		elseBody, endfor, err := p.parseNodes(KeywordEndFor)
		if err != nil {
			return nil, err
		}
		node.Else = append([]Node{}, elseBody...)
		end = endfor
	}
	if err := p.finishEmpty(end); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseSet(head *stmtHead) (Node, error) {
	node := &SetNode{Position: head.pos}
	ep := head.expr

	for {
		name, err := ep.ExpectName()
		if err != nil {
			return nil, p.errorAt(ErrMsgSetBadTarget, head.pos, err.Error())
		}
		node.Targets = append(node.Targets, name)
		if !ep.Match(ExprOpComma) {
			break
		}
	}

	if ep.Match(ExprOpAssign) {
		value, err := p.finishExpr(head)
		if err != nil {
			return nil, err
		}
		node.Value = value
		return node, nil
	}

	// Block form: {% set name %}...{% endset %}
	if !ep.AtEnd() || len(node.Targets) != 1 {
		return nil, p.errorAt(ErrMsgSetMissingEquals, head.pos, "")
	}
	body, end, err := p.parseNodes(KeywordEndSet)
	if err != nil {
		return nil, err
	}
	if err := p.finishEmpty(end); err != nil {
		return nil, err
	}
	node.Body = append([]Node{}, body...)
	return node, nil
}

// finishExpr parses the remainder of a statement as one expression
func (p *Parser) finishExpr(head *stmtHead) (ExprNode, error) {
	if head.expr.AtEnd() {
		return nil, p.errorAt(ErrMsgEmptyExpression, head.pos, head.keyword)
	}
	expr, err := head.expr.ParseTuple(true)
	if err != nil {
		return nil, p.wrapExprError(err, head.pos)
	}
	if err := head.expr.ExpectEnd(); err != nil {
		return nil, p.wrapExprError(err, head.pos)
	}
	return expr, nil
}

func (p *Parser) finishEmpty(head *stmtHead) error {
	if err := head.expr.ExpectEnd(); err != nil {
		return p.wrapExprError(err, head.pos)
	}
	return nil
}

func (p *Parser) advance() Token {
	if p.current >= len(p.tokens) {
		if len(p.tokens) == 0 {
			return NewEOFToken(Position{Line: 1, Column: 1})
		}
		return p.tokens[len(p.tokens)-1]
	}
	tok := p.tokens[p.current]
	p.current++
	return tok
}

func (p *Parser) errorAt(message string, pos Position, detail string) *ParserError {
	return &ParserError{Message: message, Position: pos, Detail: detail}
}

func (p *Parser) wrapExprError(err error, pos Position) *ParserError {
	var exprErr *ExprParseError
	if errors.As(err, &exprErr) {
		detail := exprErr.Detail
		if detail == "" {
			detail = fmt.Sprintf("position %d", exprErr.Pos)
		}
		return &ParserError{Message: exprErr.Message, Position: pos, Detail: detail}
	}
	return &ParserError{Message: err.Error(), Position: pos}
}

// ParserError represents a syntax error found while building the AST
type ParserError struct {
	Message  string
	Position Position
	Detail   string
}

func (e *ParserError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s) at %s", e.Message, e.Detail, e.Position)
	}
	return fmt.Sprintf("%s at %s", e.Message, e.Position)
}

// Parse tokenizes and parses template source in one step
func Parse(source string, config LexerConfig, logger *zap.Logger) (*RootNode, error) {
	tokens, err := NewLexerWithConfig(source, config, logger).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens, logger).Parse()
}
