package internal

import (
	"fmt"
	"strings"
)

// Node is the interface for all template AST nodes
type Node interface {
	// Type returns the node type
	Type() NodeType
	// Pos returns the source position
	Pos() Position
	// String returns a string representation for debugging
	String() string
}

// RootNode is the top-level node containing all template content
type RootNode struct {
	Children []Node
}

func (n *RootNode) Type() NodeType { return NodeTypeRoot }
func (n *RootNode) Pos() Position  { return Position{Offset: 0, Line: 1, Column: 1} }
func (n *RootNode) String() string {
	return fmt.Sprintf("Root{children: %d}", len(n.Children))
}

// TextNode is literal template text
type TextNode struct {
	Content  string
	Position Position
}

func (n *TextNode) Type() NodeType { return NodeTypeText }
func (n *TextNode) Pos() Position  { return n.Position }
func (n *TextNode) String() string { return fmt.Sprintf("Text{%q}", n.Content) }

// OutputNode is a {{ expression }}
type OutputNode struct {
	Expr     ExprNode
	Position Position
}

func (n *OutputNode) Type() NodeType { return NodeTypeOutput }
func (n *OutputNode) Pos() Position  { return n.Position }
func (n *OutputNode) String() string { return "Output{" + n.Expr.String() + "}" }

// IfBranch is one if/elif arm
type IfBranch struct {
	Condition ExprNode
	Body      []Node
	Position  Position
}

// IfNode is an if/elif/else block
type IfNode struct {
	Branches []IfBranch
	Else     []Node
	Position Position
}

func (n *IfNode) Type() NodeType { return NodeTypeIf }
func (n *IfNode) Pos() Position  { return n.Position }
func (n *IfNode) String() string {
	conds := make([]string, len(n.Branches))
	for i, b := range n.Branches {
		conds[i] = b.Condition.String()
	}
	return fmt.Sprintf("If{%s, else: %t}", strings.Join(conds, " | "), n.Else != nil)
}

// ForNode is a for loop with optional filter and else block
type ForNode struct {
	Targets  []string
	Iter     ExprNode
	Filter   ExprNode
	Body     []Node
	Else     []Node
	Position Position
}

func (n *ForNode) Type() NodeType { return NodeTypeFor }
func (n *ForNode) Pos() Position  { return n.Position }
func (n *ForNode) String() string {
	return fmt.Sprintf("For{%s in %s}", strings.Join(n.Targets, ", "), n.Iter)
}

// SetNode assigns a value, or captured block output, to names in the current scope
type SetNode struct {
	Targets  []string
	Value    ExprNode
	Body     []Node
	Position Position
}

func (n *SetNode) Type() NodeType { return NodeTypeSet }
func (n *SetNode) Pos() Position  { return n.Position }
func (n *SetNode) String() string {
	return fmt.Sprintf("Set{%s}", strings.Join(n.Targets, ", "))
}
