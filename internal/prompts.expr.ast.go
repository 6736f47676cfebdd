package internal

import (
	"fmt"
	"strings"
)

// ExprNodeType identifies the type of expression AST node
type ExprNodeType int

// Expression node type constants
const (
	ExprNodeTypeLiteral ExprNodeType = iota
	ExprNodeTypeName
	ExprNodeTypeList
	ExprNodeTypeTuple
	ExprNodeTypeDict
	ExprNodeTypeAttr
	ExprNodeTypeIndex
	ExprNodeTypeSlice
	ExprNodeTypeCall
	ExprNodeTypeFilter
	ExprNodeTypeTest
	ExprNodeTypeUnary
	ExprNodeTypeBinary
	ExprNodeTypeCond
)

// Expression node type names for debugging
var exprNodeTypeNames = map[ExprNodeType]string{
	ExprNodeTypeLiteral: "LITERAL",
	ExprNodeTypeName:    "NAME",
	ExprNodeTypeList:    "LIST",
	ExprNodeTypeTuple:   "TUPLE",
	ExprNodeTypeDict:    "DICT",
	ExprNodeTypeAttr:    "ATTR",
	ExprNodeTypeIndex:   "INDEX",
	ExprNodeTypeSlice:   "SLICE",
	ExprNodeTypeCall:    "CALL",
	ExprNodeTypeFilter:  "FILTER",
	ExprNodeTypeTest:    "TEST",
	ExprNodeTypeUnary:   "UNARY",
	ExprNodeTypeBinary:  "BINARY",
	ExprNodeTypeCond:    "COND",
}

// String returns the string representation of the node type
func (t ExprNodeType) String() string {
	if name, ok := exprNodeTypeNames[t]; ok {
		return name
	}
	return exprNodeTypeNames[ExprNodeTypeLiteral]
}

// ExprNode is the interface for all expression AST nodes
type ExprNode interface {
	// Type returns the node type
	Type() ExprNodeType
	// String returns a string representation for debugging
	String() string
	// exprNode is a marker method to ensure type safety
	exprNode()
}

// KwArg is a keyword argument passed to a call, filter or test
type KwArg struct {
	Name  string
	Value ExprNode
}

// LiteralNode is a constant: string, int64, float64, bool or nil
type LiteralNode struct {
	Value any
}

func (n *LiteralNode) Type() ExprNodeType { return ExprNodeTypeLiteral }
func (n *LiteralNode) exprNode()          {}
func (n *LiteralNode) String() string     { return Repr(n.Value) }

// NameNode references a variable
type NameNode struct {
	Name string
}

func (n *NameNode) Type() ExprNodeType { return ExprNodeTypeName }
func (n *NameNode) exprNode()          {}
func (n *NameNode) String() string     { return n.Name }

// ListNode is a [a, b] literal
type ListNode struct {
	Items []ExprNode
}

func (n *ListNode) Type() ExprNodeType { return ExprNodeTypeList }
func (n *ListNode) exprNode()          {}
func (n *ListNode) String() string     { return "[" + joinNodes(n.Items) + "]" }

// TupleNode is a (a, b) literal or a bare a, b sequence
type TupleNode struct {
	Items []ExprNode
}

func (n *TupleNode) Type() ExprNodeType { return ExprNodeTypeTuple }
func (n *TupleNode) exprNode()          {}
func (n *TupleNode) String() string     { return "(" + joinNodes(n.Items) + ")" }

// DictNode is a {k: v} literal
type DictNode struct {
	Keys   []ExprNode
	Values []ExprNode
}

func (n *DictNode) Type() ExprNodeType { return ExprNodeTypeDict }
func (n *DictNode) exprNode()          {}
func (n *DictNode) String() string {
	parts := make([]string, len(n.Keys))
	for i := range n.Keys {
		parts[i] = n.Keys[i].String() + ": " + n.Values[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// AttrNode is obj.name
type AttrNode struct {
	Obj  ExprNode
	Name string
}

func (n *AttrNode) Type() ExprNodeType { return ExprNodeTypeAttr }
func (n *AttrNode) exprNode()          {}
func (n *AttrNode) String() string     { return n.Obj.String() + "." + n.Name }

// IndexNode is obj[key]
type IndexNode struct {
	Obj ExprNode
	Key ExprNode
}

func (n *IndexNode) Type() ExprNodeType { return ExprNodeTypeIndex }
func (n *IndexNode) exprNode()          {}
func (n *IndexNode) String() string     { return n.Obj.String() + "[" + n.Key.String() + "]" }

// SliceNode is obj[start:stop:step]; any bound may be nil
type SliceNode struct {
	Obj   ExprNode
	Start ExprNode
	Stop  ExprNode
	Step  ExprNode
}

func (n *SliceNode) Type() ExprNodeType { return ExprNodeTypeSlice }
func (n *SliceNode) exprNode()          {}
func (n *SliceNode) String() string {
	return fmt.Sprintf("%s[%s:%s:%s]", n.Obj, optNode(n.Start), optNode(n.Stop), optNode(n.Step))
}

// CallNode is fn(args, key=value)
type CallNode struct {
	Fn     ExprNode
	Args   []ExprNode
	Kwargs []KwArg
}

func (n *CallNode) Type() ExprNodeType { return ExprNodeTypeCall }
func (n *CallNode) exprNode()          {}
func (n *CallNode) String() string {
	return n.Fn.String() + "(" + joinArgs(n.Args, n.Kwargs) + ")"
}

// FilterNode is obj|name(args)
type FilterNode struct {
	Obj    ExprNode
	Name   string
	Args   []ExprNode
	Kwargs []KwArg
}

func (n *FilterNode) Type() ExprNodeType { return ExprNodeTypeFilter }
func (n *FilterNode) exprNode()          {}
func (n *FilterNode) String() string {
	return n.Obj.String() + "|" + n.Name + "(" + joinArgs(n.Args, n.Kwargs) + ")"
}

// TestNode is obj is [not] name(args)
type TestNode struct {
	Obj     ExprNode
	Name    string
	Args    []ExprNode
	Negated bool
}

func (n *TestNode) Type() ExprNodeType { return ExprNodeTypeTest }
func (n *TestNode) exprNode()          {}
func (n *TestNode) String() string {
	op := " is "
	if n.Negated {
		op = " is not "
	}
	return n.Obj.String() + op + n.Name + "(" + joinNodes(n.Args) + ")"
}

// UnaryNode is a prefix operator applied to X
type UnaryNode struct {
	Op string
	X  ExprNode
}

func (n *UnaryNode) Type() ExprNodeType { return ExprNodeTypeUnary }
func (n *UnaryNode) exprNode()          {}
func (n *UnaryNode) String() string     { return "(" + n.Op + " " + n.X.String() + ")" }

// BinaryNode is Left Op Right
type BinaryNode struct {
	Op    string
	Left  ExprNode
	Right ExprNode
}

func (n *BinaryNode) Type() ExprNodeType { return ExprNodeTypeBinary }
func (n *BinaryNode) exprNode()          {}
func (n *BinaryNode) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}

// CondNode is Then if Cond else Else; Else may be nil
type CondNode struct {
	Cond ExprNode
	Then ExprNode
	Else ExprNode
}

func (n *CondNode) Type() ExprNodeType { return ExprNodeTypeCond }
func (n *CondNode) exprNode()          {}
func (n *CondNode) String() string {
	return "(" + n.Then.String() + " if " + n.Cond.String() + " else " + optNode(n.Else) + ")"
}

func joinNodes(nodes []ExprNode) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

func joinArgs(args []ExprNode, kwargs []KwArg) string {
	parts := make([]string, 0, len(args)+len(kwargs))
	for _, a := range args {
		parts = append(parts, a.String())
	}
	for _, kw := range kwargs {
		parts = append(parts, kw.Name+"="+kw.Value.String())
	}
	return strings.Join(parts, ", ")
}

func optNode(n ExprNode) string {
	if n == nil {
		return ""
	}
	return n.String()
}
