package internal

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ExecutorConfig bounds the work of one execution. Zero disables a limit.
type ExecutorConfig struct {
	MaxLoopIterations int // items a for loop or range() may produce
	MaxRepeatSize     int // bytes or items a "*" repetition may produce
}

// DefaultExecutorConfig returns the default executor limits
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxLoopIterations: DefaultMaxLoopIterations,
		MaxRepeatSize:     DefaultMaxRepeatSize,
	}
}

// Executor traverses an AST and produces output
type Executor struct {
	filters *FuncRegistry
	globals *FuncRegistry
	config  ExecutorConfig
	logger  *zap.Logger
}

// NewExecutor creates a new executor over the given filter and global registries.
// Nil registries are replaced with the builtin ones; the builtin range()
// follows config.MaxLoopIterations.
func NewExecutor(filters, globals *FuncRegistry, config ExecutorConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if filters == nil {
		filters = NewFilterRegistry()
	}
	if globals == nil {
		globals = NewGlobalRegistry(config.MaxLoopIterations)
	}
	logger.Debug(LogMsgExecutorCreated)

	return &Executor{
		filters: filters,
		globals: globals,
		config:  config,
		logger:  logger,
	}
}

// Execute renders the AST with vars as the top-level scope
func (e *Executor) Execute(ctx context.Context, root *RootNode, vars map[string]any) (string, error) {
	e.logger.Debug(LogMsgExecutorStart, zap.Int(LogFieldNodes, len(root.Children)))

	var sb strings.Builder
	if err := e.executeNodes(ctx, root.Children, NewScope(vars), 0, &sb); err != nil {
		return "", err
	}

	e.logger.Debug(LogMsgExecutorEnd, zap.Int(LogFieldOutput, sb.Len()))
	return sb.String(), nil
}

func (e *Executor) executeNodes(ctx context.Context, nodes []Node, scope *Scope, depth int, sb *strings.Builder) error {
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return NewExecutorErrorWithCause(ErrMsgContextCancelled, node.Pos(), err)
		}
		if err := e.executeNode(ctx, node, scope, depth, sb); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) executeNode(ctx context.Context, node Node, scope *Scope, depth int, sb *strings.Builder) error {
	switch n := node.(type) {
	case *TextNode:
		sb.WriteString(n.Content)
		return nil

	case *OutputNode:
		v, err := e.evaluator(scope).EvaluateStrict(n.Expr)
		if err != nil {
			return NewExecutorErrorWithCause(n.Expr.String(), n.Position, err)
		}
		sb.WriteString(ToString(v))
		return nil

	case *IfNode:
		return e.executeIf(ctx, n, scope, depth, sb)

	case *ForNode:
		return e.executeFor(ctx, n, scope, depth, sb)

	case *SetNode:
		return e.executeSet(ctx, n, scope, depth)

	default:
		return NewExecutorError(fmt.Sprintf("unknown node %T", node), node.Pos())
	}
}

func (e *Executor) evaluator(scope *Scope) *ExprEvaluator {
	ev := NewExprEvaluator(e.filters, e.globals, scope)
	ev.maxRepeat = e.config.MaxRepeatSize
	return ev
}

func (e *Executor) executeIf(ctx context.Context, n *IfNode, scope *Scope, depth int, sb *strings.Builder) error {
	for _, branch := range n.Branches {
		ok, err := e.evaluator(scope).EvaluateBool(branch.Condition)
		if err != nil {
			return NewExecutorErrorWithCause(branch.Condition.String(), branch.Position, err)
		}
		if ok {
			return e.executeNodes(ctx, branch.Body, scope, depth, sb)
		}
	}
	if n.Else != nil {
		return e.executeNodes(ctx, n.Else, scope, depth, sb)
	}
	return nil
}

func (e *Executor) executeFor(ctx context.Context, n *ForNode, scope *Scope, depth int, sb *strings.Builder) error {
	iterable, err := e.evaluator(scope).EvaluateStrict(n.Iter)
	if err != nil {
		return NewExecutorErrorWithCause(n.Iter.String(), n.Position, err)
	}
	items, err := Iterate(iterable)
	if err != nil {
		return NewExecutorErrorWithCause(ErrMsgNotIterable, n.Position, err)
	}
	if limit := e.config.MaxLoopIterations; limit > 0 && len(items) > limit {
		return NewExecutorError(fmt.Sprintf("%s: %d > %d", ErrMsgLoopLimitExceeded, len(items), limit), n.Position)
	}

	// The inline filter runs before loop attributes are computed, so
	// loop.length and loop.last count only the kept items.
	if n.Filter != nil {
		kept := items[:0:0]
		for _, item := range items {
			frame := scope.Child()
			if err := bindTargets(frame, n.Targets, item); err != nil {
				return NewExecutorErrorWithCause(ErrMsgUnpackMismatch, n.Position, err)
			}
			ok, err := e.evaluator(frame).EvaluateBool(n.Filter)
			if err != nil {
				return NewExecutorErrorWithCause(n.Filter.String(), n.Position, err)
			}
			if ok {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	if len(items) == 0 {
		if n.Else != nil {
			return e.executeNodes(ctx, n.Else, scope, depth, sb)
		}
		return nil
	}

	for i, item := range items {
		frame := scope.Child()
		if err := bindTargets(frame, n.Targets, item); err != nil {
			return NewExecutorErrorWithCause(ErrMsgUnpackMismatch, n.Position, err)
		}
		frame.Set(KeywordLoop, loopVars(items, i, depth))
		if err := e.executeNodes(ctx, n.Body, frame, depth+1, sb); err != nil {
			return err
		}
	}
	return nil
}

// loopVars builds the "loop" object visible inside a for body
func loopVars(items []any, i, depth int) map[string]any {
	n := len(items)
	vars := map[string]any{
		LoopAttrIndex:     i + 1,
		LoopAttrIndex0:    i,
		LoopAttrRevIndex:  n - i,
		LoopAttrRevIndex0: n - i - 1,
		LoopAttrFirst:     i == 0,
		LoopAttrLast:      i == n-1,
		LoopAttrLength:    n,
		LoopAttrDepth:     depth + 1,
		LoopAttrDepth0:    depth,
		LoopAttrCycle: Callable(func(args ...any) (any, error) {
			if len(args) == 0 {
				return nil, NewFuncArgError(ErrMsgArgCountMin, LoopAttrCycle, 1, 0)
			}
			return args[i%len(args)], nil
		}),
	}
	if i > 0 {
		vars[LoopAttrPrevItem] = items[i-1]
	}
	if i < n-1 {
		vars[LoopAttrNextItem] = items[i+1]
	}
	return vars
}

// bindTargets assigns a loop item to one name, or unpacks it across several
func bindTargets(scope *Scope, targets []string, item any) error {
	if len(targets) == 1 {
		scope.Set(targets[0], item)
		return nil
	}
	parts, err := Iterate(item)
	if err != nil {
		return err
	}
	if len(parts) != len(targets) {
		return NewExprEvalError(ErrMsgUnpackMismatch,
			fmt.Sprintf("expected %d values, got %d", len(targets), len(parts)))
	}
	for i, name := range targets {
		scope.Set(name, parts[i])
	}
	return nil
}

func (e *Executor) executeSet(ctx context.Context, n *SetNode, scope *Scope, depth int) error {
	var value any
	if n.Body != nil {
		var sb strings.Builder
		if err := e.executeNodes(ctx, n.Body, scope, depth, &sb); err != nil {
			return err
		}
		value = sb.String()
	} else {
		v, err := e.evaluator(scope).EvaluateStrict(n.Value)
		if err != nil {
			return NewExecutorErrorWithCause(n.Value.String(), n.Position, err)
		}
		value = v
	}

	if err := bindTargets(scope, n.Targets, value); err != nil {
		return NewExecutorErrorWithCause(ErrMsgUnpackMismatch, n.Position, err)
	}
	return nil
}

// Validate reports the first filter or test in the AST that does not exist.
// Unknown names are compile-time errors, so this runs before execution.
func Validate(root *RootNode, filters *FuncRegistry) error {
	if filters == nil {
		filters = NewFilterRegistry()
	}
	v := &validator{filters: filters}
	v.nodes(root.Children)
	return v.err
}

type validator struct {
	filters *FuncRegistry
	err     error
	pos     Position
}

func (v *validator) nodes(nodes []Node) {
	for _, node := range nodes {
		if v.err != nil {
			return
		}
		v.pos = node.Pos()
		switch n := node.(type) {
		case *OutputNode:
			v.expr(n.Expr)
		case *IfNode:
			for _, b := range n.Branches {
				v.pos = b.Position
				v.expr(b.Condition)
				v.nodes(b.Body)
			}
			v.nodes(n.Else)
		case *ForNode:
			v.expr(n.Iter)
			v.expr(n.Filter)
			v.nodes(n.Body)
			v.nodes(n.Else)
		case *SetNode:
			v.expr(n.Value)
			v.nodes(n.Body)
		}
	}
}

func (v *validator) expr(node ExprNode) {
	if node == nil || v.err != nil {
		return
	}
	switch n := node.(type) {
	case *ListNode:
		v.exprs(n.Items...)
	case *TupleNode:
		v.exprs(n.Items...)
	case *DictNode:
		v.exprs(n.Keys...)
		v.exprs(n.Values...)
	case *AttrNode:
		v.expr(n.Obj)
	case *IndexNode:
		v.exprs(n.Obj, n.Key)
	case *SliceNode:
		v.exprs(n.Obj, n.Start, n.Stop, n.Step)
	case *CallNode:
		v.expr(n.Fn)
		v.exprs(n.Args...)
		v.kwargs(n.Kwargs)
	case *FilterNode:
		v.expr(n.Obj)
		if !v.filters.Has(n.Name) && !isSpecialFilter(n.Name) {
			v.err = NewExecutorErrorWithCause(ErrMsgUnknownFilter, v.pos, NewFuncError(ErrMsgUnknownFilter, n.Name))
			return
		}
		v.exprs(n.Args...)
		v.kwargs(n.Kwargs)
	case *TestNode:
		v.expr(n.Obj)
		if _, _, ok := LookupTest(n.Name); !ok {
			v.err = NewExecutorErrorWithCause(ErrMsgUnknownTest, v.pos, NewFuncError(ErrMsgUnknownTest, n.Name))
			return
		}
		v.exprs(n.Args...)
	case *UnaryNode:
		v.expr(n.X)
	case *BinaryNode:
		v.exprs(n.Left, n.Right)
	case *CondNode:
		v.exprs(n.Cond, n.Then, n.Else)
	}
}

func (v *validator) exprs(nodes ...ExprNode) {
	for _, n := range nodes {
		v.expr(n)
	}
}

func (v *validator) kwargs(kwargs []KwArg) {
	for _, k := range kwargs {
		v.expr(k.Value)
	}
}

// isSpecialFilter reports filters the evaluator implements itself
func isSpecialFilter(name string) bool {
	switch name {
	case FuncNameMap, FuncNameSelect, FuncNameReject, FuncNameSelectAttr, FuncNameRejectAttr:
		return true
	}
	return false
}

// ExecutorError represents an error during template execution
type ExecutorError struct {
	Message  string
	Position Position
	Cause    error
}

// NewExecutorError creates a new executor error
func NewExecutorError(msg string, pos Position) *ExecutorError {
	return &ExecutorError{
		Message:  msg,
		Position: pos,
	}
}

// NewExecutorErrorWithCause creates a new executor error wrapping a cause
func NewExecutorErrorWithCause(msg string, pos Position, cause error) *ExecutorError {
	return &ExecutorError{
		Message:  msg,
		Position: pos,
		Cause:    cause,
	}
}

// Error implements the error interface
func (e *ExecutorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s at %s: %v", e.Message, e.Position, e.Cause)
	}
	return fmt.Sprintf("%s at %s", e.Message, e.Position)
}

// Unwrap returns the underlying cause
func (e *ExecutorError) Unwrap() error {
	return e.Cause
}
