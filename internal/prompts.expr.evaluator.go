package internal

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Scope is one frame of template variables. Lookups walk up to the parent;
// assignments always land in the current frame.
type Scope struct {
	vars   map[string]any
	parent *Scope
}

// NewScope creates a root scope over a copy of vars
func NewScope(vars map[string]any) *Scope {
	s := &Scope{vars: make(map[string]any, len(vars))}
	for k, v := range vars {
		s.vars[k] = v
	}
	return s
}

// Child creates a nested scope, as used by loop bodies
func (s *Scope) Child() *Scope {
	return &Scope{vars: make(map[string]any), parent: s}
}

// Lookup resolves a name through the scope chain
func (s *Scope) Lookup(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set assigns a name in this frame
func (s *Scope) Set(name string, v any) {
	s.vars[name] = v
}

// Callable is a Go function exposed to templates as a value
type Callable func(args ...any) (any, error)

// ExprEvaluator evaluates expression ASTs against a scope
type ExprEvaluator struct {
	filters   *FuncRegistry
	globals   *FuncRegistry
	scope     *Scope
	maxRepeat int
}

// NewExprEvaluator creates a new expression evaluator
func NewExprEvaluator(filters, globals *FuncRegistry, scope *Scope) *ExprEvaluator {
	return &ExprEvaluator{
		filters:   filters,
		globals:   globals,
		scope:     scope,
		maxRepeat: DefaultMaxRepeatSize,
	}
}

// Evaluate evaluates an expression; the result may be Undefined
func (e *ExprEvaluator) Evaluate(node ExprNode) (any, error) {
	if node == nil {
		return nil, NewExprEvalError(ErrMsgEmptyExpression, "")
	}

	switch n := node.(type) {
	case *LiteralNode:
		return n.Value, nil
	case *NameNode:
		if v, ok := e.scope.Lookup(n.Name); ok {
			return v, nil
		}
		return Undefined{Name: n.Name}, nil
	case *ListNode:
		return e.evaluateList(n.Items)
	case *TupleNode:
		items, err := e.evaluateList(n.Items)
		if err != nil {
			return nil, err
		}
		return Tuple(items), nil
	case *DictNode:
		return e.evaluateDict(n)
	case *AttrNode:
		return e.evaluateAttr(n)
	case *IndexNode:
		return e.evaluateIndex(n)
	case *SliceNode:
		return e.evaluateSlice(n)
	case *CallNode:
		return e.evaluateCall(n)
	case *FilterNode:
		return e.evaluateFilter(n)
	case *TestNode:
		return e.evaluateTest(n)
	case *UnaryNode:
		return e.evaluateUnary(n)
	case *BinaryNode:
		return e.evaluateBinary(n)
	case *CondNode:
		return e.evaluateCond(n)
	default:
		return nil, NewExprEvalError(ErrMsgUnsupportedOp, fmt.Sprintf("%T", node))
	}
}

// EvaluateStrict evaluates an expression and fails if the result is Undefined
func (e *ExprEvaluator) EvaluateStrict(node ExprNode) (any, error) {
	v, err := e.Evaluate(node)
	if err != nil {
		return nil, err
	}
	return strict(v)
}

// EvaluateBool evaluates an expression with Jinja truthiness
func (e *ExprEvaluator) EvaluateBool(node ExprNode) (bool, error) {
	v, err := e.EvaluateStrict(node)
	if err != nil {
		return false, err
	}
	return IsTruthy(v), nil
}

// strict turns an Undefined into an error
func strict(v any) (any, error) {
	if u, ok := v.(Undefined); ok {
		return nil, &UndefinedError{Name: u.Name}
	}
	return v, nil
}

func (e *ExprEvaluator) evaluateList(nodes []ExprNode) ([]any, error) {
	items := make([]any, len(nodes))
	for i, n := range nodes {
		v, err := e.EvaluateStrict(n)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

func (e *ExprEvaluator) evaluateDict(n *DictNode) (any, error) {
	out := make(map[string]any, len(n.Keys))
	for i := range n.Keys {
		k, err := e.EvaluateStrict(n.Keys[i])
		if err != nil {
			return nil, err
		}
		v, err := e.EvaluateStrict(n.Values[i])
		if err != nil {
			return nil, err
		}
		out[ToString(k)] = v
	}
	return out, nil
}

func (e *ExprEvaluator) evaluateAttr(n *AttrNode) (any, error) {
	obj, err := e.EvaluateStrict(n.Obj)
	if err != nil {
		return nil, err
	}
	if v, ok := GetAttr(obj, n.Name); ok {
		return v, nil
	}
	if v, ok := GetItem(obj, n.Name); ok {
		return v, nil
	}
	return Undefined{Name: n.String()}, nil
}

func (e *ExprEvaluator) evaluateIndex(n *IndexNode) (any, error) {
	obj, err := e.EvaluateStrict(n.Obj)
	if err != nil {
		return nil, err
	}
	key, err := e.EvaluateStrict(n.Key)
	if err != nil {
		return nil, err
	}
	if v, ok := GetItem(obj, key); ok {
		return v, nil
	}
	if name, ok := key.(string); ok {
		if v, ok := GetAttr(obj, name); ok {
			return v, nil
		}
	}
	return Undefined{Name: n.String()}, nil
}

func (e *ExprEvaluator) evaluateSlice(n *SliceNode) (any, error) {
	obj, err := e.EvaluateStrict(n.Obj)
	if err != nil {
		return nil, err
	}

	bounds := make([]*int, 3)
	for i, b := range []ExprNode{n.Start, n.Stop, n.Step} {
		if b == nil {
			continue
		}
		v, err := e.EvaluateStrict(b)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		idx, ok := toInt(v)
		if !ok {
			return nil, NewExprEvalError(ErrMsgInvalidArgument, "slice indices must be integers")
		}
		bounds[i] = &idx
	}

	if s, ok := obj.(string); ok {
		runes := []rune(s)
		items := make([]any, len(runes))
		for i, r := range runes {
			items[i] = string(r)
		}
		picked, err := sliceItems(items, bounds[0], bounds[1], bounds[2])
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		for _, p := range picked {
			sb.WriteString(p.(string))
		}
		return sb.String(), nil
	}

	items, err := Iterate(obj)
	if err != nil {
		return nil, err
	}
	return sliceItems(items, bounds[0], bounds[1], bounds[2])
}

// sliceItems applies start:stop:step slice semantics
func sliceItems(items []any, start, stop, step *int) ([]any, error) {
	n := len(items)
	st := 1
	if step != nil {
		st = *step
	}
	if st == 0 {
		return nil, NewExprEvalError(ErrMsgInvalidArgument, "slice step cannot be zero")
	}

	clamp := func(p *int, def, lo, hi int) int {
		if p == nil {
			return def
		}
		v := *p
		if v < 0 {
			v += n
		}
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	var out []any
	if st > 0 {
		from, to := clamp(start, 0, 0, n), clamp(stop, n, 0, n)
		for i := from; i < to; i += st {
			out = append(out, items[i])
		}
	} else {
		from, to := clamp(start, n-1, -1, n-1), clamp(stop, -1, -1, n-1)
		for i := from; i > to; i += st {
			out = append(out, items[i])
		}
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func (e *ExprEvaluator) evaluateArgs(args []ExprNode, kwargs []KwArg) ([]any, map[string]any, error) {
	values, err := e.evaluateList(args)
	if err != nil {
		return nil, nil, err
	}
	var kw map[string]any
	if len(kwargs) > 0 {
		kw = make(map[string]any, len(kwargs))
		for _, k := range kwargs {
			v, err := e.EvaluateStrict(k.Value)
			if err != nil {
				return nil, nil, err
			}
			kw[k.Name] = v
		}
	}
	return values, kw, nil
}

func (e *ExprEvaluator) evaluateCall(n *CallNode) (any, error) {
	args, kwargs, err := e.evaluateArgs(n.Args, n.Kwargs)
	if err != nil {
		return nil, err
	}

	switch fn := n.Fn.(type) {
	case *AttrNode:
		obj, err := e.EvaluateStrict(fn.Obj)
		if err != nil {
			return nil, err
		}
		if member, ok := GetAttr(obj, fn.Name); ok {
			return callValue(member, fn.String(), args)
		}
		return callMethod(obj, fn.Name, args, kwargs)

	case *NameNode:
		if v, ok := e.scope.Lookup(fn.Name); ok {
			return callValue(v, fn.Name, args)
		}
		if fn.Name == FuncNameDict {
			out := make(map[string]any, len(kwargs))
			for k, v := range kwargs {
				out[k] = v
			}
			return out, nil
		}
		if e.globals != nil && e.globals.Has(fn.Name) {
			return e.globals.Call(fn.Name, args, kwargs)
		}
		return nil, &UndefinedError{Name: fn.Name}
	}

	v, err := e.EvaluateStrict(n.Fn)
	if err != nil {
		return nil, err
	}
	return callValue(v, n.Fn.String(), args)
}

// callValue invokes a Go function value passed in through the template variables
func callValue(v any, name string, args []any) (any, error) {
	switch fn := v.(type) {
	case Callable:
		return fn(args...)
	case func(...any) (any, error):
		return fn(args...)
	case func(...any) any:
		return fn(args...), nil
	case func() any:
		return fn(), nil
	case func() string:
		return fn(), nil
	}
	return nil, NewExprEvalError(ErrMsgNotCallable, name)
}

// callMethod implements the handful of string and dict methods templates commonly use
func callMethod(obj any, name string, args []any, kwargs map[string]any) (any, error) {
	if isMapping(obj) {
		switch name {
		case FuncNameItems:
			items, _ := MapItems(obj)
			return items, nil
		case FuncNameKeys:
			return Iterate(obj)
		case FuncNameValues:
			items, _ := MapItems(obj)
			values := make([]any, len(items))
			for i, it := range items {
				values[i] = it.(Tuple)[1]
			}
			return values, nil
		case "get":
			if len(args) == 0 {
				return nil, NewExprEvalError(ErrMsgArgCountMin, "get")
			}
			if v, ok := GetItem(obj, args[0]); ok {
				return v, nil
			}
			return arg(args, 1, kwargs[ParamDefault]), nil
		}
	}

	if s, ok := obj.(string); ok {
		return stringMethod(s, name, args)
	}

	return nil, NewExprEvalError(ErrMsgUnknownMethod, typeName(obj)+"."+name)
}

func stringMethod(s, name string, args []any) (any, error) {
	strArg := func(i int) string { return ToString(arg(args, i, "")) }

	switch name {
	case "upper":
		return strings.ToUpper(s), nil
	case "lower":
		return strings.ToLower(s), nil
	case "title":
		return titleCase(s), nil
	case "capitalize":
		if s == "" {
			return s, nil
		}
		return strings.ToUpper(s[:1]) + strings.ToLower(s[1:]), nil
	case "strip", "lstrip", "rstrip":
		chars := " \t\n\r\v\f"
		if len(args) > 0 && args[0] != nil {
			chars = strArg(0)
		}
		switch name {
		case "lstrip":
			return strings.TrimLeft(s, chars), nil
		case "rstrip":
			return strings.TrimRight(s, chars), nil
		}
		return strings.Trim(s, chars), nil
	case "startswith":
		return strings.HasPrefix(s, strArg(0)), nil
	case "endswith":
		return strings.HasSuffix(s, strArg(0)), nil
	case "replace":
		return strings.ReplaceAll(s, strArg(0), strArg(1)), nil
	case "count":
		return strings.Count(s, strArg(0)), nil
	case "find":
		return strings.Index(s, strArg(0)), nil
	case "split":
		var parts []string
		if len(args) == 0 || args[0] == nil {
			parts = strings.Fields(s)
		} else {
			parts = strings.Split(s, strArg(0))
		}
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	case "join":
		items, err := Iterate(arg(args, 0, []any{}))
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = ToString(it)
		}
		return strings.Join(parts, s), nil
	}
	return nil, NewExprEvalError(ErrMsgUnknownMethod, "str."+name)
}

func (e *ExprEvaluator) evaluateFilter(n *FilterNode) (any, error) {
	obj, err := e.Evaluate(n.Obj)
	if err != nil {
		return nil, err
	}
	if n.Name != FuncNameDefault && n.Name != FuncNameD {
		if obj, err = strict(obj); err != nil {
			return nil, err
		}
	}

	args, kwargs, err := e.evaluateArgs(n.Args, n.Kwargs)
	if err != nil {
		return nil, err
	}

	switch n.Name {
	case FuncNameMap:
		return e.filterMap(obj, args, kwargs)
	case FuncNameSelect, FuncNameReject:
		return e.filterSelect(obj, "", args, n.Name == FuncNameSelect)
	case FuncNameSelectAttr, FuncNameRejectAttr:
		if len(args) == 0 {
			return nil, NewFuncArgError(ErrMsgArgCountMin, n.Name, 1, 0)
		}
		return e.filterSelect(obj, ToString(args[0]), args[1:], n.Name == FuncNameSelectAttr)
	}

	if !e.filters.Has(n.Name) {
		return nil, NewFuncError(ErrMsgUnknownFilter, n.Name)
	}
	result, err := e.filters.Call(n.Name, append([]any{obj}, args...), kwargs)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// filterMap implements map(attribute=...) and map('filter', args...)
func (e *ExprEvaluator) filterMap(obj any, args []any, kwargs map[string]any) (any, error) {
	items, err := Iterate(obj)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(items))
	if attr, ok := kwargs[ParamAttribute]; ok {
		def, hasDefault := kwargs[ParamDefault]
		for i, it := range items {
			v := AttrPath(it, ToString(attr))
			if _, undefined := v.(Undefined); undefined && hasDefault {
				v = def
			}
			out[i] = v
		}
		return out, nil
	}

	if len(args) == 0 {
		return nil, NewFuncArgError(ErrMsgArgCountMin, FuncNameMap, 1, 0)
	}
	name := ToString(args[0])
	for i, it := range items {
		v, err := e.filters.Call(name, append([]any{it}, args[1:]...), kwargs)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// filterSelect implements select/reject and, with an attribute, selectattr/rejectattr
func (e *ExprEvaluator) filterSelect(obj any, attribute string, args []any, keep bool) (any, error) {
	items, err := Iterate(obj)
	if err != nil {
		return nil, err
	}

	check := func(v any) (bool, error) { return IsTruthy(v), nil }
	if len(args) > 0 {
		name := ToString(args[0])
		fn, arity, ok := LookupTest(name)
		if !ok {
			return nil, NewFuncError(ErrMsgUnknownTest, name)
		}
		testArgs := args[1:]
		if len(testArgs) < arity {
			return nil, NewFuncArgError(ErrMsgArgCountMin, name, arity, len(testArgs))
		}
		check = func(v any) (bool, error) { return fn(v, testArgs) }
	}

	out := []any{}
	for _, it := range items {
		v := it
		if attribute != "" {
			v = AttrPath(it, attribute)
		}
		ok, err := check(v)
		if err != nil {
			return nil, err
		}
		if ok == keep {
			out = append(out, it)
		}
	}
	return out, nil
}

func (e *ExprEvaluator) evaluateTest(n *TestNode) (any, error) {
	obj, err := e.Evaluate(n.Obj)
	if err != nil {
		return nil, err
	}
	if n.Name != TestNameDefined && n.Name != TestNameUndefined {
		if obj, err = strict(obj); err != nil {
			return nil, err
		}
	}

	fn, arity, ok := LookupTest(n.Name)
	if !ok {
		return nil, NewFuncError(ErrMsgUnknownTest, n.Name)
	}
	args, err := e.evaluateList(n.Args)
	if err != nil {
		return nil, err
	}
	if len(args) < arity {
		return nil, NewFuncArgError(ErrMsgArgCountMin, n.Name, arity, len(args))
	}

	result, err := fn(obj, args)
	if err != nil {
		return nil, err
	}
	return result != n.Negated, nil
}

func (e *ExprEvaluator) evaluateUnary(n *UnaryNode) (any, error) {
	v, err := e.EvaluateStrict(n.X)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ExprOpNot:
		return !IsTruthy(v), nil
	case ExprOpSub:
		i, f, kind := asNumber(v)
		switch kind {
		case intNumber:
			return negateInt(i), nil
		case bigNumber:
			n, _ := asBigInt(v)
			return normalizeInt(new(big.Int).Neg(n)), nil
		case floatNumber:
			return -f, nil
		}
	case ExprOpAdd:
		if isNumber(v) {
			return v, nil
		}
	}
	return nil, NewExprEvalError(ErrMsgUnsupportedOp, n.Op+typeName(v))
}

func (e *ExprEvaluator) evaluateBinary(n *BinaryNode) (any, error) {
	left, err := e.EvaluateStrict(n.Left)
	if err != nil {
		return nil, err
	}

	// and/or short-circuit and yield an operand, not a bool
	switch n.Op {
	case ExprOpAnd:
		if !IsTruthy(left) {
			return left, nil
		}
		return e.EvaluateStrict(n.Right)
	case ExprOpOr:
		if IsTruthy(left) {
			return left, nil
		}
		return e.EvaluateStrict(n.Right)
	}

	right, err := e.EvaluateStrict(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ExprOpEq:
		return Equal(left, right), nil
	case ExprOpNeq:
		return !Equal(left, right), nil
	case ExprOpLt:
		return CompareLess(left, right)
	case ExprOpGt:
		return CompareLess(right, left)
	case ExprOpLte:
		less, err := CompareLess(right, left)
		return !less, err
	case ExprOpGte:
		less, err := CompareLess(left, right)
		return !less, err
	case ExprOpIn:
		return Contains(right, left)
	case ExprOpNotIn:
		in, err := Contains(right, left)
		return !in, err
	case ExprOpConcat:
		return ToString(left) + ToString(right), nil
	}

	return arithmetic(n.Op, left, right, e.maxRepeat)
}

func (e *ExprEvaluator) evaluateCond(n *CondNode) (any, error) {
	ok, err := e.EvaluateBool(n.Cond)
	if err != nil {
		return nil, err
	}
	if ok {
		return e.Evaluate(n.Then)
	}
	if n.Else == nil {
		return Undefined{Name: n.String()}, nil
	}
	return e.Evaluate(n.Else)
}

// Arithmetic applies a numeric operator with Jinja semantics. "+" also
// concatenates strings and lists; "*" repeats them up to DefaultMaxRepeatSize.
func Arithmetic(op string, a, b any) (any, error) {
	return arithmetic(op, a, b, DefaultMaxRepeatSize)
}

func arithmetic(op string, a, b any, maxRepeat int) (any, error) {
	ai, af, ak := asNumber(a)
	bi, bf, bk := asNumber(b)

	if ak != notNumber && bk != notNumber {
		if ak == intNumber && bk == intNumber {
			return intArithmetic(op, ai, bi)
		}
		if isInteger(ak) && isInteger(bk) {
			x, _ := asBigInt(a)
			y, _ := asBigInt(b)
			return bigArithmetic(op, x, y)
		}
		af, _ = toFloat(a)
		bf, _ = toFloat(b)
		return floatArithmetic(op, af, bf)
	}

	switch op {
	case ExprOpAdd:
		if as, ok := a.(string); ok {
			if bs, ok := b.(string); ok {
				return as + bs, nil
			}
		}
		if isSequence(a) && isSequence(b) {
			ax, _ := Iterate(a)
			bx, _ := Iterate(b)
			return append(ax, bx...), nil
		}
	case ExprOpMul:
		if s, ok := a.(string); ok && bk == intNumber {
			return repeatString(s, bi, maxRepeat)
		}
		if s, ok := b.(string); ok && ak == intNumber {
			return repeatString(s, ai, maxRepeat)
		}
		if isSequence(a) && bk == intNumber {
			return repeatItems(a, bi, maxRepeat)
		}
		if isSequence(b) && ak == intNumber {
			return repeatItems(b, ai, maxRepeat)
		}
	}

	return nil, NewExprEvalError(ErrMsgUnsupportedOp, fmt.Sprintf("%s %s %s", typeName(a), op, typeName(b)))
}

// repeatLimit rejects a repetition of size units n times when the result
// would exceed limit, or overflow when limit is zero
func repeatLimit(size int, n int64, limit int) error {
	if size == 0 || n <= 0 {
		return nil
	}
	if limit <= 0 {
		limit = math.MaxInt
	}
	if n > int64(limit/size) {
		return NewExprEvalError(ErrMsgRepeatTooLarge, fmt.Sprintf("%d * %d", size, n))
	}
	return nil
}

func repeatString(s string, n int64, limit int) (any, error) {
	if err := repeatLimit(len(s), n, limit); err != nil {
		return nil, err
	}
	if n <= 0 || s == "" {
		return "", nil
	}
	return strings.Repeat(s, int(n)), nil
}

func repeatItems(seq any, n int64, limit int) (any, error) {
	items, _ := Iterate(seq)
	if err := repeatLimit(len(items), n, limit); err != nil {
		return nil, err
	}
	out := []any{}
	if len(items) == 0 {
		return out, nil
	}
	for i := int64(0); i < n; i++ {
		out = append(out, items...)
	}
	return out, nil
}

func floatArithmetic(op string, a, b float64) (any, error) {
	switch op {
	case ExprOpAdd:
		return a + b, nil
	case ExprOpSub:
		return a - b, nil
	case ExprOpMul:
		return a * b, nil
	case ExprOpDiv:
		if b == 0 {
			return nil, NewExprEvalError(ErrMsgDivisionByZero, "")
		}
		return a / b, nil
	case ExprOpFloorDiv:
		if b == 0 {
			return nil, NewExprEvalError(ErrMsgDivisionByZero, "")
		}
		return math.Floor(a / b), nil
	case ExprOpMod:
		if b == 0 {
			return nil, NewExprEvalError(ErrMsgDivisionByZero, "")
		}
		return a - b*math.Floor(a/b), nil
	case ExprOpPow:
		return math.Pow(a, b), nil
	}
	return nil, NewExprEvalError(ErrMsgUnsupportedOp, op)
}

// UndefinedError reports use of a name or attribute with no value
type UndefinedError struct {
	Name string
}

// Error implements the error interface
func (e *UndefinedError) Error() string {
	return fmt.Sprintf("%s: '%s' is undefined", ErrMsgUndefined, e.Name)
}

// ExprEvalError represents an expression evaluation error
type ExprEvalError struct {
	Message string
	Detail  string
}

// NewExprEvalError creates a new expression evaluation error
func NewExprEvalError(message, detail string) *ExprEvalError {
	return &ExprEvalError{
		Message: message,
		Detail:  detail,
	}
}

// Error implements the error interface
func (e *ExprEvalError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}
