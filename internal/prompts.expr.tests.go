package internal

import (
	"reflect"
	"strings"
	"unicode"
)

// Test names usable after "is"
const (
	TestNameDefined     = "defined"
	TestNameUndefined   = "undefined"
	TestNameNone        = "none"
	TestNameBoolean     = "boolean"
	TestNameTrue        = "true"
	TestNameFalse       = "false"
	TestNameNumber      = "number"
	TestNameInteger     = "integer"
	TestNameFloat       = "float"
	TestNameString      = "string"
	TestNameMapping     = "mapping"
	TestNameIterable    = "iterable"
	TestNameSequence    = "sequence"
	TestNameEven        = "even"
	TestNameOdd         = "odd"
	TestNameDivisibleBy = "divisibleby"
	TestNameSameAs      = "sameas"
	TestNameLower       = "lower"
	TestNameUpper       = "upper"
	TestNameIn          = "in"
	TestNameEq          = "eq"
	TestNameNe          = "ne"
	TestNameLt          = "lt"
	TestNameLe          = "le"
	TestNameGt          = "gt"
	TestNameGe          = "ge"
)

// TestFunc evaluates a test against a value with optional arguments
type TestFunc func(v any, args []any) (bool, error)

// testArity is the number of arguments each builtin test requires
var testArity = map[string]int{
	TestNameDivisibleBy: 1,
	TestNameSameAs:      1,
	TestNameIn:          1,
	TestNameEq:          1,
	TestNameNe:          1,
	TestNameLt:          1,
	TestNameLe:          1,
	TestNameGt:          1,
	TestNameGe:          1,
}

// builtinTests holds every test available after "is"
var builtinTests = map[string]TestFunc{
	TestNameDefined: func(v any, _ []any) (bool, error) {
		_, undefined := v.(Undefined)
		return !undefined, nil
	},
	TestNameUndefined: func(v any, _ []any) (bool, error) {
		_, undefined := v.(Undefined)
		return undefined, nil
	},
	TestNameNone: func(v any, _ []any) (bool, error) {
		return v == nil, nil
	},
	TestNameBoolean: func(v any, _ []any) (bool, error) {
		_, ok := v.(bool)
		return ok, nil
	},
	TestNameTrue: func(v any, _ []any) (bool, error) {
		b, ok := v.(bool)
		return ok && b, nil
	},
	TestNameFalse: func(v any, _ []any) (bool, error) {
		b, ok := v.(bool)
		return ok && !b, nil
	},
	TestNameNumber: func(v any, _ []any) (bool, error) {
		return isNumber(v), nil
	},
	TestNameInteger: func(v any, _ []any) (bool, error) {
		_, _, kind := asNumber(v)
		return isInteger(kind), nil
	},
	TestNameFloat: func(v any, _ []any) (bool, error) {
		return isFloatValue(v), nil
	},
	TestNameString: func(v any, _ []any) (bool, error) {
		return isString(v), nil
	},
	TestNameMapping: func(v any, _ []any) (bool, error) {
		return isMapping(v), nil
	},
	TestNameIterable: func(v any, _ []any) (bool, error) {
		return isString(v) || isSequence(v) || isMapping(v), nil
	},
	TestNameSequence: func(v any, _ []any) (bool, error) {
		return isString(v) || isSequence(v) || isMapping(v), nil
	},
	TestNameEven: func(v any, _ []any) (bool, error) {
		n, ok := toInt(v)
		if !ok {
			return false, NewExprEvalError(ErrMsgUnsupportedOp, "even("+typeName(v)+")")
		}
		return n%2 == 0, nil
	},
	TestNameOdd: func(v any, _ []any) (bool, error) {
		n, ok := toInt(v)
		if !ok {
			return false, NewExprEvalError(ErrMsgUnsupportedOp, "odd("+typeName(v)+")")
		}
		return n%2 != 0, nil
	},
	TestNameDivisibleBy: func(v any, args []any) (bool, error) {
		n, ok1 := toInt(v)
		d, ok2 := toInt(args[0])
		if !ok1 || !ok2 {
			return false, NewExprEvalError(ErrMsgUnsupportedOp, "divisibleby")
		}
		if d == 0 {
			return false, NewExprEvalError(ErrMsgDivisionByZero, "divisibleby")
		}
		return n%d == 0, nil
	},
	TestNameSameAs: func(v any, args []any) (bool, error) {
		return sameAs(v, args[0]), nil
	},
	TestNameLower: func(v any, _ []any) (bool, error) {
		s := ToString(v)
		return s == strings.ToLower(s) && strings.IndexFunc(s, unicode.IsLetter) >= 0, nil
	},
	TestNameUpper: func(v any, _ []any) (bool, error) {
		s := ToString(v)
		return s == strings.ToUpper(s) && strings.IndexFunc(s, unicode.IsLetter) >= 0, nil
	},
	TestNameIn: func(v any, args []any) (bool, error) {
		return Contains(args[0], v)
	},
	TestNameEq: func(v any, args []any) (bool, error) {
		return Equal(v, args[0]), nil
	},
	TestNameNe: func(v any, args []any) (bool, error) {
		return !Equal(v, args[0]), nil
	},
	TestNameLt: func(v any, args []any) (bool, error) {
		return CompareLess(v, args[0])
	},
	TestNameLe: func(v any, args []any) (bool, error) {
		less, err := CompareLess(args[0], v)
		return !less, err
	},
	TestNameGt: func(v any, args []any) (bool, error) {
		return CompareLess(args[0], v)
	},
	TestNameGe: func(v any, args []any) (bool, error) {
		less, err := CompareLess(v, args[0])
		return !less, err
	},
}

// testAliases maps alternative test names to their builtin
var testAliases = map[string]string{
	"equalto":     TestNameEq,
	"==":          TestNameEq,
	"!=":          TestNameNe,
	"lessthan":    TestNameLt,
	"greaterthan": TestNameGt,
}

// LookupTest returns the named test and how many arguments it needs
func LookupTest(name string) (TestFunc, int, bool) {
	if target, ok := testAliases[name]; ok {
		name = target
	}
	fn, ok := builtinTests[name]
	return fn, testArity[name], ok
}

// sameAs approximates identity: nil, bools and same-pointer references
func sameAs(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ra.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr:
		return ra.Kind() == rb.Kind() && ra.Pointer() == rb.Pointer()
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}
