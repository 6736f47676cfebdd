package internal

import (
	"fmt"
	"sort"
	"sync"
)

// Filter and global function names
const (
	FuncNameAbs        = "abs"
	FuncNameAttr       = "attr"
	FuncNameBatch      = "batch"
	FuncNameCapitalize = "capitalize"
	FuncNameCenter     = "center"
	FuncNameCount      = "count"
	FuncNameDefault    = "default"
	FuncNameD          = "d"
	FuncNameDictSort   = "dictsort"
	FuncNameEscape     = "escape"
	FuncNameE          = "e"
	FuncNameFirst      = "first"
	FuncNameFloat      = "float"
	FuncNameIndent     = "indent"
	FuncNameInt        = "int"
	FuncNameItems      = "items"
	FuncNameJoin       = "join"
	FuncNameKeys       = "keys"
	FuncNameLast       = "last"
	FuncNameLength     = "length"
	FuncNameList       = "list"
	FuncNameLower      = "lower"
	FuncNameMax        = "max"
	FuncNameMin        = "min"
	FuncNameReplace    = "replace"
	FuncNameReverse    = "reverse"
	FuncNameRound      = "round"
	FuncNameSafe       = "safe"
	FuncNameSort       = "sort"
	FuncNameString     = "string"
	FuncNameSum        = "sum"
	FuncNameTitle      = "title"
	FuncNameToJSON     = "tojson"
	FuncNameTrim       = "trim"
	FuncNameTruncate   = "truncate"
	FuncNameUnique     = "unique"
	FuncNameUpper      = "upper"
	FuncNameValues     = "values"
	FuncNameWordCount  = "wordcount"
	FuncNameRange      = "range"
	FuncNameDict       = "dict"
	FuncNameMap        = "map"
	FuncNameSelect     = "select"
	FuncNameReject     = "reject"
	FuncNameSelectAttr = "selectattr"
	FuncNameRejectAttr = "rejectattr"
)

// Common parameter names used for keyword binding
const (
	ParamValue         = "value"
	ParamAttribute     = "attribute"
	ParamCaseSensitive = "case_sensitive"
	ParamReverse       = "reverse"
	ParamDefault       = "default"
	ParamStart         = "start"
)

// Argument index constants
const (
	ArgIndexFirst  = 0
	ArgIndexSecond = 1
	ArgIndexThird  = 2
	ArgIndexFourth = 3
	ArgIndexFifth  = 4
)

// Func represents a callable filter or global function.
// Params names the positional parameters so keyword arguments can be bound;
// a keyword that skips a position leaves nil there, which functions treat as
// "use the default".
type Func struct {
	Name    string
	Params  []string
	MinArgs int
	MaxArgs int // -1 for variadic
	Fn      func(args []any) (any, error)
}

// bind merges keyword arguments into the positional argument list
func (f *Func) bind(args []any, kwargs map[string]any) ([]any, error) {
	if len(kwargs) == 0 {
		return args, nil
	}

	bound := append([]any(nil), args...)
	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		idx := -1
		for i, p := range f.Params {
			if p == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, NewFuncError(ErrMsgUnknownKwarg, f.Name+"("+name+")")
		}
		if idx < len(args) {
			return nil, NewFuncError(ErrMsgDuplicateArg, f.Name+"("+name+")")
		}
		for len(bound) <= idx {
			bound = append(bound, nil)
		}
		bound[idx] = kwargs[name]
	}
	return bound, nil
}

// FuncRegistry manages registered functions
type FuncRegistry struct {
	funcs map[string]*Func
	mu    sync.RWMutex
}

// NewFuncRegistry creates a new function registry
func NewFuncRegistry() *FuncRegistry {
	return &FuncRegistry{
		funcs: make(map[string]*Func),
	}
}

// NewFilterRegistry creates a registry holding every builtin filter
func NewFilterRegistry() *FuncRegistry {
	r := NewFuncRegistry()
	registerStringFuncs(r)
	registerCollectionFuncs(r)
	registerTypeFuncs(r)
	return r
}

// NewGlobalRegistry creates a registry holding the builtin global functions.
// range() fails when it would produce more than maxRange items; zero means no limit.
func NewGlobalRegistry(maxRange int) *FuncRegistry {
	r := NewFuncRegistry()
	registerGlobalFuncs(r, maxRange)
	return r
}

// Register adds a function to the registry
func (r *FuncRegistry) Register(f *Func) error {
	if f == nil {
		return NewFuncRegistryError(ErrMsgFuncNilFunc, "")
	}
	if f.Name == "" {
		return NewFuncRegistryError(ErrMsgFuncEmptyName, "")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[f.Name]; exists {
		return NewFuncRegistryError(ErrMsgFuncAlreadyExists, f.Name)
	}

	r.funcs[f.Name] = f
	return nil
}

// MustRegister adds a function and panics on error
func (r *FuncRegistry) MustRegister(f *Func) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Alias registers an existing function under a second name
func (r *FuncRegistry) Alias(alias, name string) {
	f, ok := r.Get(name)
	if !ok {
		panic(NewFuncRegistryError(ErrMsgFuncNotFound, name))
	}
	clone := *f
	clone.Name = alias
	r.MustRegister(&clone)
}

// Get retrieves a function by name
func (r *FuncRegistry) Get(name string) (*Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.funcs[name]
	return f, ok
}

// Has checks if a function is registered
func (r *FuncRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.funcs[name]
	return ok
}

// Call invokes a function by name with positional and keyword arguments
func (r *FuncRegistry) Call(name string, args []any, kwargs map[string]any) (any, error) {
	r.mu.RLock()
	f, ok := r.funcs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, NewFuncError(ErrMsgFuncNotFound, name)
	}

	bound, err := f.bind(args, kwargs)
	if err != nil {
		return nil, err
	}

	argCount := len(bound)
	if argCount < f.MinArgs {
		return nil, NewFuncArgError(ErrMsgArgCountMin, name, f.MinArgs, argCount)
	}
	if f.MaxArgs >= 0 && argCount > f.MaxArgs {
		return nil, NewFuncArgError(ErrMsgArgCountMax, name, f.MaxArgs, argCount)
	}

	result, err := f.Fn(bound)
	if err != nil {
		return nil, NewFuncExecError(name, err)
	}

	return result, nil
}

// List returns all registered function names in sorted order
func (r *FuncRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered functions
func (r *FuncRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.funcs)
}

// arg returns args[i], or def when the argument is absent or nil
func arg(args []any, i int, def any) any {
	if i >= len(args) || args[i] == nil {
		return def
	}
	return args[i]
}

// FuncRegistryError represents a function registry error
type FuncRegistryError struct {
	Message  string
	FuncName string
}

// NewFuncRegistryError creates a new function registry error
func NewFuncRegistryError(message, funcName string) *FuncRegistryError {
	return &FuncRegistryError{
		Message:  message,
		FuncName: funcName,
	}
}

// Error implements the error interface
func (e *FuncRegistryError) Error() string {
	if e.FuncName != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.FuncName)
	}
	return e.Message
}

// FuncError represents a function-related error
type FuncError struct {
	Message  string
	FuncName string
}

// NewFuncError creates a new function error
func NewFuncError(message, funcName string) *FuncError {
	return &FuncError{
		Message:  message,
		FuncName: funcName,
	}
}

// Error implements the error interface
func (e *FuncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.FuncName)
}

// FuncArgError represents a function argument count error
type FuncArgError struct {
	Message  string
	FuncName string
	Expected int
	Actual   int
}

// NewFuncArgError creates a new function argument error
func NewFuncArgError(message, funcName string, expected, actual int) *FuncArgError {
	return &FuncArgError{
		Message:  message,
		FuncName: funcName,
		Expected: expected,
		Actual:   actual,
	}
}

// Error implements the error interface
func (e *FuncArgError) Error() string {
	return fmt.Sprintf("%s: %s (expected %d, got %d)", e.Message, e.FuncName, e.Expected, e.Actual)
}

// FuncExecError represents a failure inside a function body
type FuncExecError struct {
	FuncName string
	Cause    error
}

// NewFuncExecError creates a new function execution error
func NewFuncExecError(funcName string, cause error) *FuncExecError {
	return &FuncExecError{
		FuncName: funcName,
		Cause:    cause,
	}
}

// Error implements the error interface
func (e *FuncExecError) Error() string {
	return fmt.Sprintf("%s: %v", e.FuncName, e.Cause)
}

// Unwrap returns the underlying cause
func (e *FuncExecError) Unwrap() error {
	return e.Cause
}
