package internal

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// registerCollectionFuncs registers filters operating on sequences and maps
func registerCollectionFuncs(r *FuncRegistry) {
	// length(v)
	r.MustRegister(&Func{
		Name:    FuncNameLength,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			n, ok := Length(args[ArgIndexFirst])
			if !ok {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "object of type "+typeName(args[ArgIndexFirst])+" has no len()")
			}
			return n, nil
		},
	})
	r.Alias(FuncNameCount, FuncNameLength)

	// first(seq)
	r.MustRegister(&Func{
		Name:    FuncNameFirst,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			items, err := Iterate(args[ArgIndexFirst])
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				return Undefined{Name: FuncNameFirst}, nil
			}
			return items[0], nil
		},
	})

	// last(seq)
	r.MustRegister(&Func{
		Name:    FuncNameLast,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			items, err := Iterate(args[ArgIndexFirst])
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				return Undefined{Name: FuncNameLast}, nil
			}
			return items[len(items)-1], nil
		},
	})

	// join(seq, d='', attribute=None)
	r.MustRegister(&Func{
		Name:    FuncNameJoin,
		Params:  []string{ParamValue, "d", ParamAttribute},
		MinArgs: 1,
		MaxArgs: 3,
		Fn: func(args []any) (any, error) {
			items, err := itemsByAttribute(args[ArgIndexFirst], arg(args, ArgIndexThird, nil))
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(items))
			for i, it := range items {
				parts[i] = ToString(it)
			}
			return strings.Join(parts, ToString(arg(args, ArgIndexSecond, ""))), nil
		},
	})

	// list(v)
	r.MustRegister(&Func{
		Name:    FuncNameList,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			return Iterate(args[ArgIndexFirst])
		},
	})

	// reverse(v): reversed string or list
	r.MustRegister(&Func{
		Name:    FuncNameReverse,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			if s, ok := args[ArgIndexFirst].(string); ok {
				runes := []rune(s)
				for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
					runes[i], runes[j] = runes[j], runes[i]
				}
				return string(runes), nil
			}
			items, err := Iterate(args[ArgIndexFirst])
			if err != nil {
				return nil, err
			}
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
			return items, nil
		},
	})

	// sort(seq, reverse=False, case_sensitive=False, attribute=None)
	r.MustRegister(&Func{
		Name:    FuncNameSort,
		Params:  []string{ParamValue, ParamReverse, ParamCaseSensitive, ParamAttribute},
		MinArgs: 1,
		MaxArgs: 4,
		Fn: func(args []any) (any, error) {
			items, err := Iterate(args[ArgIndexFirst])
			if err != nil {
				return nil, err
			}
			key := sortKey(arg(args, ArgIndexFourth, nil), IsTruthy(arg(args, ArgIndexThird, false)))
			if err := sortItems(items, key, IsTruthy(arg(args, ArgIndexSecond, false))); err != nil {
				return nil, err
			}
			return items, nil
		},
	})

	// unique(seq, case_sensitive=False, attribute=None)
	r.MustRegister(&Func{
		Name:    FuncNameUnique,
		Params:  []string{ParamValue, ParamCaseSensitive, ParamAttribute},
		MinArgs: 1,
		MaxArgs: 3,
		Fn: func(args []any) (any, error) {
			items, err := Iterate(args[ArgIndexFirst])
			if err != nil {
				return nil, err
			}
			key := sortKey(arg(args, ArgIndexThird, nil), IsTruthy(arg(args, ArgIndexSecond, false)))
			var out, seen []any
			for _, it := range items {
				k := key(it)
				dup := false
				for _, s := range seen {
					if Equal(s, k) {
						dup = true
						break
					}
				}
				if !dup {
					seen = append(seen, k)
					out = append(out, it)
				}
			}
			return out, nil
		},
	})

	// max(seq, case_sensitive=False, attribute=None)
	r.MustRegister(&Func{
		Name:    FuncNameMax,
		Params:  []string{ParamValue, ParamCaseSensitive, ParamAttribute},
		MinArgs: 1,
		MaxArgs: 3,
		Fn: func(args []any) (any, error) {
			return extreme(args, true)
		},
	})

	// min(seq, case_sensitive=False, attribute=None)
	r.MustRegister(&Func{
		Name:    FuncNameMin,
		Params:  []string{ParamValue, ParamCaseSensitive, ParamAttribute},
		MinArgs: 1,
		MaxArgs: 3,
		Fn: func(args []any) (any, error) {
			return extreme(args, false)
		},
	})

	// sum(seq, attribute=None, start=0)
	r.MustRegister(&Func{
		Name:    FuncNameSum,
		Params:  []string{ParamValue, ParamAttribute, ParamStart},
		MinArgs: 1,
		MaxArgs: 3,
		Fn: func(args []any) (any, error) {
			items, err := itemsByAttribute(args[ArgIndexFirst], arg(args, ArgIndexSecond, nil))
			if err != nil {
				return nil, err
			}
			total := arg(args, ArgIndexThird, 0)
			for _, it := range items {
				if total, err = Arithmetic(ExprOpAdd, total, it); err != nil {
					return nil, err
				}
			}
			return total, nil
		},
	})

	// batch(seq, linecount, fill_with=None)
	r.MustRegister(&Func{
		Name:    FuncNameBatch,
		Params:  []string{ParamValue, "linecount", "fill_with"},
		MinArgs: 2,
		MaxArgs: 3,
		Fn: func(args []any) (any, error) {
			items, err := Iterate(args[ArgIndexFirst])
			if err != nil {
				return nil, err
			}
			size, ok := toInt(args[ArgIndexSecond])
			if !ok || size <= 0 {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "linecount")
			}
			fill := len(args) > ArgIndexThird && args[ArgIndexThird] != nil
			var batches []any
			for start := 0; start < len(items); start += size {
				end := start + size
				if end > len(items) {
					end = len(items)
				}
				batch := append([]any(nil), items[start:end]...)
				for fill && len(batch) < size {
					batch = append(batch, args[ArgIndexThird])
				}
				batches = append(batches, batch)
			}
			return batches, nil
		},
	})

	// dictsort(map, case_sensitive=False, by='key', reverse=False)
	r.MustRegister(&Func{
		Name:    FuncNameDictSort,
		Params:  []string{ParamValue, ParamCaseSensitive, "by", ParamReverse},
		MinArgs: 1,
		MaxArgs: 4,
		Fn: func(args []any) (any, error) {
			items, ok := MapItems(args[ArgIndexFirst])
			if !ok {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "dictsort expects a mapping")
			}
			pos := 0
			switch by := ToString(arg(args, ArgIndexThird, "key")); by {
			case "key":
			case "value":
				pos = 1
			default:
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "by="+by)
			}
			caseSensitive := IsTruthy(arg(args, ArgIndexSecond, false))
			key := func(v any) any {
				k := v.(Tuple)[pos]
				if s, ok := k.(string); ok && !caseSensitive {
					return strings.ToLower(s)
				}
				return k
			}
			if err := sortItems(items, key, IsTruthy(arg(args, ArgIndexFourth, false))); err != nil {
				return nil, err
			}
			return items, nil
		},
	})

	// items(map): sorted (key, value) pairs
	r.MustRegister(&Func{
		Name:    FuncNameItems,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			if args[ArgIndexFirst] == nil {
				return []any{}, nil
			}
			items, ok := MapItems(args[ArgIndexFirst])
			if !ok {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "items expects a mapping")
			}
			return items, nil
		},
	})

	// keys(map): sorted keys
	r.MustRegister(&Func{
		Name:    FuncNameKeys,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			if !isMapping(args[ArgIndexFirst]) {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "keys expects a mapping")
			}
			return Iterate(args[ArgIndexFirst])
		},
	})

	// values(map): values ordered by key
	r.MustRegister(&Func{
		Name:    FuncNameValues,
		Params:  []string{ParamValue},
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			items, ok := MapItems(args[ArgIndexFirst])
			if !ok {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "values expects a mapping")
			}
			values := make([]any, len(items))
			for i, it := range items {
				values[i] = it.(Tuple)[1]
			}
			return values, nil
		},
	})

	// attr(obj, name)
	r.MustRegister(&Func{
		Name:    FuncNameAttr,
		Params:  []string{ParamValue, "name"},
		MinArgs: 2,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			name := ToString(args[ArgIndexSecond])
			if v, ok := GetAttr(args[ArgIndexFirst], name); ok {
				return v, nil
			}
			return Undefined{Name: name}, nil
		},
	})
}

// registerGlobalFuncs registers functions callable by name in expressions
func registerGlobalFuncs(r *FuncRegistry, maxRange int) {
	// range([start,] stop[, step])
	r.MustRegister(&Func{
		Name:    FuncNameRange,
		Params:  []string{ParamStart, "stop", "step"},
		MinArgs: 1,
		MaxArgs: 3,
		Fn: func(args []any) (any, error) {
			ints := make([]int64, len(args))
			for i, a := range args {
				n, _, kind := asNumber(a)
				if kind != intNumber {
					return nil, NewExprEvalError(ErrMsgInvalidArgument, "range expects integers")
				}
				ints[i] = n
			}
			start, stop, step := int64(0), ints[0], int64(1)
			if len(ints) > 1 {
				start, stop = ints[0], ints[1]
			}
			if len(ints) > 2 {
				step = ints[2]
			}
			if step == 0 {
				return nil, NewExprEvalError(ErrMsgInvalidArgument, "range step must not be zero")
			}

			count := rangeLength(start, stop, step)
			if maxRange > 0 && count > uint64(maxRange) {
				return nil, NewExprEvalError(ErrMsgLoopLimitExceeded, fmt.Sprintf("range of %d items", count))
			}
			out := make([]any, count)
			for i := range out {
				out[i] = int(start + int64(i)*step)
			}
			return out, nil
		},
	})
}

// rangeLength counts the items of range(start, stop, step) without
// overflowing near the ends of the int64 range
func rangeLength(start, stop, step int64) uint64 {
	switch {
	case step > 0 && start < stop:
		return (uint64(stop)-uint64(start)-1)/uint64(step) + 1
	case step < 0 && start > stop:
		return (uint64(start)-uint64(stop)-1)/(uint64(-(step+1))+1) + 1
	}
	return 0
}

// itemsByAttribute iterates v, optionally mapping each item through an attribute path
func itemsByAttribute(v any, attribute any) ([]any, error) {
	items, err := Iterate(v)
	if err != nil {
		return nil, err
	}
	if attribute == nil {
		return items, nil
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = AttrPath(it, ToString(attribute))
	}
	return out, nil
}

// AttrPath resolves a dotted path such as "user.name" or "items.0"
func AttrPath(v any, path string) any {
	for _, part := range strings.Split(path, ".") {
		next, ok := GetAttr(v, part)
		if !ok {
			if idx, err := parseIndex(part); err == nil {
				next, ok = GetItem(v, idx)
			}
		}
		if !ok {
			return Undefined{Name: part}
		}
		v = next
	}
	return v
}

func parseIndex(s string) (int, error) {
	tok, err := NewExprTokenizer(s).Tokenize()
	if err != nil || len(tok) != 2 || tok[0].Type != ExprTokenTypeInt {
		return 0, NewExprEvalError(ErrMsgInvalidArgument, s)
	}
	n, ok := tok[0].Literal.(int64)
	if !ok {
		return 0, NewExprEvalError(ErrMsgInvalidArgument, s)
	}
	return int(n), nil
}

// sortKey builds the comparison key for sort, unique, min and max
func sortKey(attribute any, caseSensitive bool) func(any) any {
	return func(v any) any {
		if attribute != nil {
			v = AttrPath(v, ToString(attribute))
		}
		if s, ok := v.(string); ok && !caseSensitive {
			return strings.ToLower(s)
		}
		return v
	}
}

func sortItems(items []any, key func(any) any, reverse bool) error {
	var cmpErr error
	sort.SliceStable(items, func(i, j int) bool {
		a, b := key(items[i]), key(items[j])
		if reverse {
			a, b = b, a
		}
		less, err := CompareLess(a, b)
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		return less
	})
	return cmpErr
}

func extreme(args []any, wantMax bool) (any, error) {
	items, err := Iterate(args[ArgIndexFirst])
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return Undefined{Name: FuncNameMax}, nil
	}
	key := sortKey(arg(args, ArgIndexThird, nil), IsTruthy(arg(args, ArgIndexSecond, false)))
	best := items[0]
	for _, it := range items[1:] {
		a, b := key(best), key(it)
		if wantMax {
			a, b = b, a
		}
		less, err := CompareLess(b, a)
		if err != nil {
			return nil, err
		}
		if less {
			best = it
		}
	}
	return best, nil
}

// toMap converts any string-keyed map into map[string]any
func toMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	if !isMapping(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[ToString(iter.Key().Interface())] = iter.Value().Interface()
	}
	return out, true
}
