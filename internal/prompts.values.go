package internal

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Undefined is the value of a name or attribute that could not be resolved.
// Templates run in strict mode: any use of an Undefined other than the
// defined/undefined tests or the default filter is an error.
type Undefined struct {
	Name string
}

// Tuple is an immutable sequence produced by tuple literals, items() and dictsort
type Tuple []any

// numberKind classifies a value for arithmetic
type numberKind int

const (
	notNumber numberKind = iota
	intNumber
	bigNumber // an integer outside the int64 range
	floatNumber
)

// asNumber converts any Go integer or float to int64 or float64. Integers
// that do not fit in int64 (large uint64 values and *big.Int) report
// bigNumber with their float approximation; asBigInt gives the exact value.
func asNumber(v any) (int64, float64, numberKind) {
	switch n := v.(type) {
	case int:
		return int64(n), 0, intNumber
	case int64:
		return n, 0, intNumber
	case float64:
		return 0, n, floatNumber
	case bool, string, nil:
		return 0, 0, notNumber
	case *big.Int:
		if n == nil {
			return 0, 0, notNumber
		}
		if n.IsInt64() {
			return n.Int64(), 0, intNumber
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		return 0, f, bigNumber
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), 0, intNumber
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, float64(u), bigNumber
		}
		return int64(u), 0, intNumber
	case reflect.Float32, reflect.Float64:
		return 0, rv.Float(), floatNumber
	}
	return 0, 0, notNumber
}

// asBigInt returns the exact value of any integer, however large
func asBigInt(v any) (*big.Int, bool) {
	if n, ok := v.(*big.Int); ok && n != nil {
		return n, true
	}
	i, _, kind := asNumber(v)
	switch kind {
	case intNumber:
		return big.NewInt(i), true
	case bigNumber:
		return new(big.Int).SetUint64(reflect.ValueOf(v).Uint()), true
	}
	return nil, false
}

// isInteger reports whether kind is an integer of any size
func isInteger(kind numberKind) bool {
	return kind == intNumber || kind == bigNumber
}

// toFloat returns v as float64 if it is numeric
func toFloat(v any) (float64, bool) {
	i, f, kind := asNumber(v)
	switch kind {
	case intNumber:
		return float64(i), true
	case bigNumber, floatNumber:
		return f, true
	}
	return 0, false
}

// toInt returns v as int if it is an integer, or a float with no fraction
func toInt(v any) (int, bool) {
	i, f, kind := asNumber(v)
	switch kind {
	case intNumber:
		return int(i), true
	case floatNumber:
		if f == math.Trunc(f) {
			return int(f), true
		}
	}
	return 0, false
}

func isNumber(v any) bool {
	_, _, kind := asNumber(v)
	return kind != notNumber
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// isMapping reports whether v is a map
func isMapping(v any) bool {
	if v == nil {
		return false
	}
	return reflect.ValueOf(v).Kind() == reflect.Map
}

// isSequence reports whether v is a list-like value other than a string
func isSequence(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

// IsTruthy applies Jinja truthiness: empty and zero values are false
func IsTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case Undefined:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}

	if i, f, kind := asNumber(v); kind == intNumber {
		return i != 0
	} else if kind == floatNumber {
		return f != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// Length returns the number of items in a string, sequence or map
func Length(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// Iterate returns the items of an iterable value. Maps yield their keys in sorted order.
func Iterate(v any) ([]any, error) {
	switch val := v.(type) {
	case nil:
		return nil, NewExprEvalError(ErrMsgNotIterable, StrNone)
	case string:
		items := make([]any, 0, len(val))
		for _, r := range val {
			items = append(items, string(r))
		}
		return items, nil
	case []any:
		return append([]any(nil), val...), nil
	case Tuple:
		return append([]any(nil), val...), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	case reflect.Map:
		keys := make([]any, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.Interface())
		}
		SortValues(keys)
		return keys, nil
	}
	return nil, NewExprEvalError(ErrMsgNotIterable, fmt.Sprintf("%T", v))
}

// MapItems returns the (key, value) pairs of a map sorted by key
func MapItems(v any) ([]any, bool) {
	if !isMapping(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	keys, _ := Iterate(v)
	items := make([]any, len(keys))
	for i, k := range keys {
		items[i] = Tuple{k, rv.MapIndex(reflect.ValueOf(k)).Interface()}
	}
	return items, true
}

// SortValues sorts values in place. Incomparable pairs fall back to
// comparing their printed forms.
func SortValues(values []any) {
	sort.SliceStable(values, func(i, j int) bool {
		less, err := CompareLess(values[i], values[j])
		if err != nil {
			return fmt.Sprint(values[i]) < fmt.Sprint(values[j])
		}
		return less
	})
}

// GetAttr resolves obj.name: map keys first, then struct fields by name,
// json tag or case-insensitive name
func GetAttr(obj any, name string) (any, bool) {
	switch m := obj.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := m[name]
		return v, ok
	case map[string]string:
		v, ok := m[name]
		return v, ok
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Struct:
		return structField(rv, name)
	}
	return nil, false
}

func structField(rv reflect.Value, name string) (any, bool) {
	rt := rv.Type()
	if f, ok := rt.FieldByName(name); ok && f.IsExported() {
		return rv.FieldByIndex(f.Index).Interface(), true
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := strings.Split(f.Tag.Get("json"), ",")[0]
		if tag == name || (tag == "" && strings.EqualFold(f.Name, name)) {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

// GetItem resolves obj[key]. Out-of-range indexes and missing keys are not errors;
// they report false so the caller can produce an Undefined.
func GetItem(obj any, key any) (any, bool) {
	if s, ok := obj.(string); ok {
		idx, ok := toInt(key)
		if !ok || isFloatValue(key) {
			return nil, false
		}
		runes := []rune(s)
		if idx < 0 {
			idx += len(runes)
		}
		if idx < 0 || idx >= len(runes) {
			return nil, false
		}
		return string(runes[idx]), true
	}
	if obj == nil {
		return nil, false
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		idx, ok := toInt(key)
		if !ok || isFloatValue(key) {
			return nil, false
		}
		if idx < 0 {
			idx += rv.Len()
		}
		if idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	case reflect.Map:
		k, ok := convertKey(key, rv.Type().Key())
		if !ok {
			return nil, false
		}
		val := rv.MapIndex(k)
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Struct:
		if name, ok := key.(string); ok {
			return structField(rv, name)
		}
	}
	return nil, false
}

func isFloatValue(v any) bool {
	_, _, kind := asNumber(v)
	return kind == floatNumber
}

// convertKey converts a template value to a map key of the given type
func convertKey(key any, keyType reflect.Type) (reflect.Value, bool) {
	if key == nil {
		return reflect.Value{}, false
	}
	kv := reflect.ValueOf(key)
	if kv.Type().AssignableTo(keyType) {
		return kv, true
	}
	if keyType.Kind() == reflect.Interface && kv.Type().Implements(keyType) {
		return kv, true
	}
	if i, _, kind := asNumber(key); kind == intNumber {
		switch keyType.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return reflect.ValueOf(i).Convert(keyType), true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if i >= 0 {
				return reflect.ValueOf(i).Convert(keyType), true
			}
		}
	}
	if kv.Kind() == reflect.String && keyType.Kind() == reflect.String {
		return kv.Convert(keyType), true
	}
	return reflect.Value{}, false
}

// Equal compares two values; ints and floats compare numerically
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ai, _, ak := asNumber(a)
	bi, _, bk := asNumber(b)
	if ak != notNumber && bk != notNumber {
		if ak == intNumber && bk == intNumber {
			return ai == bi
		}
		if isInteger(ak) && isInteger(bk) {
			x, _ := asBigInt(a)
			y, _ := asBigInt(b)
			return x.Cmp(y) == 0
		}
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		return x == y
	}
	if ak != notNumber || bk != notNumber {
		return false
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}

	if isSequence(a) && isSequence(b) {
		ax, _ := Iterate(a)
		bx, _ := Iterate(b)
		if len(ax) != len(bx) {
			return false
		}
		for i := range ax {
			if !Equal(ax[i], bx[i]) {
				return false
			}
		}
		return true
	}

	if isMapping(a) && isMapping(b) {
		ar, br := reflect.ValueOf(a), reflect.ValueOf(b)
		if ar.Len() != br.Len() {
			return false
		}
		for _, k := range ar.MapKeys() {
			bv, ok := GetItem(b, k.Interface())
			if !ok || !Equal(ar.MapIndex(k).Interface(), bv) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

// CompareLess reports a < b for numbers, strings and sequences
func CompareLess(a, b any) (bool, error) {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			ai, _, ak := asNumber(a)
			bi, _, bk := asNumber(b)
			if ak == intNumber && bk == intNumber {
				return ai < bi, nil
			}
			if isInteger(ak) && isInteger(bk) {
				p, _ := asBigInt(a)
				q, _ := asBigInt(b)
				return p.Cmp(q) < 0, nil
			}
			return x < y, nil
		}
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return x < y, nil
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			return !x && y, nil
		}
	}
	if isSequence(a) && isSequence(b) {
		ax, _ := Iterate(a)
		bx, _ := Iterate(b)
		for i := 0; i < len(ax) && i < len(bx); i++ {
			if Equal(ax[i], bx[i]) {
				continue
			}
			return CompareLess(ax[i], bx[i])
		}
		return len(ax) < len(bx), nil
	}
	return false, NewExprEvalError(ErrMsgNotComparable, fmt.Sprintf("%s < %s", typeName(a), typeName(b)))
}

// Contains implements the "in" operator
func Contains(container, item any) (bool, error) {
	if s, ok := container.(string); ok {
		sub, ok := item.(string)
		if !ok {
			return false, NewExprEvalError(ErrMsgUnsupportedOp, fmt.Sprintf("%s in str", typeName(item)))
		}
		return strings.Contains(s, sub), nil
	}
	if isMapping(container) {
		_, ok := GetItem(container, item)
		return ok, nil
	}
	if isSequence(container) {
		items, _ := Iterate(container)
		for _, it := range items {
			if Equal(it, item) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, NewExprEvalError(ErrMsgNotIterable, typeName(container))
}

// ToString renders a value as template output: True, None, 1.0
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return StrNone
	case Undefined:
		return ""
	case string:
		return val
	case bool:
		if val {
			return StrTrue
		}
		return StrFalse
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}
	return Repr(v)
}

// Repr renders a value as it appears inside a rendered list or map.
// A list or map that contains itself prints as [...] or {...}.
func Repr(v any) string {
	return repr(v, nil)
}

// reprVisit identifies a list, map or pointer being printed
type reprVisit struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

func repr(v any, seen map[reprVisit]bool) string {
	switch val := v.(type) {
	case nil:
		return StrNone
	case string:
		return quoteString(val)
	case bool, Undefined:
		return ToString(val)
	case Tuple:
		if len(val) == 1 {
			return "(" + repr(val[0], seen) + ",)"
		}
		return "(" + joinRepr(val, seen) + ")"
	case fmt.Stringer:
		return val.String()
	}

	switch i, f, kind := asNumber(v); kind {
	case intNumber:
		return strconv.FormatInt(i, 10)
	case bigNumber:
		n, _ := asBigInt(v)
		return n.String()
	case floatNumber:
		return FormatFloat(f)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Ptr:
		if rv.IsNil() {
			break
		}
		visit := reprVisit{kind: rv.Kind(), ptr: rv.Pointer()}
		if rv.Kind() == reflect.Slice {
			visit.len = rv.Len()
		}
		if seen[visit] {
			switch rv.Kind() {
			case reflect.Slice:
				return "[...]"
			case reflect.Map:
				return "{...}"
			}
			return "..."
		}
		if seen == nil {
			seen = make(map[reprVisit]bool)
		}
		seen[visit] = true
		defer delete(seen, visit)
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items, _ := Iterate(v)
		return "[" + joinRepr(items, seen) + "]"
	case reflect.Map:
		keys, _ := Iterate(v)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = repr(k, seen) + ": " + repr(rv.MapIndex(reflect.ValueOf(k)).Interface(), seen)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case reflect.Ptr:
		if rv.IsNil() {
			return StrNone
		}
		return repr(rv.Elem().Interface(), seen)
	}
	return fmt.Sprintf("%v", v)
}

func joinRepr(items []any, seen map[reprVisit]bool) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = repr(it, seen)
	}
	return strings.Join(parts, ", ")
}

// FormatFloat renders floats as 1.0, 0.5, 1e+16, inf, nan
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return StrNaN
	case math.IsInf(f, 1):
		return StrInf
	case math.IsInf(f, -1):
		return "-" + StrInf
	}

	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// quoteString uses single quotes unless the string
// contains a single quote and no double quote
func quoteString(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var sb strings.Builder
	sb.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			sb.WriteRune('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case !unicode.IsPrint(r):
			fmt.Fprintf(&sb, `\x%02x`, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteRune(quote)
	return sb.String()
}

// typeName returns the type name used in error details
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case string:
		return "str"
	case bool:
		return "bool"
	case Tuple:
		return "tuple"
	case Undefined:
		return "Undefined"
	}
	switch _, _, kind := asNumber(v); kind {
	case intNumber, bigNumber:
		return "int"
	case floatNumber:
		return "float"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Map:
		return "dict"
	}
	return fmt.Sprintf("%T", v)
}
