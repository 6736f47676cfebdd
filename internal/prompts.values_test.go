package internal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{"nil", nil, false},
		{"undefined", Undefined{Name: "x"}, false},
		{"empty string", "", false},
		{"string", "a", true},
		{"zero", 0, false},
		{"int", int64(3), true},
		{"zero float", 0.0, false},
		{"empty list", []any{}, false},
		{"list", []string{"a"}, true},
		{"empty map", map[string]any{}, false},
		{"struct", struct{}{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTruthy(tt.value))
		})
	}
}

func TestToString(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, "None"},
		{"undefined", Undefined{}, ""},
		{"true", true, "True"},
		{"int", 42, "42"},
		{"float", 1.0, "1.0"},
		{"small float", 0.00001, "1e-05"},
		{"inf", math.Inf(1), "inf"},
		{"strings in list", []string{"a", "b"}, "['a', 'b']"},
		{"quote choice", []any{"it's"}, `["it's"]`},
		{"nested map", map[string]any{"k": []any{nil, true}}, "{'k': [None, True]}"},
		{"single tuple", Tuple{1}, "(1,)"},
		{"pair tuple", Tuple{"a", 1}, "('a', 1)"},
		{"large unsigned", uint64(math.MaxUint64), "18446744073709551615"},
		{"large unsigned in list", []uint64{math.MaxUint64}, "[18446744073709551615]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToString(tt.value))
		})
	}
}

func TestRepr_SelfReference(t *testing.T) {
	m := map[string]any{"a": 1}
	m["self"] = m
	assert.Equal(t, "{'a': 1, 'self': {...}}", Repr(m))

	s := []any{1, nil}
	s[1] = s
	assert.Equal(t, "[1, [...]]", Repr(s))

	inner := []any{m}
	assert.Equal(t, "[{'a': 1, 'self': {...}}]", Repr(inner))

	// Repeated but acyclic values print in full
	shared := []any{1}
	assert.Equal(t, "[[1], [1]]", Repr([]any{shared, shared}))
	assert.Equal(t, "{'x': [1], 'y': [1]}", Repr(map[string]any{"x": shared, "y": shared}))
}

func TestIterate(t *testing.T) {
	items, err := Iterate(map[string]int{"b": 2, "a": 1, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, items)

	items, err = Iterate("hé")
	require.NoError(t, err)
	assert.Equal(t, []any{"h", "é"}, items)

	_, err = Iterate(nil)
	assert.Error(t, err)

	_, err = Iterate(5)
	assert.Error(t, err)
}

func TestGetItem(t *testing.T) {
	xs := []any{"a", "b", "c"}

	v, ok := GetItem(xs, 0)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = GetItem(xs, int64(-1))
	assert.True(t, ok)
	assert.Equal(t, "c", v)

	_, ok = GetItem(xs, 5)
	assert.False(t, ok)

	v, ok = GetItem(map[string]any{"k": 1}, "k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestGetAttr_Struct(t *testing.T) {
	type user struct {
		Name  string
		Email string `json:"email_address"`
		email string
	}
	u := &user{Name: "Ada", Email: "ada@example.com", email: "hidden"}

	v, ok := GetAttr(u, "Name")
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)

	v, ok = GetAttr(u, "email_address")
	assert.True(t, ok)
	assert.Equal(t, "ada@example.com", v)

	v, ok = GetAttr(u, "name")
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(1, int64(1)))
	assert.True(t, Equal(1, 1.0))
	assert.False(t, Equal(1, "1"))
	assert.False(t, Equal(true, 1))
	assert.True(t, Equal([]any{1, "a"}, Tuple{int64(1), "a"}))
	assert.True(t, Equal(map[string]any{"a": 1}, map[string]int{"a": 1}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, ""))
}

func TestCompareLess(t *testing.T) {
	less, err := CompareLess(1, 2.5)
	require.NoError(t, err)
	assert.True(t, less)

	less, err = CompareLess("b", "a")
	require.NoError(t, err)
	assert.False(t, less)

	less, err = CompareLess([]any{1, 2}, []any{1, 3})
	require.NoError(t, err)
	assert.True(t, less)

	_, err = CompareLess("a", 1)
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	ok, err := Contains("hello", "ell")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Contains([]any{1, 2}, int64(2))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Contains(map[string]any{"k": 1}, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Contains(5, 1)
	assert.Error(t, err)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		a, b     any
		expected any
	}{
		{"int add", ExprOpAdd, 1, 2, int64(3)},
		{"mixed add", ExprOpAdd, 1, 0.5, 1.5},
		{"true div", ExprOpDiv, 3, 2, 1.5},
		{"floor div negative", ExprOpFloorDiv, -3, 2, int64(-2)},
		{"float floor div", ExprOpFloorDiv, 7.5, 2, 3.0},
		{"floored mod", ExprOpMod, 5, -3, int64(-1)},
		{"int pow", ExprOpPow, 3, 3, int64(27)},
		{"negative pow", ExprOpPow, 2, -1, 0.5},
		{"string concat", ExprOpAdd, "a", "b", "ab"},
		{"list concat", ExprOpAdd, []any{1}, []any{2}, []any{1, 2}},
		{"string repeat", ExprOpMul, "ab", 3, "ababab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Arithmetic(tt.op, tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestArithmetic_Errors(t *testing.T) {
	_, err := Arithmetic(ExprOpDiv, 1, 0)
	assert.Error(t, err)

	_, err = Arithmetic(ExprOpMod, 1.0, 0)
	assert.Error(t, err)

	_, err = Arithmetic(ExprOpSub, "a", "b")
	assert.Error(t, err)
}
