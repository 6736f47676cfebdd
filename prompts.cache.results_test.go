package prompts_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsatony/go-prompts"
)

func cacheKey(t *testing.T, c *prompts.ResultCache, text, model string, values map[string]any) string {
	t.Helper()
	key, err := c.Key(text, model, values)
	require.NoError(t, err)
	return key
}

func TestResultCache_GetSet(t *testing.T) {
	cache := prompts.NewResultCache(prompts.DefaultResultCacheConfig())
	key := cacheKey(t, cache, "Hello {{ user }}", "", map[string]any{"user": "Alice"})

	_, found := cache.Get(key)
	assert.False(t, found)

	cache.Set(key, "Hello Alice")
	result, found := cache.Get(key)
	assert.True(t, found)
	assert.Equal(t, "Hello Alice", result)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.EntryCount)
	assert.Equal(t, int64(len("Hello Alice")), stats.TotalSize)
	assert.InDelta(t, 0.5, cache.HitRate(), 0.0001)
}

func TestResultCache_Key(t *testing.T) {
	cache := prompts.NewResultCache(prompts.DefaultResultCacheConfig())

	t.Run("map order does not matter", func(t *testing.T) {
		a := cacheKey(t, cache, "x", "", map[string]any{"a": 1, "b": "two", "c": []any{1, 2}})
		b := cacheKey(t, cache, "x", "", map[string]any{"c": []any{1, 2}, "b": "two", "a": 1})
		assert.Equal(t, a, b)
	})

	t.Run("inputs are distinguished", func(t *testing.T) {
		base := cacheKey(t, cache, "x", "", map[string]any{"a": 1})
		assert.NotEqual(t, base, cacheKey(t, cache, "y", "", map[string]any{"a": 1}))
		assert.NotEqual(t, base, cacheKey(t, cache, "x", prompts.ModelGPT2, map[string]any{"a": 1}))
		assert.NotEqual(t, base, cacheKey(t, cache, "x", "", map[string]any{"a": 2}))
	})

	t.Run("prefix", func(t *testing.T) {
		config := prompts.DefaultResultCacheConfig()
		config.KeyPrefix = "ns:"
		prefixed := prompts.NewResultCache(config)
		assert.Contains(t, cacheKey(t, prefixed, "x", "", nil), "ns:")
	})

	t.Run("types are distinguished", func(t *testing.T) {
		type point struct {
			A int `json:"a"`
		}
		pairs := [][2]any{
			{[]string(nil), nil},
			{[]string{}, []any{}},
			{map[string]any{"a": 1}, point{A: 1}},
			{"y", label("y")},
			{int64(1), 1},
			{1, 1.0},
			{&point{A: 1}, point{A: 1}},
		}
		for _, p := range pairs {
			a := cacheKey(t, cache, "{{ x }}", "", map[string]any{"x": p[0]})
			b := cacheKey(t, cache, "{{ x }}", "", map[string]any{"x": p[1]})
			assert.NotEqual(t, a, b, "%#v vs %#v", p[0], p[1])
		}
	})

	t.Run("unencodable values", func(t *testing.T) {
		_, err := cache.Key("x", "", map[string]any{"fn": func() {}})
		assert.Error(t, err)
	})

	t.Run("self reference", func(t *testing.T) {
		m := map[string]any{}
		m["self"] = m
		_, err := cache.Key("x", "", map[string]any{"m": m})
		assert.Error(t, err)

		s := []any{nil}
		s[0] = s
		_, err = cache.Key("x", "", map[string]any{"s": s})
		assert.Error(t, err)
	})

	t.Run("shared values are not cycles", func(t *testing.T) {
		shared := []any{1, 2}
		_, err := cache.Key("x", "", map[string]any{"a": shared, "b": []any{shared, shared}})
		assert.NoError(t, err)
	})
}

func TestResultCache_Expiration(t *testing.T) {
	config := prompts.DefaultResultCacheConfig()
	config.TTL = 50 * time.Millisecond
	cache := prompts.NewResultCache(config)

	cache.Set("k", "v")
	_, found := cache.Get("k")
	assert.True(t, found)

	time.Sleep(80 * time.Millisecond)

	_, found = cache.Get("k")
	assert.False(t, found)
	assert.Equal(t, 0, cache.Stats().EntryCount)
}

func TestResultCache_Cleanup(t *testing.T) {
	config := prompts.DefaultResultCacheConfig()
	config.TTL = 20 * time.Millisecond
	cache := prompts.NewResultCache(config)

	cache.Set("a", "1")
	cache.Set("b", "2")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 2, cache.Cleanup())
	assert.Equal(t, 0, cache.Stats().EntryCount)
}

func TestResultCache_Eviction(t *testing.T) {
	config := prompts.DefaultResultCacheConfig()
	config.MaxEntries = 2
	cache := prompts.NewResultCache(config)

	cache.Set("a", "1")
	cache.Set("b", "2")
	cache.Set("c", "3")

	_, found := cache.Get("a")
	assert.False(t, found, "oldest entry should be evicted")
	_, found = cache.Get("c")
	assert.True(t, found)
	assert.Equal(t, int64(1), cache.Stats().Evictions)
	assert.Equal(t, 2, cache.Stats().EntryCount)
}

func TestResultCache_EvictionAfterReinsert(t *testing.T) {
	config := prompts.DefaultResultCacheConfig()
	config.MaxEntries = 2
	cache := prompts.NewResultCache(config)

	cache.Set("a", "1")
	cache.Set("b", "2")
	cache.Invalidate("a")
	cache.Set("a", "1")
	cache.Set("c", "3")

	_, found := cache.Get("b")
	assert.False(t, found, "b is now the oldest entry")
	_, found = cache.Get("a")
	assert.True(t, found)
	_, found = cache.Get("c")
	assert.True(t, found)
}

func TestResultCache_MaxResultSize(t *testing.T) {
	config := prompts.DefaultResultCacheConfig()
	config.MaxResultSize = 4
	cache := prompts.NewResultCache(config)

	cache.Set("big", "too large")
	_, found := cache.Get("big")
	assert.False(t, found)
}

func TestResultCache_InvalidateAndClear(t *testing.T) {
	cache := prompts.NewResultCache(prompts.DefaultResultCacheConfig())

	cache.Set("a", "1")
	cache.Set("b", "2")

	cache.Invalidate("a")
	_, found := cache.Get("a")
	assert.False(t, found)

	cache.Clear()
	_, found = cache.Get("b")
	assert.False(t, found)
	assert.Equal(t, int64(0), cache.Stats().TotalSize)
}

func TestResultCache_Overwrite(t *testing.T) {
	cache := prompts.NewResultCache(prompts.DefaultResultCacheConfig())

	cache.Set("a", "first")
	cache.Set("a", "second")

	result, _ := cache.Get("a")
	assert.Equal(t, "second", result)
	assert.Equal(t, 1, cache.Stats().EntryCount)
	assert.Equal(t, int64(len("second")), cache.Stats().TotalSize)
}
