package prompts

import (
	"bytes"
	"container/list"
	"encoding/hex"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/itsatony/go-cuserr"
	"github.com/zeebo/blake3"
)

// cacheKeyMode encodes cache-key material with Core Deterministic Encoding:
// sorted map keys and shortest integers, so equal inputs give equal bytes.
var cacheKeyMode cbor.EncMode

func init() {
	var err error
	cacheKeyMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("prompts: CBOR encoder initialization failed: " + err.Error())
	}
}

// ResultCache memoizes rendered output keyed by the render inputs.
// Entries are evicted in insertion order once MaxEntries is reached.
type ResultCache struct {
	mu     sync.RWMutex
	config ResultCacheConfig
	stats  ResultCacheStats
	index  map[string]*list.Element
	order  *list.List // of *cachedRender, oldest at the front
}

type cachedRender struct {
	key     string
	output  string
	expires time.Time // zero never expires
}

func (r *cachedRender) expired(now time.Time) bool {
	return !r.expires.IsZero() && now.After(r.expires)
}

// ResultCacheConfig bounds a ResultCache
type ResultCacheConfig struct {
	// TTL is how long an output stays valid. Zero keeps it until evicted.
	TTL time.Duration

	// MaxEntries caps the number of stored outputs. Default: 4096.
	MaxEntries int

	// MaxResultSize is the largest output, in bytes, that is stored. Default: 1MB.
	MaxResultSize int

	// KeyPrefix namespaces the keys returned by Key.
	KeyPrefix string
}

// ResultCacheStats counts cache activity. Bypasses are renders whose values
// could not be turned into a key.
type ResultCacheStats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Bypasses   int64
	TotalSize  int64
	EntryCount int
}

// DefaultResultCacheConfig returns the defaults for render memoization.
func DefaultResultCacheConfig() ResultCacheConfig {
	return ResultCacheConfig{
		TTL:           DefaultCacheTTL,
		MaxEntries:    DefaultCacheMaxEntries,
		MaxResultSize: DefaultCacheMaxResultSize,
		KeyPrefix:     "",
	}
}

// NewResultCache creates a cache. Non-positive limits take the defaults.
func NewResultCache(config ResultCacheConfig) *ResultCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheMaxEntries
	}
	if config.MaxResultSize <= 0 {
		config.MaxResultSize = DefaultCacheMaxResultSize
	}
	return &ResultCache{
		config: config,
		index:  make(map[string]*list.Element),
		order:  list.New(),
	}
}

// Key derives the cache key of a render. Every value is keyed together with
// its Go type, so values that print alike but render differently never share
// a key. It fails for functions, channels and self-referencing values; such
// renders are not cached.
func (c *ResultCache) Key(text, model string, values map[string]any) (string, error) {
	material, err := keyMaterial(reflect.ValueOf(values), make(map[visitKey]bool))
	if err != nil {
		return "", err
	}
	data, err := cacheKeyMode.Marshal([]any{text, model, material})
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return c.config.KeyPrefix + hex.EncodeToString(sum[:]), nil
}

// Get returns the output stored under key. Expired entries count as misses
// and are dropped.
func (c *ResultCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		return "", false
	}
	entry := elem.Value.(*cachedRender)
	if entry.expired(time.Now()) {
		c.drop(elem)
		c.stats.Misses++
		return "", false
	}

	c.stats.Hits++
	return entry.output, true
}

// Set stores output under key. Output larger than MaxResultSize is not kept.
// Overwriting a key keeps its place in the eviction order.
func (c *ResultCache) Set(key, output string) {
	if len(output) > c.config.MaxResultSize {
		return
	}

	now := time.Now()
	entry := &cachedRender{key: key, output: output}
	if c.config.TTL > 0 {
		entry.expires = now.Add(c.config.TTL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.stats.TotalSize += int64(len(output) - len(elem.Value.(*cachedRender).output))
		elem.Value = entry
		return
	}

	for c.order.Len() >= c.config.MaxEntries {
		c.drop(c.order.Front())
		c.stats.Evictions++
	}

	c.index[key] = c.order.PushBack(entry)
	c.stats.TotalSize += int64(len(output))
	c.stats.EntryCount = c.order.Len()
}

// Invalidate drops the entry stored under key, if any
func (c *ResultCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.drop(elem)
	}
}

// Clear drops every entry. Hit and miss counters are kept.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = make(map[string]*list.Element)
	c.order.Init()
	c.stats.TotalSize = 0
	c.stats.EntryCount = 0
}

// Stats returns a snapshot of the counters
func (c *ResultCache) Stats() ResultCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup
func (c *ResultCache) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lookups := c.stats.Hits + c.stats.Misses
	if lookups == 0 {
		return 0
	}
	return float64(c.stats.Hits) / float64(lookups)
}

// Cleanup drops expired entries and returns how many were dropped.
// Only useful with a TTL; long-running processes call it periodically.
func (c *ResultCache) Cleanup() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*cachedRender).expired(now) {
			c.drop(elem)
			dropped++
		}
		elem = next
	}
	return dropped
}

func (c *ResultCache) recordBypass() {
	c.mu.Lock()
	c.stats.Bypasses++
	c.mu.Unlock()
}

// drop unlinks an entry. The caller holds the write lock.
func (c *ResultCache) drop(elem *list.Element) {
	entry := c.order.Remove(elem).(*cachedRender)
	delete(c.index, entry.key)
	c.stats.TotalSize -= int64(len(entry.output))
	c.stats.EntryCount = c.order.Len()
}

// visitKey identifies a reference value on the current walk path
type visitKey struct {
	ptr uintptr
	len int
	typ reflect.Type
}

// keyMaterial turns a value into CBOR-encodable nodes of the form
// [type, nil?, payload]. Struct fields are read directly, unexported ones
// included, since String methods may depend on them.
func keyMaterial(rv reflect.Value, path map[visitKey]bool) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}

	typ := rv.Type().String()
	switch rv.Kind() {
	case reflect.Bool:
		return []any{typ, rv.Bool()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return []any{typ, rv.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return []any{typ, rv.Uint()}, nil
	case reflect.Float32, reflect.Float64:
		return []any{typ, rv.Float()}, nil
	case reflect.Complex64, reflect.Complex128:
		z := rv.Complex()
		return []any{typ, real(z), imag(z)}, nil
	case reflect.String:
		return []any{typ, rv.String()}, nil

	case reflect.Interface:
		if rv.IsNil() {
			return []any{typ, true}, nil
		}
		elem, err := keyMaterial(rv.Elem(), path)
		if err != nil {
			return nil, err
		}
		return []any{typ, false, elem}, nil

	case reflect.Ptr:
		if rv.IsNil() {
			return []any{typ, true}, nil
		}
		visit := visitKey{ptr: rv.Pointer(), typ: rv.Type()}
		if path[visit] {
			return nil, cacheKeyCycleError(typ)
		}
		path[visit] = true
		defer delete(path, visit)

		elem, err := keyMaterial(rv.Elem(), path)
		if err != nil {
			return nil, err
		}
		return []any{typ, false, elem}, nil

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return []any{typ, true}, nil
			}
			if rv.Len() > 0 {
				visit := visitKey{ptr: rv.Pointer(), len: rv.Len(), typ: rv.Type()}
				if path[visit] {
					return nil, cacheKeyCycleError(typ)
				}
				path[visit] = true
				defer delete(path, visit)
			}
		}
		items := make([]any, rv.Len())
		for i := range items {
			item, err := keyMaterial(rv.Index(i), path)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return []any{typ, false, items}, nil

	case reflect.Map:
		if rv.IsNil() {
			return []any{typ, true}, nil
		}
		visit := visitKey{ptr: rv.Pointer(), typ: rv.Type()}
		if path[visit] {
			return nil, cacheKeyCycleError(typ)
		}
		path[visit] = true
		defer delete(path, visit)

		type entry struct {
			key   []byte
			value any
		}
		entries := make([]entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := keyMaterial(iter.Key(), path)
			if err != nil {
				return nil, err
			}
			encoded, err := cacheKeyMode.Marshal(k)
			if err != nil {
				return nil, err
			}
			v, err := keyMaterial(iter.Value(), path)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry{key: encoded, value: v})
		}
		sort.Slice(entries, func(i, j int) bool {
			return bytes.Compare(entries[i].key, entries[j].key) < 0
		})
		pairs := make([]any, len(entries))
		for i, e := range entries {
			pairs[i] = []any{e.key, e.value}
		}
		return []any{typ, false, pairs}, nil

	case reflect.Struct:
		fields := make([]any, rv.NumField())
		for i := range fields {
			field, err := keyMaterial(rv.Field(i), path)
			if err != nil {
				return nil, err
			}
			fields[i] = field
		}
		return []any{typ, fields}, nil
	}

	return nil, cuserr.NewValidationError(ErrCodeRender, ErrMsgCacheKeyUnsupported+": "+typ)
}

func cacheKeyCycleError(typ string) error {
	return cuserr.NewValidationError(ErrCodeRender, ErrMsgCacheKeyCycle+": "+typ)
}
