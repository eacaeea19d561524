package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

func TestNormalizeQueryCollapsesWhitespaceAndStripsEdgePunctuation(t *testing.T) {
	assert.Equal(t, "what is c++ doing", NormalizeQuery("  What  is   C++ doing?  "))
}

func TestNormalizeQueryPreservesInternalPunctuation(t *testing.T) {
	assert.Equal(t, "foo.bar is slow", NormalizeQuery("foo.bar is slow."))
}

func TestFingerprintIsOrderIndependentOnTags(t *testing.T) {
	a := types.ContextInput{Query: "q", Filters: types.Filters{Tags: []string{"b", "a"}}}
	b := types.ContextInput{Query: "q", Filters: types.Filters{Tags: []string{"a", "b"}}}
	assert.Equal(t, Fingerprint(a, ""), Fingerprint(b, ""))
}

func TestFingerprintDiffersOnScoringHash(t *testing.T) {
	in := types.ContextInput{Query: "q"}
	assert.NotEqual(t, Fingerprint(in, "h1"), Fingerprint(in, "h2"))
}

func TestCacheSetThenGetHits(t *testing.T) {
	c := New(types.CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 60_000})
	now := time.Now()
	c.Set("k1", types.ContextResult{Context: "ctx"}, nil, now)

	got, ok := c.Get("k1", now)
	require.True(t, ok)
	assert.Equal(t, "ctx", got.Context)
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestCacheMissIncrementsMisses(t *testing.T) {
	c := New(types.CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 60_000})
	_, ok := c.Get("missing", time.Now())
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestCacheTTLExpiryEvictsAndMisses(t *testing.T) {
	c := New(types.CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 1000})
	start := time.Now()
	c.Set("k1", types.ContextResult{}, nil, start)

	_, ok := c.Get("k1", start.Add(2*time.Second))
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCacheEvictsLRUWhenFull(t *testing.T) {
	c := New(types.CacheConfig{Enabled: true, MaxEntries: 2, TTLMs: 60_000})
	now := time.Now()
	c.Set("k1", types.ContextResult{}, nil, now)
	c.Set("k2", types.ContextResult{}, nil, now)
	// touch k1 so k2 becomes LRU
	_, _ = c.Get("k1", now)
	c.Set("k3", types.ContextResult{}, nil, now)

	_, ok := c.Get("k2", now)
	assert.False(t, ok)
	_, ok = c.Get("k1", now)
	assert.True(t, ok)
	_, ok = c.Get("k3", now)
	assert.True(t, ok)
}

func TestCacheDisabledAlwaysMissesAndNoOpsOnSet(t *testing.T) {
	c := New(types.CacheConfig{Enabled: false, MaxEntries: 10, TTLMs: 60_000})
	now := time.Now()
	c.Set("k1", types.ContextResult{Context: "x"}, nil, now)
	_, ok := c.Get("k1", now)
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestInvalidateByMemoryIDRemovesOnlyMatchingEntries(t *testing.T) {
	c := New(types.CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 60_000})
	now := time.Now()
	c.Set("k1", types.ContextResult{}, map[string]struct{}{"m1": {}}, now)
	c.Set("k2", types.ContextResult{}, map[string]struct{}{"m2": {}}, now)
	c.Set("k3", types.ContextResult{}, map[string]struct{}{"m3": {}}, now)

	c.InvalidateByMemoryID("m1")

	_, ok := c.Get("k1", now)
	assert.False(t, ok)
	_, ok = c.Get("k2", now)
	assert.True(t, ok)
}

func TestInvalidateByMemoryIDClearsWholeCacheWhenMajorityMatch(t *testing.T) {
	c := New(types.CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 60_000})
	now := time.Now()
	c.Set("k1", types.ContextResult{}, map[string]struct{}{"shared": {}}, now)
	c.Set("k2", types.ContextResult{}, map[string]struct{}{"shared": {}}, now)
	c.Set("k3", types.ContextResult{}, map[string]struct{}{"other": {}}, now)

	c.InvalidateByMemoryID("shared")

	assert.Equal(t, 0, c.Stats().Size)
}

func TestInvalidateAllClearsEverything(t *testing.T) {
	c := New(types.CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 60_000})
	now := time.Now()
	c.Set("k1", types.ContextResult{}, nil, now)
	c.Set("k2", types.ContextResult{}, nil, now)

	c.InvalidateAll()

	assert.Equal(t, 0, c.Stats().Size)
	_, ok := c.Get("k1", now)
	assert.False(t, ok)
}

func TestHitRateComputedFromCounters(t *testing.T) {
	s := types.CacheStats{Hits: 3, Misses: 1}
	assert.InDelta(t, 0.75, s.HitRate(), 0.0001)
}
