package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

func result(prompt string) *template.CompiledResult {
	return &template.CompiledResult{
		Prompt:   prompt,
		Metadata: template.CompileMetadata{TemplateID: "tpl"},
	}
}

func TestCache_SetGet(t *testing.T) {
	c := New(Options{})

	c.Set("k1", result("a rustic portrait"), 0)

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "a rustic portrait", got.Prompt)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(Options{})

	c.Set("k1", result("x"), 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.GetStats().Entries)
}

func TestCache_PerEntryTTLOverridesDefault(t *testing.T) {
	c := New(Options{TTL: 5 * time.Millisecond})

	c.Set("short", result("x"), 0)
	c.Set("long", result("y"), time.Minute)
	time.Sleep(15 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
	_, ok = c.Get("long")
	assert.True(t, ok)
}

func TestCache_LRUEviction(t *testing.T) {
	c := New(Options{MaxEntries: 2})

	c.Set("a", result("a"), 0)
	time.Sleep(2 * time.Millisecond)
	c.Set("b", result("b"), 0)
	time.Sleep(2 * time.Millisecond)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)
	time.Sleep(2 * time.Millisecond)

	c.Set("c", result("c"), 0)

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.GetStats().Evictions)
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	c := New(Options{MaxEntries: 2})

	c.Set("a", result("a"), 0)
	c.Set("b", result("b"), 0)
	c.Set("a", result("a2"), 0)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a2", got.Prompt)
	_, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, int64(0), c.GetStats().Evictions)
}

func TestCache_HasDoesNotTouchStats(t *testing.T) {
	c := New(Options{})
	c.Set("k", result("x"), 0)

	assert.True(t, c.Has("k"))
	assert.False(t, c.Has("missing"))

	stats := c.GetStats()
	assert.Equal(t, int64(0), stats.Requests)
	assert.Equal(t, int64(0), stats.Hits)
}

func TestCache_Delete(t *testing.T) {
	c := New(Options{})
	c.Set("k", result("x"), 0)

	assert.True(t, c.Delete("k"))
	assert.False(t, c.Delete("k"))
}

func TestCache_Invalidate(t *testing.T) {
	newFilled := func() *Cache {
		c := New(Options{})
		c.Set("tpl-couple-v1", result("a"), 0)
		c.Set("tpl-couple-v2", result("b"), 0)
		c.Set("tpl-family-v1", result("c"), 0)
		return c
	}

	t.Run("substring", func(t *testing.T) {
		c := newFilled()
		assert.Equal(t, 2, c.Invalidate("couple"))
		assert.Equal(t, 1, c.GetStats().Entries)
	})

	t.Run("regex", func(t *testing.T) {
		c := newFilled()
		assert.Equal(t, 2, c.Invalidate(`v1$`))
		assert.True(t, c.Has("tpl-couple-v2"))
	})

	t.Run("empty pattern clears", func(t *testing.T) {
		c := newFilled()
		assert.Equal(t, 3, c.Invalidate(""))
		assert.Equal(t, 0, c.GetStats().Entries)
	})

	t.Run("no match", func(t *testing.T) {
		c := newFilled()
		assert.Equal(t, 0, c.Invalidate("wedding"))
		assert.Equal(t, 3, c.GetStats().Entries)
	})
}

func TestCache_Stats(t *testing.T) {
	c := New(Options{})
	c.Set("k", result("hello"), 0)

	c.Get("k")
	c.Get("k")
	c.Get("missing")

	stats := c.GetStats()
	assert.Equal(t, int64(3), stats.Requests)
	assert.Equal(t, int64(2), stats.Hits)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
	assert.Greater(t, stats.Bytes, 0)
}

func TestCache_SweepLifecycle(t *testing.T) {
	c := New(Options{SweepInterval: 10 * time.Millisecond})
	c.Set("k", result("x"), 5*time.Millisecond)

	c.Start()
	defer c.Stop()

	assert.Eventually(t, func() bool {
		return c.GetStats().Entries == 0
	}, time.Second, 5*time.Millisecond)

	// Stop twice must not panic.
	c.Stop()
	c.Stop()
}

func TestCache_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c := New(Options{})
	c.Set("keep", result("kept prompt"), time.Minute)
	c.Set("gone", result("expired prompt"), 5*time.Millisecond)
	time.Sleep(15 * time.Millisecond)

	require.NoError(t, c.Save(path))

	warm := New(Options{})
	require.NoError(t, warm.Load(path))

	got, ok := warm.Get("keep")
	require.True(t, ok)
	assert.Equal(t, "kept prompt", got.Prompt)
	_, ok = warm.Get("gone")
	assert.False(t, ok)
}

func TestCache_LoadMissingFile(t *testing.T) {
	c := New(Options{})
	assert.Error(t, c.Load(filepath.Join(t.TempDir(), "nope.json")))
}
