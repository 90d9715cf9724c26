package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstate-labs/predengine/clock"
)

func TestTTLCacheSetGetRoundtrip(t *testing.T) {
	c := NewTTLCache(0)
	c.Set("a", 1, 0)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTLCache(0)
	c.Set("a", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTLCacheEvictsOldestWhenFull(t *testing.T) {
	c := NewTTLCache(2)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Get("a") // touch a, making b the least recently used
	c.Set("c", 3, 0)

	_, hasA := c.Get("a")
	_, hasB := c.Get("b")
	_, hasC := c.Get("c")
	assert.True(t, hasA)
	assert.False(t, hasB)
	assert.True(t, hasC)
}

func TestTTLCacheStats(t *testing.T) {
	c := NewTTLCache(0)
	c.Set("a", 1, 0)
	c.Get("a")
	c.Get("missing")
	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate())
}

func TestCacheGetSetRoundtrip(t *testing.T) {
	clk := clock.NewFake(0)
	c := New(clk, 0)
	c.Set("a", "v", 0)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestCacheExpiresByFakeClock(t *testing.T) {
	clk := clock.NewFake(0)
	c := New(clk, 0)
	c.Set("a", "v", 1000)
	clk.Advance(2 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCacheGetOrFetchCachesSuccess(t *testing.T) {
	clk := clock.NewFake(0)
	c := New(clk, 0)
	calls := 0
	fetch := func() (any, error) {
		calls++
		return "fetched", nil
	}

	v, err := c.GetOrFetch("a", 1000, fetch)
	require.NoError(t, err)
	assert.Equal(t, "fetched", v)

	v2, err := c.GetOrFetch("a", 1000, fetch)
	require.NoError(t, err)
	assert.Equal(t, "fetched", v2)
	assert.Equal(t, 1, calls, "second call should hit cache, not fetch again")
}

func TestCacheGetOrFetchDoesNotCacheError(t *testing.T) {
	clk := clock.NewFake(0)
	c := New(clk, 0)
	wantErr := errors.New("boom")
	calls := 0
	fetch := func() (any, error) {
		calls++
		return nil, wantErr
	}

	_, err := c.GetOrFetch("a", 1000, fetch)
	assert.Equal(t, wantErr, err)

	_, err = c.GetOrFetch("a", 1000, fetch)
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 2, calls, "a failed fetch must not be cached")
}

func TestCacheGetOrFetchCollapsesConcurrentCallers(t *testing.T) {
	clk := clock.NewFake(0)
	c := New(clk, 0)

	var calls int
	var mu sync.Mutex
	release := make(chan struct{})
	fetch := func() (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := c.GetOrFetch("shared", 1000, fetch)
			results[i] = v
		}(i)
	}
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "concurrent callers for the same key must collapse to one fetch")
	for _, v := range results {
		assert.Equal(t, "v", v)
	}
}

func TestCacheInvalidate(t *testing.T) {
	clk := clock.NewFake(0)
	c := New(clk, 0)
	c.Set("a", "v", 0)
	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}
