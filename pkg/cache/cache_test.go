package cache_test

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandrolain/gomdx/pkg/cache"
)

func TestCacheNew(t *testing.T) {
	c := cache.New[string, int](10)
	if got := c.Len(); got != 0 {
		t.Fatalf("expected empty cache, got %d", got)
	}
	if got := c.Capacity(); got != 10 {
		t.Fatalf("expected capacity 10, got %d", got)
	}
}

func TestCacheDefaultCapacity(t *testing.T) {
	c := cache.New[string, int](0)
	if got := c.Capacity(); got != 256 {
		t.Fatalf("expected default capacity 256, got %d", got)
	}
}

func TestCacheSetGet(t *testing.T) {
	c := cache.New[string, *int](4)
	v := 42
	c.Set("answer", &v)
	got, ok := c.Get("answer")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != &v {
		t.Fatal("expected same pointer")
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := cache.New[string, int](3)
	for i, k := range []string{"a", "b", "c"} {
		c.Set(k, i)
	}
	// Touch "a" so that "b" becomes the least recently used entry.
	c.Get("a")
	c.Set("d", 3)
	if got := c.Len(); got != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", got)
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal(`expected "b" to be evicted`)
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %q to survive", k)
		}
	}
}

func TestCacheInvalidateAndClear(t *testing.T) {
	c := cache.New[string, string](4)
	c.Set("1", "one")
	c.Set("2", "two")
	c.Invalidate("1")
	if _, ok := c.Get("1"); ok {
		t.Fatal("expected miss after Invalidate")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Clear, got %d", c.Len())
	}
}

func TestCacheGetOrCompute(t *testing.T) {
	c := cache.New[string, int](4)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 7, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", compute)
		if err != nil || v != 7 {
			t.Fatalf("GetOrCompute = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected compute to run once, ran %d times", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrCompute("bad", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Fatal("errors must not be cached")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := cache.New[string, int](16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Set(strconv.Itoa((g*100+i)%32), i)
				c.Get(strconv.Itoa(i % 32))
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Fatalf("cache exceeded capacity: %d", c.Len())
	}
}

func TestCacheGetOrComputeSharesConcurrentMisses(t *testing.T) {
	c := cache.New[string, int](4)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (int, error) {
		calls.Add(1)
		<-release
		return 9, nil
	}

	const callers = 8
	var started, wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		started.Add(1)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], _ = c.GetOrCompute("k", compute)
		}(i)
	}
	started.Wait()
	// Let every caller reach the in-flight call before it completes.
	for calls.Load() == 0 {
		runtime.Gosched()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("compute ran %d times, want 1", n)
	}
	for i, v := range results {
		if v != 9 {
			t.Fatalf("caller %d got %d, want 9", i, v)
		}
	}
}

func TestCacheGetOrComputeNilInterface(t *testing.T) {
	c := cache.New[string, fmt.Stringer](2)
	v, err := c.GetOrCompute("none", func() (fmt.Stringer, error) { return nil, nil })
	if v != nil || err != nil {
		t.Fatalf("GetOrCompute = %v, %v", v, err)
	}
}
