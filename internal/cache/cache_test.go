package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New[string](8, 5*time.Minute)

	c.Set("page:lines", "<html>")
	if v, ok := c.Get("page:lines"); !ok || v != "<html>" {
		t.Fatalf("got %q, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("unexpected hit")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Items != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCacheExpiration(t *testing.T) {
	c := New[int](8, 50*time.Millisecond)

	c.Set("short", 1)
	if _, ok := c.Get("short"); !ok {
		t.Fatal("expected hit before expiry")
	}
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expected expired item to miss")
	}
	if c.Len() != 0 {
		t.Errorf("len = %d after expiry", c.Len())
	}
}

func TestCacheNoTTL(t *testing.T) {
	c := New[int](8, 0)
	c.Set("forever", 2)
	time.Sleep(20 * time.Millisecond)
	if v, ok := c.Get("forever"); !ok || v != 2 {
		t.Errorf("got %d, %v", v, ok)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s evicted", k)
		}
	}
}

func TestCacheDeletePurge(t *testing.T) {
	c := New[string](0, time.Minute)
	c.Set("x", "1")
	c.Set("y", "2")

	c.Delete("x")
	if _, ok := c.Get("x"); ok {
		t.Error("deleted key still present")
	}
	c.Purge()
	if c.Len() != 0 {
		t.Error("purge left items")
	}
}

func TestCacheConcurrency(t *testing.T) {
	c := New[int](64, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(strconv.Itoa(n), j)
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get(strconv.Itoa(n))
			}
		}(i)
	}
	wg.Wait()
}

func TestRegistry(t *testing.T) {
	pages := New[string](8, time.Minute)
	pages.Set("a", "b")

	r := NewRegistry()
	r.Register("pages", pages)
	all := r.All()
	if all["pages"].Items != 1 {
		t.Errorf("registry stats = %+v", all)
	}
}

func BenchmarkCacheGet(b *testing.B) {
	c := New[string](8, time.Minute)
	c.Set("key", "value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("key")
	}
}
