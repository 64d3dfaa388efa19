package property

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCell_SetNotifiesInRegistrationOrder(t *testing.T) {
	c := NewCell("input", float64(0))

	var order []string
	c.Observe(func(v any) { order = append(order, "first") })
	c.Observe(func(v any) { order = append(order, "second") })
	c.Observe(func(v any) {
		order = append(order, "third")
		assert.Equal(t, float64(10), v)
	})

	c.Set(float64(10))

	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, float64(10), c.Get())
}

func TestCell_ValueStoredBeforeNotify(t *testing.T) {
	c := NewCell("v", 1)
	var seen any
	c.Observe(func(any) { seen = c.Get() })
	c.Set(2)
	assert.Equal(t, 2, seen)
}

func TestCell_RemoveExactlyOne(t *testing.T) {
	c := NewCell("v", nil)
	var a, b int
	ha := c.Observe(func(any) { a++ })
	c.Observe(func(any) { b++ })

	assert.True(t, c.Remove(ha))
	assert.False(t, c.Remove(ha))
	assert.False(t, c.HasObserver(ha))

	c.Set(true)
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 1, c.Subscribers())
}

func TestCell_RemoveAll(t *testing.T) {
	c := NewCell("v", nil)
	calls := 0
	c.Observe(func(any) { calls++ })
	c.Observe(func(any) { calls++ })

	c.RemoveAll()
	c.Set("x")

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, c.Subscribers())
}

func TestCell_ObserveWithHandleReplacesInPlace(t *testing.T) {
	c := NewCell("v", nil)
	h := Handle{1}
	var order []string
	c.ObserveWithHandle(h, func(any) { order = append(order, "old") })
	c.Observe(func(any) { order = append(order, "other") })
	c.ObserveWithHandle(h, func(any) { order = append(order, "new") })

	c.Set(1)

	assert.Equal(t, []string{"new", "other"}, order)
	assert.Equal(t, 2, c.Subscribers())
}

func TestCell_SetNoPropagateAndTick(t *testing.T) {
	c := NewCell("v", 0)
	var got []any
	c.Observe(func(v any) { got = append(got, v) })

	c.SetNoPropagate(5)
	assert.Empty(t, got)
	assert.Equal(t, 5, c.Get())

	c.Tick()
	assert.Equal(t, []any{5}, got)
}

func TestCell_UnsubscribeDuringNotify(t *testing.T) {
	c := NewCell("v", 0)
	calls := 0
	var h Handle
	h = c.Observe(func(any) {
		calls++
		c.Remove(h)
	})
	c.Observe(func(any) { calls++ })

	c.Set(1)
	c.Set(2)

	assert.Equal(t, 3, calls)
}

func TestCell_CycleIsTruncatedAtMaxDepth(t *testing.T) {
	var truncated []any
	opts := func(o *Options) {
		o.MaxDepth = 4
		o.OnTruncate = func(name string, v any) { truncated = append(truncated, v) }
	}
	a := NewCell("a", 0, opts)
	b := NewCell("b", 0, opts)

	// a -> b -> a, each hop increments
	a.Observe(func(v any) { b.Set(v.(int) + 1) })
	b.Observe(func(v any) { a.Set(v.(int) + 1) })

	a.Set(1)

	assert.Len(t, truncated, 1)
	// a notified at values 1,3,5,7; the fifth write (9) is stored but not propagated.
	assert.Equal(t, 9, a.Get())
	assert.Equal(t, 8, b.Get())
	assert.Equal(t, 9, truncated[0])
}

func TestCell_NegativeMaxDepthDisablesLimit(t *testing.T) {
	c := NewCell("c", 0, func(o *Options) { o.MaxDepth = -1 })
	c.Observe(func(v any) {
		if n := v.(int); n < 1000 {
			c.Set(n + 1)
		}
	})
	c.Set(0)
	assert.Equal(t, 1000, c.Get())
}

func TestCell_ConcurrentObserveAndSet(t *testing.T) {
	c := NewCell("v", 0)
	var mu sync.Mutex
	total := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := c.Observe(func(any) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			c.Set(1)
			c.Remove(h)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, c.Subscribers())
	assert.Positive(t, total)
}
