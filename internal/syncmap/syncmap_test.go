package syncmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_Basic(t *testing.T) {
	m := New[string, int](4)

	_, ok := m.Load("a")
	assert.False(t, ok)

	m.Store("a", 1)
	v, ok := m.Load("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	actual, loaded := m.LoadOrStore("a", 2)
	assert.True(t, loaded)
	assert.Equal(t, 1, actual)

	actual, loaded = m.LoadOrStore("b", 2)
	assert.False(t, loaded)
	assert.Equal(t, 2, actual)
	assert.Equal(t, 2, m.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, m.Keys())
	assert.ElementsMatch(t, []int{1, 2}, m.Values())

	v, ok = m.LoadAndDelete("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.False(t, m.Has("a"))

	assert.False(t, m.CompareAndDelete("b", func(v int) bool { return v == 3 }))
	assert.True(t, m.CompareAndDelete("b", func(v int) bool { return v == 2 }))
	assert.Equal(t, 0, m.Len())
}

func TestMap_Compute(t *testing.T) {
	m := New[string, []int](0)

	m.Compute("k", func(old []int, loaded bool) ([]int, bool) {
		assert.False(t, loaded)
		return append(old, 1), true
	})
	m.Compute("k", func(old []int, loaded bool) ([]int, bool) {
		assert.True(t, loaded)
		return append(old, 2), true
	})
	v, _ := m.Load("k")
	assert.Equal(t, []int{1, 2}, v)

	m.Compute("k", func([]int, bool) ([]int, bool) { return nil, false })
	assert.False(t, m.Has("k"))
}

func TestMap_RangeAllowsMutation(t *testing.T) {
	m := New[int, int](2)
	for i := 0; i < 10; i++ {
		m.Store(i, i)
	}
	m.Range(func(k, _ int) bool {
		m.Delete(k)
		return true
	})
	assert.Equal(t, 0, m.Len())
}

func TestMap_ConcurrentAccess(t *testing.T) {
	m := New[int, int](8)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Store(i, i*i)
			_, _ = m.Load(i)
			m.Compute(i%5, func(old int, _ bool) (int, bool) { return old + 1, true })
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, m.Len())
}
