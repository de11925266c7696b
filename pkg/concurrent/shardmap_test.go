package concurrent

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	m := NewDroneMap[int]()
	m.Set("a", 1)
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestSetIfAbsent(t *testing.T) {
	m := NewDroneMap[int]()
	assert.True(t, m.SetIfAbsent("a", 1))
	assert.False(t, m.SetIfAbsent("a", 2))
	v, _ := m.Get("a")
	assert.Equal(t, 1, v)
}

func TestDeleteAndLen(t *testing.T) {
	m := NewDroneMap[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	assert.Equal(t, 2, m.Len())
	m.Delete("a")
	assert.Equal(t, 1, m.Len())
}

func TestConcurrentAccess(t *testing.T) {
	m := NewDroneMap[int]()
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Set("drone-"+strconv.Itoa(i%50), i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, m.Len())
}

func TestUpdate(t *testing.T) {
	m := NewDroneMap[int]()
	m.Set("a", 1)
	ok := m.Update("a", func(v int) int { return v + 1 })
	assert.True(t, ok)
	v, _ := m.Get("a")
	assert.Equal(t, 2, v)

	assert.False(t, m.Update("missing", func(v int) int { return v }))
}
