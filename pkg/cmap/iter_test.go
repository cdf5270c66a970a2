package cmap

import (
	"sort"
	"sync"
	"testing"
)

func TestRange(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	sum := 0
	m.Range(func(_ string, v int) bool {
		sum += v
		return true
	})
	if sum != 6 {
		t.Errorf("sum = %d, want 6", sum)
	}

	visited := 0
	m.Range(func(string, int) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("early stop visited %d, want 1", visited)
	}
}

func TestKeysValues(t *testing.T) {
	m := New[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)

	keys := m.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "x" || keys[1] != "y" {
		t.Errorf("Keys() = %v", keys)
	}

	values := m.Values()
	sort.Ints(values)
	if len(values) != 2 || values[0] != 1 || values[1] != 2 {
		t.Errorf("Values() = %v", values)
	}
}

func TestSetIfAbsent(t *testing.T) {
	m := New[string, int]()

	if !m.SetIfAbsent("k", 1) {
		t.Error("first SetIfAbsent should succeed")
	}
	if m.SetIfAbsent("k", 2) {
		t.Error("second SetIfAbsent should fail")
	}
	if v, _ := m.Get("k"); v != 1 {
		t.Errorf("Get(k) = %d, want 1", v)
	}
}

func TestPop(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 7)

	v, ok := m.Pop("k")
	if !ok || v != 7 {
		t.Errorf("Pop(k) = (%d, %v), want (7, true)", v, ok)
	}
	if _, ok := m.Pop("k"); ok {
		t.Error("second Pop should report absent")
	}
}

func TestConcurrentRange(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 1000; i++ {
		m.Set(i, i)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Range(func(int, int) bool { return true })
		}()
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Set(1000+base*100+j, j)
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != 2000 {
		t.Errorf("Count() = %d, want 2000", m.Count())
	}
}
