package gateway

import "sync"

// mirror is a mutex-guarded local copy of one collection.
type mirror[T any] struct {
	mu    sync.RWMutex
	items []T
}

// snapshot returns a copy callers may keep.
func (m *mirror[T]) snapshot() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

func (m *mirror[T]) replace(items []T) {
	if items == nil {
		items = []T{}
	}
	m.mu.Lock()
	m.items = items
	m.mu.Unlock()
}

func (m *mirror[T]) prepend(v T) {
	m.mu.Lock()
	m.items = append([]T{v}, m.items...)
	m.mu.Unlock()
}

func (m *mirror[T]) append(v T) {
	m.mu.Lock()
	m.items = append(m.items, v)
	m.mu.Unlock()
}

// remove drops every item matching match.
func (m *mirror[T]) remove(match func(T) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0:0]
	for _, it := range m.items {
		if !match(it) {
			kept = append(kept, it)
		}
	}
	m.items = kept
}

// update applies fn to every item matching match and reports how many matched.
func (m *mirror[T]) update(match func(T) bool, fn func(*T)) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.items {
		if match(m.items[i]) {
			fn(&m.items[i])
			n++
		}
	}
	return n
}

// find returns the first item matching match.
func (m *mirror[T]) find(match func(T) bool) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}
