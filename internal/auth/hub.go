package auth

import (
	"slices"
	"sync"
)

// Hub fans auth events out to registered listeners. The zero value is ready to use.
type Hub struct {
	mu    sync.Mutex
	next  int
	funcs map[int]func(Event)
}

// Subscribe registers fn and returns a func that removes it. Calling the returned func twice is safe.
func (h *Hub) Subscribe(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.funcs == nil {
		h.funcs = make(map[int]func(Event))
	}
	id := h.next
	h.next++
	h.funcs[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.funcs, id)
		h.mu.Unlock()
	}
}

// Publish delivers e to every listener in registration order. Listeners run outside the lock
// so they may subscribe or unsubscribe.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.funcs))
	for id := range h.funcs {
		ids = append(ids, id)
	}
	funcs := make([]func(Event), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		funcs = append(funcs, h.funcs[id])
	}
	h.mu.Unlock()
	for _, fn := range funcs {
		fn(e)
	}
}
