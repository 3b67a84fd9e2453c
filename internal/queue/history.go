package queue

import (
	"container/list"
	"sync"
)

// history is an LRU of recent handles keyed by job ID.
type history struct {
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

func newHistory(capacity int) *history {
	if capacity < 1 {
		capacity = 1
	}
	return &history{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// get returns the handle for id and marks it recently used.
func (c *history) get(id string) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[id]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*Handle), true
	}
	return nil, false
}

// add records h, evicting the least recently used handle when full.
func (c *history) add(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[h.id]; ok {
		elem.Value = h
		c.lru.MoveToFront(elem)
		return
	}
	c.entries[h.id] = c.lru.PushFront(h)

	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*Handle).id)
	}
}

func (c *history) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
