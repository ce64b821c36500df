// Package dedupe tracks upload idempotency keys.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10_000

// Deduper maps idempotency keys to the id of the work they started.
type Deduper interface {
	// Claim atomically records key -> value unless key is already known.
	// It returns the stored value and whether key was already present.
	Claim(ctx context.Context, key, value string) (string, bool)

	// Release forgets key so the request can be retried, e.g. after the
	// work it started was rejected.
	Release(ctx context.Context, key string)

	Size() int64
}

// node is an entry of the insertion-ordered list.
type node struct {
	key        string
	value      string
	prev, next *node
}

func (n *node) reset() {
	*n = node{}
}

// inMemoryDeduper keeps at most maxSize keys and evicts the oldest first.
// maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu         sync.Mutex
	seen       map[string]*node
	head, tail *node // head is the oldest entry
	maxSize    int
	size       atomic.Int64
	nodePool   sync.Pool
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*node),
		nodePool: sync.Pool{
			New: func() any { return &node{} },
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key, value string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[key]; ok {
		return n.value, true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.unlink(d.head)
	}

	n := d.nodePool.Get().(*node)
	n.key, n.value = key, value
	n.prev = d.tail
	if d.tail != nil {
		d.tail.next = n
	} else {
		d.head = n
	}
	d.tail = n
	d.seen[key] = n
	d.size.Add(1)
	return value, false
}

func (d *inMemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.seen[key]; ok {
		d.unlink(n)
	}
}

// unlink removes n from the list and map. Must be called with d.mu held.
func (d *inMemoryDeduper) unlink(n *node) {
	if n == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	delete(d.seen, n.key)
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
