package shift

import (
	"sort"
	"sync"
)

// parentLock serializes shift cycles over overlapping parent-id sets within
// this process. The underlying storage transaction protects row integrity,
// but two interleaved check/apply cycles over the same episode could still
// plan against stale markers; holding the parents for the whole cycle rules
// that out. Locks are acquired in ascending id order so concurrent requests
// cannot deadlock.
type parentLock struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newParentLock() *parentLock {
	return &parentLock{entries: make(map[int64]*lockEntry)}
}

func (p *parentLock) lock(parentIDs []int64) (unlock func()) {
	ids := make([]int64, 0, len(parentIDs))
	seen := make(map[int64]bool, len(parentIDs))
	for _, id := range parentIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	held := make([]*lockEntry, 0, len(ids))
	for _, id := range ids {
		p.mu.Lock()
		e, ok := p.entries[id]
		if !ok {
			e = &lockEntry{}
			p.entries[id] = e
		}
		e.refs++
		p.mu.Unlock()
		e.mu.Lock()
		held = append(held, e)
	}

	idsCopy := ids
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		p.mu.Lock()
		for _, id := range idsCopy {
			if e, ok := p.entries[id]; ok {
				e.refs--
				if e.refs == 0 {
					delete(p.entries, id)
				}
			}
		}
		p.mu.Unlock()
	}
}
