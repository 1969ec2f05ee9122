package shift

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParentLock_SerializesOverlappingSets(t *testing.T) {
	locks := newParentLock()

	unlock := locks.lock([]int64{1, 2})

	acquired := make(chan struct{})
	go func() {
		u := locks.lock([]int64{2, 3})
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("overlapping lock acquired while still held")
	default:
	}

	unlock()
	<-acquired
}

func TestParentLock_DisjointSetsDoNotBlock(t *testing.T) {
	locks := newParentLock()

	u1 := locks.lock([]int64{1, 2})
	u2 := locks.lock([]int64{3, 4})
	u1()
	u2()
}

func TestParentLock_DuplicateIDsDoNotDeadlock(t *testing.T) {
	locks := newParentLock()
	unlock := locks.lock([]int64{5, 5, 5})
	unlock()
}

func TestParentLock_ConcurrentCyclesComplete(t *testing.T) {
	locks := newParentLock()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock([]int64{7, 8, 9})
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestParentLock_EntriesAreReclaimed(t *testing.T) {
	locks := newParentLock()
	unlock := locks.lock([]int64{1, 2, 3})
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.entries)
}
