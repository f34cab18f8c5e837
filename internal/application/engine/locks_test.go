package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContractLocksExclusive(t *testing.T) {
	locks := newContractLocks()

	assert.True(t, locks.TryAcquire("0xa"))
	assert.False(t, locks.TryAcquire("0xa"))
	assert.True(t, locks.TryAcquire("0xb"))

	locks.Release("0xa")
	assert.False(t, locks.Held("0xa"))
	assert.True(t, locks.TryAcquire("0xa"))
	assert.True(t, locks.Held("0xb"))
}

func TestContractLocksConcurrentSingleWinner(t *testing.T) {
	locks := newContractLocks()

	const goroutines = 50
	var wg sync.WaitGroup
	won := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if locks.TryAcquire("0xcontested") {
				won <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(won)

	assert.Len(t, won, 1)
}
