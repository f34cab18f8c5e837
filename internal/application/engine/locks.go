package engine

import "sync"

// contractLocks guarantees at most one lifecycle per contract. A lifecycle
// acquires the lock before its position is created and holds it until the
// position reaches a terminal state.
type contractLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newContractLocks() *contractLocks {
	return &contractLocks{held: make(map[string]struct{})}
}

// TryAcquire takes the lock for the contract, reporting false if another
// lifecycle already holds it.
func (l *contractLocks) TryAcquire(contractID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[contractID]; taken {
		return false
	}
	l.held[contractID] = struct{}{}
	return true
}

// Release frees the lock. Releasing an unheld lock is a no-op.
func (l *contractLocks) Release(contractID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, contractID)
}

// Held reports whether any lifecycle currently owns the contract.
func (l *contractLocks) Held(contractID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, taken := l.held[contractID]
	return taken
}
