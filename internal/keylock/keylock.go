// Package keylock provides per-key mutual exclusion. The workflow engine
// funnels every operation on a given form id through one sequential path so
// that last-write-wins persistence cannot lose a concurrent update.
package keylock

import "sync"

// KeyLock hands out one mutex per key. Locks are kept for the service's
// lifetime; the key space (active form ids) is small and bounded.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns the
// matching unlock function.
func (k *KeyLock) Lock(key string) (unlock func()) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}
