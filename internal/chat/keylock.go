package chat

import "sync"

// keyedMutex serializes the assign-timestamp-and-append step per
// conversation key, so concurrent senders to the same room or group can
// never produce out-of-order history. Entries are kept for the process
// lifetime; the key space is bounded by the number of active
// conversations.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
