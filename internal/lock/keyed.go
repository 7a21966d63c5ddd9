package lock

import "sync"

// Keyed hands out one mutex per key so that callers can serialize work on a
// single machine without blocking the rest of the fleet. Mutexes are kept for
// the life of the process; the key space is the registered machine set, which
// is small and bounded.
type Keyed struct {
	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

// NewKeyed creates an empty keyed lock.
func NewKeyed() *Keyed {
	return &Keyed{mutexes: make(map[string]*sync.Mutex)}
}

func (k *Keyed) mutex(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.mutexes[key]
	if !ok {
		m = &sync.Mutex{}
		k.mutexes[key] = m
	}
	return m
}

// Lock acquires the mutex for key.
func (k *Keyed) Lock(key string) {
	k.mutex(key).Lock()
}

// Unlock releases the mutex for key.
func (k *Keyed) Unlock(key string) {
	k.mutex(key).Unlock()
}
