package hunt

import "sync"

// KeyedMutex serializes operations sharing a key while distinct keys proceed
// in parallel. Progression uses team IDs as keys, conversations use thread
// keys. Mutexes are kept for the life of the process; the key space is
// bounded by teams and threads, which is small.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (m *KeyedMutex) Lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}
