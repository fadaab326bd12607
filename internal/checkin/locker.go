package checkin

import "sync"

// Locker serializes check-ins that share a search key
type Locker interface {
	Lock(key string) (unlock func())
}

// NoopLocker does not serialize anything. Two concurrent check-ins for an
// unknown identifier can both create a record.
type NoopLocker struct{}

func (NoopLocker) Lock(string) func() { return func() {} }

// KeyedLocker serializes check-ins per key within this process only.
// Separate processes sharing a store can still race.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedLocker creates an empty KeyedLocker
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the function releasing it
func (k *KeyedLocker) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
