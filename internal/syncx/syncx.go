// Package syncx wraps lock acquisition in function scopes so a critical section can never leak its lock, even when it panics.
package syncx

import "sync"

// RLocker is the read side of a [sync.RWMutex].
type RLocker interface {
	RLock()
	RUnlock()
}

// Write runs fn while holding mux.
func Write(mux sync.Locker, fn func()) {
	mux.Lock()
	defer mux.Unlock()
	fn()
}

// WriteT runs fn while holding mux and returns its result.
func WriteT[T any](mux sync.Locker, fn func() T) T {
	mux.Lock()
	defer mux.Unlock()
	return fn()
}

// Read runs fn while holding the read side of mux.
func Read(mux RLocker, fn func()) {
	mux.RLock()
	defer mux.RUnlock()
	fn()
}

// ReadT runs fn while holding the read side of mux and returns its result.
func ReadT[T any](mux RLocker, fn func() T) T {
	mux.RLock()
	defer mux.RUnlock()
	return fn()
}
