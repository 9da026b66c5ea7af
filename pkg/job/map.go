package job

import "sync"

type AtomicMap[U comparable, V any] struct {
	mu    sync.RWMutex
	value map[U]V
}

func NewAtomicMap[U comparable, V any]() *AtomicMap[U, V] {
	return &AtomicMap[U, V]{
		value: make(map[U]V),
	}
}

func (a *AtomicMap[U, V]) Range(fn func(key U, val V) bool) {
	a.mu.RLock()
	for k, v := range a.value {
		if !fn(k, v) {
			break
		}
	}
	a.mu.RUnlock()
}

// Swap stores value and returns the previous value, if any.
func (a *AtomicMap[U, V]) Swap(key U, value V) (old V, loaded bool) {
	a.mu.Lock()
	old, loaded = a.value[key]
	a.value[key] = value
	a.mu.Unlock()

	return
}

func (a *AtomicMap[U, V]) LoadAndDelete(key U) (val V, loaded bool) {
	a.mu.Lock()
	val, loaded = a.value[key]
	delete(a.value, key)
	a.mu.Unlock()

	return
}

func (a *AtomicMap[U, V]) Get(key U) (val V, found bool) {
	a.mu.RLock()
	val, found = a.value[key]
	a.mu.RUnlock()

	return
}

func (a *AtomicMap[U, V]) Len() int {
	a.mu.RLock()
	n := len(a.value)
	a.mu.RUnlock()

	return n
}
