package godeco

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Store caches the instances built for one lifetime boundary (the root container
// for singletons, a scope for scoped registrations).
type Store struct {
	mu         sync.RWMutex
	components map[int]reflect.Value
	order      []int
	builds     map[int]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		components: make(map[int]reflect.Value),
		builds:     make(map[int]*sync.Mutex),
	}
}

func (s *Store) Put(index int, comp reflect.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.components[index]; !exists {
		s.order = append(s.order, index)
	}
	s.components[index] = comp
}

func (s *Store) Get(index int) (comp reflect.Value, found bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comp, found = s.components[index]
	return comp, found
}

// buildLock returns the lock serializing the builds of the slot index. The lock
// lives as long as the store: after a failed build, the next waiter builds while
// newcomers keep queuing on the same lock.
func (s *Store) buildLock(index int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.builds[index]
	if !exists {
		lock = &sync.Mutex{}
		s.builds[index] = lock
	}
	return lock
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.components)
}

// Close closes every stored Closeable, the most recently built first, and empties
// the store.
func (s *Store) Close() error {
	s.mu.Lock()
	order, components := s.order, s.components
	s.order, s.components = nil, make(map[int]reflect.Value)
	s.mu.Unlock()

	closeErrors := make([]error, 0)
	for i := len(order) - 1; i >= 0; i-- {
		comp := components[order[i]]
		if !comp.IsValid() || !comp.CanInterface() {
			continue
		}
		closeable, ok := comp.Interface().(Closeable)
		if !ok {
			continue
		}
		if err := closeable.Close(); err != nil {
			closeErrors = append(
				closeErrors,
				fmt.Errorf("failed to close component #%d (%s):\n\t%w", order[i], comp.Type(), err),
			)
		}
	}

	return errors.Join(closeErrors...)
}
