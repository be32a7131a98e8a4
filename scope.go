package godeco

import (
	"reflect"
	"sync/atomic"
)

// Scope is a lifetime boundary for scoped registrations, typically one request or
// one unit of work. Singletons still come from the root container.
type Scope struct {
	root   *Container
	store  *Store
	closed atomic.Bool
}

func (s *Scope) Resolve(typ reflect.Type) (reflect.Value, error) {
	return s.root.newResolution(s).Resolve(typ)
}

func (s *Scope) ResolveAll(typ reflect.Type) ([]reflect.Value, error) {
	return s.root.newResolution(s).ResolveAll(typ)
}

func (s *Scope) Construct(ctor *Constructor, supplied ...reflect.Value) (reflect.Value, error) {
	return s.root.newResolution(s).Construct(ctor, supplied...)
}

// Close closes the scoped instances that implement Closeable, in reverse creation
// order.
func (s *Scope) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrScopeClosed
	}
	return s.store.Close()
}
