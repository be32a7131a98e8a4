package godeco

import (
	"fmt"
	"reflect"

	"github.com/a-peyrard/godeco/slices"
)

// resolution is the Resolver handed to constructors and factories: it carries
// the scope and the cycle tracker of the ongoing resolution.
type resolution struct {
	container *Container
	scope     *Scope // nil when resolving against the root container
	tracker   *Tracker
}

// Resolve attempts to resolve a component of type T.
//
//	sender, err := godeco.Resolve[mail.Sender](scope)
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	lookFor := TypeOf[T]()

	val, err := r.Resolve(lookFor)
	if err != nil {
		return zero, fmt.Errorf("failed to resolve %s:\n\t%w", lookFor, err)
	}
	return unReflect[T](val)
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r Resolver) T {
	val, err := Resolve[T](r)
	must(err)
	return val
}

// ResolveAll attempts to resolve one component per registration of type T.
func ResolveAll[T any](r Resolver) ([]T, error) {
	lookFor := TypeOf[T]()

	vals, err := r.ResolveAll(lookFor)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve all %s:\n\t%w", lookFor, err)
	}
	return slices.UnsafeMap(vals, unReflect[T])
}

func (r *resolution) Resolve(typ reflect.Type) (reflect.Value, error) {
	if err := r.checkOpen(); err != nil {
		return reflect.Value{}, err
	}

	regs := r.container.byCapability[typ]
	if len(regs) == 0 {
		if typ == ResolverType {
			return reflect.ValueOf(Resolver(r)), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrServiceNotRegistered, typ)
	}

	// the last registration wins
	return r.instantiate(regs[len(regs)-1])
}

func (r *resolution) ResolveAll(typ reflect.Type) ([]reflect.Value, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	return slices.UnsafeMap(r.container.byCapability[typ], r.instantiate)
}

func (r *resolution) Construct(ctor *Constructor, supplied ...reflect.Value) (reflect.Value, error) {
	if ctor == nil {
		return reflect.Value{}, fmt.Errorf("%w: constructor cannot be nil", ErrInvalidConstructor)
	}
	if len(supplied) > len(ctor.in) {
		return reflect.Value{}, fmt.Errorf(
			"%w: %s takes %d parameters, %d supplied", ErrInvalidConstructor, ctor, len(ctor.in), len(supplied),
		)
	}

	args := make([]reflect.Value, len(ctor.in))
	for i, paramTyp := range ctor.in {
		if i < len(supplied) {
			if !supplied[i].IsValid() || !supplied[i].Type().AssignableTo(paramTyp) {
				return reflect.Value{}, fmt.Errorf(
					"%w: value supplied for parameter %d of %s is not assignable to %s", ErrInvalidConstructor, i, ctor, paramTyp,
				)
			}
			args[i] = supplied[i]
			continue
		}

		dep, err := r.Resolve(paramTyp)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("failed to resolve dependency %s of %s:\n\t%w", paramTyp, ctor, err)
		}
		args[i] = dep
	}

	return ctor.call(args)
}

func (r *resolution) instantiate(reg *registration) (reflect.Value, error) {
	d := reg.descriptor
	if instance, found := d.Instance(); found {
		return instance, nil
	}

	if err := r.tracker.Push(reg.slot); err != nil {
		return reflect.Value{}, err
	}
	defer r.tracker.Pop()

	switch d.lifetime {
	case Singleton:
		// singletons only see the root container, so they never capture a scoped instance
		rooted := &resolution{container: r.container, tracker: r.tracker}
		return rooted.cached(r.container.singletons, reg)
	case Scoped:
		if r.scope == nil {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrScopedOnRoot, d)
		}
		return r.cached(r.scope.store, reg)
	case Transient:
		return r.build(reg)
	default:
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrInvalidLifetime, d)
	}
}

func (r *resolution) cached(store *Store, reg *registration) (reflect.Value, error) {
	if comp, found := store.Get(reg.slot.index); found {
		return comp, nil
	}

	lock := store.buildLock(reg.slot.index)
	lock.Lock()
	defer lock.Unlock()

	// now that we have the lock, check if the component was built while we were waiting
	if comp, found := store.Get(reg.slot.index); found {
		return comp, nil
	}

	comp, err := r.build(reg)
	if err != nil {
		return reflect.Value{}, err
	}
	store.Put(reg.slot.index, comp)

	return comp, nil
}

func (r *resolution) build(reg *registration) (comp reflect.Value, err error) {
	d := reg.descriptor
	switch {
	case d.ctor != nil:
		comp, err = r.Construct(d.ctor)
	case d.factory != nil:
		comp, err = d.factory.produce(r)
	default:
		err = fmt.Errorf("%w: %s", ErrNoSource, d.capability)
	}
	if err != nil {
		return reflect.Value{}, fmt.Errorf("failed to build %s:\n\t%w", d, err)
	}

	r.container.logger.Debug().
		Stringer("capability", d.capability).
		Stringer("lifetime", d.lifetime).
		Str("source", d.source()).
		Msg("component built")

	return comp, nil
}

func (r *resolution) checkOpen() error {
	if r.container.closed.Load() {
		return fmt.Errorf("%w: container", ErrScopeClosed)
	}
	if r.scope != nil && r.scope.closed.Load() {
		return ErrScopeClosed
	}
	return nil
}
