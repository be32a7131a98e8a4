package godeco

import "errors"

var (
	// ErrNilCollection is returned when a registration targets a nil collection.
	ErrNilCollection = errors.New("collection cannot be nil")

	// ErrNilConfigure is returned when Decorate is called without a callback
	// configuring the decoratee.
	ErrNilConfigure = errors.New("configure callback cannot be nil")

	// ErrInvalidConstructor is returned when a constructor is not a function
	// returning (T) or (T, error).
	ErrInvalidConstructor = errors.New("invalid constructor")

	// ErrInvalidDecorator is returned when a decorator constructor does not take
	// the decorated capability as its first parameter, or does not return an
	// implementation of it.
	ErrInvalidDecorator = errors.New("invalid decorator")

	// ErrInvalidLifetime is returned for a lifetime other than Singleton, Scoped
	// or Transient.
	ErrInvalidLifetime = errors.New("invalid lifetime")

	// ErrNilInstance is returned when a nil instance is registered.
	ErrNilInstance = errors.New("registered instance cannot be nil")

	// ErrDecorateeNotFound is returned when the nested configuration of a
	// decorator does not register the decorated capability.
	ErrDecorateeNotFound = errors.New("decoratee registration not found")

	// ErrMultipleDecoratees is returned when the nested configuration of a
	// decorator registers the decorated capability more than once.
	ErrMultipleDecoratees = errors.New("multiple decoratee registrations")

	// ErrDecorateeConflict is returned when the implementation type of a
	// decoratee is already registered in the target collection.
	ErrDecorateeConflict = errors.New("decoratee implementation already registered")

	// ErrNoSource is returned when a registration has neither a constructor, an
	// instance nor a factory.
	ErrNoSource = errors.New("registration has no source")

	// ErrNotConcreteType is returned when the implementation type of a
	// registration cannot be told apart from the capability it implements.
	ErrNotConcreteType = errors.New("implementation type must be concrete")

	// ErrServiceNotRegistered is returned when nothing is registered for the
	// requested type.
	ErrServiceNotRegistered = errors.New("service not registered")

	// ErrScopedOnRoot is returned when a scoped registration is resolved outside
	// of a scope, directly or through a singleton.
	ErrScopedOnRoot = errors.New("scoped service cannot be resolved from the root container")

	// ErrCircularDependency is returned when the resolution graph contains a
	// cycle. The error message includes the full chain.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrScopeClosed is returned when resolving from a closed scope or container.
	ErrScopeClosed = errors.New("scope already closed")
)
