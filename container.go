package godeco

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type (
	// Resolver provides instances from a built container. Factories receive the
	// active resolver: the root container for singletons, the current scope
	// otherwise.
	Resolver interface {
		// Resolve returns the instance of the last registration keyed by typ.
		Resolve(typ reflect.Type) (reflect.Value, error)

		// ResolveAll returns one instance per registration keyed by typ, in
		// registration order.
		ResolveAll(typ reflect.Type) ([]reflect.Value, error)

		// Construct calls ctor, using supplied for its leading parameters and
		// resolving the remaining ones by type.
		Construct(ctor *Constructor, supplied ...reflect.Value) (reflect.Value, error)
	}

	// Container is the root resolver, built from a Collection. It owns the
	// singletons and creates scopes.
	Container struct {
		registrations []*registration
		byCapability  map[reflect.Type][]*registration

		singletons *Store

		logger zerolog.Logger
		closed atomic.Bool
	}

	registration struct {
		slot       slot
		descriptor *Descriptor
	}
)

// Build validates the registrations and creates the container. The collection can
// be reused afterward, the container keeps its own snapshot.
func (c *Collection) Build() (*Container, error) {
	if c == nil {
		return nil, fmt.Errorf("failed to build container: %w", ErrNilCollection)
	}

	container := &Container{
		registrations: make([]*registration, len(c.descriptors)),
		byCapability:  make(map[reflect.Type][]*registration),
		singletons:    NewStore(),
		logger:        c.logger,
	}
	for i, d := range c.descriptors {
		reg := &registration{
			slot:       slot{index: i, capability: d.capability},
			descriptor: d,
		}
		container.registrations[i] = reg
		container.byCapability[d.capability] = append(container.byCapability[d.capability], reg)
	}

	if err := container.validate(); err != nil {
		return nil, fmt.Errorf("failed to build container:\n\t%w", err)
	}

	container.logger.Debug().
		Int("registrations", len(container.registrations)).
		Int("capabilities", len(container.byCapability)).
		Msg("container built")

	return container, nil
}

func MustBuild(c *Collection) *Container {
	container, err := c.Build()
	must(err)
	return container
}

// validate checks every registration has a source, and that every dependency
// known ahead of resolution has a registration.
func (c *Container) validate() error {
	var errs []error
	for _, reg := range c.registrations {
		d := reg.descriptor
		if _, err := d.ImplementationType(); err != nil {
			errs = append(errs, err)
			continue
		}
		if !d.lifetime.valid() {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidLifetime, d))
		}
		if err := c.validateDecoratee(d); err != nil {
			errs = append(errs, err)
		}
		for _, dep := range d.dependencies() {
			if dep == ResolverType {
				continue
			}
			if _, found := c.byCapability[dep]; !found {
				errs = append(errs, fmt.Errorf("%s depends on %s: %w", d, dep, ErrServiceNotRegistered))
			}
		}
	}
	return errors.Join(errs...)
}

// validateDecoratee checks a decorator still resolves the registration it was
// built around: its implementation type must not have been registered again.
func (c *Container) validateDecoratee(d *Descriptor) error {
	if d.decoratee == nil {
		return nil
	}
	regs := c.byCapability[d.decoratee.capability]
	if len(regs) == 0 {
		// reported as a missing dependency
		return nil
	}
	if len(regs) > 1 || regs[0].descriptor != d.decoratee {
		return fmt.Errorf(
			"%s decorates %s: %w: registered %d times",
			d, d.decoratee.capability, ErrDecorateeConflict, len(regs),
		)
	}
	return nil
}

func (c *Container) Resolve(typ reflect.Type) (reflect.Value, error) {
	return c.newResolution(nil).Resolve(typ)
}

func (c *Container) ResolveAll(typ reflect.Type) ([]reflect.Value, error) {
	return c.newResolution(nil).ResolveAll(typ)
}

func (c *Container) Construct(ctor *Constructor, supplied ...reflect.Value) (reflect.Value, error) {
	return c.newResolution(nil).Construct(ctor, supplied...)
}

// NewScope creates a scope: scoped registrations resolved through it are built
// once and shared until the scope is closed.
func (c *Container) NewScope() *Scope {
	return &Scope{
		root:  c,
		store: NewStore(),
	}
}

// Close closes the singletons built so far that implement Closeable, in reverse
// creation order. The container cannot be used afterward.
func (c *Container) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrScopeClosed
	}
	return c.singletons.Close()
}

func (c *Container) Describe() string {
	descriptors := make([]*Descriptor, len(c.registrations))
	for i, reg := range c.registrations {
		descriptors[i] = reg.descriptor
	}
	return describe(descriptors) + fmt.Sprintf("* Singletons built: %d\n", c.singletons.Len())
}

func (c *Container) newResolution(scope *Scope) *resolution {
	return &resolution{
		container: c,
		scope:     scope,
		tracker:   NewTracker(),
	}
}
