package godeco

import (
	"fmt"
	"reflect"
)

type (
	// Descriptor is a single registration: a capability, a lifetime and exactly one
	// source (constructor, instance or factory) able to provide it.
	Descriptor struct {
		capability reflect.Type
		lifetime   Lifetime

		ctor     *Constructor
		instance reflect.Value
		factory  *Factory

		description string

		// decoratee is the rewritten registration a decorator wraps, nil otherwise.
		decoratee *Descriptor
	}
)

// NewConstructorDescriptor describes capability as built by ctor, with the
// given lifetime.
func NewConstructorDescriptor(capability reflect.Type, ctor *Constructor, lifetime Lifetime) *Descriptor {
	return &Descriptor{capability: capability, lifetime: lifetime, ctor: ctor}
}

// NewInstanceDescriptor describes capability as an already built instance.
// Instances are always singletons.
func NewInstanceDescriptor(capability reflect.Type, instance reflect.Value) *Descriptor {
	return &Descriptor{capability: capability, lifetime: Singleton, instance: instance}
}

// NewFactoryDescriptor describes capability as produced by factory, with the
// given lifetime.
func NewFactoryDescriptor(capability reflect.Type, factory *Factory, lifetime Lifetime) *Descriptor {
	return &Descriptor{capability: capability, lifetime: lifetime, factory: factory}
}

func (d *Descriptor) Capability() reflect.Type {
	return d.capability
}

func (d *Descriptor) Lifetime() Lifetime {
	return d.lifetime
}

func (d *Descriptor) Constructor() *Constructor {
	return d.ctor
}

func (d *Descriptor) Instance() (reflect.Value, bool) {
	return d.instance, d.instance.IsValid()
}

func (d *Descriptor) Factory() *Factory {
	return d.factory
}

func (d *Descriptor) Description() string {
	return d.description
}

// ImplementationType returns the type the registration actually provides: the
// constructor result, the runtime type of the instance, or the type declared by
// the factory.
func (d *Descriptor) ImplementationType() (reflect.Type, error) {
	switch {
	case d.ctor != nil:
		return d.ctor.Out(), nil
	case d.instance.IsValid():
		return d.instance.Type(), nil
	case d.factory != nil:
		return d.factory.Out(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoSource, d.capability)
	}
}

// withCapability returns a copy of the descriptor registered under capability.
func (d *Descriptor) withCapability(capability reflect.Type) *Descriptor {
	rekeyed := *d
	rekeyed.capability = capability
	if d.instance.IsValid() {
		rekeyed.lifetime = Singleton
	}
	return &rekeyed
}

func (d *Descriptor) dependencies() []reflect.Type {
	switch {
	case d.ctor != nil:
		return d.ctor.in
	case d.factory != nil:
		return d.factory.deps
	default:
		return nil
	}
}

func (d *Descriptor) source() string {
	switch {
	case d.ctor != nil:
		return "constructor " + d.ctor.String()
	case d.instance.IsValid():
		return "instance of " + d.instance.Type().String()
	case d.factory != nil:
		return fmt.Sprintf("factory %s producing %s", d.factory.String(), d.factory.Out())
	default:
		return "no source"
	}
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("(%s, %s, %s)", d.capability, d.lifetime, d.source())
}
