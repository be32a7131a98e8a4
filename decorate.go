package godeco

import (
	"fmt"
	"reflect"
)

// Decorate registers decorator as the provider of S, wrapping the registration of
// S made by configure.
//
// configure receives an empty collection of its own: it must register S exactly
// once, and may register anything else the decoratee needs, including other
// decorators of S through nested calls to Decorate. Its registrations are merged
// into target, with the decoratee moved under its implementation type so it stays
// resolvable on its own. The decorator gets the decoratee's lifetime.
//
// decorator is a constructor taking the decoratee as first parameter, and
// returning a concrete implementation of S:
//
//	err := godeco.Decorate[mail.Sender](c, mail.NewRetrySender, func(nested *godeco.Collection) error {
//		return godeco.Register[mail.Sender](nested, mail.NewSMTPSender, godeco.WithLifetime(godeco.Scoped))
//	})
//
// On error, target is left untouched. Registering the decoratee implementation
// type again after Decorate is detected by Build, with ErrDecorateeConflict.
func Decorate[S any](target *Collection, decorator any, configure func(nested *Collection) error) error {
	capability := TypeOf[S]()
	if target == nil {
		return fmt.Errorf("failed to decorate %s: %w", capability, ErrNilCollection)
	}
	if configure == nil {
		return fmt.Errorf("failed to decorate %s: %w", capability, ErrNilConfigure)
	}

	ctor, err := newDecoratorConstructor(capability, decorator)
	if err != nil {
		return fmt.Errorf("failed to decorate %s:\n\t%w", capability, err)
	}

	nested := target.nested()
	if err = configure(nested); err != nil {
		return fmt.Errorf("failed to configure decoratee of %s:\n\t%w", capability, err)
	}

	decoratee, err := findDecoratee(nested, capability)
	if err != nil {
		return fmt.Errorf("failed to decorate %s with %s:\n\t%w", capability, ctor, err)
	}
	nested.Remove(decoratee)

	identity, err := decoratee.ImplementationType()
	if err != nil {
		return fmt.Errorf("failed to decorate %s with %s:\n\t%w", capability, ctor, err)
	}
	if !isConcrete(identity) || identity == capability {
		return fmt.Errorf(
			"failed to decorate %s with %s: %w: decoratee %s only exposes %s",
			capability, ctor, ErrNotConcreteType, decoratee, identity,
		)
	}
	if target.contains(identity) || nested.contains(identity) {
		return fmt.Errorf(
			"failed to decorate %s with %s: %w: %s",
			capability, ctor, ErrDecorateeConflict, identity,
		)
	}

	rewritten := decoratee.withCapability(identity)
	decorated := NewFactoryDescriptor(capability, decoratorFactory(ctor, identity), decoratee.lifetime)
	decorated.description = decoratee.description
	decorated.decoratee = rewritten

	siblings := nested.All()
	for _, sibling := range siblings {
		target.Add(sibling)
	}
	target.Add(rewritten).Add(decorated)

	target.logger.Debug().
		Stringer("capability", capability).
		Stringer("decorator", ctor.Out()).
		Stringer("decoratee", identity).
		Stringer("lifetime", decoratee.lifetime).
		Int("siblings", len(siblings)).
		Msg("decorator registered")

	return nil
}

// MustDecorate is like Decorate but panics on error.
func MustDecorate[S any](target *Collection, decorator any, configure func(nested *Collection) error) *Collection {
	must(Decorate[S](target, decorator, configure))
	return target
}

func newDecoratorConstructor(capability reflect.Type, decorator any) (*Constructor, error) {
	ctor, err := NewConstructor(decorator)
	if err != nil {
		return nil, fmt.Errorf("%w:\n\t%w", ErrInvalidDecorator, err)
	}
	if len(ctor.in) < 1 || ctor.in[0] != capability {
		return nil, fmt.Errorf("%w: the first parameter of %s must be the decorated %s", ErrInvalidDecorator, ctor, capability)
	}
	if !matchType(capability, ctor.out) {
		return nil, fmt.Errorf("%w: %s returns %s which does not implement %s", ErrInvalidDecorator, ctor, ctor.out, capability)
	}
	if !isConcrete(ctor.out) {
		return nil, fmt.Errorf("%w: %w: %s returns %s", ErrInvalidDecorator, ErrNotConcreteType, ctor, ctor.out)
	}
	return ctor, nil
}

func findDecoratee(nested *Collection, capability reflect.Type) (*Descriptor, error) {
	candidates := nested.Find(capability)
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrDecorateeNotFound, capability)
	case 1:
		return candidates[0], nil
	default:
		return nil, fmt.Errorf("%w: %s registered %d times", ErrMultipleDecoratees, capability, len(candidates))
	}
}

// decoratorFactory builds the decorator around the decoratee resolved by its
// implementation type, from the same resolver, so both share the decoratee's
// lifetime boundary.
func decoratorFactory(decorator *Constructor, identity reflect.Type) *Factory {
	deps := append([]reflect.Type{identity}, decorator.in[1:]...)
	return &Factory{
		out:  decorator.out,
		deps: deps,
		name: decorator.name,
		create: func(r Resolver) (reflect.Value, error) {
			decoratee, err := r.Resolve(identity)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("failed to resolve decoratee %s:\n\t%w", identity, err)
			}
			return r.Construct(decorator, decoratee)
		},
	}
}
