package godeco

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/a-peyrard/godeco/option"
	"github.com/a-peyrard/godeco/slices"
	"github.com/rs/zerolog"
)

type (
	// Collection is the ordered list of registrations a Container is built from.
	//
	// A collection is meant to be filled during application bootstrap, by a single
	// goroutine: it carries no lock.
	Collection struct {
		descriptors []*Descriptor
		logger      zerolog.Logger
	}

	CollectionOptions struct {
		logger zerolog.Logger
	}

	RegistrationOptions struct {
		lifetime    Lifetime
		description string
	}
)

func WithLogger(logger zerolog.Logger) option.Option[CollectionOptions] {
	return func(opts *CollectionOptions) {
		opts.logger = logger
	}
}

func WithLifetime(lifetime Lifetime) option.Option[RegistrationOptions] {
	return func(opts *RegistrationOptions) {
		opts.lifetime = lifetime
	}
}

func Description(description string) option.Option[RegistrationOptions] {
	return func(opts *RegistrationOptions) {
		opts.description = description
	}
}

func NewCollection(opts ...option.Option[CollectionOptions]) *Collection {
	options := option.Build(
		&CollectionOptions{logger: zerolog.Nop()},
		opts...,
	)
	return &Collection{
		descriptors: make([]*Descriptor, 0),
		logger:      options.logger,
	}
}

// nested creates an empty collection sharing the configuration of c.
func (c *Collection) nested() *Collection {
	return &Collection{
		descriptors: make([]*Descriptor, 0),
		logger:      c.logger,
	}
}

// Add appends d to the collection.
func (c *Collection) Add(d *Descriptor) *Collection {
	c.descriptors = append(c.descriptors, d)
	return c
}

// Remove removes d from the collection, and reports if it was found.
func (c *Collection) Remove(d *Descriptor) bool {
	for i, candidate := range c.descriptors {
		if candidate == d {
			c.descriptors = append(c.descriptors[:i:i], c.descriptors[i+1:]...)
			return true
		}
	}
	return false
}

// All returns a copy of the registrations, in registration order.
func (c *Collection) All() []*Descriptor {
	all := make([]*Descriptor, len(c.descriptors))
	copy(all, c.descriptors)
	return all
}

func (c *Collection) Len() int {
	return len(c.descriptors)
}

// Find returns the registrations keyed by exactly capability, in registration order.
func (c *Collection) Find(capability reflect.Type) []*Descriptor {
	return slices.Filter(c.descriptors, func(d *Descriptor) bool {
		return d.capability == capability
	})
}

func (c *Collection) contains(capability reflect.Type) bool {
	for _, d := range c.descriptors {
		if d.capability == capability {
			return true
		}
	}
	return false
}

func (c *Collection) Describe() string {
	return describe(c.descriptors)
}

func describe(descriptors []*Descriptor) string {
	var b strings.Builder
	b.WriteString("* Registrations:\n")
	for _, d := range descriptors {
		b.WriteString(fmt.Sprintf("\t- %s (lifetime=%s)\n", d.capability, d.lifetime))
		b.WriteString(fmt.Sprintf("\t\tsource: %s\n", d.source()))
		if d.description != "" {
			b.WriteString(fmt.Sprintf("\t\tdescription: %s\n", d.description))
		}
		if deps := d.dependencies(); len(deps) > 0 {
			b.WriteString("\t\tdependencies:\n")
			for _, dep := range slices.Map(deps, reflect.Type.String) {
				b.WriteString(fmt.Sprintf("\t\t\t- %s\n", dep))
			}
		}
	}
	return b.String()
}

// Register registers ctor as the provider of S. The constructor parameters are
// resolved by type, the result must implement S.
//
//	err := godeco.Register[mail.Sender](c, mail.NewSMTPSender, godeco.WithLifetime(godeco.Scoped))
func Register[S any](c *Collection, ctor any, opts ...option.Option[RegistrationOptions]) error {
	capability := TypeOf[S]()
	if c == nil {
		return fmt.Errorf("failed to register %s: %w", capability, ErrNilCollection)
	}

	constructor, err := NewConstructor(ctor)
	if err != nil {
		return fmt.Errorf("failed to register %s:\n\t%w", capability, err)
	}
	if !matchType(capability, constructor.Out()) {
		return fmt.Errorf(
			"failed to register %s: %w: %s returns %s which does not implement it",
			capability, ErrInvalidConstructor, constructor, constructor.Out(),
		)
	}

	options, err := buildRegistrationOptions(opts)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", capability, err)
	}
	d := NewConstructorDescriptor(capability, constructor, options.lifetime)
	d.description = options.description
	c.Add(d)

	return nil
}

// RegisterSelf registers ctor as the provider of its own result type.
func RegisterSelf(c *Collection, ctor any, opts ...option.Option[RegistrationOptions]) error {
	if c == nil {
		return fmt.Errorf("failed to register %T: %w", ctor, ErrNilCollection)
	}

	constructor, err := NewConstructor(ctor)
	if err != nil {
		return fmt.Errorf("failed to register %T:\n\t%w", ctor, err)
	}

	options, err := buildRegistrationOptions(opts)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", constructor.Out(), err)
	}
	d := NewConstructorDescriptor(constructor.Out(), constructor, options.lifetime)
	d.description = options.description
	c.Add(d)

	return nil
}

// RegisterInstance registers an already built instance as the singleton
// provider of S.
func RegisterInstance[S any](c *Collection, instance S, opts ...option.Option[RegistrationOptions]) error {
	capability := TypeOf[S]()
	if c == nil {
		return fmt.Errorf("failed to register %s: %w", capability, ErrNilCollection)
	}

	v := reflect.ValueOf(any(instance))
	if !v.IsValid() || (isNillable(v.Kind()) && v.IsNil()) {
		return fmt.Errorf("failed to register %s: %w", capability, ErrNilInstance)
	}

	options, err := buildRegistrationOptions(opts)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", capability, err)
	}
	if options.lifetime != Singleton {
		return fmt.Errorf("failed to register %s: instances are always singletons, got %s", capability, options.lifetime)
	}
	d := NewInstanceDescriptor(capability, v)
	d.description = options.description
	c.Add(d)

	return nil
}

// RegisterFactory registers factory as the provider of S. I is the type the
// factory produces, it must implement S.
//
//	err := godeco.RegisterFactory[mail.Sender](c, func(r godeco.Resolver) (*mail.SMTPSender, error) {
//		return mail.NewSMTPSender(cfg), nil
//	})
func RegisterFactory[S any, I any](c *Collection, factory func(r Resolver) (I, error), opts ...option.Option[RegistrationOptions]) error {
	capability := TypeOf[S]()
	if c == nil {
		return fmt.Errorf("failed to register %s: %w", capability, ErrNilCollection)
	}
	if factory == nil {
		return fmt.Errorf("failed to register %s: %w: factory cannot be nil", capability, ErrInvalidConstructor)
	}

	f := NewFactory(factory)
	if !matchType(capability, f.Out()) {
		return fmt.Errorf(
			"failed to register %s: %w: factory produces %s which does not implement it",
			capability, ErrInvalidConstructor, f.Out(),
		)
	}

	options, err := buildRegistrationOptions(opts)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", capability, err)
	}
	d := NewFactoryDescriptor(capability, f, options.lifetime)
	d.description = options.description
	c.Add(d)

	return nil
}

func MustRegister[S any](c *Collection, ctor any, opts ...option.Option[RegistrationOptions]) *Collection {
	must(Register[S](c, ctor, opts...))
	return c
}

func MustRegisterSelf(c *Collection, ctor any, opts ...option.Option[RegistrationOptions]) *Collection {
	must(RegisterSelf(c, ctor, opts...))
	return c
}

func MustRegisterInstance[S any](c *Collection, instance S, opts ...option.Option[RegistrationOptions]) *Collection {
	must(RegisterInstance[S](c, instance, opts...))
	return c
}

func MustRegisterFactory[S any, I any](c *Collection, factory func(r Resolver) (I, error), opts ...option.Option[RegistrationOptions]) *Collection {
	must(RegisterFactory[S](c, factory, opts...))
	return c
}

func buildRegistrationOptions(opts []option.Option[RegistrationOptions]) (*RegistrationOptions, error) {
	options := option.Build(
		&RegistrationOptions{lifetime: Singleton},
		opts...,
	)
	if !options.lifetime.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLifetime, options.lifetime)
	}
	return options, nil
}

func isNillable(kind reflect.Kind) bool {
	switch kind {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
