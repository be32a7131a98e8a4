package godeco

import (
	"fmt"
	"reflect"
)

type (
	// Factory builds an instance from a Resolver. It carries the concrete type it
	// produces as explicit metadata, so the implementation behind a factory
	// registration is known without calling it.
	Factory struct {
		out    reflect.Type
		deps   []reflect.Type
		name   string
		create func(r Resolver) (reflect.Value, error)
	}
)

// NewFactory wraps fn in a Factory producing T.
//
// T is the implementation type of the registration: prefer the concrete type
// (`func(r Resolver) (*SMTPSender, error)`) over the capability it implements,
// decorators need it to tell the decoratee apart from the capability.
func NewFactory[T any](fn func(r Resolver) (T, error)) *Factory {
	return &Factory{
		out:  TypeOf[T](),
		name: funcName(reflect.ValueOf(fn)),
		create: func(r Resolver) (reflect.Value, error) {
			v, err := fn(r)
			if err != nil {
				return reflect.Value{}, err
			}
			// keep the static type, even for nil interface values
			return reflect.ValueOf(&v).Elem(), nil
		},
	}
}

// Out returns the type produced by the factory.
func (f *Factory) Out() reflect.Type {
	return f.out
}

func (f *Factory) String() string {
	return f.name
}

func (f *Factory) produce(r Resolver) (comp reflect.Value, err error) {
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic calling factory %s: %v", f.name, rec)
			}
		}()
		comp, err = f.create(r)
	}()
	return comp, err
}
