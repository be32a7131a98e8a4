package godeco

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
)

type (
	// Constructor is a validated constructor function: func(deps...) T or
	// func(deps...) (T, error). Its parameters are the dependencies the container
	// resolves by type, T is the implementation it builds.
	Constructor struct {
		fn      reflect.Value
		name    string
		in      []reflect.Type
		out     reflect.Type
		withErr bool
	}
)

// NewConstructor validates ctor and captures its signature.
func NewConstructor(ctor any) (*Constructor, error) {
	if ctor == nil {
		return nil, fmt.Errorf("%w: constructor cannot be nil", ErrInvalidConstructor)
	}

	t := reflect.TypeOf(ctor)
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: constructor must be a function, got %s", ErrInvalidConstructor, t)
	}
	v := reflect.ValueOf(ctor)
	if v.IsNil() {
		return nil, fmt.Errorf("%w: constructor cannot be nil", ErrInvalidConstructor)
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic constructors are not supported, got %s", ErrInvalidConstructor, t)
	}
	if t.NumOut() != 1 && t.NumOut() != 2 {
		return nil, fmt.Errorf("%w: constructor must either return the instance and an error, or just the instance", ErrInvalidConstructor)
	}
	if t.NumOut() == 2 && t.Out(1) != ErrorType {
		return nil, fmt.Errorf("%w: if constructor returns two elements, it must return an error as the second element", ErrInvalidConstructor)
	}

	in := make([]reflect.Type, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		in[i] = t.In(i)
	}

	return &Constructor{
		fn:      v,
		name:    funcName(v),
		in:      in,
		out:     t.Out(0),
		withErr: t.NumOut() == 2,
	}, nil
}

// Out returns the type built by the constructor.
func (c *Constructor) Out() reflect.Type {
	return c.out
}

// Dependencies returns the parameter types of the constructor, in order.
func (c *Constructor) Dependencies() []reflect.Type {
	deps := make([]reflect.Type, len(c.in))
	copy(deps, c.in)
	return deps
}

func (c *Constructor) String() string {
	return c.name
}

func (c *Constructor) call(args []reflect.Value) (comp reflect.Value, err error) {
	// panic recovery, as `Call` can panic if the constructor has a panic
	var results []reflect.Value
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic calling constructor %s: %v", c.name, r)
			}
		}()
		results = c.fn.Call(args)
	}()
	if err != nil {
		return reflect.Value{}, err
	}

	if c.withErr && !results[1].IsNil() {
		return reflect.Value{}, results[1].Interface().(error)
	}

	return results[0], nil
}

func funcName(fn reflect.Value) string {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return fn.Type().String()
	}
	return filepath.Base(f.Name())
}
