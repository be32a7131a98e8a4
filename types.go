package godeco

import (
	"fmt"
	"reflect"
)

var (
	ErrorType    = TypeOf[error]()
	ResolverType = TypeOf[Resolver]()
)

// Closeable is an interface that can be used to close resources.
type Closeable interface {
	Close() error
}

func matchType(queryType, providedType reflect.Type) bool {
	if queryType == providedType {
		return true
	}
	if queryType.Kind() == reflect.Interface && providedType.Implements(queryType) {
		return true
	}
	return false
}

// isConcrete reports whether typ can identify an implementation on its own.
func isConcrete(typ reflect.Type) bool {
	return typ != nil && typ.Kind() != reflect.Interface
}

func TypeOf[I any]() reflect.Type {
	var i I
	t := reflect.TypeOf(i)
	if t == nil {
		t = reflect.TypeOf((*I)(nil)).Elem()
	}
	return t
}

func unReflect[T any](v reflect.Value) (res T, err error) {
	if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
		return res, nil
	}
	res, ok := v.Interface().(T)
	if !ok {
		return res, fmt.Errorf("value %v is not of type %T", v, res)
	}
	return res, nil
}
