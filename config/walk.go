package config

import "reflect"

type visitor func(val reflect.Value, typ reflect.Type)

// walkStruct applies visit on element and on every exported field, recursively.
// visit runs before the recursion, so it can allocate what is walked next.
func walkStruct(element any, visit visitor) {
	walk(reflect.ValueOf(element), visit)
}

func walk(val reflect.Value, visit visitor) {
	visit(val, val.Type())

	val = deref(val)
	if !val.IsValid() || val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		if !typ.Field(i).IsExported() {
			continue
		}
		walk(val.Field(i), visit)
	}
}

// deref dereferences pointers and interfaces until it reaches a concrete value.
func deref(value reflect.Value) reflect.Value {
	if value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface {
		return deref(value.Elem())
	}
	return value
}

// createNilStructs allocates nil struct pointers.
func createNilStructs(val reflect.Value, typ reflect.Type) {
	if typ.Kind() == reflect.Pointer &&
		val.IsNil() &&
		val.CanSet() &&
		typ.Elem().Kind() == reflect.Struct {

		val.Set(reflect.New(typ.Elem()))
	}
}
