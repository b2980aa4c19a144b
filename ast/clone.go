package ast

import (
	"reflect"
)

// Clone returns a deep copy of node.
// The copy shares no pointers, slices or interfaces with the original,
// so either may be mutated without affecting the other.
func Clone[N Node](node N) N {
	original := reflect.ValueOf(&node).Elem()
	cpy := reflect.New(original.Type()).Elem()
	cloneValue(original, cpy)
	out, _ := cpy.Interface().(N) // not ok only for a nil interface
	return out
}

func cloneValue(original, cpy reflect.Value) {
	switch original.Kind() {
	case reflect.Ptr:
		elem := original.Elem()
		if !elem.IsValid() {
			return
		}
		cpy.Set(reflect.New(elem.Type()))
		cloneValue(elem, cpy.Elem())

	case reflect.Interface:
		if original.IsNil() {
			return
		}
		elem := original.Elem()
		value := reflect.New(elem.Type()).Elem()
		cloneValue(elem, value)
		cpy.Set(value)

	case reflect.Struct:
		for i := 0; i < original.NumField(); i++ {
			cloneValue(original.Field(i), cpy.Field(i))
		}

	case reflect.Slice:
		if original.IsNil() {
			return
		}
		cpy.Set(reflect.MakeSlice(original.Type(), original.Len(), original.Len()))
		for i := 0; i < original.Len(); i++ {
			cloneValue(original.Index(i), cpy.Index(i))
		}

	default:
		cpy.Set(original)
	}
}
