// Package assert checks constructor arguments, a failed check is a bug in the caller.
package assert

import (
	"fmt"
	"reflect"
)

// NotNil also catches a nil pointer, map or func wrapped in an interface.
func NotNil(name string, value any) {
	if value == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			panic(fmt.Sprintf("%s must not be a nil %s", name, v.Type()))
		}
	}
}

func NotEmptyStr(name, str string) {
	if str == "" {
		panic(fmt.Sprintf("%s must not be empty", name))
	}
}
