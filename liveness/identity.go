package liveness

import (
	"reflect"

	"github.com/kbukum/scopecache/errors"
)

// CheckIdentity reports whether v can serve as an identity key. Only
// reference kinds qualify; anything else would match by value.
func CheckIdentity(arg string, v any) error {
	if v == nil {
		return errors.InvalidArgument(arg, "must not be nil")
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			return errors.InvalidArgument(arg, "must not be a nil reference")
		}
		return nil
	default:
		return errors.InvalidArgument(arg, "must be a pointer or channel, got "+rv.Kind().String()).
			WithDetail("type", rv.Type().String())
	}
}
