package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// Handler holds metadata about a job handler function.
type Handler struct {
	Fn         reflect.Value
	ArgsType   reflect.Type
	HasContext bool
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// New creates a Handler from a function. The function must have
// signature func(ctx context.Context, args T) error; both the context
// and the args parameter are optional.
func New(fn any) (*Handler, error) {
	if fn == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	fnVal := reflect.ValueOf(fn)

	// Check for typed nil (e.g., var fn func() = nil)
	if !fnVal.IsValid() || (fnVal.Kind() == reflect.Func && fnVal.IsNil()) {
		return nil, fmt.Errorf("handler function cannot be nil")
	}

	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function")
	}

	h := &Handler{Fn: fnVal}

	numIn := fnType.NumIn()
	if numIn > 2 {
		return nil, fmt.Errorf("handler must have at most 2 arguments")
	}

	argIdx := 0
	if numIn > 0 && fnType.In(0).Implements(ctxType) {
		h.HasContext = true
		argIdx = 1
	}
	if argIdx < numIn {
		h.ArgsType = fnType.In(argIdx)
	}

	if fnType.NumOut() != 1 || !fnType.Out(0).Implements(errType) {
		return nil, fmt.Errorf("handler must return error")
	}

	return h, nil
}

// Resolve builds a Handler from a lazily-registered value: a function is
// used directly; any other value must expose a Handle method with a
// valid handler signature, looked up on the value first and on a pointer
// to it second.
func Resolve(v any) (*Handler, error) {
	if v == nil {
		return nil, fmt.Errorf("handler value cannot be nil")
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Func {
		return New(v)
	}

	if m := rv.MethodByName("Handle"); m.IsValid() {
		return New(m.Interface())
	}

	// Pointer-receiver Handle methods need an addressable value.
	if rv.Kind() != reflect.Ptr {
		pv := reflect.New(rv.Type())
		pv.Elem().Set(rv)
		if m := pv.MethodByName("Handle"); m.IsValid() {
			return New(m.Interface())
		}
	}

	return nil, fmt.Errorf("type %T has no Handle method", v)
}

// Invoke runs the handler, unmarshaling the JSON args payload into the
// handler's argument type.
func (h *Handler) Invoke(ctx context.Context, argsJSON []byte) error {
	if !h.Fn.IsValid() || h.Fn.IsNil() {
		return fmt.Errorf("handler function is nil or invalid")
	}

	var args []reflect.Value

	if h.HasContext {
		args = append(args, reflect.ValueOf(ctx))
	}

	if h.ArgsType != nil {
		argVal := reflect.New(h.ArgsType)
		if len(argsJSON) > 0 {
			if err := json.Unmarshal(argsJSON, argVal.Interface()); err != nil {
				return fmt.Errorf("failed to unmarshal args: %w", err)
			}
		}
		args = append(args, argVal.Elem())
	}

	results := h.Fn.Call(args)
	if !results[0].IsNil() {
		return results[0].Interface().(error)
	}
	return nil
}
