package object

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/mnehpets/rpcserve/codec"
)

// Callable is a value that can be invoked with RPC parameters.
type Callable interface {
	Call(ctx context.Context, params Params) (any, error)
}

// Params carries the arguments of one invocation, as decoded by a codec:
// either an ordered list (Positional) or a mapping (Named), never both.
// A nil Named means positional form.
type Params struct {
	Positional []any
	Named      map[string]any
	// Codec binds the generic values above to typed arguments. Nil means
	// codec.Default.
	Codec codec.Codec
}

// IsNamed reports whether the params were given as a mapping.
func (p Params) IsNamed() bool { return p.Named != nil }

// Len is the number of params in either form.
func (p Params) Len() int {
	if p.IsNamed() {
		return len(p.Named)
	}
	return len(p.Positional)
}

// Arg decodes the i'th positional param into dst.
func (p Params) Arg(i int, dst any) error {
	if i < 0 || i >= len(p.Positional) {
		return &ParamsError{Msg: fmt.Sprintf("missing param %d", i)}
	}
	return p.decode(p.Positional[i], dst, fmt.Sprintf("param %d", i))
}

// Lookup decodes the named param into dst. It reports false when the param
// is absent.
func (p Params) Lookup(name string, dst any) (bool, error) {
	raw, ok := p.Named[name]
	if !ok {
		return false, nil
	}
	return true, p.decode(raw, dst, "param "+name)
}

func (p Params) decode(src, dst any, what string) error {
	if err := codec.Convert(p.Codec, src, dst); err != nil {
		return &ParamsError{Msg: what + ": " + err.Error(), Err: err}
	}
	return nil
}

// ParamsError reports params that do not fit the invoked callable.
type ParamsError struct {
	Msg string
	Err error
}

func (e *ParamsError) Error() string { return "invalid params: " + e.Msg }

func (e *ParamsError) Unwrap() error { return e.Err }

// AsCallable returns v as a Callable. Besides Callable implementations, any
// Go func with a supported signature qualifies:
//
//	func([ctx context.Context,] args...) ([result] [, error])
func AsCallable(v any) (Callable, bool) {
	switch c := v.(type) {
	case nil:
		return nil, false
	case Callable:
		return c, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, false
	}
	fn, err := newFunc(rv, nil)
	if err != nil {
		return nil, false
	}
	return fn, true
}

// Func wraps fn as a Callable. Optional names label fn's parameters (after
// the context, if any) so that named params can be bound to them.
//
// Func panics if fn is not a func with a supported signature or if the
// number of names does not match its parameters.
func Func(fn any, names ...string) Callable {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		panic(fmt.Sprintf("object: Func: %T is not a func", fn))
	}
	f, err := newFunc(rv, names)
	if err != nil {
		panic("object: Func: " + err.Error())
	}
	return f
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// funcValue invokes a Go func through reflection.
type funcValue struct {
	fn       reflect.Value
	withCtx  bool
	in       []reflect.Type
	variadic bool
	names    []string
	errOnly  bool
}

func newFunc(fn reflect.Value, names []string) (*funcValue, error) {
	ft := fn.Type()
	f := &funcValue{fn: fn, variadic: ft.IsVariadic(), names: names}

	start := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		f.withCtx = true
		start = 1
	}
	for i := start; i < ft.NumIn(); i++ {
		f.in = append(f.in, ft.In(i))
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		f.errOnly = ft.Out(0) == errorType
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("%s: second result must be error", ft)
		}
	default:
		return nil, fmt.Errorf("%s: too many results", ft)
	}

	if len(names) > 0 && len(names) != len(f.in) {
		return nil, fmt.Errorf("%s: %d names for %d params", ft, len(names), len(f.in))
	}
	return f, nil
}

// MarshalText renders the func as its signature, so a method reached by a
// GET is described rather than failing to encode.
func (f *funcValue) MarshalText() ([]byte, error) {
	return []byte(f.fn.Type().String()), nil
}

func (f *funcValue) Call(ctx context.Context, p Params) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	args := make([]reflect.Value, 0, len(f.in)+1)
	if f.withCtx {
		args = append(args, reflect.ValueOf(ctx))
	}

	var bound []reflect.Value
	var err error
	if p.IsNamed() {
		bound, err = f.bindNamed(p)
	} else {
		bound, err = f.bindPositional(p)
	}
	if err != nil {
		return nil, err
	}
	args = append(args, bound...)

	out := f.fn.Call(args)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if f.errOnly {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

func (f *funcValue) bindPositional(p Params) ([]reflect.Value, error) {
	fixed := len(f.in)
	if f.variadic {
		fixed--
	}
	n := len(p.Positional)
	if n < fixed || (!f.variadic && n > fixed) {
		return nil, &ParamsError{Msg: fmt.Sprintf("expected %d params, got %d", fixed, n)}
	}

	out := make([]reflect.Value, 0, n)
	for i, raw := range p.Positional {
		var t reflect.Type
		if i < fixed {
			t = f.in[i]
		} else {
			t = f.in[fixed].Elem()
		}
		pv := reflect.New(t)
		if err := p.decode(raw, pv.Interface(), fmt.Sprintf("param %d", i)); err != nil {
			return nil, err
		}
		out = append(out, pv.Elem())
	}
	return out, nil
}

func (f *funcValue) bindNamed(p Params) ([]reflect.Value, error) {
	if len(f.names) > 0 && !f.variadic {
		known := make(map[string]bool, len(f.names))
		out := make([]reflect.Value, len(f.names))
		for i, name := range f.names {
			known[name] = true
			pv := reflect.New(f.in[i])
			ok, err := p.Lookup(name, pv.Interface())
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &ParamsError{Msg: "missing param: " + name}
			}
			out[i] = pv.Elem()
		}
		for name := range p.Named {
			if !known[name] {
				return nil, &ParamsError{Msg: "unexpected param: " + name}
			}
		}
		return out, nil
	}

	if len(f.in) == 0 {
		if len(p.Named) > 0 {
			return nil, &ParamsError{Msg: fmt.Sprintf("expected 0 params, got %d", len(p.Named))}
		}
		return nil, nil
	}

	// A single struct or map parameter receives the whole mapping.
	if len(f.in) == 1 && !f.variadic {
		t := f.in[0]
		base := t
		if base.Kind() == reflect.Pointer {
			base = base.Elem()
		}
		switch base.Kind() {
		case reflect.Struct:
			for _, name := range requiredFields(base) {
				if _, ok := p.Named[name]; !ok {
					return nil, &ParamsError{Msg: "missing param: " + name}
				}
			}
			fallthrough
		case reflect.Map:
			pv := reflect.New(t)
			if err := p.decode(p.Named, pv.Interface(), "params"); err != nil {
				return nil, err
			}
			return []reflect.Value{pv.Elem()}, nil
		}
	}
	return nil, &ParamsError{Msg: fmt.Sprintf("named params not supported by %s", f.fn.Type())}
}

// requiredFields lists the json names of t's exported fields that are not
// marked omitempty.
func requiredFields(t reflect.Type) []string {
	var names []string
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		tag := sf.Tag.Get("json")
		name, opts, _ := strings.Cut(tag, ",")
		if name == "-" || strings.Contains(opts, "omitempty") {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		names = append(names, name)
	}
	return names
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	err, ok := v.Interface().(error)
	if !ok {
		return errors.New("object: result does not implement error")
	}
	return err
}
