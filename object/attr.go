package object

import (
	"reflect"
	"strconv"
	"strings"
)

// Attributer is implemented by values that expose their own named children.
// When a target implements it, reflection is not consulted.
type Attributer interface {
	Attr(name string) (any, bool)
}

// Attr looks up name on target.
//
// Methods are returned as Callables bound to target. Fields, map entries and
// elements are returned as they currently are; the lookup takes no locks and
// reflects whatever state target exposes at the time of the call.
func Attr(target any, name string) (any, bool) {
	if target == nil || name == "" || name[0] == '_' {
		return nil, false
	}
	switch t := target.(type) {
	case Attributer:
		return t.Attr(name)
	case *funcValue:
		// Wrapped funcs are leaves.
		return nil, false
	}
	return reflectAttr(reflect.ValueOf(target), name)
}

// Path looks up a dotted name such as "engine.slot.close" one segment at a
// time.
func Path(target any, dotted string) (any, bool) {
	cur := target
	for _, seg := range strings.Split(dotted, ".") {
		next, ok := Attr(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func reflectAttr(v reflect.Value, name string) (any, bool) {
	if m, ok := lookupMethod(v, name); ok {
		return m, true
	}

	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return lookupField(v, name)
	case reflect.Map:
		return lookupKey(v, name)
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= v.Len() {
			return nil, false
		}
		return v.Index(i).Interface(), true
	}
	return nil, false
}

func lookupMethod(v reflect.Value, name string) (any, bool) {
	if !v.IsValid() || v.NumMethod() == 0 {
		return nil, false
	}
	t := v.Type()
	idx := -1
	if m, ok := t.MethodByName(exportedName(name)); ok {
		idx = m.Index
	} else {
		key := normalize(name)
		for i := 0; i < t.NumMethod(); i++ {
			if normalize(t.Method(i).Name) == key {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return nil, false
	}
	fn, err := newFunc(v.Method(idx), nil)
	if err != nil {
		return nil, false
	}
	return fn, true
}

func lookupField(v reflect.Value, name string) (any, bool) {
	fields := reflect.VisibleFields(v.Type())
	match := func(eq func(f reflect.StructField) bool) (any, bool) {
		for _, f := range fields {
			if !f.IsExported() || f.Anonymous && f.Type.Kind() == reflect.Struct {
				continue
			}
			tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if tag == "-" || !eq(f) {
				continue
			}
			fv, err := v.FieldByIndexErr(f.Index)
			if err != nil {
				return nil, false
			}
			return fv.Interface(), true
		}
		return nil, false
	}

	if val, ok := match(func(f reflect.StructField) bool {
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return tag == name || f.Name == name || f.Name == exportedName(name)
	}); ok {
		return val, true
	}
	key := normalize(name)
	return match(func(f reflect.StructField) bool {
		return normalize(f.Name) == key
	})
}

func lookupKey(v reflect.Value, name string) (any, bool) {
	kt := v.Type().Key()
	var key reflect.Value
	switch kt.Kind() {
	case reflect.String:
		key = reflect.ValueOf(name).Convert(kt)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(name, 10, kt.Bits())
		if err != nil {
			return nil, false
		}
		key = reflect.New(kt).Elem()
		key.SetInt(n)
	default:
		return nil, false
	}
	mv := v.MapIndex(key)
	if !mv.IsValid() {
		return nil, false
	}
	return mv.Interface(), true
}

// exportedName maps snake_case and lowerCamel names to the Go identifier
// they most likely denote: "get_stats" -> "GetStats", "stop" -> "Stop".
func exportedName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalize folds case and drops underscores, so "engine_id", "engineID"
// and "EngineId" compare equal.
func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}
