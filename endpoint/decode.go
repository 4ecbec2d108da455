package endpoint

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// DefaultFieldLimit bounds path and header values, in bytes.
var DefaultFieldLimit = 16 * 1024

// DefaultBodyLimit bounds request bodies, in bytes. RPC batches can be large
// but an unbounded read would let one client exhaust memory.
var DefaultBodyLimit = 16 << 20

// Unmarshal populates dst (must be a non-nil pointer to a struct) from the request.
//
// Supported struct tags:
//   - `path:"name"`: r.PathValue(name)
//   - `header:"Name"`: the request header (all values for slice fields)
//   - `body:""`: the raw request body, into a string or []byte field
//   - `maxLength:"n"`: maximum byte length of the value; "0" or "" for no limit
//
// A tag value of "-" skips the field. An empty name defaults to the field name
// lower-cased. Untagged non-struct fields are looked up as path values;
// untagged struct fields are decoded recursively.
//
// Missing values leave the field unchanged. Over-long path or header values
// are a 400; an over-long body is a 413.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}

	root := v.Elem()
	if root.Kind() == reflect.Pointer {
		if root.IsNil() {
			root.Set(reflect.New(root.Type().Elem()))
		}
		root = root.Elem()
	}
	if root.Kind() != reflect.Struct {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct (or pointer to struct)"))
	}

	d := &decoder{r: r}
	return d.decodeStruct(root)
}

type decoder struct {
	r        *http.Request
	bodyRead bool
}

func (d *decoder) decodeStruct(sv reflect.Value) error {
	t := sv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := sv.Field(i)
		defaultName := strings.ToLower(sf.Name)

		pathName, hasPath := tagName(sf, "path", defaultName)
		headerName, hasHeader := tagName(sf, "header", sf.Name)
		bodyName, hasBody := tagName(sf, "body", defaultName)
		if pathName == "-" || headerName == "-" || bodyName == "-" {
			continue
		}

		if !hasPath && !hasHeader && !hasBody {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && !reflect.PointerTo(ft).Implements(textUnmarshalerType) {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						fv.Set(reflect.New(ft))
					}
					fv = fv.Elem()
				}
				if err := d.decodeStruct(fv); err != nil {
					return err
				}
				continue
			}
			pathName, hasPath = defaultName, true
		}

		limit, err := fieldLimit(sf, hasBody)
		if err != nil {
			return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: field %s: %w", sf.Name, err))
		}

		switch {
		case hasBody:
			if err := d.decodeBody(fv, sf.Name, limit); err != nil {
				return err
			}
		case hasPath:
			if s := d.r.PathValue(pathName); s != "" {
				if err := setValues(fv, []string{s}, limit); err != nil {
					return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: path %q -> %s: %w", pathName, sf.Name, err))
				}
			}
		case hasHeader:
			if vs := d.r.Header.Values(headerName); len(vs) > 0 {
				if err := setValues(fv, vs, limit); err != nil {
					return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: header %q -> %s: %w", headerName, sf.Name, err))
				}
			}
		}
	}
	return nil
}

func (d *decoder) decodeBody(fv reflect.Value, fieldName string, limit int) error {
	if d.bodyRead {
		return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: multiple body fields (%s)", fieldName))
	}
	d.bodyRead = true
	if d.r.Body == nil || d.r.Body == http.NoBody {
		return nil
	}

	var src io.Reader = d.r.Body
	if limit > 0 {
		src = io.LimitReader(d.r.Body, int64(limit)+1)
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body: %w", err))
	}
	if limit > 0 && len(b) > limit {
		return Error(http.StatusRequestEntityTooLarge, "", fmt.Errorf("endpoint: decode: body exceeds %d bytes", limit))
	}

	switch {
	case fv.Kind() == reflect.String:
		fv.SetString(string(b))
	case fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.Uint8:
		fv.SetBytes(b)
	default:
		return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: body field %s must be string or []byte", fieldName))
	}
	return nil
}

func tagName(sf reflect.StructField, key, defaultName string) (string, bool) {
	val, ok := sf.Tag.Lookup(key)
	if !ok {
		return "", false
	}
	name := strings.TrimSpace(strings.Split(val, ",")[0])
	if name == "" {
		name = defaultName
	}
	return name, true
}

func fieldLimit(sf reflect.StructField, body bool) (int, error) {
	val, has := sf.Tag.Lookup("maxLength")
	if !has {
		if body {
			return DefaultBodyLimit, nil
		}
		return DefaultFieldLimit, nil
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("maxLength: invalid integer %q", val)
	}
	if n < 0 {
		return 0, errors.New("maxLength: must be >= 0")
	}
	return n, nil
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// setValues assigns values to v. Slice fields (other than []byte) receive one
// element per value; everything else takes the first.
func setValues(v reflect.Value, values []string, limit int) error {
	for _, s := range values {
		if limit > 0 && len(s) > limit {
			return fmt.Errorf("value exceeds max length %d", limit)
		}
	}
	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() != reflect.Uint8 {
		out := reflect.MakeSlice(v.Type(), len(values), len(values))
		for i, s := range values {
			if err := setScalar(out.Index(i), s); err != nil {
				return err
			}
		}
		v.Set(out)
		return nil
	}
	return setScalar(v, values[0])
}

func setScalar(v reflect.Value, s string) error {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return setScalar(v.Elem(), s)
	}
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(s))
		}
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Slice:
		v.SetBytes([]byte(s))
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return fmt.Errorf("unsupported kind %s", v.Kind())
	}
	return nil
}
