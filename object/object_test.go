package object

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type engine struct {
	Running bool `json:"running"`
	Slots   []string
	closed  bool
}

func (e *engine) Close(ctx context.Context) error {
	e.closed = true
	return nil
}

type stats struct {
	values map[string]int
}

func (s *stats) GetValue(key string) (int, error) {
	v, ok := s.values[key]
	if !ok {
		return 0, errors.New("no such stat: " + key)
	}
	return v, nil
}

func (s *stats) GetStats() map[string]int { return s.values }

type crawler struct {
	Engine   *engine         `json:"engine"`
	Stats    *stats          `json:"-"`
	Settings map[string]any  `json:"settings"`
	Spiders  map[int]string  `json:"spiders"`
	EngineID string          `json:"engine_id"`
	Extra    json.RawMessage `json:"extra,omitempty"`
	Nil      *engine         `json:"nil_engine"`
	secret   string
	Counters [2]int
	Hooks    map[string]func() string
}

func (c *crawler) Stop() {}

func newCrawler() *crawler {
	return &crawler{
		Engine:   &engine{Running: true, Slots: []string{"a", "b"}},
		Stats:    &stats{values: map[string]int{"pages": 3}},
		Settings: map[string]any{"BOT_NAME": "bot"},
		Spiders:  map[int]string{1: "first"},
		EngineID: "e1",
		secret:   "s",
		Counters: [2]int{4, 5},
	}
}

func TestAttr_Resolution(t *testing.T) {
	c := newCrawler()
	tests := []struct {
		name   string
		target any
		attr   string
		want   any
		wantOK bool
	}{
		{"jsonTag", c, "engine", c.Engine, true},
		{"goName", c, "Engine", c.Engine, true},
		{"snakeTag", c, "engine_id", "e1", true},
		{"normalizedGoName", c, "engineid", "e1", true},
		{"jsonDashStillByGoName", c, "Stats", nil, false},
		{"unexported", c, "secret", nil, false},
		{"underscore", c, "_secret", nil, false},
		{"empty", c, "", nil, false},
		{"missing", c, "nonexistent_attr", nil, false},
		{"mapKey", c.Settings, "BOT_NAME", "bot", true},
		{"mapMissing", c.Settings, "NOPE", nil, false},
		{"intMapKey", c.Spiders, "1", "first", true},
		{"intMapBadKey", c.Spiders, "x", nil, false},
		{"sliceIndex", c.Engine.Slots, "1", "b", true},
		{"sliceOutOfRange", c.Engine.Slots, "2", nil, false},
		{"sliceNegative", c.Engine.Slots, "-1", nil, false},
		{"arrayIndex", c.Counters, "0", 4, true},
		{"nilTarget", nil, "x", nil, false},
		{"scalar", 42, "x", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Attr(tt.target, tt.attr)
			if ok != tt.wantOK {
				t.Fatalf("got ok=%v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestAttr_JSONDashHidesFieldButNotMethods(t *testing.T) {
	c := newCrawler()
	if _, ok := Attr(c, "stats"); ok {
		t.Fatal("field tagged json:\"-\" should not resolve")
	}
	if _, ok := Attr(c, "stop"); !ok {
		t.Fatal("method stop should resolve")
	}
}

func TestAttr_NilPointerField(t *testing.T) {
	c := newCrawler()
	got, ok := Attr(c, "nil_engine")
	if !ok {
		t.Fatal("nil pointer field should resolve")
	}
	if _, ok := Attr(got, "running"); ok {
		t.Fatal("attribute of nil pointer should not resolve")
	}
}

func TestAttr_MethodsAreCallable(t *testing.T) {
	c := newCrawler()
	for _, name := range []string{"stop", "Stop"} {
		v, ok := Attr(c, name)
		if !ok {
			t.Fatalf("%s: not found", name)
		}
		if _, ok := AsCallable(v); !ok {
			t.Fatalf("%s: not callable", name)
		}
	}

	v, ok := Attr(c.Stats, "get_stats")
	if !ok {
		t.Fatal("get_stats: not found")
	}
	fn, _ := AsCallable(v)
	got, err := fn.Call(context.Background(), Params{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.(map[string]int)["pages"] != 3 {
		t.Fatalf("got %v", got)
	}
}

func TestAttr_MethodDescribesItselfAsSignature(t *testing.T) {
	v, _ := Attr(newCrawler().Engine, "close")
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got := string(b); got != `"func(context.Context) error"` {
		t.Fatalf("got %s", got)
	}
}

type custom struct {
	Hidden string
}

func (c custom) Attr(name string) (any, bool) {
	if name == "answer" {
		return 42, true
	}
	return nil, false
}

func TestAttr_AttributerTakesPrecedence(t *testing.T) {
	if got, ok := Attr(custom{Hidden: "x"}, "answer"); !ok || got != 42 {
		t.Fatalf("got %v, %v", got, ok)
	}
	if _, ok := Attr(custom{Hidden: "x"}, "Hidden"); ok {
		t.Fatal("reflection should not be consulted for an Attributer")
	}
}

func TestPath(t *testing.T) {
	c := newCrawler()
	if got, ok := Path(c, "engine.slots.0"); !ok || got != "a" {
		t.Fatalf("got %v, %v", got, ok)
	}
	if _, ok := Path(c, "engine.close"); !ok {
		t.Fatal("engine.close should resolve")
	}
	for _, p := range []string{"engine.nope", "engine..close", ".engine", "engine."} {
		if _, ok := Path(c, p); ok {
			t.Errorf("%q should not resolve", p)
		}
	}
}

func TestExportedName(t *testing.T) {
	tests := map[string]string{
		"stop":         "Stop",
		"Stop":         "Stop",
		"get_stats":    "GetStats",
		"getStats":     "GetStats",
		"engine__slot": "EngineSlot",
	}
	for in, want := range tests {
		if got := exportedName(in); got != want {
			t.Errorf("exportedName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAsCallable(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"int", 1, false},
		{"func", func() {}, true},
		{"nilFunc", (func())(nil), false},
		{"resultAndError", func() (int, error) { return 0, nil }, true},
		{"badSecondResult", func() (int, int) { return 0, 0 }, false},
		{"tooManyResults", func() (int, int, error) { return 0, 0, nil }, false},
		{"callable", Func(func() {}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := AsCallable(tt.v); ok != tt.want {
				t.Errorf("got %v, want %v", ok, tt.want)
			}
		})
	}
}

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c,omitempty"`
}

func TestCall_Signatures(t *testing.T) {
	ctx := context.WithValue(context.Background(), struct{}{}, "v")
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		fn      Callable
		params  Params
		want    any
		wantErr error
	}{
		{"noReturn", Func(func() {}), Params{}, nil, nil},
		{"resultOnly", Func(func() string { return "r" }), Params{}, "r", nil},
		{"errorOnlyNil", Func(func() error { return nil }), Params{}, nil, nil},
		{"errorOnly", Func(func() error { return errBoom }), Params{}, nil, errBoom},
		{"resultAndError", Func(func() (string, error) { return "x", errBoom }), Params{}, "x", errBoom},
		{"positional", Func(func(a, b int) int { return a + b }), Params{Positional: []any{json.Number("5"), json.Number("3")}}, 8, nil},
		{"withContext", Func(func(c context.Context, s string) string { return c.Value(struct{}{}).(string) + s }), Params{Positional: []any{"!"}}, "v!", nil},
		{"variadic", Func(func(xs ...int) int { return len(xs) }), Params{Positional: []any{1, 2, 3}}, 3, nil},
		{"variadicEmpty", Func(func(prefix string, xs ...int) int { return len(xs) }), Params{Positional: []any{"p"}}, 0, nil},
		{"namedBound", Func(func(a, b int) int { return a - b }, "a", "b"), Params{Named: map[string]any{"b": 1, "a": 10}}, 9, nil},
		{"namedStruct", Func(func(p addArgs) int { return p.A + p.B + p.C }), Params{Named: map[string]any{"a": 1, "b": 2}}, 3, nil},
		{"namedStructPointer", Func(func(p *addArgs) int { return p.A * p.B }), Params{Named: map[string]any{"a": 4, "b": 2}}, 8, nil},
		{"namedMap", Func(func(m map[string]int) int { return m["x"] }), Params{Named: map[string]any{"x": 7}}, 7, nil},
		{"namedEmptyNoArgs", Func(func() string { return "ok" }), Params{Named: map[string]any{}}, "ok", nil},
		{"positionalStruct", Func(func(p addArgs) int { return p.A }), Params{Positional: []any{map[string]any{"a": 6, "b": 0}}}, 6, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn.Call(ctx, tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got err %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCall_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		fn     Callable
		params Params
	}{
		{"tooFew", Func(func(a, b int) int { return 0 }), Params{Positional: []any{1}}},
		{"tooMany", Func(func(a int) int { return 0 }), Params{Positional: []any{1, 2}}},
		{"wrongType", Func(func(a int) int { return 0 }), Params{Positional: []any{"not a number"}}},
		{"variadicTooFew", Func(func(a string, xs ...int) int { return 0 }), Params{}},
		{"namedMissing", Func(func(a, b int) int { return 0 }, "a", "b"), Params{Named: map[string]any{"a": 1}}},
		{"namedUnexpected", Func(func(a int) int { return 0 }, "a"), Params{Named: map[string]any{"a": 1, "z": 2}}},
		{"namedUnsupported", Func(func(a, b int) int { return 0 }), Params{Named: map[string]any{"a": 1, "b": 2}}},
		{"namedToNoArgs", Func(func() {}), Params{Named: map[string]any{"a": 1}}},
		{"namedStructMissingRequired", Func(func(p addArgs) int { return 0 }), Params{Named: map[string]any{"a": 1}}},
		{"namedStructWrongType", Func(func(p addArgs) int { return 0 }), Params{Named: map[string]any{"a": "x", "b": 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn.Call(context.Background(), tt.params)
			var pe *ParamsError
			if !errors.As(err, &pe) {
				t.Fatalf("got %v, want *ParamsError", err)
			}
		})
	}
}

func TestFunc_PanicsOnBadInput(t *testing.T) {
	tests := []struct {
		name  string
		fn    any
		names []string
	}{
		{"notFunc", 3, nil},
		{"badSignature", func() (int, int) { return 0, 0 }, nil},
		{"nameCount", func(a, b int) {}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			Func(tt.fn, tt.names...)
		})
	}
}

func TestParams_Helpers(t *testing.T) {
	p := Params{Positional: []any{json.Number("2")}}
	var n int
	if err := p.Arg(0, &n); err != nil || n != 2 {
		t.Fatalf("Arg: %d, %v", n, err)
	}
	if err := p.Arg(1, &n); err == nil {
		t.Fatal("expected error for missing positional param")
	}
	if p.IsNamed() || p.Len() != 1 {
		t.Fatalf("unexpected form: named=%v len=%d", p.IsNamed(), p.Len())
	}

	named := Params{Named: map[string]any{"k": "v"}}
	var s string
	if ok, err := named.Lookup("k", &s); !ok || err != nil || s != "v" {
		t.Fatalf("Lookup: %q, %v, %v", s, ok, err)
	}
	if ok, _ := named.Lookup("missing", &s); ok {
		t.Fatal("expected missing param")
	}
}

func TestAttr_FuncsAreLeaves(t *testing.T) {
	v, _ := Attr(newCrawler(), "stop")
	for _, name := range []string{"call", "Call", "marshal_text"} {
		if _, ok := Attr(v, name); ok {
			t.Errorf("%s resolved on a func", name)
		}
	}
}
