package endpoint

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type headerPreprocessor struct {
	Key   string
	Value string
}

func (hp headerPreprocessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if hp.Key != "" {
		w.Header().Set(hp.Key, hp.Value)
	}
	return next(w, r)
}

func TestHandler_Constructors(t *testing.T) {
	h1 := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return &StringRenderer{Body: "h1"}, nil
	})
	hf := HandleFunc(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return &StringRenderer{Body: "hf"}, nil
	})
	type MyParams struct {
		Val string
	}
	h2 := EndpointHandler[MyParams]{
		Endpoint: func(_ http.ResponseWriter, _ *http.Request, p MyParams) (Renderer, error) {
			return &StringRenderer{Body: "h2"}, nil
		},
	}

	req := httptest.NewRequest("GET", "/", nil)

	rec1 := httptest.NewRecorder()
	h1.ServeHTTP(rec1, req)
	if rec1.Body.String() != "h1" {
		t.Errorf("Handler failed")
	}

	rec2 := httptest.NewRecorder()
	hf(rec2, req)
	if rec2.Body.String() != "hf" {
		t.Errorf("HandleFunc failed")
	}

	rec3 := httptest.NewRecorder()
	h2.ServeHTTP(rec3, req)
	if rec3.Body.String() != "h2" {
		t.Errorf("EndpointHandler failed")
	}
}

func TestHandler_MultiplePreprocessors(t *testing.T) {
	var order []string
	mk := func(name string) Processor {
		return ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
			order = append(order, name)
			return next(w, r)
		})
	}
	h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		order = append(order, "endpoint")
		return &StringRenderer{Body: "ok"}, nil
	}, mk("a"), headerPreprocessor{Key: "X-Test", Value: "1"}, mk("b"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "a,b,endpoint" {
		t.Fatalf("expected order a,b,endpoint, got %s", got)
	}
	if got := rec.Header().Get("X-Test"); got != "1" {
		t.Fatalf("expected X-Test header from processor, got %q", got)
	}
}

func TestHandler_NilEndpoint_Is500(t *testing.T) {
	h := &EndpointHandler[struct{}]{}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestHandler_NilRenderer_Is500(t *testing.T) {
	h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return nil, nil
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestHandler_NilPreprocessor_Is500(t *testing.T) {
	h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return &StringRenderer{Body: "ok"}, nil
	}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestHandler_EndpointError_FromProcessor_IsRendered(t *testing.T) {
	called := false
	p := ProcessorFunc(func(_ http.ResponseWriter, _ *http.Request, _ func(http.ResponseWriter, *http.Request) error) error {
		return Error(http.StatusForbidden, "nope", nil)
	})
	h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		called = true
		return &StringRenderer{Body: "ok"}, nil
	}, p)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if called {
		t.Fatal("endpoint should not run after processor error")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "nope" {
		t.Fatalf("expected body %q, got %q", "nope", got)
	}
}

func TestHandler_NonEndpointError_Is500(t *testing.T) {
	h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return nil, errors.New("boom")
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "boom" {
		t.Fatalf("expected body %q, got %q", "boom", got)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"plain", errors.New("x"), http.StatusInternalServerError, "x"},
		{"endpoint", Error(http.StatusNotFound, "gone", nil), http.StatusNotFound, "gone"},
		{"emptyMessage", Error(http.StatusBadRequest, "", nil), http.StatusBadRequest, "Bad Request"},
		{"invalidStatus", Error(7, "odd", nil), http.StatusInternalServerError, "odd"},
		{"wrapped", fmt.Errorf("ctx: %w", Error(http.StatusConflict, "c", nil)), http.StatusConflict, "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := ErrorStatus(tt.err)
			if status != tt.wantStatus || msg != tt.wantMsg {
				t.Errorf("got (%d, %q), want (%d, %q)", status, msg, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestError_DoesNotDoubleWrap(t *testing.T) {
	inner := Error(http.StatusTeapot, "tea", nil)
	if got := Error(http.StatusInternalServerError, "outer", inner); got != inner {
		t.Fatalf("expected the inner EndpointError back, got %v", got)
	}
}

func TestEndpointError_Unwrap_PreservesCause(t *testing.T) {
	cause := errors.New("cause")
	err := Error(http.StatusBadRequest, "bad", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the cause")
	}
}

func TestMethodNotAllowed_SetsAllowHeader(t *testing.T) {
	h := Handler(func(w http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return nil, MethodNotAllowed(w, http.MethodGet, http.MethodPost)
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != "GET, POST" {
		t.Fatalf("expected Allow %q, got %q", "GET, POST", got)
	}
}

type closingRenderer struct {
	closed bool
}

func (c *closingRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	w.WriteHeader(http.StatusOK)
	return nil
}

func (c *closingRenderer) Close() error {
	c.closed = true
	return nil
}

func TestRendererCleanup(t *testing.T) {
	cr := &closingRenderer{}
	h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return cr, nil
	})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !cr.closed {
		t.Fatal("expected renderer to be closed")
	}
}
