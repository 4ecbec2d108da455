// Package endpoint provides the typed HTTP handler pipeline the web service
// is built on.
//
// A request passes through three phases:
//
//  1. Unmarshal: the EndpointHandler decodes the request (path, headers, body)
//     into a typed parameters struct using struct tags.
//  2. Endpoint: the EndpointFunc receives the decoded parameters, resolves the
//     work to do and returns a Renderer. It does not write to the response.
//  3. Render: the returned Renderer writes status, headers and body.
//
// Processors run before the EndpointFunc and may wrap the ResponseWriter,
// short-circuit the request or observe its outcome (access logging, CORS).
//
// Renderers:
//   - JSONRenderer: encodes a value through a codec, with CORS headers and an
//     exact Content-Length.
//   - StringRenderer, PlainRenderer: write a string body.
//   - NoContentRenderer: writes a status code with no body.
package endpoint

import (
	"errors"
	"io"
	"net/http"
	"strings"
)

// EndpointError is a client-visible error that maps directly to an HTTP status code.
type EndpointError struct {
	Status int
	// Message is a short, human-readable description suitable for an HTTP error body.
	Message string
	Cause   error
}

func (e *EndpointError) Error() string {
	if e == nil {
		return "endpoint: error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *EndpointError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Error creates a new EndpointError. An err that already is (or wraps) an
// EndpointError is returned unchanged.
func Error(status int, message string, err error) error {
	var ee *EndpointError
	if errors.As(err, &ee) {
		return err
	}
	return &EndpointError{Status: status, Message: message, Cause: err}
}

// MethodNotAllowed sets the Allow header and returns a 405 EndpointError.
func MethodNotAllowed(w http.ResponseWriter, allowed ...string) error {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	return Error(http.StatusMethodNotAllowed, "", nil)
}

// ErrorStatus reports the HTTP status and body message the handler writes
// for err. Errors that are not EndpointErrors map to 500 with err's text.
func ErrorStatus(err error) (int, string) {
	var ee *EndpointError
	if !errors.As(err, &ee) || ee == nil {
		return http.StatusInternalServerError, err.Error()
	}
	status := http.StatusInternalServerError
	if ee.Status >= 100 {
		status = ee.Status
	}
	if ee.Message == "" {
		return status, http.StatusText(status)
	}
	return status, ee.Message
}

// Renderer writes a response into an http.ResponseWriter.
//
// Renderers MUST call w.WriteHeader() and then write the body, if any. They
// may set headers before WriteHeader.
//
// A non-nil error from Render means the response could not be produced. If
// nothing was written yet, the handler turns it into an error response
// (HTTP 500 unless the error carries another status).
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// RendererFunc adapts a function to a Renderer.
type RendererFunc func(w http.ResponseWriter, r *http.Request) error

func (f RendererFunc) Render(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// Processor is middleware-style logic that runs before the Renderer.
//
// Protocol:
//   - Processors MUST call next(...), unless they intend to
//     short-circuit the request by returning an error.
//   - Processors MUST NOT call w.WriteHeader(...) or write the body. They may
//     pass a wrapped ResponseWriter to next.
//
// The error returned by next is the error the handler is about to render;
// processors that only observe it should return it unchanged.
type Processor interface {
	Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error

func (f ProcessorFunc) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	return f(w, r, next)
}

// EndpointFunc is the wrapped handler function type.
//
// It receives the response writer, the incoming request and the decoded
// params, and returns the Renderer for the response or an error. It must not
// write the response itself.
type EndpointFunc[P any] func(w http.ResponseWriter, r *http.Request, params P) (Renderer, error)

// EndpointHandler is the http.Handler wrapper for an EndpointFunc.
//
// It runs the processors in order, decodes params, calls Endpoint and
// invokes the returned Renderer.
type EndpointHandler[P any] struct {
	Endpoint   EndpointFunc[P]
	Processors []Processor
}

// Handler constructs an EndpointHandler.
//
// This helper exists to enable type inference for the params type P.
func Handler[P any](fn EndpointFunc[P], processors ...Processor) *EndpointHandler[P] {
	return &EndpointHandler[P]{
		Endpoint:   fn,
		Processors: processors,
	}
}

// HandleFunc adapts an EndpointFunc into an http.HandlerFunc.
func HandleFunc[P any](fn EndpointFunc[P], processors ...Processor) http.HandlerFunc {
	return Handler(fn, processors...).ServeHTTP
}

// ServeHTTP implements http.Handler.
func (h *EndpointHandler[P]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Endpoint == nil {
		http.Error(w, "endpoint: nil EndpointFunc", http.StatusInternalServerError)
		return
	}

	var run func(i int, w2 http.ResponseWriter, r2 *http.Request) error
	run = func(i int, w2 http.ResponseWriter, r2 *http.Request) error {
		if i < len(h.Processors) {
			if h.Processors[i] == nil {
				return errors.New("endpoint: nil processor")
			}
			return h.Processors[i].Process(w2, r2, func(w3 http.ResponseWriter, r3 *http.Request) error {
				return run(i+1, w3, r3)
			})
		}

		// P must be a struct type, or a pointer to a struct type.
		// This is enforced by Unmarshal at runtime.
		var params P
		if err := Unmarshal(r2, &params); err != nil {
			return err
		}
		renderer, err := h.Endpoint(w2, r2, params)
		if err != nil {
			return err
		}
		if renderer == nil {
			return errors.New("endpoint: nil renderer")
		}
		if c, ok := renderer.(io.Closer); ok {
			defer c.Close()
		}
		return renderer.Render(w2, r2)
	}

	if err := run(0, w, r); err != nil {
		status, message := ErrorStatus(err)
		http.Error(w, message, status)
	}
}
