package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mnehpets/rpcserve/endpoint"
)

// CORSProcessor sets cross-origin headers on every response, errors
// included, and answers preflight requests itself.
//
// Default configuration for NewCORSProcessor matches endpoint.CORSHeaders:
//   - Access-Control-Allow-Origin: *
//   - Access-Control-Allow-Methods: GET, POST, PATCH, PUT, DELETE
//   - Access-Control-Allow-Headers: X-Requested-With
type CORSProcessor struct {
	// AllowOrigin is the Access-Control-Allow-Origin value. Empty disables
	// the processor.
	AllowOrigin string

	// AllowMethods lists the methods sent in Access-Control-Allow-Methods.
	AllowMethods []string

	// AllowHeaders lists the request headers sent in
	// Access-Control-Allow-Headers.
	AllowHeaders []string

	// MaxAge is how long, in seconds, preflight results may be cached.
	// Zero omits the header.
	MaxAge int
}

// CORSOption is a functional option for configuring CORSProcessor.
type CORSOption func(*CORSProcessor)

// NewCORSProcessor creates a CORSProcessor with the permissive defaults.
func NewCORSProcessor(opts ...CORSOption) *CORSProcessor {
	p := &CORSProcessor{
		AllowOrigin:  endpoint.CORSHeaders["Access-Control-Allow-Origin"],
		AllowMethods: splitList(endpoint.CORSHeaders["Access-Control-Allow-Methods"]),
		AllowHeaders: splitList(endpoint.CORSHeaders["Access-Control-Allow-Headers"]),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithAllowOrigin restricts Access-Control-Allow-Origin to origin.
func WithAllowOrigin(origin string) CORSOption {
	return func(p *CORSProcessor) {
		p.AllowOrigin = origin
	}
}

// WithAllowHeaders replaces the allowed request headers.
func WithAllowHeaders(headers ...string) CORSOption {
	return func(p *CORSProcessor) {
		p.AllowHeaders = headers
	}
}

// WithMaxAge sets Access-Control-Max-Age for preflight responses.
func WithMaxAge(seconds int) CORSOption {
	return func(p *CORSProcessor) {
		p.MaxAge = seconds
	}
}

// Process implements endpoint.Processor.
func (p *CORSProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if p.AllowOrigin == "" {
		return next(w, r)
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", p.AllowOrigin)
	if len(p.AllowMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(p.AllowMethods, ", "))
	}
	if len(p.AllowHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(p.AllowHeaders, ", "))
	}

	// A preflight is an OPTIONS request carrying Access-Control-Request-Method.
	if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
		if p.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", strconv.Itoa(p.MaxAge))
		}
		return endpoint.Error(http.StatusNoContent, "", nil)
	}

	return next(w, r)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var _ endpoint.Processor = (*CORSProcessor)(nil)
