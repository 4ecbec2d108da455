package jsonrpc

import (
	"net/http"

	"github.com/mnehpets/rpcserve/codec"
	"github.com/mnehpets/rpcserve/endpoint"
)

// Renderer returns the HTTP rendering of r encoded with c: the reply with
// status 200, or an empty 204 when there is nothing to send back.
func (r *Reply) Renderer(c codec.Codec) endpoint.Renderer {
	if r.Empty() {
		return &endpoint.NoContentRenderer{Status: http.StatusNoContent}
	}
	return &endpoint.JSONRenderer{Value: r.Value(), Codec: c}
}

// rpcParams captures the raw request body. Parsing is deferred to Call, as
// JSON-RPC reports malformed bodies in-band rather than as HTTP errors.
type rpcParams struct {
	ContentType string `header:"Content-Type"`
	Body        []byte `body:""`
}

// Handler serves target at a single URL. Only POST is accepted; the codec
// is chosen from the request Content-Type.
func (s *Server) Handler(target any, processors ...endpoint.Processor) http.Handler {
	return endpoint.Handler(func(w http.ResponseWriter, r *http.Request, p rpcParams) (endpoint.Renderer, error) {
		if r.Method != http.MethodPost {
			return nil, endpoint.MethodNotAllowed(w, http.MethodPost)
		}
		return s.Serve(r, target, p.ContentType, p.Body)
	}, processors...)
}

// Serve runs body against target and returns the renderer for the reply.
// The body is CBOR when contentType says so and JSON otherwise; a body that
// does not parse is reported in-band as a parse error.
func (s *Server) Serve(r *http.Request, target any, contentType string, body []byte) (endpoint.Renderer, error) {
	c := codec.ForContentType(contentType)
	per := *s
	per.Codec = c
	return per.Call(r.Context(), target, body).Renderer(c), nil
}
