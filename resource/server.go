package resource

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/mnehpets/rpcserve/codec"
	"github.com/mnehpets/rpcserve/endpoint"
	"github.com/mnehpets/rpcserve/jsonrpc"
)

// NotFoundMessage is the body of the 404 sent for unresolvable paths.
const NotFoundMessage = "No such child resource."

// Server serves a resource tree over HTTP. GET describes the node at the
// request path; POST dispatches a JSON-RPC body against its target.
type Server struct {
	Root *Node
	// RPC dispatches POST bodies. Nil means a zero jsonrpc.Server.
	RPC        *jsonrpc.Server
	Processors []endpoint.Processor
}

type params struct {
	ContentType string `header:"Content-Type"`
	Accept      string `header:"Accept"`
	Body        []byte `body:""`
}

// Handler returns the http.Handler for the whole tree. It serves every path
// it receives; mount it at "/" or behind http.StripPrefix.
func (s *Server) Handler() http.Handler {
	return endpoint.Handler(s.Endpoint, s.Processors...)
}

func (s *Server) Endpoint(w http.ResponseWriter, r *http.Request, p params) (endpoint.Renderer, error) {
	if s.Root == nil {
		return nil, errors.New("resource: server has no root")
	}
	segs, err := Segments(r.URL.EscapedPath())
	if err != nil {
		return nil, endpoint.Error(http.StatusBadRequest, "invalid path segment", err)
	}
	node, err := s.Root.Resolve(segs)
	if errors.Is(err, ErrNotFound) {
		return &endpoint.PlainRenderer{StringRenderer: endpoint.StringRenderer{
			Status: http.StatusNotFound,
			Body:   NotFoundMessage,
		}}, nil
	}
	if err != nil {
		return nil, err
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return &endpoint.JSONRenderer{Value: node.Describe(), Codec: describeCodec(p.Accept)}, nil
	case http.MethodPost:
		if node.IsRoot() {
			return nil, endpoint.MethodNotAllowed(w, http.MethodGet, http.MethodHead)
		}
		return s.rpc().Serve(r, node.Target(), p.ContentType, p.Body)
	}
	if node.IsRoot() {
		return nil, endpoint.MethodNotAllowed(w, http.MethodGet, http.MethodHead)
	}
	return nil, endpoint.MethodNotAllowed(w, http.MethodGet, http.MethodHead, http.MethodPost)
}

func (s *Server) rpc() *jsonrpc.Server {
	if s.RPC == nil {
		return &jsonrpc.Server{}
	}
	return s.RPC
}

// Segments splits an escaped URL path into decoded segments. "/" yields a
// single empty segment. A segment that does not decode to valid UTF-8 is an
// error.
func Segments(escapedPath string) ([]string, error) {
	raw := strings.Split(strings.TrimPrefix(escapedPath, "/"), "/")
	out := make([]string, len(raw))
	for i, s := range raw {
		seg, err := url.PathUnescape(s)
		if err != nil {
			return nil, err
		}
		if !utf8.ValidString(seg) {
			return nil, fmt.Errorf("resource: segment %q is not valid UTF-8", s)
		}
		out[i] = seg
	}
	return out, nil
}

// describeCodec picks CBOR when the client asks for it explicitly, JSON
// otherwise.
func describeCodec(accept string) codec.Codec {
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == codec.CBORContentType {
			return codec.CBOR{}
		}
	}
	return codec.JSON{}
}
