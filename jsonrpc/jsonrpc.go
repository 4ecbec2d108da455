package jsonrpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mnehpets/rpcserve/codec"
	"github.com/mnehpets/rpcserve/object"
)

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Version is the protocol version written by 2.0 responses.
const Version = "2.0"

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func NewParseError(data any) *Error {
	return &Error{Code: CodeParseError, Message: "Parse error", Data: data}
}

func NewInvalidRequestError(data any) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid Request", Data: data}
}

func NewMethodNotFoundError(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: "Method not found", Data: method}
}

func NewInvalidParamsError(data any) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: data}
}

func NewInternalError(data any) *Error {
	return &Error{Code: CodeInternalError, Message: "Internal error", Data: data}
}

// Response is the outcome of one request. Exactly one of Result and Error is
// meaningful: Error non-nil means failure.
type Response struct {
	// Version is "2.0" for 2.0 requests and empty for 1.0.
	Version string
	Result  any
	Error   *Error
	ID      any
}

type success struct {
	Version string `json:"jsonrpc"`
	Result  any    `json:"result"`
	ID      any    `json:"id"`
}

type failure struct {
	Version string `json:"jsonrpc"`
	Error   *Error `json:"error"`
	ID      any    `json:"id"`
}

type legacy struct {
	Result any    `json:"result"`
	Error  *Error `json:"error"`
	ID     any    `json:"id"`
}

// Envelope returns the wire form of r, ready for a codec.
func (r *Response) Envelope() any {
	switch {
	case r.Version == "":
		if r.Error != nil {
			return legacy{Error: r.Error, ID: r.ID}
		}
		return legacy{Result: r.Result, ID: r.ID}
	case r.Error != nil:
		return failure{Version: r.Version, Error: r.Error, ID: r.ID}
	default:
		return success{Version: r.Version, Result: r.Result, ID: r.ID}
	}
}

// Reply is everything a request body produced. A nil Reply, or one with no
// responses from a batch, means nothing is sent back.
type Reply struct {
	// Batch is true when the body was an array.
	Batch     bool
	Responses []*Response
}

// Empty reports whether there is nothing to send back.
func (r *Reply) Empty() bool {
	return r == nil || len(r.Responses) == 0
}

// Value returns the wire form of the reply: a single envelope, an array of
// envelopes, or nil when the reply is empty.
func (r *Reply) Value() any {
	if r.Empty() {
		return nil
	}
	if !r.Batch {
		return r.Responses[0].Envelope()
	}
	out := make([]any, len(r.Responses))
	for i, resp := range r.Responses {
		out[i] = resp.Envelope()
	}
	return out
}

// Server dispatches request bodies against call targets. The zero value is
// ready to use: JSON codec, no logging, sequential batches.
type Server struct {
	// Codec decodes request bodies and binds params. Nil means codec.Default.
	Codec codec.Codec
	// Logger receives recovered panics. Nil means no logging.
	Logger *zap.Logger
	// Concurrency bounds how many entries of a batch run at once. Values
	// below 2 run batches sequentially.
	Concurrency int
}

func (s *Server) codec() codec.Codec {
	if s.Codec == nil {
		return codec.Default
	}
	return s.Codec
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Call decodes body and runs every request in it against target. It returns
// nil when body held only notifications.
func (s *Server) Call(ctx context.Context, target any, body []byte) *Reply {
	var decoded any
	if err := s.codec().Unmarshal(body, &decoded); err != nil {
		return &Reply{Responses: []*Response{{Version: Version, Error: NewParseError(nil)}}}
	}

	switch v := decoded.(type) {
	case map[string]any:
		resp := s.handle(ctx, target, v)
		if resp == nil {
			return nil
		}
		return &Reply{Responses: []*Response{resp}}
	case []any:
		if len(v) == 0 {
			return &Reply{Responses: []*Response{{Version: Version, Error: NewInvalidRequestError("empty batch")}}}
		}
		responses := s.batch(ctx, target, v)
		if len(responses) == 0 {
			return nil
		}
		return &Reply{Batch: true, Responses: responses}
	default:
		return &Reply{Responses: []*Response{{Version: Version, Error: NewInvalidRequestError(nil)}}}
	}
}

// batch runs the requests and returns the non-notification responses in
// input order.
func (s *Server) batch(ctx context.Context, target any, reqs []any) []*Response {
	slots := make([]*Response, len(reqs))
	if s.Concurrency < 2 {
		for i, raw := range reqs {
			slots[i] = s.handleRaw(ctx, target, raw)
		}
	} else {
		sem := make(chan struct{}, s.Concurrency)
		var wg sync.WaitGroup
		for i, raw := range reqs {
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				slots[i] = s.handleRaw(ctx, target, raw)
			}()
		}
		wg.Wait()
	}

	out := make([]*Response, 0, len(slots))
	for _, resp := range slots {
		if resp != nil {
			out = append(out, resp)
		}
	}
	return out
}

func (s *Server) handleRaw(ctx context.Context, target any, raw any) *Response {
	req, ok := raw.(map[string]any)
	if !ok {
		return &Response{Version: Version, Error: NewInvalidRequestError(nil)}
	}
	return s.handle(ctx, target, req)
}

// handle runs one request. It returns nil for notifications.
func (s *Server) handle(ctx context.Context, target any, req map[string]any) *Response {
	resp := &Response{ID: req["id"]}
	if v, _ := req["jsonrpc"].(string); v == Version {
		resp.Version = Version
	}
	resp.Result, resp.Error = s.invoke(ctx, target, req)

	if id, ok := req["id"]; !ok || id == nil {
		return nil
	}
	return resp
}

func (s *Server) invoke(ctx context.Context, target any, req map[string]any) (result any, rpcErr *Error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger().Error("jsonrpc: panic in method",
				zap.Any("method", req["method"]),
				zap.Any("panic", r),
				zap.Stack("stack"))
			result, rpcErr = nil, NewInternalError(describe(r))
		}
	}()

	method, ok := req["method"].(string)
	if !ok {
		return nil, NewInvalidRequestError("method must be a string")
	}

	v, ok := object.Path(target, method)
	if !ok {
		return nil, NewMethodNotFoundError(method)
	}
	fn, ok := object.AsCallable(v)
	if !ok {
		return nil, NewMethodNotFoundError(method)
	}

	params := object.Params{Codec: s.codec()}
	switch p := req["params"].(type) {
	case nil:
	case []any:
		params.Positional = p
	case map[string]any:
		params.Named = p
	default:
		return nil, NewInvalidParamsError("params must be an array or an object")
	}

	res, err := fn.Call(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

// mapError converts a callable's error to a JSON-RPC error. *Error keeps its
// code; *object.ParamsError becomes CodeInvalidParams; anything else is
// CodeInternalError.
func mapError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var pe *object.ParamsError
	if errors.As(err, &pe) {
		return NewInvalidParamsError(pe.Error())
	}
	return NewInternalError(describe(err))
}

func describe(v any) map[string]string {
	msg := fmt.Sprint(v)
	if err, ok := v.(error); ok {
		msg = err.Error()
	}
	return map[string]string{"type": fmt.Sprintf("%T", v), "message": msg}
}

// CallServer runs body against target with a default Server and encodes the
// reply with c (nil means codec.Default). It returns nil bytes when there is
// nothing to send back.
func CallServer(ctx context.Context, target any, body []byte, c codec.Codec) ([]byte, error) {
	s := &Server{Codec: c}
	reply := s.Call(ctx, target, body)
	if reply.Empty() {
		return nil, nil
	}
	return s.codec().Marshal(reply.Value())
}
