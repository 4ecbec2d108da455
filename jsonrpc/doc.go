// Package jsonrpc dispatches JSON-RPC requests against a live Go value.
//
// It accepts both JSON-RPC 1.0 and 2.0 envelopes (https://www.jsonrpc.org/specification),
// single requests and batches. A request's method is looked up on the call
// target as a dotted attribute path (see package object), so any exported
// method or func-valued field reachable from the target can be invoked:
//
//	var s jsonrpc.Server
//	reply := s.Call(ctx, crawler, []byte(`{"jsonrpc":"2.0","method":"engine.pause","id":1}`))
//
// # Params
//
// An array of params is bound to the callable's arguments in order. An
// object is bound by name, either to names given with object.Func or to a
// single struct (or map) argument:
//
//	type AddParams struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//
//	func (m *Math) Add(ctx context.Context, p AddParams) (int, error)
//
// # Envelopes
//
// Requests carrying "jsonrpc": "2.0" get 2.0 responses, with exactly one of
// result or error. Other requests get 1.0 responses, where result and error
// are both present and one of them is null. Parse errors and empty batches
// are reported with the 2.0 envelope and a null id.
//
// A request without an id, or with a null id, is a notification. It is
// invoked and its response discarded, even on error. A batch made only of
// notifications, like a single notification, produces no reply at all; over
// HTTP that is a 204.
//
// # Errors
//
// Standard error codes are defined as constants:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeInternalError (-32603)
//
// A callable may return an *Error to pick its own code:
//
//	return 0, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "division by zero")
//
// Any other returned error, and any panic, becomes CodeInternalError with
// data {"type": <Go type>, "message": <text>}. Panics never reach the HTTP
// layer.
//
// # HTTP
//
// Server.Handler serves a fixed target at a single URL, POST only:
//
//	http.Handle("/rpc", s.Handler(&Math{}, processors...))
//
// The resource package serves a whole tree of targets instead.
package jsonrpc
