// Package codec encodes and decodes the values exchanged with remote callers.
//
// A Codec is the only place where bytes on the wire meet Go values. The
// resource tree uses it to describe targets and the JSON-RPC dispatcher uses
// it to decode request envelopes and bind parameters, so swapping the codec
// changes the wire format of the whole service.
//
// Two codecs are provided:
//   - JSON: the default, application/json.
//   - CBOR: application/cbor, deterministic encoding.
//
// Host types customise how they are rendered by implementing json.Marshaler
// or encoding.TextMarshaler; both codecs honour TextMarshaler.
package codec
