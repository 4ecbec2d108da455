package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBORContentType is the media type of the CBOR codec.
const CBORContentType = "application/cbor"

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error

	// Core Deterministic Encoding: the same value always yields the same
	// bytes, which keeps repeated GETs byte-identical.
	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	cborEnc, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	cborDec, err = cbor.DecOptions{
		// RPC envelopes are inspected as map[string]any; the CBOR default
		// of map[interface{}]interface{} would not match.
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR encodes values as RFC 8949 CBOR using fxamacker/cbor.
type CBOR struct{}

func (CBOR) ContentType() string { return CBORContentType }

func (CBOR) Marshal(v any) ([]byte, error) {
	return cborEnc.Marshal(v)
}

func (CBOR) Unmarshal(data []byte, v any) error {
	return cborDec.Unmarshal(data, v)
}
