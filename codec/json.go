package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// JSONContentType is the media type of the JSON codec.
const JSONContentType = "application/json"

var errTrailingData = errors.New("codec: json: invalid character after top-level value")

// JSON is the default codec, built on encoding/json.
//
// HTML escaping is disabled on output. On input, numbers decode as
// json.Number when the destination is an interface, so large integer ids are
// echoed back exactly.
type JSON struct{}

func (JSON) ContentType() string { return JSONContentType }

func (JSON) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder always terminates the value with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (JSON) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	return nil
}
