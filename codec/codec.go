package codec

import "mime"

// Codec converts between Go values and their wire representation.
type Codec interface {
	// ContentType is the media type written in the Content-Type header.
	ContentType() string
	// Marshal encodes v. The result carries no trailing newline.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes data into v, which must be a non-nil pointer.
	Unmarshal(data []byte, v any) error
}

// Default is the codec used when none is configured.
var Default Codec = JSON{}

// ForContentType picks the codec for a request Content-Type header value.
// Only an explicit application/cbor selects CBOR; any other value, including
// an empty or malformed one, selects JSON.
func ForContentType(contentType string) Codec {
	mt, _, err := mime.ParseMediaType(contentType)
	if err == nil && mt == CBORContentType {
		return CBOR{}
	}
	return JSON{}
}

// Convert re-encodes src, typically a value produced by Unmarshal into an
// any, into the typed destination dst using c.
func Convert(c Codec, src any, dst any) error {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(src)
	if err != nil {
		return err
	}
	return c.Unmarshal(b, dst)
}
