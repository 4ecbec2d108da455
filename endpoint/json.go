package endpoint

import (
	"net/http"
	"strconv"

	"github.com/mnehpets/rpcserve/codec"
)

// CORSHeaders are the permissive cross-origin headers attached to every
// rendered object, so browser-based consoles on any origin can call the
// service.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, PATCH, PUT, DELETE",
	"Access-Control-Allow-Headers": "X-Requested-With",
}

// SetCORSHeaders copies CORSHeaders into h.
func SetCORSHeaders(h http.Header) {
	for k, v := range CORSHeaders {
		h.Set(k, v)
	}
}

// JSONRenderer encodes Value and writes it. JSON output is followed by a
// newline.
//
// Encoding goes through Codec, which defaults to codec.JSON; Content-Type is
// the codec's media type. CORSHeaders and an exact Content-Length are set on
// every successful render.
//
// The value is fully encoded before anything is written. If encoding fails,
// Render returns a 500 EndpointError and the response is untouched, so the
// handler can still send a clean error instead of a truncated body.
type JSONRenderer struct {
	Status int
	Value  any
	Codec  codec.Codec
}

func (jr *JSONRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	c := jr.Codec
	if c == nil {
		c = codec.Default
	}
	body, err := c.Marshal(jr.Value)
	if err != nil {
		return Error(http.StatusInternalServerError, "serialization error", err)
	}
	if c.ContentType() == codec.JSONContentType {
		body = append(body, '\n')
	}

	h := w.Header()
	h.Set("Content-Type", c.ContentType())
	SetCORSHeaders(h)
	h.Set("Content-Length", strconv.Itoa(len(body)))

	status := jr.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}
