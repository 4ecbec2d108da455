package middleware

import (
	"net/http"

	"github.com/mnehpets/rpcserve/endpoint"
)

// responseRecorder observes the status and size of what the rest of the
// chain writes.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (rr *responseRecorder) WriteHeader(status int) {
	if rr.status == 0 {
		rr.status = status
	}
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.written += n
	return n, err
}

func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

// outcome reports the status and body length of the response, including an
// error response the handler is about to write for err.
func (rr *responseRecorder) outcome(err error) (status, length int) {
	if rr.status != 0 {
		return rr.status, rr.written
	}
	if err != nil {
		status, msg := endpoint.ErrorStatus(err)
		if !bodyAllowed(status) {
			return status, 0
		}
		// http.Error terminates the message with a newline.
		return status, len(msg) + 1
	}
	return http.StatusOK, rr.written
}

// bodyAllowed reports whether a response with status may carry a body.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
