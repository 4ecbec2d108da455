package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mnehpets/rpcserve/endpoint"
)

// RequestLogger logs every request at debug level, and requests answered
// with a server error at error level.
type RequestLogger struct {
	Logger *zap.Logger
}

// Process implements endpoint.Processor.
func (l *RequestLogger) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if l.Logger == nil {
		return next(w, r)
	}
	start := time.Now()
	rr := &responseRecorder{ResponseWriter: w}
	err := next(rr, r)
	status, length := rr.outcome(err)

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Int("bytes", length),
		zap.Duration("duration", time.Since(start)),
	}
	if status >= http.StatusInternalServerError {
		l.Logger.Error("request failed", append(fields, zap.Error(err))...)
	} else {
		l.Logger.Debug("request", fields...)
	}
	return err
}

var _ endpoint.Processor = (*RequestLogger)(nil)
