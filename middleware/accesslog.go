package middleware

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mnehpets/rpcserve/endpoint"
)

// AccessLogTimeFormat is the timestamp layout of the combined log format.
const AccessLogTimeFormat = "02/Jan/2006:15:04:05 -0700"

// AccessLogProcessor writes one line per request in the combined log format:
//
//	"ip" - - [time] "METHOD URI PROTO" status length "referer" "agent"
type AccessLogProcessor struct {
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	now    func() time.Time
}

// NewAccessLog returns a processor that writes to out.
func NewAccessLog(out io.Writer) *AccessLogProcessor {
	return &AccessLogProcessor{out: out, now: time.Now}
}

// OpenAccessLog appends to the file at path, creating it if needed. Close
// releases the file.
func OpenAccessLog(path string) (*AccessLogProcessor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("middleware: open access log: %w", err)
	}
	p := NewAccessLog(f)
	p.closer = f
	return p, nil
}

// Close closes the underlying file, if the processor opened one.
func (p *AccessLogProcessor) Close() error {
	if p == nil || p.closer == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closer.Close()
}

// Process implements endpoint.Processor.
func (p *AccessLogProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	rr := &responseRecorder{ResponseWriter: w}
	err := next(rr, r)
	status, length := rr.outcome(err)

	line := formatAccessLine(r, p.now(), status, length)
	p.mu.Lock()
	_, _ = io.WriteString(p.out, line)
	p.mu.Unlock()
	return err
}

func formatAccessLine(r *http.Request, t time.Time, status, length int) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	size := "-"
	if length > 0 {
		size = strconv.Itoa(length)
	}
	return fmt.Sprintf("%q - - [%s] %q %d %s %q %q\n",
		ip,
		t.Format(AccessLogTimeFormat),
		r.Method+" "+r.RequestURI+" "+r.Proto,
		status,
		size,
		orDash(r.Referer()),
		orDash(r.UserAgent()),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var _ endpoint.Processor = (*AccessLogProcessor)(nil)
