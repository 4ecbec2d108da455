package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHandler(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHandler(zap.New(core))

	tests := []struct {
		body string
		want string
	}{
		{`{"jsonrpc":"2.0","method":"math.add","params":[2,3],"id":1}`, `{"jsonrpc":"2.0","result":5,"id":1}` + "\n"},
		{`{"jsonrpc":"2.0","method":"math.sub","params":{"a":7,"b":2},"id":2}`, `{"jsonrpc":"2.0","result":5,"id":2}` + "\n"},
		{`{"jsonrpc":"2.0","method":"mul","params":{"a":4,"b":5},"id":3}`, `{"jsonrpc":"2.0","result":20,"id":3}` + "\n"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(tt.body)))
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
		}
		if got := rec.Body.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}

	if n := logs.FilterMessage("request").Len(); n != len(tests) {
		t.Errorf("got %d request log entries, want %d", n, len(tests))
	}
}
