package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/mnehpets/rpcserve/jsonrpc"
	"github.com/mnehpets/rpcserve/middleware"
	"github.com/mnehpets/rpcserve/object"
)

type MathMethods struct{}

func (m *MathMethods) Add(ctx context.Context, a, b int) (int, error) {
	return a + b, nil
}

func (m *MathMethods) Sub(ctx context.Context, args struct {
	A int `json:"a"`
	B int `json:"b"`
}) (int, error) {
	return args.A - args.B, nil
}

// newHandler serves the math target. Methods are looked up as dotted paths:
// "math.add", "math.sub", "mul".
func newHandler(logger *zap.Logger) http.Handler {
	target := map[string]any{
		"math": &MathMethods{},
		"mul":  object.Func(func(a, b int) int { return a * b }, "a", "b"),
	}
	s := &jsonrpc.Server{Concurrency: 4, Logger: logger}
	return s.Handler(target, &middleware.RequestLogger{Logger: logger}, middleware.NewCORSProcessor())
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	http.Handle("/rpc", newHandler(logger))

	logger.Info("starting server", zap.String("addr", ":8080"))
	if err := http.ListenAndServe(":8080", nil); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
