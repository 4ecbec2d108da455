// Package webservice serves a host process's object graph over HTTP for
// the lifetime of its engine.
//
// The service registers the host's controller as the "crawler" resource,
// listens when the engine starts and stops listening when it stops:
//
//	svc, err := webservice.New(settings, crawler, webservice.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	svc.Bind(engine)
//
// A disabled service is a nil *Service; all of its methods are no-ops.
package webservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/mnehpets/rpcserve/config"
	"github.com/mnehpets/rpcserve/endpoint"
	"github.com/mnehpets/rpcserve/jsonrpc"
	"github.com/mnehpets/rpcserve/middleware"
	"github.com/mnehpets/rpcserve/resource"
)

// ControllerResource is the resource name of the host's controller.
const ControllerResource = "crawler"

// Lifecycle is implemented by hosts that signal when their engine starts
// and stops.
type Lifecycle interface {
	OnEngineStarted(fn func(ctx context.Context) error)
	OnEngineStopped(fn func(ctx context.Context) error)
}

// Service owns the resource tree and the HTTP listener serving it.
type Service struct {
	settings   config.Settings
	logger     *zap.Logger
	root       *resource.Node
	rpc        *jsonrpc.Server
	processors []endpoint.Processor
	extra      []*resource.Node

	mu        sync.Mutex
	srv       *http.Server
	ln        net.Listener
	accessLog *middleware.AccessLogProcessor
	served    chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResource registers target as an additional top-level resource.
func WithResource(name string, target any) Option {
	return func(s *Service) {
		s.extra = append(s.extra, resource.NewNode(name, target))
	}
}

// WithProcessors appends processors to the request chain, after the
// built-in access log, request logging and CORS processors.
func WithProcessors(p ...endpoint.Processor) Option {
	return func(s *Service) {
		s.processors = append(s.processors, p...)
	}
}

// New builds the service for controller. It returns nil, nil when settings
// are nil or not enabled: a disabled service is not an error.
func New(settings *config.Settings, controller any, opts ...Option) (*Service, error) {
	if settings == nil || !settings.Enabled {
		return nil, nil
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		settings: *settings,
		logger:   zap.NewNop(),
		root:     resource.NewRoot(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rpc = &jsonrpc.Server{
		Logger:      s.logger.Named("jsonrpc"),
		Concurrency: settings.BatchConcurrency,
	}

	s.root.Put(resource.NewNode(ControllerResource, controller))
	for _, n := range s.extra {
		if n.Name() == ControllerResource {
			return nil, fmt.Errorf("webservice: resource name %q is reserved", ControllerResource)
		}
		s.root.Put(n)
	}
	return s, nil
}

// Root returns the resource tree root.
func (s *Service) Root() *resource.Node {
	if s == nil {
		return nil
	}
	return s.root
}

// Handler returns an http.Handler for the resource tree, for mounting in
// another server. It carries every processor except the access log.
func (s *Service) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return s.handler(nil)
}

func (s *Service) handler(accessLog *middleware.AccessLogProcessor) http.Handler {
	var chain []endpoint.Processor
	if accessLog != nil {
		chain = append(chain, accessLog)
	}
	chain = append(chain, &middleware.RequestLogger{Logger: s.logger}, middleware.NewCORSProcessor())
	chain = append(chain, s.processors...)
	rs := &resource.Server{Root: s.root, RPC: s.rpc, Processors: chain}
	return rs.Handler()
}

// Addr returns the listening address, or "" when not listening.
func (s *Service) Addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Start listens on the first free configured port and serves in the
// background.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("webservice: already started")
	}

	var accessLog *middleware.AccessLogProcessor
	if s.settings.LogFile != "" {
		var err error
		if accessLog, err = middleware.OpenAccessLog(s.settings.LogFile); err != nil {
			return err
		}
	}

	ln, err := Listen(ctx, s.settings.Host, s.settings.Ports)
	if err != nil {
		_ = accessLog.Close()
		return err
	}

	srv := &http.Server{
		Handler:           s.handler(accessLog),
		ReadHeaderTimeout: s.settings.ReadHeaderTimeout,
		ErrorLog:          zap.NewStdLog(s.logger.Named("http")),
	}
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web service stopped serving", zap.Error(err))
		}
	}()

	s.srv, s.ln, s.accessLog, s.served = srv, ln, accessLog, served
	s.logger.Debug("Web service listening on " + ln.Addr().String())
	return nil
}

// Stop stops accepting connections and waits, within ctx, for active
// requests to finish. Requests still running when ctx ends are not
// cancelled. Without a deadline on ctx, the configured shutdown timeout
// applies.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok && s.settings.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.ShutdownTimeout)
		defer cancel()
	}

	err := s.srv.Shutdown(ctx)
	<-s.served
	if cerr := s.accessLog.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.logger.Debug("Web service stopped", zap.String("addr", s.ln.Addr().String()))
	s.srv, s.ln, s.accessLog, s.served = nil, nil, nil, nil
	return err
}

// Bind starts the service when l's engine starts and stops it when the
// engine stops.
func (s *Service) Bind(l Lifecycle) {
	if s == nil {
		return
	}
	l.OnEngineStarted(s.Start)
	l.OnEngineStopped(s.Stop)
}
