package main

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stats is a concurrency-safe bag of named counters and values.
type Stats struct {
	mu     sync.Mutex
	values map[string]any
}

func NewStats() *Stats {
	return &Stats{values: make(map[string]any)}
}

func (s *Stats) GetValue(key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, errors.New("no such stat: " + key)
	}
	return v, nil
}

func (s *Stats) SetValue(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Stats) IncValue(key string, count int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _ := s.values[key].(int)
	n += count
	s.values[key] = n
	return n
}

func (s *Stats) GetStats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values)
}

func (s *Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.GetStats())
}

// Engine drives the crawl and tells listeners when it starts and stops.
type Engine struct {
	stats  *Stats
	logger *zap.Logger
	tick   time.Duration

	mu      sync.Mutex
	running bool
	paused  bool
	cancel  context.CancelFunc
	done    chan struct{}
	started []func(context.Context) error
	stopped []func(context.Context) error
}

func NewEngine(stats *Stats, logger *zap.Logger) *Engine {
	return &Engine{stats: stats, logger: logger, tick: time.Second, done: make(chan struct{})}
}

func (e *Engine) OnEngineStarted(fn func(context.Context) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = append(e.started, fn)
}

func (e *Engine) OnEngineStopped(fn func(context.Context) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = append(e.stopped, fn)
}

// Start runs the engine until Stop and fires the started hooks.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already running")
	}
	select {
	case <-e.done:
		e.done = make(chan struct{})
	default:
	}
	runCtx, cancel := context.WithCancel(context.Background())
	e.running, e.cancel = true, cancel
	hooks := append([]func(context.Context) error(nil), e.started...)
	e.mu.Unlock()

	e.stats.SetValue("start_time", time.Now().UTC().Format(time.RFC3339))
	go e.loop(runCtx)

	var errs []error
	for _, fn := range hooks {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

func (e *Engine) loop(ctx context.Context) {
	t := time.NewTicker(e.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !e.IsPaused() {
				e.stats.IncValue("pages_crawled", 1)
			}
		}
	}
}

// Stop asks the engine to stop and returns at once. The stopped hooks run on
// their own goroutine, outside the request that called Stop.
func (e *Engine) Stop() {
	go func() {
		if err := e.shutdown(context.Background()); err != nil {
			e.logger.Warn("engine stop", zap.Error(err))
		}
	}()
}

// shutdown halts the engine, fires the stopped hooks and releases Done.
func (e *Engine) shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.cancel()
	hooks := append([]func(context.Context) error(nil), e.stopped...)
	done := e.done
	e.mu.Unlock()

	var errs []error
	for _, fn := range hooks {
		errs = append(errs, fn(ctx))
	}
	e.stats.SetValue("finish_time", time.Now().UTC().Format(time.RFC3339))
	close(done)
	return errors.Join(errs...)
}

// Done is closed once the engine has stopped.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

func (e *Engine) Unpause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
}

func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Engine) MarshalJSON() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return json.Marshal(map[string]bool{"running": e.running, "paused": e.paused})
}

// Spider describes what is being crawled.
type Spider struct {
	Name           string   `json:"name"`
	AllowedDomains []string `json:"allowed_domains"`
	StartURLs      []string `json:"start_urls"`
}

// Crawler is the top-level controller exposed as the "crawler" resource.
type Crawler struct {
	Engine   *Engine        `json:"engine"`
	Stats    *Stats         `json:"stats"`
	Spider   *Spider        `json:"spider"`
	Settings map[string]any `json:"settings"`
	logger   *zap.Logger
}

func NewCrawler(spider *Spider, settings map[string]any, logger *zap.Logger) *Crawler {
	stats := NewStats()
	return &Crawler{
		Engine:   NewEngine(stats, logger),
		Stats:    stats,
		Spider:   spider,
		Settings: settings,
		logger:   logger,
	}
}

func (c *Crawler) Stop() {
	c.logger.Info("stop requested")
	c.Engine.Stop()
}
