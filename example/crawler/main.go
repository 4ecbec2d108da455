// Command crawler runs a toy crawl engine with the JSON-RPC web service
// attached, for poking at a live object graph:
//
//	crawler --enable --port 6023
//	curl localhost:6023/crawler/stats
//	curl -d '{"jsonrpc":"2.0","method":"engine.pause","id":1}' localhost:6023/crawler
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mnehpets/rpcserve/config"
	"github.com/mnehpets/rpcserve/webservice"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath string
		envFile    string
		enable     bool
		ports      []int
		host       string
		logFile    string
		dev        bool
	)
	flags := pflag.NewFlagSet("crawler", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "settings file (YAML, or JSON with comments)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file with JSONRPC_* settings")
	flags.BoolVar(&enable, "enable", false, "enable the web service (overrides JSONRPC_ENABLED)")
	flags.IntSliceVar(&ports, "port", nil, "listen port, or low,high port range")
	flags.StringVar(&host, "host", "", "listen host")
	flags.StringVar(&logFile, "logfile", "", "access log file")
	flags.BoolVar(&dev, "dev", false, "human-readable debug logging")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := newLogger(dev)
	if err != nil {
		return err
	}
	defer logger.Sync()

	settings, err := config.Loader{File: configPath, DotEnv: envFile}.Load()
	if err != nil {
		return err
	}
	if flags.Changed("enable") {
		settings.Enabled = enable
	}
	if flags.Changed("port") {
		settings.Ports = ports
	}
	if flags.Changed("host") {
		settings.Host = host
	}
	if flags.Changed("logfile") {
		settings.LogFile = logFile
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	crawler := NewCrawler(&Spider{
		Name:           "example",
		AllowedDomains: []string{"example.com"},
		StartURLs:      []string{"https://example.com/"},
	}, map[string]any{
		"BOT_NAME":            "example",
		"CONCURRENT_REQUESTS": 16,
	}, logger)

	svc, err := webservice.New(settings, crawler,
		webservice.WithLogger(logger),
		webservice.WithResource("stats", crawler.Stats),
	)
	if err != nil {
		return err
	}
	if svc == nil {
		logger.Info("web service disabled")
	}
	svc.Bind(crawler.Engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := crawler.Engine.Start(ctx); err != nil {
		return err
	}
	if addr := svc.Addr(); addr != "" {
		logger.Info("web service ready", zap.String("addr", addr))
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return crawler.Engine.shutdown(context.Background())
	case <-crawler.Engine.Done():
		logger.Info("engine stopped")
		return nil
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
