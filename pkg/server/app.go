package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"CryptoPredict/internal/usecase"
	"CryptoPredict/pkg/config"
	xhttp "CryptoPredict/pkg/http"
	applogger "CryptoPredict/pkg/logger"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	cascade    *usecase.Cascade
	closers    []namedCloser
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, handler xhttp.Handler, cascade *usecase.Cascade) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, log: l, handler: handler, cascade: cascade}
}

// AddCloser registers a resource closed on shutdown, in registration order.
func (a *App) AddCloser(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Server builds the HTTP server on first use.
func (a *App) Server() *xhttp.Server {
	if a.httpServer == nil {
		a.httpServer = xhttp.NewServer(a.handler,
			xhttp.WithHost(a.cfg.Server.Host),
			xhttp.WithPort(a.cfg.Server.Port),
			xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
			xhttp.WithCORS(a.cfg.Server.CORS),
			xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
			xhttp.WithTrustedProxies(a.cfg.TrustedProxyNets()...),
			xhttp.WithLogger(a.log),
		)
	}
	return a.httpServer
}

// Run starts the HTTP server and blocks until ctx is done or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Server().Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("cryptopredict started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Strings("cascade", a.cascade.Sources()),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown stops the server, waits for pending forecast events and closes resources.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			firstErr = err
		}
	}

	a.cascade.Close()
	// digests are flushed through the producer, so detach before it closes
	a.log.DetachCollector()

	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return firstErr
}
