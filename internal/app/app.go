package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"BulletScreen/internal/api"
	"BulletScreen/internal/config"
	"BulletScreen/internal/infrastructure/bilibili"
	"BulletScreen/internal/infrastructure/parser"
	"BulletScreen/internal/infrastructure/transport"
	"BulletScreen/internal/logging"
	"BulletScreen/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	handler  http.Handler
}

// New builds the resolver, fetcher and parser and composes them into a pipeline.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, nil)
	}

	resolver := bilibili.NewResolver(
		cfg.Upstream.LookupURL,
		cfg.Upstream.UserAgent,
		&http.Client{Timeout: cfg.Upstream.Timeout},
		baseLogger.With("component", "resolver"),
	)

	fetcher := transport.NewFetcher(transport.Options{
		Timeout:   cfg.Upstream.Timeout,
		UserAgent: cfg.Upstream.UserAgent,
	}, baseLogger.With("component", "fetcher"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Resolver:   resolver,
		Fetcher:    fetcher,
		Parser:     parser.NewDanmakuParser(baseLogger.With("component", "parser")),
		CommentURL: cfg.Upstream.CommentURL,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	httpLogger := baseLogger.With("component", "http")
	router := api.NewRouter(api.NewHandler(pipeline, httpLogger), httpLogger, cfg.Server.Debug)

	return &Application{cfg: cfg, logger: baseLogger, pipeline: pipeline, handler: router}
}

// Handler exposes the HTTP routes, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Fetch runs the pipeline once and returns the encoded success envelope.
func (a *Application) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	comments, err := a.pipeline.Run(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return usecase.EncodeComments(comments)
}

// Serve listens until ctx is cancelled, then shuts the server down gracefully.
func (a *Application) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.logger.Info("shutting down http server", "timeout", a.cfg.Server.ShutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
