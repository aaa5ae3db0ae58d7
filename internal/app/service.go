package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"buffwatch/internal/aggregate"
	"buffwatch/internal/clock"
	"buffwatch/internal/config"
	"buffwatch/internal/ingest"
	"buffwatch/internal/logging"
	"buffwatch/internal/modules"
	"buffwatch/internal/render"
	"buffwatch/internal/store"
)

// Service composes runtime dependencies and process lifecycle.
// Params: config source and shared runtime components.
// Returns: runnable monitoring service.
type Service struct {
	source    config.ConfigSource
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func()
	backend   store.Store
	runtime   *Runtime
	httpSrv   *http.Server
	readyFlag atomic.Bool
	clock     clock.Clock
}

// NewService builds service instance from config source.
// Params: config source and clock implementation.
// Returns: initialized service or setup error.
func NewService(source config.ConfigSource, clk clock.Clock) (*Service, error) {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	backend, err := buildStore(cfg)
	if err != nil {
		closeLog()
		return nil, err
	}

	logger = logger.With("character", cfg.Service.Character)
	runtime := NewRuntime(store.Scope(backend, cfg.Service.Character), cfg.Defaults, modules.Registry(), clk, logger)

	service := &Service{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		backend:  backend,
		runtime:  runtime,
		clock:    clk,
	}

	if err := service.buildConsole(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}
	if err := service.buildHTTPServer(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}

	return service, nil
}

// Runtime exposes engine runtime for embedding callers and tests.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Run starts service lifecycle and blocks until shutdown signal.
// Params: root context for service runtime.
// Returns: terminal run error.
func (s *Service) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.runtime.Login(runCtx); err != nil {
		_ = s.shutdown()
		return fmt.Errorf("initial load: %w", err)
	}

	errChan := make(chan error, 1)
	if s.httpSrv != nil {
		go func() {
			s.logger.Info("http server starting", "listen", s.cfg.HTTP.Listen)
			err := s.httpSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	var feedDone chan error
	if s.cfg.Feed.Source != "" {
		feedDone = make(chan error, 1)
		go func() {
			feedDone <- s.runFeed(runCtx)
		}()
	}

	s.readyFlag.Store(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return s.shutdown()
		case err := <-errChan:
			_ = s.shutdown()
			return fmt.Errorf("http server failed: %w", err)
		case <-sigChan:
			return s.shutdown()
		case err := <-feedDone:
			feedDone = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				_ = s.shutdown()
				return fmt.Errorf("frame feed failed: %w", err)
			}
			s.logger.Info("frame feed finished", "source", s.cfg.Feed.Source)
			if s.httpSrv == nil {
				return s.shutdown()
			}
		}
	}
}

// runFeed reads newline-delimited frames from configured source until EOF.
// Params: context cancelled on shutdown.
// Returns: open, read, or sink error.
func (s *Service) runFeed(ctx context.Context) error {
	var source io.Reader = os.Stdin
	if s.cfg.Feed.Source != config.FeedSourceStdin {
		file, err := os.Open(s.cfg.Feed.Source)
		if err != nil {
			return fmt.Errorf("open feed: %w", err)
		}
		defer file.Close()
		source = file
	}
	s.logger.Info("frame feed starting", "source", s.cfg.Feed.Source)
	return ingest.NewReader(source, s.runtime, s.logger).Run(ctx)
}

// shutdown closes runtime resources in dependency order.
// Params: none.
// Returns: first close error.
func (s *Service) shutdown() error {
	s.readyFlag.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var firstErr error
	markErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("http shutdown failed", "error", err.Error())
			markErr(fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("store close failed", "error", err.Error())
		markErr(fmt.Errorf("store close: %w", err))
	}
	if s.closeLog != nil {
		s.closeLog()
	}
	return firstErr
}

// cleanupInitResources closes partially initialized resources on startup failures.
// Params: none.
// Returns: all acquired resources closed best-effort.
func (s *Service) cleanupInitResources() {
	if s.httpSrv != nil {
		_ = s.httpSrv.Close()
		s.httpSrv = nil
	}
	if s.backend != nil {
		_ = s.backend.Close()
		s.backend = nil
	}
	if s.closeLog != nil {
		s.closeLog()
		s.closeLog = nil
	}
}

// buildConsole attaches terminal renderer when feed rendering is enabled.
func (s *Service) buildConsole() error {
	if !s.cfg.Feed.Render {
		return nil
	}
	console, err := render.NewConsole(os.Stdout, lipgloss.NewRenderer(os.Stdout), s.cfg.Feed.RenderTemplate)
	if err != nil {
		return fmt.Errorf("console renderer: %w", err)
	}
	s.runtime.OnViews(func(views aggregate.Views) {
		if err := console.Render(views); err != nil {
			s.logger.Warn("render failed", "error", err.Error())
		}
	})
	return nil
}

// buildStore creates persistence backend from config.
// Params: root config snapshot.
// Returns: selected store backend.
func buildStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendFile:
		return store.NewFileStore(cfg.Store.Dir)
	case config.StoreBackendNATS:
		return store.NewNATSStore(cfg.Store)
	default:
		return store.NewMemoryStore(), nil
	}
}
