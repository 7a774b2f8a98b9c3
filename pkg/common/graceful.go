package common

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/matst80/slask-catalog/pkg/config"
)

// ShutdownHook runs after a termination signal is received but before the
// HTTP server shuts down. A failing hook is logged; shutdown continues.
type ShutdownHook func(ctx context.Context) error

// RunServerWithShutdown starts server and blocks until ctx is done or a
// SIGINT/SIGTERM arrives. Hooks then run in order, each with its own
// timeout inside the overall shutdown deadline, and the server is shut
// down gracefully.
//
//	server := common.NewServerWithTimeouts(&http.Server{Addr: ":8080", Handler: mux}, timeouts)
//	common.RunServerWithShutdown(ctx, server, log, "catalog api", timeouts, closeStore)
func RunServerWithShutdown(ctx context.Context, server *http.Server, log *zap.Logger, name string, timeouts TimeoutConfig, hooks ...ShutdownHook) error {
	if timeouts.Hook <= 0 {
		timeouts.Hook = 5 * time.Second
	}

	errCh := make(chan error, 1)
	log.Info("starting server", zap.String("name", name), zap.String("addr", server.Addr))
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
	case <-stop:
		log.Info("shutdown signal received", zap.String("name", name))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()

	for i, h := range hooks {
		if h == nil {
			continue
		}
		hCtx, hCancel := context.WithTimeout(shutdownCtx, timeouts.Hook)
		if err := h(hCtx); err != nil {
			log.Warn("shutdown hook failed", zap.Int("hook", i), zap.Error(err))
		}
		if errors.Is(hCtx.Err(), context.DeadlineExceeded) {
			log.Warn("shutdown hook timed out", zap.Int("hook", i))
		}
		hCancel()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("shutdown complete", zap.String("name", name))
	return nil
}

// TimeoutConfig holds server and shutdown timeouts.
type TimeoutConfig struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
	Hook       time.Duration
}

func TimeoutsFromConfig(cfg config.ServerConfig) TimeoutConfig {
	return TimeoutConfig{
		ReadHeader: cfg.ReadHeaderTimeout,
		Read:       cfg.ReadTimeout,
		Write:      cfg.WriteTimeout,
		Idle:       cfg.IdleTimeout,
		Shutdown:   cfg.ShutdownTimeout,
		Hook:       cfg.HookTimeout,
	}
}

// NewServerWithTimeouts attaches timeout settings to base, or creates a new
// server when base is nil.
func NewServerWithTimeouts(base *http.Server, cfg TimeoutConfig) *http.Server {
	if base == nil {
		base = &http.Server{}
	}
	base.ReadHeaderTimeout = cfg.ReadHeader
	base.ReadTimeout = cfg.Read
	base.WriteTimeout = cfg.Write
	base.IdleTimeout = cfg.Idle
	return base
}
