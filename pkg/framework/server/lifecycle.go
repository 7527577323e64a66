package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start indexes the cartridge repository, optionally resets it, binds the
// API port and serves until Shutdown. The event retention cleanup runs
// until ctx is done or the server is closed.
func (s *Server) Start(ctx context.Context) error {
	if err := s.repo.Load(ctx); err != nil {
		return fmt.Errorf("failed to load cartridge repository: %w", err)
	}
	s.logger.Info("Cartridge repository loaded", "path", s.repo.Path(), "cartridges", len(s.repo.List()))

	if s.config.ResetOnStart {
		result, err := s.hook.Reset(ctx)
		if err != nil {
			return fmt.Errorf("startup reset failed: %w", err)
		}
		s.logger.Info("Startup reset complete", "erased", len(result.Erased), "restarted", result.Restarted)
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	cleanupCtx, stop := context.WithCancel(ctx)
	s.stopCleanup = stop
	s.cleanupDone = make(chan struct{})
	go func() {
		defer close(s.cleanupDone)
		s.startLogCleanup(cleanupCtx)
	}()

	go func() {
		s.logger.Info("Starting HTTP server", "addr", listener.Addr().String())
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(err, "HTTP server error")
		}
	}()

	return nil
}

func (s *Server) WaitForShutdown(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		s.logger.Info("Shutting down...")
		return s.Shutdown(context.Background())
	case <-ctx.Done():
		s.logger.Info("Shutting down due to context cancellation...")
		return s.Shutdown(context.Background())
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("Shutdown complete")
	return nil
}

// stopLogCleanup cancels the retention goroutine and waits for it to return.
func (s *Server) stopLogCleanup() {
	if s.stopCleanup == nil {
		return
	}
	s.stopCleanup()
	<-s.cleanupDone
}

func (s *Server) startLogCleanup(ctx context.Context) {
	if s.config.LogCleanupInterval <= 0 || s.eventStore == nil {
		return
	}
	s.cleanupEvents(time.Now())

	ticker := time.NewTicker(s.config.LogCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupEvents(time.Now())
		}
	}
}

// cleanupEvents drops events older than the retention period. A retention
// of zero days keeps everything.
func (s *Server) cleanupEvents(now time.Time) {
	if s.config.LogRetentionDays == 0 {
		return
	}
	before := now.AddDate(0, 0, -s.config.LogRetentionDays)
	if err := s.eventStore.CleanupOldEvents(before); err != nil {
		s.logger.Error(err, "failed to cleanup old events")
	}
}
