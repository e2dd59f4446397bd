package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/archdrop/archdrop/internal/config"
	"github.com/archdrop/archdrop/internal/observability"
	"github.com/archdrop/archdrop/internal/session"
)

// RunUntilShutdown blocks until the transfer finishes on its own (the
// session reaches Completed) or the process receives a signal, then
// coordinates a two-stage shutdown: the first interrupt starts a drain that
// waits for the registry to empty while the server keeps serving, so new
// connections are still accepted during the drain; a second interrupt ends
// the drain early. In both cases the HTTP server is shut down (bounded by
// TunnelKillWait) and still-open uploads are aborted before this returns;
// the second interrupt does not exit the process on its own.
func RunUntilShutdown(inst *Instance, sess *session.Session, registry *session.Registry, log *observability.Logger) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	completed := make(chan struct{})
	go pollCompletion(sess, completed)

	select {
	case <-completed:
		log.Info("transfer completed, shutting down")
	case <-sigCh:
		log.Info("shutdown requested, draining in-flight transfers")
		drain(registry, sigCh, log)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.TunnelKillWait)
	defer cancel()
	if err := inst.Shutdown(ctx); err != nil {
		log.Error(err, "error shutting down http server")
	}

	registry.Each(func(_ string, st *session.FileReceiveState) {
		st.Storage.Abort()
	})
}

func pollCompletion(sess *session.Session, done chan<- struct{}) {
	ticker := time.NewTicker(config.DrainPollInterval)
	defer ticker.Stop()
	for range ticker.C {
		if sess.Snapshot().State == session.Completed {
			close(done)
			return
		}
	}
}

// drain samples the registry's size every DrainPollInterval until it empties
// or a second signal forces an immediate return.
func drain(registry *session.Registry, sigCh <-chan os.Signal, log *observability.Logger) {
	ticker := time.NewTicker(config.DrainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			log.Warn("second shutdown signal received, forcing exit")
			return
		case <-ticker.C:
			remaining := registry.Len()
			if remaining == 0 {
				return
			}
			log.Warn("draining: transfers still in flight")
		}
	}
}
