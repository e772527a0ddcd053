package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecarlucci/taskmate/internal/assistant"
	"github.com/ecarlucci/taskmate/internal/backend"
	"github.com/ecarlucci/taskmate/internal/config"
	"github.com/ecarlucci/taskmate/internal/directory"
	"github.com/ecarlucci/taskmate/internal/httpapi"
	"github.com/ecarlucci/taskmate/internal/notify"
	"github.com/ecarlucci/taskmate/internal/observability"
	"github.com/ecarlucci/taskmate/internal/session"
	"github.com/ecarlucci/taskmate/internal/task"
)

// dialogueMetrics feeds assistant-level events into Prometheus counters.
type dialogueMetrics struct {
	m *observability.Metrics
}

func (d dialogueMetrics) CommandInterpreted(kind assistant.CommandKind) {
	d.m.Commands.WithLabelValues(string(kind)).Inc()
}

func (d dialogueMetrics) WizardFinished(flow, outcome string) {
	d.m.WizardOutcomes.WithLabelValues(flow, outcome).Inc()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	hub := notify.NewHub()

	ctx := context.Background()

	var b backend.Backend
	switch cfg.BackendMode {
	case "remote":
		b = backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout)
		log.Printf("task backend: remote (%s)", cfg.BackendBaseURL)
	default:
		store, err := task.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("task store init failed: %v", err)
		}
		defer store.Close()
		b = backend.NewLocal(store, directory.NewSnapshot(cfg.DirectoryUsers), hub)
		storeMode := "in-memory"
		if cfg.DatabaseURL != "" {
			storeMode = "postgres"
		}
		log.Printf("task backend: local (%s store, %d directory users)", storeMode, len(cfg.DirectoryUsers))
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})
	sessions.SetObserver(dialogueMetrics{metrics})

	api := httpapi.New(cfg, sessions, b, hub, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 15*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
