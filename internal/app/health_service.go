package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/sleepiqd/internal/config"
	"github.com/dokzlo13/sleepiqd/internal/ledger"
	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

// StateProvider exposes the latest fetch outcome. *poller.Poller implements it.
type StateProvider interface {
	Latest() (*sleepiq.Bed, time.Time)
	LastError() error
}

// FetchHistory looks up recorded fetch outcomes. *ledger.Ledger implements it.
type FetchHistory interface {
	LastFetch(bedID string) (*ledger.Entry, error)
}

// HealthService provides HTTP health and state endpoints.
type HealthService struct {
	cfg     *config.Config
	state   StateProvider
	history FetchHistory
	server  *http.Server
}

// NewHealthService creates a new HealthService. history may be nil.
func NewHealthService(cfg *config.Config, state StateProvider, history FetchHistory) *HealthService {
	return &HealthService{
		cfg:     cfg,
		state:   state,
		history: history,
	}
}

// Run serves the health check server until ctx is done. Returns at once when disabled.
func (s *HealthService) Run(ctx context.Context) {
	if !s.cfg.Healthcheck.Enabled {
		return
	}
	s.run(ctx)
}

// Handler serves /health, /ready and /state.
func (s *HealthService) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
	})

	// Ready once a snapshot exists, fetched or restored.
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		bed, fetchedAt := s.state.Latest()
		if bed == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "waiting"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ready",
			"bed_id":     bed.BedID,
			"fetched_at": fetchedAt.UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		bed, fetchedAt := s.state.Latest()
		if bed == nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "no snapshot yet"})
			return
		}
		body := map[string]any{
			"bed":        bed,
			"fetched_at": fetchedAt.UTC().Format(time.RFC3339),
		}
		if err := s.state.LastError(); err != nil {
			body["last_error"] = err.Error()
		}
		if last := s.lastFetch(bed.BedID); last != nil {
			body["last_fetch"] = last
		}
		writeJSON(w, http.StatusOK, body)
	})

	return mux
}

// lastFetch summarizes the newest ledger entry for a fetch of bedID.
func (s *HealthService) lastFetch(bedID string) map[string]any {
	if s.history == nil {
		return nil
	}
	entry, err := s.history.LastFetch(bedID)
	if err != nil {
		log.Warn().Err(err).Str("bed_id", bedID).Msg("Failed to read last fetch from ledger")
		return nil
	}
	if entry == nil {
		return nil
	}
	out := map[string]any{
		"event": string(entry.EventType),
		"at":    entry.Timestamp.UTC().Format(time.RFC3339),
	}
	for _, key := range []string{"took_ms", "error"} {
		if v, ok := entry.Payload[key]; ok {
			out[key] = v
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write health response")
	}
}

func (s *HealthService) run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Healthcheck.Host, s.cfg.Healthcheck.Port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Starting health check server")

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Health check server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Health check server error")
	}
	<-stopped
}
