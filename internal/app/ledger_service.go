package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/sleepiqd/internal/config"
	"github.com/dokzlo13/sleepiqd/internal/ledger"
)

// LedgerService prunes old ledger entries.
type LedgerService struct {
	ledger    *ledger.Ledger
	interval  time.Duration
	retention time.Duration
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(cfg *config.Config, l *ledger.Ledger) *LedgerService {
	return &LedgerService{
		ledger:    l,
		interval:  cfg.Ledger.CleanupInterval.Duration(),
		retention: time.Duration(cfg.Ledger.RetentionDays) * 24 * time.Hour,
	}
}

// Run cleans up once, then on the configured interval until ctx is done.
func (s *LedgerService) Run(ctx context.Context) {
	s.cleanup()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *LedgerService) cleanup() {
	deleted, err := s.ledger.DeleteOlderThan(s.retention)
	if err != nil {
		log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Dur("retention", s.retention).Msg("Cleaned up old ledger entries")
	}
}
