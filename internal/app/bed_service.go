package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/sleepiqd/internal/config"
	"github.com/dokzlo13/sleepiqd/internal/eventbus"
	"github.com/dokzlo13/sleepiqd/internal/ledger"
	"github.com/dokzlo13/sleepiqd/internal/poller"
	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
	"github.com/dokzlo13/sleepiqd/internal/storage"
)

// BedService wraps the SleepIQ client and the poller that drives it.
type BedService struct {
	cfg *config.Config

	Client *sleepiq.Client
	Poller *poller.Poller
}

// NewBedService creates the client and poller. No network call is made.
func NewBedService(cfg *config.Config, snapshots *storage.Snapshots, l *ledger.Ledger, bus *eventbus.Bus) *BedService {
	opts := []sleepiq.Option{
		sleepiq.WithTimeout(cfg.SleepIQ.Timeout.Duration()),
		sleepiq.WithConcurrentFetch(cfg.SleepIQ.ConcurrentFetch),
		sleepiq.WithExtras(cfg.SleepIQ.Extras),
	}
	if cfg.SleepIQ.BaseURL != "" {
		opts = append(opts, sleepiq.WithBaseURL(cfg.SleepIQ.BaseURL))
	}

	client := sleepiq.NewClient(sleepiq.Credentials{
		Username: cfg.SleepIQ.Username,
		Password: cfg.SleepIQ.Password,
	}, opts...)

	p := poller.New(client, snapshots, l, bus, cfg.Poll.Interval.Duration())
	p.SetMinRefresh(cfg.Poll.MinRefresh.Duration())

	return &BedService{
		cfg:    cfg,
		Client: client,
		Poller: p,
	}
}

// Start restores the last snapshot and logs in.
// Rejected credentials are fatal; other login failures are retried by the first poll.
func (s *BedService) Start(ctx context.Context) error {
	s.Poller.Restore()

	if _, err := s.Client.Login(ctx); err != nil {
		if errors.Is(err, sleepiq.ErrInvalidCredentials) {
			return err
		}
		log.Warn().Err(err).Msg("SleepIQ login failed, will retry on first poll")
		return nil
	}
	log.Info().Str("username", s.cfg.SleepIQ.Username).Msg("Logged in to SleepIQ")
	return nil
}

// Run drives the poll loop until ctx is done.
func (s *BedService) Run(ctx context.Context) {
	if err := s.Poller.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Poller error")
	}
}

// Close releases all resources.
func (s *BedService) Close() {
	if s.Client != nil {
		s.Client.Close()
	}
}
