// Package poller runs the periodic SleepIQ fetch cycle and fans out snapshots.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/sleepiqd/internal/eventbus"
	"github.com/dokzlo13/sleepiqd/internal/ledger"
	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
	"github.com/dokzlo13/sleepiqd/internal/storage"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 60 * time.Second

// DefaultMinRefresh is the default minimum gap between a triggered poll and the previous one.
const DefaultMinRefresh = 5 * time.Second

// Fetcher produces one assembled bed per call. *sleepiq.Client implements it.
type Fetcher interface {
	FetchBed(ctx context.Context) (*sleepiq.Bed, error)
}

// Poller fetches the bed on a fixed interval and on demand.
// A failed cycle is not retried before the next tick or trigger.
type Poller struct {
	fetcher   Fetcher
	snapshots *storage.Snapshots
	ledger    *ledger.Ledger
	bus       *eventbus.Bus
	interval  time.Duration

	minRefresh time.Duration
	trigger    chan struct{}

	mu      sync.RWMutex
	latest  *sleepiq.Bed
	fetched time.Time
	lastErr error
}

// New creates a poller. snapshots, ledger and bus may be nil.
func New(fetcher Fetcher, snapshots *storage.Snapshots, l *ledger.Ledger, bus *eventbus.Bus, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:   fetcher,
		snapshots: snapshots,
		ledger:    l,
		bus:       bus,
		interval:  interval,

		minRefresh: DefaultMinRefresh,
		trigger:    make(chan struct{}, 1),
	}
}

// SetMinRefresh sets the minimum gap between a triggered poll and the poll
// before it. Must be called before Run. Zero disables the gap.
func (p *Poller) SetMinRefresh(d time.Duration) {
	if d < 0 {
		d = 0
	}
	p.minRefresh = d
}

// Trigger requests a poll. Requests made while one is pending coalesce, and a
// poll triggered within the minimum refresh gap of the last one is deferred
// until the gap has passed.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Restore loads the last stored snapshot so state is served before the first poll.
func (p *Poller) Restore() {
	if p.snapshots == nil {
		return
	}
	id, err := p.snapshots.LatestID()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to look up stored bed snapshots")
		return
	}
	if id == "" {
		return
	}
	bed, _, updatedAt, ok, err := p.snapshots.Get(id)
	if err != nil || !ok {
		log.Warn().Err(err).Str("bed_id", id).Msg("Failed to restore bed snapshot")
		return
	}

	p.mu.Lock()
	p.latest = bed
	p.fetched = updatedAt
	p.mu.Unlock()

	log.Info().Str("bed_id", bed.BedID).Time("fetched_at", updatedAt).Msg("Restored bed snapshot")
}

// Run polls once immediately, then on every tick or trigger until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	log.Info().
		Dur("interval", p.interval).
		Dur("min_refresh", p.minRefresh).
		Msg("Poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var (
		last     time.Time
		deferred <-chan time.Time
	)
	poll := func() {
		last = time.Now()
		deferred = nil
		p.Poll(ctx)
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Poller stopping")
			return nil
		case <-p.trigger:
			if wait := p.minRefresh - time.Since(last); wait > 0 {
				if deferred == nil {
					log.Debug().Dur("wait", wait).Msg("Refresh deferred")
					deferred = time.After(wait)
				}
				continue
			}
			poll()
		case <-deferred:
			poll()
		case <-ticker.C:
			poll()
		}
	}
}

// Poll runs one fetch cycle and returns the bed, or nil when the cycle failed.
func (p *Poller) Poll(ctx context.Context) *sleepiq.Bed {
	start := time.Now()
	bed, err := p.fetcher.FetchBed(ctx)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}

	var version int64
	if p.snapshots != nil {
		if version, err = p.snapshots.Set(bed.BedID, bed); err != nil {
			log.Error().Err(err).Str("bed_id", bed.BedID).Msg("Failed to store bed snapshot")
		}
	}

	p.mu.Lock()
	p.latest = bed
	p.fetched = time.Now()
	p.lastErr = nil
	p.mu.Unlock()

	if p.ledger != nil {
		err := p.ledger.AppendWithSource(ledger.EventFetchCompleted, "", "poller", bed.BedID, map[string]any{
			"took_ms": time.Since(start).Milliseconds(),
			"version": version,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to append fetch to ledger")
		}
	}
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{
			Type:    eventbus.EventTypeSnapshot,
			BedID:   bed.BedID,
			Bed:     bed,
			Version: version,
		})
	}

	log.Debug().Str("bed_id", bed.BedID).Int64("version", version).Msg("Bed snapshot updated")
	return bed
}

func (p *Poller) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		// Shutting down; not a vendor failure.
		return
	}

	p.mu.Lock()
	p.lastErr = err
	bedID := ""
	if p.latest != nil {
		bedID = p.latest.BedID
	}
	p.mu.Unlock()

	log.Error().Err(err).Str("bed_id", bedID).Msg("Bed fetch failed")

	if p.ledger != nil {
		if lerr := p.ledger.AppendWithSource(ledger.EventFetchFailed, "", "poller", bedID, map[string]any{
			"error": err.Error(),
		}); lerr != nil {
			log.Error().Err(lerr).Msg("Failed to append fetch failure to ledger")
		}
	}
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{Type: eventbus.EventTypeFetchFailed, BedID: bedID, Err: err})
	}
}

// Latest returns the most recent snapshot and when it was fetched.
func (p *Poller) Latest() (*sleepiq.Bed, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.fetched
}

// BedID returns the id of the latest snapshot, or "" before the first one.
func (p *Poller) BedID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return ""
	}
	return p.latest.BedID
}

// LastError returns the error of the last cycle, nil if it succeeded.
func (p *Poller) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}
