// Package telemetry writes bed sensor readings to InfluxDB.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/sleepiqd/internal/eventbus"
	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

var (
	// ErrDisabled indicates InfluxDB is disabled in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")
)

const (
	connectTimeout = 10 * time.Second

	measurementSide   = "bed_side"
	measurementOutlet = "bed_outlet"
)

// Config holds InfluxDB settings.
type Config struct {
	Enabled       bool
	URL           string
	Token         string
	Org           string
	Bucket        string
	BatchSize     int
	FlushInterval time.Duration
}

// Sink batches bed readings into InfluxDB. Writes are non-blocking.
type Sink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	mu     sync.RWMutex
	closed bool
}

// Connect pings the server and prepares the batching write API.
func Connect(cfg Config) (*Sink, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = 10 * time.Second
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flush.Milliseconds())))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	s := &Sink{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go s.logWriteErrors(s.writeAPI.Errors())

	log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("InfluxDB connected")
	return s, nil
}

func (s *Sink) logWriteErrors(errs <-chan error) {
	for err := range errs {
		log.Warn().Err(err).Msg("InfluxDB write failed")
	}
}

// Start writes a point set for every snapshot published on bus.
func (s *Sink) Start(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeSnapshot, func(e eventbus.Event) {
		if e.Bed != nil {
			s.WriteBed(e.Bed, time.Now())
		}
	})
}

// WriteBed queues the per-side and per-outlet readings of bed.
func (s *Sink) WriteBed(bed *sleepiq.Bed, at time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	for _, p := range Points(bed, at) {
		s.writeAPI.WritePoint(p)
	}
}

// Points converts a bed snapshot to line protocol points.
func Points(bed *sleepiq.Bed, at time.Time) []*write.Point {
	var points []*write.Point

	for _, side := range []*sleepiq.Side{bed.LeftSide, bed.RightSide} {
		if side == nil {
			continue
		}
		tags := map[string]string{
			"bed_id": bed.BedID,
			"side":   string(side.Side),
		}
		if side.Sleeper != nil {
			tags["sleeper_id"] = side.Sleeper.SleeperID
		}
		points = append(points, write.NewPoint(measurementSide, tags, map[string]interface{}{
			"sleep_number": side.SleepNumber,
			"pressure":     side.Pressure,
			"in_bed":       side.IsInBed,
		}, at))
	}

	for _, l := range bed.Lights {
		points = append(points, write.NewPoint(measurementOutlet,
			map[string]string{"bed_id": bed.BedID, "outlet": l.Outlet.Name()},
			map[string]interface{}{"on": l.On()},
			at))
	}

	return points
}

// Close flushes pending writes and closes the client.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.writeAPI.Flush()
	s.client.Close()
	log.Debug().Msg("InfluxDB sink closed")
}
