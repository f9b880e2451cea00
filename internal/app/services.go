package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/sleepiqd/internal/actions"
	"github.com/dokzlo13/sleepiqd/internal/config"
	"github.com/dokzlo13/sleepiqd/internal/db"
	"github.com/dokzlo13/sleepiqd/internal/eventbus"
	"github.com/dokzlo13/sleepiqd/internal/ledger"
	"github.com/dokzlo13/sleepiqd/internal/mqtt"
	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
	"github.com/dokzlo13/sleepiqd/internal/storage"
	"github.com/dokzlo13/sleepiqd/internal/telemetry"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB        *db.DB
	Ledger    *ledger.Ledger
	Store     *storage.Store
	Snapshots *storage.Snapshots
	Bus       *eventbus.Bus

	// Command system
	Registry *actions.Registry
	Invoker  *actions.Invoker

	Bed         *BedService
	Lua         *LuaService // nil without a script
	Health      *HealthService
	LedgerClean *LedgerService

	// Connected in Start when enabled
	MQTT      *mqtt.Bridge
	Telemetry *telemetry.Sink

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	s.Store = storage.NewStore(database.DB)
	s.Snapshots = storage.NewSnapshots(s.Store)
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	s.Bed = NewBedService(cfg, s.Snapshots, s.Ledger, s.Bus)

	s.Registry = actions.NewRegistry()
	if err := actions.RegisterBed(s.Registry); err != nil {
		s.Close()
		return nil, err
	}

	ctxFactory := func(ctx context.Context) *actions.Context {
		return actions.NewContext(ctx, s.Bed.Client, s.Bed.Poller.BedID, s.Bed.Poller)
	}
	s.Invoker = actions.NewInvoker(s.Registry, s.Ledger, s.Bus, ctxFactory)

	if cfg.Script != "" {
		s.Lua = NewLuaService(cfg, s.Invoker, s.latestBed)
	}

	s.Health = NewHealthService(cfg, s.Bed.Poller, s.Ledger)
	s.LedgerClean = NewLedgerService(cfg, s.Ledger)

	return s, nil
}

func (s *Services) latestBed() *sleepiq.Bed {
	bed, _ := s.Bed.Poller.Latest()
	return bed
}

// Start starts all services in the correct order.
// Every consumer subscribes to the bus before the poller publishes its first snapshot.
// Background loops run until ctx is done or Close is called.
func (s *Services) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if err := s.Bed.Start(ctx); err != nil {
		return err
	}

	if s.Lua != nil {
		if err := s.Lua.LoadScript(); err != nil {
			return err
		}
		s.Lua.Start(ctx, s.Bus)
	}

	if s.cfg.MQTT.Enabled {
		bridge, err := mqtt.NewBridge(mqtt.Config{
			Broker:          s.cfg.MQTT.Broker,
			Username:        s.cfg.MQTT.Username,
			Password:        s.cfg.MQTT.Password,
			ClientID:        s.cfg.MQTT.ClientID,
			TopicPrefix:     s.cfg.MQTT.TopicPrefix,
			DiscoveryPrefix: s.cfg.MQTT.DiscoveryPrefix,
		}, s.Invoker)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		s.MQTT = bridge
		s.MQTT.Start(s.Bus)
		if bed := s.latestBed(); bed != nil {
			s.MQTT.HandleSnapshot(bed)
		}
	}

	if s.cfg.InfluxDB.Enabled {
		sink, err := telemetry.Connect(telemetry.Config{
			Enabled:       true,
			URL:           s.cfg.InfluxDB.URL,
			Token:         s.cfg.InfluxDB.Token,
			Org:           s.cfg.InfluxDB.Org,
			Bucket:        s.cfg.InfluxDB.Bucket,
			BatchSize:     s.cfg.InfluxDB.BatchSize,
			FlushInterval: s.cfg.InfluxDB.FlushInterval.Duration(),
		})
		if err != nil {
			return err
		}
		s.Telemetry = sink
		s.Telemetry.Start(s.Bus)
	}

	s.goRun(func() { s.Bed.Run(ctx) })
	s.goRun(func() { s.LedgerClean.Run(ctx) })
	s.goRun(func() { s.Health.Run(ctx) })

	log.Info().
		Bool("mqtt", s.MQTT != nil).
		Bool("influxdb", s.Telemetry != nil).
		Bool("lua", s.Lua != nil).
		Msg("Services started")
	return nil
}

// goRun runs fn in a goroutine that Close waits for.
func (s *Services) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// ClearState drops stored snapshots.
func (s *Services) ClearState() error {
	ids, err := s.Snapshots.IDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.Snapshots.Delete(id); err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources. Background loops and producers stop before
// the bus drains.
func (s *Services) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if s.MQTT != nil {
		s.MQTT.Stop()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		s.Bus.Close(ctx)
		cancel()
	}
	if s.Lua != nil {
		s.Lua.Close()
	}
	if s.Telemetry != nil {
		s.Telemetry.Close()
	}
	if s.Bed != nil {
		s.Bed.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
