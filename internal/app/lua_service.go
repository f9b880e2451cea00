package app

import (
	"context"

	"github.com/dokzlo13/sleepiqd/internal/actions"
	"github.com/dokzlo13/sleepiqd/internal/config"
	"github.com/dokzlo13/sleepiqd/internal/eventbus"
	luart "github.com/dokzlo13/sleepiqd/internal/lua"
	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

// LuaService wraps the optional automation script.
type LuaService struct {
	cfg     *config.Config
	Runtime *luart.Runtime
}

// NewLuaService creates the runtime. latest backs bed.latest() in scripts.
func NewLuaService(cfg *config.Config, invoker *actions.Invoker, latest func() *sleepiq.Bed) *LuaService {
	return &LuaService{
		cfg:     cfg,
		Runtime: luart.NewRuntime(invoker, latest),
	}
}

// LoadScript loads and executes the Lua script.
// Must be called before Start().
func (s *LuaService) LoadScript() error {
	return s.Runtime.LoadScript(s.cfg.Script)
}

// Start begins the Lua worker and hooks it to snapshots.
func (s *LuaService) Start(ctx context.Context, bus *eventbus.Bus) {
	go s.Runtime.Run(ctx)
	s.Runtime.Start(ctx, bus)
}

// Close closes the Lua runtime.
func (s *LuaService) Close() {
	if s.Runtime != nil {
		s.Runtime.Close()
	}
}
