// Package lua hosts the optional automation script.
// All Lua execution happens on a single worker goroutine.
package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/sleepiqd/internal/actions"
	"github.com/dokzlo13/sleepiqd/internal/eventbus"
	"github.com/dokzlo13/sleepiqd/internal/lua/modules"
	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = errors.New("lua runtime closed")

// HookSnapshot is the global function called with every new snapshot.
const HookSnapshot = "on_snapshot"

// LuaWork represents work to be executed on the Lua VM
type LuaWork func(ctx context.Context)

// Runtime owns the Lua state and the queue feeding its worker.
type Runtime struct {
	L *lua.LState

	workQueue chan LuaWork

	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewRuntime creates a runtime with the log and bed modules preloaded.
func NewRuntime(commander modules.Commander, latest func() *sleepiq.Bed) *Runtime {
	L := lua.NewState()

	r := &Runtime{
		L:         L,
		workQueue: make(chan LuaWork, 100),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	L.PreloadModule("log", modules.NewLogModule().Loader)
	L.PreloadModule("bed", modules.NewBedModule(commander, latest).Loader)

	return r
}

// LoadScript executes the script file. Must be called before Run.
func (r *Runtime) LoadScript(path string) error {
	log.Info().Str("path", path).Msg("Loading Lua script")

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Bool("on_snapshot", r.hasHook(HookSnapshot)).Msg("Lua script loaded")
	return nil
}

func (r *Runtime) hasHook(name string) bool {
	_, ok := r.L.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Start subscribes the snapshot hook to the bus.
func (r *Runtime) Start(ctx context.Context, bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeSnapshot, func(e eventbus.Event) {
		if e.Bed == nil {
			return
		}
		if err := r.OnSnapshot(ctx, e.Bed); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("bed_id", e.Bed.BedID).Msg("Lua on_snapshot failed")
		}
	})
}

// OnSnapshot calls the script's on_snapshot(state) on the worker and waits for it.
// Commands the hook issues do not trigger a poll.
func (r *Runtime) OnSnapshot(ctx context.Context, bed *sleepiq.Bed) error {
	return r.DoSyncWithResult(ctx, func(c context.Context) error {
		r.L.SetContext(actions.WithoutRefresh(c))
		return r.callHook(HookSnapshot, bed)
	})
}

// callHook calls a global function with v as a table. Missing hooks are skipped.
// Must run on the worker.
func (r *Runtime) callHook(name string, v any) error {
	fn, ok := r.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil
	}

	arg, err := modules.StructToLuaTable(r.L, v)
	if err != nil {
		return err
	}

	return r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, arg)
}

// DoSyncWithResult queues work on the worker and waits for its result.
func (r *Runtime) DoSyncWithResult(ctx context.Context, work func(context.Context) error) error {
	result := make(chan error, 1)
	wrapped := LuaWork(func(c context.Context) {
		result <- work(c)
	})

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	default:
	}

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.workQueue <- wrapped:
	}

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case err := <-result:
		return err
	}
}

// Run is the only goroutine that touches the Lua state.
// Exits when ctx is cancelled or the runtime is closed.
func (r *Runtime) Run(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			r.drainQueue(ctx)
			return
		case <-r.closing:
			r.drainQueue(ctx)
			return
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		}
	}
}

func (r *Runtime) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		default:
			return
		}
	}
}

func (r *Runtime) executeWork(ctx context.Context, work LuaWork) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Lua work panicked, worker continuing")
		}
	}()
	r.L.SetContext(ctx)
	work(ctx)
}

// Close stops accepting work, waits for the worker and closes the Lua state.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.closing)

		r.mu.Lock()
		r.closed = true
		started := r.started
		r.mu.Unlock()
		if started {
			<-r.done
		}
		r.L.Close()
	})
}
