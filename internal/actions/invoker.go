package actions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/sleepiqd/internal/eventbus"
	"github.com/dokzlo13/sleepiqd/internal/ledger"
)

// Invoker executes commands with ledger-backed deduplication
type Invoker struct {
	registry   *Registry
	ledger     *ledger.Ledger
	bus        *eventbus.Bus
	ctxFactory func(ctx context.Context) *Context
}

// NewInvoker creates a new command invoker. bus may be nil.
func NewInvoker(registry *Registry, l *ledger.Ledger, bus *eventbus.Bus, ctxFactory func(ctx context.Context) *Context) *Invoker {
	return &Invoker{
		registry:   registry,
		ledger:     l,
		bus:        bus,
		ctxFactory: ctxFactory,
	}
}

// Invoke executes a command. A non-empty idempotencyKey that already completed
// makes this a no-op; an empty key disables deduplication.
func (i *Invoker) Invoke(ctx context.Context, name string, args map[string]any, idempotencyKey string) error {
	return i.InvokeWithSource(ctx, name, args, idempotencyKey, "")
}

// InvokeWithSource is like Invoke but records the originating source (mqtt, lua, ...)
func (i *Invoker) InvokeWithSource(ctx context.Context, name string, args map[string]any, idempotencyKey, source string) error {
	if idempotencyKey != "" && i.ledger.HasCompleted(idempotencyKey) {
		log.Debug().
			Str("command", name).
			Str("idempotency_key", idempotencyKey).
			Msg("Command already completed, skipping")
		return nil
	}

	cmd, exists := i.registry.Get(name)
	if !exists {
		return fmt.Errorf("command %q not found", name)
	}

	actx := i.ctxFactory(ctx)
	bedID, _ := actx.BedID(args)

	logEvent := log.Debug().Str("command", name).Interface("args", args)
	if source != "" {
		logEvent = logEvent.Str("source", source)
	}
	logEvent.Msg("Executing command")

	err := cmd.Execute(actx, args)
	if err != nil {
		i.record(ledger.EventCommandFailed, idempotencyKey, source, bedID, map[string]any{
			"command": name,
			"args":    args,
			"error":   err.Error(),
		})
		i.publish(name, bedID, source, err)
		return err
	}

	i.record(ledger.EventCommandCompleted, idempotencyKey, source, bedID, map[string]any{
		"command": name,
		"args":    args,
	})
	i.publish(name, bedID, source, nil)

	actx.Refresh()
	return nil
}

// HasCommand checks if a command is registered
func (i *Invoker) HasCommand(name string) bool {
	_, exists := i.registry.Get(name)
	return exists
}

func (i *Invoker) record(eventType ledger.EventType, idempotencyKey, source, bedID string, payload map[string]any) {
	if err := i.ledger.AppendWithSource(eventType, idempotencyKey, source, bedID, payload); err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to append command to ledger")
	}
}

func (i *Invoker) publish(name, bedID, source string, err error) {
	if i.bus == nil {
		return
	}
	i.bus.Publish(eventbus.Event{
		Type:  eventbus.EventTypeCommand,
		BedID: bedID,
		Err:   err,
		Data:  map[string]any{"command": name, "source": source},
	})
}
