// Package actions provides the bed command registry and invocation system.
package actions

import (
	"context"

	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

// Bed is the set of SleepIQ controls commands can drive.
// *sleepiq.Client implements it.
type Bed interface {
	SetLight(ctx context.Context, bedID string, outlet sleepiq.Outlet, on bool) error
	SetUnderbedAuto(ctx context.Context, bedID string, enabled bool) error
	SetUnderbedBrightness(ctx context.Context, bedID string, level sleepiq.UnderbedLevel) error
	SetPrivacyMode(ctx context.Context, bedID string, on bool) error
	SetResponsiveAir(ctx context.Context, bedID string, side sleepiq.BedSide, enabled bool) error
	SetFootWarming(ctx context.Context, bedID string, side sleepiq.BedSide, level sleepiq.FootWarmingLevel, timer int) error
	SetPreset(ctx context.Context, bedID string, side sleepiq.BedSide, preset sleepiq.Preset, slow bool) error
	SetActuatorPosition(ctx context.Context, bedID string, side sleepiq.BedSide, actuator sleepiq.Actuator, position int, slow bool) error
	SetSleepNumber(ctx context.Context, bedID string, side sleepiq.BedSide, n int) error
	SetFavorite(ctx context.Context, bedID string, side sleepiq.BedSide, n int) error
}

// Refresher schedules an immediate poll
type Refresher interface {
	Trigger()
}

type noRefreshKey struct{}

// WithoutRefresh marks ctx so that commands run under it do not trigger a poll.
// Commands issued while a snapshot is being handled use it: the snapshot that
// caused them must not cause another one.
func WithoutRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRefreshKey{}, true)
}

// RefreshSuppressed reports whether ctx was marked WithoutRefresh.
func RefreshSuppressed(ctx context.Context) bool {
	v, _ := ctx.Value(noRefreshKey{}).(bool)
	return v
}

// Context is the capability set handed to a running command
type Context struct {
	ctx       context.Context
	bed       Bed
	bedID     func() string
	refresher Refresher
}

// NewContext creates a command context. bedID resolves the default bed
// (the one of the latest snapshot) for commands that do not name one.
func NewContext(ctx context.Context, bed Bed, bedID func() string, refresher Refresher) *Context {
	return &Context{
		ctx:       ctx,
		bed:       bed,
		bedID:     bedID,
		refresher: refresher,
	}
}

// Ctx returns the Go context for cancellation
func (c *Context) Ctx() context.Context {
	return c.ctx
}

// Bed returns the bed controls
func (c *Context) Bed() Bed {
	return c.bed
}

// BedID returns the bed a command targets: args["bed_id"] if given, else the default bed.
func (c *Context) BedID(args map[string]any) (string, error) {
	if id, ok := args[ArgBedID]; ok {
		return stringArg(ArgBedID, id)
	}
	if c.bedID != nil {
		if id := c.bedID(); id != "" {
			return id, nil
		}
	}
	return "", errNoBed
}

// Refresh asks the poller for a fresh snapshot, unless ctx was marked WithoutRefresh
func (c *Context) Refresh() {
	if c.refresher == nil || RefreshSuppressed(c.ctx) {
		return
	}
	c.refresher.Trigger()
}
