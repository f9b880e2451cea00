package sleepiq

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"
)

// DefaultFootWarmingTimer is the foot warmer run time in minutes when none is given.
const DefaultFootWarmingTimer = 120

func speed(slow bool) int {
	if slow {
		return 1
	}
	return 0
}

// SetLight switches an outlet on or off.
func (c *Client) SetLight(ctx context.Context, bedID string, outlet Outlet, on bool) error {
	if !outlet.Valid() {
		return fmt.Errorf("%w: unknown outlet %d", ErrInvalidArgument, int(outlet))
	}
	setting := 0
	if on {
		setting = 1
	}
	return c.command(ctx, bedEndpoint(bedID, outletEndpoint), nil, map[string]any{
		"outletId": int(outlet),
		"setting":  setting,
	})
}

// SetUnderbedAuto enables or disables motion-activated underbed lighting.
func (c *Client) SetUnderbedAuto(ctx context.Context, bedID string, enabled bool) error {
	return c.command(ctx, bedEndpoint(bedID, "foundation/underbedLight"), nil, map[string]any{
		"enableAuto": enabled,
	})
}

// SetUnderbedBrightness sets both underbed light channels and turns auto mode off.
func (c *Client) SetUnderbedBrightness(ctx context.Context, bedID string, level UnderbedLevel) error {
	err := c.command(ctx, bedEndpoint(bedID, "foundation/system"), nil, map[string]any{
		"fsLeftUnderbedLightPWM":  int(level),
		"fsRightUnderbedLightPWM": int(level),
	})
	if err != nil {
		return err
	}
	return c.SetUnderbedAuto(ctx, bedID, false)
}

// SetPrivacyMode pauses or resumes data collection.
func (c *Client) SetPrivacyMode(ctx context.Context, bedID string, on bool) error {
	mode := "off"
	if on {
		mode = "on"
	}
	return c.command(ctx, bedEndpoint(bedID, "pauseMode"), url.Values{"mode": {mode}}, struct{}{})
}

// SetResponsiveAir toggles automatic firmness adjustment for one side.
func (c *Client) SetResponsiveAir(ctx context.Context, bedID string, side BedSide, enabled bool) error {
	key := "leftSideEnabled"
	if side == Right {
		key = "rightSideEnabled"
	}
	return c.command(ctx, bedEndpoint(bedID, "responsiveAir"), nil, map[string]any{key: enabled})
}

// SetFootWarming sets the foot warmer of one side. A timer <= 0 uses DefaultFootWarmingTimer.
func (c *Client) SetFootWarming(ctx context.Context, bedID string, side BedSide, level FootWarmingLevel, timer int) error {
	if timer <= 0 {
		timer = DefaultFootWarmingTimer
	}
	suffix := "Left"
	if side == Right {
		suffix = "Right"
	}
	return c.command(ctx, bedEndpoint(bedID, "foundation/footwarming"), nil, map[string]any{
		"footWarmingTemp" + suffix:  int(level),
		"footWarmingTimer" + suffix: timer,
	})
}

// SetPreset moves one side of the foundation to a stored position.
func (c *Client) SetPreset(ctx context.Context, bedID string, side BedSide, preset Preset, slow bool) error {
	if !preset.Valid() {
		return fmt.Errorf("%w: invalid preset %d", ErrInvalidArgument, int(preset))
	}
	return c.command(ctx, bedEndpoint(bedID, "foundation/preset"), nil, map[string]any{
		"preset": int(preset),
		"side":   side.code(),
		"speed":  speed(slow),
	})
}

// SetActuatorPosition moves the head or foot of one side to position (0-100).
func (c *Client) SetActuatorPosition(ctx context.Context, bedID string, side BedSide, actuator Actuator, position int, slow bool) error {
	if position < 0 || position > 100 {
		return fmt.Errorf("%w: position must be between 0 and 100 (got %d)", ErrInvalidArgument, position)
	}
	return c.command(ctx, bedEndpoint(bedID, "foundation/adjustment/micro"), nil, map[string]any{
		"position": position,
		"side":     side.code(),
		"actuator": string(actuator),
		"speed":    speed(slow),
	})
}

// SetSleepNumber changes the firmness of one side. The value is rounded to a multiple of 5.
func (c *Client) SetSleepNumber(ctx context.Context, bedID string, side BedSide, n int) error {
	n, err := roundSleepNumber(n)
	if err != nil {
		return err
	}
	return c.command(ctx, bedEndpoint(bedID, "sleepNumber"), nil, map[string]any{
		"side":        side.code(),
		"sleepNumber": n,
	})
}

// SetFavorite stores the favorite sleep number of one side, rounded to a multiple of 5.
func (c *Client) SetFavorite(ctx context.Context, bedID string, side BedSide, n int) error {
	n, err := roundSleepNumber(n)
	if err != nil {
		return err
	}
	return c.command(ctx, bedEndpoint(bedID, "sleepNumberFavorite"), nil, map[string]any{
		"side":                side.code(),
		"sleepNumberFavorite": n,
	})
}

func (c *Client) command(ctx context.Context, endpoint string, query url.Values, body any) error {
	if _, err := c.put(ctx, endpoint, query, body); err != nil {
		return err
	}
	log.Debug().Str("endpoint", endpoint).Msg("SleepIQ command sent")
	return nil
}
