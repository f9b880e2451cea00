package actions

import "github.com/dokzlo13/sleepiqd/internal/sleepiq"

// Command names understood by RegisterBed.
const (
	CommandLight              = "light"
	CommandPrivacyMode        = "privacy_mode"
	CommandResponsiveAir      = "responsive_air"
	CommandFootWarming        = "foot_warming"
	CommandPreset             = "preset"
	CommandActuator           = "actuator"
	CommandSleepNumber        = "sleep_number"
	CommandFavorite           = "favorite"
	CommandUnderbedBrightness = "underbed_brightness"
	CommandUnderbedAuto       = "underbed_auto"
)

// BedCommands lists every bed command with its arguments.
func BedCommands() []Command {
	return []Command{
		{Name: CommandLight, Args: []string{"outlet", "on"}, Run: light},
		{Name: CommandPrivacyMode, Args: []string{"on"}, Run: privacyMode},
		{Name: CommandResponsiveAir, Args: []string{"side", "on"}, Run: responsiveAir},
		{Name: CommandFootWarming, Args: []string{"side", "level", "timer"}, Run: footWarming},
		{Name: CommandPreset, Args: []string{"side", "preset", "slow"}, Run: preset},
		{Name: CommandActuator, Args: []string{"side", "actuator", "position", "slow"}, Run: actuator},
		{Name: CommandSleepNumber, Args: []string{"side", "value"}, Run: sleepNumber},
		{Name: CommandFavorite, Args: []string{"side", "value"}, Run: favorite},
		{Name: CommandUnderbedBrightness, Args: []string{"level"}, Run: underbedBrightness},
		{Name: CommandUnderbedAuto, Args: []string{"on"}, Run: underbedAuto},
	}
}

// RegisterBed registers every bed command.
func RegisterBed(r *Registry) error {
	for _, cmd := range BedCommands() {
		if err := r.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// light: outlet (1-4), on
func light(ctx *Context, bedID string, args map[string]any) error {
	outlet, err := Int(args, "outlet")
	if err != nil {
		return err
	}
	on, err := Bool(args, "on")
	if err != nil {
		return err
	}
	return ctx.Bed().SetLight(ctx.Ctx(), bedID, sleepiq.Outlet(outlet), on)
}

// privacy_mode: on
func privacyMode(ctx *Context, bedID string, args map[string]any) error {
	on, err := Bool(args, "on")
	if err != nil {
		return err
	}
	return ctx.Bed().SetPrivacyMode(ctx.Ctx(), bedID, on)
}

// responsive_air: side, on
func responsiveAir(ctx *Context, bedID string, args map[string]any) error {
	side, err := Side(args)
	if err != nil {
		return err
	}
	on, err := Bool(args, "on")
	if err != nil {
		return err
	}
	return ctx.Bed().SetResponsiveAir(ctx.Ctx(), bedID, side, on)
}

// foot_warming: side, level (off|low|medium|high), timer minutes (optional)
func footWarming(ctx *Context, bedID string, args map[string]any) error {
	side, err := Side(args)
	if err != nil {
		return err
	}
	name, err := String(args, "level")
	if err != nil {
		return err
	}
	level, err := sleepiq.ParseFootWarmingLevel(name)
	if err != nil {
		return err
	}
	timer, err := IntOr(args, "timer", sleepiq.DefaultFootWarmingTimer)
	if err != nil {
		return err
	}
	return ctx.Bed().SetFootWarming(ctx.Ctx(), bedID, side, level, timer)
}

// preset: side, preset (name or 1-6), slow (optional)
func preset(ctx *Context, bedID string, args map[string]any) error {
	side, err := Side(args)
	if err != nil {
		return err
	}
	name, err := String(args, "preset")
	if err != nil {
		return err
	}
	p, err := sleepiq.ParsePreset(name)
	if err != nil {
		return err
	}
	slow, err := BoolOr(args, "slow", false)
	if err != nil {
		return err
	}
	return ctx.Bed().SetPreset(ctx.Ctx(), bedID, side, p, slow)
}

// actuator: side, actuator (head|foot), position (0-100), slow (optional)
func actuator(ctx *Context, bedID string, args map[string]any) error {
	side, err := Side(args)
	if err != nil {
		return err
	}
	name, err := String(args, "actuator")
	if err != nil {
		return err
	}
	a, err := sleepiq.ParseActuator(name)
	if err != nil {
		return err
	}
	position, err := Int(args, "position")
	if err != nil {
		return err
	}
	slow, err := BoolOr(args, "slow", false)
	if err != nil {
		return err
	}
	return ctx.Bed().SetActuatorPosition(ctx.Ctx(), bedID, side, a, position, slow)
}

// sleep_number: side, value
func sleepNumber(ctx *Context, bedID string, args map[string]any) error {
	side, err := Side(args)
	if err != nil {
		return err
	}
	n, err := Int(args, "value")
	if err != nil {
		return err
	}
	return ctx.Bed().SetSleepNumber(ctx.Ctx(), bedID, side, n)
}

// favorite: side, value
func favorite(ctx *Context, bedID string, args map[string]any) error {
	side, err := Side(args)
	if err != nil {
		return err
	}
	n, err := Int(args, "value")
	if err != nil {
		return err
	}
	return ctx.Bed().SetFavorite(ctx.Ctx(), bedID, side, n)
}

// underbed_brightness: level (low|medium|high)
func underbedBrightness(ctx *Context, bedID string, args map[string]any) error {
	name, err := String(args, "level")
	if err != nil {
		return err
	}
	level, err := sleepiq.ParseUnderbedLevel(name)
	if err != nil {
		return err
	}
	return ctx.Bed().SetUnderbedBrightness(ctx.Ctx(), bedID, level)
}

// underbed_auto: on
func underbedAuto(ctx *Context, bedID string, args map[string]any) error {
	on, err := Bool(args, "on")
	if err != nil {
		return err
	}
	return ctx.Bed().SetUnderbedAuto(ctx.Ctx(), bedID, on)
}
