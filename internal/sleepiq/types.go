package sleepiq

import (
	"fmt"
	"math"
	"strings"
)

// BedSide selects one half of the bed.
type BedSide string

const (
	Left  BedSide = "left"
	Right BedSide = "right"
)

// ParseSide accepts "l", "left", "r" or "right" in any case.
func ParseSide(s string) (BedSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "left":
		return Left, nil
	case "r", "right":
		return Right, nil
	}
	return "", fmt.Errorf("%w: side must be one of left, right, l or r (got %q)", ErrInvalidArgument, s)
}

// code is the single-letter form used on the wire.
func (s BedSide) code() string {
	if s == Right {
		return "R"
	}
	return "L"
}

// Actuator is one of the foundation motors of a side.
type Actuator string

const (
	Head Actuator = "H"
	Foot Actuator = "F"
)

// ParseActuator accepts "h", "head", "f" or "foot" in any case.
func ParseActuator(s string) (Actuator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "head":
		return Head, nil
	case "f", "foot":
		return Foot, nil
	}
	return "", fmt.Errorf("%w: actuator must be one of head, foot, h or f (got %q)", ErrInvalidArgument, s)
}

// Preset is a stored foundation position.
type Preset int

const (
	PresetFavorite Preset = iota + 1
	PresetRead
	PresetWatchTV
	PresetFlat
	PresetZeroG
	PresetSnore
)

var presetNames = map[Preset]string{
	PresetFavorite: "favorite",
	PresetRead:     "read",
	PresetWatchTV:  "watch_tv",
	PresetFlat:     "flat",
	PresetZeroG:    "zero_g",
	PresetSnore:    "snore",
}

func (p Preset) String() string {
	if name, ok := presetNames[p]; ok {
		return name
	}
	return fmt.Sprintf("preset(%d)", int(p))
}

// Valid reports whether p is a known preset.
func (p Preset) Valid() bool {
	_, ok := presetNames[p]
	return ok
}

// PresetNames lists the preset names in numeric order.
func PresetNames() []string {
	names := make([]string, 0, len(presetNames))
	for p := PresetFavorite; p <= PresetSnore; p++ {
		names = append(names, presetNames[p])
	}
	return names
}

// ParsePreset accepts a preset name or its number.
func ParsePreset(s string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for p, name := range presetNames {
		if key == name || key == fmt.Sprint(int(p)) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown preset %q", ErrInvalidArgument, s)
}

// Outlet numbers a foundation accessory circuit.
type Outlet int

const (
	RightNightstand Outlet = 1
	LeftNightstand  Outlet = 2
	LeftNightlight  Outlet = 3
	RightNightlight Outlet = 4
)

// Outlets is the fixed query order for light discovery.
var Outlets = []Outlet{RightNightstand, LeftNightstand, LeftNightlight, RightNightlight}

// Name returns the display name of the outlet.
func (o Outlet) Name() string {
	switch o {
	case RightNightstand:
		return "Right nightstand"
	case LeftNightstand:
		return "Left nightstand"
	case LeftNightlight:
		return "Left nightlight"
	case RightNightlight:
		return "Right nightlight"
	}
	return fmt.Sprintf("Outlet %d", int(o))
}

// Valid reports whether o is one of the four outlets.
func (o Outlet) Valid() bool { return o >= RightNightstand && o <= RightNightlight }

// FootWarmingLevel is the foot warmer temperature setting.
type FootWarmingLevel int

const (
	FootWarmingOff    FootWarmingLevel = 0
	FootWarmingLow    FootWarmingLevel = 31
	FootWarmingMedium FootWarmingLevel = 57
	FootWarmingHigh   FootWarmingLevel = 72
)

// ParseFootWarmingLevel accepts off, low, medium (med) or high.
func ParseFootWarmingLevel(s string) (FootWarmingLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return FootWarmingOff, nil
	case "low":
		return FootWarmingLow, nil
	case "medium", "med":
		return FootWarmingMedium, nil
	case "high":
		return FootWarmingHigh, nil
	}
	return 0, fmt.Errorf("%w: unknown foot warming level %q", ErrInvalidArgument, s)
}

// UnderbedLevel is the PWM duty of the underbed light.
type UnderbedLevel int

const (
	UnderbedLow    UnderbedLevel = 1
	UnderbedMedium UnderbedLevel = 30
	UnderbedHigh   UnderbedLevel = 100
)

// ParseUnderbedLevel accepts low, medium (med) or high.
func ParseUnderbedLevel(s string) (UnderbedLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return UnderbedLow, nil
	case "medium", "med":
		return UnderbedMedium, nil
	case "high":
		return UnderbedHigh, nil
	}
	return 0, fmt.Errorf("%w: unknown underbed light level %q", ErrInvalidArgument, s)
}

// roundSleepNumber validates a 0-100 setting and rounds it to the nearest 5.
func roundSleepNumber(n int) (int, error) {
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("%w: sleep number must be between 0 and 100 (got %d)", ErrInvalidArgument, n)
	}
	return int(math.Round(float64(n)/5)) * 5, nil
}
