package actions

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

var errNoBed = errors.New("no bed known yet: pass bed_id or wait for the first snapshot")

// Args arrive from MQTT payloads (strings), Lua tables (float64, bool, string)
// and Go callers (int). The helpers below accept all of them.

func missing(name string) error {
	return fmt.Errorf("%w: missing argument %q", sleepiq.ErrInvalidArgument, name)
}

func stringArg(name string, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case int, int64, float64:
		return fmt.Sprint(x), nil
	}
	return "", fmt.Errorf("%w: argument %q must be a string (got %T)", sleepiq.ErrInvalidArgument, name, v)
}

// String returns a required string argument.
func String(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", missing(name)
	}
	return stringArg(name, v)
}

// Int returns a required integer argument.
func Int(args map[string]any, name string) (int, error) {
	v, ok := args[name]
	if !ok {
		return 0, missing(name)
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: argument %q must be a whole number (got %v)", sleepiq.ErrInvalidArgument, name, x)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: argument %q must be a number (got %q)", sleepiq.ErrInvalidArgument, name, x)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: argument %q must be a number (got %T)", sleepiq.ErrInvalidArgument, name, v)
}

// IntOr returns an optional integer argument.
func IntOr(args map[string]any, name string, def int) (int, error) {
	if _, ok := args[name]; !ok {
		return def, nil
	}
	return Int(args, name)
}

// Bool returns a required boolean argument. Strings "on"/"off", "true"/"false", "1"/"0" are accepted.
func Bool(args map[string]any, name string) (bool, error) {
	v, ok := args[name]
	if !ok {
		return false, missing(name)
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case int:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "on", "true", "1", "yes":
			return true, nil
		case "off", "false", "0", "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: argument %q must be a boolean (got %v)", sleepiq.ErrInvalidArgument, name, v)
}

// BoolOr returns an optional boolean argument.
func BoolOr(args map[string]any, name string, def bool) (bool, error) {
	if _, ok := args[name]; !ok {
		return def, nil
	}
	return Bool(args, name)
}

// Side returns the required "side" argument.
func Side(args map[string]any) (sleepiq.BedSide, error) {
	s, err := String(args, "side")
	if err != nil {
		return "", err
	}
	return sleepiq.ParseSide(s)
}
