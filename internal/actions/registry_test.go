package actions

import (
	"reflect"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := RegisterBed(r); err != nil {
		t.Fatalf("RegisterBed() error = %v", err)
	}

	want := []string{
		CommandActuator, CommandFavorite, CommandFootWarming, CommandLight, CommandPreset,
		CommandPrivacyMode, CommandResponsiveAir, CommandSleepNumber, CommandUnderbedAuto,
		CommandUnderbedBrightness,
	}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	if err := RegisterBed(r); err == nil {
		t.Error("registering a command twice should fail")
	}
	if err := r.Register(Command{Name: "noop"}); err == nil {
		t.Error("Register() without a handler should fail")
	}

	cmd, ok := r.Get(CommandFootWarming)
	if !ok {
		t.Fatalf("Get(%q) not found", CommandFootWarming)
	}
	if !reflect.DeepEqual(cmd.Args, []string{"side", "level", "timer"}) {
		t.Errorf("foot_warming args = %v", cmd.Args)
	}
}
