package sleepiq

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
)

func TestFetchBed_EndToEnd(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		name := "sequential"
		if concurrent {
			name = "concurrent"
		}
		t.Run(name, func(t *testing.T) {
			fake := newFake()
			seedBed(fake, "100")
			client := newTestClient(t, fake, WithConcurrentFetch(concurrent))

			bed, err := client.FetchBed(context.Background())
			if err != nil {
				t.Fatalf("FetchBed() error = %v", err)
			}

			if bed.LeftSide == nil || bed.RightSide == nil {
				t.Fatalf("sides not attached: left=%v right=%v", bed.LeftSide, bed.RightSide)
			}
			left := bed.LeftSide.Sleeper
			if left == nil || left.SleeperID != "L1" {
				t.Fatalf("left sleeper = %+v, want L1", left)
			}
			if left.Favorite == nil || *left.Favorite != 40 {
				t.Errorf("left favorite = %v, want 40", left.Favorite)
			}
			right := bed.RightSide.Sleeper
			if right == nil || right.SleeperID != "R1" {
				t.Fatalf("right sleeper = %+v, want R1", right)
			}
			if right.Favorite == nil || *right.Favorite != 60 {
				t.Errorf("right favorite = %v, want 60", right.Favorite)
			}

			if !bed.LeftSide.IsInBed || bed.LeftSide.SleepNumber != 40 || bed.LeftSide.Pressure != 1200 {
				t.Errorf("left side = %+v", bed.LeftSide)
			}
			if bed.LeftSide.BedID != "100" || bed.LeftSide.Side != Left {
				t.Errorf("left side tags = (%q, %q)", bed.LeftSide.BedID, bed.LeftSide.Side)
			}

			if bed.Foundation == nil || bed.Foundation.Status == nil || bed.Foundation.Features == nil {
				t.Fatalf("foundation incomplete: %+v", bed.Foundation)
			}
			if got := bed.Foundation.Status.RightHeadPosition; got != "2d" {
				t.Errorf("RightHeadPosition = %q, want %q", got, "2d")
			}
			features := bed.Foundation.Features
			if !features.SplitKing || !features.HasMassageAndLight || !features.HasUnderbedLight || features.BoardIsASingle {
				t.Errorf("features = %+v", features)
			}
			if features.LeftUnderbedLightPWM != 30 {
				t.Errorf("LeftUnderbedLightPWM = %d, want 30", features.LeftUnderbedLightPWM)
			}

			if bed.ResponsiveAir != nil || bed.PrivacyMode != nil || bed.FootWarming != nil {
				t.Error("extras fetched without WithExtras")
			}
		})
	}
}

func TestFetchBed_Lights(t *testing.T) {
	fake := newFake()
	seedBed(fake, "100")
	client := newTestClient(t, fake)

	bed, err := client.FetchBed(context.Background())
	if err != nil {
		t.Fatalf("FetchBed() error = %v", err)
	}

	if len(bed.Lights) != 2 {
		t.Fatalf("len(Lights) = %d, want 2", len(bed.Lights))
	}
	want := []struct {
		outlet Outlet
		name   string
		on     bool
	}{
		{RightNightstand, "Right nightstand", true},
		{LeftNightlight, "Left nightlight", false},
	}
	for i, w := range want {
		got := bed.Lights[i]
		if got.Outlet != w.outlet || got.Name != w.name || got.On() != w.on {
			t.Errorf("Lights[%d] = {%d %q on=%v}, want {%d %q on=%v}",
				i, got.Outlet, got.Name, got.On(), w.outlet, w.name, w.on)
		}
	}
	if got := fake.callCount(http.MethodGet, "bed/100/foundation/outlet"); got != 4 {
		t.Errorf("outlet queries = %d, want 4", got)
	}
	if fake.loginCount() != 1 {
		t.Errorf("logins = %d, want 1", fake.loginCount())
	}
}

func TestFetchBed_Extras(t *testing.T) {
	fake := newFake()
	seedBed(fake, "100")
	client := newTestClient(t, fake, WithExtras(true))

	bed, err := client.FetchBed(context.Background())
	if err != nil {
		t.Fatalf("FetchBed() error = %v", err)
	}
	if bed.ResponsiveAir == nil || !bed.ResponsiveAir.LeftSideEnabled {
		t.Errorf("ResponsiveAir = %+v", bed.ResponsiveAir)
	}
	if bed.PrivacyMode == nil || bed.PrivacyMode.Enabled() {
		t.Errorf("PrivacyMode = %+v, want off", bed.PrivacyMode)
	}
	if bed.FootWarming == nil || bed.FootWarming.StatusLeft != int(FootWarmingLow) {
		t.Errorf("FootWarming = %+v", bed.FootWarming)
	}
}

func TestFetchBed_AbortsOnError(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		want   error
	}{
		{"family_status_unavailable", "bed/familyStatus", http.StatusServiceUnavailable, ErrServer},
		{"foundation_bad_request", "bed/100/foundation/system", http.StatusBadRequest, ErrServer},
		{"favorite_unavailable", "bed/100/sleepNumberFavorite", http.StatusServiceUnavailable, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			seedBed(fake, "100")
			fake.reply(http.MethodGet, tt.path, tt.status, map[string]any{})
			client := newTestClient(t, fake)

			bed, err := client.FetchBed(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("FetchBed() error = %v, want %v", err, tt.want)
			}
			if bed != nil {
				t.Errorf("FetchBed() returned partial bed %+v", bed)
			}
		})
	}
}

func TestFetchBed_MalformedSideAborts(t *testing.T) {
	fake := newFake()
	seedBed(fake, "100")
	status := familyStatusFixture("100")
	entry := status["beds"].([]any)[0].(map[string]any)
	delete(entry["rightSide"].(map[string]any), "pressure")
	fake.reply(http.MethodGet, "bed/familyStatus", http.StatusOK, status)
	client := newTestClient(t, fake)

	bed, err := client.FetchBed(context.Background())

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("FetchBed() error = %v, want *MalformedResponseError", err)
	}
	if malformed.Field != "pressure" {
		t.Errorf("Field = %q, want %q", malformed.Field, "pressure")
	}
	if bed != nil {
		t.Error("FetchBed() returned a bed on malformed input")
	}
}

func TestFetchBed_UnmatchedSleeperLeavesSlotEmpty(t *testing.T) {
	fake := newFake()
	seedBed(fake, "100")
	fake.reply(http.MethodGet, "bed", http.StatusOK, bedFixture("100", "L1", "GONE"))
	client := newTestClient(t, fake)

	bed, err := client.FetchBed(context.Background())
	if err != nil {
		t.Fatalf("FetchBed() error = %v", err)
	}
	if bed.LeftSide.Sleeper == nil {
		t.Error("left sleeper should be attached")
	}
	if bed.RightSide == nil {
		t.Fatal("right side should still be attached")
	}
	if bed.RightSide.Sleeper != nil {
		t.Errorf("right sleeper = %+v, want nil", bed.RightSide.Sleeper)
	}
}

func TestFetchBed_NotAuthenticated(t *testing.T) {
	fake := newFake()
	seedBed(fake, "100")
	fake.loginReply = func(int) (int, any) {
		return http.StatusOK, map[string]any{}
	}
	client := newTestClient(t, fake)

	bed, err := client.FetchBed(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("FetchBed() error = %v, want ErrNotAuthenticated", err)
	}
	if bed != nil {
		t.Error("FetchBed() returned a bed without a session")
	}
	if fake.callCount(http.MethodGet, "bed") != 0 {
		t.Error("bed resource requested without a session")
	}
}

func TestFetchBed_RecoversFromExpiredSession(t *testing.T) {
	fake := newFake()
	fake.checkKey = true
	seedBed(fake, "100")
	client := newTestClient(t, fake)

	if _, err := client.FetchBed(context.Background()); err != nil {
		t.Fatalf("first FetchBed() error = %v", err)
	}

	fake.mu.Lock()
	fake.key = "expired"
	fake.mu.Unlock()

	bed, err := client.FetchBed(context.Background())
	if err != nil {
		t.Fatalf("second FetchBed() error = %v", err)
	}
	if bed.BedID != "100" {
		t.Errorf("BedID = %q", bed.BedID)
	}
	if got := fake.loginCount(); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
}

func TestAssemble(t *testing.T) {
	shared := &Sleeper{SleeperID: "S1", BedID: "b"}
	p := snapshotParts{
		bed: &Bed{BedID: "b", SleeperLeftID: "S1", SleeperRightID: "S1"},
		sides: []*Side{
			{Side: Left, BedID: "b", SleepNumber: 30},
			{Side: Right, BedID: "b", SleepNumber: 50},
			{Side: Left, BedID: "other", SleepNumber: 99},
		},
		sleepers:         []*Sleeper{shared},
		lights:           []*Light{{BedID: "b", Outlet: 1}, {BedID: "other", Outlet: 2}},
		foundation:       &Foundation{BedID: "b"},
		foundationStatus: &FoundationStatus{BedID: "other"},
		favorite:         &SleepNumberFavorite{Left: 25, Right: 75},
	}

	bed := assemble(p)

	if bed.LeftSide.SleepNumber != 30 {
		t.Errorf("left side from another bed attached: %+v", bed.LeftSide)
	}
	if got := []int{*bed.LeftSide.Sleeper.Favorite, *bed.RightSide.Sleeper.Favorite}; !reflect.DeepEqual(got, []int{25, 75}) {
		t.Errorf("favorites = %v, want [25 75]", got)
	}
	if shared.Favorite != nil {
		t.Error("assemble mutated the input sleeper")
	}
	if len(bed.Lights) != 1 {
		t.Errorf("len(Lights) = %d, want 1", len(bed.Lights))
	}
	if bed.Foundation == nil || bed.Foundation.Status != nil {
		t.Errorf("foundation status of another bed attached: %+v", bed.Foundation)
	}
}
