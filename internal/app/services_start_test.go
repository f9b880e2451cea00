package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dokzlo13/sleepiqd/internal/actions"
	"github.com/dokzlo13/sleepiqd/internal/config"
)

// fakeVendor serves one bed ("100") with a single outlet and counts requests.
type fakeVendor struct {
	mu          sync.Mutex
	calls       map[string]int
	sleepNumber int
}

func newFakeVendor(t *testing.T, sleepNumber int) (*fakeVendor, string) {
	t.Helper()
	v := &fakeVendor{calls: make(map[string]int), sleepNumber: sleepNumber}
	srv := httptest.NewServer(v)
	t.Cleanup(srv.Close)
	return v, srv.URL + "/rest"
}

func (v *fakeVendor) count(method, path string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls[method+" "+path]
}

func (v *fakeVendor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/rest/")

	v.mu.Lock()
	v.calls[r.Method+" "+path]++
	v.mu.Unlock()

	side := func(n int) map[string]any {
		return map[string]any{"isInBed": true, "sleepNumber": n, "pressure": 1000, "alertId": 0}
	}
	sleeper := func(id string, side int) map[string]any {
		return map[string]any{"sleeperId": id, "bedId": "100", "firstName": id, "side": side}
	}

	switch {
	case path == "login":
		vendorReply(w, http.StatusOK, map[string]any{"key": "k1", "userId": "u1"})
	case path == "bed":
		vendorReply(w, http.StatusOK, map[string]any{"beds": []any{map[string]any{
			"bedId": "100", "sleeperLeftId": "L1", "sleeperRightId": "R1", "name": "Bed",
			"model": "P6", "serial": "SN-1", "macAddress": "00", "size": "KING", "generation": "360",
		}}})
	case path == "bed/familyStatus":
		vendorReply(w, http.StatusOK, map[string]any{"beds": []any{map[string]any{
			"bedId": "100", "leftSide": side(v.sleepNumber), "rightSide": side(60),
		}}})
	case path == "sleeper":
		vendorReply(w, http.StatusOK, map[string]any{"sleepers": []any{sleeper("L1", 0), sleeper("R1", 1)}})
	case path == "bed/100/foundation/outlet" && r.Method == http.MethodPut:
		vendorReply(w, http.StatusOK, map[string]any{})
	case path == "bed/100/foundation/outlet" && r.URL.Query().Get("outletId") == "1":
		vendorReply(w, http.StatusOK, map[string]any{"bedId": "100", "outlet": 1, "setting": 0})
	case path == "bed/100/foundation/system":
		vendorReply(w, http.StatusOK, map[string]any{
			"fsBedType": 2, "fsBoardFaults": 0, "fsBoardFeatures": 0, "fsBoardHWRevisionCode": 1,
			"fsBoardStatus": 0, "fsLeftUnderbedLightPWM": 0, "fsRightUnderbedLightPWM": 0,
		})
	case path == "bed/100/foundation/status":
		vendorReply(w, http.StatusOK, foundationStatusPayload())
	case path == "bed/100/sleepNumberFavorite":
		vendorReply(w, http.StatusOK, map[string]any{"sleepNumberFavoriteLeft": 40, "sleepNumberFavoriteRight": 60})
	default:
		vendorReply(w, http.StatusNotFound, map[string]any{})
	}
}

func foundationStatusPayload() map[string]any {
	out := map[string]any{
		"fsNeedsHoming": false, "fsOutletsOn": false, "fsTimedOutletsOn": false,
		"fsIsMoving": false, "fsConfigured": true,
	}
	for _, key := range []string{
		"fsCurrentPositionPreset", "fsCurrentPositionPresetLeft", "fsCurrentPositionPresetRight",
		"fsTimerPositionPreset", "fsTimerPositionPresetLeft", "fsTimerPositionPresetRight",
		"fsLeftHeadPosition", "fsLeftFootPosition", "fsRightHeadPosition", "fsRightFootPosition",
		"fsLeftPositionTimerLSB", "fsLeftPositionTimerMSB", "fsRightPositionTimerLSB", "fsRightPositionTimerMSB",
		"fsLeftHeadActuatorMotorStatus", "fsLeftFootActuatorMotorStatus",
		"fsRightHeadActuatorMotorStatus", "fsRightFootActuatorMotorStatus",
		"fsType", "fsStatusSummary",
	} {
		out[key] = "00"
	}
	return out
}

func vendorReply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func vendorConfig(t *testing.T, baseURL, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(
		"sleepiq: {username: a@b.c, password: secret, base_url: '" + baseURL + "', timeout: 2s}\n" +
			"database: {path: ':memory:'}\n" + extra))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auto.lua")
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestServices_SnapshotHookCommandsDoNotRepoll(t *testing.T) {
	vendor, baseURL := newFakeVendor(t, 30)
	script := writeScript(t, `
local bed = require("bed")
function on_snapshot(s)
  if s.leftSide.sleepNumber ~= 40 then
    bed.command("light", {outlet = 1, on = true})
  end
end
`)
	cfg := vendorConfig(t, baseURL, "poll: {interval: 1h, min_refresh: 1ms}\nscript: "+script+"\n")

	s, err := NewServices(cfg)
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		s.Close()
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Close()

	eventually(t, func() bool { return vendor.count(http.MethodPut, "bed/100/foundation/outlet") == 1 })
	time.Sleep(500 * time.Millisecond)

	if n := vendor.count(http.MethodGet, "bed"); n != 1 {
		t.Errorf("bed fetches = %d, want 1", n)
	}
	if n := vendor.count(http.MethodPut, "bed/100/foundation/outlet"); n != 1 {
		t.Errorf("light commands = %d, want 1", n)
	}
}

func TestServices_CommandRefreshIsRateLimited(t *testing.T) {
	vendor, baseURL := newFakeVendor(t, 40)
	cfg := vendorConfig(t, baseURL, "poll: {interval: 1h, min_refresh: 1s}\n")

	s, err := NewServices(cfg)
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		s.Close()
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Close()

	eventually(t, func() bool { return s.Bed.Poller.BedID() == "100" })

	args := map[string]any{"outlet": 1, "on": true}
	for range 5 {
		if err := s.Invoker.Invoke(context.Background(), actions.CommandLight, args, ""); err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
	}
	if n := vendor.count(http.MethodGet, "bed"); n != 1 {
		t.Errorf("bed fetches right after commands = %d, want 1", n)
	}

	eventually(t, func() bool { return vendor.count(http.MethodGet, "bed") == 2 })
	time.Sleep(200 * time.Millisecond)
	if n := vendor.count(http.MethodGet, "bed"); n != 2 {
		t.Errorf("bed fetches after the gap = %d, want 2", n)
	}
}

func TestServices_CloseWaitsForBackgroundWork(t *testing.T) {
	s, err := NewServices(testConfig(t, ""))
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	var finished atomic.Bool
	s.goRun(func() {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})

	s.Close()
	if !finished.Load() {
		t.Error("Close returned before background work finished")
	}
}

func TestServices_CloseStopsPoller(t *testing.T) {
	vendor, baseURL := newFakeVendor(t, 40)
	cfg := vendorConfig(t, baseURL, "poll: {interval: 1s, min_refresh: 1ms}\n")

	s, err := NewServices(cfg)
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		s.Close()
		t.Fatalf("Start() error = %v", err)
	}
	eventually(t, func() bool { return vendor.count(http.MethodGet, "bed") == 1 })

	s.Close()
	after := vendor.count(http.MethodGet, "bed")
	time.Sleep(1200 * time.Millisecond)
	if n := vendor.count(http.MethodGet, "bed"); n != after {
		t.Errorf("bed fetches after Close = %d, want %d", n, after)
	}
}
