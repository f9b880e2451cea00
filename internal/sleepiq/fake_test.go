package sleepiq

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeSleepIQ is an in-process stand-in for the vendor API.
type fakeSleepIQ struct {
	mu sync.Mutex

	logins     int
	key        string
	checkKey   bool
	loginReply func(n int) (int, any)

	handlers map[string]http.HandlerFunc
	calls    map[string]int
	queries  map[string]url.Values
	bodies   map[string]map[string]any
}

func newFake() *fakeSleepIQ {
	return &fakeSleepIQ{
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
		queries:  make(map[string]url.Values),
		bodies:   make(map[string]map[string]any),
	}
}

func (f *fakeSleepIQ) handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = h
}

// reply registers a handler that always answers status with body as JSON.
func (f *fakeSleepIQ) reply(method, path string, status int, body any) {
	f.handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, body)
	})
}

func (f *fakeSleepIQ) callCount(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

func (f *fakeSleepIQ) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeSleepIQ) lastQuery(method, path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[method+" "+path]
}

func (f *fakeSleepIQ) lastBody(method, path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[method+" "+path]
}

func (f *fakeSleepIQ) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/rest/")

	if path == "login" {
		f.serveLogin(w, r)
		return
	}

	key := r.Method + " " + path
	var body map[string]any
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}

	f.mu.Lock()
	f.calls[key]++
	f.queries[key] = r.URL.Query()
	f.bodies[key] = body
	h := f.handlers[key]
	stale := f.checkKey && r.URL.Query().Get(tokenParam) != f.key
	f.mu.Unlock()

	if stale {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"Error": map[string]any{"Code": 50002}})
		return
	}
	if h == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	h(w, r)
}

func (f *fakeSleepIQ) serveLogin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.logins++
	n := f.logins
	reply := f.loginReply
	f.mu.Unlock()

	if reply != nil {
		status, body := reply(n)
		writeJSON(w, status, body)
		return
	}

	var creds loginRequest
	_ = json.NewDecoder(r.Body).Decode(&creds)
	if creds.Login == "" || creds.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{})
		return
	}

	key := fmt.Sprintf("key-%d", n)
	f.mu.Lock()
	f.key = key
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "userId": "u1"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, fake *fakeSleepIQ, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL + "/rest"),
		WithTransport(NewRestyTransport(2 * time.Second)),
	}
	return NewClient(Credentials{Username: "sleeper@example.com", Password: "secret"}, append(base, opts...)...)
}

// Fixtures shaped like real vendor payloads.

func bedFixture(bedID, left, right string) map[string]any {
	return map[string]any{
		"beds": []any{map[string]any{
			"bedId":            bedID,
			"sleeperLeftId":    left,
			"sleeperRightId":   right,
			"name":             "Bed",
			"model":            "P6",
			"serial":           "SN-1",
			"macAddress":       "64DBA0000000",
			"size":             "KING",
			"generation":       "360",
			"accountId":        "acc-1",
			"dualSleep":        true,
			"registrationDate": "2021-01-01T00:00:00Z",
		}},
	}
}

func sideFixture(inBed bool, sleepNumber, pressure int) map[string]any {
	return map[string]any{
		"isInBed":              inBed,
		"alertDetailedMessage": "No Alert",
		"sleepNumber":          sleepNumber,
		"alertId":              0,
		"lastLink":             "00:00:00",
		"pressure":             pressure,
	}
}

func familyStatusFixture(bedID string) map[string]any {
	return map[string]any{
		"beds": []any{map[string]any{
			"bedId":     bedID,
			"status":    1,
			"leftSide":  sideFixture(true, 40, 1200),
			"rightSide": sideFixture(false, 60, 900),
		}},
	}
}

func sleeperFixture(id, bedID, name string, side int) map[string]any {
	return map[string]any{
		"sleeperId":  id,
		"bedId":      bedID,
		"firstName":  name,
		"side":       side,
		"birthYear":  "1985",
		"birthMonth": 6,
		"weight":     170,
		"height":     70,
		"sleepGoal":  480,
		"gender":     1,
	}
}

func sleepersFixture(bedID string) map[string]any {
	return map[string]any{
		"sleepers": []any{
			sleeperFixture("L1", bedID, "Alex", 0),
			sleeperFixture("R1", bedID, "Sam", 1),
		},
	}
}

func lightFixture(bedID string, outlet, setting int) map[string]any {
	return map[string]any{"bedId": bedID, "outlet": outlet, "setting": setting, "timer": nil}
}

func foundationFixture(features, bedType int) map[string]any {
	return map[string]any{
		"fsBedType":               bedType,
		"fsBoardFaults":           0,
		"fsBoardFeatures":         features,
		"fsBoardHWRevisionCode":   1,
		"fsBoardStatus":           0,
		"fsLeftUnderbedLightPWM":  30,
		"fsRightUnderbedLightPWM": 30,
	}
}

func foundationStatusFixture() map[string]any {
	return map[string]any{
		"fsCurrentPositionPreset":        "Flat",
		"fsCurrentPositionPresetLeft":    "Flat",
		"fsCurrentPositionPresetRight":   "Read",
		"fsTimerPositionPreset":          "Off",
		"fsTimerPositionPresetLeft":      "Off",
		"fsTimerPositionPresetRight":     "Off",
		"fsLeftHeadPosition":             "00",
		"fsLeftFootPosition":             "00",
		"fsRightHeadPosition":            "2d",
		"fsRightFootPosition":            "0a",
		"fsLeftPositionTimerLSB":         "00",
		"fsLeftPositionTimerMSB":         "00",
		"fsRightPositionTimerLSB":        "00",
		"fsRightPositionTimerMSB":        "00",
		"fsLeftHeadActuatorMotorStatus":  "00",
		"fsLeftFootActuatorMotorStatus":  "00",
		"fsRightHeadActuatorMotorStatus": "00",
		"fsRightFootActuatorMotorStatus": "00",
		"fsType":                         "Split King",
		"fsStatusSummary":                "42",
		"fsNeedsHoming":                  false,
		"fsOutletsOn":                    true,
		"fsTimedOutletsOn":               false,
		"fsIsMoving":                     false,
		"fsConfigured":                   true,
	}
}

// seedBed registers a complete, consistent account on the fake.
func seedBed(f *fakeSleepIQ, bedID string) {
	f.reply(http.MethodGet, "bed", http.StatusOK, bedFixture(bedID, "L1", "R1"))
	f.reply(http.MethodGet, "bed/familyStatus", http.StatusOK, familyStatusFixture(bedID))
	f.reply(http.MethodGet, "sleeper", http.StatusOK, sleepersFixture(bedID))
	f.handle(http.MethodGet, "bed/"+bedID+"/foundation/outlet", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("outletId") {
		case "1":
			writeJSON(w, http.StatusOK, lightFixture(bedID, 1, 1))
		case "3":
			writeJSON(w, http.StatusOK, lightFixture(bedID, 3, 0))
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{})
		}
	})
	f.reply(http.MethodGet, "bed/"+bedID+"/foundation/system", http.StatusOK, foundationFixture(0b00010, 2))
	f.reply(http.MethodGet, "bed/"+bedID+"/foundation/status", http.StatusOK, foundationStatusFixture())
	f.reply(http.MethodGet, "bed/"+bedID+"/sleepNumberFavorite", http.StatusOK, map[string]any{
		"bedId":                    bedID,
		"sleepNumberFavoriteLeft":  40,
		"sleepNumberFavoriteRight": 60,
	})
	f.reply(http.MethodGet, "bed/"+bedID+"/responsiveAir", http.StatusOK, map[string]any{
		"leftSideEnabled": true, "rightSideEnabled": false, "pollFrequency": 3,
	})
	f.reply(http.MethodGet, "bed/"+bedID+"/pauseMode", http.StatusOK, map[string]any{
		"accountId": "acc-1", "bedId": bedID, "pauseMode": "off",
	})
	f.reply(http.MethodGet, "bed/"+bedID+"/foundation/footwarming", http.StatusOK, map[string]any{
		"footWarmingStatusLeft": 31, "footWarmingStatusRight": 0,
		"footWarmingTimerLeft": 120, "footWarmingTimerRight": 0,
	})
}
