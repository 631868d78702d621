package api

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/api/models"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/control"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/logging"
)

type fakeState struct {
	snap control.Snapshot
}

func (f fakeState) Snapshot() control.Snapshot { return f.snap }

type fakeRate int64

func (f fakeRate) Load() int64 { return int64(f) }

func newTestServer(t *testing.T, opts *Options) (*httptest.Server, *events.Bus) {
	t.Helper()
	if opts.EventBus == nil {
		opts.EventBus = events.New()
	}
	server := NewServer(opts)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, opts.EventBus
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthAndVersion(t *testing.T) {
	ts, _ := newTestServer(t, &Options{})

	var health models.HealthData
	if code := getJSON(t, ts.URL+"/api/health", &health); code != http.StatusOK {
		t.Fatalf("health status = %d", code)
	}
	if health.Status != "ok" {
		t.Errorf("health = %+v", health)
	}

	var v models.VersionData
	if code := getJSON(t, ts.URL+"/api/version", &v); code != http.StatusOK {
		t.Fatalf("version status = %d", code)
	}
	if v.Version == "" || v.GoVersion == "" {
		t.Errorf("version = %+v", v)
	}
}

func TestState(t *testing.T) {
	snap := control.Snapshot{
		Tick:      3,
		Mask:      0x80,
		Register:  ^uint32(0x80),
		Position:  7,
		Width:     10,
		Direction: "increasing",
		Mode:      "button",
		RateMs:    100,
		UpdatedAt: time.Now(),
	}
	ts, _ := newTestServer(t, &Options{
		State:      fakeState{snap},
		Rate:       fakeRate(-5),
		SinkName:   "memory",
		Pointer:    "none",
		RateSource: "stdin",
		MinRateMs:  1,
		MaxRateMs:  60000,
	})

	var state models.StateData
	if code := getJSON(t, ts.URL+"/api/state", &state); code != http.StatusOK {
		t.Fatalf("state status = %d", code)
	}
	if state.Mask != "0x080" || state.Register != "0xffffff7f" {
		t.Errorf("mask/register = %s/%s", state.Mask, state.Register)
	}
	if state.Tick != 3 || state.Position != 7 || state.Direction != "increasing" {
		t.Errorf("state = %+v", state)
	}
	if state.RateInput != -5 || state.RateMs != 100 || state.Sink != "memory" {
		t.Errorf("state = %+v", state)
	}
}

func TestState_NoLoop(t *testing.T) {
	ts, _ := newTestServer(t, &Options{})
	if code := getJSON(t, ts.URL+"/api/state", nil); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
}

func TestBasicAuth(t *testing.T) {
	ts, _ := newTestServer(t, &Options{
		AuthUsername: "admin",
		AuthPassword: "secret",
		State:        fakeState{control.Snapshot{Width: 8}},
	})

	// Health stays open.
	if code := getJSON(t, ts.URL+"/api/health", nil); code != http.StatusOK {
		t.Errorf("health without auth = %d", code)
	}

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("state without auth = %d, want 401", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("WWW-Authenticate"), "Basic") {
		t.Error("missing WWW-Authenticate header")
	}

	tests := []struct {
		name string
		user string
		pass string
		want int
	}{
		{"valid", "admin", "secret", http.StatusOK},
		{"wrong password", "admin", "nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/state", nil)
			req.SetBasicAuth(tt.user, tt.pass)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	creds := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	if code := getJSON(t, ts.URL+"/api/state?auth="+creds, nil); code != http.StatusOK {
		t.Errorf("query auth status = %d", code)
	}
}

func TestPrometheusHandlerMounted(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = w.Write([]byte("ledspin_loop_ticks_total 1\n"))
	})
	ts, _ := newTestServer(t, &Options{PrometheusHandler: handler})

	if code := getJSON(t, ts.URL+"/metrics", nil); code != http.StatusOK || !called {
		t.Errorf("metrics status = %d, called = %v", code, called)
	}
}

func TestEventsStream(t *testing.T) {
	ts, bus := newTestServer(t, &Options{})

	// Headers are only flushed with the first event, and the handler
	// subscribes after the request arrives, so keep publishing until read.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bus.Publish(events.DirectionChangedEvent{Tick: 1, From: "decreasing", To: "increasing"})
			}
		}
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(ts.URL + "/api/events")
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	lines := make(chan string, 10)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-lines:
			if strings.HasPrefix(line, "event:") && !strings.Contains(line, "direction-changed") {
				t.Errorf("unexpected event line %q", line)
			}
			if strings.HasPrefix(line, "data:") {
				if !strings.Contains(line, `"to":"increasing"`) {
					t.Errorf("unexpected data %q", line)
				}
				return
			}
		case <-deadline:
			t.Fatal("Timeout waiting for SSE event")
		}
	}
}

func TestLogs(t *testing.T) {
	logging.Initialize(logging.Config{Level: "debug", Format: "text"})
	logger := logging.GetLogger(logging.ModuleRate)
	logger.Debug("Pointer noise")
	logger.Info("Rate updated", "rate_ms", 250)
	logging.GetLogger(logging.ModuleControl).Warn("LED register write failed")

	ts, _ := newTestServer(t, &Options{})

	var logs models.LogsData
	if code := getJSON(t, ts.URL+"/api/logs?module=rate&level=info", &logs); code != http.StatusOK {
		t.Fatalf("logs status = %d", code)
	}
	if logs.Count == 0 {
		t.Fatal("no log entries returned")
	}
	for _, e := range logs.Entries {
		if e.Module != "rate" || e.Level == "debug" {
			t.Errorf("filter leaked %+v", e)
		}
	}
	if last := logs.Entries[len(logs.Entries)-1]; last.Message != "Rate updated" {
		t.Errorf("last entry = %+v", last)
	}

	var levels models.LogLevelsData
	if code := getJSON(t, ts.URL+"/api/logs/levels", &levels); code != http.StatusOK {
		t.Fatalf("levels status = %d", code)
	}
	if levels.Levels["rate"] != "debug" {
		t.Errorf("levels = %v", levels.Levels)
	}
}

func TestFilterLogs(t *testing.T) {
	entries := []logging.LogEntry{
		{Level: "debug", Module: "control", Message: "a"},
		{Level: "info", Module: "control", Message: "b"},
		{Level: "warn", Module: "rate", Message: "c"},
		{Level: "error", Module: "control", Message: "d"},
	}

	got := filterLogs(entries, "control", "info", 100)
	if len(got) != 2 || got[0].Message != "b" || got[1].Message != "d" {
		t.Errorf("filterLogs(control, info) = %+v", got)
	}
	got = filterLogs(entries, "", "", 2)
	if len(got) != 2 || got[0].Message != "c" {
		t.Errorf("filterLogs(limit 2) = %+v", got)
	}
}

func TestCORS(t *testing.T) {
	ts, _ := newTestServer(t, &Options{})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/state", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}

	resp, err = http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Allow-Origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}
