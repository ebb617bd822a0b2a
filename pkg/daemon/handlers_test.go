package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/events"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/monitor"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/version"
)

func TestGetStatus(t *testing.T) {
	store := NewStatusStore()
	store.update(time.Now(), 123.5, []monitor.Status{{Name: "i2c-6", Brightness: 40, Target: 45}}, nil)

	router := setupRoutes(store, events.NewHub())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /status = %d, want %d", w.Code, http.StatusOK)
	}

	var st Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if st.Lux != 123.5 || len(st.Monitors) != 1 || st.Monitors[0].Brightness != 40 || st.Monitors[0].Target != 45 {
		t.Errorf("GET /status = %+v", st)
	}
	if st.LastError != "" {
		t.Errorf("LastError = %q, want empty", st.LastError)
	}
}

func TestGetVersion(t *testing.T) {
	router := setupRoutes(NewStatusStore(), events.NewHub())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	var v string
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v != version.Version {
		t.Errorf("GET /version = %q, want %q", v, version.Version)
	}
}

func TestNotFound(t *testing.T) {
	router := setupRoutes(NewStatusStore(), events.NewHub())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/status", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("PUT /status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestStreamEvents(t *testing.T) {
	hub := events.NewHub()
	srv := httptest.NewServer(setupRoutes(NewStatusStore(), hub))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	for hub.Subscribers() == 0 {
		time.Sleep(time.Millisecond)
	}
	hub.Publish(events.MonitorBrightness, events.BrightnessEvent{Display: "i2c-6", From: 10, To: 12})

	var name, data string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if line == "" && data != "" {
			break
		}
		if v, ok := strings.CutPrefix(line, "event:"); ok {
			name = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(v)
		}
	}

	if name != events.MonitorBrightness {
		t.Errorf("event name = %q, want %q", name, events.MonitorBrightness)
	}
	b, err := events.DecodeAs[events.BrightnessEvent](events.Event{Name: name, Data: json.RawMessage(data)})
	if err != nil {
		t.Fatalf("DecodeAs() error = %v (data %q)", err, data)
	}
	if b.Display != "i2c-6" || b.To != 12 {
		t.Errorf("event = %+v", b)
	}

	// closing the hub ends the stream
	hub.Close()
	for sc.Scan() {
	}
}
