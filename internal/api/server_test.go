package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-entity-manager/internal/history"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-entity-manager/internal/manager"
	"github.com/nerrad567/gray-logic-entity-manager/internal/metrics"
	"github.com/nerrad567/gray-logic-entity-manager/internal/naming"
	"github.com/nerrad567/gray-logic-entity-manager/internal/overrides"
	"github.com/nerrad567/gray-logic-entity-manager/internal/registry"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
	"github.com/nerrad567/gray-logic-entity-manager/migrations"
)

// testEnv is a server wired to an in-memory registry and a real SQLite
// history database.
type testEnv struct {
	srv     *Server
	handler http.Handler
	reg     *registry.Memory
	history *history.SQLiteRepository
}

func testRegistry() *registry.Memory {
	return registry.NewMemory(
		[]registry.Area{{ID: "living", Name: "Living Room"}, {ID: "office", Name: "Office"}},
		[]registry.Device{
			{ID: "dev-ceiling", Name: "Ceiling Light", AreaID: "living"},
			{ID: "dev-desk", Name: "Desk Lamp", AreaID: "office"},
		},
		[]registry.Entity{
			{Identifier: "light.ceiling", RegistryID: "r1", DeviceID: "dev-ceiling"},
			{Identifier: "light.office_desk_lamp_light", RegistryID: "r2", DeviceID: "dev-desk"},
			{Identifier: "switch.desk_socket", RegistryID: "r3", DeviceID: "dev-desk", Labels: []string{registry.MarkerTag}},
		},
		nil,
	)
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
}

func newTestEnv(t *testing.T, components map[string]HealthChecker) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "discard"}, "test")

	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "test.db"), WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	repo := history.NewSQLiteRepository(db.DB)

	reg := testRegistry()
	store := overrides.NewStore(overrides.NewSQLiteBackend(db.DB))
	store.Load(ctx)

	promReg := prometheus.NewRegistry()
	hub := NewHub(testWSConfig(), log)
	svc := manager.New(manager.Deps{
		Source:    reg,
		Mutator:   reg,
		Overrides: store,
		Resolver:  naming.NewResolver(naming.GenericTypes, nil),
		Observer: review.Observers{
			history.NewRecorder(repo, log),
			metrics.NewCollector(promReg),
			hub,
		},
		Logger: log,
	})

	srv, err := New(Deps{
		Config:     config.APIConfig{Host: "127.0.0.1", Port: 0, WebSocket: testWSConfig()},
		Logger:     log,
		Manager:    svc,
		History:    repo,
		Metrics:    promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
		Components: components,
		Hub:        hub,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{srv: srv, handler: srv.Handler(), reg: reg, history: repo}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

type stubChecker struct{ err error }

func (c stubChecker) HealthCheck(context.Context) error { return c.err }

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger expected error")
	}
	if _, err := New(Deps{Logger: logging.Nop()}); err == nil {
		t.Error("New() without manager expected error")
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"no components", nil, http.StatusOK, "ok"},
		{"healthy and disabled", map[string]HealthChecker{"database": stubChecker{}, "mqtt": nil}, http.StatusOK, "ok"},
		{"unhealthy", map[string]HealthChecker{"database": stubChecker{}, "influxdb": stubChecker{err: errors.New("down")}}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.components)
			rec := env.do(t, http.MethodGet, "/api/v1/health", nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			body := decode[map[string]any](t, rec)
			if body["status"] != tt.wantStatus {
				t.Errorf("status field = %v, want %q", body["status"], tt.wantStatus)
			}
			if body["version"] != "test" {
				t.Errorf("version = %v, want test", body["version"])
			}
		})
	}
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	req.Header.Set("Origin", "http://panel.local")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("X-Request-ID = %q, want abc123", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/api/v1/rename", nil)
	preflight.Header.Set("Origin", "http://panel.local")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, preflight)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("generated X-Request-ID missing")
	}
}

func TestAreas(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/areas", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := decode[struct {
		Areas []manager.AreaSummary `json:"areas"`
		Count int                   `json:"count"`
	}](t, rec)
	if body.Count != 2 || body.Areas[0].ID != "living" || body.Areas[1].EntityCount != 2 {
		t.Errorf("areas = %+v", body)
	}
}

func TestAreaEntities(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantIDs  []string
	}{
		{"all", "/api/v1/areas/office/entities", http.StatusOK, []string{"light.office_desk_lamp_light", "switch.desk_socket"}},
		{"domain", "/api/v1/areas/office/entities?domain=switch", http.StatusOK, []string{"switch.desk_socket"}},
		{"skip reviewed", "/api/v1/areas/office/entities?skip_reviewed=true", http.StatusOK, []string{"light.office_desk_lamp_light"}},
		{"bad bool", "/api/v1/areas/office/entities?skip_reviewed=maybe", http.StatusBadRequest, nil},
		{"unknown area", "/api/v1/areas/garage/entities", http.StatusNotFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			body := decode[struct {
				Entities []manager.EntityView `json:"entities"`
			}](t, rec)
			var ids []string
			for _, e := range body.Entities {
				ids = append(ids, e.EntityID)
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("entities mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("empty body", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/analyze", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		body := decode[struct {
			Total   int `json:"total"`
			Changes int `json:"changes"`
		}](t, rec)
		if body.Total != 3 || body.Changes != 2 {
			t.Errorf("total=%d changes=%d, want 3 and 2", body.Total, body.Changes)
		}
	})

	t.Run("conflicting filters", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/analyze", map[string]any{"skip_reviewed": true, "show_reviewed": true})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/analyze", map[string]any{"limt": 3})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestRenameBulk(t *testing.T) {
	t.Run("defaults to dry run", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(t, http.MethodPost, "/api/v1/rename", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		body := decode[manager.BulkResult](t, rec)
		if !body.DryRun {
			t.Error("dry_run = false, want true")
		}
		if body.Total != 2 {
			t.Errorf("total = %d, want 2 (reviewed entity skipped)", body.Total)
		}
		snap, _ := env.reg.Snapshot(context.Background())
		if _, ok := snap.Entity("light.ceiling"); !ok {
			t.Error("dry run renamed an entity")
		}
	})

	t.Run("live run records history", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(t, http.MethodPost, "/api/v1/rename", map[string]any{"dry_run": false})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		body := decode[manager.BulkResult](t, rec)
		if len(body.Processed) != 2 || len(body.Errors) != 0 {
			t.Errorf("processed=%d errors=%d", len(body.Processed), len(body.Errors))
		}

		rec = env.do(t, http.MethodGet, "/api/v1/history?run_id="+body.RunID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("history status = %d, body %s", rec.Code, rec.Body)
		}
		list := decode[history.ListResult](t, rec)
		if list.Total != 2 {
			t.Errorf("history total = %d, want 2", list.Total)
		}

		rec = env.do(t, http.MethodGet, "/metrics", nil)
		if !strings.Contains(rec.Body.String(), "entitymanager_apply_runs_total") {
			t.Error("/metrics missing entitymanager_apply_runs_total")
		}
	})
}

func TestRenameEntity(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("canonical", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/entities/light.office_desk_lamp_light/rename", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		body := decode[manager.RenameResult](t, rec)
		if body.Changed || body.Message != manager.MessageAlreadyCanonical {
			t.Errorf("result = %+v", body)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/entities/light.nowhere/rename", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("renames", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/entities/light.ceiling/rename", map[string]any{"dry_run": false})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		body := decode[manager.RenameResult](t, rec)
		if !body.Changed || body.NewID != "light.living_room_ceiling_light_light" {
			t.Errorf("result = %+v", body)
		}
	})
}

func TestOverrides(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPut, "/api/v1/overrides/area/living", map[string]any{"name": "Lounge"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/analyze", map[string]any{"entity_ids": []string{"light.ceiling"}})
	if !strings.Contains(rec.Body.String(), "light.lounge_ceiling_light_light") {
		t.Errorf("override not applied to analysis: %s", rec.Body)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/overrides", nil)
	body := decode[struct {
		Areas map[string]overrides.Record `json:"areas"`
		Count int                         `json:"count"`
	}](t, rec)
	if body.Count != 1 || body.Areas["living"].Name != "Lounge" {
		t.Errorf("overrides = %+v", body)
	}

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
	}{
		{"invalid kind", http.MethodPut, "/api/v1/overrides/room/living", map[string]any{"name": "x"}, http.StatusBadRequest},
		{"empty name", http.MethodPut, "/api/v1/overrides/device/dev-desk", map[string]any{"name": " "}, http.StatusBadRequest},
		{"entity with type", http.MethodPut, "/api/v1/overrides/entities/r2", map[string]any{"name": "Reading", "type": "lamp"}, http.StatusOK},
		{"remove", http.MethodDelete, "/api/v1/overrides/areas/living", nil, http.StatusNoContent},
		{"remove again", http.MethodDelete, "/api/v1/overrides/areas/living", nil, http.StatusNotFound},
		{"clear", http.MethodDelete, "/api/v1/overrides", nil, http.StatusNoContent},
		{"reload", http.MethodPost, "/api/v1/overrides/reload", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body)
			}
		})
	}

	if n := env.srv.manager.Overrides().Snapshot().Len(); n != 0 {
		t.Errorf("overrides after clear and reload = %d, want 0", n)
	}
}

func TestHistory_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{
		"/api/v1/history?limit=-1",
		"/api/v1/history?offset=abc",
		"/api/v1/history?outcome=renamed",
	} {
		rec := env.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, rec.Code)
		}
	}
}

func TestHistory_NotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	env.srv.history = nil
	rec := env.do(t, http.MethodGet, "/api/v1/history", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSystemMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/system", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[SystemMetrics](t, rec)
	if body.Version != "test" || body.Runtime.Goroutines == 0 {
		t.Errorf("metrics = %+v", body)
	}
}

func TestWebSocket_StreamsBatchProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.srv.hub.Run(ctx)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?channels=" + ChannelBatchCompleted
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// Registration happens in the handler; wait for it before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for env.srv.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/rename", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d", rec.Code)
	}

	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type      string        `json:"type"`
		EventType string        `json:"event_type"`
		Payload   BatchProgress `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != WSTypeEvent || msg.EventType != ChannelBatchCompleted {
		t.Errorf("message = %+v", msg)
	}
	if !msg.Payload.DryRun || msg.Payload.Total != 2 {
		t.Errorf("payload = %+v", msg.Payload)
	}
}

func TestWebSocket_Subscribe(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{ChannelEntityApplied}},
	}); err != nil {
		t.Fatal(err)
	}

	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if resp.Type != WSTypeResponse || resp.ID != "1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestWebSocket_RejectsUnknownChannel(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	tests := []struct {
		name    string
		msg     any
		wantMsg string
	}{
		{
			name:    "unknown channel",
			msg:     WSMessage{Type: WSTypeSubscribe, ID: "a", Payload: WSSubscribePayload{Channels: []string{"device.state"}}},
			wantMsg: "unknown channel device.state",
		},
		{
			name:    "missing channels",
			msg:     WSMessage{Type: WSTypeUnsubscribe, ID: "b"},
			wantMsg: "needs a payload with channels",
		},
		{
			name:    "unknown type",
			msg:     WSMessage{Type: "rename", ID: "c"},
			wantMsg: "unknown message type: rename",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteJSON(tt.msg); err != nil {
				t.Fatal(err)
			}
			//nolint:errcheck // test deadline
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var resp struct {
				Type    string            `json:"type"`
				Payload map[string]string `json:"payload"`
			}
			if err := conn.ReadJSON(&resp); err != nil {
				t.Fatalf("ReadJSON() error = %v", err)
			}
			if resp.Type != WSTypeError || !strings.Contains(resp.Payload["message"], tt.wantMsg) {
				t.Errorf("response = %+v, want error containing %q", resp, tt.wantMsg)
			}
		})
	}
}
