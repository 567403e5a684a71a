package homeassistant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// fakeHA speaks enough of the Home Assistant websocket protocol for tests.
type fakeHA struct {
	t      *testing.T
	server *httptest.Server
	token  string

	mu       sync.Mutex
	areas    []map[string]any
	devices  []map[string]any
	entities []map[string]any
	states   []map[string]any
	labels   []map[string]any
	commands []map[string]any
	connects int
	open     []*websocket.Conn

	// failures maps a command type to the error returned for it.
	failures map[string]apiError
	// silent lists command types that never get a result.
	silent map[string]bool
}

func newFakeHA(t *testing.T) *fakeHA {
	t.Helper()
	f := &fakeHA{
		t:        t,
		token:    "secret",
		failures: make(map[string]apiError),
		silent:   make(map[string]bool),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeHA) url() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/websocket"
}

func (f *fakeHA) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != websocketPath {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	f.mu.Lock()
	f.connects++
	f.open = append(f.open, ws)
	f.mu.Unlock()

	if err := ws.WriteJSON(map[string]any{"type": "auth_required", "ha_version": "2026.3.0"}); err != nil {
		return
	}
	var auth map[string]any
	if err := ws.ReadJSON(&auth); err != nil {
		return
	}
	if auth["type"] != "auth" || auth["access_token"] != f.token {
		_ = ws.WriteJSON(map[string]any{"type": "auth_invalid", "message": "Invalid access token"})
		return
	}
	if err := ws.WriteJSON(map[string]any{"type": "auth_ok", "ha_version": "2026.3.0"}); err != nil {
		return
	}

	var writeMu sync.Mutex
	for {
		var cmd map[string]any
		if err := ws.ReadJSON(&cmd); err != nil {
			return
		}
		reply := f.respond(cmd)
		if reply == nil {
			continue
		}
		writeMu.Lock()
		err := ws.WriteJSON(reply)
		writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (f *fakeHA) respond(cmd map[string]any) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commands = append(f.commands, cmd)
	cmdType, _ := cmd["type"].(string)
	id := cmd["id"]

	if f.silent[cmdType] {
		return nil
	}
	if apiErr, ok := f.failures[cmdType]; ok {
		return map[string]any{
			"id": id, "type": "result", "success": false,
			"error": map[string]any{"code": apiErr.Code, "message": apiErr.Message},
		}
	}

	var result any
	switch cmdType {
	case cmdAreaList:
		result = f.areas
	case cmdDeviceList:
		result = f.devices
	case cmdEntityList:
		result = f.entities
	case cmdGetStates:
		result = f.states
	case cmdLabelList:
		result = f.labels
	case cmdLabelCreate:
		name, _ := cmd["name"].(string)
		label := map[string]any{"label_id": strings.ToLower(name), "name": name}
		f.labels = append(f.labels, label)
		result = label
	case cmdEntityUpdate:
		result = map[string]any{"entity_entry": map[string]any{"entity_id": cmd["entity_id"]}}
	default:
		return map[string]any{
			"id": id, "type": "result", "success": false,
			"error": map[string]any{"code": "unknown_command", "message": "Unknown command."},
		}
	}
	return map[string]any{"id": id, "type": "result", "success": true, "result": result}
}

func (f *fakeHA) commandsOfType(cmdType string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, c := range f.commands {
		if c["type"] == cmdType {
			out = append(out, c)
		}
	}
	return out
}

// dropAll closes the server side of every connection.
func (f *fakeHA) dropAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ws := range f.open {
		ws.Close()
	}
	f.open = nil
}

func (f *fakeHA) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// mustJSON round-trips v so numbers compare the way decoded frames do.
func mustJSON(t *testing.T, v any) any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	return out
}
