package server

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"skeleton-viewer/internal/config"
	"skeleton-viewer/internal/types"
)

func testConfig() config.AppConfig {
	return config.AppConfig{
		Cameras:        4,
		FrameWidth:     640,
		FrameHeight:    480,
		Scale:          0.5,
		FrameSource:    "CameraGateway",
		SkeletonSource: "OpenPose",
		Port:           9999,
	}
}

func TestHandleConfig(t *testing.T) {
	srv := newServer(testConfig(), nil, nil, func() map[string]any {
		return map[string]any{"grid": map[string]int{"rows": 2, "cols": 2}}
	})

	req := httptest.NewRequest("GET", "/config", nil)
	rec := httptest.NewRecorder()
	srv.handleConfig(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if payload["cameras"].(float64) != 4 {
		t.Fatalf("unexpected cameras: %v", payload["cameras"])
	}
	if payload["scale"].(float64) != 0.5 {
		t.Fatalf("unexpected scale: %v", payload["scale"])
	}
	if payload["port"].(float64) != 9999 {
		t.Fatalf("unexpected port: %v", payload["port"])
	}
	grid := payload["grid"].(map[string]any)
	if grid["rows"].(float64) != 2 || grid["cols"].(float64) != 2 {
		t.Fatalf("unexpected grid: %v", grid)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newServer(testConfig(), func() map[string]any {
		return map[string]any{"metrics": map[string]any{"frames_total": 7}}
	}, nil, nil)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	metrics := payload["metrics"].(map[string]any)
	if metrics["frames_total"].(float64) != 7 || metrics["ws_clients"].(float64) != 0 {
		t.Fatalf("unexpected metrics: %v", metrics)
	}

	srv = newServer(testConfig(), func() map[string]any { return nil }, nil, nil)
	rec = httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))
	if !strings.Contains(rec.Body.String(), "ws_clients") {
		t.Fatalf("expected ws_clients in %s", rec.Body.String())
	}
}

func TestStaticAndHealth(t *testing.T) {
	srv := newServer(testConfig(), nil, nil, nil)
	ts := httptest.NewServer(srv.routes(mustSub(t)))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected index status %d", resp.StatusCode)
	}
}

func TestWebsocketConfigSnapshotAndBroadcast(t *testing.T) {
	latest := types.UIComposite{Type: "composite", Seq: 3, Width: 2, Height: 2, Image: "AA=="}
	srv := newServer(testConfig(), nil, func() any { return latest }, nil)
	ts := httptest.NewServer(srv.routes(mustSub(t)))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages := make(chan any, 1)
	go srv.broadcast(ctx, messages)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first map[string]any
	if err := conn.ReadJSON(&first); err != nil || first["type"] != "config" {
		t.Fatalf("expected config message, got %v (%v)", first, err)
	}
	var snap types.UIComposite
	if err := conn.ReadJSON(&snap); err != nil || snap.Seq != 3 {
		t.Fatalf("expected latest composite, got %+v (%v)", snap, err)
	}

	if err := conn.WriteJSON(map[string]string{"type": "snapshot_request"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap = types.UIComposite{}
	if err := conn.ReadJSON(&snap); err != nil || snap.Seq != 3 {
		t.Fatalf("expected snapshot reply, got %+v (%v)", snap, err)
	}

	messages <- types.UIComposite{Type: "composite", Seq: 4}
	var pushed types.UIComposite
	if err := conn.ReadJSON(&pushed); err != nil || pushed.Seq != 4 {
		t.Fatalf("expected broadcast composite, got %+v (%v)", pushed, err)
	}
}

func TestRunDisabledOnZeroPort(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 0
	if err := Run(context.Background(), cfg, nil, nil, nil, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func mustSub(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	return sub
}
