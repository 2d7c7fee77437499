package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"couple-cards/internal/bridge"
	"couple-cards/internal/config"
	"couple-cards/internal/couple"
	"couple-cards/internal/detect"
	"couple-cards/internal/storage"
)

type serverFixture struct {
	store   *storage.Memory
	channel *bridge.MemoryChannel
}

func newServerFixture() *serverFixture {
	return &serverFixture{
		store:   storage.NewMemory(),
		channel: bridge.NewMemoryChannel(),
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.HubURL = "http://127.0.0.1:1"
	cfg.HubSecureURL = ""
	cfg.HealthProbeTimeoutMS = 200
	cfg.HeartbeatIntervalSeconds = 1
	return cfg
}

// newPeer builds one agent process on the shared origin and serves it.
func (f *serverFixture) newPeer(t *testing.T, profile string) (*Server, *httptest.Server) {
	t.Helper()
	cfg := testConfig()
	cfg.Profile = profile
	adapter := storage.NewAdapter(f.store, profile)
	b := bridge.NewBroadcast(adapter, f.channel)
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("bridge connect: %v", err)
	}
	t.Cleanup(b.Disconnect)
	agent := couple.NewReconciler(b, adapter, nil, cfg)
	srv := New(Options{
		Agent:    agent,
		Bridge:   b,
		Detector: detect.New(cfg, f.channel),
		Store:    adapter,
		Config:   cfg,
	})
	t.Cleanup(srv.Heartbeat().Stop)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func authPeer(t *testing.T, ts *httptest.Server, name, partnerName string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/auth", map[string]any{
		"name":         name,
		"couple_id":    "love_1699999999",
		"partner_name": partnerName,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("auth %s: status %d", name, resp.StatusCode)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	return body
}

func waitForCondition(t *testing.T, what string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
