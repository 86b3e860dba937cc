package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/connection"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/embed"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/tools"
	handlers "github.com/GriffinCanCode/AgentOS/hostembed/internal/http"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/messages"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform/platformtest"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/server"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	ws        *platformtest.WindowSystem
	launcher  *platformtest.Launcher
	manager   *connection.Manager
	collector *messages.Collector
	server    *server.Server
}

func newFixture(t *testing.T, cfg config.ServerConfig) *fixture {
	t.Helper()

	catalog, err := tools.NewCatalog(
		tools.Tool{DisplayName: "PuTTY", FileName: "putty.exe", TryIntegrate: true},
		tools.Tool{DisplayName: "Browser", FileName: "browser.exe"},
	)
	require.NoError(t, err)

	ws := platformtest.NewWindowSystem()
	for pid := 1001; pid <= 1003; pid++ {
		ws.SetMainWindow(pid, platform.Handle(pid*0x10), "PuTTY")
	}
	launcher := platformtest.NewLauncher()
	collector := messages.NewCollector(nil, 0)

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	embedCfg := config.EmbedConfig{MaxWait: 50 * time.Millisecond, KillWait: 50 * time.Millisecond}
	host := embed.NewHost(embedCfg, ws, launcher, catalog, collector).WithMetrics(metrics)
	manager := connection.NewManager(host)

	h := handlers.NewHandlers(manager, collector, catalog, metrics)
	return &fixture{
		ws:        ws,
		launcher:  launcher,
		manager:   manager,
		collector: collector,
		server:    server.NewServer(cfg, h, metrics, reg, nil),
	}
}

func defaultConfig() config.ServerConfig {
	return config.Default().Server
}

func (f *fixture) open(t *testing.T, name string) connection.Info {
	t.Helper()
	c := platformtest.NewContainer(0x500, 0x400, platform.Size{Width: 640, Height: 480})
	info, err := f.manager.Open(&types.Connection{Name: name, ExternalTool: "PuTTY"}, c)
	require.NoError(t, err)
	return info
}

func (f *fixture) do(t *testing.T, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:50000"
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	var body map[string]any
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestRootAndHealth(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.open(t, "db01")

	w, body := f.do(t, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", body["status"])

	w, body = f.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])

	conns := body["connections"].(map[string]any)
	assert.EqualValues(t, 1, conns["total"])
	assert.EqualValues(t, 1, conns["connected"])
	assert.NotEmpty(t, conns["focused_id"])

	counters := body["counters"].(map[string]any)
	assert.EqualValues(t, 1, counters["connects"])
	assert.EqualValues(t, 1, counters["active_instances"])
}

func TestListAndGetConnections(t *testing.T) {
	f := newFixture(t, defaultConfig())
	first := f.open(t, "db01")
	f.open(t, "db02")

	w, body := f.do(t, http.MethodGet, "/connections")
	require.Equal(t, http.StatusOK, w.Code)

	list := body["connections"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "db01", list[0].(map[string]any)["name"])
	assert.Equal(t, "db02", list[1].(map[string]any)["name"])
	assert.Equal(t, "connected", list[0].(map[string]any)["state"])

	w, body = f.do(t, http.MethodGet, "/connections/"+first.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.ID.String(), body["id"])
	assert.Equal(t, "PuTTY", body["tool"])
	assert.Equal(t, "0x3e90", body["window"])
}

func TestConnectionIDValidation(t *testing.T) {
	f := newFixture(t, defaultConfig())

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"malformed", http.MethodGet, "/connections/nope", http.StatusBadRequest},
		{"wrong prefix", http.MethodGet, "/connections/inst_01HZY3J4V6Q2W8K9M0N1P2R3S4", http.StatusBadRequest},
		{"unknown get", http.MethodGet, "/connections/conn_01HZY3J4V6Q2W8K9M0N1P2R3S4", http.StatusNotFound},
		{"unknown focus", http.MethodPost, "/connections/conn_01HZY3J4V6Q2W8K9M0N1P2R3S4/focus", http.StatusNotFound},
		{"unknown close", http.MethodDelete, "/connections/conn_01HZY3J4V6Q2W8K9M0N1P2R3S4", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := f.do(t, tt.method, tt.path)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestFocusConnection(t *testing.T) {
	f := newFixture(t, defaultConfig())
	first := f.open(t, "db01")
	f.open(t, "db02")

	w, _ := f.do(t, http.MethodPost, "/connections/"+first.ID.String()+"/focus")
	require.Equal(t, http.StatusOK, w.Code)

	info, ok := f.manager.Get(first.ID)
	require.True(t, ok)
	assert.True(t, info.Focused)

	fg := f.ws.Foregrounded()
	require.NotEmpty(t, fg)
	assert.Equal(t, first.Window, fg[len(fg)-1])
}

func TestCloseConnection(t *testing.T) {
	f := newFixture(t, defaultConfig())
	info := f.open(t, "db01")

	w, _ := f.do(t, http.MethodDelete, "/connections/"+info.ID.String())
	require.Equal(t, http.StatusOK, w.Code)

	_, ok := f.manager.Get(info.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, f.ws.ActiveHooks())

	w, _ = f.do(t, http.MethodGet, "/connections/"+info.ID.String())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResizeConnections(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.open(t, "db01")
	f.ws.ResetPositions()

	w, _ := f.do(t, http.MethodPost, "/connections/resize")
	require.Equal(t, http.StatusOK, w.Code)

	// size pass then position pass
	assert.Len(t, f.ws.Positions(), 2)
}

func TestMessages(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.open(t, "db01")

	w, body := f.do(t, http.MethodGet, "/messages")
	require.Equal(t, http.StatusOK, w.Code)
	msgs := body["messages"].([]any)
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Attempting to start: PuTTY", msgs[0].(map[string]any)["text"])

	w, body = f.do(t, http.MethodGet, "/messages?min=warning")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["messages"])

	w, _ = f.do(t, http.MethodGet, "/messages?min=loud")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodDelete, "/messages")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.collector.Messages())
}

func TestTools(t *testing.T) {
	f := newFixture(t, defaultConfig())

	w, body := f.do(t, http.MethodGet, "/tools")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["count"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.open(t, "db01")

	w, _ := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hostembed_connects_total{outcome="connected"} 1`)

	// the scrape itself is counted after it is served
	w, _ = f.do(t, http.MethodGet, "/metrics")
	assert.Contains(t, w.Body.String(), `hostembed_http_requests_total{method="GET",route="/metrics",status="200"} 1`)
}

func TestRateLimit(t *testing.T) {
	cfg := defaultConfig()
	cfg.RateLimit = 1
	cfg.RateBurst = 2
	f := newFixture(t, cfg)

	codes := make([]int, 0, 3)
	for range 3 {
		w, _ := f.do(t, http.MethodGet, "/")
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, defaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, "http://localhost", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServeAndClose(t *testing.T) {
	f := newFixture(t, defaultConfig())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.server.Close(ctx))
	assert.NoError(t, <-done)
}
