package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/gostream/component"
	"github.com/kbukum/gostream/errors"
	"github.com/kbukum/gostream/logger"
	"github.com/kbukum/gostream/server/middleware"
)

func testConfig() Config {
	cfg := Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	return cfg
}

func newTestServer(t *testing.T, health *[]component.Health) (*Server, *httptest.Server) {
	t.Helper()
	s := New(testConfig(), logger.Nop())
	s.ApplyMiddleware(nil)
	s.RegisterDefaultEndpoints("streamd", func(context.Context) []component.Health { return *health })
	s.GinEngine().GET("/boom", func(*gin.Context) { panic("boom") })
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding %s: %v", url, err)
	}
	return resp, body
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Port != 8080 || cfg.MaxBodySize != "10MB" || cfg.MaxConcurrentDeliveries != 64 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.WriteTimeout != 0 {
		t.Errorf("expected write timeout to stay disabled, got %d", cfg.WriteTimeout)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Addr())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"negative read timeout", func(c *Config) { c.ReadTimeout = -1 }, true},
		{"negative deliveries", func(c *Config) { c.MaxConcurrentDeliveries = -1 }, true},
		{"negative delivery wait", func(c *Config) { c.DeliveryWait = -time.Second }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	health := []component.Health{{Name: "catalog", Status: component.StatusHealthy}}
	_, ts := newTestServer(t, &health)

	resp, body := getJSON(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK || body["status"] != "healthy" {
		t.Fatalf("expected healthy 200, got %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get(middleware.HeaderRequestID) == "" {
		t.Error("expected request id header from server middleware")
	}

	health = append(health, component.Health{Name: "sse", Status: component.StatusUnhealthy})
	resp, body = getJSON(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusServiceUnavailable || body["status"] != "unhealthy" {
		t.Fatalf("expected unhealthy 503, got %d %v", resp.StatusCode, body)
	}

	resp, body = getJSON(t, ts.URL+"/ready")
	if resp.StatusCode != http.StatusServiceUnavailable || body["status"] != "not_ready" {
		t.Fatalf("expected not_ready 503, got %d %v", resp.StatusCode, body)
	}

	resp, body = getJSON(t, ts.URL+"/alive")
	if resp.StatusCode != http.StatusOK || body["status"] != "alive" {
		t.Fatalf("expected alive 200, got %d %v", resp.StatusCode, body)
	}
}

func TestInfoAndSystemEndpoints(t *testing.T) {
	var health []component.Health
	_, ts := newTestServer(t, &health)

	_, info := getJSON(t, ts.URL+"/info")
	if info["service"] != "streamd" || info["version"] == "" {
		t.Fatalf("unexpected info body: %v", info)
	}

	resp, sys := getJSON(t, ts.URL+"/system")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /system, got %d %v", resp.StatusCode, sys)
	}
	stats, ok := sys["stats"].(map[string]any)
	if !ok || stats["memory"] == nil {
		t.Fatalf("expected memory stats, got %v", sys)
	}
}

func TestPanicBecomesErrorEnvelope(t *testing.T) {
	var health []component.Health
	_, ts := newTestServer(t, &health)

	resp, body := getJSON(t, ts.URL+"/boom")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	e, _ := body["error"].(map[string]any)
	if e["code"] != string(errors.ErrCodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR, got %v", body)
	}
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/missing", func(c *gin.Context) { RespondWithError(c, errors.NotFound("file", "a.txt")) })
	engine.GET("/plain", func(c *gin.Context) { RespondWithError(c, context.DeadlineExceeded) })

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/missing", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/plain", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for a plain error, got %d", rr.Code)
	}
}

func TestComponentRoutes(t *testing.T) {
	var health []component.Health
	s, _ := newTestServer(t, &health)
	s.GinEngine().PUT("/files/:name", func(*gin.Context) {})
	s.GinEngine().GET("/files/:name", func(*gin.Context) {})

	routes := NewComponent(s).Routes()
	if len(routes) < 3 {
		t.Fatalf("expected routes, got %v", routes)
	}
	if routes[0].Path != "/boom" {
		t.Errorf("expected API routes first, got %v", routes[0])
	}
	if routes[1].Method != "GET" || routes[2].Method != "PUT" || routes[1].Path != "/files/:name" {
		t.Errorf("expected GET before PUT on /files/:name, got %v %v", routes[1], routes[2])
	}
	last := routes[len(routes)-1]
	if !systemPaths[last.Path] {
		t.Errorf("expected system route last, got %v", last)
	}
}

func TestFormatHandlerName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"github.com/kbukum/gostream/delivery.(*Handler).Deliver-fm", "Handler.Deliver"},
		{"github.com/kbukum/gostream/server/endpoint.Health.func1", "health"},
		{"github.com/kbukum/gostream/sse.RunsHandler.func1", "runshandler"},
		{"main.main.func2", "main"},
	}
	for _, tc := range tests {
		if got := formatHandlerName(tc.in); got != tc.want {
			t.Errorf("formatHandlerName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestComponentLifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.Port = freePort(t)
	s := New(cfg, logger.Nop())
	s.ApplyMiddleware(nil)
	s.RegisterDefaultEndpoints("streamd", nil)
	comp := NewComponent(s)
	shutdown := make(chan struct{})
	s.RegisterOnShutdown(func() { close(shutdown) })

	if comp.Health(context.Background()).Status != component.StatusUnhealthy {
		t.Fatal("expected unhealthy before start")
	}
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if comp.Health(context.Background()).Status != component.StatusHealthy {
		t.Fatal("expected healthy after start")
	}

	resp, err := http.Get("http://" + s.Addr() + "/alive")
	if err != nil {
		t.Fatalf("GET /alive failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if err := comp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	select {
	case <-shutdown:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown hook was not called")
	}
	if d := comp.Describe(); d.Port != cfg.Port || d.Type != "server" {
		t.Errorf("unexpected description: %+v", d)
	}
}
