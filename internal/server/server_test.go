package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"DayScreener/internal/collector"
	"DayScreener/internal/metrics"
	"DayScreener/internal/model"
	"DayScreener/internal/news"
	"DayScreener/internal/notifier"
	"DayScreener/internal/pipeline"
	"DayScreener/internal/portfolio"
)

type captureSink struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, text)
	return nil
}

func bars(symbol string, closes ...float64) []model.Bar {
	t0 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	out := make([]model.Bar, len(closes))
	for i, c := range closes {
		out[i] = model.Bar{Symbol: symbol, Time: t0.AddDate(0, 0, i), High: c + 1, Low: c - 1, Close: c, Volume: 2e6}
	}
	return out
}

type env struct {
	srv  *Server
	ts   *httptest.Server
	sink *captureSink
}

func newEnv(t *testing.T, fetcher collector.Fetcher) env {
	t.Helper()
	log := zap.NewNop()
	m := metrics.New()
	ledger, err := portfolio.NewLedger(filepath.Join(t.TempDir(), "portfolio.json"), log)
	if err != nil {
		t.Fatal(err)
	}
	sink := &captureSink{}
	disp, err := notifier.NewDispatcher(context.Background(), sink, nil, notifier.DispatcherConfig{Hour: 17, Location: time.UTC}, log)
	if err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.New(pipeline.Deps{
		Collector:  collector.NewCollector(fetcher, collector.Options{}, log),
		News:       &news.StaticSource{Articles: map[string][]model.NewsArticle{"AAA": {{Headline: "Alpha wins contract", PublishedAt: time.Now()}}}},
		Ledger:     ledger,
		Dispatcher: disp,
		Metrics:    m,
	}, pipeline.Options{
		Universe: []model.UniverseEntry{{Symbol: "AAA", Sector: "Technology"}, {Symbol: "BBB", Sector: "Energy"}},
		Criteria: model.FilterCriteria{PriceMin: 0, PriceMax: 1000},
	}, log)
	if err != nil {
		t.Fatal(err)
	}
	srv := New(":0", p, m, log)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.hub.Close()
		ts.Close()
	})
	return env{srv: srv, ts: ts, sink: sink}
}

func defaultFetcher() *collector.MockFetcher {
	return &collector.MockFetcher{Bars: map[string][]model.Bar{
		"AAA": bars("AAA", 100, 110),
		"BBB": bars("BBB", 50, 49),
	}}
}

func (e env) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestDashboardAndCriteria(t *testing.T) {
	e := newEnv(t, defaultFetcher())

	resp, body := e.do(t, http.MethodGet, "/api/dashboard", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d: %s", resp.StatusCode, body)
	}
	var view model.DashboardView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Filtered) != 2 || len(view.TopMovers) != 1 || view.TopMovers[0].Symbol != "AAA" {
		t.Errorf("view = %+v", view)
	}

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid sector filter", `{"price_min":0,"price_max":1000,"sector":"energy"}`, http.StatusOK},
		{"inverted bounds", `{"price_min":500,"price_max":100}`, http.StatusBadRequest},
		{"negative volume", `{"min_volume":-1,"price_max":100}`, http.StatusBadRequest},
		{"malformed json", `{"price_min":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.do(t, http.MethodPost, "/api/criteria", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d: %s", resp.StatusCode, tt.status, body)
			}
		})
	}

	if got := e.srv.pipeline.Criteria().Sector; got != "energy" {
		t.Errorf("criteria sector = %q, invalid updates must not apply", got)
	}
}

func TestDashboardUpstreamDown(t *testing.T) {
	e := newEnv(t, &collector.MockFetcher{Err: fmt.Errorf("boom: %w", model.ErrDataUnavailable)})
	resp, body := e.do(t, http.MethodPost, "/api/refresh", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	var view model.DashboardView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Quotes) != 0 || len(view.Advisory) == 0 {
		t.Errorf("expected empty degraded view, got %+v", view)
	}
}

func TestSymbolDetail(t *testing.T) {
	e := newEnv(t, defaultFetcher())

	resp, body := e.do(t, http.MethodGet, "/api/symbols/aaa", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var d model.SymbolDetail
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatal(err)
	}
	if d.Quote == nil || d.Quote.Symbol != "AAA" || len(d.News) != 1 {
		t.Errorf("detail = %+v", d)
	}

	resp, _ = e.do(t, http.MethodGet, "/api/symbols/MISSING", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("missing symbol status = %d, want 503", resp.StatusCode)
	}
}

func TestPortfolioRoutes(t *testing.T) {
	e := newEnv(t, defaultFetcher())

	resp, body := e.do(t, http.MethodPost, "/api/portfolio", `{"symbol":"aaa","shares":2,"entry_price":100}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d: %s", resp.StatusCode, body)
	}
	var entry model.PortfolioEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		t.Fatal(err)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/portfolio", `{"symbol":"BBB","shares":0,"entry_price":10}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("zero shares status = %d, want 400", resp.StatusCode)
	}

	_, body = e.do(t, http.MethodGet, "/api/portfolio", "")
	var list portfolioResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Entries) != 1 || list.Entries[0].Symbol != "AAA" {
		t.Errorf("entries = %+v", list.Entries)
	}

	if resp, _ := e.do(t, http.MethodDelete, "/api/portfolio/"+entry.ID, ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("remove status = %d", resp.StatusCode)
	}
	if resp, _ := e.do(t, http.MethodDelete, "/api/portfolio/"+entry.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", resp.StatusCode)
	}
	if resp, _ := e.do(t, http.MethodDelete, "/api/portfolio", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("clear status = %d", resp.StatusCode)
	}
}

func TestAlertRoutes(t *testing.T) {
	e := newEnv(t, defaultFetcher())

	resp, body := e.do(t, http.MethodPost, "/api/alerts/enabled", `{"enabled":true}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"enabled":true`) {
		t.Errorf("enable = %d %s", resp.StatusCode, body)
	}
	if resp, _ := e.do(t, http.MethodPost, "/api/alerts/enabled", `{}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing flag status = %d", resp.StatusCode)
	}

	if resp, _ := e.do(t, http.MethodPost, "/api/alerts/test", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("test alert status = %d", resp.StatusCode)
	}
	if len(e.sink.sent) != 1 {
		t.Errorf("sink messages = %d", len(e.sink.sent))
	}

	e.sink.err = fmt.Errorf("telegram down")
	if resp, _ := e.do(t, http.MethodPost, "/api/alerts/test", ""); resp.StatusCode != http.StatusBadGateway {
		t.Errorf("failed test alert status = %d, want 502", resp.StatusCode)
	}
}

func TestNewsHealthMetrics(t *testing.T) {
	e := newEnv(t, defaultFetcher())

	resp, body := e.do(t, http.MethodGet, "/api/news?symbol=AAA&limit=7", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Alpha wins contract") {
		t.Errorf("news = %d %s", resp.StatusCode, body)
	}
	if resp, _ := e.do(t, http.MethodGet, "/api/news?limit=abc", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", resp.StatusCode)
	}
	if resp, _ := e.do(t, http.MethodGet, "/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	e.do(t, http.MethodPost, "/api/refresh", "")
	resp, body = e.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "dayscreener_cycles_total") {
		t.Errorf("metrics = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `dayscreener_http_requests_total{method="GET",route="GET /healthz",status="200"} 1`) {
		t.Error("healthz request should be counted by route pattern")
	}
	if !strings.Contains(string(body), `route="GET /api/news",status="400"`) {
		t.Error("bad news request should be counted with its status")
	}
	if resp, _ := e.do(t, http.MethodGet, "/api/nothing", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown route status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}
}

func TestWebsocketPush(t *testing.T) {
	e := newEnv(t, defaultFetcher())

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for e.srv.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if resp, _ := e.do(t, http.MethodPost, "/api/refresh", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var view model.DashboardView
	if err := json.Unmarshal(msg, &view); err != nil {
		t.Fatal(err)
	}
	if len(view.TopMovers) != 1 || view.TopMovers[0].Symbol != "AAA" {
		t.Errorf("pushed view movers = %+v", view.TopMovers)
	}
}
