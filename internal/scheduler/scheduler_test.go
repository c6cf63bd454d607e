package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/collector"
	"DayScreener/internal/model"
	"DayScreener/internal/news"
	"DayScreener/internal/notifier"
	"DayScreener/internal/pipeline"
	"DayScreener/internal/portfolio"
)

type captureSink struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func pair(symbol string, prev, last float64) []model.Bar {
	t0 := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	return []model.Bar{
		{Symbol: symbol, Time: t0, Close: prev, Volume: 1e6},
		{Symbol: symbol, Time: t0.AddDate(0, 0, 1), Close: last, Volume: 1e6},
	}
}

func newTestScheduler(t *testing.T) (*Scheduler, *captureSink) {
	t.Helper()
	log := zap.NewNop()
	fetcher := &collector.MockFetcher{Bars: map[string][]model.Bar{
		"AAA": pair("AAA", 100, 106),
		"BBB": pair("BBB", 80, 82),
	}}
	ledger, err := portfolio.NewLedger(filepath.Join(t.TempDir(), "portfolio.json"), log)
	if err != nil {
		t.Fatal(err)
	}
	sink := &captureSink{}
	disp, err := notifier.NewDispatcher(context.Background(), sink, nil, notifier.DispatcherConfig{Hour: 17, Location: time.UTC}, log)
	if err != nil {
		t.Fatal(err)
	}
	src := &news.StaticSource{Articles: map[string][]model.NewsArticle{
		"AAA":        {{Headline: "Alpha beats estimates", PublishedAt: time.Now()}},
		news.General: {{Headline: "Stocks rally into the close", PublishedAt: time.Now()}},
	}}
	p, err := pipeline.New(pipeline.Deps{
		Collector:  collector.NewCollector(fetcher, collector.Options{}, log),
		News:       src,
		Ledger:     ledger,
		Dispatcher: disp,
	}, pipeline.Options{
		Universe: []model.UniverseEntry{{Symbol: "AAA"}, {Symbol: "BBB"}},
		Criteria: model.FilterCriteria{PriceMin: 0, PriceMax: 1000},
	}, log)
	if err != nil {
		t.Fatal(err)
	}
	return NewScheduler(context.Background(), p, time.UTC, log), sink
}

func TestRegisterAll(t *testing.T) {
	s, _ := newTestScheduler(t)
	if err := s.RegisterAll("0 */5 * * * *", "0 5 * * * *"); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if n := len(s.Cron.Entries()); n != 2 {
		t.Errorf("entries = %d, want 2", n)
	}

	bad, _ := newTestScheduler(t)
	if err := bad.RegisterAll("*/5 * * * *", ""); err == nil {
		t.Error("five-field expression should be rejected with seconds enabled")
	}
}

func TestHandleCommand(t *testing.T) {
	s, sink := newTestScheduler(t)
	ctx := context.Background()

	tests := []struct {
		command string
		want    string
	}{
		{"/movers", "AAA"},
		{"/dashboard", "Screened: 2 of 2"},
		{"/portfolio", "No positions"},
		{"/news aaa", "Alpha beats estimates"},
		{"/news", "Stocks rally"},
		{"/alerts on", "<b>on</b>"},
		{"/alerts off", "<b>off</b>"},
		{"/unknown", "Available commands"},
		{"", "Available commands"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got := s.HandleCommand(ctx, tt.command)
			if !strings.Contains(got, tt.want) {
				t.Errorf("HandleCommand(%q) = %q, want substring %q", tt.command, got, tt.want)
			}
		})
	}

	if reply := s.HandleCommand(ctx, "/test@DayScreenerBot"); reply != "" {
		t.Errorf("/test reply = %q, want empty", reply)
	}
	if len(sink.sent) != 1 {
		t.Errorf("sink messages = %d, want 1", len(sink.sent))
	}
}

func TestRunNowStoresView(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.RunNow()
	view, ok := s.Pipeline.Latest()
	if !ok {
		t.Fatal("no view after RunNow")
	}
	if len(view.TopMovers) != 2 || view.TopMovers[0].Symbol != "AAA" {
		t.Errorf("top movers = %+v", view.TopMovers)
	}
}
