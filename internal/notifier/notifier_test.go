package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/model"
)

type fakeSink struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type memStore struct {
	state model.AlertState
	saves int
}

func (m *memStore) LoadAlertState(context.Context) (model.AlertState, error) { return m.state, nil }

func (m *memStore) SaveAlertState(_ context.Context, s model.AlertState) error {
	m.state = s
	m.saves++
	return nil
}

func newDispatcher(t *testing.T, sink Sink, store StateStore) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(context.Background(), sink, store, DispatcherConfig{
		Enabled:      true,
		Hour:         17,
		Location:     time.UTC,
		RetryBackoff: time.Millisecond,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}

var movers = []model.Quote{{Symbol: "XXX", PctChange: 8.5, Price: 42}}

func at(hour int) time.Time {
	return time.Date(2024, 6, 3, hour, 5, 0, 0, time.UTC)
}

func TestMaybeSend_FiresOncePerDay(t *testing.T) {
	sink := &fakeSink{}
	store := &memStore{}
	d := newDispatcher(t, sink, store)

	sent, err := d.MaybeSend(context.Background(), movers, at(17))
	if err != nil || !sent {
		t.Fatalf("expected send, got sent=%v err=%v", sent, err)
	}
	if !strings.Contains(sink.sent[0], "XXX") || !strings.Contains(sink.sent[0], "+8.50%") {
		t.Errorf("unexpected message: %s", sink.sent[0])
	}
	if store.state.LastSentDate != "2024-06-03" || store.saves != 1 {
		t.Errorf("state not persisted: %+v saves=%d", store.state, store.saves)
	}

	sent, _ = d.MaybeSend(context.Background(), movers, at(17).Add(30*time.Minute))
	if sent || sink.count() != 1 {
		t.Errorf("second send on the same day must be suppressed")
	}

	sent, _ = d.MaybeSend(context.Background(), movers, at(17).AddDate(0, 0, 1))
	if !sent || sink.count() != 2 {
		t.Errorf("expected a send on the next day")
	}
}

func TestMaybeSend_Guards(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		movers  []model.Quote
		now     time.Time
		state   string
	}{
		{"wrong hour", true, movers, at(16), ""},
		{"disabled", false, movers, at(17), ""},
		{"no movers", true, nil, at(17), ""},
		{"already sent", true, movers, at(17), "2024-06-03"},
		{"state ahead never goes back", true, movers, at(17), "2024-06-04"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{}
			store := &memStore{state: model.AlertState{LastSentDate: tt.state}}
			d := newDispatcher(t, sink, store)
			d.SetEnabled(tt.enabled)

			sent, err := d.MaybeSend(context.Background(), tt.movers, tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sent || sink.count() != 0 {
				t.Errorf("expected no send")
			}
			if store.state.LastSentDate != tt.state {
				t.Errorf("state changed to %q", store.state.LastSentDate)
			}
		})
	}
}

func TestMaybeSend_FailureKeepsState(t *testing.T) {
	sink := &fakeSink{err: errors.New("bad gateway")}
	store := &memStore{state: model.AlertState{LastSentDate: "2024-06-02"}}
	d := newDispatcher(t, sink, store)

	sent, err := d.MaybeSend(context.Background(), movers, at(17))
	if sent {
		t.Error("failed delivery must not report sent")
	}
	if !errors.Is(err, model.ErrNotificationFailure) {
		t.Fatalf("expected ErrNotificationFailure, got %v", err)
	}
	if d.State().LastSentDate != "2024-06-02" || store.saves != 0 {
		t.Errorf("state must be untouched, got %+v saves=%d", d.State(), store.saves)
	}

	sink.err = nil
	if sent, _ := d.MaybeSend(context.Background(), movers, at(17)); !sent {
		t.Error("a later cycle in the same hour should retry")
	}
}

func TestMaybeSend_Concurrent(t *testing.T) {
	sink := &fakeSink{}
	d := newDispatcher(t, sink, &memStore{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.MaybeSend(context.Background(), movers, at(17))
		}()
	}
	wg.Wait()
	if sink.count() != 1 {
		t.Errorf("expected exactly one send, got %d", sink.count())
	}
}

func TestMaybeSend_Timezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	sink := &fakeSink{}
	d, _ := NewDispatcher(context.Background(), sink, nil, DispatcherConfig{Enabled: true, Hour: 17, Location: ny}, zap.NewNop())

	// 21:05 UTC is 17:05 in New York during DST
	sent, err := d.MaybeSend(context.Background(), movers, time.Date(2024, 6, 3, 21, 5, 0, 0, time.UTC))
	if err != nil || !sent {
		t.Fatalf("expected send at local hour, sent=%v err=%v", sent, err)
	}
}

func TestSendTest(t *testing.T) {
	sink := &fakeSink{}
	store := &memStore{}
	d := newDispatcher(t, sink, store)
	if err := d.SendTest(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.count() != 1 || store.saves != 0 {
		t.Errorf("test alert must bypass the guard, sent=%d saves=%d", sink.count(), store.saves)
	}
}

func TestFormatTopMovers(t *testing.T) {
	var qs []model.Quote
	for i, sym := range []string{"A", "B", "C", "D", "E", "F", "<G>"} {
		qs = append(qs, model.Quote{Symbol: sym, PctChange: float64(i), Price: 10})
	}
	msg := FormatTopMovers("2024-06-03", qs)
	lines := strings.Split(strings.TrimSpace(msg), "\n")
	if !strings.HasPrefix(lines[0], "📈 <b>") || !strings.Contains(lines[0], "2024-06-03") {
		t.Errorf("unexpected header %q", lines[0])
	}
	body := lines[2:]
	if len(body) != MaxMovers {
		t.Fatalf("expected %d mover lines, got %d", MaxMovers, len(body))
	}
	if !strings.Contains(body[0], "&lt;G&gt;") || !strings.Contains(body[0], "+6.00%") {
		t.Errorf("first line should be the escaped top mover, got %q", body[0])
	}
	if strings.Contains(msg, "<b>A</b>") {
		t.Error("lowest movers beyond the cap should be dropped")
	}
}

func TestFormatPortfolio(t *testing.T) {
	entries := []model.PortfolioEntry{{Symbol: "AAPL", Shares: 10, EntryPrice: 100, CurrentPrice: 110, Value: 1100, PL: 100, PLPct: 0.1}}
	summary := model.PortfolioSummary{TotalValue: 1100, TotalPL: 100, TotalPLPercent: 0.1}

	msg := FormatPortfolio(entries, summary)
	if !strings.Contains(msg, "P/L +100.00 (+10.00%)") {
		t.Errorf("entry ratio should render as a percentage, got %q", msg)
	}
	if !strings.Contains(msg, "P/L: +100.00 (+10.00%)") {
		t.Errorf("summary ratio should render as a percentage, got %q", msg)
	}
	if got := FormatPortfolio(nil, model.PortfolioSummary{}); !strings.Contains(got, "No positions") {
		t.Errorf("unexpected empty portfolio %q", got)
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]string
	var path string
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(status)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("TOKEN", "42", "", zap.NewNop())
	tg.APIBase = srv.URL

	if err := tg.Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("unexpected path %s", path)
	}
	if got["chat_id"] != "42" || got["parse_mode"] != "HTML" || got["text"] != "<b>hi</b>" {
		t.Errorf("unexpected payload %+v", got)
	}

	status = http.StatusBadRequest
	if err := tg.Send(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), "ping"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["text"] != "ping" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestSendWithRetry(t *testing.T) {
	calls := 0
	flaky := &funcSink{send: func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	}}
	if err := sendWithRetry(context.Background(), flaky, "x", 2, time.Millisecond, zap.NewNop()); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	calls = 0
	if err := sendWithRetry(context.Background(), flaky, "x", 1, time.Millisecond, zap.NewNop()); err == nil {
		t.Error("expected failure after two attempts")
	}
}

type funcSink struct{ send func() error }

func (f *funcSink) Name() string { return "func" }

func (f *funcSink) Send(context.Context, string) error { return f.send() }

func TestStartPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		polls   int
		replies []map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			polls++
			if polls == 1 {
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":10,"message":{"text":"/movers","chat":{"id":99}}},
					{"update_id":11,"message":{"text":" /help ","chat":{"id":42}}}
				]}`))
				return
			}
			time.Sleep(10 * time.Millisecond)
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var got map[string]string
			json.NewDecoder(r.Body).Decode(&got)
			replies = append(replies, got)
			cancel()
		}
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("TOKEN", "42", "", zap.NewNop())
	tg.APIBase = srv.URL

	var commands []string
	done := make(chan struct{})
	go func() {
		tg.StartPolling(ctx, func(_ context.Context, cmd string) string {
			commands = append(commands, cmd)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}

	if len(commands) != 1 || commands[0] != "/help" {
		t.Errorf("handled commands = %v, want only /help from the configured chat", commands)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0]["text"] != "reply to /help" {
		t.Errorf("replies = %v", replies)
	}
}

func TestStartPolling_BacksOffWhenRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const base = 20 * time.Millisecond
	var (
		mu    sync.Mutex
		polls []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			polls = append(polls, time.Now())
			if len(polls) <= 3 {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"ok":false,"description":"Conflict: terminated by other getUpdates request"}`))
				return
			}
			w.Write([]byte(`{"ok":true,"result":[{"update_id":1,"message":{"text":"/help","chat":{"id":42}}}]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			cancel()
		}
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("TOKEN", "42", "", zap.NewNop())
	tg.APIBase = srv.URL
	tg.PollBackoff = base

	done := make(chan struct{})
	go func() {
		tg.StartPolling(ctx, func(context.Context, string) string { return "ok" })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not recover after rejected polls")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(polls) < 4 {
		t.Fatalf("expected at least 4 polls, got %d", len(polls))
	}
	// waits after the three rejections: base, 2*base, 4*base
	for i := 1; i < 4; i++ {
		want := base << (i - 1)
		if gap := polls[i].Sub(polls[i-1]); gap < want {
			t.Errorf("poll %d came %v after the previous, want at least %v", i, gap, want)
		}
	}
}
