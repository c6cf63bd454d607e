package portfolio

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger("", zap.NewNop())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l
}

func prices(m map[string]float64) PriceLookup {
	return func(symbol string) (float64, bool) {
		p, ok := m[symbol]
		return p, ok
	}
}

func TestSummary_Empty(t *testing.T) {
	s := newLedger(t).Summary()
	if s.TotalValue != 0 || s.TotalPL != 0 || s.TotalPLPercent != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestAddEntry_Validation(t *testing.T) {
	l := newLedger(t)
	tests := []struct {
		name   string
		symbol string
		shares float64
		price  float64
	}{
		{"empty symbol", "  ", 1, 10},
		{"zero shares", "AAPL", 0, 10},
		{"negative price", "AAPL", 1, -5},
		{"nan shares", "AAPL", math.NaN(), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.AddEntry(tt.symbol, tt.shares, tt.price); !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("expected ErrInvalidEntry, got %v", err)
			}
		})
	}
	if len(l.Entries()) != 0 {
		t.Error("invalid entries must not be stored")
	}
}

func TestRefreshAndSummary(t *testing.T) {
	l := newLedger(t)
	a, err := l.AddEntry("aapl", 10, 100)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.Symbol != "AAPL" || a.ID == "" {
		t.Errorf("unexpected entry %+v", a)
	}
	l.AddEntry("MSFT", 5, 200)

	l.Refresh(prices(map[string]float64{"AAPL": 110, "MSFT": 180}))
	entries := l.Entries()
	if entries[0].Value != 1100 || entries[0].PL != 100 || entries[0].PLPct != 0.1 {
		t.Errorf("AAPL revalued wrong: %+v", entries[0])
	}
	if entries[1].Value != 900 || entries[1].PL != -100 || entries[1].PLPct != -0.1 {
		t.Errorf("MSFT revalued wrong: %+v", entries[1])
	}

	s := l.Summary()
	if s.TotalValue != 2000 || s.TotalPL != 0 || s.TotalPLPercent != 0 {
		t.Errorf("unexpected summary %+v", s)
	}

	l.Refresh(prices(map[string]float64{"AAPL": 120, "MSFT": 200}))
	s = l.Summary()
	// value 2200, pl 200, basis 2000
	if s.TotalValue != 2200 || s.TotalPL != 200 || s.TotalPLPercent != 0.1 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestRefresh_UnavailablePrice(t *testing.T) {
	l := newLedger(t)
	l.AddEntry("GONE", 4, 25)
	l.Refresh(prices(nil))

	e := l.Entries()[0]
	if e.CurrentPrice != 0 || e.Value != 0 || e.PL != -100 || e.PLPct != -1 {
		t.Errorf("unpriced entry should be valued at 0: %+v", e)
	}
	s := l.Summary()
	if s.TotalPLPercent != -1 {
		t.Errorf("expected ratio -1, got %v", s.TotalPLPercent)
	}
}

func TestSummary_PercentIsRatio(t *testing.T) {
	l := newLedger(t)
	l.AddEntry("AAPL", 10, 100)
	l.Refresh(prices(map[string]float64{"AAPL": 110}))

	s := l.Summary()
	if s.TotalValue != 1100 || s.TotalPL != 100 {
		t.Fatalf("unexpected totals %+v", s)
	}
	// 100 / (1100 - 100)
	if s.TotalPLPercent != 0.1 {
		t.Errorf("expected ratio 0.1, got %v", s.TotalPLPercent)
	}
}

func TestRemoveAndClear(t *testing.T) {
	l := newLedger(t)
	a, _ := l.AddEntry("AAA", 1, 1)
	l.AddEntry("BBB", 1, 1)
	l.AddEntry("AAA", 2, 1)

	if got := l.Symbols(); len(got) != 2 {
		t.Errorf("expected 2 distinct symbols, got %v", got)
	}
	if !l.Remove(a.ID) || l.Remove(a.ID) {
		t.Error("remove should succeed once")
	}
	if len(l.Entries()) != 2 {
		t.Errorf("expected 2 entries, got %d", len(l.Entries()))
	}
	l.Clear()
	if len(l.Entries()) != 0 {
		t.Error("clear should empty the ledger")
	}
}

func TestEntriesIsCopy(t *testing.T) {
	l := newLedger(t)
	l.AddEntry("AAA", 1, 10)
	entries := l.Entries()
	entries[0].Shares = 999
	if l.Entries()[0].Shares != 1 {
		t.Error("Entries must return a copy")
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "portfolio.json")
	l, err := NewLedger(path, zap.NewNop())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	added, _ := l.AddEntry("NVDA", 3, 90)
	l.Refresh(prices(map[string]float64{"NVDA": 100}))

	reloaded, err := NewLedger(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	entries := reloaded.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after reload, got %d", len(entries))
	}
	if entries[0].ID != added.ID || entries[0].CurrentPrice != 100 || entries[0].PL != 30 {
		t.Errorf("unexpected reloaded entry %+v", entries[0])
	}
}
