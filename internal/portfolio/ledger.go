package portfolio

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"DayScreener/internal/model"
)

// ErrInvalidEntry means an entry failed validation.
var ErrInvalidEntry = errors.New("invalid portfolio entry")

// PriceLookup returns the current price of a symbol, or false if unavailable.
type PriceLookup func(symbol string) (float64, bool)

// Ledger holds user-entered positions with concurrency safety. When filePath
// is set, every mutation is persisted.
type Ledger struct {
	mu       sync.Mutex
	entries  []model.PortfolioEntry
	filePath string
	log      *zap.Logger
	now      func() time.Time
}

// NewLedger creates a Ledger, loading any saved entries from filePath.
func NewLedger(filePath string, log *zap.Logger) (*Ledger, error) {
	l := &Ledger{filePath: filePath, log: log, now: time.Now}
	if filePath != "" {
		entries, err := LoadState(filePath)
		if err != nil {
			return nil, fmt.Errorf("load portfolio: %w", err)
		}
		l.entries = entries
	}
	return l, nil
}

// AddEntry appends a position. Shares and entry price must be positive.
func (l *Ledger) AddEntry(symbol string, shares, entryPrice float64) (model.PortfolioEntry, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.PortfolioEntry{}, fmt.Errorf("%w: symbol is required", ErrInvalidEntry)
	}
	if !positive(shares) {
		return model.PortfolioEntry{}, fmt.Errorf("%w: shares must be > 0", ErrInvalidEntry)
	}
	if !positive(entryPrice) {
		return model.PortfolioEntry{}, fmt.Errorf("%w: entry price must be > 0", ErrInvalidEntry)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e := revalue(model.PortfolioEntry{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Shares:     shares,
		EntryPrice: entryPrice,
		AddedAt:    l.now(),
	}, entryPrice)
	l.entries = append(l.entries, e)
	l.save()
	return e, nil
}

// Remove deletes one entry by id and reports whether it existed.
func (l *Ledger) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			l.save()
			return true
		}
	}
	return false
}

// Refresh recomputes every entry from the current price. Symbols the lookup
// cannot price are valued at 0.
func (l *Ledger) Refresh(lookup PriceLookup) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		price, ok := lookup(e.Symbol)
		if !ok {
			price = 0
		}
		l.entries[i] = revalue(e, price)
	}
	l.save()
}

// Clear removes every entry.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.save()
}

// Entries returns a copy of the ledger rows.
func (l *Ledger) Entries() []model.PortfolioEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.PortfolioEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Symbols returns the distinct symbols held.
func (l *Ledger) Symbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for _, e := range l.entries {
		if !seen[e.Symbol] {
			seen[e.Symbol] = true
			out = append(out, e.Symbol)
		}
	}
	return out
}

// Summary aggregates value and profit. TotalPLPercent is the ratio of pl to
// the cost basis (value - pl), not scaled by 100, and is 0 when the basis is 0.
func (l *Ledger) Summary() model.PortfolioSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	totalValue := decimal.Zero
	totalPL := decimal.Zero
	for _, e := range l.entries {
		totalValue = totalValue.Add(decimal.NewFromFloat(e.Value))
		totalPL = totalPL.Add(decimal.NewFromFloat(e.PL))
	}
	s := model.PortfolioSummary{
		TotalValue: totalValue.InexactFloat64(),
		TotalPL:    totalPL.InexactFloat64(),
	}
	basis := totalValue.Sub(totalPL)
	if !basis.IsZero() {
		s.TotalPLPercent = totalPL.Div(basis).Round(6).InexactFloat64()
	}
	return s
}

// revalue sets price-derived fields of e. PLPct is a ratio like TotalPLPercent.
func revalue(e model.PortfolioEntry, price float64) model.PortfolioEntry {
	shares := decimal.NewFromFloat(e.Shares)
	entry := decimal.NewFromFloat(e.EntryPrice)
	cur := decimal.NewFromFloat(price)

	e.CurrentPrice = price
	e.Value = shares.Mul(cur).InexactFloat64()
	e.PL = cur.Sub(entry).Mul(shares).InexactFloat64()
	e.PLPct = 0
	if !entry.IsZero() {
		e.PLPct = cur.Sub(entry).Div(entry).Round(6).InexactFloat64()
	}
	return e
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// save persists the ledger. Must be called with mu held.
func (l *Ledger) save() {
	if l.filePath == "" {
		return
	}
	if err := SaveState(l.filePath, l.entries); err != nil {
		l.log.Error("failed to save portfolio", zap.String("path", l.filePath), zap.Error(err))
	}
}
