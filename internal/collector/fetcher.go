package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/model"
)

// Fetcher retrieves OHLCV bars for a set of symbols.
//
// Symbols that fail individually or return fewer than two bars are left out
// of the result. The call fails with model.ErrDataUnavailable only when the
// provider could not be reached for any symbol.
type Fetcher interface {
	FetchBars(ctx context.Context, symbols []string, period, interval string) (map[string][]model.Bar, error)
	Name() string
}

// Retry bounds the attempts made against a provider.
type Retry struct {
	Attempts int
	Base     time.Duration
}

// DefaultRetry is three attempts with 500ms exponential backoff.
var DefaultRetry = Retry{Attempts: 3, Base: 500 * time.Millisecond}

// do runs fn until it succeeds, returns a non-retryable error, or attempts
// are exhausted. Only errors wrapping model.ErrDataUnavailable are retried.
func (r Retry) do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = fn(ctx)
		if lastErr == nil || !errors.Is(lastErr, model.ErrDataUnavailable) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}
		backoff := r.Base * time.Duration(1<<uint(i))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", model.ErrDataUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
	}
	return lastErr
}

// symbolFetch fetches the bars of one symbol.
type symbolFetch func(ctx context.Context, symbol string) ([]model.Bar, error)

// fetchEach runs fn for every symbol with at most workers in flight and
// applies the per-symbol exclusion rules shared by all fetchers.
func fetchEach(ctx context.Context, log *zap.Logger, provider string, symbols []string, workers int, fn symbolFetch) (map[string][]model.Bar, error) {
	if workers <= 0 {
		workers = 4
	}
	var (
		mu          sync.Mutex
		wg          sync.WaitGroup
		unreachable int
		out         = make(map[string][]model.Bar, len(symbols))
		sem         = make(chan struct{}, workers)
	)

	for _, sym := range symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()

			bars, err := fn(ctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, model.ErrDataUnavailable) {
					unreachable++
				}
				log.Warn("fetch bars failed",
					zap.String("provider", provider),
					zap.String("symbol", sym),
					zap.Error(err))
				return
			}
			bars = normalize(sym, bars)
			if len(bars) < 2 {
				log.Debug("not enough bars, symbol skipped",
					zap.String("provider", provider),
					zap.String("symbol", sym),
					zap.Int("bars", len(bars)))
				return
			}
			out[sym] = bars
		}(sym)
	}
	wg.Wait()

	if len(symbols) > 0 && unreachable == len(symbols) {
		return nil, fmt.Errorf("%s: provider unreachable for all %d symbols: %w", provider, len(symbols), model.ErrDataUnavailable)
	}
	return out, nil
}

// normalize stamps the symbol on every bar and orders them by time.
func normalize(symbol string, bars []model.Bar) []model.Bar {
	for i := range bars {
		bars[i].Symbol = symbol
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}

// periodStart converts a Yahoo-style period ("5d", "1mo", "6mo", "1y", "ytd")
// into the start of the window ending at now.
func periodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), nil
	case "max":
		return now.AddDate(-20, 0, 0), nil
	}
	var n int
	var unit string
	if _, err := fmt.Sscanf(period, "%d%s", &n, &unit); err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid period %q", period)
	}
	switch unit {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "wk":
		return now.AddDate(0, 0, -7*n), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	case "y":
		return now.AddDate(-n, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid period unit %q", period)
}
