package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/cache"
	"DayScreener/internal/model"
)

// DefaultFreshness is how long fetched bars are served from cache.
const DefaultFreshness = 5 * time.Minute

// CachedFetcher serves bars from a cache.Store within the freshness window
// and only asks the wrapped Fetcher for symbols that missed.
type CachedFetcher struct {
	Next  Fetcher
	Store cache.Store
	TTL   time.Duration

	log *zap.Logger
}

// NewCachedFetcher wraps next with store.
func NewCachedFetcher(next Fetcher, store cache.Store, ttl time.Duration, log *zap.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultFreshness
	}
	return &CachedFetcher{Next: next, Store: store, TTL: ttl, log: log}
}

func (f *CachedFetcher) Name() string { return f.Next.Name() }

func (f *CachedFetcher) key(symbol, period, interval string) string {
	return fmt.Sprintf("bars:%s:%s:%s:%s", f.Next.Name(), period, interval, symbol)
}

func (f *CachedFetcher) FetchBars(ctx context.Context, symbols []string, period, interval string) (map[string][]model.Bar, error) {
	out := make(map[string][]model.Bar, len(symbols))
	var missing []string
	for _, sym := range symbols {
		raw, ok, err := f.Store.Get(ctx, f.key(sym, period, interval))
		if err != nil {
			f.log.Warn("cache get failed", zap.String("symbol", sym), zap.Error(err))
		}
		if !ok {
			missing = append(missing, sym)
			continue
		}
		var bars []model.Bar
		if err := json.Unmarshal(raw, &bars); err != nil {
			missing = append(missing, sym)
			continue
		}
		out[sym] = bars
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := f.Next.FetchBars(ctx, missing, period, interval)
	if err != nil {
		if len(out) == 0 {
			return nil, err
		}
		f.log.Warn("serving cached bars only", zap.Int("missing", len(missing)), zap.Error(err))
		return out, nil
	}
	for sym, bars := range fetched {
		out[sym] = bars
		raw, err := json.Marshal(bars)
		if err != nil {
			continue
		}
		if err := f.Store.Set(ctx, f.key(sym, period, interval), raw, f.TTL); err != nil {
			f.log.Warn("cache set failed", zap.String("symbol", sym), zap.Error(err))
		}
	}
	return out, nil
}

// Invalidate drops every cached series so the next cycle refetches.
func (f *CachedFetcher) Invalidate(ctx context.Context) error {
	return f.Store.Delete(ctx, "bars:")
}
