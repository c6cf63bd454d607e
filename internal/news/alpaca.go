package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"DayScreener/internal/model"
)

// AlpacaSource reads headlines from Alpaca's news API.
type AlpacaSource struct {
	Client   *marketdata.Client
	Lookback time.Duration

	now func() time.Time
}

// NewAlpacaSource creates a source authenticated with the given key pair.
func NewAlpacaSource(apiKey, apiSecret string) *AlpacaSource {
	return &AlpacaSource{
		Client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		Lookback: 72 * time.Hour,
		now:      time.Now,
	}
}

func (s *AlpacaSource) Name() string { return "alpaca" }

func (s *AlpacaSource) Fetch(ctx context.Context, symbol string, limit int) ([]model.NewsArticle, error) {
	limit = ClampLimit(limit)
	end := s.now()
	req := marketdata.GetNewsRequest{
		Start:      end.Add(-s.Lookback),
		End:        end,
		TotalLimit: limit,
		Sort:       marketdata.SortDesc,
	}
	if !strings.EqualFold(symbol, General) {
		req.Symbols = []string{strings.ToUpper(symbol)}
	}

	type result struct {
		items []marketdata.News
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		items, err := s.Client.GetNews(req)
		ch <- result{items, err}
	}()

	var items []marketdata.News
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("alpaca news: %w: %v", model.ErrDataUnavailable, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("alpaca news: %w: %v", model.ErrDataUnavailable, r.err)
		}
		items = r.items
	}

	articles := make([]model.NewsArticle, 0, len(items))
	for _, n := range items {
		articles = append(articles, model.NewsArticle{
			Headline:    StripHTML(n.Headline),
			Source:      n.Source,
			Summary:     StripHTML(n.Summary),
			URL:         n.URL,
			PublishedAt: n.CreatedAt,
		})
	}
	return finish(articles, limit), nil
}
