package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"DayScreener/internal/model"
)

// YahooSource reads headlines from the Yahoo Finance search endpoint.
type YahooSource struct {
	BaseURL string
	Client  *http.Client
}

// NewYahooSource creates a source with optional proxy support.
func NewYahooSource(proxyURL string, timeout time.Duration) *YahooSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooSource{
		BaseURL: "https://query1.finance.yahoo.com",
		Client:  &http.Client{Timeout: timeout, Transport: transport},
	}
}

func (s *YahooSource) Name() string { return "yahoo" }

type yahooSearch struct {
	News []struct {
		Title     string `json:"title"`
		Publisher string `json:"publisher"`
		Link      string `json:"link"`
		Published int64  `json:"providerPublishTime"`
		Summary   string `json:"summary"`
	} `json:"news"`
}

func (s *YahooSource) Fetch(ctx context.Context, symbol string, limit int) ([]model.NewsArticle, error) {
	limit = ClampLimit(limit)
	q := strings.ToUpper(symbol)
	if strings.EqualFold(symbol, General) {
		q = "stock market"
	}
	u := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=0&newsCount=%d", s.BaseURL, url.QueryEscape(q), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo news: %w: %v", model.ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo news read body: %w: %v", model.ErrDataUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo news: status %d: %w", resp.StatusCode, model.ErrDataUnavailable)
	}

	var result yahooSearch
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("yahoo news decode: %w", err)
	}

	articles := make([]model.NewsArticle, 0, len(result.News))
	for _, n := range result.News {
		articles = append(articles, model.NewsArticle{
			Headline:    StripHTML(n.Title),
			Source:      n.Publisher,
			Summary:     StripHTML(n.Summary),
			URL:         n.Link,
			PublishedAt: time.Unix(n.Published, 0).UTC(),
		})
	}
	return finish(articles, limit), nil
}
