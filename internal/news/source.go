package news

import (
	"context"
	"sort"
	"strings"

	"DayScreener/internal/model"
)

// General requests market-wide news instead of a single symbol.
const General = "general"

// Limits applied to every fetch.
const (
	MinLimit = 5
	MaxLimit = 10
)

// Source fetches recent headlines, most recent first.
type Source interface {
	Fetch(ctx context.Context, symbol string, limit int) ([]model.NewsArticle, error)
	Name() string
}

// ClampLimit bounds limit to [MinLimit, MaxLimit].
func ClampLimit(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// finish orders articles newest first, scores them and caps the result.
func finish(articles []model.NewsArticle, limit int) []model.NewsArticle {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if len(articles) > limit {
		articles = articles[:limit]
	}
	for i := range articles {
		articles[i].Sentiment = Score(articles[i].Headline + " " + articles[i].Summary)
	}
	return articles
}

// StaticSource serves a fixed article set, keyed by upper-case symbol.
type StaticSource struct {
	Articles map[string][]model.NewsArticle
	Err      error
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Fetch(_ context.Context, symbol string, limit int) ([]model.NewsArticle, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	key := strings.ToUpper(symbol)
	if strings.EqualFold(symbol, General) {
		key = General
	}
	src := s.Articles[key]
	out := make([]model.NewsArticle, len(src))
	copy(out, src)
	return finish(out, ClampLimit(limit)), nil
}
