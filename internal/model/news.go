package model

import "time"

// NewsArticle is a single headline returned by a news source.
type NewsArticle struct {
	Headline    string    `json:"headline"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   float64   `json:"sentiment"`
}
