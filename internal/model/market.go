package model

import "time"

// Bar represents a single OHLCV observation for a symbol.
type Bar struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Quote is the per-cycle snapshot of a symbol derived from its latest bars.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	PctChange     float64   `json:"pct_change"`
	Volume        float64   `json:"volume"`
	Volatility    float64   `json:"volatility"` // |price - previous close|
	Sector        string    `json:"sector,omitempty"`
	Sentiment     float64   `json:"sentiment"`
	Time          time.Time `json:"time"`
}

// MarketIndex is one entry of the market overview panel.
type MarketIndex struct {
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Value     float64 `json:"value"`
	PctChange float64 `json:"pct_change"`
}

// UniverseEntry describes a ticker the screener watches.
type UniverseEntry struct {
	Symbol string `yaml:"symbol" toml:"symbol" json:"symbol"`
	Name   string `yaml:"name" toml:"name" json:"name,omitempty"`
	Sector string `yaml:"sector" toml:"sector" json:"sector,omitempty"`
}
