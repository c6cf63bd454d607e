package model

import "time"

// PortfolioEntry is one user-entered position in the ledger.
type PortfolioEntry struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Shares       float64   `json:"shares"`
	EntryPrice   float64   `json:"entry_price"`
	CurrentPrice float64   `json:"current_price"`
	Value        float64   `json:"value"`
	PL           float64   `json:"pl"`
	PLPct        float64   `json:"pl_pct"`
	AddedAt      time.Time `json:"added_at"`
}

// PortfolioSummary aggregates the ledger.
type PortfolioSummary struct {
	TotalValue     float64 `json:"total_value"`
	TotalPL        float64 `json:"total_pl"`
	TotalPLPercent float64 `json:"total_pl_percent"`
}

// AlertState guards against sending the daily alert more than once.
type AlertState struct {
	LastSentDate string `json:"last_sent_date"` // YYYY-MM-DD, empty if never sent
}
