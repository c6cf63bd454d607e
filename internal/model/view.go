package model

import "time"

// DashboardView is the view-model produced by one pipeline cycle.
type DashboardView struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Criteria    FilterCriteria   `json:"criteria"`
	Overview    []MarketIndex    `json:"overview"`
	Quotes      []Quote          `json:"quotes"`
	Filtered    []Quote          `json:"filtered"`
	TopMovers   []Quote          `json:"top_movers"`
	Mood        string           `json:"mood"`
	Advisory    []string         `json:"advisory,omitempty"`
	Portfolio   []PortfolioEntry `json:"portfolio"`
	Summary     PortfolioSummary `json:"summary"`
	AlertSent   bool             `json:"alert_sent"`
}

// SymbolDetail is the selected-symbol detail panel.
type SymbolDetail struct {
	Quote      *Quote        `json:"quote,omitempty"`
	Latest     *IndicatorRow `json:"latest,omitempty"`
	Signals    []Signal      `json:"signals"`
	News       []NewsArticle `json:"news"`
	High30d    float64       `json:"high_30d"`
	Low30d     float64       `json:"low_30d"`
	Position   float64       `json:"position"` // 0.0 ~ 1.0 within the 30-day range
	Prediction *int          `json:"prediction,omitempty"`
	UpProb     float64       `json:"up_probability,omitempty"`
	Accuracy   float64       `json:"accuracy,omitempty"`
	Advisory   []string      `json:"advisory,omitempty"`
}
