package model

// IndicatorRow is a bar extended with the technical indicators used for
// screening and classification.
type IndicatorRow struct {
	Bar
	RSI14      float64 `json:"rsi14"`
	SMA20      float64 `json:"sma20"`
	SMA50      float64 `json:"sma50"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	HasSignal  bool    `json:"-"` // MACDSignal/MACDHist are defined

	// Label is 1 when the next bar closes higher, 0 otherwise.
	// Nil on the final row of a series.
	Label *int `json:"label,omitempty"`
}

// Features returns the classifier feature vector in fixed order:
// RSI14, SMA20, SMA50, MACD.
func (r IndicatorRow) Features() []float64 {
	return []float64{r.RSI14, r.SMA20, r.SMA50, r.MACD}
}
