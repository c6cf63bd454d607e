package screener

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"DayScreener/internal/model"
)

// DefaultCriteria returns the thresholds the dashboard starts with.
func DefaultCriteria() model.FilterCriteria {
	return model.FilterCriteria{
		MinVolume:       50000,
		MinAbsPctChange: 1.0,
		PriceMin:        50,
		PriceMax:        200,
	}
}

// Apply returns the quotes that satisfy every criterion, in input order.
// Invalid criteria are rejected before any quote is inspected.
func Apply(quotes []model.Quote, c model.FilterCriteria) ([]model.Quote, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("apply criteria: %w", err)
	}
	out := make([]model.Quote, 0, len(quotes))
	for _, q := range quotes {
		if Match(q, c) {
			out = append(out, q)
		}
	}
	return out, nil
}

// Match reports whether a single quote passes the criteria.
func Match(q model.Quote, c model.FilterCriteria) bool {
	if q.Volume < c.MinVolume {
		return false
	}
	if math.Abs(q.PctChange) < c.MinAbsPctChange {
		return false
	}
	if q.Price < c.PriceMin || q.Price > c.PriceMax {
		return false
	}
	if c.Sector != "" && !strings.EqualFold(q.Sector, c.Sector) {
		return false
	}
	return true
}

// TopMovers returns quotes with a positive change, highest first, capped at n.
func TopMovers(quotes []model.Quote, n int) []model.Quote {
	out := make([]model.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.PctChange > 0 {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PctChange > out[j].PctChange
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
