package model

import (
	"fmt"
	"math"
)

// FilterCriteria holds the user-supplied screening thresholds.
type FilterCriteria struct {
	MinVolume       float64 `yaml:"min_volume" toml:"min_volume" json:"min_volume"`
	MinAbsPctChange float64 `yaml:"min_abs_pct_change" toml:"min_abs_pct_change" json:"min_abs_pct_change"`
	PriceMin        float64 `yaml:"price_min" toml:"price_min" json:"price_min"`
	PriceMax        float64 `yaml:"price_max" toml:"price_max" json:"price_max"`
	Sector          string  `yaml:"sector" toml:"sector" json:"sector,omitempty"`
}

// Validate rejects malformed criteria. Bounds are never swapped.
func (c FilterCriteria) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"min_volume", c.MinVolume},
		{"min_abs_pct_change", c.MinAbsPctChange},
		{"price_min", c.PriceMin},
		{"price_max", c.PriceMax},
	}
	for _, f := range fields {
		name, v := f.name, f.v
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidCriteria, name)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidCriteria, name)
		}
	}
	if c.PriceMin > c.PriceMax {
		return fmt.Errorf("%w: price_min %.2f > price_max %.2f", ErrInvalidCriteria, c.PriceMin, c.PriceMax)
	}
	return nil
}
