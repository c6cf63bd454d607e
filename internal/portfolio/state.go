package portfolio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"DayScreener/internal/model"
)

// ledgerFile is the on-disk shape of the ledger.
type ledgerFile struct {
	Entries   []model.PortfolioEntry `json:"entries"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// LoadState reads the ledger from a JSON file. Returns no entries if the file doesn't exist.
func LoadState(filePath string) ([]model.PortfolioEntry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var f ledgerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Entries, nil
}

// SaveState writes the ledger to a JSON file, replacing it atomically.
func SaveState(filePath string, entries []model.PortfolioEntry) error {
	data, err := json.MarshalIndent(ledgerFile{Entries: entries, UpdatedAt: time.Now()}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
