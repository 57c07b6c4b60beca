package reader

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DayFilePath builds the conventional per-day dump path:
// {root}/{market}/{SYMBOL}/{SYMBOL}-YYYY-MM-DD.csv
func DayFilePath(root, market, symbol string, date time.Time) string {
	name := fmt.Sprintf("%s-%04d-%02d-%02d.csv", symbol, date.Year(), date.Month(), date.Day())
	return filepath.Join(root, market, symbol, name)
}

// ReadCSVFile reads a headered CSV file and returns the header index map
// plus the data rows.
func ReadCSVFile(path string) (map[string]int, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty csv %s", path)
	}

	header := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		header[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return header, records[1:], nil
}

// Field returns the named column of a row, empty when absent.
func Field(header map[string]int, row []string, name string) string {
	idx, ok := header[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseFloat parses a float that may carry thousands separators, the way
// the exchange-rate dumps format large values ("1,132.80").
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
