package reader

import (
	"fmt"
	"sort"
	"time"

	"arbflow/models"
)

// LoadDailyRates reads the daily exchange-rate CSV (market_index.csv in the
// historical dumps). The first column is the sample date, the "value"
// column the rate, formatted with thousands separators. Samples come back
// sorted ascending by date; forward-filling is the aligner's job.
func LoadDailyRates(path string) ([]models.RateSample, error) {
	header, rows, err := ReadCSVFile(path)
	if err != nil {
		return nil, fmt.Errorf("load daily rates: %w", err)
	}
	if _, ok := header["value"]; !ok {
		return nil, fmt.Errorf("load daily rates: %s has no value column", path)
	}

	samples := make([]models.RateSample, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		date, err := time.ParseInLocation("2006-01-02", row[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse rate date %q: %w", row[0], err)
		}
		rate, err := ParseFloat(Field(header, row, "value"))
		if err != nil {
			return nil, fmt.Errorf("parse rate value for %s: %w", row[0], err)
		}
		samples = append(samples, models.RateSample{Date: date, Rate: rate})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("load daily rates: %s has no samples", path)
	}

	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Date.Before(samples[j].Date) })
	return samples, nil
}
