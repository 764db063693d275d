package treasury

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"marketetl/internal/domain"
)

// Feed column headers for the bank discount rates, mapped to maturities.
var maturityColumns = map[string]func(*domain.TreasuryRate) **float64{
	"4 WEEKS BANK DISCOUNT":  func(r *domain.TreasuryRate) **float64 { return &r.OneMonth },
	"8 WEEKS BANK DISCOUNT":  func(r *domain.TreasuryRate) **float64 { return &r.TwoMonth },
	"13 WEEKS BANK DISCOUNT": func(r *domain.TreasuryRate) **float64 { return &r.ThreeMonth },
	"26 WEEKS BANK DISCOUNT": func(r *domain.TreasuryRate) **float64 { return &r.SixMonth },
	"52 WEEKS BANK DISCOUNT": func(r *domain.TreasuryRate) **float64 { return &r.OneYear },
}

const feedDateLayout = "01/02/2006"

// parseRates decodes the feed CSV into daily rate records sorted by date
// ascending. Cells holding "N/A" or nothing stay nil. Rows with an
// unparseable date are skipped.
func parseRates(data []byte) ([]domain.TreasuryRate, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	dateCol := -1
	cols := map[int]func(*domain.TreasuryRate) **float64{}
	for i, name := range header {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "DATE" {
			dateCol = i
			continue
		}
		if field, ok := maturityColumns[name]; ok {
			cols[i] = field
		}
	}
	if dateCol < 0 {
		return nil, fmt.Errorf("feed csv has no Date column")
	}

	var rates []domain.TreasuryRate
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if dateCol >= len(row) {
			continue
		}
		day, err := time.Parse(feedDateLayout, strings.TrimSpace(row[dateCol]))
		if err != nil {
			continue
		}

		rate := domain.TreasuryRate{Date: day.Format(domain.DateFormat)}
		for i, field := range cols {
			if i >= len(row) {
				continue
			}
			if v, ok := parseRate(row[i]); ok {
				*field(&rate) = domain.Float(v)
			}
		}
		rates = append(rates, rate)
	}

	sort.Slice(rates, func(i, j int) bool { return rates[i].Date < rates[j].Date })
	return rates, nil
}

func parseRate(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "N/A") {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
