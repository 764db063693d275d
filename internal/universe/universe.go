// Package universe resolves the set of symbols a collection run operates on:
// local CSV symbol lists plus the S&P 500 constituents table on Wikipedia.
package universe

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"marketetl/internal/domain"
)

// DefaultWikipediaURL is the constituents page scraped by FetchSP500.
const DefaultWikipediaURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Constituent is one row of the S&P 500 constituents table.
type Constituent struct {
	Symbol      string
	Security    string
	Sector      string
	SubIndustry string
}

// LoadCSV reads ticker symbols from a CSV file with a Symbol or Ticker
// column. Symbols are normalized and deduplicated, preserving file order.
func LoadCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "symbol", "ticker":
			col = i
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%s: no Symbol or Ticker column", path)
	}

	var symbols []string
	seen := map[string]bool{}
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		sym := domain.NormalizeSymbol(row[col])
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

// FetchSP500 scrapes the constituents table (id "constituents") from the
// Wikipedia page at url. An empty url uses DefaultWikipediaURL.
func FetchSP500(ctx context.Context, httpc *http.Client, url string) ([]Constituent, error) {
	if url == "" {
		url = DefaultWikipediaURL
	}
	if httpc == nil {
		httpc = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching constituents page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("constituents page: http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing constituents page: %w", err)
	}

	var out []Constituent
	doc.Find("table#constituents tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		sym := domain.NormalizeSymbol(cells.Eq(0).Text())
		if sym == "" {
			return
		}
		out = append(out, Constituent{
			Symbol:      sym,
			Security:    strings.TrimSpace(cells.Eq(1).Text()),
			Sector:      strings.TrimSpace(cells.Eq(2).Text()),
			SubIndustry: strings.TrimSpace(cells.Eq(3).Text()),
		})
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("constituents table not found or empty")
	}
	return out, nil
}

// WriteCSV saves constituents to path in the same layout LoadCSV reads,
// creating parent directories as needed.
func WriteCSV(path string, constituents []Constituent) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Symbol", "Security", "GICS Sector", "GICS Sub-Industry"}); err != nil {
		return err
	}
	for _, c := range constituents {
		if err := w.Write([]string{c.Symbol, c.Security, c.Sector, c.SubIndustry}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Symbols projects constituents to their ticker symbols.
func Symbols(constituents []Constituent) []string {
	out := make([]string, 0, len(constituents))
	for _, c := range constituents {
		out = append(out, c.Symbol)
	}
	return out
}

// Limit returns at most n symbols. n <= 0 means no limit.
func Limit(symbols []string, n int) []string {
	if n <= 0 || n >= len(symbols) {
		return symbols
	}
	return symbols[:n]
}
