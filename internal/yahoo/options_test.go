package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketetl/internal/domain"
)

// Timestamps: 2024-06-21 and 2024-07-19 at midnight UTC.
const chainListBody = `{
  "optionChain": {
    "result": [{
      "underlyingSymbol": "AAPL",
      "expirationDates": [1721347200, 1718928000]
    }]
  }
}`

const chainBody = `{
  "optionChain": {
    "result": [{
      "underlyingSymbol": "AAPL",
      "options": [{
        "expirationDate": 1718928000,
        "calls": [
          {"contractSymbol": "AAPL240621C00180000", "strike": 180.0, "bid": 5.1, "ask": 5.3, "lastPrice": 5.2, "volume": 120, "openInterest": 900, "impliedVolatility": 0.31, "lastTradeDate": 1718880000},
          {"contractSymbol": "AAPL240621C00185000", "strike": 185.0, "lastPrice": 2.8}
        ],
        "puts": [
          {"contractSymbol": "AAPL240621P00180000", "strike": 180.0, "bid": 4.0, "ask": 4.4, "volume": 55}
        ]
      }]
    }]
  }
}`

const emptyChainBody = `{"optionChain": {"result": []}}`

func TestExpirations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v7/finance/options/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(chainListBody))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	dates, err := c.Expirations(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Expirations: %v", err)
	}
	want := []string{"2024-06-21", "2024-07-19"}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d", len(dates), len(want))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("dates[%d] = %s, want %s (sorted ascending)", i, dates[i], want[i])
		}
	}
}

func TestExpirationsNoOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyChainBody))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	dates, err := c.Expirations(context.Background(), "ZZZFAKE")
	if err != nil {
		t.Fatalf("Expirations: %v", err)
	}
	if len(dates) != 0 {
		t.Errorf("got %d dates, want 0 for an unknown symbol", len(dates))
	}
}

func TestChainParsesCallsAndPuts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("date"); got != "1718928000" {
			t.Errorf("date param = %s, want 1718928000", got)
		}
		w.Write([]byte(chainBody))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	contracts, err := c.Chain(context.Background(), "aapl", "2024-06-21")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(contracts) != 3 {
		t.Fatalf("got %d contracts, want 3", len(contracts))
	}

	first := contracts[0]
	if first.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want normalized AAPL", first.Symbol)
	}
	if first.OptionType != domain.Call || first.StrikePrice != 180.0 {
		t.Errorf("first contract = %s %.1f, want call 180.0", first.OptionType, first.StrikePrice)
	}
	if first.Bid == nil || *first.Bid != 5.1 {
		t.Errorf("Bid = %v, want 5.1", first.Bid)
	}
	if first.Volume == nil || *first.Volume != 120 {
		t.Errorf("Volume = %v, want 120", first.Volume)
	}
	if first.EffDate != domain.Today() {
		t.Errorf("EffDate = %q, want today", first.EffDate)
	}
	if first.ExpirationDate != "2024-06-21" {
		t.Errorf("ExpirationDate = %q", first.ExpirationDate)
	}

	// Sparse contract keeps unknown fields nil, not zero.
	sparse := contracts[1]
	if sparse.Bid != nil || sparse.Ask != nil || sparse.Volume != nil || sparse.OpenInterest != nil {
		t.Errorf("sparse contract should have nil optional fields, got %+v", sparse)
	}
	if sparse.LastPrice == nil || *sparse.LastPrice != 2.8 {
		t.Errorf("sparse LastPrice = %v, want 2.8", sparse.LastPrice)
	}

	put := contracts[2]
	if put.OptionType != domain.Put {
		t.Errorf("third contract type = %s, want put", put.OptionType)
	}
}

func TestChainEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyChainBody))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	contracts, err := c.Chain(context.Background(), "AAPL", "2024-06-21")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(contracts) != 0 {
		t.Errorf("got %d contracts, want 0", len(contracts))
	}
}

func TestChainRejectsBadDate(t *testing.T) {
	c := testClient("http://unused", 0)
	if _, err := c.Chain(context.Background(), "AAPL", "06/21/2024"); err == nil {
		t.Error("expected error for malformed expiration date")
	}
}

const chartBody = `{
  "chart": {
    "result": [{
      "meta": {
        "symbol": "AAPL",
        "longName": "Apple Inc.",
        "regularMarketPrice": 195.1,
        "marketCap": 3000000000000
      },
      "indicators": {
        "quote": [{"close": [194.5, null, 196.2]}]
      }
    }]
  }
}`

func TestStockInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	info, err := c.StockInfo(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("StockInfo: %v", err)
	}
	if info.Symbol != "AAPL" {
		t.Errorf("Symbol = %q", info.Symbol)
	}
	if info.CompanyName == nil || *info.CompanyName != "Apple Inc." {
		t.Errorf("CompanyName = %v", info.CompanyName)
	}
	// Latest non-null close wins over regularMarketPrice.
	if info.CurrentPrice == nil || *info.CurrentPrice != 196.2 {
		t.Errorf("CurrentPrice = %v, want 196.2", info.CurrentPrice)
	}
	if info.Sector != nil {
		t.Errorf("Sector = %v, want nil when absent", info.Sector)
	}
}

const calendarBody = `{
  "quoteSummary": {
    "result": [{
      "calendarEvents": {
        "earnings": {
          "earningsDate": [{"raw": 1721347200}, {"raw": null}]
        }
      }
    }]
  }
}`

func TestEarningsDates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v10/finance/quoteSummary/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(calendarBody))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	dates, err := c.EarningsDates(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("EarningsDates: %v", err)
	}
	if len(dates) != 1 {
		t.Fatalf("got %d dates, want 1 (null raw skipped)", len(dates))
	}
	if dates[0].EarningsDate != "2024-07-19" || dates[0].EarningsType != "estimate" {
		t.Errorf("dates[0] = %+v", dates[0])
	}
	if dates[0].Symbol != "AAPL" {
		t.Errorf("Symbol = %q", dates[0].Symbol)
	}
}

func TestEarningsDatesNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary": {"result": []}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	if _, err := c.EarningsDates(context.Background(), "ZZZFAKE"); err != ErrNoData {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestStockInfoNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": []}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	_, err := c.StockInfo(context.Background(), "ZZZFAKE")
	if err != ErrNoData {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}
