package yahoo

import (
	"context"
	"net/url"

	"marketetl/internal/domain"
)

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				LongName           *string  `json:"longName"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				MarketCap          *float64 `json:"marketCap"`
				Sector             *string  `json:"sector"`
				Industry           *string  `json:"industry"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// StockInfo fetches the current company snapshot for symbol, stamped with
// today's effective date. Returns ErrNoData when the provider has no result
// for the symbol.
func (c *Client) StockInfo(ctx context.Context, symbol string) (*domain.StockInfo, error) {
	symbol = domain.NormalizeSymbol(symbol)

	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")
	params.Set("includePrePost", "false")

	var resp chartResponse
	if err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Chart.Result) == 0 {
		return nil, ErrNoData
	}

	result := resp.Chart.Result[0]

	// Prefer the latest intraday close; fall back to the regular market price.
	price := result.Meta.RegularMarketPrice
	for _, q := range result.Indicators.Quote {
		for i := len(q.Close) - 1; i >= 0; i-- {
			if q.Close[i] != nil {
				price = q.Close[i]
				break
			}
		}
	}

	return &domain.StockInfo{
		Symbol:       symbol,
		CompanyName:  result.Meta.LongName,
		CurrentPrice: price,
		MarketCap:    result.Meta.MarketCap,
		Sector:       result.Meta.Sector,
		Industry:     result.Meta.Industry,
		EffDate:      domain.Today(),
	}, nil
}
