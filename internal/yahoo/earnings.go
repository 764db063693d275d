package yahoo

import (
	"context"
	"net/url"
	"time"

	"marketetl/internal/domain"
)

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			CalendarEvents struct {
				Earnings struct {
					EarningsDate []struct {
						Raw *int64 `json:"raw"`
					} `json:"earningsDate"`
				} `json:"earnings"`
			} `json:"calendarEvents"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// EarningsDates fetches the announced upcoming earnings dates for symbol.
// The provider only publishes the next event window, so every row is an
// estimate. Returns ErrNoData when the provider has no result for the
// symbol.
func (c *Client) EarningsDates(ctx context.Context, symbol string) ([]domain.EarningsDate, error) {
	symbol = domain.NormalizeSymbol(symbol)

	params := url.Values{}
	params.Set("modules", "calendarEvents")

	var resp quoteSummaryResponse
	if err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, ErrNoData
	}

	var out []domain.EarningsDate
	for _, d := range resp.QuoteSummary.Result[0].CalendarEvents.Earnings.EarningsDate {
		if d.Raw == nil {
			continue
		}
		out = append(out, domain.EarningsDate{
			Symbol:       symbol,
			EarningsDate: time.Unix(*d.Raw, 0).UTC().Format(domain.DateFormat),
			EarningsType: "estimate",
		})
	}
	return out, nil
}
