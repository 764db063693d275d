package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"marketetl/internal/domain"
)

// optionQuote is one contract as returned by the provider. Optional fields
// decode to nil when the provider omits them.
type optionQuote struct {
	ContractSymbol    *string  `json:"contractSymbol"`
	Strike            float64  `json:"strike"`
	Bid               *float64 `json:"bid"`
	Ask               *float64 `json:"ask"`
	LastPrice         *float64 `json:"lastPrice"`
	Volume            *int64   `json:"volume"`
	OpenInterest      *int64   `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
	LastTradeDate     *int64   `json:"lastTradeDate"` // unix seconds
}

type optionChainResponse struct {
	OptionChain struct {
		Result []struct {
			UnderlyingSymbol string  `json:"underlyingSymbol"`
			ExpirationDates  []int64 `json:"expirationDates"` // unix seconds
			Options          []struct {
				ExpirationDate int64         `json:"expirationDate"`
				Calls          []optionQuote `json:"calls"`
				Puts           []optionQuote `json:"puts"`
			} `json:"options"`
		} `json:"result"`
	} `json:"optionChain"`
}

// Expirations returns the available expiration dates for symbol, sorted
// ascending in YYYY-MM-DD form. An empty slice means the provider lists no
// options for the symbol.
func (c *Client) Expirations(ctx context.Context, symbol string) ([]string, error) {
	symbol = domain.NormalizeSymbol(symbol)

	var resp optionChainResponse
	if err := c.getJSON(ctx, "/v7/finance/options/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, nil
	}

	raw := resp.OptionChain.Result[0].ExpirationDates
	dates := make([]string, 0, len(raw))
	for _, ts := range raw {
		dates = append(dates, time.Unix(ts, 0).UTC().Format(domain.DateFormat))
	}
	sort.Strings(dates)
	return dates, nil
}

// Chain fetches the options chain for one (symbol, expiration) pair and maps
// it into contract records stamped with today's effective date. Calls come
// before puts; within each leg the provider's strike order is preserved.
func (c *Client) Chain(ctx context.Context, symbol, expiration string) ([]domain.OptionContract, error) {
	symbol = domain.NormalizeSymbol(symbol)

	expDay, err := time.ParseInLocation(domain.DateFormat, expiration, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("bad expiration date %q: %w", expiration, err)
	}

	params := url.Values{}
	params.Set("date", strconv.FormatInt(expDay.Unix(), 10))

	var resp optionChainResponse
	if err := c.getJSON(ctx, "/v7/finance/options/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if len(resp.OptionChain.Result) == 0 || len(resp.OptionChain.Result[0].Options) == 0 {
		return nil, nil
	}

	leg := resp.OptionChain.Result[0].Options[0]
	effDate := domain.Today()

	contracts := make([]domain.OptionContract, 0, len(leg.Calls)+len(leg.Puts))
	for _, q := range leg.Calls {
		contracts = append(contracts, toContract(symbol, expiration, effDate, domain.Call, q))
	}
	for _, q := range leg.Puts {
		contracts = append(contracts, toContract(symbol, expiration, effDate, domain.Put, q))
	}
	return contracts, nil
}

func toContract(symbol, expiration, effDate string, typ domain.OptionType, q optionQuote) domain.OptionContract {
	var lastTrade *time.Time
	if q.LastTradeDate != nil {
		t := time.Unix(*q.LastTradeDate, 0).UTC()
		lastTrade = &t
	}
	return domain.OptionContract{
		Symbol:            symbol,
		ExpirationDate:    expiration,
		StrikePrice:       q.Strike,
		OptionType:        typ,
		Bid:               q.Bid,
		Ask:               q.Ask,
		LastPrice:         q.LastPrice,
		Volume:            q.Volume,
		OpenInterest:      q.OpenInterest,
		ImpliedVolatility: q.ImpliedVolatility,
		ContractName:      q.ContractSymbol,
		LastTradeDate:     lastTrade,
		EffDate:           effDate,
	}
}
