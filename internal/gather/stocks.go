package gather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"marketetl/internal/domain"
	"marketetl/internal/yahoo"
)

// QuoteSource fetches the current company snapshot for a symbol.
type QuoteSource interface {
	StockInfo(ctx context.Context, symbol string) (*domain.StockInfo, error)
}

var _ QuoteSource = (*yahoo.Client)(nil)

// BarSource fetches daily bars covering a trailing period for a symbol.
type BarSource interface {
	DailyBars(ctx context.Context, symbol, period string) ([]domain.StockPrice, error)
}

var _ BarSource = (*BarClient)(nil)

// BarClient fetches daily OHLCV bars from the Alpaca market-data API.
type BarClient struct {
	client *marketdata.Client
	feed   string
	log    *slog.Logger
}

// NewBarClient creates a bar client with the given Alpaca credentials. An
// empty dataURL uses the production endpoint.
func NewBarClient(apiKey, apiSecret, dataURL string, logger *slog.Logger) *BarClient {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BarClient{
		client: marketdata.NewClient(opts),
		feed:   "iex",
		log:    logger.With("component", "bars"),
	}
}

// DailyBars fetches daily bars for symbol covering the trailing period
// (1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max). A symbol with no bars
// returns ErrNoData.
func (b *BarClient) DailyBars(ctx context.Context, symbol, period string) ([]domain.StockPrice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = domain.NormalizeSymbol(symbol)

	start, err := PeriodStart(period, time.Now())
	if err != nil {
		return nil, err
	}

	bars, err := b.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		Feed:      marketdata.Feed(b.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	prices := make([]domain.StockPrice, 0, len(bars))
	for _, bar := range bars {
		prices = append(prices, domain.StockPrice{
			Symbol: symbol,
			Date:   bar.Timestamp.Format(domain.DateFormat),
			Open:   domain.Float(bar.Open),
			High:   domain.Float(bar.High),
			Low:    domain.Float(bar.Low),
			Close:  domain.Float(bar.Close),
			Volume: domain.Int(int64(bar.Volume)),
		})
	}
	return prices, nil
}

// PeriodStart maps a trailing-period label to its start date relative to now.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "1d":
		return now.AddDate(0, 0, -1), nil
	case "5d":
		return now.AddDate(0, 0, -5), nil
	case "1mo":
		return now.AddDate(0, -1, 0), nil
	case "3mo":
		return now.AddDate(0, -3, 0), nil
	case "6mo":
		return now.AddDate(0, -6, 0), nil
	case "1y":
		return now.AddDate(-1, 0, 0), nil
	case "2y":
		return now.AddDate(-2, 0, 0), nil
	case "5y":
		return now.AddDate(-5, 0, 0), nil
	case "10y":
		return now.AddDate(-10, 0, 0), nil
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	case "max":
		return time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unknown price period %q", period)
}
