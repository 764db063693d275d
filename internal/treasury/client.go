// Package treasury fetches daily treasury bill rates from the treasury.gov
// monthly CSV download endpoint.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"marketetl/internal/domain"
	"marketetl/internal/util"
)

const defaultBaseURL = "https://home.treasury.gov/resource-center/data-chart-center/interest-rates/daily-treasury-rates.csv"

// statusError is a non-200 response from the feed.
type statusError struct {
	status int
	url    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("treasury feed %s: http %d", e.url, e.status)
}

// Client downloads and parses the monthly daily-rates CSV. The feed is
// polled one month at a time by a single caller, so it is gated by a fixed
// inter-call delay rather than a shared token bucket.
type Client struct {
	httpc      *http.Client
	baseURL    string
	limiter    util.Limiter
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
	log        *slog.Logger
}

// NewClient creates a treasury feed client with the given base URL and
// minimum delay between requests.
func NewClient(baseURL string, delay time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpc:      &http.Client{},
		baseURL:    baseURL,
		limiter:    util.NewIntervalLimiter(delay),
		maxRetries: 3,
		backoff:    time.Second,
		timeout:    30 * time.Second,
		log:        logger.With("component", "treasury"),
	}
}

// MonthlyRates fetches the daily bill rates for one calendar month, sorted
// by date ascending. Months with no published data yield an empty slice.
func (c *Client) MonthlyRates(ctx context.Context, year int, month time.Month) ([]domain.TreasuryRate, error) {
	ym := fmt.Sprintf("%04d%02d", year, int(month))
	u := fmt.Sprintf("%s/all/%s?type=daily_treasury_bill_rates&field_tdr_date_value_month=%s&page&_format=csv",
		c.baseURL, ym, ym)

	var body []byte
	fetch := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		actx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(actx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return &statusError{status: resp.StatusCode, url: u}
		}
		body, err = io.ReadAll(resp.Body)
		return err
	}

	err := util.RetryIf(ctx, c.maxRetries+1, c.backoff, fetch, func(err error) bool {
		var serr *statusError
		if errors.As(err, &serr) {
			return serr.status == http.StatusTooManyRequests || serr.status >= 500
		}
		// Transport-level failures against this feed are treated as transient.
		return !errors.Is(err, context.Canceled)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching treasury rates for %s: %w", ym, err)
	}

	rates, err := parseRates(body)
	if err != nil {
		return nil, fmt.Errorf("parsing treasury rates for %s: %w", ym, err)
	}
	c.log.Info("fetched treasury rates", "month", ym, "days", len(rates))
	return rates, nil
}
