package gather

import (
	"context"
	"log/slog"
	"sync"

	"marketetl/internal/domain"
	"marketetl/internal/yahoo"
)

// OptionsSource lists expiration dates and fetches per-expiration chains.
type OptionsSource interface {
	Expirations(ctx context.Context, symbol string) ([]string, error)
	Chain(ctx context.Context, symbol, expiration string) ([]domain.OptionContract, error)
}

var _ OptionsSource = (*yahoo.Client)(nil)

// OptionsFetcher assembles a symbol's full chain: discover expirations, cap
// them at MaxExpirations, then fetch each expiration's chain with at most
// FanOut concurrent calls. Failed expirations are skipped; the aggregate
// keeps expiration order.
type OptionsFetcher struct {
	Source         OptionsSource
	MaxExpirations int
	FanOut         int
	Log            *slog.Logger
}

// FetchChain returns every contract for symbol across its nearest
// expirations. A symbol with no listed expirations returns ErrNoData. If
// every expiration fetch fails, the first error is returned.
func (f *OptionsFetcher) FetchChain(ctx context.Context, symbol string) ([]domain.OptionContract, error) {
	log := f.Log
	if log == nil {
		log = slog.Default()
	}

	expirations, err := f.Source.Expirations(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(expirations) == 0 {
		return nil, ErrNoData
	}
	if f.MaxExpirations > 0 && len(expirations) > f.MaxExpirations {
		expirations = expirations[:f.MaxExpirations]
	}

	fanOut := f.FanOut
	if fanOut <= 0 {
		fanOut = 8
	}

	chains := make([][]domain.OptionContract, len(expirations))
	errs := make([]error, len(expirations))
	sem := make(chan struct{}, fanOut)
	var wg sync.WaitGroup

	for i, expiration := range expirations {
		wg.Add(1)
		go func(i int, expiration string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			chains[i], errs[i] = f.Source.Chain(ctx, symbol, expiration)
		}(i, expiration)
	}
	wg.Wait()

	var (
		contracts []domain.OptionContract
		fetched   int
		firstErr  error
	)
	for i, expiration := range expirations {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			log.Warn("expiration fetch failed",
				"symbol", symbol, "expiration", expiration, "error", errs[i])
			continue
		}
		fetched++
		contracts = append(contracts, chains[i]...)
	}
	if fetched == 0 {
		return nil, firstErr
	}
	return contracts, nil
}
