// Package gather runs the collection pipeline: symbols are fetched in
// consecutive batches with bounded concurrency, and each batch's results are
// flushed to the store before the next batch starts.
package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoData marks a symbol the source has no records for. It is counted
// separately from failures and never retried.
var ErrNoData = errors.New("no data for symbol")

// Result is the outcome of fetching one symbol.
type Result[R any] struct {
	Symbol  string
	Payload R
	NoData  bool
	Err     error
}

// Totals are the running counters of a dispatcher run.
type Totals struct {
	Symbols   int
	Processed int
	NoData    int
	Errors    int
	Rows      int
	Batches   int
}

// Dispatcher fans a symbol list out to Fetch with at most MaxConcurrent
// in-flight calls, in consecutive batches of BatchSize. Successful results
// are handed to Sink in input order at the end of each batch. A symbol's
// failure or panic never aborts the rest of its batch.
type Dispatcher[R any] struct {
	// Fetch retrieves the payload for one symbol.
	Fetch func(ctx context.Context, symbol string) (R, error)

	// Sink persists one batch of successful results, returning the number of
	// rows written and how many results it failed to persist. Per-result
	// persistence failures are counted into Totals.Errors and the run
	// continues; a returned error aborts the whole run.
	Sink func(ctx context.Context, results []Result[R]) (rows, failed int, err error)

	// IsNoData classifies fetch errors that mean "symbol has no records".
	// Defaults to errors.Is(err, ErrNoData).
	IsNoData func(error) bool

	BatchSize     int
	MaxConcurrent int
	Log           *slog.Logger
}

// Run processes symbols and returns the totals. On context cancellation the
// current batch's fetched results are still flushed before returning.
func (d *Dispatcher[R]) Run(ctx context.Context, symbols []string) (Totals, error) {
	batchSize := d.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxConcurrent := d.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 15
	}
	isNoData := d.IsNoData
	if isNoData == nil {
		isNoData = func(err error) bool { return errors.Is(err, ErrNoData) }
	}
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	totals := Totals{Symbols: len(symbols)}
	if len(symbols) == 0 {
		return totals, nil
	}
	totalBatches := (len(symbols) + batchSize - 1) / batchSize

	for start := 0; start < len(symbols); start += batchSize {
		end := min(start+batchSize, len(symbols))
		batch := symbols[start:end]

		results := make([]Result[R], len(batch))
		sem := make(chan struct{}, maxConcurrent)
		var wg sync.WaitGroup

		for i, sym := range batch {
			results[i].Symbol = sym
			wg.Add(1)
			go func(i int, sym string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				defer func() {
					if r := recover(); r != nil {
						results[i].Err = fmt.Errorf("panic fetching %s: %v", sym, r)
					}
				}()

				payload, err := d.Fetch(ctx, sym)
				if err != nil {
					if isNoData(err) {
						results[i].NoData = true
					} else {
						results[i].Err = err
					}
					return
				}
				results[i].Payload = payload
			}(i, sym)
		}
		wg.Wait()

		var good []Result[R]
		for _, r := range results {
			switch {
			case r.NoData:
				totals.NoData++
			case r.Err != nil:
				totals.Errors++
				log.Warn("symbol failed", "symbol", r.Symbol, "error", r.Err)
			default:
				totals.Processed++
				good = append(good, r)
			}
		}

		// Flush even when the run was cancelled mid-batch so fetched work is
		// not lost.
		if len(good) > 0 && d.Sink != nil {
			rows, failed, err := d.Sink(context.WithoutCancel(ctx), good)
			totals.Rows += rows
			totals.Errors += failed
			if err != nil {
				return totals, fmt.Errorf("flushing batch %d/%d: %w",
					totals.Batches+1, totalBatches, err)
			}
		}
		totals.Batches++

		log.Info("batch done",
			"batch", fmt.Sprintf("%d/%d", totals.Batches, totalBatches),
			"ok", totals.Processed, "no_data", totals.NoData,
			"errors", totals.Errors, "rows", totals.Rows,
		)

		if err := ctx.Err(); err != nil {
			return totals, err
		}
	}
	return totals, nil
}
