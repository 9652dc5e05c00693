package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"funding_go/internal/domain"
)

// CollectorService fans a funding rate fetch out to every registered
// exchange concurrently.
type CollectorService struct {
	collectors []domain.Collector
}

func NewCollectorService(collectors ...domain.Collector) *CollectorService {
	return &CollectorService{collectors: collectors}
}

// CollectResult is one exchange's outcome within a collection run.
// Err set means the exchange failed outright; Err nil with an empty
// Rates slice means it answered with nothing to report.
type CollectResult struct {
	Exchange string
	Rates    []domain.FundingRate
	Err      error
}

// CollectAll queries every exchange in parallel and merges the
// successful results. One exchange failing never aborts the others.
// When no exchange returns any rate at all the run itself failed and
// an error wrapping domain.ErrNoFundingData is returned.
func (s *CollectorService) CollectAll(ctx context.Context, symbols []string) ([]domain.FundingRate, []CollectResult, error) {
	results := make([]CollectResult, len(s.collectors))

	var wg sync.WaitGroup
	for i, collector := range s.collectors {
		wg.Add(1)
		go func(i int, c domain.Collector) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = CollectResult{
						Exchange: c.Name(),
						Err:      fmt.Errorf("collector panicked: %v", r),
					}
				}
			}()

			rates, err := c.FundingRates(ctx, symbols)
			results[i] = CollectResult{Exchange: c.Name(), Rates: rates, Err: err}
		}(i, collector)
	}
	wg.Wait()

	var merged []domain.FundingRate
	failures := 0
	for _, res := range results {
		if res.Err != nil {
			failures++
			slog.Warn("Funding rate collection failed for exchange",
				"exchange", res.Exchange,
				"error", res.Err)
			continue
		}
		if len(res.Rates) == 0 {
			slog.Info("Exchange returned no funding rates", "exchange", res.Exchange)
			continue
		}
		merged = append(merged, res.Rates...)
	}

	if len(merged) == 0 {
		return nil, results, fmt.Errorf("%w: %d/%d exchanges failed",
			domain.ErrNoFundingData, failures, len(s.collectors))
	}
	return merged, results, nil
}
