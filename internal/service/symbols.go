package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"funding_go/internal/domain"
)

// SymbolUniverse resolves the set of symbols worth analyzing: those
// listed as perpetuals on at least two of the registered exchanges.
type SymbolUniverse struct {
	collectors []domain.Collector
}

func NewSymbolUniverse(collectors ...domain.Collector) *SymbolUniverse {
	return &SymbolUniverse{collectors: collectors}
}

// Listing maps a normalized symbol to the exchanges quoting it.
type Listing struct {
	Symbol    string
	Exchanges []string
}

// Shared returns symbols listed on two or more exchanges, sorted.
// Exchanges that fail to answer are logged and treated as listing
// nothing.
func (u *SymbolUniverse) Shared(ctx context.Context) ([]Listing, error) {
	type listResult struct {
		exchange string
		symbols  []string
	}

	results := make([]listResult, len(u.collectors))
	var wg sync.WaitGroup
	for i, collector := range u.collectors {
		wg.Add(1)
		go func(i int, c domain.Collector) {
			defer wg.Done()
			symbols, err := c.Symbols(ctx)
			if err != nil {
				slog.Warn("Symbol listing failed for exchange",
					"exchange", c.Name(),
					"error", err)
				return
			}
			results[i] = listResult{exchange: c.Name(), symbols: symbols}
		}(i, collector)
	}
	wg.Wait()

	bySymbol := make(map[string][]string)
	for _, res := range results {
		for _, symbol := range res.symbols {
			bySymbol[symbol] = append(bySymbol[symbol], res.exchange)
		}
	}

	var shared []Listing
	for symbol, exchanges := range bySymbol {
		if len(exchanges) < 2 {
			continue
		}
		sort.Strings(exchanges)
		shared = append(shared, Listing{Symbol: symbol, Exchanges: exchanges})
	}
	sort.Slice(shared, func(i, j int) bool {
		return shared[i].Symbol < shared[j].Symbol
	})
	return shared, nil
}
