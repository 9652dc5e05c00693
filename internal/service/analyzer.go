package service

import (
	"sort"
	"time"

	"funding_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Analyzer finds funding rate divergences across exchanges. It is a
// pure computation over already-normalized rates; no I/O.
type Analyzer struct {
	minRateDifference decimal.Decimal
}

func NewAnalyzer(minRateDifference decimal.Decimal) *Analyzer {
	return &Analyzer{minRateDifference: minRateDifference}
}

// FindOpportunities groups rates by symbol and pairs the lowest hourly
// rate (long leg) against the highest (short leg). Symbols quoted on a
// single exchange are skipped. Pairs whose absolute hourly difference
// is below the configured minimum are dropped.
func (a *Analyzer) FindOpportunities(rates []domain.FundingRate) []domain.ArbitrageOpportunity {
	groups := make(map[string][]domain.FundingRate)
	var order []string
	for _, r := range rates {
		if _, seen := groups[r.Symbol]; !seen {
			order = append(order, r.Symbol)
		}
		groups[r.Symbol] = append(groups[r.Symbol], r)
	}

	now := time.Now()
	var opportunities []domain.ArbitrageOpportunity
	for _, symbol := range order {
		group := groups[symbol]
		if len(group) < 2 {
			continue
		}

		// Stable sort keeps input order between equal hourly rates,
		// so extremes are deterministic for a given rate slice.
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].HourlyRate().LessThan(group[j].HourlyRate())
		})

		long := group[0]
		short := group[len(group)-1]
		diff := short.HourlyRate().Sub(long.HourlyRate())
		if diff.Abs().LessThan(a.minRateDifference) {
			continue
		}

		opportunities = append(opportunities, domain.ArbitrageOpportunity{
			Symbol: symbol,

			LongExchange:      long.Exchange,
			LongRateHourly:    long.HourlyRate(),
			LongRateInterval:  long.Rate,
			LongIntervalHours: long.IntervalHours,
			LongMakerFee:      long.MakerFee,
			LongTakerFee:      long.TakerFee,
			LongNextFunding:   long.NextFundingTime,

			ShortExchange:      short.Exchange,
			ShortRateHourly:    short.HourlyRate(),
			ShortRateInterval:  short.Rate,
			ShortIntervalHours: short.IntervalHours,
			ShortMakerFee:      short.MakerFee,
			ShortTakerFee:      short.TakerFee,
			ShortNextFunding:   short.NextFundingTime,

			RateDifference: diff,
			Timestamp:      now,
		})
	}

	// Largest divergence first.
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].RateDifference.GreaterThan(opportunities[j].RateDifference)
	})
	return opportunities
}
