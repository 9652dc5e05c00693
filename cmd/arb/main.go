package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funding_go/internal/app"
	"funding_go/internal/domain"
	"funding_go/internal/infra"
	"funding_go/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	minDiff := flag.String("min-diff", "", "hourly rate difference threshold (overrides config)")
	topN := flag.Int("top", 0, "number of opportunities to display (overrides config)")
	updateSymbols := flag.Bool("update-symbols", false, "refresh the instrument registry and exit")
	historySymbol := flag.String("history", "", "print funding history for a symbol and exit")
	historyDays := flag.Int("days", 7, "history lookback in days")
	flag.Parse()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *updateSymbols {
		if err := bootstrap.SyncInstruments(ctx); err != nil {
			slog.Error("❌ Instrument sync failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if *historySymbol != "" {
		if err := printHistory(ctx, bootstrap, *historySymbol, *historyDays); err != nil {
			slog.Error("❌ History fetch failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := runAnalysis(ctx, bootstrap, *minDiff, *topN); err != nil {
		slog.Error("❌ Analysis failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func runAnalysis(ctx context.Context, bootstrap *app.Bootstrap, minDiffFlag string, topFlag int) error {
	cfg := bootstrap.Config
	runID := uuid.NewString()

	fmt.Println("============================================================")
	fmt.Println("CRYPTO FUNDING RATE ARBITRAGE ANALYZER")
	fmt.Println("============================================================")
	fmt.Printf("Run: %s\n", runID)
	fmt.Printf("Tracking symbols: %v\n\n", cfg.Symbols)

	// 1. Collect from every enabled exchange concurrently
	collector := service.NewCollectorService(bootstrap.Collectors...)
	rates, results, err := collector.CollectAll(ctx, cfg.Symbols)
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("  ✗ %s: %v\n", res.Exchange, res.Err)
		} else {
			fmt.Printf("  ✓ %s: %d rates collected\n", res.Exchange, len(res.Rates))
		}
	}
	if err != nil {
		return err
	}
	fmt.Printf("✅ Collected %d funding rates\n\n", len(rates))

	// 2. Persist and export the raw snapshot
	if err := bootstrap.Storage.SaveFundingRates(runID, rates); err != nil {
		slog.Warn("Failed to persist funding snapshot", slog.Any("error", err))
	}
	exporter := infra.NewExporter(cfg.Export.Dir)
	if path, err := exporter.ExportFundingRates(rates); err != nil {
		slog.Warn("Failed to export funding rates", slog.Any("error", err))
	} else {
		fmt.Printf("💾 Saved current rates to %s\n\n", path)
	}

	// 3. Analyze
	threshold := cfg.Analyzer.MinRateDifference.Decimal
	if minDiffFlag != "" {
		parsed, err := decimal.NewFromString(minDiffFlag)
		if err != nil {
			return fmt.Errorf("invalid -min-diff %q: %w", minDiffFlag, err)
		}
		threshold = parsed
	}
	analyzer := service.NewAnalyzer(threshold)
	opportunities := analyzer.FindOpportunities(rates)

	if len(opportunities) == 0 {
		fmt.Println("ℹ️  No arbitrage opportunities found (rate difference < threshold)")
		return nil
	}

	if err := bootstrap.Storage.SaveOpportunities(runID, opportunities); err != nil {
		slog.Warn("Failed to persist opportunities", slog.Any("error", err))
	}
	if path, err := exporter.ExportOpportunities(opportunities); err != nil {
		slog.Warn("Failed to export opportunities", slog.Any("error", err))
	} else {
		fmt.Printf("💾 Saved opportunities to %s\n\n", path)
	}

	top := cfg.Analyzer.TopN
	if topFlag > 0 {
		top = topFlag
	}
	printOpportunities(opportunities, top)
	return nil
}

func printOpportunities(opportunities []domain.ArbitrageOpportunity, top int) {
	if top > len(opportunities) {
		top = len(opportunities)
	}

	fmt.Println("🎯 ARBITRAGE OPPORTUNITIES FOUND")
	fmt.Printf("\nTop %d opportunities out of %d total\n", top, len(opportunities))
	fmt.Println("Note: Rates shown are as received for each exchange's funding interval")
	fmt.Println()
	fmt.Printf("%-3s %-8s %-12s %-5s %-10s %-8s %-8s %-12s %-5s %-10s %-8s %-8s %-10s %-10s\n",
		"#", "Symbol", "Long Exch", "Int", "Rate", "Maker", "Taker",
		"Short Exch", "Int", "Rate", "Maker", "Taker", "Spread/h", "Annual")

	for i, opp := range opportunities[:top] {
		fmt.Printf("%-3d %-8s %-12s %-5s %-10s %-8s %-8s %-12s %-5s %-10s %-8s %-8s %-10s %-10s\n",
			i+1,
			opp.Symbol,
			opp.LongExchange,
			fmt.Sprintf("%dh", opp.LongIntervalHours),
			formatPct(opp.LongRateInterval, 4),
			formatFee(opp.LongMakerFee),
			formatFee(opp.LongTakerFee),
			opp.ShortExchange,
			fmt.Sprintf("%dh", opp.ShortIntervalHours),
			formatPct(opp.ShortRateInterval, 4),
			formatFee(opp.ShortMakerFee),
			formatFee(opp.ShortTakerFee),
			formatPct(opp.RateDifference, 4),
			formatPct(opp.AnnualReturn(), 2),
		)
	}
}

var percentScale = decimal.NewFromInt(100)

func formatPct(v decimal.Decimal, places int32) string {
	return v.Mul(percentScale).StringFixed(places) + "%"
}

// formatFee renders an unconfigured fee as N/A, never as zero.
func formatFee(fee *decimal.Decimal) string {
	if fee == nil {
		return "N/A"
	}
	return fee.Mul(percentScale).StringFixed(3) + "%"
}

func printHistory(ctx context.Context, bootstrap *app.Bootstrap, symbol string, days int) error {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	fmt.Printf("Funding history for %s (%d days)\n\n", symbol, days)
	for _, collector := range bootstrap.Collectors {
		history, err := collector.FundingHistory(ctx, symbol, start, end)
		if err != nil {
			fmt.Printf("  ✗ %s: %v\n", collector.Name(), err)
			continue
		}
		fmt.Printf("%s: %d settlements\n", collector.Name(), len(history))
		for _, rate := range history {
			fmt.Printf("  %s  %s  (%dh)\n",
				rate.Timestamp.Format(time.RFC3339),
				formatPct(rate.Rate, 4),
				rate.IntervalHours)
		}
	}
	return nil
}
