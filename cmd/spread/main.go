package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"funding_go/internal/app"
	"funding_go/internal/domain"
	"funding_go/internal/infra"
	"funding_go/internal/infra/aster"
	"funding_go/internal/infra/hyperliquid"
	"funding_go/internal/infra/mexc"
	"funding_go/internal/service"
	"funding_go/internal/stream"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	symbol := flag.String("symbol", "BTC", "normalized symbol to monitor")
	exchangeA := flag.String("exchange-a", domain.ExchangeHyperliquid, "bid-side exchange")
	exchangeB := flag.String("exchange-b", domain.ExchangeAster, "ask-side exchange")
	intervalMS := flag.Int("interval", 0, "minimum ms between updates (overrides config)")
	flag.Parse()

	exA := strings.ToLower(*exchangeA)
	exB := strings.ToLower(*exchangeB)
	if exA == exB {
		fmt.Fprintln(os.Stderr, "exchange-a and exchange-b must differ")
		os.Exit(1)
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config
	if *intervalMS > 0 {
		cfg.Spread.UpdateIntervalMS = *intervalMS
	}

	streamA, err := newStream(cfg, bootstrap.REST, exA)
	if err != nil {
		slog.Error("❌ Invalid exchange", slog.Any("error", err))
		os.Exit(1)
	}
	streamB, err := newStream(cfg, bootstrap.REST, exB)
	if err != nil {
		slog.Error("❌ Invalid exchange", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sym := strings.ToUpper(*symbol)
	fmt.Println("================================================================================")
	fmt.Println("PRICE SPREAD MONITOR")
	fmt.Println("================================================================================")
	fmt.Printf("Symbol:      %s\n", sym)
	fmt.Printf("Exchange A:  %s (bid)\n", strings.ToUpper(exA))
	fmt.Printf("Exchange B:  %s (ask)\n", strings.ToUpper(exB))
	fmt.Printf("Interval:    %dms\n", cfg.Spread.UpdateIntervalMS)
	fmt.Println("Spread = BID_A - ASK_B; positive means buy on B, sell on A")
	fmt.Println("================================================================================")

	monitor := service.NewSpreadMonitor(cfg, streamA, streamB, sym, bootstrap.Metrics, func(u service.SpreadUpdate) {
		prec := int32(u.Precision)
		sign := ""
		if u.Spread.IsPositive() {
			sign = "+"
		}
		fmt.Printf("[%s] %s/%s  Bid A: %s  Ask B: %s  Spread: %s%s (%s%s%%)\n",
			u.Timestamp.Format("15:04:05.000"),
			u.ExchangeA, u.ExchangeB,
			u.BidA.StringFixed(prec),
			u.AskB.StringFixed(prec),
			sign, u.Spread.StringFixed(prec),
			sign, u.SpreadPct.StringFixed(4),
		)
		point := &domain.SpreadPoint{
			Symbol:    u.Symbol,
			ExchangeA: u.ExchangeA,
			ExchangeB: u.ExchangeB,
			BidA:      u.BidA,
			AskB:      u.AskB,
			Spread:    u.Spread,
			SpreadPct: u.SpreadPct,
			Timestamp: u.Timestamp,
		}
		if err := bootstrap.Storage.SaveSpreadPoint(point); err != nil {
			slog.Warn("Failed to persist spread point", slog.Any("error", err))
		}
	})

	if err := monitor.Run(ctx); err != nil {
		slog.Error("❌ Monitor failed", slog.Any("error", err))
		os.Exit(1)
	}

	snapshot := bootstrap.Metrics.Snapshot()
	slog.Info("👋 Monitor stopped",
		slog.Uint64("messages", snapshot.MessagesReceived),
		slog.Uint64("ticks", snapshot.TicksEmitted),
		slog.Uint64("reconnects", snapshot.Reconnects),
	)
}

func newStream(cfg *infra.Config, rest *infra.RESTClient, exchange string) (stream.Exchange, error) {
	switch exchange {
	case domain.ExchangeHyperliquid:
		return hyperliquid.NewStream(cfg, rest), nil
	case domain.ExchangeMEXC:
		return mexc.NewStream(cfg, rest), nil
	case domain.ExchangeAster:
		return aster.NewStream(cfg, rest), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", exchange)
	}
}
