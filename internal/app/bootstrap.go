package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"
	"funding_go/internal/infra/aster"
	"funding_go/internal/infra/hyperliquid"
	"funding_go/internal/infra/mexc"
	"funding_go/internal/infra/storage"
	"funding_go/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Metrics *infra.Metrics
	REST    *infra.RESTClient

	Collectors []domain.Collector
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB,
// exchange clients).
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping Funding Go...")

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Shared REST plumbing and exchange collectors
	b.Metrics = infra.NewMetrics()
	b.REST = infra.NewRESTClient(5, b.Metrics)
	b.Collectors = b.enabledCollectors()
	slog.Info("✅ Exchange clients ready", slog.Int("count", len(b.Collectors)))

	return nil
}

func (b *Bootstrap) enabledCollectors() []domain.Collector {
	var collectors []domain.Collector
	if ex := b.Config.Exchange(domain.ExchangeHyperliquid); ex != nil && ex.Enabled {
		collectors = append(collectors, hyperliquid.NewCollector(b.Config, b.REST))
	}
	if ex := b.Config.Exchange(domain.ExchangeMEXC); ex != nil && ex.Enabled {
		collectors = append(collectors, mexc.NewCollector(b.Config, b.REST))
	}
	if ex := b.Config.Exchange(domain.ExchangeAster); ex != nil && ex.Enabled {
		collectors = append(collectors, aster.NewCollector(b.Config, b.REST))
	}
	return collectors
}

// SyncInstruments refreshes the instrument registry with the symbols
// listed on two or more exchanges.
func (b *Bootstrap) SyncInstruments(ctx context.Context) error {
	slog.Info("🔄 Starting instrument synchronization...")

	universe := service.NewSymbolUniverse(b.Collectors...)
	listings, err := universe.Shared(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent upserts

	for _, listing := range listings {
		wg.Add(1)
		go func(l service.Listing) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			inst := &domain.InstrumentInfo{
				Symbol:     l.Symbol,
				Exchanges:  strings.Join(l.Exchanges, ","),
				IsActive:   true,
				LastSeenAt: time.Now(),
			}

			// Preserve original creation time on refresh
			if existing, _ := b.Storage.GetInstrument(l.Symbol); existing != nil {
				inst.CreatedAt = existing.CreatedAt
			}

			if err := b.Storage.UpsertInstrument(inst); err != nil {
				slog.Error("Failed to upsert instrument", slog.String("symbol", l.Symbol), slog.Any("error", err))
			}
		}(listing)
	}

	wg.Wait()
	slog.Info("✨ Instrument synchronization completed", slog.Int("shared_symbols", len(listings)))
	return nil
}
