package stream

import (
	"context"
	"sync"

	"funding_go/internal/domain"
)

// MetadataCache caches symbol metadata per exchange for the process
// lifetime. Concurrent misses may fetch twice; the second write
// overwrites with equivalent data.
type MetadataCache struct {
	exchange Exchange
	mu       sync.RWMutex
	entries  map[string]*domain.SymbolMetadata
}

// NewMetadataCache creates a cache backed by the exchange's metadata endpoint.
func NewMetadataCache(exchange Exchange) *MetadataCache {
	return &MetadataCache{
		exchange: exchange,
		entries:  make(map[string]*domain.SymbolMetadata),
	}
}

// Get returns the cached metadata for symbol, fetching it on first use.
func (c *MetadataCache) Get(ctx context.Context, symbol string) (*domain.SymbolMetadata, error) {
	c.mu.RLock()
	meta, ok := c.entries[symbol]
	c.mu.RUnlock()
	if ok {
		return meta, nil
	}

	meta, err := c.exchange.FetchMetadata(ctx, symbol)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[symbol] = meta
	c.mu.Unlock()
	return meta, nil
}
