// Package loader acquires the raw observation window for the pipeline. It
// implements an ordered fallback chain of loading strategies: the remote sheet
// export first, then the local cache, then synthetically generated data, so a
// usable table is always returned and downstream stages never start empty.
package loader

import (
	"context"

	"github.com/majito0703/measure-data-logger/internal/config"
	"github.com/majito0703/measure-data-logger/internal/logger"
	"github.com/majito0703/measure-data-logger/internal/models"
)

// Strategy is one way of obtaining a raw observation table.
type Strategy interface {
	Name() string
	Load(ctx context.Context) (*models.RawTable, error)
}

// Chain tries strategies in order until one yields a table.
type Chain struct {
	strategies []Strategy
	cache      *Cache
}

// NewChain builds the standard fallback chain: sheet export, local cache,
// synthetic data. The cache is refreshed whenever the sheet load succeeds.
func NewChain(src config.SourceConfig, series config.SeriesConfig, vars []config.Variable) *Chain {
	cache := NewCache(src.CachePath, src.CacheWindow)
	return &Chain{
		strategies: []Strategy{
			NewSheetLoader(src),
			cache,
			NewSynthetic(series, vars),
		},
		cache: cache,
	}
}

// NewChainOf builds a chain from explicit strategies, for tests.
func NewChainOf(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Load returns the first table a strategy produces. Failures along the chain
// are logged and swallowed; the synthetic strategy cannot fail, so a chain
// that includes it always returns a table.
func (c *Chain) Load(ctx context.Context) *models.RawTable {
	for _, s := range c.strategies {
		table, err := s.Load(ctx)
		if err != nil {
			logger.Warn("Loader %s failed: %v", s.Name(), err)
			continue
		}
		if err := table.Validate(); err != nil {
			logger.Warn("Loader %s returned an unusable table: %v", s.Name(), err)
			continue
		}
		logger.Info("Loaded %d raw rows from %s", len(table.Rows), s.Name())

		if c.cache != nil && s.Name() == sheetLoaderName {
			if err := c.cache.Refresh(table); err != nil {
				logger.Warn("Failed to refresh local cache: %v", err)
			}
		}
		return table
	}
	// Unreachable with the standard chain; a test chain may exhaust.
	return nil
}
