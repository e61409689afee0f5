package price

import (
	"sync"
	"time"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// pairCache is the flat ticker snapshot keyed by base then quote currency.
// It is only ever replaced as a whole.
type pairCache struct {
	mu        sync.RWMutex
	byBase    map[string]map[string]domain.TradingPair
	pairs     []domain.TradingPair
	updatedAt time.Time
}

func newPairCache() *pairCache {
	return &pairCache{
		byBase: make(map[string]map[string]domain.TradingPair),
	}
}

func (c *pairCache) replace(pairs []domain.TradingPair, at time.Time) {
	byBase := make(map[string]map[string]domain.TradingPair, len(pairs))
	for _, p := range pairs {
		quotes, ok := byBase[p.BaseCurrency]
		if !ok {
			quotes = make(map[string]domain.TradingPair)
			byBase[p.BaseCurrency] = quotes
		}
		quotes[p.Quote] = p
	}
	copied := append([]domain.TradingPair(nil), pairs...)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byBase = byBase
	c.pairs = copied
	c.updatedAt = at
}

func (c *pairCache) get(base, quote string) (domain.TradingPair, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.byBase[base][quote]
	return p, ok
}

func (c *pairCache) all() ([]domain.TradingPair, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]domain.TradingPair(nil), c.pairs...), c.updatedAt
}
