package cache

import (
	"sync"
	"time"

	"github.com/yardbook/capacity-service/internal/models"
)

// CatalogCache holds the slow-changing configuration half of an availability
// snapshot: product types and supplier rules. Booked quantities are never
// cached — they must be read fresh on every query. Admin writes call
// Invalidate.
type CatalogCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	loadedAt time.Time
	products map[int]models.ProductType
	rules    []models.SupplierRule
}

func NewCatalogCache(ttl time.Duration) *CatalogCache {
	return &CatalogCache{ttl: ttl}
}

// Get returns the cached catalog, or ok=false when empty or expired.
func (c *CatalogCache) Get() (map[int]models.ProductType, []models.SupplierRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.products == nil || time.Since(c.loadedAt) > c.ttl {
		return nil, nil, false
	}
	return c.products, c.rules, true
}

func (c *CatalogCache) Set(products map[int]models.ProductType, rules []models.SupplierRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = products
	c.rules = rules
	c.loadedAt = time.Now()
}

func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = nil
	c.rules = nil
}
