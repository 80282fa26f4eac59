package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

const (
	DefaultCacheRetention = 30 * 24 * time.Hour
	cachePruneInterval    = 6 * time.Hour
)

// CachePruner deletes card cache rows that have not been refreshed within
// the retention window. Stale rows past CardCacheFreshness but inside the
// retention are kept; they are simply refetched on the next lookup.
type CachePruner struct {
	db        *gorm.DB
	logger    *zap.Logger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time

	mu        sync.RWMutex
	lastPrune time.Time
	lastCount int64
}

func NewCachePruner(db *gorm.DB, retention time.Duration, logger *zap.Logger) *CachePruner {
	if retention <= 0 {
		retention = DefaultCacheRetention
	}
	return &CachePruner{
		db:        db,
		logger:    logger,
		retention: retention,
		interval:  cachePruneInterval,
		now:       time.Now,
	}
}

// Start prunes once, then on every interval until ctx is cancelled
func (p *CachePruner) Start(ctx context.Context) {
	p.logger.Info("cache pruner started", zap.Duration("retention", p.retention), zap.Duration("interval", p.interval))
	p.pruneAndLog(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("cache pruner stopping")
			return
		case <-ticker.C:
			p.pruneAndLog(ctx)
		}
	}
}

func (p *CachePruner) pruneAndLog(ctx context.Context) {
	n, err := p.Prune(ctx)
	if err != nil {
		p.logger.Warn("cache prune failed", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Info("pruned card cache", zap.Int64("rows", n))
	}
}

// Prune deletes rows last updated before now minus the retention
func (p *CachePruner) Prune(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	result := p.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&models.CacheCard{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune card cache: %w", result.Error)
	}

	p.mu.Lock()
	p.lastPrune = p.now()
	p.lastCount = result.RowsAffected
	p.mu.Unlock()
	return result.RowsAffected, nil
}

// LastRun reports when Prune last succeeded and how many rows it removed
func (p *CachePruner) LastRun() (time.Time, int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPrune, p.lastCount
}
