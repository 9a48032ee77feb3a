package metrics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordStorePoolMetrics updates store connection pool metrics.
func RecordStorePoolMetrics(pool *pgxpool.Pool) {
	stats := pool.Stat()

	StorePoolConnections.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
	StorePoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
	StorePoolConnections.WithLabelValues("max").Set(float64(stats.MaxConns()))
}

// CollectStorePoolMetrics records pool metrics every interval until ctx is done.
func CollectStorePoolMetrics(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	RecordStorePoolMetrics(pool)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			RecordStorePoolMetrics(pool)
		}
	}
}
