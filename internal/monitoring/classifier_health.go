package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_INTERVAL = 15 * time.Second

// HealthChecker is implemented by classifier backends that live behind a
// network call.
type HealthChecker interface {
	AnalyzerHealthCheck(ctx context.Context) bool
}

// MonitorClassifierHealth polls checker every interval and stores the
// outcome in healthy until ctx ends.
func MonitorClassifierHealth(ctx context.Context, checker HealthChecker, healthy *atomic.Bool, interval time.Duration) {
	if interval <= 0 {
		interval = HEALTHCHECK_INTERVAL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			isHealthy := checker.AnalyzerHealthCheck(checkCtx)
			cancel()

			if healthy.Swap(isHealthy) != isHealthy {
				if isHealthy {
					slog.Info("[HealthCheck] Classifier recovered")
				} else {
					slog.Warn("[HealthCheck] Classifier is unhealthy")
				}
			}
		}
	}
}
