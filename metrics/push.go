package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// PushMetrics pushes collected metrics to a push gateway at url every period
// until ctx is done.
func PushMetrics(ctx context.Context, logger *zap.Logger, url string, period time.Duration, instance string) {
	pusher := push.New(url, "researchsync").
		Gatherer(prometheus.DefaultGatherer).
		Grouping("instance", instance)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pusher.PushContext(ctx); err != nil {
				logger.Warn("failed to push metrics", zap.Error(err))
			}
		}
	}
}
