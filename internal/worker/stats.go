package worker

import (
	"context"
	"log/slog"
	"time"

	"deliverysim/internal/model"

	"github.com/sourcegraph/conc"
)

// CompanySource supplies the rollups to report
type CompanySource interface {
	Companies() []model.CompanyStats
}

// StartStatsWorker logs every company rollup each interval
func StartStatsWorker(ctx context.Context, wg *conc.WaitGroup, src CompanySource, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	wg.Go(func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, c := range src.Companies() {
					logger.Info("company stats",
						"company", c.Name,
						"active", c.ActiveCount,
						"completed", c.TotalCompleted,
						"payload", c.ActivePayloadWeight,
						"max_speed", c.MaxSpeed)
				}
			}
		}
	})
}
