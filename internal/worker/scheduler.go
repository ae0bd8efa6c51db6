package worker

import (
	"context"
	"log"
	"log/slog"
	"time"

	"deliverysim/internal/redis"
	"deliverysim/internal/service/entity"

	"github.com/sourcegraph/conc"
)

// Workers lists the dashboard's background jobs. A nil Mirror disables the
// Redis flush.
type Workers struct {
	Aggregator     *entity.Aggregator
	Mirror         *redis.Mirror
	MirrorInterval time.Duration
	StatsInterval  time.Duration
	Logger         *slog.Logger
}

// StartAllWorkers starts every configured worker. Cancel ctx and Wait on the
// returned group to stop them.
func StartAllWorkers(ctx context.Context, w Workers) *conc.WaitGroup {
	log.Println("Starting all workers...")
	wg := conc.NewWaitGroup()

	if w.Mirror != nil {
		StartMirrorWorker(ctx, wg, w.Mirror, w.Aggregator, w.MirrorInterval)
	}
	if w.StatsInterval > 0 {
		StartStatsWorker(ctx, wg, w.Aggregator, w.StatsInterval, w.Logger)
	}

	log.Println("All workers started")
	return wg
}
