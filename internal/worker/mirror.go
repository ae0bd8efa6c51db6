package worker

import (
	"context"
	"log"
	"time"

	"deliverysim/internal/redis"

	"github.com/sourcegraph/conc"
)

// StartMirrorWorker flushes changed entities to Redis every interval until ctx
// is done, with one last flush on the way out
func StartMirrorWorker(ctx context.Context, wg *conc.WaitGroup, mirror *redis.Mirror, src redis.EntitySource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	wg.Go(func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				if _, err := mirror.Flush(flushCtx, src); err != nil {
					log.Printf("Mirror worker: final flush failed: %v", err)
				}
				cancel()
				return
			case <-ticker.C:
				if _, err := mirror.Flush(ctx, src); err != nil {
					log.Printf("Mirror worker: %v", err)
				}
			}
		}
	})

	log.Println("Mirror worker started with interval:", interval)
}
