package jobs

import (
	"context"
	"time"

	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// WatchExpired sweeps terminal jobs older than maxAge every interval until
// ctx is done. onRemoved, when set, sees each evicted job.
func WatchExpired(ctx context.Context, m *Manager, interval, maxAge time.Duration, onRemoved func(entity.Job)) {
	if interval <= 0 || maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, j := range m.Sweep(maxAge) {
				if onRemoved != nil {
					onRemoved(j)
				}
			}
		}
	}
}
