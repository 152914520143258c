package cronjobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"go-beachwise/logger"
	"go-beachwise/metrics"
	"go-beachwise/processor"

	"go.uber.org/zap"
)

const rollupTimeout = 2 * time.Minute

// InitCronJobs schedules the heatmap rollup and starts the scheduler.
// The returned cron must be stopped on shutdown.
func InitCronJobs(store processor.HeatmapStore, schedule string, resolution int) (*cron.Cron, error) {
	logger.Log.Info("Starting cron jobs", zap.String("heatmapSchedule", schedule))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	// Heatmap: rebuild the H3 rollup from every stored cleanup
	_, err := c.AddFunc(schedule, func() {
		RunHeatmapRollup(store, resolution)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}

// RunHeatmapRollup runs one rollup and records its outcome.
func RunHeatmapRollup(store processor.HeatmapStore, resolution int) {
	ctx, cancel := context.WithTimeout(context.Background(), rollupTimeout)
	defer cancel()

	start := time.Now()
	h, err := processor.RollupHeatmap(ctx, store, resolution)
	metrics.HeatmapRollupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.HeatmapRollups.WithLabelValues("error").Inc()
		logger.Log.Error("CronJob: heatmap rollup failed", zap.Error(err))
		return
	}
	metrics.HeatmapRollups.WithLabelValues("ok").Inc()
	metrics.HeatmapCells.Set(float64(len(h.Cells)))
}
