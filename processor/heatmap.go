package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-beachwise/heatmap"
	"go-beachwise/logger"
	"go-beachwise/types"
)

type HeatmapStore interface {
	AllCleanupItems(ctx context.Context) ([]types.TrashItem, error)
	SaveHeatmap(ctx context.Context, h types.Heatmap) error
}

// RollupHeatmap rebuilds heatmaps/latest from every stored cleanup.
func RollupHeatmap(ctx context.Context, store HeatmapStore, resolution int) (types.Heatmap, error) {
	// Helper function to append a formatted log message.
	var logBuilder strings.Builder
	addLog := func(format string, args ...interface{}) {
		logBuilder.WriteString(fmt.Sprintf(format, args...))
		logBuilder.WriteString("\n")
	}
	defer func() { logger.Log.Info(logBuilder.String()) }()

	start := time.Now()
	addLog("Running heatmap rollup at resolution %d", resolution)

	items, err := store.AllCleanupItems(ctx)
	if err != nil {
		addLog("Error fetching cleanup items: %v", err)
		return types.Heatmap{}, err
	}
	addLog("Fetched %d items", len(items))

	h, err := heatmap.Aggregate(items, resolution, time.Now())
	if err != nil {
		addLog("Error aggregating items: %v", err)
		return types.Heatmap{}, err
	}
	addLog("Aggregated %d located items into %d cells", h.ItemCount, len(h.Cells))

	if err := store.SaveHeatmap(ctx, h); err != nil {
		addLog("Error saving heatmap: %v", err)
		return types.Heatmap{}, err
	}

	addLog("Heatmap rollup done in %v", time.Since(start))
	return h, nil
}
