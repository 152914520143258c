// Package heatmap buckets logged trash into H3 cells.
package heatmap

import (
	"fmt"
	"sort"
	"time"

	"github.com/uber/h3-go/v4"

	"go-beachwise/types"
)

type bucket struct {
	cell   h3.Cell
	count  int
	sumLat float64
	sumLng float64
	kinds  map[string]int
}

// Aggregate counts the located items per H3 cell at resolution. Items without a
// location are skipped. Cells are sorted by count, busiest first.
func Aggregate(items []types.TrashItem, resolution int, now time.Time) (types.Heatmap, error) {
	buckets := make(map[h3.Cell]*bucket)
	located := 0

	for _, item := range items {
		if item.Location == nil {
			continue
		}

		cell, err := h3.LatLngToCell(h3.NewLatLng(item.Location.Lat, item.Location.Lng), resolution)
		if err != nil {
			return types.Heatmap{}, fmt.Errorf("error converting item %s to h3 cell at res %d: %w", item.ID, resolution, err)
		}

		b, ok := buckets[cell]
		if !ok {
			b = &bucket{cell: cell, kinds: make(map[string]int)}
			buckets[cell] = b
		}
		b.count++
		b.sumLat += item.Location.Lat
		b.sumLng += item.Location.Lng
		b.kinds[item.TrashType]++
		located++
	}

	cells := make([]types.HeatmapCell, 0, len(buckets))
	for _, b := range buckets {
		cells = append(cells, types.HeatmapCell{
			Cell:         b.cell.String(),
			Count:        b.count,
			Lat:          b.sumLat / float64(b.count),
			Lng:          b.sumLng / float64(b.count),
			TopTrashType: topKind(b.kinds),
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Count != cells[j].Count {
			return cells[i].Count > cells[j].Count
		}
		return cells[i].Cell < cells[j].Cell
	})

	return types.Heatmap{
		Resolution: resolution,
		Cells:      cells,
		ItemCount:  located,
		UpdatedAt:  now.UTC(),
	}, nil
}

// Ties go to the alphabetically first kind so the result is stable.
func topKind(kinds map[string]int) string {
	top, best := "", 0
	for k, n := range kinds {
		if n > best || (n == best && k < top) {
			top, best = k, n
		}
	}
	return top
}
