package types

import "time"

// Cleanup groups the trash items a user submitted together, stored under
// users/{uid}/cleanups/{id}.
type Cleanup struct {
	ID        string      `firestore:"-" json:"id"`
	UID       string      `firestore:"uid" json:"uid"`
	Items     []TrashItem `firestore:"items" json:"items"`
	ImageRefs []string    `firestore:"imageRefs" json:"imageRefs"`
	Summary   string      `firestore:"summary" json:"summary"`
	PlaceName string      `firestore:"placeName,omitempty" json:"placeName,omitempty"`
	CreatedAt time.Time   `firestore:"createdAt" json:"createdAt"`
}

// HeatmapCell is the number of trash items logged inside one H3 cell.
type HeatmapCell struct {
	Cell         string  `firestore:"cell" json:"cell"`
	Count        int     `firestore:"count" json:"count"`
	Lat          float64 `firestore:"lat" json:"lat"`
	Lng          float64 `firestore:"lng" json:"lng"`
	TopTrashType string  `firestore:"topTrashType" json:"topTrashType"`
}

type Heatmap struct {
	Resolution int           `firestore:"resolution" json:"resolution"`
	Cells      []HeatmapCell `firestore:"cells" json:"cells"`
	ItemCount  int           `firestore:"itemCount" json:"itemCount"`
	UpdatedAt  time.Time     `firestore:"updatedAt" json:"updatedAt"`
}
