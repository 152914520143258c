package types

// Location is a single coordinate pair. It is attached to a trash item at capture time
// and never updated afterwards.
type Location struct {
	Lat float64 `firestore:"lat" json:"lat"`
	Lng float64 `firestore:"lng" json:"lng"`
}
