package types

import "time"

// ClassifyTrashInput is the request contract of the trash classifier.
type ClassifyTrashInput struct {
	// data:<mimetype>;base64,<encoded_data>
	PhotoDataURI string `json:"photoDataUri" binding:"required"`
}

// ClassifyTrashOutput is the response contract of the trash classifier.
type ClassifyTrashOutput struct {
	TrashType  string  `json:"trashType" firestore:"trashType"`
	Confidence float64 `json:"confidence" firestore:"confidence"`
}

// TrashItem is one classified photo logged during a session.
type TrashItem struct {
	ID         string    `json:"id" firestore:"id"`
	ImageRef   string    `json:"imageRef" firestore:"imageRef"`
	TrashType  string    `json:"trashType" firestore:"trashType"`
	Confidence float64   `json:"confidence" firestore:"confidence"`
	Location   *Location `json:"location,omitempty" firestore:"location,omitempty"`
	LoggedAt   time.Time `json:"loggedAt" firestore:"loggedAt"`
}

type SummarizeCleanupInput struct {
	ImageURLs []string `json:"imageUrls"`
}

type SummarizeCleanupOutput struct {
	Summary string `json:"summary"`
}
