package types

import "time"

// UserProfile is the per-user document stored under users/{uid}.
type UserProfile struct {
	Email               string    `firestore:"email" json:"email"`
	DisplayName         string    `firestore:"displayName,omitempty" json:"displayName,omitempty"`
	CreatedAt           time.Time `firestore:"createdAt" json:"createdAt"`
	CleanupsLogged      int       `firestore:"cleanupsLogged" json:"cleanupsLogged"`
	TrashItemsCollected int       `firestore:"trashItemsCollected" json:"trashItemsCollected"`
}

// Identity is the signed-in user a session belongs to.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}
