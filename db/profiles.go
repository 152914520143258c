package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go-beachwise/profile"
	"go-beachwise/types"
)

// GetProfile returns nil when users/{uid} does not exist.
func (s *Store) GetProfile(ctx context.Context, uid string) (*types.UserProfile, error) {
	doc, err := s.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting profile doc for %s: %w", uid, err)
	}

	var p types.UserProfile
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("error decoding profile doc for %s: %w", uid, err)
	}
	return &p, nil
}

// CreateProfile fails with profile.ErrProfileExists if the document is already there.
func (s *Store) CreateProfile(ctx context.Context, uid string, p types.UserProfile) error {
	_, err := s.client.Collection(usersCollection).Doc(uid).Create(ctx, p)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return profile.ErrProfileExists
		}
		return fmt.Errorf("failed to create profile doc for %s: %w", uid, err)
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, uid string, fields map[string]any) error {
	_, err := s.client.Collection(usersCollection).Doc(uid).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update profile doc for %s: %w", uid, err)
	}
	return nil
}
