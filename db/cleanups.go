package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go-beachwise/logger"
	"go-beachwise/types"

	"go.uber.org/zap"
)

// SaveCleanup writes the cleanup and bumps the profile counters in one transaction.
func (s *Store) SaveCleanup(ctx context.Context, c types.Cleanup) error {
	userRef := s.client.Collection(usersCollection).Doc(c.UID)
	cleanupRef := userRef.Collection(cleanupsCollection).Doc(c.ID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// 1. The cleanup itself, never overwritten
		if err := tx.Create(cleanupRef, c); err != nil {
			return fmt.Errorf("failed to create cleanup doc %s: %w", c.ID, err)
		}

		// 2. Profile counters
		counters := map[string]interface{}{
			"cleanupsLogged":      firestore.Increment(1),
			"trashItemsCollected": firestore.Increment(len(c.Items)),
		}
		if err := tx.Set(userRef, counters, firestore.MergeAll); err != nil {
			return fmt.Errorf("failed to update counters for %s: %w", c.UID, err)
		}
		return nil
	})
	if err != nil {
		logger.Log.Error("Cleanup transaction failed", zap.String("uid", c.UID), zap.Error(err))
		return err
	}
	return nil
}

// ListCleanups returns the newest cleanups of one user.
func (s *Store) ListCleanups(ctx context.Context, uid string, limit int) ([]types.Cleanup, error) {
	docs, err := s.client.Collection(usersCollection).Doc(uid).Collection(cleanupsCollection).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing cleanups for %s: %w", uid, err)
	}

	cleanups := make([]types.Cleanup, 0, len(docs))
	for _, doc := range docs {
		var c types.Cleanup
		if err := doc.DataTo(&c); err != nil {
			return nil, err
		}
		c.ID = doc.Ref.ID
		cleanups = append(cleanups, c)
	}
	return cleanups, nil
}

// AllCleanupItems streams every item of every stored cleanup, across all users.
func (s *Store) AllCleanupItems(ctx context.Context) ([]types.TrashItem, error) {
	iter := s.client.CollectionGroup(cleanupsCollection).Documents(ctx)
	defer iter.Stop()

	var items []types.TrashItem
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating cleanups: %w", err)
		}

		var c types.Cleanup
		if err := doc.DataTo(&c); err != nil {
			logger.Log.Warn("Skipping malformed cleanup", zap.String("path", doc.Ref.Path), zap.Error(err))
			continue
		}
		items = append(items, c.Items...)
	}
	return items, nil
}

func (s *Store) SaveHeatmap(ctx context.Context, h types.Heatmap) error {
	_, err := s.client.Collection(heatmapsCollection).Doc(latestHeatmapDoc).Set(ctx, h)
	if err != nil {
		return fmt.Errorf("failed to save heatmap: %w", err)
	}
	return nil
}

// GetHeatmap returns nil until the first rollup ran.
func (s *Store) GetHeatmap(ctx context.Context) (*types.Heatmap, error) {
	doc, err := s.client.Collection(heatmapsCollection).Doc(latestHeatmapDoc).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting heatmap: %w", err)
	}

	var h types.Heatmap
	if err := doc.DataTo(&h); err != nil {
		return nil, err
	}
	return &h, nil
}
