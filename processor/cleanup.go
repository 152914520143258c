package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"go-beachwise/logger"
	"go-beachwise/session"
	"go-beachwise/types"

	"go.uber.org/zap"
)

var ErrNothingToSubmit = errors.New("no trash logged since the last cleanup")

type CleanupStore interface {
	SaveCleanup(ctx context.Context, c types.Cleanup) error
}

type Summarizer interface {
	Summarize(ctx context.Context, imageRefs []string) (types.SummarizeCleanupOutput, error)
}

type PlaceNamer interface {
	PlaceName(ctx context.Context, loc types.Location) (string, error)
}

type ProfileEnsurer interface {
	GetOrCreate(ctx context.Context, identity types.Identity) (*types.UserProfile, error)
}

// CleanupProcessor turns the items logged in a session into a stored cleanup.
type CleanupProcessor struct {
	store      CleanupStore
	summarizer Summarizer
	profiles   ProfileEnsurer
	// places is optional.
	places PlaceNamer
	now    func() time.Time
}

func NewCleanupProcessor(store CleanupStore, summarizer Summarizer, profiles ProfileEnsurer, places PlaceNamer) *CleanupProcessor {
	return &CleanupProcessor{
		store:      store,
		summarizer: summarizer,
		profiles:   profiles,
		places:     places,
		now:        time.Now,
	}
}

// Submit stores everything logged since the previous submission as one cleanup.
// Nothing is marked submitted unless the cleanup was saved.
func (p *CleanupProcessor) Submit(ctx context.Context, sc *session.Context) (types.Cleanup, error) {
	log := logger.Log.With(zap.String("uid", sc.Identity.UID))

	// 1. Collect pending items, oldest first
	pending := sc.Pending()
	if len(pending) == 0 {
		return types.Cleanup{}, ErrNothingToSubmit
	}
	items := make([]types.TrashItem, len(pending))
	refs := make([]string, len(pending))
	for i, item := range pending {
		items[len(pending)-1-i] = item
		refs[len(pending)-1-i] = item.ImageRef
	}

	// 2. Summarize
	summary, err := p.summarizer.Summarize(ctx, refs)
	if err != nil {
		return types.Cleanup{}, fmt.Errorf("summarizing cleanup: %w", err)
	}

	// 3. Name the place after the newest located item, best effort
	placeName := ""
	if p.places != nil {
		if loc := newestLocation(pending); loc != nil {
			if placeName, err = p.places.PlaceName(ctx, *loc); err != nil {
				log.Warn("Could not name cleanup location", zap.Error(err))
				placeName = ""
			}
		}
	}

	// 4. The counters live on the profile, make sure it exists
	if _, err := p.profiles.GetOrCreate(ctx, sc.Identity); err != nil {
		return types.Cleanup{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return types.Cleanup{}, fmt.Errorf("generating cleanup id: %w", err)
	}
	cleanup := types.Cleanup{
		ID:        id.String(),
		UID:       sc.Identity.UID,
		Items:     items,
		ImageRefs: refs,
		Summary:   summary.Summary,
		PlaceName: placeName,
		CreatedAt: p.now().UTC(),
	}

	// 5. Save and advance the session watermark
	if err := p.store.SaveCleanup(ctx, cleanup); err != nil {
		return types.Cleanup{}, fmt.Errorf("saving cleanup: %w", err)
	}
	sc.MarkSubmitted(len(pending))

	log.Info("Cleanup submitted", zap.String("cleanup", cleanup.ID), zap.Int("items", len(items)))
	return cleanup, nil
}

func newestLocation(newestFirst []types.TrashItem) *types.Location {
	for _, item := range newestFirst {
		if item.Location != nil {
			return item.Location
		}
	}
	return nil
}
