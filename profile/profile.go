package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-beachwise/logger"
	"go-beachwise/types"

	"go.uber.org/zap"
)

var (
	ErrProfileExists    = errors.New("profile already exists")
	ErrBlankDisplayName = errors.New("display name cannot be blank")
	ErrLongDisplayName  = fmt.Errorf("display name cannot be longer than %d characters", maxDisplayNameLength)
)

const maxDisplayNameLength = 64

// Store is the document database holding one profile per user id.
type Store interface {
	// GetProfile returns nil and no error when the user has no profile yet.
	GetProfile(ctx context.Context, uid string) (*types.UserProfile, error)
	// CreateProfile fails with ErrProfileExists when uid already has a profile.
	CreateProfile(ctx context.Context, uid string, p types.UserProfile) error
	// UpdateProfile merges fields into the existing document.
	UpdateProfile(ctx context.Context, uid string, fields map[string]any) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// DisplayNameFromEmail is the local part of the email, or "User".
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local = strings.TrimSpace(local); local == "" {
		return "User"
	}
	return local
}

func (s *Service) newProfile(identity types.Identity) types.UserProfile {
	return types.UserProfile{
		Email:       identity.Email,
		DisplayName: DisplayNameFromEmail(identity.Email),
		CreatedAt:   s.now().UTC(),
	}
}

// CreateProfile writes the initial profile right after signup.
func (s *Service) CreateProfile(ctx context.Context, identity types.Identity) (*types.UserProfile, error) {
	p := s.newProfile(identity)
	if err := s.store.CreateProfile(ctx, identity.UID, p); err != nil {
		if errors.Is(err, ErrProfileExists) {
			return s.GetOrCreate(ctx, identity)
		}
		return nil, fmt.Errorf("creating profile for %s: %w", identity.UID, err)
	}
	return &p, nil
}

// GetOrCreate returns the profile of identity and creates it when it is missing.
// Concurrent callers end up with the same single document.
func (s *Service) GetOrCreate(ctx context.Context, identity types.Identity) (*types.UserProfile, error) {
	// 1. Read the existing profile
	p, err := s.store.GetProfile(ctx, identity.UID)
	if err != nil {
		return nil, fmt.Errorf("reading profile for %s: %w", identity.UID, err)
	}
	if p != nil {
		return p, nil
	}

	// 2. Create it; losing a race to another request is fine
	logger.Log.Info("Profile missing, creating it", zap.String("uid", identity.UID))
	created := s.newProfile(identity)
	err = s.store.CreateProfile(ctx, identity.UID, created)
	if err == nil {
		return &created, nil
	}
	if !errors.Is(err, ErrProfileExists) {
		return nil, fmt.Errorf("creating profile for %s: %w", identity.UID, err)
	}

	// 3. Someone else created it first
	p, err = s.store.GetProfile(ctx, identity.UID)
	if err != nil {
		return nil, fmt.Errorf("reading profile for %s: %w", identity.UID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("profile for %s vanished after creation", identity.UID)
	}
	return p, nil
}

// UpdateDisplayName trims name and merges it into the profile.
func (s *Service) UpdateDisplayName(ctx context.Context, identity types.Identity, name string) (*types.UserProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBlankDisplayName
	}
	if len([]rune(name)) > maxDisplayNameLength {
		return nil, ErrLongDisplayName
	}

	// Make sure the document exists so the merge does not create a partial profile.
	p, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateProfile(ctx, identity.UID, map[string]any{"displayName": name}); err != nil {
		return nil, fmt.Errorf("updating display name for %s: %w", identity.UID, err)
	}
	p.DisplayName = name
	return p, nil
}
