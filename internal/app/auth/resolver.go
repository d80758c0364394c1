package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/R3E-Network/vybe_engagement/internal/app/domain/profile"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

// Directory answers whether an actor id is known locally.
type Directory interface {
	ActorExists(ctx context.Context, id string) (bool, error)
}

// Resolver authenticates bearer tokens and mirrors each authenticated actor
// into the profile store so later lookups by id succeed.
type Resolver struct {
	verifier TokenVerifier
	profiles storage.ProfileStore
	log      *logger.Logger
}

var _ Directory = (*Resolver)(nil)

// NewResolver constructs a Resolver.
func NewResolver(verifier TokenVerifier, profiles storage.ProfileStore, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Resolver{verifier: verifier, profiles: profiles, log: log}
}

// Authenticate verifies token and records the actor's profile.
func (r *Resolver) Authenticate(ctx context.Context, token string) (Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Actor{}, apperrors.ErrNotAuthenticated
	}
	actor, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return Actor{}, err
	}
	if err := r.EnsureProfile(ctx, actor); err != nil {
		return Actor{}, err
	}
	return actor, nil
}

// EnsureProfile upserts the local profile row for actor. An empty username
// keeps whatever name is already stored.
func (r *Resolver) EnsureProfile(ctx context.Context, actor Actor) error {
	if actor.ID == "" {
		return apperrors.ErrNotAuthenticated
	}
	if _, err := r.profiles.UpsertProfile(ctx, profile.Profile{ID: actor.ID, Username: actor.Username}); err != nil {
		return translate(fmt.Errorf("ensure profile %s: %w", actor.ID, err))
	}
	return nil
}

// Profile returns the local record for id.
func (r *Resolver) Profile(ctx context.Context, id string) (profile.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return profile.Profile{}, apperrors.InvalidInput("id", "required")
	}
	p, err := r.profiles.GetProfile(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return profile.Profile{}, apperrors.NotFound("profile", id)
	}
	if err != nil {
		return profile.Profile{}, translate(fmt.Errorf("get profile %s: %w", id, err))
	}
	return p, nil
}

// ActorExists reports whether id has a local profile.
func (r *Resolver) ActorExists(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	ok, err := r.profiles.ProfileExists(ctx, id)
	if err != nil {
		return false, translate(fmt.Errorf("lookup actor %s: %w", id, err))
	}
	return ok, nil
}

func translate(err error) error {
	if errors.Is(err, storage.ErrUnavailable) {
		return apperrors.StoreUnavailable(err)
	}
	return err
}
