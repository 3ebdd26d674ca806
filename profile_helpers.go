package main

import (
	"context"
	"fmt"

	"github.com/foldkeep/foldsync/internal/model"
	"github.com/foldkeep/foldsync/internal/store"
)

// getOrCreateProfile returns the named profile, creating an empty one
// (no locations configured yet) if it doesn't exist. Used by config.set
// and config.get, which is how a profile first comes into existence.
func getOrCreateProfile(ctx context.Context, s *store.Store, name string) (model.Profile, error) {
	p, err := s.GetProfileByName(ctx, name)
	if err != nil {
		return model.Profile{}, err
	}

	if p != nil {
		return *p, nil
	}

	return s.CreateProfile(ctx, model.Profile{Name: name})
}

// mustExistingProfile returns the named profile, or an actionable error if
// config.set hasn't been run for it yet.
func mustExistingProfile(ctx context.Context, s *store.Store, name string) (model.Profile, error) {
	p, err := s.GetProfileByName(ctx, name)
	if err != nil {
		return model.Profile{}, err
	}

	if p == nil {
		return model.Profile{}, fmt.Errorf("profile %q is not configured; run 'foldsync config set' first", name)
	}

	return *p, nil
}
