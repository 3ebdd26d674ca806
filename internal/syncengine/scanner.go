package syncengine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/foldkeep/foldsync/internal/model"
	"github.com/foldkeep/foldsync/internal/provider"
)

// Scan runs Phase 1: list_files("") on every configured Provider
// concurrently and joins the results into one map keyed by Location. A
// Location absent from providers contributes no entry at all — Classify
// treats that as "this location was not configured", not as "empty".
func Scan(ctx context.Context, providers map[model.Location]provider.Provider) (map[model.Location]map[string]model.FileMetadata, error) {
	var mu sync.Mutex

	results := make(map[model.Location]map[string]model.FileMetadata, len(providers))

	g, gctx := errgroup.WithContext(ctx)

	for loc, p := range providers {
		loc, p := loc, p

		g.Go(func() error {
			files, err := p.ListFiles(gctx, "")
			if err != nil {
				return fmt.Errorf("syncengine: scanning %s: %w", p.Name(), err)
			}

			byPath := make(map[string]model.FileMetadata, len(files))
			for _, f := range files {
				byPath[f.Path] = f
			}

			mu.Lock()
			results[loc] = byPath
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
