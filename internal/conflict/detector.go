// Package conflict implements the pure detection rule used by the sync
// engine's classify phase: a conflict exists when two or more locations
// changed the same path to different content since the last baseline.
package conflict

import "github.com/foldkeep/foldsync/internal/model"

// Detect compares up to three current hashes (one per location, empty
// string meaning "absent or unknown") and reports a conflict iff at least
// two distinct non-empty hashes appear among them. A single non-empty
// hash, or several locations agreeing on the same hash, is not a
// conflict — it is ordinary propagation.
func Detect(local, cloud, share string) bool {
	seen := make(map[string]struct{}, 3)

	for _, h := range [...]string{local, cloud, share} {
		if h == "" {
			continue
		}

		seen[h] = struct{}{}
	}

	return len(seen) >= 2
}

// BuildConflict assembles a model.Conflict from the three locations'
// current observations, for persistence once Detect has returned true.
func BuildConflict(profileID int64, path string, local, cloud, share model.FileMetadata) model.Conflict {
	c := model.Conflict{ProfileID: profileID, Path: path}

	if local.Hash != "" {
		c.LocalHash = local.Hash
		c.LocalSize = local.Size
		c.LocalMod = local.Modified
	}

	if cloud.Hash != "" {
		c.CloudHash = cloud.Hash
		c.CloudSize = cloud.Size
		c.CloudMod = cloud.Modified
	}

	if share.Hash != "" {
		c.ShareHash = share.Hash
		c.ShareSize = share.Size
		c.ShareMod = share.Modified
	}

	return c
}
