package syncengine

import (
	"strings"

	"github.com/foldkeep/foldsync/internal/conflict"
	"github.com/foldkeep/foldsync/internal/model"
)

// baselineToLastKnown groups the flat FileState rows LoadBaseline returns
// into Phase 2's "path -> {local_hash?, cloud_hash?, share_hash?}" triple.
func baselineToLastKnown(states []model.FileState) map[string]model.LastKnown {
	out := make(map[string]model.LastKnown, len(states))

	for _, fs := range states {
		known := out[fs.Path]

		switch fs.Location {
		case model.LocationLocal:
			known.Local = fs.Hash
		case model.LocationCloud:
			known.Cloud = fs.Hash
		case model.LocationShare:
			known.Share = fs.Hash
		}

		out[fs.Path] = known
	}

	return out
}

// Classify implements Phase 3. current holds Phase 1's scan results, keyed
// by location (a missing key means that location was not configured for
// this profile, same convention Scan produces). baseline is Phase 2's
// LastKnown triple per path.
func Classify(current map[model.Location]map[string]model.FileMetadata, baseline map[string]model.LastKnown) *Plan {
	configured := configuredLocations(current)
	paths := unionPaths(current, baseline)

	plan := &Plan{TotalPaths: len(paths)}

	for path := range paths {
		plan.Operations = append(plan.Operations, classifyPath(path, configured, current, baseline[path]))
	}

	return plan
}

// configuredLocations returns the locations Scan actually ran, in the
// tie-break preference order (Local, then Cloud, then Share) spec.md §4.5
// names for picking a propagation source.
func configuredLocations(current map[model.Location]map[string]model.FileMetadata) []model.Location {
	var out []model.Location

	for _, loc := range model.AllLocations {
		if _, ok := current[loc]; ok {
			out = append(out, loc)
		}
	}

	return out
}

func unionPaths(current map[model.Location]map[string]model.FileMetadata, baseline map[string]model.LastKnown) map[string]struct{} {
	paths := make(map[string]struct{})

	for _, byPath := range current {
		for p := range byPath {
			paths[p] = struct{}{}
		}
	}

	for p := range baseline {
		paths[p] = struct{}{}
	}

	return paths
}

// observed looks up path's current metadata at loc, reporting whether it
// was actually observed in this scan (as opposed to a zero-value default).
func observed(current map[model.Location]map[string]model.FileMetadata, loc model.Location, path string) (model.FileMetadata, bool) {
	byPath, ok := current[loc]
	if !ok {
		return model.FileMetadata{}, false
	}

	meta, ok := byPath[path]
	return meta, ok
}

// changed implements Phase 3's changed(curr, known) predicate.
func changed(curr model.FileMetadata, currOK bool, knownHash string) bool {
	knownOK := knownHash != ""

	switch {
	case currOK && !knownOK:
		return true
	case !currOK && knownOK:
		return true
	case currOK && knownOK:
		return !strings.EqualFold(curr.Hash, knownHash)
	default:
		return false
	}
}

func classifyPath(path string, configured []model.Location, current map[model.Location]map[string]model.FileMetadata, known model.LastKnown) Operation {
	type observation struct {
		loc     model.Location
		meta    model.FileMetadata
		ok      bool
		changed bool
	}

	obs := make([]observation, 0, len(configured))
	changedCount := 0

	for _, loc := range configured {
		meta, ok := observed(current, loc, path)
		c := changed(meta, ok, known.HashFor(loc))

		if c {
			changedCount++
		}

		obs = append(obs, observation{loc: loc, meta: meta, ok: ok, changed: c})
	}

	switch {
	case changedCount == 0:
		return Operation{Path: path, Kind: OpNoAction}

	case changedCount == 1:
		var source observation

		for _, o := range obs {
			if o.changed {
				source = o
				break
			}
		}

		if source.ok {
			targets := make([]model.Location, 0, len(obs)-1)

			for _, o := range obs {
				if o.loc != source.loc {
					targets = append(targets, o.loc)
				}
			}

			return Operation{
				Path: path, Kind: OpUpload, Source: source.loc, Targets: targets,
				Hash: source.meta.Hash, Size: source.meta.Size, Modified: source.meta.Modified,
			}
		}

		// Source became absent: delete on whichever peers still have it.
		var targets []model.Location

		for _, o := range obs {
			if o.loc != source.loc && o.ok {
				targets = append(targets, o.loc)
			}
		}

		if len(targets) == 0 {
			return Operation{Path: path, Kind: OpNoAction}
		}

		return Operation{Path: path, Kind: OpDelete, Source: source.loc, Targets: targets}

	default:
		var local, cloudMeta, share model.FileMetadata

		for _, o := range obs {
			switch o.loc {
			case model.LocationLocal:
				local = o.meta
			case model.LocationCloud:
				cloudMeta = o.meta
			case model.LocationShare:
				share = o.meta
			}
		}

		if conflict.Detect(local.Hash, cloudMeta.Hash, share.Hash) {
			return Operation{Path: path, Kind: OpConflict, Local: local, Cloud: cloudMeta, Share: share}
		}

		// The changed sides agree (sync_to_missing): fill whichever
		// configured side is still absent from any present one, using
		// the tie-break order for the fill source.
		var sourceObs observation

		found := false

		for _, o := range obs {
			if o.ok {
				sourceObs = o
				found = true
				break
			}
		}

		if !found {
			return Operation{Path: path, Kind: OpNoAction}
		}

		// Only the genuinely absent sides need an Upload: a peer that's
		// already present and agrees on the hash needs no transfer, just
		// a baseline row, which commitStates writes from the raw scan
		// for every location that observed the path.
		var targets []model.Location

		for _, o := range obs {
			if o.loc != sourceObs.loc && !o.ok {
				targets = append(targets, o.loc)
			}
		}

		if len(targets) == 0 {
			return Operation{Path: path, Kind: OpNoAction}
		}

		return Operation{
			Path: path, Kind: OpUpload, Source: sourceObs.loc, Targets: targets,
			Hash: sourceObs.meta.Hash, Size: sourceObs.meta.Size, Modified: sourceObs.meta.Modified,
		}
	}
}
