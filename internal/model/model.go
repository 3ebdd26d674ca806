// Package model holds the data types shared across every component:
// Location, Profile, FileMetadata, FileState, Conflict, and the OAuth
// credential/token shapes. It is a leaf package (stdlib-only) so that
// provider/, store/, oauth/, and syncengine/ can all import it without
// creating a cycle — the same role the teacher's tokenfile package plays.
package model

import "time"

// Location tags one of the three storage roles. The string encoding is
// stable and used in persistence — never renumber or rename these.
type Location string

const (
	LocationLocal Location = "local"
	LocationCloud Location = "gdrive"
	LocationShare Location = "smb"
)

// String implements fmt.Stringer.
func (l Location) String() string {
	return string(l)
}

// Valid reports whether l is one of the three known locations.
func (l Location) Valid() bool {
	switch l {
	case LocationLocal, LocationCloud, LocationShare:
		return true
	default:
		return false
	}
}

// AllLocations lists every location in the engine's tie-break preference
// order: Local, then Cloud, then Share. Several components (the Planner's
// propagation-source rule, test fixtures) iterate in this exact order.
var AllLocations = []Location{LocationLocal, LocationCloud, LocationShare}

// FileStatus is the status tag stored on a FileState row.
type FileStatus string

const (
	StatusSynced   FileStatus = "synced"
	StatusModified FileStatus = "modified"
	StatusDeleted  FileStatus = "deleted"
	StatusConflict FileStatus = "conflict"
	StatusPending  FileStatus = "pending"
)

// ConflictResolution is one of the four resolutions accepted by sync.resolve.
type ConflictResolution string

const (
	ResolutionKeepLocal ConflictResolution = "keep_local"
	ResolutionKeepCloud ConflictResolution = "keep_cloud"
	ResolutionKeepShare ConflictResolution = "keep_share"
	ResolutionKeepBoth  ConflictResolution = "keep_both"
)

// Profile is the unit of sync configuration: one local root plus zero or
// more remote roots. Exactly one Engine run is allowed per profile at a
// time (enforced by syncengine/lock.go, not by this type).
type Profile struct {
	ID            int64
	Name          string
	LocalRoot     string
	CloudFolderID string // empty if the Cloud location is not configured
	SharePath     string // empty if the Share location is not configured
	CreatedAt     time.Time
	LastSyncAt    *time.Time
}

// Configured reports whether the given location has a root configured on
// this profile, i.e. whether that location's root field is non-empty.
func (p *Profile) Configured(loc Location) bool {
	switch loc {
	case LocationLocal:
		return p.LocalRoot != ""
	case LocationCloud:
		return p.CloudFolderID != ""
	case LocationShare:
		return p.SharePath != ""
	default:
		return false
	}
}

// FileMetadata is an observation, not a record: what a Provider reports
// about one path right now. Path is always forward-slash, relative to the
// provider's configured root, non-empty, and free of ".." components.
type FileMetadata struct {
	Path     string
	Size     int64
	Modified time.Time // UTC
	Hash     string    // lowercase hex; empty means "unknown"
}

// FileState is a persisted (profile, path, location) tuple — the baseline's
// unit of storage. Uniqueness invariant: (ProfileID, Path, Location) is
// unique; enforced by a UNIQUE constraint in the store's schema.
type FileState struct {
	ProfileID int64
	Path      string
	Location  Location
	Hash      string
	Size      int64
	Modified  time.Time
	SyncedAt  time.Time
	Status    FileStatus
}

// LastKnown is the per-path triple of previously-observed hashes the
// Conflict Detector and Planner compare current state against. A zero
// value (empty string) means "absent in the baseline for that location".
type LastKnown struct {
	Local string
	Cloud string
	Share string
}

// HashFor returns the last-known hash for the given location.
func (k LastKnown) HashFor(loc Location) string {
	switch loc {
	case LocationLocal:
		return k.Local
	case LocationCloud:
		return k.Cloud
	case LocationShare:
		return k.Share
	default:
		return ""
	}
}

// Conflict is a record emitted when the detector finds divergent changes.
type Conflict struct {
	ID           string
	ProfileID    int64
	Path         string
	DetectedAt   time.Time
	Resolved     bool
	Resolution   ConflictResolution
	LocalHash    string
	LocalSize    int64
	LocalMod     time.Time
	CloudHash    string
	CloudSize    int64
	CloudMod     time.Time
	ShareHash    string
	ShareSize    int64
	ShareMod     time.Time
}

// OAuthTokens is the (access_token, refresh_token?, expires_at?) triple
// persisted in the OS keychain — never written to disk in cleartext.
type OAuthTokens struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// ExpiringSoon reports whether the token is unset or expires within the
// given window — the 5-minute refresh threshold from spec.md §4.3. A token
// with no expiry is never reported as expiring.
func (t *OAuthTokens) ExpiringSoon(window time.Duration, now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}

	if t.ExpiresAt == nil {
		return false
	}

	return t.ExpiresAt.Sub(now) <= window
}

// OAuthClientCredentials is (client_id, client_secret), keychain-stored,
// falling back to build-time embedded defaults if absent.
type OAuthClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Sync run statuses recorded in SyncHistory.Status.
const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
	SyncStatusAborted   = "aborted"
)

// SyncHistory is one row per completed (or aborted) sync run, named in
// spec.md §6's on-disk layout but not otherwise specified there.
type SyncHistory struct {
	ID           int64
	ProfileID    int64
	StartedAt    time.Time
	CompletedAt  *time.Time
	Status       string
	FilesSynced  int
	FilesFailed  int
	ErrorMessage string
}

// FileInfo is the shape returned by sync.files: the 50 most recent local
// files by modified time, descending.
type FileInfo struct {
	Path     string
	Size     int64
	Modified time.Time
	Status   FileStatus
}
