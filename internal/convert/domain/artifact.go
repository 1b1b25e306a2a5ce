package domain

import "time"

// Artifact is an uploaded or generated file tracked by the lifecycle
// registry: identifier, owner, on-disk path, and expiry-relevant timestamps.
type Artifact struct {
	ID        string        `json:"id"`
	OwnerID   int64         `json:"owner_id"`
	Path      string        `json:"path"`
	Extension string        `json:"extension"`
	Size      int64         `json:"size"`
	Kind      FileKind      `json:"kind"`
	CreatedAt time.Time     `json:"created_at"`
	Meta      *ArtifactMeta `json:"meta,omitempty"`
}

// ArtifactMeta is optional derived metadata probed at upload time.
type ArtifactMeta struct {
	Width         int      `json:"width,omitempty"`
	Height        int      `json:"height,omitempty"`
	SheetCount    int      `json:"sheet_count,omitempty"`
	EntryCount    int      `json:"entry_count,omitempty"`
	SampleEntries []string `json:"sample_entries,omitempty"`
}

// ExpiredAt reports whether the artifact is older than maxAge at the given
// reference time.
func (a *Artifact) ExpiredAt(now time.Time, maxAge time.Duration) bool {
	return now.Sub(a.CreatedAt) > maxAge
}
