package domain

import "time"

// SourceFile is one manual PDF listed by a manual source.
type SourceFile struct {
	// Name is the file name as shown by the source.
	Name string

	// ModelID is the printer model derived from the file name.
	ModelID string

	// Hash is the MD5 hex digest of the file content.
	Hash string

	// Ref is the source-specific handle used to fetch the content
	// (a path for the filesystem, a file ID for Drive).
	Ref string
}

// ModelSource records which source last indexed a model.
type ModelSource struct {
	// Source names the manual source that indexed the model.
	Source string

	// EmptyHash is the hash of the last file for the model that extracted
	// to no sections, "" otherwise. A file with this hash is not retried.
	EmptyHash string
}

// SyncPlan is the diff between a manual source and the index.
type SyncPlan struct {
	// Add are models present in the source but not indexed.
	Add []SourceFile

	// Remove are indexed models no longer present in the source.
	Remove []string

	// Reindex are models whose source hash differs from the indexed hash.
	Reindex []SourceFile

	// Unchanged are models whose hash matches.
	Unchanged []string
}

// Empty reports whether the plan has nothing to do.
func (p SyncPlan) Empty() bool {
	return len(p.Add) == 0 && len(p.Remove) == 0 && len(p.Reindex) == 0
}

// SyncStats records the effect of a sync run.
type SyncStats struct {
	RunID           string
	Source          string
	StartedAt       time.Time
	FinishedAt      time.Time
	Added           int
	Removed         int
	Reindexed       int
	Unchanged       int
	SectionsAdded   int
	SectionsRemoved int
	Errors          []string
}

// IngestReport describes one ingested manual.
type IngestReport struct {
	ModelID      string
	Hash         string
	Sections     int
	PageWarnings int
	Replaced     int
}

// Failed reports whether any model failed during the run.
func (s SyncStats) Failed() bool {
	return len(s.Errors) > 0
}
