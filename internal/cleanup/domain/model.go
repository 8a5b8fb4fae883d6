package domain

import "time"

const (
	// RetentionAge is how old a canvas must be before it is eligible.
	RetentionAge = 30 * 24 * time.Hour
	// LockStaleAge is the point past which a held lock is treated as
	// abandoned by a crashed run.
	LockStaleAge = 30 * time.Minute
	// ScanBatchSize is how many canvases one scan query returns.
	ScanBatchSize = 100
	// MaxCanvasesPerRun caps the work of a single invocation.
	MaxCanvasesPerRun = 1000
)

// CleanupLock is the single advisory-lock row (id is always 1).
type CleanupLock struct {
	ID       int
	LockedAt time.Time
	LockedBy string
}

// DeletionRecord is the permanent audit row written after every run.
type DeletionRecord struct {
	ID                    int64
	ExecutedAt            time.Time
	CanvasesDeleted       int
	TilesDeleted          int
	LayersDeleted         int
	OGPImagesDeleted      int
	TotalTilesBefore      int
	TotalTilesAfter       int
	StorageReclaimedBytes int64
	OrphanedTilesDeleted  int
	OrphanedOGPDeleted    int
	ErrorsEncountered     *string
	DurationMS            int64
}

// CleanupResult is what an invocation reports back to its trigger.
type CleanupResult struct {
	Success           bool
	DeletionRecordID  int64
	CanvasesProcessed int
	Errors            []string
}

// EligibleCanvas is one scan hit: an abandoned canvas due for deletion.
type EligibleCanvas struct {
	ID        string
	TileCount int
	CreatedAt time.Time
}

// TileRef points at one drawing-tile row and its blob.
type TileRef struct {
	ID         string
	CanvasID   string
	StorageKey string
}
