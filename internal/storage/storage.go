package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// SnapshotArchive defines the interface for archiving published plan
// snapshots to object storage. Archival is best-effort: the publish
// pipeline never fails because an archive write failed.
type SnapshotArchive interface {
	// Store writes the serialized snapshot under the given object key.
	Store(ctx context.Context, objectKey string, body []byte, contentType string) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows
	// GET requests for fetching an archived snapshot directly from the
	// storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}
