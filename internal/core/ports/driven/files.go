package driven

import "context"

// FileStore keeps uploaded bytes until the document is deleted.
type FileStore interface {
	// Save writes content and returns the storage path.
	Save(ctx context.Context, documentID, name string, content []byte) (string, error)

	// Read returns the bytes at path. Missing files return domain.ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// Remove deletes the file at path. Removing a missing file is a no-op.
	Remove(ctx context.Context, path string) error
}
