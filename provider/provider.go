package provider

import (
	"context"
	"io"
	"os"
	"time"
)

// FileInfo represents the standard metadata for a file or a directory
// across different storage abstractions.
type FileInfo interface {
	Name() string
	Size() int64
	IsDir() bool
	ModTime() time.Time
}

// Provider represents a storage backend abstraction.
// A typical Provider might be local storage, S3, FTP, etc.
type Provider interface {
	// Stat returns the FileInfo for the given path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// List returns the contents of the given directory.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// OpenRead opens a file for streaming reads.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWrite opens a file for streaming writes, applying metadata if supported.
	OpenWrite(ctx context.Context, path string, metadata FileInfo) (io.WriteCloser, error)
}

// FileOpener is the capability the transfer engine needs from a source
// provider: a real *os.File, seekable and size-known, so the zero-copy
// strategies have a descriptor to hand to the kernel. Remote providers
// satisfy it by spooling the object to local disk first.
type FileOpener interface {
	OpenFile(ctx context.Context, path string) (*os.File, FileInfo, error)
}
