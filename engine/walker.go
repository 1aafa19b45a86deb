package engine

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/franksops/sendwire/provider"
)

// ItemRef identifies one file the session will stream: where to read it from
// and the metadata that goes into the manifest. Size is fixed here, at walk
// time, and treated as immutable for the rest of the transfer.
type ItemRef struct {
	// Path is the provider-side location to open.
	Path string
	// Name is the wire name, relative to the walk root.
	Name string

	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	UID     uint32
	GID     uint32
}

// Walker traverses a root iteratively to build the ordered file sequence for
// one session. It is stack-based rather than recursive so very deep trees
// cannot overflow the stack.
type Walker struct {
	Source provider.Provider
}

// NewWalker creates an iterative walker over the given provider.
func NewWalker(src provider.Provider) *Walker {
	return &Walker{Source: src}
}

// Collect walks root and returns refs for every regular file beneath it, in
// a deterministic order. A root that is itself a file yields exactly one ref
// named by its base name.
func (w *Walker) Collect(ctx context.Context, root string) ([]ItemRef, error) {
	stat, err := w.Source.Stat(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source %s: %w", root, err)
	}

	if !stat.IsDir() {
		return []ItemRef{refFor(root, path.Base(filepath.ToSlash(root)), stat)}, nil
	}

	var refs []ItemRef
	stack := []string{""}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Pop item
		rel := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dir := root
		if rel != "" {
			dir = filepath.Join(root, rel)
		}

		entries, err := w.Source.List(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			entryRel := entry.Name()
			if rel != "" {
				entryRel = filepath.Join(rel, entry.Name())
			}

			if entry.IsDir() {
				// Push subdirectory onto stack to process later
				stack = append(stack, entryRel)
				continue
			}

			refs = append(refs, refFor(filepath.Join(root, entryRel), filepath.ToSlash(entryRel), entry))
		}
	}

	return refs, nil
}

func refFor(fullPath, wireName string, info provider.FileInfo) ItemRef {
	ref := ItemRef{
		Path:    fullPath,
		Name:    wireName,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if uInfo, ok := info.(provider.UnixFileInfo); ok {
		ref.Mode = uInfo.Mode()
		ref.UID = uInfo.UID()
		ref.GID = uInfo.GID()
	}
	return ref
}
