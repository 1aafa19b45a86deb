package engine

import (
	"io"
	"os"
	"time"
)

// FileItem is one entry in the ordered sequence a session streams to its
// sink: an open, seekable handle plus the metadata the transfer needs.
// The Source that produced the item owns the handle; the session only reads
// through it and never closes it.
type FileItem struct {
	// Name is the path the receiver should materialize, relative to its
	// destination root.
	Name string

	// Size is the byte count fixed at manifest time. The session transfers
	// exactly this many bytes (or stops early if the file shrank underneath
	// it) and never re-stats the handle mid-transfer.
	Size int64

	Mode    os.FileMode
	ModTime time.Time

	// Checksum is an optional CRC64 of the file contents, zero when the
	// sender skipped verification.
	Checksum uint64

	// File is the open handle. It must support ReadAt for the whole
	// [0, Size) range.
	File *os.File
}

// Source yields FileItems strictly in order. Next returns io.EOF after the
// last item; any other error aborts the session as an application failure.
type Source interface {
	Next() (*FileItem, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (*FileItem, error)

func (f SourceFunc) Next() (*FileItem, error) { return f() }

// SliceSource serves a fixed list of already-open items. Useful for tests
// and for callers that manage handle lifetimes themselves.
type SliceSource struct {
	items []*FileItem
	pos   int
}

func NewSliceSource(items ...*FileItem) *SliceSource {
	return &SliceSource{items: items}
}

func (s *SliceSource) Next() (*FileItem, error) {
	if s.pos >= len(s.items) {
		return nil, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}
