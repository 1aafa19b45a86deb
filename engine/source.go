package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/franksops/sendwire/provider"
)

// OpenerSource turns a walked []ItemRef into a Source, opening each file on
// demand through the provider and closing the previous handle before
// advancing, so at most one handle is open at a time. It owns every handle
// it opens; the consuming session never closes them.
type OpenerSource struct {
	ctx       context.Context
	opener    provider.FileOpener
	refs      []ItemRef
	checksums []uint64
	pos       int
	open      *os.File
}

// NewOpenerSource creates a source over refs. checksums may be nil, or a
// slice parallel to refs carrying precomputed CRC64 values for the manifest.
func NewOpenerSource(ctx context.Context, opener provider.FileOpener, refs []ItemRef, checksums []uint64) *OpenerSource {
	return &OpenerSource{
		ctx:       ctx,
		opener:    opener,
		refs:      refs,
		checksums: checksums,
	}
}

func (s *OpenerSource) Next() (*FileItem, error) {
	if s.open != nil {
		s.open.Close()
		s.open = nil
	}
	if s.pos >= len(s.refs) {
		return nil, io.EOF
	}

	ref := s.refs[s.pos]
	var sum uint64
	if s.pos < len(s.checksums) {
		sum = s.checksums[s.pos]
	}
	s.pos++

	f, _, err := s.opener.OpenFile(s.ctx, ref.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ref.Path, err)
	}
	s.open = f

	return &FileItem{
		Name:     ref.Name,
		Size:     ref.Size,
		Mode:     ref.Mode,
		ModTime:  ref.ModTime,
		Checksum: sum,
		File:     f,
	}, nil
}

// Close releases the handle of the item most recently yielded, if any.
func (s *OpenerSource) Close() error {
	if s.open == nil {
		return nil
	}
	err := s.open.Close()
	s.open = nil
	return err
}
