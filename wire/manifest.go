// Package wire carries the small framing exchanged before the transfer
// engine takes over the socket: a length-prefixed JSON manifest describing
// the ordered file sequence. The engine itself never sees any of this; it
// writes raw file bytes only.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// MaxManifestSize caps the manifest header a receiver will accept.
const MaxManifestSize = 8 * 1024 * 1024

// CompressionZstd marks a stream whose file bytes are zstd-compressed after
// the manifest. Compressed streams cannot use the zero-copy fast path.
const CompressionZstd = "zstd"

// FileEntry describes one file in transfer order.
type FileEntry struct {
	Name     string      `json:"name"`
	Size     int64       `json:"size"`
	Mode     os.FileMode `json:"mode,omitempty"`
	ModTime  time.Time   `json:"mod_time,omitempty"`
	UID      uint32      `json:"uid,omitempty"`
	GID      uint32      `json:"gid,omitempty"`
	Checksum uint64      `json:"checksum,omitempty"`
}

// Manifest is the session header: what follows on the wire and how.
type Manifest struct {
	Compression string      `json:"compression,omitempty"`
	Files       []FileEntry `json:"files"`
}

// TotalBytes is the sum of all entry sizes, the exact byte count the raw
// stream carries after the manifest (before any compression).
func (m *Manifest) TotalBytes() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}

// WriteManifest frames the manifest as a big-endian uint32 length followed
// by JSON.
func WriteManifest(w io.Writer, m *Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if len(data) > MaxManifestSize {
		return fmt.Errorf("manifest too large: %d bytes", len(data))
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write manifest length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest reads a manifest framed by WriteManifest, rejecting
// oversized headers before allocating for them.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read manifest length: %w", err)
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size == 0 || size > MaxManifestSize {
		return nil, fmt.Errorf("implausible manifest length %d", size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}
