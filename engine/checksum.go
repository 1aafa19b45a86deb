package engine

import (
	"hash"
	"hash/crc64"
	"io"
)

// crcTable is shared by all checksum helpers; CRC64/ISO matches what the
// manifest carries.
var crcTable = crc64.MakeTable(crc64.ISO)

// Checksum computes the CRC64 of everything the reader yields. Senders use
// it to stamp manifest entries before the transfer starts.
func Checksum(r io.Reader) (uint64, error) {
	h := crc64.New(crcTable)
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// ChecksumWriter wraps an io.Writer to compute a checksum while writing.
// Receivers write each incoming file through one and compare the result
// against the manifest entry.
type ChecksumWriter struct {
	w    io.Writer
	hash hash.Hash64
	n    int64
}

// NewChecksumWriter creates a ChecksumWriter that wraps the given writer
// and computes a CRC64 checksum of the data written.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{
		w:    w,
		hash: crc64.New(crcTable),
	}
}

// Write writes data to the underlying writer and updates the checksum.
func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.n += int64(n)
		cw.hash.Write(p[:n])
	}
	return n, err
}

// Checksum returns the current checksum value.
func (cw *ChecksumWriter) Checksum() uint64 {
	return cw.hash.Sum64()
}

// BytesWritten returns the total number of bytes written.
func (cw *ChecksumWriter) BytesWritten() int64 {
	return cw.n
}

// VerifyChecksum compares a computed checksum against an expected value.
func VerifyChecksum(actual, expected uint64) bool {
	return actual == expected
}
