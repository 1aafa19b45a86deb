package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRoundTrip(t *testing.T) {
	m := &Manifest{
		Files: []FileEntry{
			{Name: "a.txt", Size: 10, Mode: 0o644, ModTime: time.Unix(1700000000, 0).UTC(), UID: 1000, GID: 1000, Checksum: 42},
			{Name: "dir/b.bin", Size: 20},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteManifest(&buf, m))

	got, err := ReadManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Files, got.Files)
	assert.Empty(t, got.Compression)
	assert.Equal(t, int64(30), got.TotalBytes())
}

func TestManifestCompressionFlagSurvives(t *testing.T) {
	m := &Manifest{Compression: CompressionZstd, Files: []FileEntry{{Name: "x", Size: 1}}}

	var buf bytes.Buffer
	require.NoError(t, WriteManifest(&buf, m))

	got, err := ReadManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, got.Compression)
}

func TestReadManifest_RejectsImplausibleLength(t *testing.T) {
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], MaxManifestSize+1)
	buf.Write(prefix[:])
	buf.WriteString("garbage")

	_, err := ReadManifest(&buf)
	require.Error(t, err)
}

func TestReadManifest_RejectsZeroLength(t *testing.T) {
	_, err := ReadManifest(bytes.NewReader([]byte{0, 0, 0, 0}))
	require.Error(t, err)
}

func TestReadManifest_TruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], 100)
	buf.Write(prefix[:])
	buf.WriteString("{") // far short of 100 bytes

	_, err := ReadManifest(&buf)
	require.Error(t, err)
}

// A compressed stream must decompress back to the exact file bytes, with the
// sink's Close flushing the final frame before the connection closes.
func TestZstdSinkRoundTrip(t *testing.T) {
	client, server := net.Pipe()

	payload := bytes.Repeat([]byte("sendwire zstd payload "), 1024)

	errCh := make(chan error, 1)
	go func() {
		sink, err := NewZstdSink(client)
		if err != nil {
			errCh <- err
			return
		}
		if _, err := sink.Write(payload); err != nil {
			errCh <- err
			return
		}
		errCh <- sink.Close()
	}()

	dec, err := NewZstdReader(server)
	require.NoError(t, err)
	defer dec.Close()

	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, payload, got)

	server.Close()
}
