package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tempFileSource materializes files of the given sizes on disk and returns a
// source over them plus the total byte count. Handles close via t.Cleanup.
func tempFileSource(t *testing.T, sizes ...int64) (Source, int64) {
	t.Helper()
	dir := t.TempDir()

	var list []*FileItem
	var total int64
	for i, size := range sizes {
		path := filepath.Join(dir, "f"+string(rune('a'+i)))
		data := bytes.Repeat([]byte{byte('0' + i)}, int(size))
		require.NoError(t, os.WriteFile(path, data, 0o644))

		f, err := os.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { f.Close() })

		list = append(list, &FileItem{Name: filepath.Base(path), Size: size, File: f})
		total += size
	}
	return NewSliceSource(list...), total
}

// captureSink records everything written so tests can verify content.
type captureSink struct {
	fakeSink
	buf bytes.Buffer
}

func (s *captureSink) Write(p []byte) (int, error) {
	s.buf.Write(p)
	return s.fakeSink.Write(p)
}

func TestBufferedStrategy_TransfersRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload")
	require.NoError(t, os.WriteFile(path, []byte("hello, peer"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	item := &FileItem{Name: "payload", Size: 11, File: f}
	sink := &captureSink{}
	st := newBufferedStrategy(nil)

	n, err := st.Transfer(item, 0, 5, sink)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = st.Transfer(item, 5, 6, sink)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	assert.Equal(t, "hello, peer", sink.buf.String())
}

// A request past the end of the file reports clean EOF, not an error.
func TestBufferedStrategy_EOFBeyondFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	item := &FileItem{Name: "short", Size: 10, File: f}
	st := newBufferedStrategy(NewBufferPool(16))

	n, err := st.Transfer(item, 3, 7, &captureSink{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBufferedStrategy_RespectsRequestedLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	item := &FileItem{Name: "big", Size: 64, File: f}
	sink := &captureSink{}

	n, err := newBufferedStrategy(NewBufferPool(1024)).Transfer(item, 0, 10, sink)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n, "must not write past the requested range")
	assert.Equal(t, 10, sink.buf.Len())
}

func TestBulkCopyStrategy_TransfersSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "section")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	item := &FileItem{Name: "section", Size: 10, File: f}
	sink := &readerFromSink{}

	n, err := bulkCopyStrategy{}.Transfer(item, 2, 5, sink)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, int64(5), sink.written)
}
