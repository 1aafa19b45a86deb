package provider

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// UnixFileInfo extends FileInfo with the ownership and mode a receiver needs
// to materialize a file faithfully.
type UnixFileInfo interface {
	FileInfo
	UID() uint32
	GID() uint32
	Mode() os.FileMode
}

type unixFileInfo struct {
	FileInfo
	uid  uint32
	gid  uint32
	mode os.FileMode
}

func (u *unixFileInfo) UID() uint32       { return u.uid }
func (u *unixFileInfo) GID() uint32       { return u.gid }
func (u *unixFileInfo) Mode() os.FileMode { return u.mode }

// WrapOSFileInfo lifts an os.FileInfo into a UnixFileInfo, capturing uid/gid
// from the underlying stat when the platform exposes one.
func WrapOSFileInfo(info os.FileInfo) UnixFileInfo {
	base := &localFileInfo{
		name:    info.Name(),
		size:    info.Size(),
		isDir:   info.IsDir(),
		modTime: info.ModTime(),
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return base
	}
	return &unixFileInfo{
		FileInfo: base,
		uid:      stat.Uid,
		gid:      stat.Gid,
		mode:     info.Mode().Perm(),
	}
}

// NewUnixFileInfo builds a UnixFileInfo from explicit values, as when the
// metadata arrives in a manifest rather than from a local stat.
func NewUnixFileInfo(info FileInfo, uid, gid uint32, mode os.FileMode) UnixFileInfo {
	return &unixFileInfo{
		FileInfo: info,
		uid:      uid,
		gid:      gid,
		mode:     mode,
	}
}

// IDMap translates sender-side uid or gid values to receiver-side ones.
type IDMap map[uint32]uint32

// ParseIDMap builds an IDMap from FROM:TO specs as given on the command line
// ("--uid-map 1000:2000"). Empty input yields a nil map, which maps nothing.
func ParseIDMap(specs []string) (IDMap, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	m := make(IDMap, len(specs))
	for _, spec := range specs {
		from, to, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("id map %q: want FROM:TO", spec)
		}
		f, err := strconv.ParseUint(strings.TrimSpace(from), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("id map %q: bad source id: %w", spec, err)
		}
		t, err := strconv.ParseUint(strings.TrimSpace(to), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("id map %q: bad target id: %w", spec, err)
		}
		m[uint32(f)] = uint32(t)
	}
	return m, nil
}

// MetadataMapper translates sender ownership to receiver ownership when
// files are materialized. The zero value preserves every id as sent.
type MetadataMapper struct {
	// UIDs and GIDs translate individual ids. Ids without an entry fall
	// through per DropUnmapped.
	UIDs IDMap
	GIDs IDMap
	// DropUnmapped skips the chown for ids missing from the tables instead
	// of preserving the sender's value.
	DropUnmapped bool
}

// NewMetadataMapper returns a mapper that preserves sender ownership.
func NewMetadataMapper() *MetadataMapper {
	return &MetadataMapper{}
}

// MapUID resolves the receiver-side uid for a sender-side one. The second
// return is false when the id should not be applied at all.
func (m *MetadataMapper) MapUID(uid uint32) (uint32, bool) {
	if to, ok := m.UIDs[uid]; ok {
		return to, true
	}
	if m.DropUnmapped {
		return 0, false
	}
	return uid, true
}

// MapGID resolves the receiver-side gid for a sender-side one.
func (m *MetadataMapper) MapGID(gid uint32) (uint32, bool) {
	if to, ok := m.GIDs[gid]; ok {
		return to, true
	}
	if m.DropUnmapped {
		return 0, false
	}
	return gid, true
}

// ApplyMetadata restores mode and mapped ownership on a received file. Plain
// FileInfo without the Unix surface applies nothing.
func ApplyMetadata(path string, fileInfo FileInfo, mapper *MetadataMapper) error {
	unixInfo, ok := fileInfo.(UnixFileInfo)
	if !ok {
		return nil
	}

	if unixInfo.Mode() != 0 {
		if err := os.Chmod(path, unixInfo.Mode()); err != nil {
			return err
		}
	}

	if mapper == nil {
		return nil
	}
	uid, uidOK := mapper.MapUID(unixInfo.UID())
	gid, gidOK := mapper.MapGID(unixInfo.GID())
	if uidOK && gidOK {
		if err := os.Chown(path, int(uid), int(gid)); err != nil {
			return err
		}
	}
	return nil
}
