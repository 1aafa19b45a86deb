package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/franksops/sendwire/engine"
	"github.com/franksops/sendwire/provider"
	"github.com/franksops/sendwire/wire"
)

func newRecvCmd() *cobra.Command {
	var (
		listen       string
		dest         string
		workers      int
		uidMaps      []string
		gidMaps      []string
		dropUnmapped bool
	)

	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Receive file streams and write them to a destination",
		Long: `Listens for inbound sendwire connections. Each connection carries a
manifest followed by the raw file bytes; files are written under the
destination (a local directory or s3://bucket/prefix) and verified against
manifest checksums when present.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = cfg.Listen
			}
			if workers <= 0 {
				workers = cfg.Workers
			}
			mapper, err := buildOwnerMapper(uidMaps, gidMaps, dropUnmapped)
			if err != nil {
				return err
			}
			return runRecv(cmd, listen, dest, workers, mapper)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Bind address (host:port)")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination directory or s3://bucket/prefix")
	cmd.Flags().IntVar(&workers, "workers", 0, "Max concurrent inbound sessions")
	cmd.Flags().StringSliceVar(&uidMaps, "uid-map", nil, "Map a sender uid to a local uid (FROM:TO, repeatable)")
	cmd.Flags().StringSliceVar(&gidMaps, "gid-map", nil, "Map a sender gid to a local gid (FROM:TO, repeatable)")
	cmd.Flags().BoolVar(&dropUnmapped, "drop-unmapped", false, "Skip chown for ids without a map entry instead of preserving them")
	_ = cmd.MarkFlagRequired("dest")

	return cmd
}

// buildOwnerMapper turns the --uid-map/--gid-map flags into the mapper the
// local destination applies on every received file.
func buildOwnerMapper(uidSpecs, gidSpecs []string, dropUnmapped bool) (*provider.MetadataMapper, error) {
	uids, err := provider.ParseIDMap(uidSpecs)
	if err != nil {
		return nil, fmt.Errorf("--uid-map: %w", err)
	}
	gids, err := provider.ParseIDMap(gidSpecs)
	if err != nil {
		return nil, fmt.Errorf("--gid-map: %w", err)
	}
	return &provider.MetadataMapper{UIDs: uids, GIDs: gids, DropUnmapped: dropUnmapped}, nil
}

func runRecv(cmd *cobra.Command, listen, dest string, workers int, mapper *provider.MetadataMapper) error {
	prov, root, err := newProvider(cmd, dest)
	if err != nil {
		return fmt.Errorf("destination provider: %w", err)
	}
	if _, ok := prov.(*provider.LocalProvider); ok {
		// Anchor all manifest-relative names under the destination root.
		prov = provider.NewLocalProvider(root).WithMetadataMapper(mapper)
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}
	defer ln.Close()
	log.WithFields(logrus.Fields{"listen": listen, "dest": dest, "workers": workers}).Info("receiver up")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	connChan := make(engine.ConnChannel, workers)
	pool := engine.NewWorkerPool(ctx, connChan, func(ctx context.Context, conn net.Conn) error {
		return receiveSession(ctx, conn, prov)
	})
	pool.SetWorkerCount(workers)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			log.WithError(err).Warn("accept failed")
			continue
		}
		select {
		case connChan <- conn:
		case <-ctx.Done():
			conn.Close()
		}
	}

	close(connChan)
	pool.Stop()
	return nil
}

// receiveSession drains one inbound transfer: manifest, then each file in
// order, verifying checksums where the sender stamped them.
func receiveSession(ctx context.Context, conn net.Conn, dst provider.Provider) error {
	defer conn.Close()
	peer := conn.RemoteAddr().String()
	slog := log.WithField("peer", peer)

	manifest, err := wire.ReadManifest(conn)
	if err != nil {
		slog.WithError(err).Warn("bad manifest, dropping connection")
		return err
	}

	var stream io.Reader = conn
	if manifest.Compression == wire.CompressionZstd {
		zr, err := wire.NewZstdReader(conn)
		if err != nil {
			slog.WithError(err).Warn("bad compressed stream")
			return err
		}
		defer zr.Close()
		stream = zr
	}

	started := time.Now()
	var received int64

	for _, entry := range manifest.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := receiveFile(ctx, stream, entry, dst)
		received += n
		if err != nil {
			slog.WithError(err).WithField("file", entry.Name).Warn("session failed")
			return err
		}
	}

	slog.WithFields(logrus.Fields{
		"files":   len(manifest.Files),
		"bytes":   units.BytesSize(float64(received)),
		"elapsed": time.Since(started).Round(time.Millisecond).String(),
	}).Info("session complete")
	return nil
}

func receiveFile(ctx context.Context, stream io.Reader, entry wire.FileEntry, dst provider.Provider) (int64, error) {
	meta := fileEntryInfo{entry: entry}
	w, err := dst.OpenWrite(ctx, entry.Name, provider.NewUnixFileInfo(&meta, entry.UID, entry.GID, entry.Mode))
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", entry.Name, err)
	}

	cw := engine.NewChecksumWriter(w)
	n, err := io.CopyN(cw, stream, entry.Size)
	if err != nil {
		w.Close()
		return n, fmt.Errorf("receive %s: %w", entry.Name, err)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", entry.Name, err)
	}

	if entry.Checksum != 0 && !engine.VerifyChecksum(cw.Checksum(), entry.Checksum) {
		return n, fmt.Errorf("checksum mismatch on %s: got %x want %x", entry.Name, cw.Checksum(), entry.Checksum)
	}
	return n, nil
}

// fileEntryInfo adapts a manifest entry to provider.FileInfo.
type fileEntryInfo struct {
	entry wire.FileEntry
}

func (f *fileEntryInfo) Name() string       { return f.entry.Name }
func (f *fileEntryInfo) Size() int64        { return f.entry.Size }
func (f *fileEntryInfo) IsDir() bool        { return false }
func (f *fileEntryInfo) ModTime() time.Time { return f.entry.ModTime }
