package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/franksops/sendwire/engine"
	"github.com/franksops/sendwire/provider"
	"github.com/franksops/sendwire/store"
	"github.com/franksops/sendwire/ui"
	"github.com/franksops/sendwire/wire"
)

func newSendCmd() *cobra.Command {
	var (
		to         string
		chunkSize  string
		useZstd    bool
		verify     bool
		owner      bool
		stateDir   string
		tuiEnabled bool
	)

	cmd := &cobra.Command{
		Use:   "send PATH",
		Short: "Stream a file or directory tree to a receiver",
		Long: `Walks PATH (a local path or s3://bucket/prefix), sends a manifest, then
streams every file in order over one connection, using the fastest transfer
path the platform and sink allow.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if stateDir == "" {
				stateDir = cfg.StateDir
			}
			if chunkSize == "" {
				chunkSize = cfg.ChunkSize
			}
			chunkBytes, err := units.RAMInBytes(chunkSize)
			if err != nil {
				return fmt.Errorf("chunk-size %q: %w", chunkSize, err)
			}
			return runSend(cmd, args[0], to, chunkBytes, useZstd, verify, owner, stateDir, tuiEnabled)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Receiver address (host:port)")
	cmd.Flags().StringVar(&chunkSize, "chunk-size", "", "Max bytes per transfer call (e.g. 2MiB)")
	cmd.Flags().BoolVar(&useZstd, "zstd", false, "Compress the stream (disables zero-copy)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Stamp CRC64 checksums into the manifest")
	cmd.Flags().BoolVar(&owner, "owner", false, "Carry uid/gid in the manifest")
	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Directory for the session journal")
	cmd.Flags().BoolVar(&tuiEnabled, "tui", true, "Show live progress (disable for headless runs)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runSend(cmd *cobra.Command, source, to string, chunkBytes int64, useZstd, verify, owner bool, stateDir string, tuiEnabled bool) error {
	ctx := cmd.Context()

	prov, root, err := newProvider(cmd, source)
	if err != nil {
		return fmt.Errorf("source provider: %w", err)
	}
	opener, ok := prov.(provider.FileOpener)
	if !ok {
		return fmt.Errorf("source %s cannot supply seekable files", source)
	}

	refs, err := engine.NewWalker(prov).Collect(ctx, root)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("nothing to send under %s", source)
	}

	var checksums []uint64
	if verify {
		checksums = make([]uint64, len(refs))
		for i, ref := range refs {
			rc, err := prov.OpenRead(ctx, ref.Path)
			if err != nil {
				return fmt.Errorf("checksum %s: %w", ref.Path, err)
			}
			sum, err := engine.Checksum(rc)
			rc.Close()
			if err != nil {
				return fmt.Errorf("checksum %s: %w", ref.Path, err)
			}
			checksums[i] = sum
		}
	}

	manifest := buildManifest(refs, checksums, useZstd, owner)

	// Session journal
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	journal, err := store.NewBoltStore(filepath.Join(stateDir, "sessions.db"))
	if err != nil {
		return fmt.Errorf("session journal: %w", err)
	}
	defer journal.Close()

	tracker := engine.NewSessionTracker(journal, engine.DefaultCheckpointConfig)
	sessionID := fmt.Sprintf("%s-%d", to, time.Now().UnixNano())
	tracked, err := tracker.Begin(sessionID, to, manifest.TotalBytes(), len(refs))
	if err != nil {
		return fmt.Errorf("journal session: %w", err)
	}

	conn, err := net.Dial("tcp", to)
	if err != nil {
		return fmt.Errorf("dial %s: %w", to, err)
	}
	if err := wire.WriteManifest(conn, manifest); err != nil {
		conn.Close()
		return err
	}

	var sink engine.Sink = conn
	if useZstd {
		zs, err := wire.NewZstdSink(conn)
		if err != nil {
			conn.Close()
			return err
		}
		sink = zs
	}

	caps := engine.ProbeSink(sink)
	caps.ForceBuffered = caps.ForceBuffered || useZstd
	buffers := engine.NewBufferPool(int(chunkBytes))
	strategy := engine.SelectStrategy(sink, caps, buffers)

	state := &ui.UIState{}
	state.Start(to, strategy.Name(), len(refs), manifest.TotalBytes())

	src := engine.NewOpenerSource(ctx, opener, refs, checksums)
	defer src.Close()

	// Decorate the source so the UI knows which file is on the wire.
	var observed engine.Source = engine.SourceFunc(func() (*engine.FileItem, error) {
		item, err := src.Next()
		if err == nil {
			state.BeginFile(item.Name, item.Size)
		}
		return item, err
	})

	callbacks := engine.Chain(tracked.Callbacks(), engine.Callbacks{
		BytesSent: state.Advance,
		Complete: func(total int64) {
			state.Finish("")
			log.WithField("bytes", units.BytesSize(float64(total))).Info("transfer complete")
		},
		Aborted: func(err error) {
			state.Finish(err.Error())
		},
	})

	opts := engine.Options{
		ChunkCeiling:   chunkBytes,
		PollInterval:   cfg.PollInterval,
		DeadPeerBudget: cfg.DeadPeerTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
		ForceBuffered:  useZstd,
		Log:            log.WithField("peer", to),
	}

	session := engine.NewSession(sink, strategy, callbacks, opts)

	if !tuiEnabled {
		return session.Run(observed)
	}

	program := tea.NewProgram(ui.NewTUIModel(state), tea.WithAltScreen())
	runErr := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		runErr <- session.Run(observed)
		close(done)
		program.Send(ui.TUIUpdateMsg{})
	}()
	go refreshUI(program.Send, done)

	if _, err := program.Run(); err != nil {
		return err
	}
	return <-runErr
}

// refreshUI pushes periodic redraw messages until the session settles.
func refreshUI(send func(tea.Msg), done <-chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			send(ui.TUIUpdateMsg{})
		}
	}
}

func buildManifest(refs []engine.ItemRef, checksums []uint64, useZstd, owner bool) *wire.Manifest {
	m := &wire.Manifest{}
	if useZstd {
		m.Compression = wire.CompressionZstd
	}
	for i, ref := range refs {
		entry := wire.FileEntry{
			Name:    ref.Name,
			Size:    ref.Size,
			Mode:    ref.Mode,
			ModTime: ref.ModTime,
		}
		if owner {
			entry.UID = ref.UID
			entry.GID = ref.GID
		}
		if checksums != nil {
			entry.Checksum = checksums[i]
		}
		m.Files = append(m.Files, entry)
	}
	return m
}
