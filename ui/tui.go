package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	units "github.com/docker/go-units"
)

// UIState is the shared view of one running transfer session. The engine's
// callbacks mutate it from the session goroutine while the TUI reads
// snapshots, so access goes through the mutex.
type UIState struct {
	mu sync.Mutex

	Peer        string
	Strategy    string
	TotalFiles  int
	TotalBytes  int64
	SentBytes   int64
	CurrentFile string
	FileBytes   int64
	FileSent    int64
	DoneFiles   int

	startedAt time.Time
	Done      bool
	Failed    string
}

// Start stamps the throughput clock.
func (s *UIState) Start(peer, strategy string, files int, totalBytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Peer = peer
	s.Strategy = strategy
	s.TotalFiles = files
	s.TotalBytes = totalBytes
	s.startedAt = time.Now()
}

// BeginFile records the file the session is currently streaming. Empty files
// produce no byte progress, so they count as done right away.
func (s *UIState) BeginFile(name string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentFile = name
	s.FileBytes = size
	s.FileSent = 0
	if size == 0 {
		s.DoneFiles++
	}
}

// Advance applies one bytes-sent callback.
func (s *UIState) Advance(chunk, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SentBytes = total
	s.FileSent += chunk
	if s.FileBytes > 0 && s.FileSent >= s.FileBytes {
		s.DoneFiles++
	}
}

// Finish marks the session settled; failure is empty on success.
func (s *UIState) Finish(failure string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Done = true
	s.Failed = failure
}

type snapshot struct {
	peer, strategy, currentFile, failed string
	totalFiles, doneFiles               int
	totalBytes, sentBytes               int64
	fileBytes, fileSent                 int64
	elapsed                             time.Duration
	done                                bool
}

func (s *UIState) snap() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := time.Duration(0)
	if !s.startedAt.IsZero() {
		elapsed = time.Since(s.startedAt)
	}
	return snapshot{
		peer: s.Peer, strategy: s.Strategy, currentFile: s.CurrentFile, failed: s.Failed,
		totalFiles: s.TotalFiles, doneFiles: s.DoneFiles,
		totalBytes: s.TotalBytes, sentBytes: s.SentBytes,
		fileBytes: s.FileBytes, fileSent: s.FileSent,
		elapsed: elapsed, done: s.Done,
	}
}

// TUIModel implements the tea.Model interface
type TUIModel struct {
	state    *UIState
	spinner  spinner.Model
	progress progress.Model
	viewport viewport.Model

	width  int
	height int

	// Styles
	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	fileStyle    lipgloss.Style
	helpStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
}

// TUIUpdateMsg is sent periodically to refresh the view.
type TUIUpdateMsg struct{}

func NewTUIModel(state *UIState) TUIModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	prog := progress.New(progress.WithDefaultGradient())

	return TUIModel{
		state:        state,
		spinner:      s,
		progress:     prog,
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		fileStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		helpStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m TUIModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
	)
}

func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 14

		headerHeight := 6
		footerHeight := 2
		m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)

	case TUIUpdateMsg:
		if m.state.snap().done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m TUIModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	snap := m.state.snap()
	var sb strings.Builder

	header := fmt.Sprintf("%s Sendwire %s", m.spinner.View(), m.titleStyle.Render("Streaming Transfer"))
	sb.WriteString(header + "\n")

	var percent float64
	if snap.totalBytes > 0 {
		percent = float64(snap.sentBytes) / float64(snap.totalBytes)
	}

	throughput := float64(0)
	if snap.elapsed > 0 {
		throughput = float64(snap.sentBytes) / snap.elapsed.Seconds()
	}

	opsInfo := fmt.Sprintf("Peer: %s | Path: %s | Files: %d/%d | %s / %s | %s/s",
		snap.peer, snap.strategy,
		snap.doneFiles, snap.totalFiles,
		units.BytesSize(float64(snap.sentBytes)), units.BytesSize(float64(snap.totalBytes)),
		units.BytesSize(throughput))

	sb.WriteString(m.infoStyle.Render(opsInfo) + "\n")
	sb.WriteString(m.progress.ViewAs(percent) + "\n\n")

	// Current file
	sb.WriteString("Streaming:\n")
	var fileContent strings.Builder
	if snap.currentFile == "" {
		fileContent.WriteString(m.infoStyle.Render("Waiting for first file..."))
	} else {
		var filePct float64
		if snap.fileBytes > 0 {
			filePct = float64(snap.fileSent) / float64(snap.fileBytes)
		}
		name := snap.currentFile
		if len(name) > 40 {
			name = "..." + name[len(name)-37:]
		}
		fileContent.WriteString(fmt.Sprintf("%s | %s\n",
			m.progress.ViewAs(filePct), m.fileStyle.Render(name)))
	}

	m.viewport.SetContent(fileContent.String())
	sb.WriteString(m.viewport.View())

	// Footer
	help := m.helpStyle.Render("q/ctrl+c: quit")
	if snap.done {
		if snap.failed != "" {
			help = m.errorStyle.Render("Transfer aborted: "+snap.failed) + " Press 'q' to exit."
		} else {
			help = m.successStyle.Render("Transfer complete!") + " Press 'q' to exit."
		}
	}
	sb.WriteString("\n" + help)

	return sb.String()
}
