// Package tui renders live ingestion progress in the terminal.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/regdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// DefaultPollInterval is how often the status is re-read.
const DefaultPollInterval = 300 * time.Millisecond

const maxBarWidth = 60

// StatusSource reads a document's ingestion status.
type StatusSource interface {
	Status(ctx context.Context, documentID string) (*domain.IngestionStatus, error)
}

// ProgressModel follows one document through ingestion.
// It quits once the document reaches COMPLETED or FAILED.
type ProgressModel struct {
	ctx      context.Context
	source   StatusSource
	docID    string
	title    string
	interval time.Duration

	bar    progress.Model
	help   help.Model
	keys   progressKeys
	styles *styles.Styles

	status *domain.IngestionStatus
	err    error
	hidden bool
}

// NewProgressModel creates a progress view for documentID.
func NewProgressModel(ctx context.Context, source StatusSource, documentID, title string) (ProgressModel, error) {
	if source == nil {
		return ProgressModel{}, ErrMissingStatusSource
	}
	if documentID == "" {
		return ProgressModel{}, ErrMissingDocumentID
	}
	st := styles.DefaultStyles()
	from, to := st.Gradient()
	return ProgressModel{
		ctx:      ctx,
		source:   source,
		docID:    documentID,
		title:    title,
		interval: DefaultPollInterval,
		bar:      progress.New(progress.WithGradient(from, to), progress.WithWidth(40)),
		help:     help.New(),
		keys:     defaultProgressKeys(),
		styles:   st,
	}, nil
}

// WithInterval returns a copy polling at d.
func (m ProgressModel) WithInterval(d time.Duration) ProgressModel {
	if d > 0 {
		m.interval = d
	}
	return m
}

// Init starts the first poll.
func (m ProgressModel) Init() tea.Cmd {
	return m.poll
}

func (m ProgressModel) poll() tea.Msg {
	st, err := m.source.Status(m.ctx, m.docID)
	if err != nil {
		return pollFailed{err: err}
	}
	return statusPolled{status: st}
}

func (m ProgressModel) schedule() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return pollDue{} })
}

// Update handles key presses, resizes and poll results.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Hide):
			m.hidden = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-8, maxBarWidth)
		m.help.Width = msg.Width
		return m, nil

	case pollDue:
		return m, m.poll

	case statusPolled:
		m.status = msg.status
		if msg.status.Status.IsTerminal() {
			return m, tea.Quit
		}
		return m, m.schedule()

	case pollFailed:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

// View renders the title, bar and chunk counts.
func (m ProgressModel) View() string {
	var b strings.Builder
	title := m.title
	if title == "" {
		title = m.docID
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n\n")

	if m.status == nil {
		b.WriteString(m.bar.ViewAs(0))
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("waiting for status..."))
	} else {
		st := m.status
		b.WriteString(m.bar.ViewAs(float64(st.Progress) / 100))
		b.WriteString("\n")
		b.WriteString(m.styles.Status(st.Status).Render(st.Status.String()))
		if st.TotalChunks > 0 {
			b.WriteString(m.styles.Muted.Render(fmt.Sprintf("  %d/%d chunks", st.ProcessedChunks, st.TotalChunks)))
		}
		if st.ErrorMessage != "" {
			b.WriteString("\n")
			b.WriteString(m.styles.Error.Render(st.ErrorMessage))
		}
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(domain.UserMessage(m.err)))
	}

	if !m.Done() {
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
	}
	return m.styles.Frame.Render(b.String()) + "\n"
}

// Status returns the last polled status, nil before the first poll.
func (m ProgressModel) Status() *domain.IngestionStatus {
	return m.status
}

// Err returns the error that stopped polling.
func (m ProgressModel) Err() error {
	return m.err
}

// Hidden reports whether the user closed the view before ingestion ended.
func (m ProgressModel) Hidden() bool {
	return m.hidden
}

// Done reports whether the document reached a terminal state.
func (m ProgressModel) Done() bool {
	return m.status != nil && m.status.Status.IsTerminal()
}

// RunProgress shows the progress view on out until ingestion ends or the
// user hides it. The returned model carries the final status.
func RunProgress(ctx context.Context, source StatusSource, documentID, title string, in io.Reader, out io.Writer) (ProgressModel, error) {
	m, err := NewProgressModel(ctx, source, documentID, title)
	if err != nil {
		return m, err
	}
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return m, fmt.Errorf("progress view: %w", err)
	}
	fm, ok := final.(ProgressModel)
	if !ok {
		return m, fmt.Errorf("progress view: unexpected model %T", final)
	}
	return fm, fm.err
}
