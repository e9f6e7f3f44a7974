package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/plstat/internal/formatter"
	"github.com/desertthunder/plstat/internal/models"
	"github.com/desertthunder/plstat/internal/tasks"
	"github.com/desertthunder/plstat/internal/trigger"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SummaryView ViewState = iota
	DetailView
	ConfirmView
	RunView
	ResultView
)

// detailGroupCount is how many groups the detail view lists.
const detailGroupCount = 10

// SummaryLoader reads the current statistics summary.
type SummaryLoader func() (*models.Summary, error)

// PipelineRunner runs the pipeline for one event.
type PipelineRunner interface {
	Run(ctx context.Context, ev trigger.Event, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	load         SummaryLoader
	runner       PipelineRunner
	width        int
	height       int
	list         list.Model
	summary      *models.Summary
	selected     *models.PlaylistStats
	force        bool
	progress     tasks.ProgressUpdate
	progressChan <-chan tasks.ProgressUpdate
	doneChan     <-chan Msg
	steps        []tasks.ProgressUpdate
	result       *tasks.RunResult
	err          error
	runErr       error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. runner may be nil, which disables the run action.
func NewModel(ctx context.Context, load SummaryLoader, runner PipelineRunner) *Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Playlist statistics"
	return &Model{
		ctx:    ctx,
		view:   SummaryView,
		load:   load,
		runner: runner,
		list:   l,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init loads the summary.
func (m *Model) Init() tea.Cmd {
	return m.loadSummary()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(max(msg.Width-4, 0), max(msg.Height-6, 0))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case SummaryView:
			return m.handleSummaryKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case RunView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	if m.view == SummaryView {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSummaryLoaded:
		data := msg.data.(summaryData)
		m.err = data.err
		m.summary = data.summary
		m.list.SetItems(playlistItems(data.summary))
		if data.summary != nil {
			m.list.Title = fmt.Sprintf("Playlist statistics (%d)", len(data.summary.Playlists))
		}
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		m.steps = append(m.steps, update)
		if m.progressChan == nil {
			return m, nil
		}
		return m, waitForProgress(m.progressChan, m.doneChan)

	case MsgRunComplete:
		data := msg.data.(runData)
		m.result = data.result
		m.runErr = data.err
		m.view = ResultView
		m.progressChan, m.doneChan = nil, nil
		return m, m.loadSummary()
	}
	return m, nil
}

func (m *Model) handleSummaryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.list.SelectedItem().(playlistItem); ok {
			stats := item.stats
			m.selected = &stats
			m.view = DetailView
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m, m.loadSummary()
	case key.Matches(msg, m.keys.run), key.Matches(msg, m.keys.force):
		if m.runner == nil {
			return m, nil
		}
		m.force = key.Matches(msg, m.keys.force)
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = SummaryView
		m.selected = nil
	}
	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = RunView
		return m, m.startRun()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = SummaryView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.view = SummaryView
		m.result = nil
		m.runErr = nil
		m.steps = nil
	}
	return m, nil
}

func (m *Model) loadSummary() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		if load == nil {
			return summaryLoadedMsg(nil, nil)
		}
		summary, err := load()
		return summaryLoadedMsg(summary, err)
	}
}

// startRun runs the pipeline as a manual dispatch, streaming progress until the run returns.
func (m *Model) startRun() tea.Cmd {
	m.steps = nil
	m.result = nil
	m.runErr = nil

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	ev := trigger.Event{Kind: trigger.Dispatch, Inputs: trigger.Inputs{ForceUpdate: m.force}}
	runner, ctx := m.runner, m.ctx

	go func() {
		result, err := runner.Run(ctx, ev, progress)
		close(progress)
		done <- runCompleteMsg(result, err)
	}()

	m.progressChan, m.doneChan = progress, done
	return waitForProgress(progress, done)
}

// waitForProgress yields the next progress update, then the completion message once progress closes.
func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SummaryView:
		return m.renderSummary()
	case DetailView:
		return m.renderDetail()
	case ConfirmView:
		return m.renderConfirm()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderSummary() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.reload, m.keys.quit}
	if m.runner != nil {
		helpKeys = []key.Binding{m.keys.enter, m.keys.run, m.keys.force, m.keys.reload, m.keys.quit}
	}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Error: %v", m.err)), helpView)
	}
	if m.summary == nil || len(m.summary.Playlists) == 0 {
		return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render("Playlist statistics"), styles.warn.Render("No statistics found. Run the updater first."), helpView)
	}

	header := styles.help.Render(fmt.Sprintf("%s entries • %s • updated %s",
		humanize.Comma(int64(m.summary.TotalEntries)),
		humanize.Bytes(uint64(m.summary.TotalSize)),
		humanize.Time(m.summary.UpdatedAt),
	))
	return fmt.Sprintf("%s\n%s\n\n%s", m.list.View(), header, helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}
	s := m.selected

	var b strings.Builder
	b.WriteString(styles.title.Render(s.Path))
	b.WriteString("\n")
	row := func(label, value string) {
		fmt.Fprintf(&b, "%s%s\n", styles.label.Render(label), value)
	}
	row("Entries", humanize.Comma(int64(s.Entries)))
	row("Unique URLs", humanize.Comma(int64(s.UniqueURLs)))
	row("Duplicates", humanize.Comma(int64(s.Duplicates)))
	row("With tvg-id", humanize.Comma(int64(s.WithTVGID)))
	row("With logo", humanize.Comma(int64(s.WithLogo)))
	row("Live", humanize.Comma(int64(s.LiveEntries)))
	row("Duration", (time.Duration(s.TotalDuration) * time.Second).String())
	row("Size", humanize.Bytes(uint64(s.SizeBytes)))
	row("Updated", humanize.Time(s.UpdatedAt))
	row("Hash", shortHash(s.Hash))

	if len(s.Groups) > 0 {
		b.WriteString("\n")
		b.WriteString(formatter.RenderGroupsTable(*s, detailGroupCount))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	return b.String()
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Run the statistics pipeline now?")
	info := fmt.Sprintf("\nEvent: %s\nForce update: %t\n", trigger.Dispatch, m.force)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderRun() string {
	title := styles.title.Render("Running pipeline")

	var b strings.Builder
	for _, step := range m.steps {
		fmt.Fprintf(&b, "%s %s\n", styles.bullet(step.Phase), step.Message)
	}
	if len(m.steps) == 0 {
		b.WriteString("Starting...\n")
	}
	phase := styles.help.Render(fmt.Sprintf("phase: %s (%d/%d)", m.progress.Phase, m.progress.Step, m.progress.Total))
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), phase)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.runErr != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("✗ Run failed: %v", m.runErr)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}
	if m.result.Skipped {
		return fmt.Sprintf("%s\n%s\n\n%s", styles.warn.Render("Run skipped"), m.result.Decision.Reason, helpView)
	}

	title := styles.ok.Render("✓ Run complete")
	var info strings.Builder
	if m.result.Publish != nil {
		if m.result.Publish.Committed {
			fmt.Fprintf(&info, "\nCommitted: %s", m.result.Publish.Message)
		} else {
			info.WriteString("\nNo statistics changes to commit")
		}
	}

	var failed []string
	okCount := 0
	for _, p := range m.result.Purges {
		if p.OK() {
			okCount++
			continue
		}
		failed = append(failed, p.URL)
	}
	if len(m.result.Purges) > 0 {
		fmt.Fprintf(&info, "\nCache purges: %d/%d succeeded", okCount, len(m.result.Purges))
	}
	for _, u := range failed {
		fmt.Fprintf(&info, "\n  %s", styles.warn.Render("• "+u))
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, info.String(), helpView)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
