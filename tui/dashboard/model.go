// Package dashboard implements the interactive terminal view of the
// reconciled state: the event feed, the task table and component health.
package dashboard

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/livesync/logging"
	"github.com/grovetools/livesync/pkg/connection"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/grovetools/livesync/pkg/poller"
	"github.com/grovetools/livesync/pkg/prefs"
	"github.com/grovetools/livesync/pkg/store"
	"github.com/grovetools/livesync/pkg/visibility"
	"github.com/grovetools/livesync/tui/theme"
	"github.com/sirupsen/logrus"
)

const (
	refreshInterval = time.Second
	taskTimeout     = 15 * time.Second
	statusTTL       = 4 * time.Second
)

// Backend is the running sync engine. *engine.Engine implements it.
type Backend interface {
	Store() *store.Store
	ConnectionState() connection.State
	Pollers() []poller.Health
	RefetchAll()
	Reconnect()
	StartTask(ctx context.Context, id string) error
	StopTask(ctx context.Context, id string) error
}

// Options configure a dashboard Model. Backend is required.
type Options struct {
	Backend Backend
	// Visibility is flipped by terminal focus events.
	Visibility *visibility.Toggle
	Prefs      *prefs.File
	Logger     *logrus.Entry
	// Bell receives the terminal bell. Defaults to stderr.
	Bell io.Writer
}

type pane int

const (
	paneEvents pane = iota
	paneTasks
)

// Model is the bubbletea model of the dashboard.
type Model struct {
	backend    Backend
	visibility *visibility.Toggle
	prefs      *prefs.File
	logger     *logrus.Entry
	bell       io.Writer

	updates chan store.Update

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	events  table.Model
	tasks   table.Model
	focus   pane

	state     store.State
	derived   derived
	conn      connection.State
	pollers   []poller.Health
	taskOrder []models.Task

	sound  bool
	layout string

	statusMessage string
	statusIsError bool
	statusSeq     int

	width  int
	height int
}

type derived struct {
	highPriority int
	stores       int
	running      int
}

// Messages
type storeUpdateMsg store.Update

type storeClosedMsg struct{}

type tickMsg time.Time

type taskResultMsg struct {
	id     string
	action string
	err    error
}

type clearStatusMsg struct{ seq int }

// New creates the dashboard model and subscribes it to the store.
func New(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	bell := opts.Bell
	if bell == nil {
		bell = os.Stderr
	}
	p := opts.Prefs
	if p == nil {
		p = prefs.Default()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.DefaultTheme.Highlight

	m := &Model{
		backend:    opts.Backend,
		visibility: opts.Visibility,
		prefs:      p,
		logger:     logger,
		bell:       bell,
		updates:    opts.Backend.Store().Subscribe(),
		keys:       DefaultKeyMap,
		help:       help.New(),
		spinner:    s,
		events:     newTable(eventColumns(80), true),
		tasks:      newTable(taskColumns(80), false),
		sound:      p.SoundEnabled(),
		layout:     p.Layout(),
	}
	m.refresh()
	return m
}

func newTable(cols []table.Column, focused bool) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(focused),
		table.WithHeight(8),
	)
	styles := table.DefaultStyles()
	styles.Header = theme.DefaultTheme.TableHeader.Padding(0, 1)
	styles.Selected = theme.DefaultTheme.SelectedRow
	t.SetStyles(styles)
	return t
}

// Init starts the store listener, the refresh tick and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForUpdate(),
		tick(),
	)
}

// Close releases the store subscription.
func (m *Model) Close() {
	m.backend.Store().Unsubscribe(m.updates)
}

func (m *Model) waitForUpdate() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return storeClosedMsg{}
		}
		return storeUpdateMsg(u)
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh re-reads everything the view shows from the backend.
func (m *Model) refresh() {
	st := m.backend.Store()
	m.state = st.Snapshot()
	m.taskOrder = st.Tasks()
	m.derived = derived{
		highPriority: st.HighPriorityCount(),
		stores:       st.DistinctStoreCount(),
		running:      st.RunningTaskCount(),
	}
	m.conn = m.backend.ConnectionState()
	m.pollers = m.backend.Pollers()

	m.events.SetRows(eventRows(m.state.Events))
	m.tasks.SetRows(taskRows(m.taskOrder))
}

// loading reports whether any enabled poller has a fetch in flight.
func (m *Model) loading() bool {
	for _, p := range m.pollers {
		if p.Enabled && p.IsLoading {
			return true
		}
	}
	return false
}

// selectedTask returns the ID of the highlighted task row.
func (m *Model) selectedTask() (string, bool) {
	i := m.tasks.Cursor()
	if i < 0 || i >= len(m.taskOrder) {
		return "", false
	}
	return m.taskOrder[i].ID, true
}

func (m *Model) setStatus(msg string, isError bool) tea.Cmd {
	m.statusSeq++
	m.statusMessage = msg
	m.statusIsError = isError
	seq := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

func (m *Model) ringBell() {
	if _, err := io.WriteString(m.bell, "\a"); err != nil {
		m.logger.WithError(err).Debug("Failed to ring bell")
	}
}

// Run shows the dashboard until the user quits or ctx is cancelled.
// Terminal focus reporting drives opts.Visibility.
func Run(ctx context.Context, opts Options) error {
	m := New(opts)
	defer m.Close()

	logging.SetTUIActive(true)
	defer logging.SetTUIActive(false)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
