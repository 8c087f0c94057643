package dashboard

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/grovetools/livesync/pkg/prefs"
	"github.com/grovetools/livesync/pkg/store"
)

// Update handles messages and updates the model accordingly.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case tea.FocusMsg:
		m.setVisible(true)
		return m, nil

	case tea.BlurMsg:
		m.setVisible(false)
		return m, nil

	case storeUpdateMsg:
		m.refresh()
		if m.sound && isHighPriorityDetection(store.Update(msg)) {
			m.ringBell()
		}
		return m, m.waitForUpdate()

	case storeClosedMsg:
		return m, nil

	case tickMsg:
		m.conn = m.backend.ConnectionState()
		m.pollers = m.backend.Pollers()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case taskResultMsg:
		m.refresh()
		if msg.err != nil {
			return m, m.setStatus(fmt.Sprintf("%s %s failed: %s", msg.action, msg.id, errors.Classify(msg.err).Message), true)
		}
		return m, m.setStatus(fmt.Sprintf("%s %s sent", msg.action, msg.id), false)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.statusMessage = ""
			m.statusIsError = false
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll && !key.Matches(msg, m.keys.Quit) {
		m.help.ShowAll = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
		return m, nil

	case key.Matches(msg, m.keys.SwitchPane):
		if m.layout == prefs.LayoutCompact {
			return m, nil
		}
		if m.focus == paneEvents {
			m.focus = paneTasks
			m.events.Blur()
			m.tasks.Focus()
		} else {
			m.focus = paneEvents
			m.tasks.Blur()
			m.events.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refetch):
		m.backend.RefetchAll()
		return m, m.setStatus("refetching", false)

	case key.Matches(msg, m.keys.Reconnect):
		m.backend.Reconnect()
		return m, m.setStatus("reconnecting", false)

	case key.Matches(msg, m.keys.StartTask):
		return m, m.taskAction("start", m.backend.StartTask)

	case key.Matches(msg, m.keys.StopTask):
		return m, m.taskAction("stop", m.backend.StopTask)

	case key.Matches(msg, m.keys.ToggleSound):
		on, err := m.prefs.ToggleSound()
		if err != nil {
			m.logger.WithError(err).Warn("Failed to save sound preference")
			return m, m.setStatus("could not save sound preference", true)
		}
		m.sound = on
		if on {
			return m, m.setStatus("sound on", false)
		}
		return m, m.setStatus("sound off", false)

	case key.Matches(msg, m.keys.Layout):
		next := prefs.LayoutCompact
		if m.layout == prefs.LayoutCompact {
			next = prefs.LayoutFull
		}
		if err := m.prefs.Set(prefs.KeyLayout, next); err != nil {
			m.logger.WithError(err).Warn("Failed to save layout preference")
		}
		m.layout = next
		if next == prefs.LayoutCompact && m.focus == paneTasks {
			m.focus = paneEvents
			m.tasks.Blur()
			m.events.Focus()
		}
		m.resize()
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == paneTasks {
		m.tasks, cmd = m.tasks.Update(msg)
	} else {
		m.events, cmd = m.events.Update(msg)
	}
	return m, cmd
}

// taskAction runs a start or stop request for the selected task off the UI loop.
func (m *Model) taskAction(action string, call func(context.Context, string) error) tea.Cmd {
	if m.focus != paneTasks {
		return m.setStatus("select a task first (tab)", true)
	}
	id, ok := m.selectedTask()
	if !ok {
		return m.setStatus("no task selected", true)
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		return taskResultMsg{id: id, action: action, err: call(ctx, id)}
	}
}

func (m *Model) setVisible(visible bool) {
	if m.visibility == nil {
		return
	}
	m.visibility.Set(visible)
	m.logger.WithField("visible", visible).Debug("Terminal focus changed")
}

// resize distributes the available height between the two tables.
func (m *Model) resize() {
	if m.height == 0 {
		return
	}
	// Header, stats, pollers, status and help lines plus table borders.
	avail := m.height - 12
	if avail < 4 {
		avail = 4
	}
	if m.layout == prefs.LayoutCompact {
		m.events.SetHeight(avail)
	} else {
		m.events.SetHeight(avail / 2)
		m.tasks.SetHeight(avail - avail/2)
	}
	m.events.SetColumns(eventColumns(m.width))
	m.tasks.SetColumns(taskColumns(m.width))
}

func isHighPriorityDetection(u store.Update) bool {
	if u.Type != store.UpdateEvents {
		return false
	}
	ev, ok := u.Payload.(models.MonitorEvent)
	return ok && ev.IsHighPriority()
}
