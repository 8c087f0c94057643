package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/livesync/pkg/connection"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/grovetools/livesync/pkg/prefs"
	"github.com/grovetools/livesync/tui/theme"
)

const timeLayout = "15:04:05"

func eventColumns(width int) []table.Column {
	title := width - 50
	if title < 20 {
		title = 20
	}
	return []table.Column{
		{Title: "Time", Width: 8},
		{Title: "Store", Width: 14},
		{Title: "Product", Width: title},
		{Title: "Price", Width: 9},
		{Title: "Priority", Width: 8},
	}
}

func taskColumns(width int) []table.Column {
	msg := width - 60
	if msg < 16 {
		msg = 16
	}
	return []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Name", Width: 18},
		{Title: "Store", Width: 12},
		{Title: "Status", Width: 8},
		{Title: "Message", Width: msg},
	}
}

func eventRows(events []models.MonitorEvent) []table.Row {
	rows := make([]table.Row, 0, len(events))
	for _, ev := range events {
		price := ""
		if ev.Price > 0 {
			price = fmt.Sprintf("%.2f", ev.Price)
		}
		rows = append(rows, table.Row{
			ev.DetectedAt.Local().Format(timeLayout),
			ev.Store,
			ev.ProductTitle,
			price,
			string(ev.Priority),
		})
	}
	return rows
}

func taskRows(tasks []models.Task) []table.Row {
	rows := make([]table.Row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, table.Row{t.ID, t.Name, t.Store, string(t.Status), t.Message})
	}
	return rows
}

// View renders the dashboard.
func (m *Model) View() string {
	t := theme.DefaultTheme
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n")
	b.WriteString(m.renderPollers())
	b.WriteString("\n\n")

	b.WriteString(m.renderPane("Events", m.events.View(), m.focus == paneEvents))
	if m.layout != prefs.LayoutCompact {
		b.WriteString("\n")
		b.WriteString(m.renderPane("Tasks", m.tasks.View(), m.focus == paneTasks))
	}
	b.WriteString("\n")

	if m.statusMessage != "" {
		if m.statusIsError {
			b.WriteString(t.Error.Render(m.statusMessage))
		} else {
			b.WriteString(t.Muted.Render(m.statusMessage))
		}
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderHeader() string {
	t := theme.DefaultTheme
	parts := []string{t.Accent.Render("livesync"), renderConnection(m.conn)}

	sound := "sound off"
	if m.sound {
		sound = "sound on"
	}
	parts = append(parts, t.Muted.Render(sound))

	if m.loading() {
		parts = append(parts, m.spinner.View())
	}
	return strings.Join(parts, "  ")
}

func renderConnection(s connection.State) string {
	t := theme.DefaultTheme
	switch s.Status {
	case connection.StatusOpen:
		return t.Success.Render(theme.IconConnected + " live")
	case connection.StatusConnecting:
		label := theme.IconConnecting + " connecting"
		if s.ReconnectAttempt > 0 {
			label = fmt.Sprintf("%s (attempt %d)", label, s.ReconnectAttempt)
		}
		return t.Warning.Render(label)
	default:
		if s.GaveUp {
			return t.Error.Render(theme.IconDisconnected + " offline, press R to reconnect")
		}
		label := theme.IconDisconnected + " offline"
		if s.ReconnectAttempt > 0 {
			label = fmt.Sprintf("%s (retry %d)", label, s.ReconnectAttempt)
		}
		return t.Warning.Render(label)
	}
}

func (m *Model) renderStats() string {
	t := theme.DefaultTheme
	stats := m.state.Stats
	items := []string{
		fmt.Sprintf("%s %d", t.Muted.Render("found"), stats.TotalProductsFound),
		fmt.Sprintf("%s %s", t.Muted.Render("high"), t.Highlight.Render(fmt.Sprint(m.derived.highPriority))),
		fmt.Sprintf("%s %d", t.Muted.Render("stores"), m.derived.stores),
		fmt.Sprintf("%s %d", t.Muted.Render("running"), m.derived.running),
		fmt.Sprintf("%s %d", t.Muted.Render("checkouts"), stats.Checkouts),
		fmt.Sprintf("%s %d", t.Muted.Render("declines"), stats.Declines),
	}
	return strings.Join(items, "  ")
}

func (m *Model) renderPollers() string {
	t := theme.DefaultTheme
	items := make([]string, 0, len(m.pollers))
	for _, p := range m.pollers {
		switch {
		case !p.Enabled:
			items = append(items, t.Muted.Render(theme.IconBullet+" "+p.Name))
		case p.Error != nil:
			items = append(items, t.Error.Render(theme.IconError+" "+p.Name)+" "+t.Muted.Render(p.Error.Message))
		case p.HasData:
			items = append(items, t.Success.Render(theme.IconSuccess)+" "+p.Name+" "+t.Muted.Render(age(p.LastUpdatedAt)))
		default:
			items = append(items, t.Warning.Render(theme.IconWarning)+" "+p.Name)
		}
	}
	return strings.Join(items, "  ")
}

func (m *Model) renderPane(title, body string, focused bool) string {
	t := theme.DefaultTheme
	box := t.Box
	heading := t.Muted.Render(title)
	if focused {
		box = box.BorderForeground(t.Colors.Cyan)
		heading = t.Bold.Render(title)
	}
	return lipgloss.JoinVertical(lipgloss.Left, heading, box.Render(body))
}

func age(at time.Time) string {
	if at.IsZero() {
		return ""
	}
	d := time.Since(at).Round(time.Second)
	if d < time.Second {
		return "now"
	}
	return d.String() + " ago"
}
