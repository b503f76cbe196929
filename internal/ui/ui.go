// Package ui renders the latest snapshot as a small terminal dashboard.
// It is a pure consumer of snapshot values: the scheduler pushes
// SnapshotMsg into the program, the view draws whatever arrived last.
// Absent readings render as an explicit "n/a", never as zero.
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hwpulse/monitor/internal/models"
)

// SnapshotMsg delivers a fresh snapshot to the view.
type SnapshotMsg struct {
	Snapshot *models.Snapshot
}

// DegradedMsg tells the view the engine could not be constructed; the
// dashboard stays up and shows the failure instead of readings.
type DegradedMsg struct {
	Err error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(20)
	naStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	footStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	coolStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	hotStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Model is the bubbletea model for the dashboard.
type Model struct {
	snap     *models.Snapshot
	degraded error
	width    int
}

// NewModel returns an empty dashboard model.
func NewModel() Model {
	return Model{}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case SnapshotMsg:
		m.snap = msg.Snapshot
	case DegradedMsg:
		m.degraded = msg.Err
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Hardware Monitor"))
	b.WriteString("\n\n")

	if m.degraded != nil {
		b.WriteString(errStyle.Render("hardware unavailable"))
		b.WriteString("\n")
		b.WriteString(naStyle.Render(m.degraded.Error()))
		b.WriteString("\n\n")
		b.WriteString(footStyle.Render("q: quit"))
		return b.String()
	}

	if m.snap == nil {
		b.WriteString(naStyle.Render("waiting for first poll..."))
		b.WriteString("\n\n")
		b.WriteString(footStyle.Render("q: quit"))
		return b.String()
	}

	row(&b, "CPU Temperature", temp(m.snap.CPUTemp))
	row(&b, "CPU Load", percent(m.snap.CPULoad))
	row(&b, "GPU Temperature", temp(m.snap.GPUTemp))
	row(&b, "GPU Load", percent(m.snap.GPULoad))
	row(&b, "Memory Temperature", temp(m.snap.MemoryTemp))

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Disk Temperatures"))
	b.WriteString("\n")
	if len(m.snap.Disks) == 0 {
		b.WriteString("  ")
		b.WriteString(naStyle.Render("no disks found"))
		b.WriteString("\n")
	}
	for _, d := range m.snap.Disks {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(d.Name))
		b.WriteString(temp(d.Temp))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footStyle.Render(fmt.Sprintf("updated %s · q: quit",
		m.snap.Timestamp.Local().Format("15:04:05"))))
	return b.String()
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

// temp formats a temperature reading, coloring by how hot it runs.
func temp(v *float64) string {
	if v == nil {
		return naStyle.Render("n/a")
	}
	s := fmt.Sprintf("%.1f°C", *v)
	switch {
	case *v >= 80:
		return hotStyle.Render(s)
	case *v >= 60:
		return warmStyle.Render(s)
	default:
		return coolStyle.Render(s)
	}
}

func percent(v *float64) string {
	if v == nil {
		return naStyle.Render("n/a")
	}
	return fmt.Sprintf("%.1f%%", *v)
}
