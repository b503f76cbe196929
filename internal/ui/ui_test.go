package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hwpulse/monitor/internal/models"
)

func TestViewRendersAbsentAsNA(t *testing.T) {
	m := NewModel()
	updated, _ := m.Update(SnapshotMsg{Snapshot: &models.Snapshot{
		Timestamp: time.Now(),
		CPUTemp:   models.Float(45.2),
		CPULoad:   nil, // read failed this cycle
	}})

	view := updated.(Model).View()
	if !strings.Contains(view, "45.2") {
		t.Errorf("view missing present CPU temperature:\n%s", view)
	}
	if !strings.Contains(view, "n/a") {
		t.Errorf("view must mark absent readings as n/a, not omit or zero them:\n%s", view)
	}
	if strings.Contains(view, "0.0%") {
		t.Errorf("absent load rendered as zero:\n%s", view)
	}
}

func TestViewRendersDiskNames(t *testing.T) {
	m := NewModel()
	updated, _ := m.Update(SnapshotMsg{Snapshot: &models.Snapshot{
		Timestamp: time.Now(),
		Disks: []models.DiskTemp{
			{Name: "WD Blue", Temp: models.Float(34)},
			{Name: "WD Blue #2", Temp: nil},
		},
	}})

	view := updated.(Model).View()
	if !strings.Contains(view, "WD Blue #2") {
		t.Errorf("view missing deduplicated disk name:\n%s", view)
	}
}

func TestViewDegradedMode(t *testing.T) {
	m := NewModel()
	updated, _ := m.Update(DegradedMsg{Err: errors.New("no hardware sources available")})

	view := updated.(Model).View()
	if !strings.Contains(view, "hardware unavailable") {
		t.Errorf("degraded view missing failure banner:\n%s", view)
	}
}

func TestQuitKeys(t *testing.T) {
	m := NewModel()
	for _, key := range []string{"q", "ctrl+c"} {
		var msg tea.KeyMsg
		if key == "q" {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		}
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Errorf("key %q did not quit", key)
		}
	}
}
