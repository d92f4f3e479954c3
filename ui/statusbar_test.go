package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestStatusBar_Baseline(t *testing.T) {
	sb := NewStatusBar()
	sb.SetSize(80)
	sb.SetData(StatusBarData{
		PhaseTitle: "Phase 2 of 4: Targeted Follow-ups",
		Status:     "in_progress",
	})

	result := sb.String()
	assert.Contains(t, result, "discovery")
	assert.Contains(t, result, "Phase 2 of 4: Targeted Follow-ups")
	assert.Contains(t, result, "in progress")
	// Should be exactly 1 line (no newlines in output)
	assert.Equal(t, 0, strings.Count(result, "\n"))
}

func TestStatusBar_ProjectAndDemo(t *testing.T) {
	sb := NewStatusBar()
	sb.SetSize(120)
	sb.SetData(StatusBarData{
		PhaseTitle: "Phase 1 of 4: Open Discovery",
		Status:     "not_started",
		Project:    "acme",
		Demo:       true,
	})

	result := sb.String()
	assert.Contains(t, result, "project acme")
	assert.Contains(t, result, "DEMO")
	assert.Contains(t, result, "not started")
}

func TestStatusBar_TooNarrow(t *testing.T) {
	sb := NewStatusBar()
	sb.SetSize(5)
	assert.Empty(t, sb.String())
}

func TestStatusBar_TruncatesToWidth(t *testing.T) {
	sb := NewStatusBar()
	sb.SetSize(30)
	sb.SetData(StatusBarData{
		PhaseTitle: "Phase 2 of 4: Targeted Follow-ups",
		Status:     "in_progress",
		Project:    "a-rather-long-project-identifier",
	})

	assert.LessOrEqual(t, ansi.StringWidth(sb.String()), 30)
}
