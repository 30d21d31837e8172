// Package ui is the view controller of the photo studio: it owns the session
// view-model, the panel state machine and the pure presentation rules
// (score bands, severity bars, slider geometry, count-up easing). Front ends
// render what it exposes and feed user actions back through Controller.
package ui

// Panel is one mutually exclusive top-level region of the studio.
type Panel int

const (
	PanelUpload Panel = iota
	PanelAnalyzing
	PanelReport
	PanelProcessing
	PanelResult
	PanelError

	panelCount
)

var panelNames = [panelCount]string{
	PanelUpload:     "upload",
	PanelAnalyzing:  "analyzing",
	PanelReport:     "report",
	PanelProcessing: "processing",
	PanelResult:     "result",
	PanelError:      "error",
}

func (p Panel) String() string {
	if p < 0 || p >= panelCount {
		return "unknown"
	}
	return panelNames[p]
}

// Loading reports whether p waits on the backend.
func (p Panel) Loading() bool {
	return p == PanelAnalyzing || p == PanelProcessing
}

// AllPanels lists every panel in display order.
func AllPanels() []Panel {
	panels := make([]Panel, 0, panelCount)
	for p := Panel(0); p < panelCount; p++ {
		panels = append(panels, p)
	}
	return panels
}

// Panels tracks which panel carries the active marker.
// The zero value shows nothing; NewPanels starts on Upload.
type Panels struct {
	visible [panelCount]bool
}

func NewPanels() Panels {
	var ps Panels
	ps.Show(PanelUpload)
	return ps
}

// Show hides every panel and then makes p visible.
func (ps *Panels) Show(p Panel) {
	for i := range ps.visible {
		ps.visible[i] = false
	}
	if p >= 0 && p < panelCount {
		ps.visible[p] = true
	}
}

func (ps *Panels) Visible(p Panel) bool {
	if p < 0 || p >= panelCount {
		return false
	}
	return ps.visible[p]
}

// VisibleCount is 1 after every transition.
func (ps *Panels) VisibleCount() int {
	n := 0
	for _, v := range ps.visible {
		if v {
			n++
		}
	}
	return n
}

// Active returns the visible panel, or PanelUpload when none is shown.
func (ps *Panels) Active() Panel {
	for i, v := range ps.visible {
		if v {
			return Panel(i)
		}
	}
	return PanelUpload
}
