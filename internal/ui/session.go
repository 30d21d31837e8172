package ui

import (
	"sync"
	"time"

	"github.com/rahul4469/photo-studio/internal/models"
)

// Flow selects which backend contract a session follows.
type Flow string

const (
	// FlowAnalyzeFirst calls /analyze, shows the report, then /enhance.
	FlowAnalyzeFirst Flow = "analyze"
	// FlowDirect sends the photo straight to /upload.
	FlowDirect Flow = "direct"
)

// ParseFlow maps a config or form value to a Flow.
func ParseFlow(s string) (Flow, bool) {
	switch Flow(s) {
	case FlowAnalyzeFirst:
		return FlowAnalyzeFirst, true
	case FlowDirect:
		return FlowDirect, true
	default:
		return "", false
	}
}

// Clock is injected so tests can pin time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FileInfo is the part of the selected file kept for display.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Session is the view-model of one user: what was picked, what the backend
// said, and which panel is showing. All fields are guarded by mu; network
// calls never run while mu is held.
type Session struct {
	mu sync.Mutex

	id           string
	flow         Flow
	panels       Panels
	file         *SelectedFile
	analysis     *models.AnalysisReport
	result       *models.EnhancementResult
	download     *DownloadLink
	errMsg       string
	loadingSince time.Time
	preview      []byte
	slider       Slider

	// gen is bumped on every selection and reset; a response carrying an
	// older generation is dropped.
	gen uint64
}

func NewSession(id string) *Session {
	return &Session{
		id:     id,
		panels: NewPanels(),
		slider: NewSlider(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot is an immutable copy of a session for rendering.
type Snapshot struct {
	ID           string
	Flow         Flow
	Panel        Panel
	File         *FileInfo
	Analysis     *models.AnalysisReport
	Result       *models.EnhancementResult
	Download     *DownloadLink
	Error        string
	LoadingSince time.Time
	HasPreview   bool
	SliderPos    float64
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:           s.id,
		Flow:         s.flow,
		Panel:        s.panels.Active(),
		Analysis:     s.analysis,
		Result:       s.result,
		Error:        s.errMsg,
		LoadingSince: s.loadingSince,
		HasPreview:   len(s.preview) > 0,
		SliderPos:    s.slider.Position(),
	}
	if s.file != nil {
		snap.File = &FileInfo{Name: s.file.Name, Size: s.file.Size}
	}
	if s.download != nil {
		d := *s.download
		snap.Download = &d
	}
	return snap
}

// Panel returns the active panel.
func (s *Session) Panel() Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panels.Active()
}

// VisiblePanels returns how many panels carry the active marker.
func (s *Session) VisiblePanels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panels.VisibleCount()
}

// Preview returns the local thumbnail of the selected photo, if any.
func (s *Session) Preview() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// SetSliderPercent moves the comparison handle to p (clamped).
func (s *Session) SetSliderPercent(p float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slider.SetPercent(p)
	return s.slider.Position()
}

// PointSlider moves the handle to a click at x on a comparison image that
// is width wide. A click is a press and release at the same spot.
func (s *Session) PointSlider(x, width float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slider.Resize(0, width)
	s.slider.Press(x)
	s.slider.Release()
	return s.slider.Position()
}

// show switches panels; callers hold mu.
func (s *Session) show(p Panel) {
	s.panels.Show(p)
}

// clear drops everything tied to the previous file; callers hold mu.
func (s *Session) clear() {
	s.file = nil
	s.analysis = nil
	s.result = nil
	s.download = nil
	s.errMsg = ""
	s.loadingSince = time.Time{}
	s.preview = nil
	s.slider = NewSlider()
	s.gen++
}

// fail routes to the error panel; callers hold mu.
func (s *Session) fail(msg string) {
	s.errMsg = msg
	s.loadingSince = time.Time{}
	s.show(PanelError)
}
