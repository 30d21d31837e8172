package ui

import (
	"fmt"
	"math"
)

// DefaultSliderPercent is where the handle starts.
const DefaultSliderPercent = 50.0

// ClampPercent limits p to [0,100]. NaN maps to the default position.
func ClampPercent(p float64) float64 {
	if math.IsNaN(p) {
		return DefaultSliderPercent
	}
	return math.Max(0, math.Min(100, p))
}

// PercentAt converts a pointer x into a position inside a container that
// starts at left and is width wide. Pointers outside the container clamp.
func PercentAt(x, left, width float64) float64 {
	if width <= 0 {
		return DefaultSliderPercent
	}
	return ClampPercent((x - left) / width * 100)
}

// Slider is the before/after reveal. The before image is clipped to the
// handle position; dragging is a plain flag toggled on press and release.
type Slider struct {
	left     float64
	width    float64
	pos      float64
	dragging bool
}

func NewSlider() Slider {
	return Slider{pos: DefaultSliderPercent}
}

// Resize records the container geometry.
func (s *Slider) Resize(left, width float64) {
	s.left = left
	s.width = width
}

// Press starts a drag and jumps the handle to x.
func (s *Slider) Press(x float64) {
	s.dragging = true
	s.pos = PercentAt(x, s.left, s.width)
}

// Move follows the pointer while dragging, wherever the pointer is.
func (s *Slider) Move(x float64) {
	if !s.dragging {
		return
	}
	s.pos = PercentAt(x, s.left, s.width)
}

func (s *Slider) Release() {
	s.dragging = false
}

func (s *Slider) Dragging() bool {
	return s.dragging
}

// SetPercent places the handle directly, e.g. from a range input.
func (s *Slider) SetPercent(p float64) {
	s.pos = ClampPercent(p)
}

func (s *Slider) Position() float64 {
	return s.pos
}

// ClipWidth is the CSS width of the before image.
func (s *Slider) ClipWidth() string {
	return formatPercent(s.pos)
}

// HandleLeft is the CSS left offset of the handle.
func (s *Slider) HandleLeft() string {
	return formatPercent(s.pos)
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}
