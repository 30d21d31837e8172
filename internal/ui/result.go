package ui

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/rahul4469/photo-studio/internal/models"
)

// ComparisonRow is one before/after line of the result panel.
type ComparisonRow struct {
	Label  string
	Before string
	After  string
	// Improved is true when After moved in the wanted direction.
	Improved bool
}

// ResultView is everything the result panel renders.
type ResultView struct {
	OriginalURL  string
	EnhancedURL  string
	Resolution   string
	Comparison   []ComparisonRow
	ScoreBefore  *Gauge
	ScoreAfter   *Gauge
	InputKB      string
	OutputKB     string
	DeltaKB      string
	Processing   string
	Enhancements []string
	Download     DownloadLink
}

// NewResultView builds the panel from an enhancement result. When both
// snapshots carry an overall score the comparison is the score; otherwise
// brightness and contrast are compared.
func NewResultView(r *models.EnhancementResult, link DownloadLink) ResultView {
	v := ResultView{
		OriginalURL:  r.OriginalPreviewURL,
		EnhancedURL:  r.PreviewURL,
		Resolution:   r.OriginalSize,
		InputKB:      formatKB(r.InputSizeKB),
		OutputKB:     formatKB(r.OutputSizeKB),
		DeltaKB:      formatDeltaKB(r.SizeDeltaKB()),
		Processing:   r.ProcessingLabel(),
		Enhancements: r.Enhancements,
		Download:     link,
	}

	before, after := r.AnalysisBefore, r.AnalysisAfter
	switch {
	case before.HasScore() && after.HasScore():
		gb, ga := NewGauge(*before.OverallScore), NewGauge(*after.OverallScore)
		v.ScoreBefore, v.ScoreAfter = &gb, &ga
		v.Comparison = []ComparisonRow{{
			Label:    "Score",
			Before:   fmt.Sprintf("%d", gb.Score),
			After:    fmt.Sprintf("%d", ga.Score),
			Improved: ga.Score > gb.Score,
		}}
	case before != nil && after != nil:
		v.Comparison = []ComparisonRow{
			{
				Label:  "Brightness",
				Before: fmt.Sprintf("%.1f", before.OverallBrightness),
				After:  fmt.Sprintf("%.1f", after.OverallBrightness),
				// Mid-grey is the target for 8-bit luminance.
				Improved: math.Abs(after.OverallBrightness-128) < math.Abs(before.OverallBrightness-128),
			},
			{
				Label:    "Contrast",
				Before:   fmt.Sprintf("%.1f", before.OverallContrast),
				After:    fmt.Sprintf("%.1f", after.OverallContrast),
				Improved: after.OverallContrast > before.OverallContrast,
			},
		}
	}
	return v
}

// formatKB renders a backend size in KB the way the rest of the studio
// renders byte counts.
func formatKB(kb float64) string {
	return humanize.IBytes(uint64(math.Round(math.Max(kb, 0) * 1024)))
}

func formatDeltaKB(kb float64) string {
	if kb < 0 {
		return "-" + formatKB(-kb)
	}
	return "+" + formatKB(kb)
}
