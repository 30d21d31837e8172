package models

import "fmt"

// Severity values reported by the backend for each metric.
const (
	SeverityGood     = "good"
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// Metric is one entry of the analysis metric map.
type Metric struct {
	Icon     string `json:"icon"`
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Issue    string `json:"issue"`
	Detail   string `json:"detail"`
}

// Recommendation is one suggested corrective action.
type Recommendation struct {
	Icon   string `json:"icon"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// AnalysisReport is the body returned by POST /analyze.
// It is owned by the backend; the client never mutates it.
type AnalysisReport struct {
	PreviewURL      string            `json:"preview_url"`
	OverallScore    float64           `json:"overall_score"`
	IssuesFound     int               `json:"issues_found"`
	TotalMetrics    int               `json:"total_metrics"`
	Resolution      string            `json:"resolution"`
	FileSizeKB      float64           `json:"file_size_kb"`
	Metrics         map[string]Metric `json:"metrics"`
	Recommendations []Recommendation  `json:"recommendations"`
	Filename        string            `json:"filename"`
}

// ImageStats is a before/after snapshot attached to an enhancement result.
// The direct upload flow only fills the brightness and contrast fields; the
// analyze-first flow may also carry a score and a metric map.
type ImageStats struct {
	OverallScore      *float64          `json:"overall_score,omitempty"`
	OverallBrightness float64           `json:"overall_brightness"`
	OverallContrast   float64           `json:"overall_contrast"`
	GreenDominance    float64           `json:"green_dominance,omitempty"`
	RMean             float64           `json:"r_mean,omitempty"`
	GMean             float64           `json:"g_mean,omitempty"`
	BMean             float64           `json:"b_mean,omitempty"`
	HasGreenCast      bool              `json:"has_green_cast,omitempty"`
	IsUnderexposed    bool              `json:"is_underexposed,omitempty"`
	IsOverexposed     bool              `json:"is_overexposed,omitempty"`
	Metrics           map[string]Metric `json:"metrics,omitempty"`
}

// HasScore reports whether the snapshot carries an overall score.
func (s *ImageStats) HasScore() bool {
	return s != nil && s.OverallScore != nil
}

// EnhancementResult is the body returned by POST /enhance and POST /upload.
type EnhancementResult struct {
	OriginalPreviewURL string      `json:"original_preview_url"`
	PreviewURL         string      `json:"preview_url"`
	AnalysisBefore     *ImageStats `json:"analysis_before,omitempty"`
	AnalysisAfter      *ImageStats `json:"analysis_after,omitempty"`
	OriginalSize       string      `json:"original_size"`
	OriginalMode       string      `json:"original_mode,omitempty"`
	InputSizeKB        float64     `json:"input_size_kb"`
	OutputSizeKB       float64     `json:"output_size_kb"`
	ProcessingTime     float64     `json:"processing_time"`
	Enhancements       []string    `json:"enhancements"`
	DownloadURL        string      `json:"download_url"`
	OutputFilename     string      `json:"output_filename"`
}

// SizeDeltaKB is output minus input size in KB.
func (r *EnhancementResult) SizeDeltaKB() float64 {
	return r.OutputSizeKB - r.InputSizeKB
}

// ProcessingLabel formats the backend processing time, e.g. "2.4s".
func (r *EnhancementResult) ProcessingLabel() string {
	return fmt.Sprintf("%.1fs", r.ProcessingTime)
}
