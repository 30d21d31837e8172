package ui

import (
	"fmt"
	"math"

	"github.com/rahul4469/photo-studio/internal/models"
)

// ScoreBand is the color band a score falls in.
type ScoreBand struct {
	Name  string
	Color string
}

var (
	BandGreen  = ScoreBand{Name: "green", Color: "#22c55e"}
	BandYellow = ScoreBand{Name: "yellow", Color: "#eab308"}
	BandOrange = ScoreBand{Name: "orange", Color: "#f97316"}
	BandRed    = ScoreBand{Name: "red", Color: "#ef4444"}
)

// BandForScore is a step function: >=80 green, >=60 yellow, >=40 orange, else red.
func BandForScore(score float64) ScoreBand {
	switch {
	case score >= 80:
		return BandGreen
	case score >= 60:
		return BandYellow
	case score >= 40:
		return BandOrange
	default:
		return BandRed
	}
}

// Summary tiers, highest first.
const (
	TierExcellent = "Excellent photo"
	TierGood      = "Good photo"
	TierFair      = "Fair photo"
	TierPoor      = "Needs work"
)

// SummaryTier names the tier of score, using the same thresholds as the bands.
func SummaryTier(score float64) string {
	switch BandForScore(score) {
	case BandGreen:
		return TierExcellent
	case BandYellow:
		return TierGood
	case BandOrange:
		return TierFair
	default:
		return TierPoor
	}
}

// SummaryMessage is the sentence under the gauge.
func SummaryMessage(score float64, issues, total int) string {
	tier := SummaryTier(score)
	switch {
	case issues == 0:
		return fmt.Sprintf("%s! All %d metrics look great.", tier, total)
	case tier == TierExcellent:
		return fmt.Sprintf("%s! Only %d of %d metrics could use a small touch-up.", tier, issues, total)
	case tier == TierGood:
		return fmt.Sprintf("%s with room to improve: %d of %d metrics need attention.", tier, issues, total)
	case tier == TierFair:
		return fmt.Sprintf("%s. %d of %d metrics need correction.", tier, issues, total)
	default:
		return fmt.Sprintf("%s: %d of %d metrics have significant problems.", tier, issues, total)
	}
}

// GaugeRadius is the radius of the circular score gauge.
const GaugeRadius = 54.0

// Gauge is the circular score indicator.
type Gauge struct {
	Score         int
	Band          ScoreBand
	Circumference float64
	DashOffset    float64
}

// NewGauge clamps score to [0,100] and derives the stroke geometry.
func NewGauge(score float64) Gauge {
	score = math.Max(0, math.Min(100, score))
	c := 2 * math.Pi * GaugeRadius
	return Gauge{
		Score:         int(math.Round(score)),
		Band:          BandForScore(score),
		Circumference: c,
		DashOffset:    c * (1 - score/100),
	}
}

// MetricOrder is the fixed display order of the metric grid.
var MetricOrder = []string{
	"brightness",
	"contrast",
	"color_cast",
	"saturation",
	"sharpness",
	"dynamic_range",
}

// SeverityBarWidth maps a severity to the fill-bar width in percent.
func SeverityBarWidth(severity string) int {
	switch severity {
	case models.SeverityGood:
		return 100
	case models.SeverityMild:
		return 70
	case models.SeverityModerate:
		return 45
	default:
		return 20
	}
}

// SeverityBadge is the badge label shown next to a metric.
func SeverityBadge(severity string) string {
	switch severity {
	case models.SeverityGood:
		return "Good"
	case models.SeverityMild:
		return "Mild"
	case models.SeverityModerate:
		return "Moderate"
	case models.SeveritySevere:
		return "Severe"
	case "":
		return "Unknown"
	default:
		return severity
	}
}

// MetricRow is one cell of the metric grid.
type MetricRow struct {
	Key      string
	Icon     string
	Label    string
	Severity string
	Badge    string
	Issue    string
	Detail   string
	BarWidth int
}

// MetricRows returns the grid in MetricOrder; keys missing from metrics are skipped.
func MetricRows(metrics map[string]models.Metric) []MetricRow {
	rows := make([]MetricRow, 0, len(MetricOrder))
	for _, key := range MetricOrder {
		m, ok := metrics[key]
		if !ok {
			continue
		}
		rows = append(rows, MetricRow{
			Key:      key,
			Icon:     m.Icon,
			Label:    m.Label,
			Severity: m.Severity,
			Badge:    SeverityBadge(m.Severity),
			Issue:    m.Issue,
			Detail:   m.Detail,
			BarWidth: SeverityBarWidth(m.Severity),
		})
	}
	return rows
}

// ReportView is everything the report panel renders.
type ReportView struct {
	PreviewURL      string
	Gauge           Gauge
	CountUp         CountUp
	Tier            string
	Summary         string
	IssuesFound     int
	TotalMetrics    int
	Resolution      string
	FileSizeKB      float64
	Metrics         []MetricRow
	Recommendations []models.Recommendation
	Filename        string
}

func NewReportView(r *models.AnalysisReport) ReportView {
	return ReportView{
		PreviewURL:      r.PreviewURL,
		Gauge:           NewGauge(r.OverallScore),
		CountUp:         NewCountUp(int(math.Round(r.OverallScore))),
		Tier:            SummaryTier(r.OverallScore),
		Summary:         SummaryMessage(r.OverallScore, r.IssuesFound, r.TotalMetrics),
		IssuesFound:     r.IssuesFound,
		TotalMetrics:    r.TotalMetrics,
		Resolution:      r.Resolution,
		FileSizeKB:      r.FileSizeKB,
		Metrics:         MetricRows(r.Metrics),
		Recommendations: r.Recommendations,
		Filename:        r.Filename,
	}
}
