package term

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rahul4469/photo-studio/internal/models"
	"github.com/rahul4469/photo-studio/internal/ui"
	"github.com/rahul4469/photo-studio/internal/watcher"
)

func TestBar(t *testing.T) {
	tests := []struct {
		percent int
		want    string
	}{
		{100, "[" + strings.Repeat("#", 20) + "]"},
		{45, "[#########" + strings.Repeat(".", 11) + "]"},
		{0, "[" + strings.Repeat(".", 20) + "]"},
		{150, "[" + strings.Repeat("#", 20) + "]"},
	}
	for _, tt := range tests {
		if got := Bar(tt.percent); got != tt.want {
			t.Errorf("Bar(%d) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestReportWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	v := ui.NewReportView(&models.AnalysisReport{
		OverallScore: 64,
		IssuesFound:  2,
		TotalMetrics: 6,
		Resolution:   "4032x3024",
		FileSizeKB:   2048,
		Filename:     "beach.jpg",
		Metrics: map[string]models.Metric{
			"contrast":   {Label: "Contrast", Severity: "moderate", Issue: "Flat tones"},
			"brightness": {Label: "Brightness", Severity: "good", Issue: "Well exposed"},
		},
		Recommendations: []models.Recommendation{{Action: "Boost contrast", Reason: "histogram is narrow"}},
	})
	if err := p.Report(context.Background(), v); err != nil {
		t.Fatalf("Report: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"beach.jpg", "2.0 MiB", "Score: 64/100", "Good photo", "1. Boost contrast (histogram is narrow)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Brightness") > strings.Index(out, "Contrast") {
		t.Error("metrics not in display order")
	}
	if strings.Contains(out, "\033[") || strings.Contains(out, "\r") {
		t.Error("non-terminal output should not animate")
	}
}

func TestReportAnimatesCountUp(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.SetAnimate(true)

	v := ui.NewReportView(&models.AnalysisReport{OverallScore: 90, TotalMetrics: 6, Filename: "a.png"})
	v.CountUp.Duration = 20 * time.Millisecond
	if err := p.Report(context.Background(), v); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\r") || !strings.Contains(out, " 90/100") {
		t.Errorf("output = %q", out)
	}
}

func TestProcessingStops(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.SetAnimate(true)

	stop := p.Processing(context.Background())
	stop()
	if !strings.Contains(buf.String(), ui.EnhancementSteps[0]) {
		t.Errorf("first step not printed: %q", buf.String())
	}
}

func TestResultAndOutcome(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	res := &models.EnhancementResult{
		InputSizeKB:    100,
		OutputSizeKB:   150,
		ProcessingTime: 1.5,
		Enhancements:   []string{"Exposure", "Contrast"},
		AnalysisBefore: &models.ImageStats{OverallBrightness: 60, OverallContrast: 30},
		AnalysisAfter:  &models.ImageStats{OverallBrightness: 120, OverallContrast: 45},
	}
	p.Result(ui.NewResultView(res, ui.DownloadLink{}), "out/a_enhanced.png", 1536)
	out := buf.String()
	for _, want := range []string{"Brightness: 60.0 -> 120.0 +", "100 KiB -> 150 KiB (+50 KiB)", "Exposure, Contrast", "out/a_enhanced.png (1.5 KiB)"} {
		if !strings.Contains(out, want) {
			t.Errorf("result missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	p.Outcome(watcher.Outcome{Action: "Modified", Name: "a.jpg", Err: errors.New("Enhancement failed")})
	if !strings.Contains(buf.String(), "[Modified] a.jpg detected!") || !strings.Contains(buf.String(), "ERROR: Enhancement failed") {
		t.Errorf("outcome = %q", buf.String())
	}
}
