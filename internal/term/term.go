// Package term renders studio panels as plain terminal output.
package term

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/rahul4469/photo-studio/internal/ui"
	"github.com/rahul4469/photo-studio/internal/watcher"
)

// BarWidth is the number of cells in a full severity bar.
const BarWidth = 20

var bandColors = map[string]string{
	ui.BandGreen.Name:  "\033[32m",
	ui.BandYellow.Name: "\033[33m",
	ui.BandOrange.Name: "\033[38;5;208m",
	ui.BandRed.Name:    "\033[31m",
}

const colorReset = "\033[0m"

// Printer writes panels to w. Animations and colors are only used when w
// is a terminal.
type Printer struct {
	w       io.Writer
	animate bool
	mu      sync.Mutex
}

func New(w io.Writer) *Printer {
	p := &Printer{w: w}
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		p.animate = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return p
}

// SetAnimate overrides terminal detection.
func (p *Printer) SetAnimate(on bool) {
	p.animate = on
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) colored(band ui.ScoreBand, s string) string {
	if !p.animate {
		return s
	}
	return bandColors[band.Name] + s + colorReset
}

// Bar draws a severity bar for a width given in percent.
func Bar(percent int) string {
	filled := percent * BarWidth / 100
	if filled < 0 {
		filled = 0
	}
	if filled > BarWidth {
		filled = BarWidth
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", BarWidth-filled) + "]"
}

// Report prints the analysis panel. The score counts up when animating.
func (p *Printer) Report(ctx context.Context, v ui.ReportView) error {
	p.printf("\n  %s", v.Filename)
	if v.Resolution != "" {
		p.printf("  %s", v.Resolution)
	}
	if v.FileSizeKB > 0 {
		p.printf("  %s", humanize.IBytes(uint64(v.FileSizeKB*1024)))
	}
	p.printf("\n\n")

	if p.animate {
		err := v.CountUp.Run(ctx, ui.FrameInterval, func(n int) {
			p.printf("\r  Score: %s", p.colored(v.Gauge.Band, fmt.Sprintf("%3d/100", n)))
		})
		if err != nil {
			return err
		}
		p.printf("\n")
	} else {
		p.printf("  Score: %d/100\n", v.Gauge.Score)
	}
	p.printf("  %s\n\n", v.Summary)

	for _, m := range v.Metrics {
		p.printf("  %-14s %s %-8s %s\n", m.Label, Bar(m.BarWidth), m.Badge, m.Issue)
		if m.Detail != "" {
			p.printf("  %-14s %s\n", "", m.Detail)
		}
	}

	if len(v.Recommendations) > 0 {
		p.printf("\n  Recommendations:\n")
		for i, r := range v.Recommendations {
			p.printf("  %d. %s", i+1, r.Action)
			if r.Reason != "" {
				p.printf(" (%s)", r.Reason)
			}
			p.printf("\n")
		}
	}
	return nil
}

// Processing prints the checklist until the returned stop function is
// called. Without a terminal it prints a single line.
func (p *Printer) Processing(ctx context.Context) (stop func()) {
	if !p.animate {
		p.printf("  Enhancing...\n")
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ui.NewChecklist().Run(ctx, func(_ int, step string) {
			p.printf("  - %s\n", step)
		})
	}()
	return func() {
		cancel()
		<-done
	}
}

// Result prints the enhancement panel and where the output was saved.
func (p *Printer) Result(v ui.ResultView, saved string, size int64) {
	p.printf("\n  Enhanced")
	if v.Processing != "" {
		p.printf(" in %s", v.Processing)
	}
	p.printf("\n")
	if v.Resolution != "" {
		p.printf("  Resolution: %s\n", v.Resolution)
	}
	for _, row := range v.Comparison {
		mark := ""
		if row.Improved {
			mark = " +"
		}
		p.printf("  %-11s %s -> %s%s\n", row.Label+":", row.Before, row.After, mark)
	}
	p.printf("  Size:       %s -> %s (%s)\n", v.InputKB, v.OutputKB, v.DeltaKB)
	if len(v.Enhancements) > 0 {
		p.printf("  Applied:    %s\n", strings.Join(v.Enhancements, ", "))
	}
	if saved != "" {
		p.printf("  Saved:      %s (%s)\n", saved, humanize.IBytes(uint64(max(size, 0))))
	}
}

// Error prints the error panel message.
func (p *Printer) Error(msg string) {
	p.printf("\n  Error: %s\n", msg)
}

// Outcome prints one watcher result.
func (p *Printer) Outcome(o watcher.Outcome) {
	p.printf("\n  [%s] %s detected!\n", o.Action, o.Name)
	if o.Err != nil {
		p.printf("  ERROR: %v\n", o.Err)
		return
	}
	p.printf("  DONE! (%.1fs)\n", o.Elapsed.Round(100*time.Millisecond).Seconds())
	if o.Output != "" {
		size := int64(0)
		if info, err := os.Stat(o.Output); err == nil {
			size = info.Size()
		}
		p.printf("    -> %s (%s)\n", o.Output, humanize.IBytes(uint64(size)))
	}
	if o.Result != nil {
		v := ui.NewResultView(o.Result, ui.DownloadLink{})
		for _, row := range v.Comparison {
			p.printf("    %-11s %s -> %s\n", row.Label+":", row.Before, row.After)
		}
	}
	if o.ArchiveURL != "" {
		p.printf("    Archived: %s\n", o.ArchiveURL)
	}
}
