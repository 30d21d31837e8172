// Package watcher enhances every photo dropped into a folder using the
// direct upload flow of the studio controller.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rahul4469/photo-studio/internal/models"
	"github.com/rahul4469/photo-studio/internal/storage"
	"github.com/rahul4469/photo-studio/internal/ui"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultSettle   = 500 * time.Millisecond
)

// Archiver copies a finished output somewhere durable. storage.Store
// implements it.
type Archiver interface {
	Archive(ctx context.Context, localPath, key string) (string, error)
}

// Outcome describes one handled file.
type Outcome struct {
	Action     string // "New" or "Modified"
	Name       string
	Output     string
	Elapsed    time.Duration
	Result     *models.EnhancementResult
	ArchiveURL string
	Err        error
}

type Options struct {
	Dir      string
	OutDir   string
	Tracker  string // defaults to Dir/.processed_tracker.json
	Interval time.Duration
	Settle   time.Duration
	Archive  Archiver
	Logger   *slog.Logger
	// OnProcessed is called after every file the watcher acts on.
	OnProcessed func(Outcome)
}

type Watcher struct {
	opts       Options
	controller *ui.Controller
	tracker    *Tracker
	logger     *slog.Logger
	now        func() time.Time
}

func New(controller *ui.Controller, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	if opts.Tracker == "" {
		opts.Tracker = filepath.Join(opts.Dir, TrackerFile)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		opts:       opts,
		controller: controller,
		logger:     logger.With("component", "watcher"),
		now:        time.Now,
	}
}

// Tracked returns how many files the tracker knows about.
func (w *Watcher) Tracked() int {
	if w.tracker == nil {
		return 0
	}
	return w.tracker.Len()
}

// Run performs an initial scan and then polls until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.prepare(); err != nil {
		return err
	}

	n, err := w.Scan(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("initial scan complete", "dir", w.opts.Dir, "processed", n, "tracked", w.tracker.Len())

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped", "tracked", w.tracker.Len())
			return nil
		case <-ticker.C:
			if _, err := w.Scan(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("scan failed", "dir", w.opts.Dir, "error", err)
			}
		}
	}
}

func (w *Watcher) prepare() error {
	for _, dir := range []string{w.opts.Dir, w.opts.OutDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if w.tracker != nil {
		return nil
	}
	t, err := LoadTracker(w.opts.Tracker)
	if err != nil {
		return err
	}
	w.tracker = t
	return nil
}

// Scan handles every new or modified photo in the watched folder once and
// returns how many were enhanced.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	if err := w.prepare(); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", w.opts.Dir, err)
	}

	processed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if entry.IsDir() || !ui.IsSupportedExtension(ui.FileExtension(entry.Name())) {
			continue
		}
		if w.process(ctx, filepath.Join(w.opts.Dir, entry.Name())) {
			processed++
		}
	}
	return processed, nil
}

// Ready reports whether the file at p has stopped growing: its size is
// unchanged across settle and non-zero.
func Ready(ctx context.Context, p string, settle time.Duration) bool {
	before, err := os.Stat(p)
	if err != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(settle):
	}
	after, err := os.Stat(p)
	if err != nil {
		return false
	}
	return before.Size() == after.Size() && after.Size() > 0
}

func (w *Watcher) process(ctx context.Context, p string) bool {
	name := filepath.Base(p)

	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	if w.tracker.Seen(name, Fingerprint(p, info)) {
		return false
	}
	if !Ready(ctx, p, w.opts.Settle) {
		return false
	}
	// Re-read after settling so the stored fingerprint matches the final file.
	if info, err = os.Stat(p); err != nil {
		return false
	}
	fp := Fingerprint(p, info)

	action := "New"
	if w.tracker.Known(name) {
		action = "Modified"
	}
	w.logger.Info("photo detected", "action", action, "file", name, "size", info.Size())

	outcome := w.enhance(ctx, p, info)
	outcome.Action = action

	var intakeErr *ui.IntakeError
	switch {
	case outcome.Err == nil:
		w.tracker.Mark(name, fp)
	case errors.As(outcome.Err, &intakeErr):
		// The file itself is unusable; wait for it to change.
		w.tracker.Mark(name, fp)
		w.logger.Warn("photo skipped", "file", name, "reason", intakeErr)
	default:
		w.logger.Warn("enhancement failed, will retry on next scan", "file", name, "error", outcome.Err)
	}
	if outcome.Err == nil || intakeErr != nil {
		if err := w.tracker.Save(); err != nil {
			w.logger.Error("failed to save tracker", "path", w.opts.Tracker, "error", err)
		}
	}

	if w.opts.OnProcessed != nil {
		w.opts.OnProcessed(outcome)
	}
	return outcome.Err == nil
}

func (w *Watcher) enhance(ctx context.Context, p string, info os.FileInfo) (out Outcome) {
	name := filepath.Base(p)
	out.Name = name
	start := w.now()
	defer func() { out.Elapsed = w.now().Sub(start) }()

	if err := ui.ValidateFile(name, info.Size()); err != nil {
		out.Err = err
		return out
	}

	s := ui.NewSession(uuid.NewString())
	err := w.controller.Dispatch(ctx, s, ui.Action{
		Kind: ui.ActionSelectFile,
		Flow: ui.FlowDirect,
		File: &ui.SelectedFile{
			Name: name,
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) { return os.Open(p) },
		},
	})
	if err != nil {
		out.Err = err
		return out
	}

	snap := s.Snapshot()
	if snap.Panel != ui.PanelResult {
		out.Err = errors.New(snap.Error)
		return out
	}
	out.Result = snap.Result

	output, err := w.save(ctx, s)
	if err != nil {
		out.Err = err
		return out
	}
	out.Output = output

	if w.opts.Archive != nil {
		key := storage.Key(w.now().Format("2006-01-02"), output)
		url, err := w.opts.Archive.Archive(ctx, output, key)
		if err != nil {
			// The local output exists, so the file still counts as done.
			w.logger.Warn("archive failed", "file", output, "error", err)
		} else {
			out.ArchiveURL = url
		}
	}
	return out
}

// save downloads the enhanced photo of s into OutDir.
func (w *Watcher) save(ctx context.Context, s *ui.Session) (string, error) {
	tmp, err := os.CreateTemp(w.opts.OutDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	link, _, err := w.controller.Download(ctx, s, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("download output: %w", err)
	}

	output := filepath.Join(w.opts.OutDir, filepath.Base(link.Filename))
	if err := os.Rename(tmp.Name(), output); err != nil {
		return "", fmt.Errorf("save output: %w", err)
	}
	return output, nil
}
