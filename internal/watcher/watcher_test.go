package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rahul4469/photo-studio/internal/models"
	"github.com/rahul4469/photo-studio/internal/services"
	"github.com/rahul4469/photo-studio/internal/ui"
)

type fakeBackend struct {
	mu      sync.Mutex
	err     error
	uploads []string
}

func (f *fakeBackend) Analyze(context.Context, string, io.Reader) (*models.AnalysisReport, error) {
	return nil, errors.New("not used")
}

func (f *fakeBackend) Enhance(context.Context, string) (*models.EnhancementResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeBackend) Upload(_ context.Context, filename string, photo io.Reader) (*models.EnhancementResult, error) {
	data, _ := io.ReadAll(photo)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, filename+":"+string(data))
	if f.err != nil {
		return nil, f.err
	}
	return &models.EnhancementResult{
		DownloadURL:  "http://backend/download/" + filename,
		InputSizeKB:  1,
		OutputSizeKB: 2,
	}, nil
}

func (f *fakeBackend) Download(_ context.Context, url string, w io.Writer) (string, error) {
	_, err := io.WriteString(w, "enhanced "+url)
	return "image/png", err
}

func (f *fakeBackend) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeBackend) Uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

type fakeArchive struct {
	keys []string
}

func (a *fakeArchive) Archive(_ context.Context, localPath, key string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	a.keys = append(a.keys, key)
	return "http://minio/" + key, nil
}

func newTestWatcher(t *testing.T, backend *fakeBackend, opts Options) *Watcher {
	t.Helper()
	dir := t.TempDir()
	if opts.Dir == "" {
		opts.Dir = filepath.Join(dir, "in")
	}
	if opts.OutDir == "" {
		opts.OutDir = filepath.Join(dir, "out")
	}
	opts.Settle = time.Millisecond
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	c := ui.NewController(backend, ui.WithLogger(opts.Logger))
	w := New(c, opts)
	if err := w.prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanEnhancesNewPhotos(t *testing.T) {
	backend := &fakeBackend{}
	var outcomes []Outcome
	w := newTestWatcher(t, backend, Options{OnProcessed: func(o Outcome) { outcomes = append(outcomes, o) }})

	writeFile(t, filepath.Join(w.opts.Dir, "beach.JPG"), "pixels")
	writeFile(t, filepath.Join(w.opts.Dir, "notes.txt"), "not a photo")

	n, err := w.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 1 {
		t.Fatalf("processed = %d, want 1", n)
	}

	out := filepath.Join(w.opts.OutDir, "beach_enhanced.png")
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "enhanced http://backend/download/beach.JPG" {
		t.Errorf("output = %q", data)
	}
	if len(outcomes) != 1 || outcomes[0].Action != "New" || outcomes[0].Output != out {
		t.Errorf("outcomes = %+v", outcomes)
	}

	if _, err := os.Stat(filepath.Join(w.opts.Dir, TrackerFile)); err != nil {
		t.Errorf("tracker not saved: %v", err)
	}

	n, _ = w.Scan(context.Background())
	if n != 0 {
		t.Errorf("second scan processed %d, want 0", n)
	}
	if got := backend.Uploads(); len(got) != 1 || got[0] != "beach.JPG:pixels" {
		t.Errorf("uploads = %v", got)
	}
}

func TestScanReprocessesModifiedPhoto(t *testing.T) {
	backend := &fakeBackend{}
	var actions []string
	w := newTestWatcher(t, backend, Options{OnProcessed: func(o Outcome) { actions = append(actions, o.Action) }})

	p := filepath.Join(w.opts.Dir, "dog.png")
	writeFile(t, p, "v1")
	w.Scan(context.Background())

	writeFile(t, p, "version two")
	n, _ := w.Scan(context.Background())
	if n != 1 {
		t.Fatalf("processed = %d, want 1", n)
	}
	if strings.Join(actions, ",") != "New,Modified" {
		t.Errorf("actions = %v", actions)
	}
}

func TestBackendFailureIsRetried(t *testing.T) {
	backend := &fakeBackend{}
	backend.setErr(&services.ServerError{Status: 500, Message: "Enhancement failed"})
	var outcomes []Outcome
	w := newTestWatcher(t, backend, Options{OnProcessed: func(o Outcome) { outcomes = append(outcomes, o) }})

	writeFile(t, filepath.Join(w.opts.Dir, "cat.webp"), "meow")

	if n, _ := w.Scan(context.Background()); n != 0 {
		t.Fatalf("processed = %d, want 0", n)
	}
	if len(outcomes) != 1 || outcomes[0].Err == nil || outcomes[0].Err.Error() != "Enhancement failed" {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	if w.Tracked() != 0 {
		t.Errorf("failed file should not be tracked")
	}

	backend.setErr(nil)
	if n, _ := w.Scan(context.Background()); n != 1 {
		t.Errorf("retry processed = %d, want 1", n)
	}
}

func TestEmptyFileIsNotReady(t *testing.T) {
	backend := &fakeBackend{}
	w := newTestWatcher(t, backend, Options{})

	writeFile(t, filepath.Join(w.opts.Dir, "partial.jpg"), "")

	if n, _ := w.Scan(context.Background()); n != 0 {
		t.Errorf("processed = %d, want 0", n)
	}
	if len(backend.Uploads()) != 0 || w.Tracked() != 0 {
		t.Error("empty file should be left alone")
	}
}

func TestArchiveReceivesOutput(t *testing.T) {
	archive := &fakeArchive{}
	var outcome Outcome
	w := newTestWatcher(t, &fakeBackend{}, Options{
		Archive:     archive,
		OnProcessed: func(o Outcome) { outcome = o },
	})
	w.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

	writeFile(t, filepath.Join(w.opts.Dir, "tree.bmp"), "bark")
	w.Scan(context.Background())

	if len(archive.keys) != 1 || archive.keys[0] != "2026-10-15/tree_enhanced.png" {
		t.Errorf("keys = %v", archive.keys)
	}
	if outcome.ArchiveURL != "http://minio/2026-10-15/tree_enhanced.png" {
		t.Errorf("ArchiveURL = %q", outcome.ArchiveURL)
	}
}

func TestTrackerPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), TrackerFile)

	tr, err := LoadTracker(path)
	if err != nil {
		t.Fatalf("LoadTracker(missing): %v", err)
	}
	tr.Mark("b.jpg", "fp-b")
	tr.Mark("a.jpg", "fp-a")
	if err := tr.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := LoadTracker(path)
	if err != nil {
		t.Fatalf("LoadTracker: %v", err)
	}
	if !again.Seen("a.jpg", "fp-a") || again.Seen("a.jpg", "other") {
		t.Error("fingerprints not restored")
	}
	if got := strings.Join(again.Names(), ","); got != "a.jpg,b.jpg" {
		t.Errorf("Names = %s", got)
	}

	writeFile(t, path, "{not json")
	if _, err := LoadTracker(path); err == nil {
		t.Error("expected error for corrupt tracker")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	processed := make(chan struct{}, 1)
	w := newTestWatcher(t, &fakeBackend{}, Options{
		Interval:    10 * time.Millisecond,
		OnProcessed: func(Outcome) { processed <- struct{}{} },
	})
	writeFile(t, filepath.Join(w.opts.Dir, "a.tiff"), "data")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-processed:
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not process the photo")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
