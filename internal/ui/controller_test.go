package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rahul4469/photo-studio/internal/models"
	"github.com/rahul4469/photo-studio/internal/services"
)

type fakeBackend struct {
	mu sync.Mutex

	report    *models.AnalysisReport
	result    *models.EnhancementResult
	err       error
	download  string
	calls     []string
	uploaded  string
	enhanced  string
	gate      chan struct{}
	onRequest func()
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	hook := f.onRequest
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Analyze(_ context.Context, filename string, photo io.Reader) (*models.AnalysisReport, error) {
	data, _ := io.ReadAll(photo)
	f.mu.Lock()
	f.uploaded = filename + ":" + string(data)
	f.mu.Unlock()
	f.record("analyze")
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeBackend) Enhance(_ context.Context, filename string) (*models.EnhancementResult, error) {
	f.mu.Lock()
	f.enhanced = filename
	f.mu.Unlock()
	f.record("enhance")
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeBackend) Upload(_ context.Context, filename string, photo io.Reader) (*models.EnhancementResult, error) {
	io.Copy(io.Discard, photo)
	f.record("upload")
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeBackend) Download(_ context.Context, url string, w io.Writer) (string, error) {
	f.record("download")
	if f.err != nil {
		return "", f.err
	}
	_, err := io.WriteString(w, f.download)
	return "image/png", err
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []*models.HistoryEntry
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, e *models.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func photoFile(name string, size int64) *SelectedFile {
	return &SelectedFile{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("pixels")), nil
		},
	}
}

func sampleReport(score float64) *models.AnalysisReport {
	return &models.AnalysisReport{
		OverallScore: score,
		IssuesFound:  2,
		TotalMetrics: 6,
		Filename:     "stored_photo.png",
		Metrics: map[string]models.Metric{
			"brightness": {Label: "Brightness", Severity: models.SeverityMild},
			"contrast":   {Label: "Contrast", Severity: models.SeverityGood},
		},
	}
}

func sampleResult() *models.EnhancementResult {
	return &models.EnhancementResult{
		PreviewURL:     "http://backend/preview/out.png",
		DownloadURL:    "http://backend/download/out.png",
		OutputFilename: "photo_enhanced.png",
		InputSizeKB:    2048,
		OutputSizeKB:   1900,
		ProcessingTime: 1.2,
		Enhancements:   []string{"Exposure"},
	}
}

func TestAnalyzeThenEnhance(t *testing.T) {
	backend := &fakeBackend{report: sampleReport(72), result: sampleResult(), download: "PNGDATA"}
	rec := &fakeRecorder{}
	c := NewController(backend, WithRecorder(rec))
	s := NewSession("s1")
	ctx := context.Background()

	if err := c.Dispatch(ctx, s, Action{Kind: ActionSelectFile, File: photoFile("photo.png", 2<<20)}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := backend.Calls(); len(got) != 1 || got[0] != "analyze" {
		t.Fatalf("calls = %v, want [analyze]", got)
	}
	if backend.uploaded != "photo.png:pixels" {
		t.Errorf("uploaded = %q", backend.uploaded)
	}

	snap := s.Snapshot()
	if snap.Panel != PanelReport || s.VisiblePanels() != 1 {
		t.Fatalf("panel = %v, visible = %d", snap.Panel, s.VisiblePanels())
	}
	view := NewReportView(snap.Analysis)
	if view.Gauge.Band != BandYellow {
		t.Errorf("band = %s, want yellow", view.Gauge.Band.Name)
	}
	if !strings.HasPrefix(view.Summary, "Good photo") {
		t.Errorf("summary = %q", view.Summary)
	}

	if err := c.Dispatch(ctx, s, Action{Kind: ActionEnhance}); err != nil {
		t.Fatalf("enhance: %v", err)
	}
	if backend.enhanced != "stored_photo.png" {
		t.Errorf("enhance filename = %q", backend.enhanced)
	}
	snap = s.Snapshot()
	if snap.Panel != PanelResult {
		t.Fatalf("panel = %v, want result", snap.Panel)
	}
	if snap.Download == nil || snap.Download.Filename != "photo_enhanced.png" {
		t.Errorf("download = %+v", snap.Download)
	}

	if len(rec.entries) != 1 || rec.entries[0].SourceFilename != "photo.png" || rec.entries[0].Flow != "analyze" {
		t.Errorf("recorded = %+v", rec.entries)
	}

	var buf bytes.Buffer
	link, contentType, err := c.Download(ctx, s, &buf)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if buf.String() != "PNGDATA" || contentType != "image/png" || link.Filename != "photo_enhanced.png" {
		t.Errorf("download = %q %q %+v", buf.String(), contentType, link)
	}
	if s.Panel() != PanelResult {
		t.Error("download must not change the panel")
	}

	if err := c.Dispatch(ctx, s, Action{Kind: ActionReset}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap = s.Snapshot()
	if snap.Panel != PanelUpload || snap.File != nil || snap.Result != nil || snap.Download != nil {
		t.Errorf("after reset: %+v", snap)
	}
}

func TestOversizedFileMakesNoRequest(t *testing.T) {
	backend := &fakeBackend{report: sampleReport(90)}
	c := NewController(backend)
	s := NewSession("s1")

	opened := false
	file := photoFile("huge.jpg", 60<<20)
	file.Open = func() (io.ReadCloser, error) {
		opened = true
		return io.NopCloser(strings.NewReader("")), nil
	}

	if err := c.Dispatch(context.Background(), s, Action{Kind: ActionSelectFile, File: file}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if calls := backend.Calls(); len(calls) != 0 {
		t.Fatalf("calls = %v, want none", calls)
	}
	if opened {
		t.Error("oversized file was opened")
	}
	snap := s.Snapshot()
	if snap.Panel != PanelError || snap.Error != "File too large. Maximum size is 50 MB." {
		t.Errorf("panel=%v error=%q", snap.Panel, snap.Error)
	}
}

func TestBackendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "server message",
			err:  &services.ServerError{Status: 400, Message: "Image is corrupted"},
			want: "Image is corrupted",
		},
		{
			name: "server without message",
			err:  &services.ServerError{Status: 502},
			want: services.ConnectionErrorMessage,
		},
		{
			name: "transport",
			err:  services.ErrConnection,
			want: services.ConnectionErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(&fakeBackend{err: tt.err})
			s := NewSession("s1")
			if err := c.Dispatch(context.Background(), s, Action{Kind: ActionSelectFile, File: photoFile("a.jpg", 10)}); err != nil {
				t.Fatalf("select: %v", err)
			}
			snap := s.Snapshot()
			if snap.Panel != PanelError || snap.Error != tt.want {
				t.Errorf("panel=%v error=%q, want %q", snap.Panel, snap.Error, tt.want)
			}

			if err := c.Dispatch(context.Background(), s, Action{Kind: ActionRetry}); err != nil {
				t.Fatalf("retry: %v", err)
			}
			if s.Panel() != PanelUpload {
				t.Errorf("after retry panel = %v", s.Panel())
			}
		})
	}
}

func TestUnreadableFile(t *testing.T) {
	backend := &fakeBackend{report: sampleReport(50)}
	c := NewController(backend)
	s := NewSession("s1")

	file := photoFile("a.png", 10)
	file.Open = func() (io.ReadCloser, error) { return nil, errors.New("permission denied") }
	if err := c.Dispatch(context.Background(), s, Action{Kind: ActionSelectFile, File: file}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if snap := s.Snapshot(); snap.Panel != PanelError || snap.Error != ReadErrorMessage {
		t.Errorf("panel=%v error=%q", snap.Panel, snap.Error)
	}
	if len(backend.Calls()) != 0 {
		t.Error("backend was called")
	}
}

func TestInvalidTransitions(t *testing.T) {
	c := NewController(&fakeBackend{})
	s := NewSession("s1")
	ctx := context.Background()

	for _, kind := range []ActionKind{ActionEnhance, ActionRetry} {
		if err := c.Dispatch(ctx, s, Action{Kind: kind}); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s from upload: err = %v", kind, err)
		}
	}
	if s.Panel() != PanelUpload {
		t.Errorf("panel changed to %v", s.Panel())
	}
	if err := c.Dispatch(ctx, s, Action{Kind: ActionKind(99)}); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown action: err = %v", err)
	}
	if err := c.Dispatch(ctx, s, Action{Kind: ActionSelectFile}); !errors.Is(err, ErrNoFile) {
		t.Errorf("select without file: err = %v", err)
	}
	if _, _, err := c.Download(ctx, s, io.Discard); !errors.Is(err, ErrNoDownload) {
		t.Errorf("download without result: err = %v", err)
	}
}

func TestDirectFlow(t *testing.T) {
	backend := &fakeBackend{result: sampleResult()}
	backend.result.OutputFilename = ""
	rec := &fakeRecorder{err: models.ErrHistoryDuplicate}
	c := NewController(backend, WithFlow(FlowDirect), WithRecorder(rec))
	s := NewSession("s1")

	if err := c.Dispatch(context.Background(), s, Action{Kind: ActionSelectFile, File: photoFile("holiday.jpeg", 100)}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if calls := backend.Calls(); len(calls) != 1 || calls[0] != "upload" {
		t.Fatalf("calls = %v, want [upload]", calls)
	}
	snap := s.Snapshot()
	if snap.Panel != PanelResult || snap.Flow != FlowDirect {
		t.Fatalf("panel=%v flow=%v", snap.Panel, snap.Flow)
	}
	if snap.Download.Filename != "holiday_enhanced.png" {
		t.Errorf("filename = %q", snap.Download.Filename)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("recorder called %d times", len(rec.entries))
	}
	if e := rec.entries[0]; e.OutputFilename != "holiday_enhanced.png" || e.Flow != "direct" {
		t.Errorf("entry = %+v", e)
	}
}

func TestFlowOverridePerAction(t *testing.T) {
	backend := &fakeBackend{result: sampleResult(), report: sampleReport(80)}
	c := NewController(backend)
	s := NewSession("s1")

	err := c.Dispatch(context.Background(), s, Action{Kind: ActionSelectFile, File: photoFile("a.png", 1), Flow: FlowDirect})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if calls := backend.Calls(); len(calls) != 1 || calls[0] != "upload" {
		t.Errorf("calls = %v", calls)
	}
}

func TestResetDiscardsLateResponse(t *testing.T) {
	backend := &fakeBackend{report: sampleReport(90), gate: make(chan struct{})}
	started := make(chan struct{})
	backend.onRequest = func() { close(started) }
	c := NewController(backend)
	s := NewSession("s1")

	done := make(chan error, 1)
	go func() {
		done <- c.Dispatch(context.Background(), s, Action{Kind: ActionSelectFile, File: photoFile("a.png", 1)})
	}()

	<-started
	if s.Panel() != PanelAnalyzing {
		t.Fatalf("in flight panel = %v", s.Panel())
	}
	if err := c.Dispatch(context.Background(), s, Action{Kind: ActionReset}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	close(backend.gate)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("select: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not return")
	}

	snap := s.Snapshot()
	if snap.Panel != PanelUpload || snap.Analysis != nil {
		t.Errorf("late response applied: panel=%v analysis=%v", snap.Panel, snap.Analysis)
	}
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestLoadingSinceUsesClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	backend := &fakeBackend{report: sampleReport(50), gate: make(chan struct{})}
	started := make(chan struct{})
	backend.onRequest = func() { close(started) }
	c := NewController(backend, WithClock(fixedClock{at}))
	s := NewSession("s1")

	go c.Dispatch(context.Background(), s, Action{Kind: ActionSelectFile, File: photoFile("a.png", 1)})
	<-started
	if got := s.Snapshot().LoadingSince; !got.Equal(at) {
		t.Errorf("loading since = %v, want %v", got, at)
	}
	close(backend.gate)
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		source, backend, want string
	}{
		{"photo.png", "server.jpg", "server.jpg"},
		{"photo.png", "", "photo_enhanced.png"},
		{"dir/IMG_1.JPEG", "", "IMG_1_enhanced.png"},
		{"", "", "photo_enhanced.png"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.source, tt.backend); got != tt.want {
			t.Errorf("OutputName(%q, %q) = %q, want %q", tt.source, tt.backend, got, tt.want)
		}
	}
}

func TestSubmitShowsLoadingBeforeRequest(t *testing.T) {
	backend := &fakeBackend{report: sampleReport(64)}
	c := NewController(backend)
	s := NewSession("s1")

	run, err := c.Submit(s, Action{Kind: ActionSelectFile, File: photoFile("a.bmp", 10)})
	if err != nil || run == nil {
		t.Fatalf("Submit: run nil=%t, err=%v", run == nil, err)
	}
	if s.Panel() != PanelAnalyzing || len(backend.Calls()) != 0 {
		t.Fatalf("before run: panel=%v calls=%v", s.Panel(), backend.Calls())
	}
	run(context.Background())
	if s.Panel() != PanelReport {
		t.Errorf("after run: panel=%v", s.Panel())
	}

	run, err = c.Submit(s, Action{Kind: ActionReset})
	if err != nil || run != nil {
		t.Errorf("reset Submit: run nil=%t, err=%v", run == nil, err)
	}
}

func TestReject(t *testing.T) {
	c := NewController(&fakeBackend{})
	s := NewSession("s1")

	if err := c.Reject(s, &IntakeError{Kind: IntakeTooLarge, Size: 80 << 20}); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	snap := s.Snapshot()
	if snap.Panel != PanelError || snap.Error != "File too large. Maximum size is 50 MB." {
		t.Errorf("panel=%v error=%q", snap.Panel, snap.Error)
	}
	if err := c.Reject(s, &IntakeError{Kind: IntakeTooLarge}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Reject from error panel: err = %v", err)
	}
}
