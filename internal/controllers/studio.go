package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/csrf"
	"github.com/rahul4469/photo-studio/internal/middleware"
	"github.com/rahul4469/photo-studio/internal/models"
	"github.com/rahul4469/photo-studio/internal/preview"
	"github.com/rahul4469/photo-studio/internal/services"
	"github.com/rahul4469/photo-studio/internal/ui"
	"github.com/rahul4469/photo-studio/internal/views"
)

const (
	// loadingRefresh is how often a loading panel reloads itself.
	loadingRefresh = 1
	// CompareWidth is the rendered width in pixels of the comparison image.
	CompareWidth = 640
)

// StudioController serves the single-page photo studio.
type StudioController struct {
	ui             *ui.Controller
	templates      StudioTemplates
	logger         *slog.Logger
	requestTimeout time.Duration
	isDevelopment  bool

	// inflight tracks backend calls that outlive their HTTP request.
	inflight sync.WaitGroup
}

// StudioTemplates holds the templates for studio pages.
type StudioTemplates struct {
	Studio *views.Template
}

// NewStudioController creates a new StudioController. requestTimeout bounds
// each background backend call.
func NewStudioController(controller *ui.Controller, templates StudioTemplates, logger *slog.Logger, requestTimeout time.Duration, isDevelopment bool) *StudioController {
	return &StudioController{
		ui:             controller,
		templates:      templates,
		logger:         logger,
		requestTimeout: requestTimeout,
		isDevelopment:  isDevelopment,
	}
}

// StudioData holds data for the studio template.
type StudioData struct {
	Panel       string
	DefaultFlow string
	File        *ui.FileInfo
	HasPreview  bool
	Report      *ui.ReportView
	Result      *ui.ResultView
	Slider      SliderData
	View        string
	Steps       []StepData
	Error       string
	Accept      string
	Formats     string
	MaxSizeMB   int64
	Elapsed     string
}

// SliderData positions the before/after reveal.
type SliderData struct {
	Percent   float64
	ClipWidth string
	Width     int
}

// StepData is one row of the processing checklist.
type StepData struct {
	Label string
	Done  bool
	// DelayMs is when a pending row should appear, relative to page load.
	DelayMs int
}

// GetStudio renders whatever panel the session is on.
func (c *StudioController) GetStudio(w http.ResponseWriter, r *http.Request) {
	s := middleware.MustCurrentSession(r)

	query := r.URL.Query()
	if raw := query.Get("pos"); raw != "" {
		if pos, err := strconv.ParseFloat(raw, 64); err == nil {
			s.SetSliderPercent(pos)
		}
	}
	// A click on the comparison image submits its coordinates as at.x/at.y.
	if raw := query.Get("at.x"); raw != "" {
		if x, err := strconv.ParseFloat(raw, 64); err == nil {
			s.PointSlider(x, CompareWidth)
		}
	}

	snap := s.Snapshot()
	data := &views.TemplateData{
		Title:         "Photo Studio",
		CSRFField:     csrf.TemplateField(r),
		IsDevelopment: c.isDevelopment,
		Data:          c.studioData(snap, r.URL.Query().Get("view")),
	}
	if snap.Panel.Loading() {
		data.RefreshSeconds = loadingRefresh
	}

	c.templates.Studio.ExecuteHTTP(w, r, data)
}

func (c *StudioController) studioData(snap ui.Snapshot, view string) StudioData {
	exts := make([]string, len(ui.SupportedExtensions))
	for i, ext := range ui.SupportedExtensions {
		exts[i] = "." + ext
	}

	data := StudioData{
		Panel:       snap.Panel.String(),
		DefaultFlow: string(c.ui.Flow()),
		File:        snap.File,
		HasPreview:  snap.HasPreview,
		Error:       snap.Error,
		Accept:      strings.Join(exts, ","),
		Formats:     "JPG, PNG, BMP, TIFF, WEBP",
		MaxSizeMB:   ui.MaxFileSize >> 20,
		Slider: SliderData{
			Percent:   snap.SliderPos,
			ClipWidth: fmt.Sprintf("%.2f%%", snap.SliderPos),
			Width:     CompareWidth,
		},
	}

	switch view {
	case "before", "after":
		data.View = view
	default:
		data.View = "compare"
	}

	if snap.Analysis != nil {
		report := ui.NewReportView(snap.Analysis)
		data.Report = &report
	}
	if snap.Result != nil {
		var link ui.DownloadLink
		if snap.Download != nil {
			link = *snap.Download
		}
		result := ui.NewResultView(snap.Result, link)
		data.Result = &result
	}

	if snap.Panel.Loading() && !snap.LoadingSince.IsZero() {
		elapsed := time.Since(snap.LoadingSince)
		data.Elapsed = fmt.Sprintf("%.0fs", elapsed.Seconds())
		if snap.Panel == ui.PanelProcessing {
			data.Steps = checklist(elapsed)
		}
	}
	return data
}

// checklist lights the rows already due and schedules the rest with CSS
// animation delays, so the page keeps stepping between reloads.
func checklist(elapsed time.Duration) []StepData {
	visible := ui.VisibleSteps(elapsed)
	steps := make([]StepData, len(ui.EnhancementSteps))
	for i, label := range ui.EnhancementSteps {
		steps[i] = StepData{Label: label, Done: i < visible}
		if !steps[i].Done {
			due := time.Duration(i) * ui.StepInterval
			steps[i].DelayMs = int((due - elapsed).Milliseconds())
		}
	}
	return steps
}

// uploadMemory is how much of a parsed upload stays in memory; the rest
// spills to temp files.
const uploadMemory = 32 << 20

// LimitUpload parses POST /photo under limit before anything else reads the
// body. An upload declared or found to be over limit lands on the size-limit
// error panel. It must run before csrf, which would otherwise fail the same
// parse and answer 403.
func (c *StudioController) LimitUpload(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/photo" {
				next.ServeHTTP(w, r)
				return
			}
			s := middleware.MustCurrentSession(r)
			if r.ContentLength > limit {
				c.reject(s, r.ContentLength)
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			err := r.ParseMultipartForm(uploadMemory)
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.reject(s, maxErr.Limit+1)
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			// Other parse failures surface in PostPhoto as a missing photo.
			if r.MultipartForm != nil {
				defer r.MultipartForm.RemoveAll()
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (c *StudioController) reject(s *ui.Session, size int64) {
	err := c.ui.Reject(s, &ui.IntakeError{Kind: ui.IntakeTooLarge, Size: size})
	if err != nil {
		c.logger.Debug("ignoring oversized upload", "session", s.ID(), "error", err)
	}
}

// PostPhoto takes the selected photo and starts the first backend call.
func (c *StudioController) PostPhoto(w http.ResponseWriter, r *http.Request) {
	s := middleware.MustCurrentSession(r)

	file, header, err := r.FormFile(services.PhotoField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.reject(s, maxErr.Limit+1)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		http.Error(w, "Please choose a photo to upload.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	selected := &ui.SelectedFile{Name: header.Filename, Size: header.Size}

	// Multipart temp files are removed when this request ends, so valid
	// photos are copied before the backend call moves to the background.
	if ui.ValidateFile(header.Filename, header.Size) == nil {
		data, err := io.ReadAll(file)
		if err != nil {
			c.logger.Warn("failed to read upload", "file", header.Filename, "error", err)
			http.Error(w, "Could not read the uploaded photo.", http.StatusBadRequest)
			return
		}
		selected.Open = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		if thumb, err := preview.Thumbnail(bytes.NewReader(data)); err == nil {
			selected.Preview = thumb
		} else {
			c.logger.Debug("no local preview", "file", header.Filename, "error", err)
		}
	}

	flow, _ := ui.ParseFlow(r.FormValue("flow"))
	c.submit(w, r, s, ui.Action{Kind: ui.ActionSelectFile, File: selected, Flow: flow})
}

// PostEnhance asks the backend to enhance the analyzed photo.
func (c *StudioController) PostEnhance(w http.ResponseWriter, r *http.Request) {
	c.submit(w, r, middleware.MustCurrentSession(r), ui.Action{Kind: ui.ActionEnhance})
}

// PostReset returns to the upload panel from anywhere.
func (c *StudioController) PostReset(w http.ResponseWriter, r *http.Request) {
	c.submit(w, r, middleware.MustCurrentSession(r), ui.Action{Kind: ui.ActionReset})
}

// PostRetry returns to the upload panel from the error panel.
func (c *StudioController) PostRetry(w http.ResponseWriter, r *http.Request) {
	c.submit(w, r, middleware.MustCurrentSession(r), ui.Action{Kind: ui.ActionRetry})
}

// submit applies the action, runs any backend call in the background and
// redirects to the studio, which shows the loading panel meanwhile.
func (c *StudioController) submit(w http.ResponseWriter, r *http.Request, s *ui.Session, a ui.Action) {
	run, err := c.ui.Submit(s, a)
	switch {
	case errors.Is(err, ui.ErrInvalidTransition):
		// A stale form from another tab; show the current panel.
		c.logger.Debug("ignoring action", "session", s.ID(), "action", a.Kind, "error", err)
	case err != nil:
		c.logger.Warn("action failed", "session", s.ID(), "action", a.Kind, "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	case run != nil:
		ctx := context.WithoutCancel(r.Context())
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
			defer cancel()
			run(ctx)
		}()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Wait blocks until background backend calls finish or ctx ends.
func (c *StudioController) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetDownload sends the enhanced photo as an attachment, so the page does
// not navigate away.
func (c *StudioController) GetDownload(w http.ResponseWriter, r *http.Request) {
	s := middleware.MustCurrentSession(r)

	var buf bytes.Buffer
	link, contentType, err := c.ui.Download(r.Context(), s, &buf)
	if errors.Is(err, ui.ErrNoDownload) {
		http.Error(w, "No enhanced photo to download.", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, services.UserMessage(err), http.StatusBadGateway)
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", link.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	buf.WriteTo(w)
}

// GetPreview serves the local thumbnail of the selected photo.
func (c *StudioController) GetPreview(w http.ResponseWriter, r *http.Request) {
	thumb := middleware.MustCurrentSession(r).Preview()
	if len(thumb) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", preview.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(thumb)
}

// StatusResponse is the JSON view of a session for scripts and tests.
type StatusResponse struct {
	Panel    string                    `json:"panel"`
	Flow     string                    `json:"flow,omitempty"`
	File     *ui.FileInfo              `json:"file,omitempty"`
	Error    string                    `json:"error,omitempty"`
	Analysis *models.AnalysisReport    `json:"analysis,omitempty"`
	Result   *models.EnhancementResult `json:"result,omitempty"`
	Download *ui.DownloadLink          `json:"download,omitempty"`
}

// GetStatus returns the session as JSON.
func (c *StudioController) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := middleware.MustCurrentSession(r).Snapshot()
	writeJSON(w, http.StatusOK, StatusResponse{
		Panel:    snap.Panel.String(),
		Flow:     string(snap.Flow),
		File:     snap.File,
		Error:    snap.Error,
		Analysis: snap.Analysis,
		Result:   snap.Result,
		Download: snap.Download,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
