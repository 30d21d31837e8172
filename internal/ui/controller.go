package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rahul4469/photo-studio/internal/models"
	"github.com/rahul4469/photo-studio/internal/services"
)

var (
	// ErrInvalidTransition means the action is not offered by the active panel.
	ErrInvalidTransition = errors.New("action not allowed in current panel")
	// ErrNoFile means SelectFile was dispatched without a file.
	ErrNoFile = errors.New("no file selected")
	// ErrUnknownAction means nothing is registered for the action kind.
	ErrUnknownAction = errors.New("unknown action")
)

// ReadErrorMessage is shown when the picked file cannot be opened locally.
const ReadErrorMessage = "Could not read the selected file. Please choose another photo."

// Backend is the enhancement service contract the controller consumes.
// services.EnhancerClient implements it.
type Backend interface {
	Analyze(ctx context.Context, filename string, photo io.Reader) (*models.AnalysisReport, error)
	Enhance(ctx context.Context, filename string) (*models.EnhancementResult, error)
	Upload(ctx context.Context, filename string, photo io.Reader) (*models.EnhancementResult, error)
	Download(ctx context.Context, url string, w io.Writer) (string, error)
}

// Recorder persists completed enhancements. It is optional.
type Recorder interface {
	Record(ctx context.Context, entry *models.HistoryEntry) error
}

// ActionKind names a user action.
type ActionKind int

const (
	ActionSelectFile ActionKind = iota + 1
	ActionEnhance
	ActionReset
	ActionRetry
)

func (k ActionKind) String() string {
	switch k {
	case ActionSelectFile:
		return "select_file"
	case ActionEnhance:
		return "enhance"
	case ActionReset:
		return "reset"
	case ActionRetry:
		return "retry"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// Action is one user event. File is only read for ActionSelectFile; Flow
// overrides the controller default for that selection when set.
type Action struct {
	Kind ActionKind
	File *SelectedFile
	Flow Flow
}

// actionHandler applies the synchronous part of an action under the session
// lock. It returns the backend work still to do, or nil when there is none.
type actionHandler func(s *Session, a Action) (func(ctx context.Context), error)

type route struct {
	from    []Panel
	handler actionHandler
}

// Controller applies actions to sessions. One Controller serves any number
// of sessions; per-session ordering is the caller's job.
type Controller struct {
	backend  Backend
	recorder Recorder
	logger   *slog.Logger
	clock    Clock
	flow     Flow
	routes   map[ActionKind]route
}

type Option func(*Controller)

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithFlow(f Flow) Option {
	return func(c *Controller) { c.flow = f }
}

func NewController(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		logger:  slog.Default(),
		clock:   SystemClock{},
		flow:    FlowAnalyzeFirst,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.routes = map[ActionKind]route{
		ActionSelectFile: {from: []Panel{PanelUpload}, handler: c.selectFile},
		ActionEnhance:    {from: []Panel{PanelReport}, handler: c.enhance},
		ActionReset:      {from: AllPanels(), handler: c.reset},
		ActionRetry:      {from: []Panel{PanelError}, handler: c.reset},
	}
	return c
}

// Flow is the default flow for new selections.
func (c *Controller) Flow() Flow {
	return c.flow
}

// Allowed reports whether kind is offered while p is active.
func (c *Controller) Allowed(kind ActionKind, p Panel) bool {
	rt, ok := c.routes[kind]
	if !ok {
		return false
	}
	for _, from := range rt.from {
		if from == p {
			return true
		}
	}
	return false
}

// Dispatch applies a and waits for any backend call it starts. Backend
// failures are not returned: they land the session on the error panel. The
// returned error is reserved for actions the session cannot take.
func (c *Controller) Dispatch(ctx context.Context, s *Session, a Action) error {
	run, err := c.Submit(s, a)
	if err != nil {
		return err
	}
	if run != nil {
		run(ctx)
	}
	return nil
}

// Submit applies the panel transition for a right away and returns the
// backend call as a function, so a caller can render the loading panel
// before the request finishes. run is nil when no request is needed.
func (c *Controller) Submit(s *Session, a Action) (run func(ctx context.Context), err error) {
	rt, ok := c.routes[a.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, a.Kind)
	}
	return rt.handler(s, a)
}

// transition runs fn under the session lock if kind is allowed from the
// active panel.
func (c *Controller) transition(s *Session, kind ActionKind, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.panels.Active()
	if !c.Allowed(kind, active) {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, kind, active)
	}
	fn()
	return nil
}

// complete applies fn only if no reset or new selection happened since gen.
func (c *Controller) complete(s *Session, gen uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		c.logger.Debug("discarding stale response", "session", s.id, "gen", gen, "current", s.gen)
		return false
	}
	fn()
	return true
}

func (c *Controller) selectFile(s *Session, a Action) (func(ctx context.Context), error) {
	if a.File == nil {
		return nil, ErrNoFile
	}
	file := a.File
	flow := a.Flow
	if flow == "" {
		flow = c.flow
	}

	var (
		gen       uint64
		intakeErr error
	)
	err := c.transition(s, ActionSelectFile, func() {
		s.clear()
		s.flow = flow
		if err := ValidateFile(file.Name, file.Size); err != nil {
			intakeErr = err
			s.fail(err.Error())
			return
		}
		s.file = file
		s.preview = file.Preview
		s.loadingSince = c.clock.Now()
		if flow == FlowDirect {
			s.show(PanelProcessing)
		} else {
			s.show(PanelAnalyzing)
		}
		gen = s.gen
	})
	if err != nil {
		return nil, err
	}
	if intakeErr != nil {
		c.logger.Info("photo rejected", "session", s.id, "file", file.Name, "size", file.Size, "reason", intakeErr)
		return nil, nil
	}

	return func(ctx context.Context) {
		photo, err := file.Open()
		if err != nil {
			c.logger.Warn("failed to open photo", "session", s.id, "file", file.Name, "error", err)
			c.complete(s, gen, func() { s.fail(ReadErrorMessage) })
			return
		}
		defer photo.Close()

		if flow == FlowDirect {
			res, err := c.backend.Upload(ctx, file.Name, photo)
			c.finishEnhancement(ctx, s, gen, res, err)
			return
		}

		report, err := c.backend.Analyze(ctx, file.Name, photo)
		c.complete(s, gen, func() {
			if err != nil {
				c.logger.Warn("analysis failed", "session", s.id, "file", file.Name, "error", err)
				s.fail(services.UserMessage(err))
				return
			}
			c.logger.Info("photo analyzed", "session", s.id, "file", file.Name,
				"score", report.OverallScore, "issues", report.IssuesFound)
			s.analysis = report
			s.loadingSince = time.Time{}
			s.show(PanelReport)
		})
	}, nil
}

// Reject lands s on the error panel for a file refused before it could be
// read, such as an upload body over the transport limit. It is offered
// where SelectFile is.
func (c *Controller) Reject(s *Session, reason *IntakeError) error {
	err := c.transition(s, ActionSelectFile, func() {
		s.clear()
		s.fail(reason.Error())
	})
	if err != nil {
		return err
	}
	c.logger.Info("upload rejected", "session", s.id, "size", reason.Size, "reason", reason)
	return nil
}

func (c *Controller) enhance(s *Session, _ Action) (func(ctx context.Context), error) {
	var (
		gen      uint64
		filename string
	)
	err := c.transition(s, ActionEnhance, func() {
		if s.analysis != nil {
			filename = s.analysis.Filename
		}
		s.loadingSince = c.clock.Now()
		s.show(PanelProcessing)
		gen = s.gen
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) {
		res, err := c.backend.Enhance(ctx, filename)
		c.finishEnhancement(ctx, s, gen, res, err)
	}, nil
}

// finishEnhancement lands an /enhance or /upload reply on the session and
// records it when a recorder is configured.
func (c *Controller) finishEnhancement(ctx context.Context, s *Session, gen uint64, res *models.EnhancementResult, err error) {
	if err == nil && res == nil {
		err = fmt.Errorf("%w: empty enhancement result", services.ErrConnection)
	}

	var (
		source string
		flow   Flow
	)
	applied := c.complete(s, gen, func() {
		if err != nil {
			c.logger.Warn("enhancement failed", "session", s.id, "error", err)
			s.fail(services.UserMessage(err))
			return
		}
		if s.file != nil {
			source = s.file.Name
		}
		flow = s.flow
		s.result = res
		s.download = &DownloadLink{
			URL:      res.DownloadURL,
			Filename: OutputName(source, res.OutputFilename),
		}
		s.slider = NewSlider()
		s.loadingSince = time.Time{}
		s.show(PanelResult)
	})
	if !applied || err != nil {
		return
	}

	c.logger.Info("photo enhanced", "session", s.id, "file", source,
		"output", res.OutputFilename, "processing_time", res.ProcessingTime,
		"enhancements", len(res.Enhancements))

	if c.recorder == nil {
		return
	}
	entry := models.NewHistoryEntry(s.id, source, string(flow), res)
	entry.OutputFilename = OutputName(source, res.OutputFilename)
	if err := c.recorder.Record(ctx, entry); err != nil {
		if errors.Is(err, models.ErrHistoryDuplicate) {
			c.logger.Debug("enhancement already recorded", "session", s.id, "output", res.OutputFilename)
			return
		}
		c.logger.Warn("failed to record enhancement", "session", s.id, "error", err)
	}
}

func (c *Controller) reset(s *Session, a Action) (func(ctx context.Context), error) {
	return nil, c.transition(s, a.Kind, func() {
		s.clear()
		s.show(PanelUpload)
	})
}

// OutputName picks the download filename: the backend's choice when given,
// otherwise "<source>_enhanced.png".
func OutputName(source, backendName string) string {
	if backendName != "" {
		return backendName
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "photo"
	}
	return base + "_enhanced.png"
}
