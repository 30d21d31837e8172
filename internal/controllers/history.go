package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rahul4469/photo-studio/internal/models"
	"github.com/rahul4469/photo-studio/internal/views"
)

// HistoryLister is the read side of the enhancement history.
type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]*models.HistoryEntry, error)
}

// HistoryController lists recent enhancements.
type HistoryController struct {
	history  HistoryLister
	template *views.Template
	logger   *slog.Logger
}

// NewHistoryController creates a new HistoryController. history may be nil
// when no database is configured.
func NewHistoryController(history HistoryLister, template *views.Template, logger *slog.Logger) *HistoryController {
	return &HistoryController{
		history:  history,
		template: template,
		logger:   logger,
	}
}

// HistoryData holds data for the history template.
type HistoryData struct {
	Entries []*models.HistoryEntry
	Enabled bool
}

// GetHistory renders the most recent enhancements; ?limit= caps the list.
func (c *HistoryController) GetHistory(w http.ResponseWriter, r *http.Request) {
	data := &views.TemplateData{Title: "Enhancement History"}

	if c.history == nil {
		data.Info = "History is disabled. Set DATABASE_URL to keep a record of enhancements."
		data.Data = HistoryData{}
		c.template.ExecuteHTTP(w, r, data)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 100 {
		limit = 100
	}

	entries, err := c.history.Recent(r.Context(), limit)
	switch {
	case errors.Is(err, models.ErrHistoryDisabled):
		data.Info = "History is disabled."
	case err != nil:
		c.logger.Error("failed to load history", "error", err)
		data.Error = "Failed to load history."
		data.Data = HistoryData{Enabled: true}
		c.template.ExecuteHTTPWithStatus(w, r, http.StatusInternalServerError, data)
		return
	}

	data.Data = HistoryData{Entries: entries, Enabled: err == nil}
	c.template.ExecuteHTTP(w, r, data)
}
