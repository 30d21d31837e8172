package ui

import (
	"context"
	"errors"
	"io"
)

// ErrNoDownload means the session has no enhanced photo to fetch.
var ErrNoDownload = errors.New("no enhanced photo available")

// DownloadLink points at the enhanced photo on the backend.
type DownloadLink struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Download streams the enhanced photo of s into w. It does not change the
// active panel, so it can be repeated.
func (c *Controller) Download(ctx context.Context, s *Session, w io.Writer) (DownloadLink, string, error) {
	s.mu.Lock()
	var link DownloadLink
	ok := s.download != nil && s.panels.Active() == PanelResult
	if ok {
		link = *s.download
	}
	s.mu.Unlock()

	if !ok || link.URL == "" {
		return DownloadLink{}, "", ErrNoDownload
	}

	contentType, err := c.backend.Download(ctx, link.URL, w)
	if err != nil {
		c.logger.Warn("download failed", "session", s.id, "url", link.URL, "error", err)
		return link, "", err
	}
	c.logger.Info("photo downloaded", "session", s.id, "file", link.Filename)
	return link, contentType, nil
}
