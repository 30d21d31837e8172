package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest photo the studio accepts.
const MaxFileSize int64 = 50 * 1024 * 1024

// SupportedExtensions are matched case-insensitively, without the dot.
var SupportedExtensions = []string{"jpg", "jpeg", "png", "bmp", "tiff", "webp"}

// IntakeErrorKind classifies client-side validation failures.
type IntakeErrorKind int

const (
	IntakeUnsupportedFormat IntakeErrorKind = iota + 1
	IntakeTooLarge
)

// IntakeError is returned when a file is rejected before any network call.
type IntakeError struct {
	Kind      IntakeErrorKind
	Extension string
	Size      int64
}

func (e *IntakeError) Error() string {
	switch e.Kind {
	case IntakeUnsupportedFormat:
		ext := "(none)"
		if e.Extension != "" {
			ext = "." + e.Extension
		}
		return fmt.Sprintf("Unsupported format: %s. Please use JPG, PNG, BMP, TIFF, or WEBP.", ext)
	case IntakeTooLarge:
		return fmt.Sprintf("File too large. Maximum size is %d MB.", MaxFileSize/(1024*1024))
	default:
		return "Invalid file."
	}
}

// FileExtension returns the lower-cased extension of name without the dot.
func FileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// IsSupportedExtension reports whether ext (no dot, any case) is accepted.
func IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// ValidateFile checks the extension first, then the size.
func ValidateFile(name string, size int64) error {
	ext := FileExtension(name)
	if !IsSupportedExtension(ext) {
		return &IntakeError{Kind: IntakeUnsupportedFormat, Extension: ext, Size: size}
	}
	if size > MaxFileSize {
		return &IntakeError{Kind: IntakeTooLarge, Extension: ext, Size: size}
	}
	return nil
}

// SelectedFile is the photo picked by the user. Open is only called after
// validation passes, so oversized files are never read.
type SelectedFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)

	// Preview is an optional local thumbnail shown while the backend works.
	Preview []byte
}
