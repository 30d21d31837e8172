package models

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound means the cookie names no live studio session.
var ErrSessionNotFound = errors.New("session not found")

// History related errors
var (
	ErrHistoryDuplicate = errors.New("enhancement already recorded")
	ErrHistoryDisabled  = errors.New("history store not configured")
)

type FileError struct {
	Issue string
}

func (fe FileError) Error() string {
	return fmt.Sprintf("invalid file: %v", fe.Issue)
}
