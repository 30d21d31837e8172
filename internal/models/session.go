package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	// SessionDuration is how long an idle browser session lives.
	SessionDuration = 2 * time.Hour
	// sessionCleanupInterval is how often expired sessions are purged.
	sessionCleanupInterval = 10 * time.Minute
)

// SessionService keeps per-browser values in memory, keyed by a random id.
// Every successful lookup slides the expiry forward.
type SessionService[T any] struct {
	cache           *cache.Cache
	SessionDuration time.Duration
	newValue        func(id string) T
}

func NewSessionService[T any](duration time.Duration, newValue func(id string) T) *SessionService[T] {
	if duration <= 0 {
		duration = SessionDuration
	}
	return &SessionService[T]{
		cache:           cache.New(duration, sessionCleanupInterval),
		SessionDuration: duration,
		newValue:        newValue,
	}
}

// Create starts a new session and returns its id and value.
func (ss *SessionService[T]) Create() (string, T) {
	id := uuid.NewString()
	value := ss.newValue(id)
	ss.cache.Set(id, value, ss.SessionDuration)
	return id, value
}

// Get returns the session value for id.
func (ss *SessionService[T]) Get(id string) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrSessionNotFound
	}
	raw, ok := ss.cache.Get(id)
	if !ok {
		return zero, ErrSessionNotFound
	}
	value, ok := raw.(T)
	if !ok {
		ss.cache.Delete(id)
		return zero, ErrSessionNotFound
	}
	ss.cache.Set(id, value, ss.SessionDuration)
	return value, nil
}

func (ss *SessionService[T]) Delete(id string) {
	ss.cache.Delete(id)
}

// Count reports how many live sessions are held.
func (ss *SessionService[T]) Count() int {
	return ss.cache.ItemCount()
}
