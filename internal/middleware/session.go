package middleware

import (
	"log/slog"
	"net/http"

	"github.com/rahul4469/photo-studio/context"
	"github.com/rahul4469/photo-studio/internal/crypto"
	"github.com/rahul4469/photo-studio/internal/models"
	"github.com/rahul4469/photo-studio/internal/ui"
)

// SessionStore is the in-memory store of studio sessions.
type SessionStore = models.SessionService[*ui.Session]

// NewSessionStore returns a store whose sessions start on the upload panel.
func NewSessionStore(cfg CookieConfig) *SessionStore {
	return models.NewSessionService(cfg.Duration, ui.NewSession)
}

type SessionMiddleware struct {
	store  *SessionStore
	sealer *crypto.Sealer
	cookie CookieConfig
	logger *slog.Logger
}

func NewSessionMiddleware(store *SessionStore, sealer *crypto.Sealer, cookie CookieConfig, logger *slog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		store:  store,
		sealer: sealer,
		cookie: cookie,
		logger: logger,
	}
}

// SetSession loads the studio session named by the sealed cookie, or starts
// a new one, and stores it in the request context. It never blocks a request.
func (m *SessionMiddleware) SetSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.lookup(r)
		if s == nil {
			id, created := m.store.Create()
			sealed, err := m.sealer.Seal(id)
			if err != nil {
				m.logger.Error("failed to seal session cookie", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			m.cookie.Set(w, sealed)
			m.logger.Debug("session started", "session", id)
			s = created
		}

		ctx := context.ContextSetSession(r.Context(), s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionMiddleware) lookup(r *http.Request) *ui.Session {
	cookie, err := r.Cookie(m.cookie.Name)
	if err != nil {
		return nil
	}
	id, err := m.sealer.Open(cookie.Value)
	if err != nil {
		m.logger.Debug("ignoring unreadable session cookie", "error", err)
		return nil
	}
	s, err := m.store.Get(id)
	if err != nil {
		return nil
	}
	return s
}

// CurrentSession returns the studio session of r, or nil outside SetSession.
func CurrentSession(r *http.Request) *ui.Session {
	return context.ContextGetSession(r.Context())
}

// MustCurrentSession is like CurrentSession but panics if no session is found.
// Only use this in handlers mounted behind SetSession.
func MustCurrentSession(r *http.Request) *ui.Session {
	s := context.ContextGetSession(r.Context())
	if s == nil {
		panic("MustCurrentSession called without SetSession middleware")
	}
	return s
}
