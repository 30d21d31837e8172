package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rahul4469/photo-studio/internal/config"
	"github.com/rahul4469/photo-studio/internal/controllers"
	"github.com/rahul4469/photo-studio/internal/crypto"
	"github.com/rahul4469/photo-studio/internal/logging"
	"github.com/rahul4469/photo-studio/internal/middleware"
	"github.com/rahul4469/photo-studio/internal/models"
	"github.com/rahul4469/photo-studio/internal/services"
	"github.com/rahul4469/photo-studio/internal/storage"
	"github.com/rahul4469/photo-studio/internal/ui"
	"github.com/rahul4469/photo-studio/internal/views"
	"github.com/rahul4469/photo-studio/migrations"
	"github.com/rahul4469/photo-studio/templates"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, logging.Options{
		Env:    cfg.Server.Environment,
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup Services ---------------
	backend, err := services.NewEnhancerClient(cfg.Backend.URL, cfg.Backend.Timeout)
	if err != nil {
		return err
	}

	checks := map[string]middleware.HealthChecker{
		"backend": middleware.HealthCheckFunc(backend.Check),
	}
	opts := []ui.Option{
		ui.WithLogger(logger),
		ui.WithFlow(cfg.Backend.Flow),
	}

	// HistoryLister stays a nil interface when no database is configured.
	var history controllers.HistoryLister
	if cfg.HistoryEnabled() {
		logger.Info("connecting to database")
		db, err := models.NewDatabase(ctx, models.DefaultDatabaseConfig(cfg.Database.URL))
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := db.Migrate(ctx, migrations.FS)
		if err != nil {
			return err
		}
		logger.Info("database migrated", "applied", applied)
		historyService := models.NewHistoryService(db.Pool)
		history = historyService
		opts = append(opts, ui.WithRecorder(historyService))
		checks["database"] = db
		logger.Info("enhancement history enabled")
	}

	if cfg.ArchiveEnabled() {
		store, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		checks["archive"] = store
	}

	studioUI := ui.NewController(backend, opts...)

	sealer, err := crypto.NewSealerFromSecret(cfg.Security.SessionSecret)
	if err != nil {
		return err
	}
	cookie := middleware.CookieConfig{
		Name:     cfg.Security.SessionCookieName,
		Duration: cfg.Security.SessionDuration,
		Secure:   cfg.Security.SecureCookies,
	}
	sessions := middleware.NewSessionStore(cookie)
	sessionMw := middleware.NewSessionMiddleware(sessions, sealer, cookie, logger)

	// Setup Controllers ---------------
	studioCtrl := controllers.NewStudioController(
		studioUI,
		controllers.StudioTemplates{
			Studio: views.MustParseFS(templates.FS, "pages/studio.gohtml"),
		},
		logger,
		cfg.Backend.Timeout,
		cfg.IsDevelopment(),
	)
	historyCtrl := controllers.NewHistoryController(
		history,
		views.MustParseFS(templates.FS, "pages/history.gohtml"),
		logger,
	)

	csrfMw := middleware.CSRF(middleware.CSRFConfig{
		Secret:         []byte(cfg.Security.CSRFSecret),
		Secure:         cfg.Security.SecureCookies,
		TrustedOrigins: cfg.Security.TrustedOrigins,
	})

	// Setup router and routes
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", middleware.LivenessHandler)
	r.Get("/readyz", middleware.ReadinessHandler(checks))

	r.Group(func(r chi.Router) {
		r.Use(sessionMw.SetSession)

		// ---- JSON API ----
		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: []string{cfg.Server.BaseURL},
				AllowedMethods: []string{http.MethodGet},
				MaxAge:         300,
			}))
			r.Get("/status", studioCtrl.GetStatus)
		})

		// ---- Studio ----
		r.Group(func(r chi.Router) {
			// The upload is parsed under its size limit before csrf reads
			// the token out of the form.
			r.Use(chimw.RequestSize(cfg.Backend.MaxUploadBytes))
			r.Use(studioCtrl.LimitUpload(cfg.Backend.MaxUploadBytes))
			r.Use(csrfMw)

			r.Get("/", studioCtrl.GetStudio)
			r.Post("/photo", studioCtrl.PostPhoto)
			r.Post("/enhance", studioCtrl.PostEnhance)
			r.Post("/reset", studioCtrl.PostReset)
			r.Post("/retry", studioCtrl.PostRetry)
			r.Get("/download", studioCtrl.GetDownload)
			r.Get("/preview/local", studioCtrl.GetPreview)
			r.Get("/history", historyCtrl.GetHistory)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Server.Environment,
			"backend", cfg.Backend.URL, "flow", cfg.Backend.Flow)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := studioCtrl.Wait(shutdownCtx); err != nil {
		logger.Warn("backend calls still running at exit", "error", err)
	}
	return nil
}
